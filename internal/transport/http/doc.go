// Package http implements the HTTP request handlers for the salespulse
// web service. It is a thin layer between transport and business logic:
// handlers parse requests, delegate to services, and format responses.
//
// # Architecture Principles
//
// Handlers in this package follow these principles:
//
//	1. Thin handlers - minimal logic, delegate to services
//	2. HTTP-only concerns - request parsing, response formatting
//	3. Error transformation - convert service errors to HTTP responses
//	4. No business logic - all logic belongs in the service layer
//
// # Request Flow
//
// A typical request flows through these layers:
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → Loader
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Response Format
//
// Successful responses use a uniform envelope:
//
//	{
//	    "status": "success",
//	    "data":   ...,
//	    "count":  3
//	}
//
// Errors follow RFC 7807 Problem Details, produced centrally by the
// errors package:
//
//	{
//	    "type": "/errors/report/not-found",
//	    "title": "Not Found",
//	    "status": 404,
//	    "detail": "Report file not found",
//	    "instance": "/api/reports/download/gone.csv"
//	}
//
// # Testing
//
// Handlers are tested with httptest against mocked service interfaces,
// covering success paths, validation failures, and error translation.
package http
