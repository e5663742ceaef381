// Package services implements the business logic layer between the HTTP
// handlers and the data access code.
//
// Services follow these principles:
//
//	1. Context propagation for cancellation and tracing
//	2. Dependency injection for loose coupling
//	3. Domain-focused methods that encapsulate business rules
//
// SalesService owns every dataset operation: aggregation, the daily
// series, the chart figure, refresh with change detection, and report
// generation and download. HealthService reports liveness, readiness
// and runtime statistics.
//
// Services return sentinel errors (ErrReportNotFound and friends) or
// typed application errors; handlers translate both into HTTP problem
// responses.
package services
