// Package app provides application initialization and lifecycle management
// for the SalesPulse service. It wires configuration, the sales dataset
// loader, the report exporters, the WebSocket hub and the scheduled dataset
// watcher together, and handles graceful shutdown.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from environment and files
//	2. Initialize logging and OpenTelemetry
//	3. Resolve and create filesystem paths
//	4. Initialize services with their dependencies
//	5. Set up HTTP handlers and middleware
//	6. Configure the HTTP server
//
// # Usage
//
// The main entry point is typically:
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run handles SIGINT and SIGTERM to ensure:
//
//	- Active requests are completed
//	- The dataset watcher and metrics collector stop
//	- WebSocket connections are closed cleanly
//	- OpenTelemetry providers are flushed
//
// # Error Handling
//
// All initialization errors are returned to the caller for proper
// handling. The app does not call os.Exit() directly, allowing
// the main function to control the exit process.
package app
