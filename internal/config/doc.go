// Package config provides centralized configuration management for SalesPulse.
// It handles loading configuration from multiple sources, validation, and
// resolution of all file system paths used by the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (config.yaml / configs/config.yaml)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern SALES_* for namespacing:
//
//	SALES_SERVER_PORT=8080
//	SALES_DATA_DIR=csv_files
//	SALES_DATA_FILE=supermarket_sales.csv
//	SALES_DATA_WATCH_INTERVAL=30s
//	SALES_LOGGING_LEVEL=info
//
// # Path Management
//
// The Paths type resolves the data CSV, the reports directory and the logs
// directory against a base directory. The base defaults to the working
// directory so the canonical csv_files/supermarket_sales.csv location works
// out of the box:
//
//	paths, err := config.NewPaths(cfg)
//	if err != nil {
//	    return err
//	}
//	if err := paths.EnsureDirectories(); err != nil {
//	    return err
//	}
//	data, err := os.Open(paths.DataFile)
package config
