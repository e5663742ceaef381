package config

import "time"

// Application constants shared across components
const (
	// Application Info
	AppName = "SalesPulse"

	// Data defaults. The canonical dataset location is
	// csv_files/supermarket_sales.csv relative to the working directory.
	DefaultDataDir       = "csv_files"
	DefaultDataFile      = "supermarket_sales.csv"
	DefaultWatchInterval = 30 * time.Second

	// Output defaults
	DefaultReportsDir = "reports"
	DefaultLogsDir    = "logs"
	DefaultLogFile    = "logs/salespulse.log"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// Required dataset columns
	ColumnInvoiceID = "Invoice ID"
	ColumnDate      = "Date"
	ColumnTotal     = "Total"
	ColumnRating    = "Rating"
)
