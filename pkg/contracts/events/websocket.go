// Package events contains the event contract definitions for WebSocket
// communication between the sales service and connected dashboards.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Dataset messages - the primary event types
	MessageTypeDatasetSnapshot  MessageType = "dataset:snapshot"
	MessageTypeDatasetRefreshed MessageType = "dataset:refreshed"

	// System messages
	MessageTypeSystemStatus MessageType = "system:status"

	// Connection messages
	MessageTypeConnect    MessageType = "connect"
	MessageTypeDisconnect MessageType = "disconnect"
	MessageTypeError      MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data   interface{} `json:"data,omitempty"`
	Action string      `json:"action,omitempty"`
}

// DatasetSnapshot describes the state of the loaded dataset. It is
// broadcast on refresh so dashboards can re-fetch without polling.
type DatasetSnapshot struct {
	Path       string    `json:"path"`
	Rows       int       `json:"rows"`
	FirstDate  string    `json:"first_date,omitempty"`
	LastDate   string    `json:"last_date,omitempty"`
	TotalSales float64   `json:"total_sales"`
	LoadedAt   time.Time `json:"loaded_at"`
	Changed    bool      `json:"changed"`
}

// SystemStatus describes overall service health for the status channel.
type SystemStatus struct {
	Status  string `json:"status"` // healthy|degraded|unhealthy
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
	Clients int    `json:"clients"`
}

// ErrorPayload carries error details to connected clients.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}
