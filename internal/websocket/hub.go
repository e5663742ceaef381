package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"salespulse/internal/infrastructure"
	"salespulse/pkg/contracts/events"
)

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages awaiting fan-out
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu sync.RWMutex

	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics

	totalConnections int64
	messagesSent     int64

	quit    chan struct{}
	running bool
}

// NewHub creates a new Hub instance. metrics may be nil when telemetry
// is disabled.
func NewHub(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.hub"))

	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger,
		metrics:    metrics,
		quit:       make(chan struct{}),
	}
}

// Start starts the hub's main loop in its own goroutine
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run processes register, unregister, and broadcast events until Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.totalConnections++
			h.mu.Unlock()

			ctx := context.Background()
			if client.traceID != "" {
				ctx = infrastructure.WithTraceID(ctx, client.traceID)
			}

			h.logger.InfoContext(ctx, "client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			infrastructure.RecordWebSocketConnectionChange(ctx, h.metrics, 1)

			// Ack the new client so dashboards know their connection id
			h.sendDirect(ctx, client, events.WebSocketMessage{
				BaseMessage: events.BaseMessage{
					ID:        client.id,
					Type:      events.MessageTypeConnect,
					Timestamp: time.Now(),
					TraceID:   client.traceID,
				},
				Data: map[string]interface{}{
					"status":    "connected",
					"client_id": client.id,
				},
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				count := len(h.clients)
				h.mu.Unlock()

				ctx := context.Background()
				if client.traceID != "" {
					ctx = infrastructure.WithTraceID(ctx, client.traceID)
				}

				h.logger.InfoContext(ctx, "client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))

				infrastructure.RecordWebSocketConnectionChange(ctx, h.metrics, -1)
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			successCount := 0
			failCount := 0

			for _, client := range clients {
				select {
				case client.send <- message:
					successCount++
				default:
					// Client's send buffer is full, drop the client
					failCount++
					h.mu.Lock()
					close(client.send)
					delete(h.clients, client)
					h.mu.Unlock()

					h.logger.Warn("client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}

			h.mu.Lock()
			h.messagesSent += int64(successCount)
			h.mu.Unlock()

			h.logger.Debug("broadcast delivered",
				slog.Int("client_count", len(clients)),
				slog.Int("success_count", successCount),
				slog.Int("fail_count", failCount),
				slog.Int("message_size", len(message)))

			infrastructure.RecordWebSocketBroadcast(context.Background(), h.metrics,
				"broadcast", int64(successCount))
		}
	}
}

// sendDirect delivers a message to one client without the broadcast fan-out.
func (h *Hub) sendDirect(ctx context.Context, client *Client, msg events.WebSocketMessage) {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal direct message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msg.Type)))
		return
	}

	select {
	case client.send <- jsonData:
	default:
		h.logger.WarnContext(ctx, "client buffer full, direct message dropped",
			slog.String("client_id", client.id))
	}
}

// BroadcastDatasetRefreshed implements services.RefreshNotifier. It is
// invoked whenever a reload, manual or scheduled, produced a changed
// dataset.
func (h *Hub) BroadcastDatasetRefreshed(snapshot events.DatasetSnapshot) {
	h.broadcastMessage(events.MessageTypeDatasetRefreshed, snapshot)
}

// BroadcastSystemStatus pushes service health to connected dashboards.
func (h *Hub) BroadcastSystemStatus(status events.SystemStatus) {
	h.broadcastMessage(events.MessageTypeSystemStatus, status)
}

// BroadcastError pushes a structured error event to connected dashboards.
func (h *Hub) BroadcastError(payload events.ErrorPayload) {
	h.broadcastMessage(events.MessageTypeError, payload)
}

// broadcastMessage wraps data in the message envelope and queues it for
// fan-out. It blocks until the hub loop accepts the message.
func (h *Hub) broadcastMessage(msgType events.MessageType, data interface{}) {
	msg := events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			Type:      msgType,
			Timestamp: time.Now(),
		},
		Data: data,
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msgType)))
		return
	}

	h.broadcast <- jsonData
}

// ClientCount implements services.ClientCounter.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Stats returns current hub counters for diagnostics.
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
	}
}

// Stop gracefully stops the hub and disconnects all clients
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}
