package websocket

import (
	"errors"
	"sync"
	"time"
)

var errMockClosed = errors.New("mock connection closed")

// MockMessage is one frame recorded by or queued on a MockConnection.
type MockMessage struct {
	Type int
	Data []byte
	Err  error
}

// MockConnection implements Connection in memory. Frames the code under
// test writes are recorded; frames queued with AddReadMessage are handed
// out by ReadMessage in order, after which reads fail and the pump exits.
type MockConnection struct {
	mu sync.Mutex

	// WriteMessageFunc, when set, intercepts WriteMessage instead of
	// recording the frame.
	WriteMessageFunc func(messageType int, data []byte) error

	WrittenMessages []MockMessage
	Closed          bool

	ReadLimit     int64
	ReadDeadline  time.Time
	WriteDeadline time.Time
	PongHandler   func(string) error

	pending []MockMessage
}

// NewMockConnection returns an open mock with an empty read queue.
func NewMockConnection() *MockConnection {
	return &MockConnection{}
}

// AddReadMessage queues one frame for ReadMessage to return.
func (m *MockConnection) AddReadMessage(messageType int, data []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, MockMessage{Type: messageType, Data: data, Err: err})
}

// GetWrittenMessages returns a copy of every frame written so far.
func (m *MockConnection) GetWrittenMessages() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockMessage, len(m.WrittenMessages))
	copy(out, m.WrittenMessages)
	return out
}

func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Closed {
		return errMockClosed
	}
	if m.WriteMessageFunc != nil {
		return m.WriteMessageFunc(messageType, data)
	}
	m.WrittenMessages = append(m.WrittenMessages, MockMessage{Type: messageType, Data: data})
	return nil
}

func (m *MockConnection) ReadMessage() (int, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Closed {
		return 0, nil, errMockClosed
	}
	if len(m.pending) == 0 {
		return 0, nil, errors.New("read queue exhausted")
	}
	next := m.pending[0]
	m.pending = m.pending[1:]
	return next.Type, next.Data, next.Err
}

func (m *MockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

func (m *MockConnection) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadDeadline = t
	return nil
}

func (m *MockConnection) SetWriteDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteDeadline = t
	return nil
}

func (m *MockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadLimit = limit
}

func (m *MockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PongHandler = h
}

func (m *MockConnection) RemoteAddr() string {
	return "203.0.113.9:52100"
}
