package websocket

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/casaops/backend/internal/storage/models"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

// Server -> client event types.
const (
	TypeSyncStarted    MessageType = "sync.started"
	TypePropertySynced MessageType = "sync.property_synced"
	TypeSyncCompleted  MessageType = "sync.completed"
)

// Message is the WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Broadcaster publishes sync progress events to the hub.
type Broadcaster struct {
	hub *Hub
}

// NewBroadcaster creates an event broadcaster.
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

// SyncStartedPayload announces a new orchestrator run.
type SyncStartedPayload struct {
	RunID      string `json:"run_id"`
	Properties int    `json:"properties"`
}

// SyncStarted broadcasts a run start.
func (b *Broadcaster) SyncStarted(runID string, properties int) {
	b.send(NewMessage(TypeSyncStarted, SyncStartedPayload{
		RunID:      runID,
		Properties: properties,
	}))
}

// PropertySynced broadcasts one property's finished report.
func (b *Broadcaster) PropertySynced(runID string, report models.PropertyReport) {
	b.send(NewMessage(TypePropertySynced, struct {
		RunID string `json:"run_id"`
		models.PropertyReport
	}{RunID: runID, PropertyReport: report}))
}

// SyncCompleted broadcasts the final run report.
func (b *Broadcaster) SyncCompleted(report *models.RunReport) {
	b.send(NewMessage(TypeSyncCompleted, report))
}

func (b *Broadcaster) send(msg Message) {
	if b == nil || b.hub == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("type", string(msg.Type)).Msg("Failed to encode event")
		return
	}
	b.hub.Broadcast(data)
}
