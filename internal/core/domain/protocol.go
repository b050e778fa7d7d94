package domain

import (
	"encoding/json"
	"time"
)

const (
	EventJoin        = "join"
	EventOrderNew    = "order:new"
	EventOrderUpdate = "order:update"
	EventError       = "error"
)

// Frame is the envelope every message on the real-time connection travels in.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame encodes v as the data of a frame for event.
func NewFrame(event string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

// RawFrame wraps already-encoded data without touching it.
func RawFrame(event string, data []byte) ([]byte, error) {
	return json.Marshal(Frame{Event: event, Data: json.RawMessage(data)})
}

// JoinPayload is sent by a client to request room membership
type JoinPayload struct {
	Role    Role   `json:"role"`
	TableID string `json:"tableId,omitempty"`
}

// NotificationType tags what a notification refers to.
type NotificationType string

const (
	NotificationOrder   NotificationType = "ORDER"
	NotificationPayment NotificationType = "PAYMENT"
	NotificationReview  NotificationType = "REVIEW"
)

// Notification is the admin-facing record pushed with order:new.
type Notification struct {
	ID        string           `json:"id,omitempty"`
	Type      NotificationType `json:"type"`
	ItemID    string           `json:"itemId"`
	MessageVI string           `json:"message_vi"`
	MessageEN string           `json:"message_en"`
	IsSeen    bool             `json:"isSeen"`
	CreatedAt time.Time        `json:"createdAt,omitzero"`
	UpdatedAt time.Time        `json:"updatedAt,omitzero"`
}

// ErrorMessage is WS-safe error
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
