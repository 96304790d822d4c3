// Package domain contains core concepts of the chat gateway.
// This file defines Message entities and their status rules.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
	TypeFile  MessageType = "file"
)

// MessageStatus follows a one-way lifecycle: sent -> delivered -> read.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

var statusRank = map[MessageStatus]int{
	StatusSent:      0,
	StatusDelivered: 1,
	StatusRead:      2,
}

// CanTransitionTo reports whether moving to next respects the one-way lifecycle.
// A status never regresses; staying in place is allowed.
func (s MessageStatus) CanTransitionTo(next MessageStatus) bool {
	from, okFrom := statusRank[s]
	to, okTo := statusRank[next]
	return okFrom && okTo && to >= from
}

// Message represents a persisted one-to-one chat message.
// The router only creates messages and advances their status, never deletes.
type Message struct {
	ID         uuid.UUID
	SenderID   string
	ReceiverID string
	Content    string
	Type       MessageType
	Status     MessageStatus
	IsRead     bool
	ReadAt     *time.Time
	CreatedAt  time.Time
}

// MarkRead flips the read flag and pins the status to read.
// IsRead implies ReadAt is set; callers pass a shared timestamp so a bulk
// mark-read operation yields one consistent ReadAt across all rows.
func (m *Message) MarkRead(at time.Time) {
	m.IsRead = true
	m.ReadAt = &at
	m.Status = StatusRead
}
