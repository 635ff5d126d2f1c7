package domain

import "time"

type EventKind string

const (
	EventItemAdded   EventKind = "added"
	EventItemRemoved EventKind = "removed"
)

type EventSource string

const (
	SourceText      EventSource = "text"
	SourceAPI       EventSource = "api"
	SourceAssistant EventSource = "assistant"
	SourceGRPC      EventSource = "grpc"
)

// PantryEvent records a single mutation for the activity log.
type PantryEvent struct {
	ID        string
	Kind      EventKind
	ItemID    string
	ItemName  string
	Source    EventSource
	Utterance string
	CreatedAt time.Time
}
