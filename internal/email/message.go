// Package email defines the core data model shared by the delivery pipeline.
package email

import "time"

// Message is one outbound notification addressed to a single recipient.
type Message struct {
	From       string
	To         string
	Subject    string
	HTMLBody   string
	Attachment *Attachment
}

// Attachment represents a file attached to an email message.
// Content holds the raw bytes; encoding happens at serialization time.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// LogEntry is the delivery record a caller persists for every outcome.
type LogEntry struct {
	ID           string
	Recipient    string
	Subject      string
	Status       Status
	MessageID    string
	ErrorMessage string
	Timestamp    time.Time
}

// NewLogEntry converts an outcome into a delivery record.
func NewLogEntry(id, subject string, outcome Outcome, at time.Time) LogEntry {
	entry := LogEntry{
		ID:        id,
		Recipient: outcome.Recipient,
		Subject:   subject,
		Status:    outcome.Status(),
		Timestamp: at.UTC(),
	}
	if outcome.OK() {
		entry.MessageID = outcome.MessageID
	} else {
		entry.ErrorMessage = outcome.ErrorMessage
	}
	return entry
}
