// Package chat holds the transport-neutral message types exchanged
// between the connector and the processing pipeline.
package chat

import (
	"context"
	"time"
)

// InboundMessage is a single user message, already lifted out of the
// transport's update envelope.
type InboundMessage struct {
	// UpdateID is the transport's monotonically increasing update
	// identifier, used for backlog acknowledgement.
	UpdateID  int64
	MessageID int
	ChatID    int64
	UserID    int64
	Username  string
	FullName  string
	Text      string
	SentAt    time.Time
}

// Deliverer sends messages back to a conversation. Implementations wrap
// a concrete transport client.
type Deliverer interface {
	// SendText delivers a text message. A non-zero replyTo links the
	// message to an earlier one in the conversation.
	SendText(ctx context.Context, chatID int64, text string, replyTo int) error

	// SendStatus posts an ephemeral progress message and returns its
	// identifier so it can be deleted later.
	SendStatus(ctx context.Context, chatID int64, text string) (int, error)

	// DeleteStatus removes a previously posted status message.
	DeleteStatus(ctx context.Context, chatID int64, messageID int) error

	// NotifyTyping shows a typing indicator in the conversation.
	NotifyTyping(ctx context.Context, chatID int64) error
}
