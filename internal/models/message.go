package models

import "time"

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// MessageType tells the UI how to render a message.
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
	TypeVideo MessageType = "video"
	TypeTable MessageType = "table"
)

// ChatMessage is immutable once appended to a conversation.
type ChatMessage struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	Sender    Sender      `json:"sender"`
	Timestamp time.Time   `json:"timestamp"`
	Type      MessageType `json:"type"`
	MediaURL  string      `json:"mediaUrl,omitempty"`
	TableHTML string      `json:"tableHtml,omitempty"`
}

// Content is what the router produces for the assistant side of a turn.
type Content struct {
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	MediaURL  string      `json:"mediaUrl,omitempty"`
	TableHTML string      `json:"tableHtml,omitempty"`
}
