package models

import "time"

// Conversation groups chat messages in insertion order.
type Conversation struct {
	ID        string         `json:"id"`
	ClientID  string         `json:"-"`
	Title     string         `json:"title"`
	Messages  []*ChatMessage `json:"messages,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Client is one anonymous browser identity.
type Client struct {
	ID         string    `json:"id"`
	Subscribed bool      `json:"subscribed"`
	CreatedAt  time.Time `json:"createdAt"`
}
