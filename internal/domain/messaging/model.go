// Package messaging is the internal staff chat: the conversation list, the
// open conversation's history, the unread badge and the poll loops that keep
// them current.
package messaging

import "fmt"

// Conversation is one entry of the chat list, newest first.
type Conversation struct {
	UserID      int    `json:"user_id"`
	Name        string `json:"name"`
	LastMessage string `json:"last_message"`
	TimeStr     string `json:"time_str"`
	Unread      int    `json:"unread"`
}

// Label is the contact name, or "User <id>" when the backend has none.
func (c Conversation) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("User %d", c.UserID)
}

// Message is one line of a conversation history.
type Message struct {
	ID          int    `json:"id"`
	SenderID    int    `json:"sender_id"`
	RecipientID int    `json:"recipient_id"`
	Content     string `json:"content"`
	Timestamp   string `json:"timestamp"`
	IsMe        bool   `json:"is_me"`
}

// User is a staff member that can be messaged.
type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Outgoing is a message to send.
type Outgoing struct {
	RecipientID int    `json:"recipient_id"`
	Content     string `json:"content"`
}

type unreadReply struct {
	Count int `json:"count"`
}
