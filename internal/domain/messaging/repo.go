package messaging

import "context"

// Repository defines the messaging endpoints.
type Repository interface {
	Conversations(ctx context.Context) ([]Conversation, error)
	// History returns the messages exchanged with userID, oldest first. The
	// backend marks the incoming ones read.
	History(ctx context.Context, userID int) ([]Message, error)
	Send(ctx context.Context, msg Outgoing) (*Message, error)
	Unread(ctx context.Context) (int, error)
	Users(ctx context.Context) ([]User, error)
	MarkRead(ctx context.Context, messageID int) error
}
