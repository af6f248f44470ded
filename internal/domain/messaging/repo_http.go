package messaging

import (
	"context"
	"fmt"
	"net/http"

	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
)

// backend is the subset of *apiclient.Client the repository uses.
type backend interface {
	Do(ctx context.Context, method, path string, body, out interface{}) error
}

type httpRepo struct {
	api backend
}

func NewHTTPRepo(api *apiclient.Client) Repository {
	return &httpRepo{api: api}
}

func (r *httpRepo) Conversations(ctx context.Context) ([]Conversation, error) {
	var out []Conversation
	if err := r.api.Do(ctx, http.MethodGet, "/messages/conversations", nil, &out); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return out, nil
}

func (r *httpRepo) History(ctx context.Context, userID int) ([]Message, error) {
	var out []Message
	if err := r.api.Do(ctx, http.MethodGet, fmt.Sprintf("/messages/history/%d", userID), nil, &out); err != nil {
		return nil, fmt.Errorf("history with %d: %w", userID, err)
	}
	return out, nil
}

func (r *httpRepo) Send(ctx context.Context, msg Outgoing) (*Message, error) {
	var out Message
	if err := r.api.Do(ctx, http.MethodPost, "/messages/send", msg, &out); err != nil {
		return nil, fmt.Errorf("send message to %d: %w", msg.RecipientID, err)
	}
	return &out, nil
}

func (r *httpRepo) Unread(ctx context.Context) (int, error) {
	var out unreadReply
	if err := r.api.Do(ctx, http.MethodGet, "/messages/unread", nil, &out); err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return out.Count, nil
}

func (r *httpRepo) Users(ctx context.Context) ([]User, error) {
	var out []User
	if err := r.api.Do(ctx, http.MethodGet, "/messages/users", nil, &out); err != nil {
		return nil, fmt.Errorf("list chat users: %w", err)
	}
	return out, nil
}

func (r *httpRepo) MarkRead(ctx context.Context, messageID int) error {
	if err := r.api.Do(ctx, http.MethodPost, fmt.Sprintf("/messages/%d/read", messageID), nil, nil); err != nil {
		return fmt.Errorf("mark message %d read: %w", messageID, err)
	}
	return nil
}
