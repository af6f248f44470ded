package messaging

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestHTTPRepo_Endpoints(t *testing.T) {
	var seen []string
	var sent Outgoing
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("expected bearer token on %s", r.URL.Path)
		}
		switch r.URL.Path {
		case "/messages/conversations":
			w.Write([]byte(`[{"user_id": 7, "name": "Reception", "last_message": "hi", "time_str": "2024-06-10 08:15:00", "unread": 1}]`))
		case "/messages/history/7":
			w.Write([]byte(`[{"id": 1, "sender_id": 7, "recipient_id": 2, "content": "hi", "timestamp": "2024-06-10T08:15:00", "is_me": false}]`))
		case "/messages/send":
			body, _ := io.ReadAll(r.Body)
			json.Unmarshal(body, &sent)
			w.Write([]byte(`{"id": 2, "sender_id": 2, "recipient_id": 7, "content": "hello", "timestamp": "2024-06-10T08:16:00", "is_me": true}`))
		case "/messages/unread":
			w.Write([]byte(`{"count": 3}`))
		case "/messages/users":
			w.Write([]byte(`[{"id": 7, "name": "reception (Receptionist)"}]`))
		case "/messages/1/read":
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	repo := NewHTTPRepo(apiclient.New(srv.URL, staticToken("tok"), zerolog.Nop()))
	ctx := context.Background()

	convs, err := repo.Conversations(ctx)
	if err != nil || len(convs) != 1 || convs[0].UserID != 7 || convs[0].Unread != 1 {
		t.Fatalf("unexpected conversations %+v err=%v", convs, err)
	}
	msgs, err := repo.History(ctx, 7)
	if err != nil || len(msgs) != 1 || msgs[0].IsMe {
		t.Fatalf("unexpected history %+v err=%v", msgs, err)
	}
	msg, err := repo.Send(ctx, Outgoing{RecipientID: 7, Content: "hello"})
	if err != nil || !msg.IsMe || sent != (Outgoing{RecipientID: 7, Content: "hello"}) {
		t.Fatalf("unexpected send %+v body=%+v err=%v", msg, sent, err)
	}
	if n, err := repo.Unread(ctx); err != nil || n != 3 {
		t.Fatalf("unexpected unread %d err=%v", n, err)
	}
	if users, err := repo.Users(ctx); err != nil || len(users) != 1 || users[0].ID != 7 {
		t.Fatalf("unexpected users %+v err=%v", users, err)
	}
	if err := repo.MarkRead(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"GET /messages/conversations",
		"GET /messages/history/7",
		"POST /messages/send",
		"GET /messages/unread",
		"GET /messages/users",
		"POST /messages/1/read",
	}
	if len(seen) != len(want) {
		t.Fatalf("expected %d requests, got %v", len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("request %d: expected %q, got %q", i, want[i], seen[i])
		}
	}
}

func TestHTTPRepo_SendUnknownRecipient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Recipient not found"}`))
	}))
	defer srv.Close()

	repo := NewHTTPRepo(apiclient.New(srv.URL, staticToken("tok"), zerolog.Nop()))
	_, err := repo.Send(context.Background(), Outgoing{RecipientID: 99, Content: "hi"})
	if apiclient.Message(err) != "Recipient not found" {
		t.Errorf("expected backend detail, got %q (%v)", apiclient.Message(err), err)
	}
}
