package booking

import (
	"context"
	"fmt"
	"net/http"

	"github.com/polyclinic/clinicdesk/internal/domain/admin"
	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
)

// backend is the subset of *apiclient.Client the repository uses.
type backend interface {
	DoPublic(ctx context.Context, method, path string, body, out interface{}) error
}

type httpRepo struct {
	api backend
}

func NewHTTPRepo(api *apiclient.Client) Repository {
	return &httpRepo{api: api}
}

func (r *httpRepo) ListDoctors(ctx context.Context) ([]admin.Doctor, error) {
	var out []admin.Doctor
	if err := r.api.DoPublic(ctx, http.MethodGet, "/doctors/public", nil, &out); err != nil {
		return nil, fmt.Errorf("public doctors: %w", err)
	}
	return out, nil
}

func (r *httpRepo) SendOTP(ctx context.Context, email string) error {
	if err := r.api.DoPublic(ctx, http.MethodPost, "/auth/otp/send", otpRequest{Email: email}, nil); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}
	return nil
}

func (r *httpRepo) BookGuest(ctx context.Context, d Draft) (*Confirmation, error) {
	var out Confirmation
	if err := r.api.DoPublic(ctx, http.MethodPost, "/visits/public", d, &out); err != nil {
		return nil, fmt.Errorf("book guest visit: %w", err)
	}
	return &out, nil
}

func (r *httpRepo) SendCancelOTP(ctx context.Context, visitID int, email string) error {
	req := CancelRequest{VisitID: visitID, Email: email}
	if err := r.api.DoPublic(ctx, http.MethodPost, "/guest-visits/send-cancel-otp", req, nil); err != nil {
		return fmt.Errorf("send cancel otp for visit %d: %w", visitID, err)
	}
	return nil
}

func (r *httpRepo) CancelGuest(ctx context.Context, req CancelRequest) (string, error) {
	var out messageReply
	if err := r.api.DoPublic(ctx, http.MethodPost, "/guest-visits/cancel", req, &out); err != nil {
		return "", fmt.Errorf("cancel guest visit %d: %w", req.VisitID, err)
	}
	return out.Message, nil
}
