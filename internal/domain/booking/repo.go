package booking

import (
	"context"

	"github.com/polyclinic/clinicdesk/internal/domain/admin"
)

// Repository defines the public booking endpoints. None of them needs a
// session.
type Repository interface {
	ListDoctors(ctx context.Context) ([]admin.Doctor, error)
	SendOTP(ctx context.Context, email string) error
	BookGuest(ctx context.Context, d Draft) (*Confirmation, error)
	SendCancelOTP(ctx context.Context, visitID int, email string) error
	// CancelGuest returns the backend's confirmation message.
	CancelGuest(ctx context.Context, req CancelRequest) (string, error)
}
