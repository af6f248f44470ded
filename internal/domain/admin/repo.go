package admin

import (
	"context"
	"io"
)

// Repository is the backend surface used by the admin views.
type Repository interface {
	ListDoctors(ctx context.Context) ([]Doctor, error)
	CreateDoctor(ctx context.Context, d DoctorCreate) error
	DeleteDoctor(ctx context.Context, id int) error

	ListStaff(ctx context.Context) ([]Staff, error)
	CreateUser(ctx context.Context, u UserCreate) error
	DeleteStaff(ctx context.Context, id int) error

	Stats(ctx context.Context) (*Stats, error)
	// Export streams the bookings CSV into w and returns the server's
	// suggested filename, if any.
	Export(ctx context.Context, w io.Writer) (string, error)
}
