package visits

import "context"

// Repository defines the visit endpoints.
type Repository interface {
	Book(ctx context.Context, in BookingInput) (*BookingResult, error)
	Schedule(ctx context.Context, date string) ([]Visit, error)
	DoctorSchedule(ctx context.Context) ([]Visit, error)
	MyAppointments(ctx context.Context) ([]Visit, error)
	Cancel(ctx context.Context, id int) error
	SaveNotes(ctx context.Context, id int, notes string) error
	// Slots lists the free "HH:MM:00" starts of a doctor on date. It needs
	// no session.
	Slots(ctx context.Context, doctorID int, date string) ([]string, error)
}
