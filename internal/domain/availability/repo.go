package availability

import "context"

// Repository is the backend surface for availability rules.
type Repository interface {
	// Staff reads and admin overrides for any doctor.
	DoctorAvailability(ctx context.Context, doctorID int) (*Availability, error)
	SetDoctorAvailability(ctx context.Context, doctorID int, rules []RuleInput) error
	AddDoctorException(ctx context.Context, doctorID int, ex ExceptionInput) error

	// Self-service for the signed-in doctor.
	MyAvailability(ctx context.Context) ([]WeeklyRule, error)
	AddMyAvailability(ctx context.Context, rules []RuleInput) error
	DeleteMyAvailability(ctx context.Context, id int) error
	SetMyException(ctx context.Context, ex ExceptionInput) error
}
