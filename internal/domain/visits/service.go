package visits

import (
	"context"
	"errors"
	"strings"

	"github.com/polyclinic/clinicdesk/internal/domain/admin"
	"github.com/polyclinic/clinicdesk/internal/platform/session"
	"github.com/polyclinic/clinicdesk/internal/platform/timefmt"
	"github.com/polyclinic/clinicdesk/internal/platform/validation"
)

// ErrNotAuthorized is returned when the role may not edit medical notes.
var ErrNotAuthorized = errors.New("visits: authorized personnel only")

// DoctorLister lists the doctors a booking form offers.
type DoctorLister interface {
	ListDoctors(ctx context.Context) ([]admin.Doctor, error)
}

type Service struct {
	repo    Repository
	doctors DoctorLister
}

func NewService(repo Repository, doctors DoctorLister) *Service {
	return &Service{repo: repo, doctors: doctors}
}

func (s *Service) Doctors(ctx context.Context) ([]admin.Doctor, error) {
	return s.doctors.ListDoctors(ctx)
}

// Book validates and submits a booking. A crowded reply is not an error;
// callers check BookingResult.Crowded and may resubmit with Force.
func (s *Service) Book(ctx context.Context, in BookingInput) (*BookingResult, error) {
	if in.DoctorID == 0 {
		return nil, validation.Invalid("Please select a doctor")
	}
	in.TimeSlot = timefmt.NormalizeSlot(in.TimeSlot)
	if err := validation.Check(in); err != nil {
		return nil, err
	}
	return s.repo.Book(ctx, in)
}

// MySchedule lists the caller's own visits: a doctor's patients, or a
// customer's appointments.
func (s *Service) MySchedule(ctx context.Context, role session.Role) ([]Visit, error) {
	if role == session.RoleDoctor {
		return s.repo.DoctorSchedule(ctx)
	}
	return s.repo.MyAppointments(ctx)
}

type scheduleQuery struct {
	Date string `validate:"required,isodate"`
}

// Schedule lists every visit on date.
func (s *Service) Schedule(ctx context.Context, date string) ([]Visit, error) {
	if err := validation.Check(scheduleQuery{Date: date}); err != nil {
		return nil, err
	}
	return s.repo.Schedule(ctx, date)
}

func (s *Service) Cancel(ctx context.Context, id int) error {
	return s.repo.Cancel(ctx, id)
}

// CanEditNotes reports whether role may write medical notes.
func CanEditNotes(role session.Role) bool {
	return role.In(session.RoleDoctor, session.RoleSeniorAdmin)
}

// SaveNotes replaces the notes of a visit.
func (s *Service) SaveNotes(ctx context.Context, role session.Role, id int, notes string) error {
	if !CanEditNotes(role) {
		return ErrNotAuthorized
	}
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return validation.Invalid("notes is required")
	}
	return s.repo.SaveNotes(ctx, id, notes)
}

func (s *Service) Slots(ctx context.Context, doctorID int, date string) ([]string, error) {
	return s.repo.Slots(ctx, doctorID, date)
}
