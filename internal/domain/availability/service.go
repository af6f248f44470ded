package availability

import (
	"context"

	"github.com/polyclinic/clinicdesk/internal/domain/admin"
	"github.com/polyclinic/clinicdesk/internal/platform/validation"
)

// DoctorLister lists the doctor directory.
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

func (s *Service) Availability(ctx context.Context, doctorID int) (*Availability, error) {
	return s.repo.DoctorAvailability(ctx, doctorID)
}

func (s *Service) MyRules(ctx context.Context) ([]WeeklyRule, error) {
	return s.repo.MyAvailability(ctx)
}

// Window builds a validated weekly rule. Times may be given as HH:MM.
func Window(day int, start, end string, capacity int) (RuleInput, error) {
	in := RuleInput{
		DayOfWeek:          day,
		StartTime:          NormalizeTime(start),
		EndTime:            NormalizeTime(end),
		MaxPatientsPerSlot: capacity,
	}
	if err := validation.Check(in); err != nil {
		return RuleInput{}, err
	}
	if in.EndTime <= in.StartTime {
		return RuleInput{}, validation.Invalid("end_time must be after start_time")
	}
	return in, nil
}

// AddMyWindow adds a weekly window for the signed-in doctor.
func (s *Service) AddMyWindow(ctx context.Context, day int, start, end string) error {
	in, err := Window(day, start, end, MaxPatientsPerSlot)
	if err != nil {
		return err
	}
	return s.repo.AddMyAvailability(ctx, []RuleInput{in})
}

func (s *Service) RemoveMyWindow(ctx context.Context, id int) error {
	return s.repo.DeleteMyAvailability(ctx, id)
}

// MarkDayOff cancels the signed-in doctor's availability for date.
func (s *Service) MarkDayOff(ctx context.Context, date string) error {
	ex := ExceptionInput{ExceptionDate: date, Status: StatusCancelled}
	if err := validation.Check(ex); err != nil {
		return err
	}
	return s.repo.SetMyException(ctx, ex)
}

// AssignWeekly appends weekly rules to a doctor's schedule.
func (s *Service) AssignWeekly(ctx context.Context, doctorID int, rules []RuleInput) error {
	for i := range rules {
		in, err := Window(rules[i].DayOfWeek, rules[i].StartTime, rules[i].EndTime, rules[i].MaxPatientsPerSlot)
		if err != nil {
			return err
		}
		rules[i] = in
	}
	return s.repo.SetDoctorAvailability(ctx, doctorID, rules)
}

// AddException records a date override for a doctor. A custom window needs
// both ends; a cancellation carries none.
func (s *Service) AddException(ctx context.Context, doctorID int, ex ExceptionInput) error {
	if ex.StartTime != nil {
		v := NormalizeTime(*ex.StartTime)
		ex.StartTime = &v
	}
	if ex.EndTime != nil {
		v := NormalizeTime(*ex.EndTime)
		ex.EndTime = &v
	}
	if err := validation.Check(ex); err != nil {
		return err
	}
	if ex.Status == StatusCancelled {
		ex.StartTime, ex.EndTime = nil, nil
	} else if (ex.StartTime == nil) != (ex.EndTime == nil) {
		return validation.Invalid("start_time and end_time must be given together")
	}
	return s.repo.AddDoctorException(ctx, doctorID, ex)
}
