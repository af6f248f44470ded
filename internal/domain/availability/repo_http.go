package availability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
)

type backend interface {
	Do(ctx context.Context, method, path string, body, out interface{}) error
}

type httpRepo struct {
	api backend
}

func NewHTTPRepo(api *apiclient.Client) Repository {
	return &httpRepo{api: api}
}

func (r *httpRepo) DoctorAvailability(ctx context.Context, doctorID int) (*Availability, error) {
	var out Availability
	if err := r.api.Do(ctx, http.MethodGet, fmt.Sprintf("/admin/doctors/%d/availability", doctorID), nil, &out); err != nil {
		return nil, fmt.Errorf("doctor %d availability: %w", doctorID, err)
	}
	return &out, nil
}

func (r *httpRepo) SetDoctorAvailability(ctx context.Context, doctorID int, rules []RuleInput) error {
	if err := r.api.Do(ctx, http.MethodPost, fmt.Sprintf("/admin/doctors/%d/availability", doctorID), rules, nil); err != nil {
		return fmt.Errorf("set doctor %d availability: %w", doctorID, err)
	}
	return nil
}

func (r *httpRepo) AddDoctorException(ctx context.Context, doctorID int, ex ExceptionInput) error {
	if err := r.api.Do(ctx, http.MethodPost, fmt.Sprintf("/admin/doctors/%d/exceptions", doctorID), ex, nil); err != nil {
		return fmt.Errorf("add doctor %d exception: %w", doctorID, err)
	}
	return nil
}

func (r *httpRepo) MyAvailability(ctx context.Context) ([]WeeklyRule, error) {
	var out []WeeklyRule
	if err := r.api.Do(ctx, http.MethodGet, "/doctor/me/availability", nil, &out); err != nil {
		return nil, fmt.Errorf("my availability: %w", err)
	}
	return out, nil
}

func (r *httpRepo) AddMyAvailability(ctx context.Context, rules []RuleInput) error {
	if err := r.api.Do(ctx, http.MethodPost, "/doctor/me/availability", rules, nil); err != nil {
		return fmt.Errorf("add availability: %w", err)
	}
	return nil
}

func (r *httpRepo) DeleteMyAvailability(ctx context.Context, id int) error {
	if err := r.api.Do(ctx, http.MethodDelete, fmt.Sprintf("/doctor/me/availability/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete availability %d: %w", id, err)
	}
	return nil
}

func (r *httpRepo) SetMyException(ctx context.Context, ex ExceptionInput) error {
	if err := r.api.Do(ctx, http.MethodPost, "/doctor/me/exceptions", ex, nil); err != nil {
		return fmt.Errorf("set exception: %w", err)
	}
	return nil
}
