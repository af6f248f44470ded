package visits

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
	"github.com/polyclinic/clinicdesk/internal/platform/timefmt"
)

// backend is the subset of *apiclient.Client the repository uses.
type backend interface {
	Do(ctx context.Context, method, path string, body, out interface{}) error
	DoPublic(ctx context.Context, method, path string, body, out interface{}) error
}

type httpRepo struct {
	api backend
}

func NewHTTPRepo(api *apiclient.Client) Repository {
	return &httpRepo{api: api}
}

func (r *httpRepo) Book(ctx context.Context, in BookingInput) (*BookingResult, error) {
	var out BookingResult
	if err := r.api.Do(ctx, http.MethodPost, "/visits", in, &out); err != nil {
		return nil, fmt.Errorf("book visit: %w", err)
	}
	return &out, nil
}

func (r *httpRepo) Schedule(ctx context.Context, date string) ([]Visit, error) {
	var out []Visit
	if err := r.api.Do(ctx, http.MethodGet, "/schedule?date="+url.QueryEscape(date), nil, &out); err != nil {
		return nil, fmt.Errorf("schedule for %s: %w", date, err)
	}
	return out, nil
}

func (r *httpRepo) DoctorSchedule(ctx context.Context) ([]Visit, error) {
	var out []Visit
	if err := r.api.Do(ctx, http.MethodGet, "/doctor/me/schedule", nil, &out); err != nil {
		return nil, fmt.Errorf("doctor schedule: %w", err)
	}
	return out, nil
}

func (r *httpRepo) MyAppointments(ctx context.Context) ([]Visit, error) {
	var out []Visit
	if err := r.api.Do(ctx, http.MethodGet, "/my/appointments", nil, &out); err != nil {
		return nil, fmt.Errorf("my appointments: %w", err)
	}
	return out, nil
}

func (r *httpRepo) Cancel(ctx context.Context, id int) error {
	if err := r.api.Do(ctx, http.MethodDelete, fmt.Sprintf("/visits/%d", id), nil, nil); err != nil {
		return fmt.Errorf("cancel visit %d: %w", id, err)
	}
	return nil
}

func (r *httpRepo) SaveNotes(ctx context.Context, id int, notes string) error {
	if err := r.api.Do(ctx, http.MethodPatch, fmt.Sprintf("/visits/%d/notes", id), notesUpdate{Notes: notes}, nil); err != nil {
		return fmt.Errorf("save notes for visit %d: %w", id, err)
	}
	return nil
}

func (r *httpRepo) Slots(ctx context.Context, doctorID int, date string) ([]string, error) {
	var out slotList
	path := fmt.Sprintf("/doctors/%d/public-slots?date=%s", doctorID, url.QueryEscape(date))
	if err := r.api.DoPublic(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("slots for doctor %d: %w", doctorID, err)
	}
	slots := make([]string, 0, len(out.Slots))
	for _, s := range out.Slots {
		slots = append(slots, timefmt.NormalizeSlot(s))
	}
	return slots, nil
}
