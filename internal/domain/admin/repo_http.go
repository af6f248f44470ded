package admin

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
)

// backend is the subset of *apiclient.Client the repositories use.
type backend interface {
	Do(ctx context.Context, method, path string, body, out interface{}) error
	Download(ctx context.Context, path string, w io.Writer) (string, error)
}

type httpRepo struct {
	api backend
}

func NewHTTPRepo(api *apiclient.Client) Repository {
	return &httpRepo{api: api}
}

func (r *httpRepo) ListDoctors(ctx context.Context) ([]Doctor, error) {
	var out []Doctor
	if err := r.api.Do(ctx, http.MethodGet, "/admin/doctors", nil, &out); err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return out, nil
}

func (r *httpRepo) CreateDoctor(ctx context.Context, d DoctorCreate) error {
	if err := r.api.Do(ctx, http.MethodPost, "/admin/doctors", d, nil); err != nil {
		return fmt.Errorf("create doctor: %w", err)
	}
	return nil
}

func (r *httpRepo) DeleteDoctor(ctx context.Context, id int) error {
	if err := r.api.Do(ctx, http.MethodDelete, fmt.Sprintf("/admin/doctors/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete doctor %d: %w", id, err)
	}
	return nil
}

func (r *httpRepo) ListStaff(ctx context.Context) ([]Staff, error) {
	var out []Staff
	if err := r.api.Do(ctx, http.MethodGet, "/admin/staff", nil, &out); err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return out, nil
}

func (r *httpRepo) CreateUser(ctx context.Context, u UserCreate) error {
	if err := r.api.Do(ctx, http.MethodPost, "/admin/users", u, nil); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *httpRepo) DeleteStaff(ctx context.Context, id int) error {
	if err := r.api.Do(ctx, http.MethodDelete, fmt.Sprintf("/admin/staff/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete staff %d: %w", id, err)
	}
	return nil
}

func (r *httpRepo) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := r.api.Do(ctx, http.MethodGet, "/stats/dashboard", nil, &out); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return &out, nil
}

func (r *httpRepo) Export(ctx context.Context, w io.Writer) (string, error) {
	name, err := r.api.Download(ctx, "/reports/export", w)
	if err != nil {
		return "", fmt.Errorf("export bookings: %w", err)
	}
	return name, nil
}
