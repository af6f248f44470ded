package admin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/polyclinic/clinicdesk/internal/platform/session"
	"github.com/polyclinic/clinicdesk/internal/platform/timefmt"
	"github.com/polyclinic/clinicdesk/internal/platform/validation"
)

type Service struct {
	repo Repository
	tf   *timefmt.Formatter
}

func NewService(repo Repository, tf *timefmt.Formatter) *Service {
	return &Service{repo: repo, tf: tf}
}

func (s *Service) Doctors(ctx context.Context) ([]Doctor, error) {
	return s.repo.ListDoctors(ctx)
}

func (s *Service) CreateDoctor(ctx context.Context, d DoctorCreate) error {
	d.Name = strings.TrimSpace(d.Name)
	d.Username = strings.TrimSpace(d.Username)
	d.Specialization = strings.TrimSpace(d.Specialization)
	if err := validation.Check(d); err != nil {
		return err
	}
	return s.repo.CreateDoctor(ctx, d)
}

func (s *Service) RemoveDoctor(ctx context.Context, id int) error {
	return s.repo.DeleteDoctor(ctx, id)
}

func (s *Service) Staff(ctx context.Context) ([]Staff, error) {
	return s.repo.ListStaff(ctx)
}

// CreateReceptionist creates a front-desk account.
func (s *Service) CreateReceptionist(ctx context.Context, username, password string) error {
	u := UserCreate{
		Username: strings.TrimSpace(username),
		Password: password,
		Role:     session.RoleReceptionist,
	}
	if err := validation.Check(u); err != nil {
		return err
	}
	return s.repo.CreateUser(ctx, u)
}

func (s *Service) RemoveStaff(ctx context.Context, id int) error {
	return s.repo.DeleteStaff(ctx, id)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

// ExportFilename is the name the bookings CSV is saved under for a day.
func ExportFilename(day string) string {
	return "bookings_export_" + day + ".csv"
}

// Export saves the bookings CSV into dir and returns the written path. A
// partial file is removed on failure.
func (s *Service) Export(ctx context.Context, dir string) (string, error) {
	path := filepath.Join(dir, ExportFilename(s.tf.Today()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if _, err := s.repo.Export(ctx, f); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}
