package booking

import (
	"context"
	"errors"
	"time"

	"github.com/polyclinic/clinicdesk/internal/domain/admin"
	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
)

// DefaultDoctorTimeout bounds the doctor list fetch on the guest form.
const DefaultDoctorTimeout = 8 * time.Second

// Notices shown in place of the doctor list.
const (
	NoticeNoDoctors   = "No doctors available"
	NoticeServerError = "Error loading doctors (Server Error)"
	NoticeTimeout     = "Network Timeout - Server is slow"
	noticeSystemError = "System Error: "
)

// DoctorSource lists the public doctor directory.
type DoctorSource interface {
	ListDoctors(ctx context.Context) ([]admin.Doctor, error)
}

// Directory fetches the public doctor list under a deadline.
type Directory struct {
	src     DoctorSource
	timeout time.Duration
}

func NewDirectory(src DoctorSource, timeout time.Duration) *Directory {
	if timeout <= 0 {
		timeout = DefaultDoctorTimeout
	}
	return &Directory{src: src, timeout: timeout}
}

// Load returns the doctors, or a notice telling a timeout apart from a
// server error, an empty directory and anything else. The notice is "" when
// there are doctors to show.
func (d *Directory) Load(ctx context.Context) ([]admin.Doctor, string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	docs, err := d.src.ListDoctors(ctx)
	if err != nil {
		return nil, doctorNotice(err), err
	}
	if len(docs) == 0 {
		return nil, NoticeNoDoctors, nil
	}
	return docs, "", nil
}

func doctorNotice(err error) string {
	var te *apiclient.TransportError
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &te) && te.Timeout()) {
		return NoticeTimeout
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return NoticeServerError
	}
	return noticeSystemError + err.Error()
}
