package visits

import (
	"context"
	"errors"
	"sync"

	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
	"github.com/polyclinic/clinicdesk/internal/ui"
)

// Slot picker placeholders.
const (
	SlotsPlaceholder = "Select Doctor & Date First"
	NoSlotsText      = "No slots available"
	SlotsErrorText   = "Error loading slots"
	SlotsSystemError = "System Error"
)

// SlotFetcher lists free slots for a doctor and date.
type SlotFetcher interface {
	Slots(ctx context.Context, doctorID int, date string) ([]string, error)
}

// SlotPicker is the time-slot select of a booking form. It refetches when the
// doctor or the date changes. Each refetch bumps a generation and results of
// an older generation are dropped, so a slow reply for a previous selection
// never overwrites the list for the current one.
type SlotPicker struct {
	fetch SlotFetcher

	mu       sync.Mutex
	gen      uint64
	doctorID int
	date     string
	slots    []string
	status   string
}

func NewSlotPicker(fetch SlotFetcher) *SlotPicker {
	return &SlotPicker{fetch: fetch, status: SlotsPlaceholder}
}

// SetDoctor changes the doctor and refetches.
func (p *SlotPicker) SetDoctor(ctx context.Context, doctorID int) error {
	p.mu.Lock()
	p.doctorID = doctorID
	p.mu.Unlock()
	return p.refresh(ctx)
}

// SetDate changes the date and refetches.
func (p *SlotPicker) SetDate(ctx context.Context, date string) error {
	p.mu.Lock()
	p.date = date
	p.mu.Unlock()
	return p.refresh(ctx)
}

func (p *SlotPicker) refresh(ctx context.Context) error {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	doctorID, date := p.doctorID, p.date
	p.slots = nil
	if doctorID == 0 || date == "" {
		p.status = SlotsPlaceholder
		p.mu.Unlock()
		return nil
	}
	p.status = ui.LoadingText
	p.mu.Unlock()

	slots, err := p.fetch.Slots(ctx, doctorID, date)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return nil
	}
	switch {
	case err != nil:
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) {
			p.status = SlotsErrorText
		} else {
			p.status = SlotsSystemError
		}
		return err
	case len(slots) == 0:
		p.status = NoSlotsText
	default:
		p.status = ""
		p.slots = slots
	}
	return nil
}

// Options returns the selectable slots. When there are none, status says why.
func (p *SlotPicker) Options() (slots []string, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.slots...), p.status
}

// Selection returns the chosen doctor and date.
func (p *SlotPicker) Selection() (doctorID int, date string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doctorID, p.date
}

// Offers reports whether slot is among the current options.
func (p *SlotPicker) Offers(slot string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.slots {
		if s == slot {
			return true
		}
	}
	return false
}

// Reset clears the selection and drops any fetch in flight.
func (p *SlotPicker) Reset() {
	p.mu.Lock()
	p.gen++
	p.doctorID = 0
	p.date = ""
	p.slots = nil
	p.status = SlotsPlaceholder
	p.mu.Unlock()
}
