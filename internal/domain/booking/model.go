// Package booking implements the signed-out flows: booking an appointment as
// a guest and cancelling a guest booking, both gated by an emailed one-time
// code.
package booking

import "github.com/polyclinic/clinicdesk/internal/domain/visits"

// State is a step of a guest wizard.
type State string

const (
	StateLanding         State = "landing"
	StateSelectingSlot   State = "selecting_slot"
	StateEnteringContact State = "entering_contact"
	StateAwaitingOTP     State = "awaiting_otp"
	StateConfirmed       State = "confirmed"

	StateIdentifyBooking State = "identify_booking"
	StateCancelled       State = "cancelled"
)

// Draft is the guest booking being assembled. It lives only in memory and is
// submitted once, together with the code.
type Draft struct {
	DoctorID   int              `json:"doctor_id" validate:"gt=0"`
	VisitDate  string           `json:"visit_date" validate:"required,isodate"`
	TimeSlot   string           `json:"time_slot" validate:"required,clock"`
	Gender     visits.Gender    `json:"gender" validate:"required,oneof=Male Female"`
	VisitType  visits.VisitType `json:"visit_type" validate:"required,oneof=Consultation Follow_up Emergency"`
	GuestName  string           `json:"guest_name" validate:"required"`
	GuestEmail string           `json:"guest_email" validate:"required,email"`
	GuestPhone string           `json:"guest_phone,omitempty"`
	OTPCode    string           `json:"otp_code" validate:"required"`
}

// Confirmation is the reply to a guest booking.
type Confirmation struct {
	Message string `json:"message"`
	VisitID int    `json:"visit_id"`
}

// CancelRequest identifies a guest booking. OTPCode is empty when asking for
// the code.
type CancelRequest struct {
	VisitID int    `json:"visit_id"`
	Email   string `json:"email"`
	OTPCode string `json:"otp_code,omitempty"`
}

type otpRequest struct {
	Email string `json:"email"`
}

type messageReply struct {
	Message string `json:"message"`
}
