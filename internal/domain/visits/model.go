package visits

// VisitType is the reason for a visit.
type VisitType string

const (
	TypeConsultation VisitType = "Consultation"
	TypeFollowUp     VisitType = "Follow_up"
	TypeEmergency    VisitType = "Emergency"
)

// VisitTypes lists the types offered by booking forms, in display order.
var VisitTypes = []VisitType{TypeConsultation, TypeFollowUp, TypeEmergency}

// Label renders t for pickers.
func (t VisitType) Label() string {
	if t == TypeFollowUp {
		return "Follow Up"
	}
	return string(t)
}

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

var Genders = []Gender{GenderMale, GenderFemale}

// Visit is a booked appointment as listed by the schedule endpoints. Which
// name fields are filled depends on the endpoint.
type Visit struct {
	VisitID     int       `json:"visit_id"`
	DoctorID    int       `json:"doctor_id,omitempty"`
	DoctorName  string    `json:"doctor_name,omitempty"`
	PatientName string    `json:"patient_name,omitempty"`
	VisitDate   string    `json:"visit_date"`
	TimeSlot    string    `json:"time_slot"`
	Gender      Gender    `json:"gender,omitempty"`
	VisitType   VisitType `json:"visit_type"`
	Notes       string    `json:"notes,omitempty"`
}

// BookingInput is an authenticated booking. Force books a crowded slot
// anyway.
type BookingInput struct {
	DoctorID  int       `json:"doctor_id" validate:"gt=0"`
	VisitDate string    `json:"visit_date" validate:"required,isodate"`
	TimeSlot  string    `json:"time_slot" validate:"required,clock"`
	Gender    Gender    `json:"gender" validate:"required,oneof=Male Female"`
	VisitType VisitType `json:"visit_type" validate:"required,oneof=Consultation Follow_up Emergency"`
	Force     bool      `json:"force,omitempty"`
}

// Booking statuses returned by POST /visits.
const (
	StatusConfirmed = "Confirmed"
	StatusCrowded   = "Crowded"
)

// BookingResult is the reply to a booking. A crowded slot is not booked:
// VisitID is 0 and Message carries suggested times.
type BookingResult struct {
	VisitID int    `json:"visit_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Crowded reports whether the booking was refused for load.
func (r BookingResult) Crowded() bool {
	return r.Status == StatusCrowded
}

type notesUpdate struct {
	Notes string `json:"notes"`
}

type slotList struct {
	Slots []string `json:"slots"`
}
