package availability

// Default opening window for a weekday without a rule.
const (
	DefaultStart = "08:00"
	DefaultEnd   = "22:00"
)

// MaxPatientsPerSlot is the capacity sent with self-service rules.
const MaxPatientsPerSlot = 10

// WeeklyRule is a recurring working window. DayOfWeek is 0 for Monday.
type WeeklyRule struct {
	ID                 int    `json:"id"`
	DoctorID           int    `json:"doctor_id,omitempty"`
	DayOfWeek          int    `json:"day_of_week"`
	StartTime          string `json:"start_time"`
	EndTime            string `json:"end_time"`
	MaxPatientsPerSlot int    `json:"max_patients_per_slot"`
}

type ExceptionStatus string

const (
	StatusCancelled ExceptionStatus = "Cancelled"
	StatusAdded     ExceptionStatus = "Added"
	StatusUpdated   ExceptionStatus = "Updated"
)

// Exception overrides the weekly rules for one date.
type Exception struct {
	ID            int             `json:"id,omitempty"`
	DoctorID      int             `json:"doctor_id,omitempty"`
	ExceptionDate string          `json:"exception_date"`
	Status        ExceptionStatus `json:"status"`
	StartTime     *string         `json:"start_time,omitempty"`
	EndTime       *string         `json:"end_time,omitempty"`
}

// Availability is a doctor's full rule set.
type Availability struct {
	Weekly     []WeeklyRule `json:"weekly"`
	Exceptions []Exception  `json:"exceptions"`
}

// RuleInput adds a weekly window. Times are sent as HH:MM:SS.
type RuleInput struct {
	DayOfWeek          int    `json:"day_of_week" validate:"gte=0,lte=6"`
	StartTime          string `json:"start_time" validate:"required,clock"`
	EndTime            string `json:"end_time" validate:"required,clock"`
	MaxPatientsPerSlot int    `json:"max_patients_per_slot" validate:"gt=0"`
}

// ExceptionInput sets a date override.
type ExceptionInput struct {
	ExceptionDate string          `json:"exception_date" validate:"required,isodate"`
	Status        ExceptionStatus `json:"status" validate:"required,oneof=Cancelled Added Updated"`
	StartTime     *string         `json:"start_time,omitempty" validate:"omitempty,clock"`
	EndTime       *string         `json:"end_time,omitempty" validate:"omitempty,clock"`
}

var dayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// DayName returns the name for a Monday-first index.
func DayName(day int) string {
	if day < 0 || day > 6 {
		return ""
	}
	return dayNames[day]
}
