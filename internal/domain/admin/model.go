package admin

import (
	"fmt"
	"strconv"

	"github.com/polyclinic/clinicdesk/internal/platform/session"
)

// Doctor is a row of the doctor directory.
type Doctor struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
}

// Label renders the doctor as shown in pickers.
func (d Doctor) Label() string {
	return fmt.Sprintf("%s (%s)", d.Name, d.Specialization)
}

// DoctorCreate creates a doctor account together with its profile.
type DoctorCreate struct {
	Name           string `json:"name" validate:"required"`
	Username       string `json:"username" validate:"required"`
	Password       string `json:"password" validate:"required"`
	Specialization string `json:"specialization" validate:"required"`
}

// Staff is a receptionist account.
type Staff struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UserCreate creates a non-doctor account.
type UserCreate struct {
	Username string       `json:"username" validate:"required"`
	Password string       `json:"password" validate:"required"`
	Role     session.Role `json:"role" validate:"required"`
}

// Stats is the dashboard payload. The backend fills only the fields that
// belong to the caller's role.
type Stats struct {
	TotalDoctors  int `json:"total_doctors"`
	TotalStaff    int `json:"total_staff"`
	TotalPatients int `json:"total_patients"`
	TotalVisits   int `json:"total_visits"`

	TodayAppointments    int    `json:"today_appointments"`
	UpcomingAppointments int    `json:"upcoming_appointments"`
	NextAppointment      string `json:"next_appointment"`

	TodayTotalVisits int `json:"today_total_visits"`
	UpcomingVisits   int `json:"upcoming_visits"`

	NextVisit  string `json:"next_visit"`
	NextDoctor string `json:"next_doctor"`
}

// Card is one dashboard tile.
type Card struct {
	Label  string
	Value  string
	Detail string
}

// Cards lays out stats for role.
func Cards(role session.Role, s Stats) []Card {
	itoa := strconv.Itoa
	switch role {
	case session.RoleSeniorAdmin:
		return []Card{
			{Label: "Total Doctors", Value: itoa(s.TotalDoctors)},
			{Label: "Receptionists", Value: itoa(s.TotalStaff)},
			{Label: "Total Patients", Value: itoa(s.TotalPatients)},
			{Label: "Total Appts (All Time)", Value: itoa(s.TotalVisits)},
			{Label: "Export Data", Value: "Download CSV", Detail: "clinicdesk export"},
		}
	case session.RoleDoctor:
		next := s.NextAppointment
		if next == "" {
			next = "None"
		}
		return []Card{
			{Label: "Appointments Today", Value: itoa(s.TodayAppointments)},
			{Label: "Upcoming Appointments", Value: itoa(s.UpcomingAppointments)},
			{Label: "Next Appointment", Value: next},
		}
	case session.RoleReceptionist:
		return []Card{
			{Label: "Today's Visits", Value: itoa(s.TodayTotalVisits)},
			{Label: "Upcoming Visits (Total)", Value: itoa(s.UpcomingVisits)},
		}
	case session.RoleCustomer:
		c := Card{Label: "Next Appointment", Value: s.NextVisit}
		if c.Value == "" {
			c.Value = "No upcoming visits"
		}
		if s.NextDoctor != "" {
			c.Detail = "with " + s.NextDoctor
		}
		return []Card{c}
	}
	return nil
}
