package router

import (
	"fmt"

	"github.com/polyclinic/clinicdesk/internal/platform/session"
	"github.com/polyclinic/clinicdesk/internal/ui"
)

// View names.
const (
	ViewHome               = "home"
	ViewDoctors            = "doctors"
	ViewStaff              = "staff"
	ViewBook               = "book"
	ViewMySchedule         = "my-schedule"
	ViewDoctorAvailability = "doctor-availability"
	ViewAllSchedule        = "all-schedule"
	ViewCheckAvailability  = "check-availability"
	ViewMessages           = "msgs"
)

var (
	admins        = []session.Role{session.RoleSeniorAdmin}
	bookers       = []session.Role{session.RoleSeniorAdmin, session.RoleReceptionist, session.RoleCustomer}
	frontDesk     = []session.Role{session.RoleSeniorAdmin, session.RoleReceptionist}
	doctors       = []session.Role{session.RoleDoctor}
	ownSchedule   = []session.Role{session.RoleDoctor, session.RoleCustomer}
	messageRoles  = []session.Role{session.RoleSeniorAdmin, session.RoleReceptionist, session.RoleDoctor}
	everyoneRoles = []session.Role{session.RoleSeniorAdmin, session.RoleReceptionist, session.RoleDoctor, session.RoleCustomer}
)

// access lists the roles allowed to open each view.
var access = map[string][]session.Role{
	ViewHome:               everyoneRoles,
	ViewDoctors:            admins,
	ViewStaff:              admins,
	ViewBook:               bookers,
	ViewAllSchedule:        frontDesk,
	ViewCheckAvailability:  frontDesk,
	ViewDoctorAvailability: doctors,
	ViewMySchedule:         ownSchedule,
	ViewMessages:           messageRoles,
}

// Allowed reports whether role may open view.
func Allowed(view string, role session.Role) bool {
	roles, ok := access[view]
	if !ok {
		return false
	}
	return role.In(roles...)
}

var labels = map[string]string{
	ViewHome:               "Dashboard",
	ViewDoctors:            "Manage Doctors",
	ViewStaff:              "Manage Staff",
	ViewBook:               "Book Appointment",
	ViewAllSchedule:        "Master Schedule",
	ViewCheckAvailability:  "Check Availability",
	ViewDoctorAvailability: "Manage Availability",
	ViewMySchedule:         "My Appointments",
	ViewMessages:           "Messages",
}

var navOrder = map[session.Role][]string{
	session.RoleSeniorAdmin:  {ViewHome, ViewDoctors, ViewStaff, ViewBook, ViewAllSchedule, ViewCheckAvailability, ViewMessages},
	session.RoleReceptionist: {ViewHome, ViewBook, ViewAllSchedule, ViewCheckAvailability, ViewMessages},
	session.RoleDoctor:       {ViewHome, ViewMySchedule, ViewDoctorAvailability, ViewMessages},
	session.RoleCustomer:     {ViewHome, ViewBook, ViewMySchedule},
}

// NavFor returns the sidebar entries for role.
func NavFor(role session.Role) []ui.NavItem {
	views := navOrder[role]
	items := make([]ui.NavItem, 0, len(views))
	for _, v := range views {
		items = append(items, ui.NavItem{View: v, Label: labels[v]})
	}
	return items
}

// Header renders the dashboard header for sess.
func Header(sess session.Session) string {
	name := sess.Username
	if name == "" {
		name = "User"
	}
	return fmt.Sprintf("%s Panel\nLogged in as: %s", sess.Role, name)
}

// LandingText is the signed-out screen.
const LandingText = `Polyclinic Center
=================
  Book an appointment     clinicdesk book
  Manage my booking       clinicdesk cancel-booking
  Staff login             clinicdesk login
  Forgot password         clinicdesk forgot-password
`
