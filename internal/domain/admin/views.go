package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/polyclinic/clinicdesk/internal/router"
	"github.com/polyclinic/clinicdesk/internal/ui"
)

// HomeView is the role dashboard.
type HomeView struct {
	svc      *Service
	sessions router.SessionSource
}

func NewHomeView(svc *Service, sessions router.SessionSource) *HomeView {
	return &HomeView{svc: svc, sessions: sessions}
}

func (v *HomeView) Name() string { return router.ViewHome }

func (v *HomeView) Load(ctx context.Context, scr *ui.Screen) error {
	sess := v.sessions.Current()
	stats, err := v.svc.Stats(ctx)
	if err != nil {
		return router.Failed("Error loading dashboard.", err)
	}

	who := sess.Username
	if who == "" {
		who = string(sess.Role)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Welcome, %s\n\n", who)
	for _, c := range Cards(sess.Role, *stats) {
		fmt.Fprintf(&b, "  %-24s %s\n", c.Label, c.Value)
		if c.Detail != "" {
			fmt.Fprintf(&b, "  %-24s %s\n", "", c.Detail)
		}
	}
	scr.SetContent(b.String())
	return nil
}

// Export downloads the bookings CSV into dir, toasting the outcome on scr.
func (v *HomeView) Export(ctx context.Context, scr *ui.Screen, dir string) (string, error) {
	path, err := v.svc.Export(ctx, dir)
	if err != nil {
		scr.Toast(ui.KindError, "Export Failed")
		return "", err
	}
	scr.Toast(ui.KindSuccess, "Exported to "+path)
	return path, nil
}

// DoctorsView lists doctors and handles create and remove.
type DoctorsView struct {
	svc *Service
	r   *router.Router
}

func NewDoctorsView(svc *Service, r *router.Router) *DoctorsView {
	return &DoctorsView{svc: svc, r: r}
}

func (v *DoctorsView) Name() string { return router.ViewDoctors }

func (v *DoctorsView) Load(ctx context.Context, scr *ui.Screen) error {
	docs, err := v.svc.Doctors(ctx)
	if err != nil {
		return router.Failed("Error loading doctors", err)
	}
	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, []string{d.Name, d.Specialization, "remove " + strconv.Itoa(d.ID)})
	}
	scr.SetContent(ui.Section("Manage Doctors",
		"Add New Doctor: clinicdesk doctors add --name --username --password --specialization\n",
		ui.Table([]string{"Name", "Specialization", "Action"}, rows, "No doctors found"),
	))
	return nil
}

func (v *DoctorsView) Create(ctx context.Context, d DoctorCreate) error {
	return v.r.Mutate(ctx, "Doctor Created!", func(ctx context.Context) error {
		return v.svc.CreateDoctor(ctx, d)
	})
}

// Remove deletes a doctor after confirmation. The backend cancels all of the
// doctor's appointments.
func (v *DoctorsView) Remove(ctx context.Context, id int) (bool, error) {
	return v.r.Destroy(ctx,
		"Are you sure you want to remove this Doctor? This will cancel all their appointments.",
		"Doctor Removed",
		func(ctx context.Context) error {
			if err := v.svc.RemoveDoctor(ctx, id); err != nil {
				return router.Failed("Error removing doctor", err)
			}
			return nil
		})
}

// StaffView lists receptionists and handles create and remove.
type StaffView struct {
	svc *Service
	r   *router.Router
}

func NewStaffView(svc *Service, r *router.Router) *StaffView {
	return &StaffView{svc: svc, r: r}
}

func (v *StaffView) Name() string { return router.ViewStaff }

func (v *StaffView) Load(ctx context.Context, scr *ui.Screen) error {
	staff, err := v.svc.Staff(ctx)
	if err != nil {
		return router.Failed("Error loading staff", err)
	}
	rows := make([][]string, 0, len(staff))
	for _, s := range staff {
		rows = append(rows, []string{strconv.Itoa(s.ID), s.Username, "remove " + strconv.Itoa(s.ID)})
	}
	scr.SetContent(ui.Section("Manage Staff",
		"Add Receptionist: clinicdesk staff add --username --password\n",
		ui.Table([]string{"ID", "Username", "Action"}, rows, "No receptionists found"),
	))
	return nil
}

func (v *StaffView) Create(ctx context.Context, username, password string) error {
	return v.r.Mutate(ctx, "Receptionist Created!", func(ctx context.Context) error {
		return v.svc.CreateReceptionist(ctx, username, password)
	})
}

func (v *StaffView) Remove(ctx context.Context, id int) (bool, error) {
	return v.r.Destroy(ctx,
		"Are you sure you want to remove this staff member?",
		"Staff Removed",
		func(ctx context.Context) error {
			if err := v.svc.RemoveStaff(ctx, id); err != nil {
				return router.Failed("Error removing staff", err)
			}
			return nil
		})
}
