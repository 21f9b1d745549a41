package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/lucasfalb/aijarvis-system/internal/config"
	"github.com/lucasfalb/aijarvis-system/internal/models"
	"gorm.io/gorm"
)

func newMonitorService(t *testing.T) (*MonitorService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	cfg := config.DefaultConfig()
	cfg.App.BaseURL = "https://dash.example.com"
	cfg.Automation.WebhookURL = "https://automation.example.com/hook"
	return NewMonitorService(db, cfg, NewAuthorizer(db), NewActivityLogService(db)), db
}

func TestMonitorCreate_MissingFields(t *testing.T) {
	svc, db := newMonitorService(t)
	admin := createUser(t, db, "u-admin", "admin@example.com")
	project := createProject(t, db, "P", map[string]models.Role{admin.ID: models.RoleAdmin})

	valid := CreateMonitorRequest{Name: "acme", AccessToken: "tok", ProjectID: project.ID, Platform: "instagram"}
	tests := []struct {
		name   string
		mutate func(r *CreateMonitorRequest)
	}{
		{"no name", func(r *CreateMonitorRequest) { r.Name = "" }},
		{"blank name", func(r *CreateMonitorRequest) { r.Name = "   " }},
		{"no access token", func(r *CreateMonitorRequest) { r.AccessToken = "" }},
		{"no project", func(r *CreateMonitorRequest) { r.ProjectID = 0 }},
		{"no platform", func(r *CreateMonitorRequest) { r.Platform = "" }},
		{"unknown platform", func(r *CreateMonitorRequest) { r.Platform = "myspace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := svc.Create(context.Background(), admin, &req)
			assertKind(t, err, ErrValidation)
			if n := countRows(t, db, &models.Monitor{}); n != 0 {
				t.Errorf("expected no monitors persisted, got %d", n)
			}
		})
	}
}

func TestMonitorCreate_NonAdminDenied(t *testing.T) {
	svc, db := newMonitorService(t)
	admin := createUser(t, db, "u-admin", "admin@example.com")
	mod := createUser(t, db, "u-mod", "mod@example.com")
	viewer := createUser(t, db, "u-view", "view@example.com")
	outsider := createUser(t, db, "u-out", "out@example.com")
	project := createProject(t, db, "P", map[string]models.Role{
		admin.ID:  models.RoleAdmin,
		mod.ID:    models.RoleModerator,
		viewer.ID: models.RoleViewer,
	})

	for _, actor := range []Actor{mod, viewer, outsider} {
		t.Run(actor.ID, func(t *testing.T) {
			_, err := svc.Create(context.Background(), actor, &CreateMonitorRequest{
				Name: "acme", AccessToken: "tok", ProjectID: project.ID, Platform: "facebook",
			})
			assertKind(t, err, ErrPermission)
			if err.Error() != "Only admins can create monitors." {
				t.Errorf("message = %q", err.Error())
			}
			if n := countRows(t, db, &models.Monitor{}); n != 0 {
				t.Errorf("expected no monitors persisted, got %d", n)
			}
		})
	}
}

func TestMonitorCreate_WebhookReceiveRoundTrip(t *testing.T) {
	svc, db := newMonitorService(t)
	admin := createUser(t, db, "u-admin", "admin@example.com")
	project := createProject(t, db, "P", map[string]models.Role{admin.ID: models.RoleAdmin})

	for i := 0; i < 3; i++ {
		monitor, err := svc.Create(context.Background(), admin, &CreateMonitorRequest{
			Name: fmt.Sprintf("acct-%d", i), AccessToken: "tok", ProjectID: project.ID, Platform: "Instagram",
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		want := fmt.Sprintf("https://dash.example.com/api/webhook/%d", monitor.ID)
		if monitor.WebhookReceive != want {
			t.Errorf("WebhookReceive = %q, expected %q", monitor.WebhookReceive, want)
		}

		var stored models.Monitor
		if err := db.First(&stored, monitor.ID).Error; err != nil {
			t.Fatal(err)
		}
		if stored.WebhookReceive != want {
			t.Errorf("stored WebhookReceive = %q, expected %q", stored.WebhookReceive, want)
		}
		if stored.Platform != models.PlatformInstagram {
			t.Errorf("Platform = %q, expected normalized instagram", stored.Platform)
		}
		if stored.WebhookSend != "https://automation.example.com/hook" {
			t.Errorf("WebhookSend = %q", stored.WebhookSend)
		}
		if stored.WebhookToken == "" {
			t.Error("expected a generated verify token")
		}
	}
}

func TestMonitorCreate_KeepsProvidedVerifyToken(t *testing.T) {
	svc, db := newMonitorService(t)
	admin := createUser(t, db, "u-admin", "admin@example.com")
	project := createProject(t, db, "P", map[string]models.Role{admin.ID: models.RoleAdmin})

	monitor, err := svc.Create(context.Background(), admin, &CreateMonitorRequest{
		Name: "acme", AccessToken: "tok", ProjectID: project.ID, Platform: "facebook", WebhookToken: " mine ",
	})
	if err != nil {
		t.Fatal(err)
	}
	if monitor.WebhookToken != "mine" {
		t.Errorf("WebhookToken = %q, expected mine", monitor.WebhookToken)
	}
}

func TestMonitorUpdate(t *testing.T) {
	svc, db := newMonitorService(t)
	admin := createUser(t, db, "u-admin", "admin@example.com")
	mod := createUser(t, db, "u-mod", "mod@example.com")
	project := createProject(t, db, "P", map[string]models.Role{admin.ID: models.RoleAdmin, mod.ID: models.RoleModerator})
	monitor := createMonitor(t, db, project.ID)

	status := models.MonitorStatusInactive
	_, err := svc.Update(context.Background(), mod, monitor.ID, &UpdateMonitorRequest{Status: &status})
	assertKind(t, err, ErrPermission)

	bad := "paused"
	_, err = svc.Update(context.Background(), admin, monitor.ID, &UpdateMonitorRequest{Status: &bad})
	assertKind(t, err, ErrValidation)

	empty := " "
	_, err = svc.Update(context.Background(), admin, monitor.ID, &UpdateMonitorRequest{AccessToken: &empty})
	assertKind(t, err, ErrValidation)

	name := "renamed"
	updated, err := svc.Update(context.Background(), admin, monitor.ID, &UpdateMonitorRequest{Name: &name, Status: &status})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.AccountName != "renamed" || updated.Status != models.MonitorStatusInactive {
		t.Errorf("got name=%q status=%q", updated.AccountName, updated.Status)
	}
	if updated.AccessToken != "ig-token" {
		t.Error("fields not in the request must be left alone")
	}
}

func TestMonitorDelete_CascadesComments(t *testing.T) {
	svc, db := newMonitorService(t)
	admin := createUser(t, db, "u-admin", "admin@example.com")
	project := createProject(t, db, "P", map[string]models.Role{admin.ID: models.RoleAdmin})
	monitor := createMonitor(t, db, project.ID)
	createComment(t, db, monitor.ID, models.CommentStatusPending)

	if err := svc.Delete(context.Background(), admin, monitor.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n := countRows(t, db, &models.Comment{}); n != 0 {
		t.Errorf("expected comments removed with the monitor, %d left", n)
	}

	err := svc.Delete(context.Background(), admin, monitor.ID)
	assertKind(t, err, ErrNotFound)
}

func TestMonitorListAndGet(t *testing.T) {
	svc, db := newMonitorService(t)
	viewer := createUser(t, db, "u-view", "view@example.com")
	outsider := createUser(t, db, "u-out", "out@example.com")
	project := createProject(t, db, "P", map[string]models.Role{viewer.ID: models.RoleViewer})
	m1 := createMonitor(t, db, project.ID)
	m2 := createMonitor(t, db, project.ID)
	createComment(t, db, m1.ID, models.CommentStatusPending)
	createComment(t, db, m1.ID, models.CommentStatusPending)
	createComment(t, db, m1.ID, models.CommentStatusResponded)

	monitors, err := svc.List(context.Background(), viewer, project.ID, nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(monitors) != 2 {
		t.Fatalf("expected 2 monitors, got %d", len(monitors))
	}
	pending := map[uint]int64{}
	for _, m := range monitors {
		pending[m.ID] = m.PendingCount
	}
	if pending[m1.ID] != 2 || pending[m2.ID] != 0 {
		t.Errorf("pending counts = %v", pending)
	}

	got, err := svc.Get(context.Background(), viewer, m1.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.PendingCount != 2 {
		t.Errorf("PendingCount = %d, expected 2", got.PendingCount)
	}

	_, err = svc.List(context.Background(), outsider, project.ID, nil)
	assertKind(t, err, ErrPermission)
	_, err = svc.Get(context.Background(), outsider, m1.ID)
	assertKind(t, err, ErrPermission)
}
