package services

import (
	"context"
	"testing"

	"github.com/lucasfalb/aijarvis-system/internal/models"
)

func TestDashboardStats(t *testing.T) {
	db := newTestDB(t)
	svc := NewDashboardService(db, NewAuthorizer(db))
	alice := createUser(t, db, "u1", "alice@example.com")
	bob := createUser(t, db, "u2", "bob@example.com")

	p1 := createProject(t, db, "Alpha", map[string]models.Role{alice.ID: models.RoleAdmin})
	p2 := createProject(t, db, "Beta", map[string]models.Role{alice.ID: models.RoleViewer})
	hidden := createProject(t, db, "Hidden", map[string]models.Role{bob.ID: models.RoleAdmin})

	m1 := createMonitor(t, db, p1.ID)
	createMonitor(t, db, p2.ID)
	mh := createMonitor(t, db, hidden.ID)

	createComment(t, db, m1.ID, models.CommentStatusPending)
	createComment(t, db, m1.ID, models.CommentStatusPending)
	responded := createComment(t, db, m1.ID, models.CommentStatusResponded)
	createComment(t, db, m1.ID, models.CommentStatusRejected)
	createComment(t, db, mh.ID, models.CommentStatusPending)

	db.Create(&models.Reply{CommentID: responded.ID, Content: "thanks", ReviewedBy: alice.ID})

	resp, err := svc.GetStats(context.Background(), alice, &DashboardStatsRequest{})
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}

	want := DashboardStats{Projects: 2, Monitors: 2, PendingComments: 2, RespondedComments: 1, RejectedComments: 1, RepliesSent: 1}
	if resp.Stats != want {
		t.Errorf("Stats = %+v, expected %+v", resp.Stats, want)
	}
	if len(resp.ProjectStats) != 2 || resp.ProjectStats[0].ProjectName != "Alpha" {
		t.Fatalf("ProjectStats = %+v", resp.ProjectStats)
	}
	if resp.ProjectStats[0].Pending != 2 || resp.ProjectStats[1].Pending != 0 {
		t.Errorf("per project pending = %d / %d", resp.ProjectStats[0].Pending, resp.ProjectStats[1].Pending)
	}

	_, err = svc.GetStats(context.Background(), alice, &DashboardStatsRequest{StartDate: "yesterday"})
	assertKind(t, err, ErrValidation)
}

func TestDashboardStats_NoProjects(t *testing.T) {
	db := newTestDB(t)
	svc := NewDashboardService(db, NewAuthorizer(db))
	loner := createUser(t, db, "u1", "loner@example.com")

	resp, err := svc.GetStats(context.Background(), loner, &DashboardStatsRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Stats != (DashboardStats{}) || len(resp.ProjectStats) != 0 {
		t.Errorf("expected empty dashboard, got %+v", resp)
	}
}
