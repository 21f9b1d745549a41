package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/lucasfalb/aijarvis-system/internal/config"
	"github.com/lucasfalb/aijarvis-system/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB returns a migrated in-memory database private to the test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, logger.Silent)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, id, email string) Actor {
	t.Helper()
	user := models.User{ID: id, Email: email, FullName: "User " + id}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return Actor{ID: id, Email: email}
}

func createProject(t *testing.T, db *gorm.DB, name string, members map[string]models.Role) *models.Project {
	t.Helper()
	project := models.Project{Name: name, Status: models.ProjectStatusActive}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	for userID, role := range members {
		if err := db.Create(&models.UserProject{ProjectID: project.ID, UserID: userID, Role: role}).Error; err != nil {
			t.Fatalf("add member: %v", err)
		}
	}
	return &project
}

func createMonitor(t *testing.T, db *gorm.DB, projectID uint) *models.Monitor {
	t.Helper()
	monitor := models.Monitor{
		ProjectID:    projectID,
		AccountName:  "acme",
		Platform:     models.PlatformInstagram,
		AccessToken:  "ig-token",
		WebhookToken: "verify-me",
		Status:       models.MonitorStatusActive,
	}
	if err := db.Create(&monitor).Error; err != nil {
		t.Fatalf("create monitor: %v", err)
	}
	return &monitor
}

func createComment(t *testing.T, db *gorm.DB, monitorID uint, status string) *models.Comment {
	t.Helper()
	externalID := uuid.NewString()
	comment := models.Comment{
		MonitorID:  monitorID,
		ExternalID: &externalID,
		Username:   "fan",
		Text:       "love it",
		MediaID:    "m-1",
		Status:     status,
	}
	if err := db.Create(&comment).Error; err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return &comment
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func assertKind(t *testing.T, err, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}

// fakePoster records outbound calls and answers with err.
type fakePoster struct {
	mu    sync.Mutex
	err   error
	body  []byte
	calls []fakeCall
}

type fakeCall struct {
	URL     string
	Payload interface{}
	Fields  map[string]string
	Files   []FormFile
}

func (f *fakePoster) PostJSON(_ context.Context, url string, payload interface{}) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeCall{URL: url, Payload: payload})
	return f.body, f.err
}

func (f *fakePoster) PostMultipart(_ context.Context, url string, fields map[string]string, _ string, files []FormFile) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeCall{URL: url, Fields: fields, Files: files})
	return f.body, f.err
}

func (f *fakePoster) Calls() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}
