package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lucasfalb/aijarvis-system/internal/models"
	"gorm.io/gorm"
)

type commentFixture struct {
	db      *gorm.DB
	svc     *CommentService
	admin   Actor
	mod     Actor
	viewer  Actor
	project *models.Project
	monitor *models.Monitor
}

func newCommentFixture(t *testing.T, poster Poster, replyURL string) *commentFixture {
	t.Helper()
	db := newTestDB(t)
	logs := NewActivityLogService(db)
	f := &commentFixture{
		db:     db,
		svc:    NewCommentService(db, NewAuthorizer(db), NewUserService(db, logs), logs, poster, replyURL),
		admin:  createUser(t, db, "u-admin", "admin@example.com"),
		mod:    createUser(t, db, "u-mod", "mod@example.com"),
		viewer: createUser(t, db, "u-view", "view@example.com"),
	}
	f.project = createProject(t, db, "P", map[string]models.Role{
		f.admin.ID:  models.RoleAdmin,
		f.mod.ID:    models.RoleModerator,
		f.viewer.ID: models.RoleViewer,
	})
	f.monitor = createMonitor(t, db, f.project.ID)
	return f
}

func (f *commentFixture) reload(t *testing.T, id uint) models.Comment {
	t.Helper()
	var c models.Comment
	if err := f.db.First(&c, id).Error; err != nil {
		t.Fatal(err)
	}
	return c
}

func TestReply_DownstreamFailureLeavesCommentPending(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	f := newCommentFixture(t, NewAutomationClient(), srv.URL)
	comment := createComment(t, f.db, f.monitor.ID, models.CommentStatusPending)

	_, err := f.svc.Reply(context.Background(), f.mod, comment.ID, "hello")
	assertKind(t, err, ErrDelivery)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected wrapped StatusError 500, got %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("expected exactly one downstream call, got %d", n)
	}

	got := f.reload(t, comment.ID)
	if got.Status != models.CommentStatusPending {
		t.Errorf("Status = %q, expected pending", got.Status)
	}
	if got.GenerateResponse != "" {
		t.Errorf("GenerateResponse = %q, expected unchanged", got.GenerateResponse)
	}
	if n := countRows(t, f.db, &models.Reply{}); n != 0 {
		t.Errorf("expected no Reply rows, got %d", n)
	}
}

func TestReply_SuccessMarksResponded(t *testing.T) {
	var received ReplyEnvelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&received)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f := newCommentFixture(t, NewAutomationClient(WithTimeout(5*time.Second)), srv.URL)
	comment := createComment(t, f.db, f.monitor.ID, models.CommentStatusPending)

	reply, err := f.svc.Reply(context.Background(), f.mod, comment.ID, "  hello ")
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if reply.Content != "hello" || reply.ReviewedBy != f.mod.ID {
		t.Errorf("reply = %+v", reply)
	}

	got := f.reload(t, comment.ID)
	if got.Status != models.CommentStatusResponded {
		t.Errorf("Status = %q, expected responded", got.Status)
	}
	if got.GenerateResponse != "hello" {
		t.Errorf("GenerateResponse = %q, expected hello", got.GenerateResponse)
	}

	if received.RouteFlow != "reply_comment" || received.CommentID != comment.ID {
		t.Errorf("envelope = %+v", received)
	}
	if received.OriginalText != "love it" || received.RepliedText != "hello" {
		t.Errorf("texts = %q / %q", received.OriginalText, received.RepliedText)
	}
	if received.Monitor.AccessToken != "ig-token" || received.User.Email != "mod@example.com" {
		t.Errorf("monitor/user = %+v / %+v", received.Monitor, received.User)
	}

	stored, err := f.svc.GetReply(context.Background(), f.viewer, comment.ID)
	if err != nil {
		t.Fatalf("GetReply() error = %v", err)
	}
	if stored.Reviewer == nil || stored.Reviewer.ID != f.mod.ID {
		t.Errorf("expected reviewer to be preloaded, got %+v", stored.Reviewer)
	}

	_, err = f.svc.Reply(context.Background(), f.mod, comment.ID, "again")
	assertKind(t, err, ErrValidation)
}

func TestReply_Guards(t *testing.T) {
	poster := &fakePoster{}
	f := newCommentFixture(t, poster, "https://automation.example.com/hook")
	comment := createComment(t, f.db, f.monitor.ID, models.CommentStatusPending)

	_, err := f.svc.Reply(context.Background(), f.mod, comment.ID, "   ")
	assertKind(t, err, ErrValidation)

	_, err = f.svc.Reply(context.Background(), f.viewer, comment.ID, "hello")
	assertKind(t, err, ErrPermission)

	_, err = f.svc.Reply(context.Background(), f.mod, 9999, "hello")
	assertKind(t, err, ErrNotFound)

	if n := len(poster.Calls()); n != 0 {
		t.Errorf("expected no downstream calls, got %d", n)
	}

	unconfigured := NewCommentService(f.db, NewAuthorizer(f.db), NewUserService(f.db, NewActivityLogService(f.db)), NewActivityLogService(f.db), poster, "")
	_, err = unconfigured.Reply(context.Background(), f.mod, comment.ID, "hello")
	assertKind(t, err, ErrDelivery)
}

func TestReject(t *testing.T) {
	f := newCommentFixture(t, &fakePoster{}, "")
	comment := createComment(t, f.db, f.monitor.ID, models.CommentStatusPending)

	_, err := f.svc.Reject(context.Background(), f.viewer, comment.ID)
	assertKind(t, err, ErrPermission)

	got, err := f.svc.Reject(context.Background(), f.mod, comment.ID)
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if got.Status != models.CommentStatusRejected {
		t.Errorf("Status = %q", got.Status)
	}

	_, err = f.svc.Reject(context.Background(), f.mod, comment.ID)
	assertKind(t, err, ErrValidation)
}

func TestCommentTags(t *testing.T) {
	f := newCommentFixture(t, &fakePoster{}, "")
	comment := createComment(t, f.db, f.monitor.ID, models.CommentStatusPending)
	other := createComment(t, f.db, f.monitor.ID, models.CommentStatusPending)

	if _, err := f.svc.AddTag(context.Background(), f.mod, comment.ID, "vip"); err != nil {
		t.Fatalf("AddTag() error = %v", err)
	}
	_, err := f.svc.AddTag(context.Background(), f.mod, comment.ID, " vip ")
	assertKind(t, err, ErrConflict)

	_, err = f.svc.AddTag(context.Background(), f.mod, comment.ID, "")
	assertKind(t, err, ErrValidation)

	_, err = f.svc.AddTag(context.Background(), f.viewer, comment.ID, "spam")
	assertKind(t, err, ErrPermission)

	resp, err := f.svc.List(context.Background(), f.viewer, f.monitor.ID, &CommentListRequest{Tag: "vip"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Items[0].ID != comment.ID {
		t.Errorf("tag filter returned %+v", resp)
	}
	if len(resp.Items[0].Tags) != 1 {
		t.Errorf("expected tags preloaded, got %d", len(resp.Items[0].Tags))
	}

	if err := f.svc.RemoveTag(context.Background(), f.mod, comment.ID, "vip"); err != nil {
		t.Fatalf("RemoveTag() error = %v", err)
	}
	assertKind(t, f.svc.RemoveTag(context.Background(), f.mod, comment.ID, "vip"), ErrNotFound)

	tags, err := f.svc.ListTags(context.Background(), f.viewer, other.ID)
	if err != nil || len(tags) != 0 {
		t.Errorf("ListTags() = %v, %v", tags, err)
	}
}

func TestCommentList_FiltersAndPaging(t *testing.T) {
	f := newCommentFixture(t, &fakePoster{}, "")
	outsider := createUser(t, f.db, "u-out", "out@example.com")

	day := func(s string) time.Time {
		tm, _ := time.Parse("2006-01-02 15:04", s)
		return tm
	}
	for i, ts := range []string{"2024-05-01 10:00", "2024-05-02 23:59", "2024-05-03 00:00"} {
		c := createComment(t, f.db, f.monitor.ID, models.CommentStatusPending)
		f.db.Model(c).Update("received_at", day(ts))
		if i == 0 {
			f.db.Model(c).Update("status", models.CommentStatusRejected)
		}
	}

	resp, err := f.svc.List(context.Background(), f.viewer, f.monitor.ID, &CommentListRequest{StartDate: "2024-05-02", EndDate: "2024-05-02"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 {
		t.Errorf("date window total = %d, expected 1", resp.Total)
	}

	resp, err = f.svc.List(context.Background(), f.viewer, f.monitor.ID, &CommentListRequest{Status: models.CommentStatusPending})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Errorf("pending total = %d, expected 2", resp.Total)
	}

	resp, err = f.svc.List(context.Background(), f.viewer, f.monitor.ID, &CommentListRequest{ListRequest: ListRequest{Page: 2, PageSize: 2}})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 3 || len(resp.Items) != 1 {
		t.Errorf("page 2 = total %d items %d", resp.Total, len(resp.Items))
	}

	_, err = f.svc.List(context.Background(), f.viewer, f.monitor.ID, &CommentListRequest{StartDate: "05/02/2024"})
	assertKind(t, err, ErrValidation)

	_, err = f.svc.List(context.Background(), outsider, f.monitor.ID, &CommentListRequest{})
	assertKind(t, err, ErrPermission)

	mine, err := f.svc.ListMine(context.Background(), outsider, &CommentListRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if mine.Total != 0 || len(mine.Items) != 0 {
		t.Errorf("outsider sees %d comments", mine.Total)
	}

	mine, err = f.svc.ListMine(context.Background(), f.viewer, &CommentListRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if mine.Total != 3 || mine.Items[0].Monitor == nil {
		t.Errorf("ListMine = total %d, monitor preloaded %v", mine.Total, len(mine.Items) > 0 && mine.Items[0].Monitor != nil)
	}
}

func TestCommentDelete(t *testing.T) {
	f := newCommentFixture(t, &fakePoster{}, "")
	comment := createComment(t, f.db, f.monitor.ID, models.CommentStatusPending)

	assertKind(t, f.svc.Delete(context.Background(), f.viewer, comment.ID), ErrPermission)
	if err := f.svc.Delete(context.Background(), f.mod, comment.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, err := f.svc.Get(context.Background(), f.mod, comment.ID)
	assertKind(t, err, ErrNotFound)
}

func TestCommentListMine_TagFilterStaysInMemberProjects(t *testing.T) {
	f := newCommentFixture(t, &fakePoster{}, "")
	stranger := createUser(t, f.db, "u-stranger", "stranger@example.com")
	foreign := createProject(t, f.db, "Foreign", map[string]models.Role{stranger.ID: models.RoleAdmin})
	foreignMonitor := createMonitor(t, f.db, foreign.ID)

	own := createComment(t, f.db, f.monitor.ID, models.CommentStatusPending)
	untagged := createComment(t, f.db, f.monitor.ID, models.CommentStatusPending)
	hidden := createComment(t, f.db, foreignMonitor.ID, models.CommentStatusPending)
	for _, id := range []uint{own.ID, hidden.ID} {
		f.db.Create(&models.CommentTag{CommentID: id, Tag: "vip", CreatedBy: stranger.ID})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mine, err := f.svc.ListMine(ctx, f.viewer, &CommentListRequest{Tag: "vip"})
	if err != nil {
		t.Fatal(err)
	}
	if mine.Total != 1 || mine.Items[0].ID != own.ID {
		t.Errorf("ListMine(tag=vip) = total %d, expected only comment %d (not %d or %d)", mine.Total, own.ID, untagged.ID, hidden.ID)
	}

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	if _, err := f.svc.ListMine(cancelled, f.viewer, &CommentListRequest{Tag: "vip"}); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}
