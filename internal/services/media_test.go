package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lucasfalb/aijarvis-system/internal/models"
)

type countingFetcher struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (f *countingFetcher) FetchMedia(_ context.Context, platform, mediaID, _ string) (*MediaInfo, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return &MediaInfo{ID: mediaID, MediaType: platform}, nil
}

func TestMediaCache_SharesConcurrentMisses(t *testing.T) {
	fetcher := &countingFetcher{release: make(chan struct{})}
	cache := NewMediaCache(fetcher, time.Minute, 10)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*MediaInfo, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := cache.Get(context.Background(), "instagram", "m1", "tok")
			if err != nil {
				t.Errorf("Get() error = %v", err)
			}
			results[i] = info
		}(i)
	}

	// Let every caller reach the singleflight group before releasing.
	time.Sleep(50 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()

	if n := fetcher.calls.Load(); n != 1 {
		t.Errorf("expected one upstream call, got %d", n)
	}
	for i, r := range results {
		if r == nil || r.ID != "m1" {
			t.Errorf("result %d = %+v", i, r)
		}
	}
}

func TestMediaCache_TTL(t *testing.T) {
	fetcher := &countingFetcher{}
	cache := NewMediaCache(fetcher, time.Minute, 10)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	ctx := context.Background()
	cache.Get(ctx, "instagram", "m1", "tok")
	cache.Get(ctx, "instagram", "m1", "tok")
	if n := fetcher.calls.Load(); n != 1 {
		t.Fatalf("expected cached second call, got %d upstream calls", n)
	}

	cache.Get(ctx, "instagram", "m1", "other-token")
	if n := fetcher.calls.Load(); n != 2 {
		t.Fatalf("token is part of the key, got %d upstream calls", n)
	}

	now = now.Add(2 * time.Minute)
	if removed := cache.Sweep(); removed != 2 {
		t.Errorf("Sweep() removed %d, expected 2", removed)
	}
	cache.Get(ctx, "instagram", "m1", "tok")
	if n := fetcher.calls.Load(); n != 3 {
		t.Errorf("expected refetch after expiry, got %d upstream calls", n)
	}
}

func TestMediaCache_ErrorsNotCached(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("graph down")}
	cache := NewMediaCache(fetcher, time.Minute, 10)

	for i := 0; i < 2; i++ {
		if _, err := cache.Get(context.Background(), "facebook", "m1", "tok"); err == nil {
			t.Fatal("expected error")
		}
	}
	if n := fetcher.calls.Load(); n != 2 {
		t.Errorf("errors must not be cached, got %d upstream calls", n)
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d, expected 0", cache.Len())
	}
}

func TestMediaCache_Bounded(t *testing.T) {
	fetcher := &countingFetcher{}
	cache := NewMediaCache(fetcher, time.Minute, 2)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	for _, id := range []string{"a", "b", "c"} {
		cache.Get(context.Background(), "instagram", id, "tok")
		now = now.Add(time.Second)
	}
	if cache.Len() != 2 {
		t.Fatalf("Len() = %d, expected 2", cache.Len())
	}

	// "a" was the oldest and must have been evicted.
	cache.Get(context.Background(), "instagram", "a", "tok")
	if n := fetcher.calls.Load(); n != 4 {
		t.Errorf("expected refetch of evicted entry, got %d upstream calls", n)
	}
}

func TestGraphClient_FetchMedia(t *testing.T) {
	var gotPath, gotToken, gotFields string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("access_token")
		gotFields = r.URL.Query().Get("fields")
		w.Write([]byte(`{"id":"17890","media_type":"IMAGE","media_url":"https://cdn/x.jpg","permalink":"https://ig/p/x"}`))
	}))
	defer srv.Close()

	client := NewGraphClient(srv.URL, "http://unused.invalid", time.Second)
	info, err := client.FetchMedia(context.Background(), models.PlatformInstagram, "17890", "tok")
	if err != nil {
		t.Fatalf("FetchMedia() error = %v", err)
	}
	if gotPath != "/17890" || gotToken != "tok" || gotFields != mediaFields {
		t.Errorf("request path=%q token=%q fields=%q", gotPath, gotToken, gotFields)
	}
	if info.MediaType != "IMAGE" || info.MediaURL != "https://cdn/x.jpg" {
		t.Errorf("info = %+v", info)
	}
}

func TestGraphClient_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"expired"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewGraphClient("http://unused.invalid", srv.URL, time.Second)
	if _, err := client.FetchMedia(context.Background(), models.PlatformFacebook, "1", "tok"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestMediaService_ForComment(t *testing.T) {
	f := newCommentFixture(t, &fakePoster{}, "")
	fetcher := &countingFetcher{}
	svc := NewMediaService(f.svc, NewMediaCache(fetcher, time.Minute, 10))

	comment := createComment(t, f.db, f.monitor.ID, models.CommentStatusPending)
	info, err := svc.ForComment(context.Background(), f.viewer, comment.ID)
	if err != nil {
		t.Fatalf("ForComment() error = %v", err)
	}
	if info.ID != "m-1" {
		t.Errorf("ID = %q", info.ID)
	}

	f.db.Model(comment).Update("media_id", "")
	_, err = svc.ForComment(context.Background(), f.viewer, comment.ID)
	assertKind(t, err, ErrNotFound)

	fetcher.err = errors.New("graph down")
	f.db.Model(comment).Update("media_id", "m-2")
	_, err = svc.ForComment(context.Background(), f.viewer, comment.ID)
	assertKind(t, err, ErrDelivery)
}
