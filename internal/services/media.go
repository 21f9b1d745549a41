package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/lucasfalb/aijarvis-system/internal/models"
	"github.com/lucasfalb/aijarvis-system/pkg/logger"
	"golang.org/x/sync/singleflight"
)

const mediaFields = "id,media_type,media_url,thumbnail_url,permalink,timestamp"

// MediaInfo is the subset of Graph API media fields the dashboard shows.
type MediaInfo struct {
	ID           string `json:"id"`
	MediaType    string `json:"media_type"`
	MediaURL     string `json:"media_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Permalink    string `json:"permalink"`
	Timestamp    string `json:"timestamp"`
}

// MediaFetcher loads media metadata from a platform.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, platform, mediaID, accessToken string) (*MediaInfo, error)
}

// GraphClient talks to graph.instagram.com and graph.facebook.com.
type GraphClient struct {
	client        *http.Client
	instagramBase string
	facebookBase  string
}

func NewGraphClient(instagramBase, facebookBase string, timeout time.Duration) *GraphClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GraphClient{
		client:        &http.Client{Timeout: timeout},
		instagramBase: strings.TrimSuffix(instagramBase, "/"),
		facebookBase:  strings.TrimSuffix(facebookBase, "/"),
	}
}

func (g *GraphClient) FetchMedia(ctx context.Context, platform, mediaID, accessToken string) (*MediaInfo, error) {
	base := g.instagramBase
	if platform == models.PlatformFacebook {
		base = g.facebookBase
	}

	q := url.Values{}
	q.Set("fields", mediaFields)
	q.Set("access_token", accessToken)
	endpoint := base + "/" + url.PathEscape(mediaID) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("graph api returned status %d: %s", resp.StatusCode, string(body))
	}

	var info MediaInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode media: %w", err)
	}
	return &info, nil
}

type mediaEntry struct {
	info      *MediaInfo
	expiresAt time.Time
}

// MediaCache is a bounded TTL cache in front of a MediaFetcher.
// Concurrent misses for the same key share one upstream call and errors
// are never cached.
type MediaCache struct {
	fetcher    MediaFetcher
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]mediaEntry
	group   singleflight.Group
}

func NewMediaCache(fetcher MediaFetcher, ttl time.Duration, maxEntries int) *MediaCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MediaCache{
		fetcher:    fetcher,
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		entries:    make(map[string]mediaEntry),
	}
}

func mediaKey(platform, mediaID, accessToken string) string {
	return platform + "\x00" + mediaID + "\x00" + accessToken
}

func (c *MediaCache) Get(ctx context.Context, platform, mediaID, accessToken string) (*MediaInfo, error) {
	key := mediaKey(platform, mediaID, accessToken)
	if info, ok := c.lookup(key); ok {
		return info, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if info, ok := c.lookup(key); ok {
			return info, nil
		}
		// Detached so one caller giving up does not fail the others.
		info, err := c.fetcher.FetchMedia(context.WithoutCancel(ctx), platform, mediaID, accessToken)
		if err != nil {
			return nil, err
		}
		c.store(key, info)
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*MediaInfo), nil
}

func (c *MediaCache) lookup(key string) (*MediaInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.info, true
}

func (c *MediaCache) store(key string, info *MediaInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.sweepLocked(now)
		if len(c.entries) >= c.maxEntries {
			c.evictOldestLocked()
		}
	}
	c.entries[key] = mediaEntry{info: info, expiresAt: now.Add(c.ttl)}
}

// Sweep drops expired entries and returns how many were removed.
func (c *MediaCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

func (c *MediaCache) sweepLocked(now time.Time) int {
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func (c *MediaCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.expiresAt.Before(oldest) {
			oldestKey, oldest = k, e.expiresAt
		}
	}
	delete(c.entries, oldestKey)
}

func (c *MediaCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// MediaService resolves the media a comment was left on.
type MediaService struct {
	comments *CommentService
	cache    *MediaCache
}

func NewMediaService(comments *CommentService, cache *MediaCache) *MediaService {
	return &MediaService{comments: comments, cache: cache}
}

func (s *MediaService) ForComment(ctx context.Context, actor Actor, commentID uint) (*MediaInfo, error) {
	comment, monitor, err := s.comments.load(ctx, actor, commentID, models.ActionViewProject)
	if err != nil {
		return nil, err
	}
	if comment.MediaID == "" {
		return nil, notFoundError("Comment has no media.")
	}

	info, err := s.cache.Get(ctx, monitor.Platform, comment.MediaID, monitor.AccessToken)
	if err != nil {
		logger.Warn().Err(err).Uint("comment_id", commentID).Str("media_id", comment.MediaID).Msg("media lookup failed")
		return nil, deliveryError("Failed to fetch media", err)
	}
	return info, nil
}
