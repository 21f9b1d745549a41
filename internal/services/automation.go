package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/lucasfalb/aijarvis-system/pkg/logger"
)

// maxResponseBody caps how much of a downstream reply is read back.
const maxResponseBody = 1 << 20

// DeliveryPolicy says what an endpoint does when the downstream call fails.
type DeliveryPolicy string

const (
	// ForwardThenAck forwards synchronously, logs failures and still acks.
	ForwardThenAck DeliveryPolicy = "forward-then-ack"
	// AckThenForward acks immediately and forwards in the background.
	AckThenForward DeliveryPolicy = "ack-then-forward"
	// RequireDelivery surfaces any failure to the caller as ErrDelivery.
	RequireDelivery DeliveryPolicy = "require-delivery"
)

func ParseDeliveryPolicy(s string) (DeliveryPolicy, error) {
	switch p := DeliveryPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case ForwardThenAck, AckThenForward, RequireDelivery:
		return p, nil
	case "":
		return ForwardThenAck, nil
	default:
		return "", fmt.Errorf("unknown delivery policy %q", s)
	}
}

// StatusError is returned when the downstream answers outside 2xx.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook responded with status %d: %s", e.StatusCode, e.Body)
}

// FormFile is one uploaded file forwarded as a multipart part.
type FormFile struct {
	FileName    string
	ContentType string
	Content     io.Reader
}

// Poster sends payloads to the automation service.
type Poster interface {
	PostJSON(ctx context.Context, url string, payload interface{}) ([]byte, error)
	PostMultipart(ctx context.Context, url string, fields map[string]string, fileField string, files []FormFile) ([]byte, error)
}

// AutomationClient is the HTTP client for the external automation
// service. It never retries.
type AutomationClient struct {
	client  *http.Client
	headers map[string]string
}

type AutomationOption func(*AutomationClient)

// WithHTTPClient sends requests through a copy of c, so later options
// never modify the caller's client.
func WithHTTPClient(c *http.Client) AutomationOption {
	return func(a *AutomationClient) {
		if c == nil {
			return
		}
		cp := *c
		a.client = &cp
	}
}

// WithTimeout sets the per-request timeout (default 30s).
func WithTimeout(d time.Duration) AutomationOption {
	return func(a *AutomationClient) {
		if d > 0 {
			a.client.Timeout = d
		}
	}
}

// WithHeader sets a header sent on every request.
func WithHeader(key, value string) AutomationOption {
	return func(a *AutomationClient) {
		if a.headers == nil {
			a.headers = make(map[string]string)
		}
		a.headers[key] = value
	}
}

func NewAutomationClient(opts ...AutomationOption) *AutomationClient {
	a := &AutomationClient{
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// PostJSON posts payload as application/json and returns the response
// body when the status is 2xx.
func (a *AutomationClient) PostJSON(ctx context.Context, url string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Debug().Str("url", url).Int("payload_bytes", len(body)).Msg("posting to automation webhook")
	return a.do(req)
}

// PostMultipart posts fields and files as multipart/form-data. Every
// file is sent under fileField.
func (a *AutomationClient) PostMultipart(ctx context.Context, url string, fields map[string]string, fileField string, files []FormFile) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	for _, f := range files {
		part, err := mw.CreatePart(filePartHeader(fileField, f))
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	logger.Debug().Str("url", url).Int("files", len(files)).Msg("posting form to automation webhook")
	return a.do(req)
}

func (a *AutomationClient) do(req *http.Request) ([]byte, error) {
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func filePartHeader(field string, f FormFile) textproto.MIMEHeader {
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(f.FileName)))
	h.Set("Content-Type", contentType)
	return h
}

var _ Poster = (*AutomationClient)(nil)
