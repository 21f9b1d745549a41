package webhook

import (
	"encoding/json"
	"time"
)

// Event is the Graph API webhook body for both Instagram and Facebook
// pages. Only the parts used for comment ingestion are decoded.
type Event struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Time    int64    `json:"time"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// InstagramComment is the value of a "comments" change.
type InstagramComment struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	ParentID string `json:"parent_id"`
	From     struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"from"`
	Media struct {
		ID               string `json:"id"`
		MediaProductType string `json:"media_product_type"`
	} `json:"media"`
}

// FeedChange is the value of a Facebook page "feed" change.
type FeedChange struct {
	Item        string `json:"item"`
	Verb        string `json:"verb"`
	CommentID   string `json:"comment_id"`
	PostID      string `json:"post_id"`
	ParentID    string `json:"parent_id"`
	Message     string `json:"message"`
	CreatedTime int64  `json:"created_time"`
	From        struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"from"`
}

// IncomingComment is a comment extracted from an event, ready to store.
type IncomingComment struct {
	ExternalID string
	Username   string
	Text       string
	MediaID    string
	ReceivedAt time.Time
	Raw        json.RawMessage
}

// Envelope is what the automation service receives for every relayed
// event.
type Envelope struct {
	MonitorID   uint            `json:"monitorId"`
	AccountName string          `json:"account_name"`
	Platform    string          `json:"platform"`
	AccessToken string          `json:"access_token"`
	ProjectID   uint            `json:"projectId"`
	ReceivedAt  string          `json:"received_at"`
	Data        json.RawMessage `json:"data"`
}
