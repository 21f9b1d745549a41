package webhook

import (
	"encoding/json"
	"time"
)

// ExtractComments pulls new comments out of a Graph webhook body. Bodies
// of any other shape yield nothing; the relay forwards them regardless.
// Comments authored by the monitored account itself are skipped so our
// own replies are not ingested as work.
func ExtractComments(body []byte, now time.Time) []IncomingComment {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil
	}

	var out []IncomingComment
	for _, entry := range event.Entry {
		received := now
		if entry.Time > 0 {
			received = unixTime(entry.Time)
		}

		for _, change := range entry.Changes {
			switch change.Field {
			case "comments", "live_comments":
				if c, ok := parseInstagramComment(entry, change.Value, received); ok {
					out = append(out, c)
				}
			case "feed":
				if c, ok := parseFeedComment(entry, change.Value, received); ok {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

func parseInstagramComment(entry Entry, raw json.RawMessage, received time.Time) (IncomingComment, bool) {
	var v InstagramComment
	if err := json.Unmarshal(raw, &v); err != nil || v.ID == "" {
		return IncomingComment{}, false
	}
	if v.From.ID != "" && v.From.ID == entry.ID {
		return IncomingComment{}, false
	}
	return IncomingComment{
		ExternalID: v.ID,
		Username:   v.From.Username,
		Text:       v.Text,
		MediaID:    v.Media.ID,
		ReceivedAt: received,
		Raw:        raw,
	}, true
}

func parseFeedComment(entry Entry, raw json.RawMessage, received time.Time) (IncomingComment, bool) {
	var v FeedChange
	if err := json.Unmarshal(raw, &v); err != nil {
		return IncomingComment{}, false
	}
	if v.Item != "comment" || v.Verb != "add" || v.CommentID == "" {
		return IncomingComment{}, false
	}
	if v.From.ID != "" && v.From.ID == entry.ID {
		return IncomingComment{}, false
	}
	if v.CreatedTime > 0 {
		received = unixTime(v.CreatedTime)
	}
	return IncomingComment{
		ExternalID: v.CommentID,
		Username:   v.From.Name,
		Text:       v.Message,
		MediaID:    v.PostID,
		ReceivedAt: received,
		Raw:        raw,
	}, true
}

// unixTime accepts both second and millisecond timestamps; Graph uses
// either depending on the product.
func unixTime(v int64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}
