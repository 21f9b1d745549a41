package webhook

import (
	"testing"
	"time"
)

func TestExtractComments_Instagram(t *testing.T) {
	body := []byte(`{
	  "object": "instagram",
	  "entry": [{
	    "id": "17841400000000000",
	    "time": 1714557600,
	    "changes": [
	      {"field": "comments", "value": {"id": "c1", "text": "Nice!", "from": {"id": "999", "username": "fan"}, "media": {"id": "m1"}}},
	      {"field": "comments", "value": {"id": "c2", "text": "thanks", "from": {"id": "17841400000000000", "username": "acme"}, "media": {"id": "m1"}}},
	      {"field": "mentions", "value": {"media_id": "m2"}}
	    ]
	  }]
	}`)

	got := ExtractComments(body, time.Now())
	if len(got) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(got))
	}
	c := got[0]
	if c.ExternalID != "c1" || c.Username != "fan" || c.Text != "Nice!" || c.MediaID != "m1" {
		t.Errorf("comment = %+v", c)
	}
	if !c.ReceivedAt.Equal(time.Unix(1714557600, 0)) {
		t.Errorf("ReceivedAt = %v", c.ReceivedAt)
	}
	if len(c.Raw) == 0 {
		t.Error("expected raw change value to be kept")
	}
}

func TestExtractComments_FacebookFeed(t *testing.T) {
	body := []byte(`{
	  "object": "page",
	  "entry": [{
	    "id": "page-1",
	    "time": 1714557600000,
	    "changes": [
	      {"field": "feed", "value": {"item": "comment", "verb": "add", "comment_id": "p_c1", "post_id": "p_1", "message": "Hello", "created_time": 1714557700, "from": {"id": "u-9", "name": "Jane"}}},
	      {"field": "feed", "value": {"item": "comment", "verb": "edited", "comment_id": "p_c2", "post_id": "p_1"}},
	      {"field": "feed", "value": {"item": "reaction", "verb": "add", "post_id": "p_1"}}
	    ]
	  }]
	}`)

	got := ExtractComments(body, time.Now())
	if len(got) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(got))
	}
	c := got[0]
	if c.ExternalID != "p_c1" || c.Username != "Jane" || c.Text != "Hello" || c.MediaID != "p_1" {
		t.Errorf("comment = %+v", c)
	}
	if !c.ReceivedAt.Equal(time.Unix(1714557700, 0)) {
		t.Errorf("ReceivedAt = %v, expected created_time", c.ReceivedAt)
	}
}

func TestExtractComments_Unrecognized(t *testing.T) {
	now := time.Now()
	for _, body := range []string{`{"hello":"world"}`, `[]`, `not json`, `{"entry":[{"changes":[{"field":"comments","value":{}}]}]}`} {
		if got := ExtractComments([]byte(body), now); len(got) != 0 {
			t.Errorf("ExtractComments(%s) = %+v, expected none", body, got)
		}
	}
}

func TestUnixTime(t *testing.T) {
	sec := unixTime(1714557600)
	ms := unixTime(1714557600123)
	if sec.Unix() != 1714557600 {
		t.Errorf("seconds: %v", sec)
	}
	if ms.UnixMilli() != 1714557600123 {
		t.Errorf("millis: %v", ms)
	}
}
