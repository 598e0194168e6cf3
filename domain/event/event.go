// Package event models the records delivered over the remote service's
// persistent event stream.
package event

import (
	"encoding/json"
	"fmt"

	errs "mmtools/errors"
)

const (
	TypePosted        = "posted"
	TypeChannelViewed = "channel_viewed"
)

// Post subtypes that are system notices, never worth a notification.
const (
	SubtypeJoinChannel = "system_join_channel"
	SubtypeJoinTeam    = "system_join_team"
)

// noisy event types arrive constantly on a live stream and are only ever
// logged at debug verbosity.
var noisy = map[string]struct{}{
	"status_change":          {},
	"typing":                 {},
	"channel_member_updated": {},
	"user_added":             {},
	"":                       {},
}

// Event is one inbound stream record: a type tag plus a loosely shaped
// data payload.
type Event struct {
	Type string
	Seq  int64
	Data map[string]any
}

type wireEvent struct {
	Event string         `json:"event"`
	Seq   int64          `json:"seq"`
	Data  map[string]any `json:"data"`
}

// Decode parses a raw stream record. Data fields may themselves be
// JSON-encoded strings; each one gets a secondary decode attempt, keeping
// the raw string when it is not valid JSON.
func Decode(raw []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return Event{}, fmt.Errorf("%w: %v", errs.ErrRemoteProtocol, err)
	}

	for field, value := range w.Data {
		s, ok := value.(string)
		if !ok {
			continue
		}
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			w.Data[field] = decoded
		}
	}

	return Event{Type: w.Event, Seq: w.Seq, Data: w.Data}, nil
}

// Noisy reports whether the event type belongs to the known chatty set.
func (e Event) Noisy() bool {
	_, ok := noisy[e.Type]
	return ok
}

// Str returns a string data field, or "" when absent or not a string.
func (e Event) Str(field string) string {
	s, _ := e.Data[field].(string)
	return s
}

// Post is the embedded message of a posted event.
type Post struct {
	UserID    string
	ChannelID string
	Message   string
	Subtype   string
}

// Post extracts the embedded post from a posted event's data payload.
// ok is false when the payload carries no decoded post object.
func (e Event) Post() (Post, bool) {
	obj, ok := e.Data["post"].(map[string]any)
	if !ok {
		return Post{}, false
	}
	return Post{
		UserID:    str(obj, "user_id"),
		ChannelID: str(obj, "channel_id"),
		Message:   str(obj, "message"),
		Subtype:   str(obj, "type"),
	}, true
}

// SystemNotice reports whether the post is a channel/team join notice.
func (p Post) SystemNotice() bool {
	return p.Subtype == SubtypeJoinChannel || p.Subtype == SubtypeJoinTeam
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
