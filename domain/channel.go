// Package domain contains core concepts of the unread-state system.
// Channels are immutable once merged and validated by the domain.
package domain

import (
	"fmt"
	"strings"

	errs "mmtools/errors"
)

// DMSeparator joins the two member ids in a direct-message channel name.
const DMSeparator = "__"

type ChannelType int

const (
	// Other covers public, private and group channels.
	Other ChannelType = iota
	// Direct is an exactly-two-party conversation.
	Direct
)

func (t ChannelType) String() string {
	if t == Direct {
		return "direct"
	}
	return "other"
}

// RawChannel is one entry of the remote channel-list result set.
type RawChannel struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	DisplayName   string `json:"display_name"`
	Name          string `json:"name"`
	Header        string `json:"header"`
	Purpose       string `json:"purpose"`
	TotalMsgCount int    `json:"total_msg_count"`
	LastPostAt    int64  `json:"last_post_at"`
	UpdateAt      int64  `json:"update_at"`
}

// RawMembership is one entry of the remote per-user channel-membership
// result set. MsgCount is the number of messages the user has seen.
type RawMembership struct {
	ChannelID    string `json:"channel_id"`
	UserID       string `json:"user_id"`
	MsgCount     int    `json:"msg_count"`
	MentionCount int    `json:"mention_count"`
	LastViewedAt int64  `json:"last_viewed_at"`
}

// Channel is one conversation the user is a member of, merged from a
// channel-list record and its membership record.
type Channel struct {
	ID            string
	Type          ChannelType
	Name          string
	DisplayName   string
	TotalMsgCount int
	ReadMsgCount  int
	MentionCount  int
}

// MergeChannel builds a validated Channel from the two remote record types.
// The membership record supplies the read count, the channel record supplies
// everything else. Records that do not belong together or that break the
// direct-channel naming invariant are rejected.
func MergeChannel(raw RawChannel, member RawMembership) (Channel, error) {
	if raw.ID == "" {
		return Channel{}, fmt.Errorf("%w: channel without id", errs.ErrRemoteProtocol)
	}
	if member.ChannelID != raw.ID {
		return Channel{}, fmt.Errorf("%w: membership %q does not match channel %q",
			errs.ErrRemoteProtocol, member.ChannelID, raw.ID)
	}

	t := Other
	if raw.Type == "D" {
		t = Direct
		if len(strings.Split(raw.Name, DMSeparator)) != 2 {
			return Channel{}, fmt.Errorf("%w: direct channel name %q is not two ids",
				errs.ErrRemoteProtocol, raw.Name)
		}
	}

	return Channel{
		ID:            raw.ID,
		Type:          t,
		Name:          raw.Name,
		DisplayName:   raw.DisplayName,
		TotalMsgCount: raw.TotalMsgCount,
		ReadMsgCount:  member.MsgCount,
		MentionCount:  member.MentionCount,
	}, nil
}

// Unread is the number of messages posted that the user has not seen.
// Never negative.
func (c Channel) Unread() int {
	if c.TotalMsgCount <= c.ReadMsgCount {
		return 0
	}
	return c.TotalMsgCount - c.ReadMsgCount
}

// DMPeer returns the id in a direct channel name that is not the current
// user. ok is false when the name does not follow the two-id convention.
func (c Channel) DMPeer(selfID string) (string, bool) {
	parts := strings.Split(c.Name, DMSeparator)
	if len(parts) != 2 {
		return "", false
	}
	if parts[1] == selfID {
		return parts[0], true
	}
	return parts[1], true
}

// Label is the human label a channel renders under: direct channels use the
// resolved display name, everything else prefers the display name and falls
// back to the raw channel name.
func (c Channel) Label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

// Snapshot is the full set of channels with unread state as of one refresh
// cycle. Rebuilt wholesale on every refresh; insertion order follows the
// remote channel-list ordering.
type Snapshot struct {
	Channels []Channel
}
