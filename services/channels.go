// Package services aggregates remote result sets into consistent local
// views of the user's unread state.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"mmtools/contract"
	"mmtools/domain"
)

// ChannelService rebuilds the channel snapshot from the remote service.
// Idempotent with respect to repeated calls given unchanged remote state;
// its only side effect is populating the shared user cache.
type ChannelService struct {
	log    *slog.Logger
	remote contract.Remote
	users  *UserCache
}

func NewChannelService(log *slog.Logger, remote contract.Remote, users *UserCache) *ChannelService {
	return &ChannelService{log: log, remote: remote, users: users}
}

// Refresh fetches both remote result sets and merges them into a snapshot
// of channels with unread messages.
func (s *ChannelService) Refresh(ctx context.Context, ses domain.Session) (domain.Snapshot, error) {
	return s.refresh(ctx, ses, false)
}

// RefreshAll is the verbose variant: it keeps channels with zero unread
// messages in the snapshot, for debugging.
func (s *ChannelService) RefreshAll(ctx context.Context, ses domain.Session) (domain.Snapshot, error) {
	return s.refresh(ctx, ses, true)
}

func (s *ChannelService) refresh(ctx context.Context, ses domain.Session, includeRead bool) (domain.Snapshot, error) {
	// The two result sets are independent; the membership list supplies the
	// per-channel read counts the channel list lacks.
	members, err := s.remote.ChannelMembersForUser(ctx, ses.UserID, ses.TeamID)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("fetching channel memberships: %w", err)
	}

	channels, err := s.remote.ChannelsForUser(ctx, ses.UserID, ses.TeamID)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("fetching channels: %w", err)
	}

	byID := make(map[string]domain.RawMembership, len(members))
	for _, m := range members {
		byID[m.ChannelID] = m
	}

	var snap domain.Snapshot
	for _, raw := range channels {
		member, ok := byID[raw.ID]
		if !ok {
			// Data-consistency gap between the two result sets; partial
			// data beats no data.
			s.log.Debug("Channel without membership record, skipping",
				"channel_id", raw.ID, "name", raw.Name)
			continue
		}

		channel, err := domain.MergeChannel(raw, member)
		if err != nil {
			s.log.Warn("Skipping inconsistent channel record",
				"channel_id", raw.ID, "error", err)
			continue
		}

		if !includeRead && channel.Unread() == 0 {
			continue
		}

		if channel.Type == domain.Direct && channel.DisplayName == "" {
			channel.DisplayName = s.resolveDMName(ctx, channel, ses.UserID)
		}

		snap.Channels = append(snap.Channels, channel)
	}

	return snap, nil
}

// resolveDMName turns a direct channel's "<id>__<id>" name into the peer's
// display name. Resolution failures fall back to a placeholder rather than
// failing the refresh.
func (s *ChannelService) resolveDMName(ctx context.Context, c domain.Channel, selfID string) string {
	peer, ok := c.DMPeer(selfID)
	if !ok {
		return UnknownUser
	}
	return s.users.Resolve(ctx, peer)
}
