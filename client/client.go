// Package client talks to the Mattermost REST API (v4) and its websocket
// event stream. All transport failures are classified into the error
// taxonomy at this boundary; callers only ever see the sentinel classes.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"mmtools/contract"
	"mmtools/domain"
	errs "mmtools/errors"
)

const (
	apiBase = "/api/v4"

	// DefaultHTTPTimeout applies per outbound call. The core carries no
	// timeout timers of its own beyond retry sleeps.
	DefaultHTTPTimeout = 30 * time.Second
)

// Options configures the connection to one Mattermost server.
type Options struct {
	Server             string
	Port               int
	Username           string
	Password           string
	Team               string
	InsecureSkipVerify bool
}

// Client is an authenticated Mattermost API client.
type Client struct {
	log        *slog.Logger
	opts       Options
	httpClient *http.Client
	baseURL    string
	token      string
}

var _ contract.Remote = (*Client)(nil)
var _ contract.EventStream = (*Client)(nil)

func New(log *slog.Logger, opts Options) *Client {
	transport := &http.Transport{}
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		log:  log,
		opts: opts,
		httpClient: &http.Client{
			Timeout:   DefaultHTTPTimeout,
			Transport: transport,
		},
		baseURL: fmt.Sprintf("https://%s:%d%s", opts.Server, opts.Port, apiBase),
	}
}

// WithBaseURL overrides the server root URL. Useful for testing with mock
// servers.
func (c *Client) WithBaseURL(root string) *Client {
	c.baseURL = strings.TrimSuffix(root, "/") + apiBase
	return c
}

// Connect authenticates and resolves the current user's identity and team.
func (c *Client) Connect(ctx context.Context) (domain.Session, error) {
	if err := c.login(ctx); err != nil {
		return domain.Session{}, err
	}

	user, err := c.UserByUsername(ctx, c.opts.Username)
	if err != nil {
		return domain.Session{}, fmt.Errorf("resolving current user: %w", err)
	}

	teams, err := c.TeamsForUser(ctx, user.ID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("resolving teams: %w", err)
	}
	if len(teams) == 0 {
		return domain.Session{}, fmt.Errorf("%w: user %q belongs to no team", errs.ErrRemoteProtocol, user.Username)
	}

	team := teams[0]
	if c.opts.Team != "" {
		found := false
		for _, t := range teams {
			if t.Name == c.opts.Team {
				team, found = t, true
				break
			}
		}
		if !found {
			return domain.Session{}, fmt.Errorf("user %q is not a member of team %q", user.Username, c.opts.Team)
		}
	}

	c.log.Debug("Session established", "user_id", user.ID, "team_id", team.ID)
	return domain.Session{UserID: user.ID, Username: user.Username, TeamID: team.ID}, nil
}

func (c *Client) login(ctx context.Context) error {
	body, _ := json.Marshal(map[string]string{
		"login_id": c.opts.Username,
		"password": c.opts.Password,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	// Credential rejections are not transient; they surface as plain errors
	// and end up fatal in polling mode.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("authentication failed for %q (status %d)", c.opts.Username, resp.StatusCode)
	}

	token := resp.Header.Get("Token")
	if token == "" {
		return fmt.Errorf("%w: login response without session token", errs.ErrRemoteProtocol)
	}
	c.token = token
	return nil
}

// UserByUsername fetches a user record by login name.
func (c *Client) UserByUsername(ctx context.Context, username string) (domain.User, error) {
	var user domain.User
	err := c.get(ctx, "/users/username/"+username, &user)
	return user, err
}

// UserByID fetches a user record by id.
func (c *Client) UserByID(ctx context.Context, id string) (domain.User, error) {
	var user domain.User
	err := c.get(ctx, "/users/"+id, &user)
	return user, err
}

// TeamsForUser lists the teams a user belongs to, in the remote service's
// order.
func (c *Client) TeamsForUser(ctx context.Context, userID string) ([]domain.Team, error) {
	var teams []domain.Team
	err := c.get(ctx, "/users/"+userID+"/teams", &teams)
	return teams, err
}

// ChannelsForUser lists all channels the user is a member of on a team.
func (c *Client) ChannelsForUser(ctx context.Context, userID, teamID string) ([]domain.RawChannel, error) {
	var channels []domain.RawChannel
	err := c.get(ctx, "/users/"+userID+"/teams/"+teamID+"/channels", &channels)
	return channels, err
}

// ChannelMembersForUser lists the user's membership records on a team,
// carrying the per-channel read counts.
func (c *Client) ChannelMembersForUser(ctx context.Context, userID, teamID string) ([]domain.RawMembership, error) {
	var members []domain.RawMembership
	err := c.get(ctx, "/users/"+userID+"/teams/"+teamID+"/channels/members", &members)
	return members, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", errs.ErrNotFound, path)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: %s returned status %d", errs.ErrRemoteProtocol, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", errs.ErrRemoteProtocol, path, err)
	}
	return nil
}

// classifyTransport maps transport-level failures into the error taxonomy.
// Timeouts and refused/reset connections are transient by definition.
func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: timeout: %v", errs.ErrRemoteUnavailable, err)
	}
	return fmt.Errorf("%w: %v", errs.ErrRemoteUnavailable, err)
}
