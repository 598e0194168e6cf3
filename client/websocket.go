package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"

	errs "mmtools/errors"
)

// authChallenge is the first frame sent on a fresh event-stream connection.
type authChallenge struct {
	Seq    int            `json:"seq"`
	Action string         `json:"action"`
	Data   map[string]any `json:"data"`
}

// Listen opens the websocket event stream and delivers raw events to
// onEvent, one at a time, until the connection drops or ctx is canceled.
// onEvent runs synchronously; the next frame is not read before it returns,
// so side effects keep event arrival order.
func (c *Client) Listen(ctx context.Context, onEvent func(raw []byte)) error {
	dialer := websocket.Dialer{HandshakeTimeout: DefaultHTTPTimeout}
	if c.opts.InsecureSkipVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	// https -> wss, http -> ws
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/websocket"

	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return classifyTransport(err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	if err := conn.WriteJSON(authChallenge{
		Seq:    1,
		Action: "authentication_challenge",
		Data:   map[string]any{"token": c.token},
	}); err != nil {
		return fmt.Errorf("%w: sending auth challenge: %v", errs.ErrRemoteUnavailable, err)
	}

	c.log.Info("Event stream connected", "url", wsURL)

	// Unblock ReadMessage when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: event stream closed: %v", errs.ErrRemoteUnavailable, err)
		}
		onEvent(raw)
	}
}
