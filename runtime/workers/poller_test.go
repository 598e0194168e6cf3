package workers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"mmtools/domain"
	errs "mmtools/errors"
	"mmtools/projection"
	"mmtools/services"
)

// scriptedRemote plays back a sequence of connect/refresh outcomes.
type scriptedRemote struct {
	mu          sync.Mutex
	connects    int
	refreshes   int
	connectErrs []error
	refreshErrs []error
	channels    []domain.RawChannel
	members     []domain.RawMembership
}

func (r *scriptedRemote) Connect(context.Context) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connects++
	if len(r.connectErrs) > 0 {
		err := r.connectErrs[0]
		r.connectErrs = r.connectErrs[1:]
		if err != nil {
			return domain.Session{}, err
		}
	}
	return domain.Session{UserID: "u1", TeamID: "t1"}, nil
}

func (r *scriptedRemote) ChannelMembersForUser(context.Context, string, string) ([]domain.RawMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes++
	if len(r.refreshErrs) > 0 {
		err := r.refreshErrs[0]
		r.refreshErrs = r.refreshErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return r.members, nil
}

func (r *scriptedRemote) ChannelsForUser(context.Context, string, string) ([]domain.RawChannel, error) {
	return r.channels, nil
}

func (r *scriptedRemote) UserByID(context.Context, string) (domain.User, error) {
	return domain.User{}, errs.ErrNotFound
}

func (r *scriptedRemote) connectCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connects
}

func (r *scriptedRemote) refreshCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshes
}

// syncBuffer lets the test read output while the worker writes it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := strings.TrimSuffix(b.buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// epipeWriter simulates a status-bar consumer that went away.
type epipeWriter struct {
	mu     sync.Mutex
	writes int
}

func (w *epipeWriter) Write([]byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes++
	return 0, syscall.EPIPE
}

func (w *epipeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

func testWorker(remote *scriptedRemote, out io.Writer, oneShot bool) *StatusWorker {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	users := services.NewUserCache(log, remote)
	channels := services.NewChannelService(log, remote, users)
	render, _ := projection.New(projection.FormatWaybar, projection.Config{
		Prefix:       "chat",
		ChannelColor: "#00FF00",
		UserColor:    "#FF4488",
	})

	w := NewStatusWorker(log, remote, channels, render, out, time.Millisecond, oneShot)
	w.connectRetry = time.Millisecond
	return w
}

func TestClassify(t *testing.T) {
	req := require.New(t)

	req.Equal(RefreshOK, Classify(domain.Snapshot{}, nil).Outcome)
	req.Equal(RefreshTransient, Classify(domain.Snapshot{}, fmt.Errorf("wrapped: %w", errs.ErrRemoteUnavailable)).Outcome)
	req.Equal(RefreshFatal, Classify(domain.Snapshot{}, fmt.Errorf("boom")).Outcome)
}

func TestStatusWorker_DegradedThenRecovered(t *testing.T) {
	req := require.New(t)

	remote := &scriptedRemote{
		refreshErrs: []error{errs.ErrRemoteUnavailable, errs.ErrRemoteUnavailable, nil},
		channels:    []domain.RawChannel{{ID: "c1", Type: "O", Name: "general", TotalMsgCount: 5}},
		members:     []domain.RawMembership{{ChannelID: "c1", MsgCount: 2}},
	}
	out := &syncBuffer{}
	w := testWorker(remote, out, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Two degraded emissions, then normal output resumes.
	req.Eventually(func() bool { return len(out.Lines()) >= 3 }, time.Second, time.Millisecond)
	cancel()
	req.ErrorIs(<-done, context.Canceled)

	lines := out.Lines()
	req.Contains(lines[0], `"class":"error"`)
	req.Contains(lines[1], `"class":"error"`)
	req.Contains(lines[2], `general:3`)
	req.Contains(lines[2], `"class":"other"`)
}

func TestStatusWorker_ConnectRetriesWhileUnavailable(t *testing.T) {
	req := require.New(t)

	remote := &scriptedRemote{
		connectErrs: []error{errs.ErrRemoteUnavailable, errs.ErrRemoteUnavailable},
	}
	out := &syncBuffer{}
	w := testWorker(remote, out, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	req.Eventually(func() bool { return remote.connectCount() >= 3 }, time.Second, time.Millisecond)
	cancel()
	<-done

	// Each failed attempt rendered degraded output first.
	lines := out.Lines()
	req.GreaterOrEqual(len(lines), 2)
	req.Contains(lines[0], `"class":"error"`)
}

func TestStatusWorker_UnknownConnectErrorIsFatal(t *testing.T) {
	remote := &scriptedRemote{
		connectErrs: []error{fmt.Errorf("credentials rejected")},
	}
	w := testWorker(remote, &syncBuffer{}, false)

	err := w.Run(context.Background())
	require.ErrorContains(t, err, "credentials rejected")
}

func TestStatusWorker_RebuildsSessionAfterRepeatedFailures(t *testing.T) {
	req := require.New(t)

	remote := &scriptedRemote{
		refreshErrs: []error{
			errs.ErrRemoteUnavailable,
			errs.ErrRemoteUnavailable,
			errs.ErrRemoteUnavailable,
		},
	}
	out := &syncBuffer{}
	w := testWorker(remote, out, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The session is given up after the threshold and rebuilt.
	req.Eventually(func() bool { return remote.connectCount() >= 2 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestStatusWorker_UnknownRefreshErrorIsFatal(t *testing.T) {
	req := require.New(t)

	remote := &scriptedRemote{
		refreshErrs: []error{nil, fmt.Errorf("schema drift")},
		channels:    []domain.RawChannel{{ID: "c1", Type: "O", Name: "general", TotalMsgCount: 5}},
		members:     []domain.RawMembership{{ChannelID: "c1", MsgCount: 2}},
	}
	out := &syncBuffer{}
	w := testWorker(remote, out, false)

	err := w.Run(context.Background())
	req.ErrorContains(err, "refreshing channels")
	req.ErrorContains(err, "schema drift")

	// The successful first cycle was emitted before the failure ended the loop.
	lines := out.Lines()
	req.NotEmpty(lines)
	req.Contains(lines[0], "general:3")
}

func TestStatusWorker_BrokenOutputPipeIsSwallowed(t *testing.T) {
	req := require.New(t)

	remote := &scriptedRemote{
		channels: []domain.RawChannel{{ID: "c1", Type: "O", Name: "general", TotalMsgCount: 5}},
		members:  []domain.RawMembership{{ChannelID: "c1", MsgCount: 2}},
	}
	out := &epipeWriter{}
	w := testWorker(remote, out, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The loop keeps refreshing and emitting despite every write failing.
	req.Eventually(func() bool { return out.count() >= 3 }, time.Second, time.Millisecond)
	req.GreaterOrEqual(remote.refreshCount(), 3)
	cancel()
	req.ErrorIs(<-done, context.Canceled)
}

func TestStatusWorker_OneShotSuccess(t *testing.T) {
	req := require.New(t)

	remote := &scriptedRemote{
		channels: []domain.RawChannel{{ID: "c1", Type: "O", Name: "general", TotalMsgCount: 5}},
		members:  []domain.RawMembership{{ChannelID: "c1", MsgCount: 2}},
	}
	out := &syncBuffer{}
	w := testWorker(remote, out, true)

	req.NoError(w.Run(context.Background()))
	req.Equal([]string{`{"text":"chat general:3","class":"other"}`}, out.Lines())
}

func TestStatusWorker_OneShotFailureEmitsDegradedAndSucceeds(t *testing.T) {
	req := require.New(t)

	remote := &scriptedRemote{
		connectErrs: []error{errs.ErrRemoteUnavailable},
	}
	out := &syncBuffer{}
	w := testWorker(remote, out, true)

	// A status-bar backend must never see a failure exit.
	req.NoError(w.Run(context.Background()))
	req.Equal([]string{`{"text":"chat disconnected","class":"error"}`}, out.Lines())
}
