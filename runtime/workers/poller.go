package workers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"syscall"
	"time"

	"github.com/google/uuid"

	"mmtools/contract"
	"mmtools/domain"
	errs "mmtools/errors"
	"mmtools/projection"
	"mmtools/services"
)

const (
	// connectRetryDelay is the fixed pause between session-establishment
	// attempts while the remote service is unreachable.
	connectRetryDelay = 5 * time.Second

	// reconnectThreshold is the number of consecutive transient refresh
	// failures after which the session is considered lost and rebuilt.
	reconnectThreshold = 3

	// degradedReason is the text rendered in place of status output while
	// the remote service is unreachable.
	degradedReason = "disconnected"
)

// RefreshOutcome tags the result of one refresh or connect attempt.
type RefreshOutcome int

const (
	RefreshOK RefreshOutcome = iota
	RefreshTransient
	RefreshFatal
)

// RefreshResult is the tagged outcome consumed uniformly by every dialect's
// rendering path.
type RefreshResult struct {
	Outcome  RefreshOutcome
	Snapshot domain.Snapshot
	Reason   error
}

// Classify maps a refresh result into the outcome taxonomy: remote
// unavailability is transient and retried forever, everything else is fatal.
func Classify(snap domain.Snapshot, err error) RefreshResult {
	switch {
	case err == nil:
		return RefreshResult{Outcome: RefreshOK, Snapshot: snap}
	case errors.Is(err, errs.ErrRemoteUnavailable):
		return RefreshResult{Outcome: RefreshTransient, Reason: err}
	default:
		return RefreshResult{Outcome: RefreshFatal, Reason: err}
	}
}

// StatusWorker drives the status-bar output: it establishes a session,
// refreshes the channel snapshot on a fixed cadence and renders each result
// through the active dialect. One-shot mode performs a single attempt and
// never fails, since a status-bar backend must not see a non-zero exit on a
// transient error.
type StatusWorker struct {
	log      *slog.Logger
	remote   contract.Remote
	channels *services.ChannelService
	render   projection.Renderer
	out      io.Writer
	interval time.Duration
	oneShot  bool

	connectRetry time.Duration
}

func NewStatusWorker(
	log *slog.Logger,
	remote contract.Remote,
	channels *services.ChannelService,
	render projection.Renderer,
	out io.Writer,
	interval time.Duration,
	oneShot bool,
) *StatusWorker {
	return &StatusWorker{
		log:          log,
		remote:       remote,
		channels:     channels,
		render:       render,
		out:          out,
		interval:     interval,
		oneShot:      oneShot,
		connectRetry: connectRetryDelay,
	}
}

func (w *StatusWorker) Run(ctx context.Context) error {
	if w.oneShot {
		return w.runOnce(ctx)
	}

	for {
		ses, err := w.remote.Connect(ctx)
		if err != nil {
			res := Classify(domain.Snapshot{}, err)
			if res.Outcome != RefreshTransient {
				// Unknown failures are assumed non-transient; surface
				// them instead of looping forever.
				return fmt.Errorf("connecting: %w", err)
			}
			w.log.Warn("Connection failed, retrying", "error", err)
			w.emit(w.render.RenderError(degradedReason))
			if !w.sleep(ctx, w.connectRetry) {
				return ctx.Err()
			}
			continue
		}

		if err := w.refreshLoop(ctx, ses); err != nil {
			if errors.Is(err, errSessionLost) {
				w.log.Warn("Session lost, reconnecting")
				continue
			}
			return err
		}
		return nil
	}
}

// errSessionLost asks the outer loop to rebuild the session.
var errSessionLost = fmt.Errorf("session lost")

// refreshLoop is the Connected/Degraded state machine: emit on success,
// degrade on transient failure, give the session up after too many
// consecutive failures, stop on anything fatal.
func (w *StatusWorker) refreshLoop(ctx context.Context, ses domain.Session) error {
	failures := 0

	for {
		snap, err := w.channels.Refresh(ctx, ses)
		res := Classify(snap, err)

		switch res.Outcome {
		case RefreshOK:
			failures = 0
			w.log.Debug("Refreshed",
				"cycle", uuid.NewString(),
				"unread_channels", len(res.Snapshot.Channels))
			w.emit(w.render.Render(res.Snapshot))
		case RefreshTransient:
			failures++
			w.log.Warn("Refresh failed", "failures", failures, "error", res.Reason)
			w.emit(w.render.RenderError(degradedReason))
			if failures >= reconnectThreshold {
				return errSessionLost
			}
		case RefreshFatal:
			return fmt.Errorf("refreshing channels: %w", res.Reason)
		}

		if !w.sleep(ctx, w.interval) {
			return ctx.Err()
		}
	}
}

// runOnce performs a single refresh attempt. Every failure renders the
// degraded output and reports success to the caller.
func (w *StatusWorker) runOnce(ctx context.Context) error {
	ses, err := w.remote.Connect(ctx)
	if err != nil {
		w.log.Warn("Connection failed", "error", err)
		w.emit(w.render.RenderError(degradedReason))
		return nil
	}

	snap, err := w.channels.Refresh(ctx, ses)
	if err != nil {
		w.log.Warn("Refresh failed", "error", err)
		w.emit(w.render.RenderError(degradedReason))
		return nil
	}

	w.emit(w.render.Render(snap))
	return nil
}

// emit writes one rendering and flushes it with a newline. A broken pipe
// means the status-bar consumer went away; that is its problem, not ours.
func (w *StatusWorker) emit(output string) {
	_, err := fmt.Fprintln(w.out, output)
	switch {
	case err == nil:
	case errors.Is(err, syscall.EPIPE):
		w.log.Debug("Output pipe closed")
	default:
		w.log.Warn("Writing status output failed", "error", err)
	}
}

func (w *StatusWorker) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
