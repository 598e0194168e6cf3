package workers

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"syscall"

	"mmtools/contract"
	"mmtools/domain"
	"mmtools/domain/event"
	errs "mmtools/errors"
	"mmtools/services"
)

// notifyBodyLimit caps the notification body length in characters.
const notifyBodyLimit = 1024

// WatchOptions configures the event watcher's side effects.
type WatchOptions struct {
	// Prefix leads every notification summary.
	Prefix string
	// Ignore suppresses notifications for channels whose resolved label
	// matches; nil means notify for all.
	Ignore *regexp.Regexp
	// DisableNotify turns desktop notifications off.
	DisableNotify bool
	// SignalTarget is a process-name substring to signal after each
	// notified post; empty disables signaling.
	SignalTarget string
	// Signal is the signal delivered to the target process.
	Signal syscall.Signal
}

// WatchWorker consumes the live event stream and turns posts into desktop
// notifications and process signals. Events are handled strictly one at a
// time in arrival order; the shared user cache is the only state kept
// between events. A malformed or unrecognized event is logged and dropped,
// never allowed to end the stream.
type WatchWorker struct {
	log      *slog.Logger
	stream   contract.EventStream
	users    *services.UserCache
	notifier contract.Notifier
	procs    contract.ProcessSignaler
	selfID   string
	opts     WatchOptions
}

func NewWatchWorker(
	log *slog.Logger,
	stream contract.EventStream,
	users *services.UserCache,
	notifier contract.Notifier,
	procs contract.ProcessSignaler,
	selfID string,
	opts WatchOptions,
) *WatchWorker {
	return &WatchWorker{
		log:      log,
		stream:   stream,
		users:    users,
		notifier: notifier,
		procs:    procs,
		selfID:   selfID,
		opts:     opts,
	}
}

func (w *WatchWorker) Run(ctx context.Context) error {
	return w.stream.Listen(ctx, func(raw []byte) {
		w.Handle(ctx, raw)
	})
}

// Handle classifies and processes one raw stream event to completion.
func (w *WatchWorker) Handle(ctx context.Context, raw []byte) {
	ev, err := event.Decode(raw)
	if err != nil {
		w.log.Warn("Dropping malformed event", "error", err)
		return
	}

	switch {
	case ev.Type == event.TypePosted:
		w.handlePosted(ctx, ev)
	case ev.Type == event.TypeChannelViewed:
		w.log.Info("Channel viewed", "channel_id", ev.Str("channel_id"))
	case ev.Noisy():
		w.log.Debug("Event received", "type", ev.Type, "seq", ev.Seq)
	default:
		w.log.Info("Unhandled event", "type", ev.Type, "seq", ev.Seq)
	}
}

func (w *WatchWorker) handlePosted(ctx context.Context, ev event.Event) {
	post, ok := ev.Post()
	if !ok {
		w.log.Warn("Posted event without post payload", "seq", ev.Seq)
		return
	}

	// No side effects for the user's own posts or for join notices.
	if post.UserID == w.selfID {
		return
	}
	if post.SystemNotice() {
		return
	}

	sender := strings.TrimRight(ev.Str("sender_name"), "@")

	label := ev.Str("channel_name")
	if strings.Contains(label, domain.DMSeparator) {
		label = w.resolveDMLabel(ctx, label)
	}

	if w.opts.Ignore != nil && w.opts.Ignore.MatchString(label) {
		w.log.Debug("Ignoring post", "channel", label)
		return
	}

	if !w.opts.DisableNotify {
		summary := strings.TrimSpace(w.opts.Prefix + " " + label + "/" + sender)
		body := strings.TrimSpace(truncate(post.Message, notifyBodyLimit))
		if err := w.notifier.Notify(summary, body); err != nil {
			w.log.Warn("Notification failed", "error", err)
		}
	}

	if w.opts.SignalTarget != "" {
		w.signalTarget()
	}
}

// resolveDMLabel maps a direct channel's "<id>__<id>" name to the peer's
// display name through the shared cache.
func (w *WatchWorker) resolveDMLabel(ctx context.Context, name string) string {
	parts := strings.Split(name, domain.DMSeparator)
	if len(parts) != 2 {
		return name
	}
	peer := parts[0]
	if peer == w.selfID {
		peer = parts[1]
	}
	return w.users.Resolve(ctx, peer)
}

// signalTarget delivers the configured signal to the status-bar process.
// A missing process is logged and skipped.
func (w *WatchWorker) signalTarget() {
	pid, err := w.procs.FindProcess(w.opts.SignalTarget)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			w.log.Info("No process to signal", "name", w.opts.SignalTarget)
		} else {
			w.log.Warn("Process lookup failed", "name", w.opts.SignalTarget, "error", err)
		}
		return
	}

	w.log.Info("Signaling process", "pid", pid, "name", w.opts.SignalTarget, "signal", w.opts.Signal)
	if err := w.procs.Signal(pid, w.opts.Signal); err != nil {
		w.log.Warn("Signal delivery failed", "pid", pid, "error", err)
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
