// Package runtime provides the process-level side-effect adapters the
// workers depend on: desktop notifications and signal delivery.
package runtime

import (
	"github.com/gen2brain/beeep"

	"mmtools/contract"
)

const notifyIcon = "notification-message-im"

// DesktopNotifier sends best-effort desktop notifications. Created once at
// startup and passed into the dispatcher; delivery failures are the
// caller's to log, never to act on.
type DesktopNotifier struct{}

var _ contract.Notifier = DesktopNotifier{}

func (DesktopNotifier) Notify(summary, body string) error {
	return beeep.Notify(summary, body, notifyIcon)
}
