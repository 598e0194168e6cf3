//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"syscall"

	"mmtools/domain"
)

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// UserDirectory resolves user ids to user records on the remote service.
type UserDirectory interface {
	UserByID(ctx context.Context, id string) (domain.User, error)
}

// Remote is the data-source side of the chat service: session establishment
// plus the two result sets a snapshot is merged from.
type Remote interface {
	UserDirectory
	Connect(ctx context.Context) (domain.Session, error)
	ChannelsForUser(ctx context.Context, userID, teamID string) ([]domain.RawChannel, error)
	ChannelMembersForUser(ctx context.Context, userID, teamID string) ([]domain.RawMembership, error)
}

// EventStream delivers raw events one at a time until the connection drops.
// onEvent is called synchronously; the next event is not read before it returns.
type EventStream interface {
	Listen(ctx context.Context, onEvent func(raw []byte)) error
}

// Notifier sends a desktop notification, fire-and-forget.
type Notifier interface {
	Notify(summary, body string) error
}

// ProcessSignaler locates a process by name substring and delivers a signal.
type ProcessSignaler interface {
	FindProcess(name string) (int32, error)
	Signal(pid int32, sig syscall.Signal) error
}
