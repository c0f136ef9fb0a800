package agent

import "errors"

var (
	// ErrUnknownAgent is returned when a request names an agent key that no
	// factory builds.
	ErrUnknownAgent = errors.New("unknown agent key")

	// ErrSessionRequired is returned when a continuation request arrives
	// without a usable session.
	ErrSessionRequired = errors.New("session required for continuation")

	// ErrUnknownModelKey is returned when an agent definition references a
	// model key missing from configuration.
	ErrUnknownModelKey = errors.New("unknown model key")

	// ErrEmptyMessage is returned when a fresh run carries no message text.
	ErrEmptyMessage = errors.New("message must not be empty")
)
