package speedtest

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies the ways server selection can fail.
type Kind int

const (
	// KindConfig means the client configuration could not be retrieved.
	// Nothing can be measured without it.
	KindConfig Kind = iota + 1
	// KindServerList means the candidate server list could not be retrieved.
	KindServerList
	// KindNoMatch means no candidate matched the requested identifiers.
	KindNoMatch
	// KindInvalidID means an identifier was not an integer.
	KindInvalidID
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindServerList:
		return "server-list"
	case KindNoMatch:
		return "no-match"
	case KindInvalidID:
		return "invalid-id"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var (
	// ErrNoMatchedServers is wrapped by KindNoMatch errors.
	ErrNoMatchedServers = errors.New("no matched servers")
	// ErrNoReachableServer is returned when every latency probe failed.
	ErrNoReachableServer = errors.New("unable to reach any candidate server")
)

// SelectError is returned by Selector.Select.
type SelectError struct {
	Kind     Kind
	ServerID string
	Err      error
}

func (e *SelectError) Error() string {
	if e.ServerID != "" {
		return fmt.Sprintf("server selection (%s) for %q: %v", e.Kind, e.ServerID, e.Err)
	}
	return fmt.Sprintf("server selection (%s): %v", e.Kind, e.Err)
}

func (e *SelectError) Unwrap() error {
	return e.Err
}

// KindOf reports the selection failure kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var se *SelectError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

// IsRecoverable is true for selection failures that abandon the run without
// terminating the process.
func IsRecoverable(err error) bool {
	k, ok := KindOf(err)
	if !ok {
		return false
	}
	return k == KindServerList || k == KindNoMatch || k == KindInvalidID
}
