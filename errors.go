package avcore

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind is a stable, append-only error classification (§7). Numeric
// values are never reused; new kinds are appended after the last
// assigned one. The teacher classifies its own small set of terminal
// conditions as package-level sentinel errors (error.go:
// ErrNotPaired, ErrTimedOut, ...); Kind generalizes that into the
// full taxonomy spec.md §7 names, each with a stable String() name
// and description so callers can render it without a type switch.
type Kind int

const (
	Success Kind = iota
	Done

	// Generic kinds.
	InvalidParameter
	InvalidData
	InvalidState
	NoMemory
	Interrupted
	Truncated
	NotSupported
	TimedOut
	NotFound
	RangeError
	PolicyError
	VersionError

	// Socket kinds, mapped from the host OS (§7).
	SocketInUse
	SocketNotAvailable
	SocketUnreachable
	SocketReset
	SocketRefused
	SocketAborted
	SocketNotConnected
	SocketShutdown
	SocketMessageSize

	// Routing-core kinds. Like every kind here they take the next
	// sequential value; they do not occupy a separate numeric block.
	InvalidHandle
	NoMoreHandles
	CapabilitiesChanged
	OwnCanonicalName
	OtherCanonicalName
	LabelExists
	LabelDoesntExist

	// Request-pool kinds (§4.2).
	OutOfRequests

	// Discovery kinds.
	DiscoveryFailed

	// Subscription terminal-failure kinds (§4.3).
	CommsError
	NoConnection
	InvalidReply
	TxNoChannel

	// maxAssignedKind is one past the highest Kind value assigned so
	// far; new kinds are appended immediately before it.
	maxAssignedKind
)

var kindNames = [...]string{
	Success:              "Success",
	Done:                 "Done",
	InvalidParameter:     "InvalidParameter",
	InvalidData:          "InvalidData",
	InvalidState:         "InvalidState",
	NoMemory:             "NoMemory",
	Interrupted:          "Interrupted",
	Truncated:            "Truncated",
	NotSupported:         "NotSupported",
	TimedOut:             "TimedOut",
	NotFound:             "NotFound",
	RangeError:           "Range",
	PolicyError:          "Policy",
	VersionError:         "Version",
	SocketInUse:          "SocketInUse",
	SocketNotAvailable:   "SocketNotAvailable",
	SocketUnreachable:    "SocketUnreachable",
	SocketReset:          "SocketReset",
	SocketRefused:        "SocketRefused",
	SocketAborted:        "SocketAborted",
	SocketNotConnected:   "SocketNotConnected",
	SocketShutdown:       "SocketShutdown",
	SocketMessageSize:    "SocketMessageSize",
	InvalidHandle:        "InvalidHandle",
	NoMoreHandles:        "NoMoreHandles",
	CapabilitiesChanged:  "CapabilitiesChanged",
	OwnCanonicalName:     "OwnCanonicalName",
	OtherCanonicalName:   "OtherCanonicalName",
	LabelExists:          "LabelExists",
	LabelDoesntExist:     "LabelDoesntExist",
	OutOfRequests:        "OutOfRequests",
	DiscoveryFailed:      "DiscoveryFailed",
	CommsError:           "CommsError",
	NoConnection:         "NoConnection",
	InvalidReply:         "InvalidReply",
	TxNoChannel:          "TxNoChannel",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) || kindNames[k] == "" {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Error wraps a Kind with the underlying cause, if any. Call sites
// compare against a Kind with errors.Is-style helpers (Is, below)
// rather than against a specific *Error value, matching the way the
// teacher compares against ErrNotPaired/ErrTimedOut by identity but
// generalized to a taxonomy instead of a handful of globals.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.cause)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a bare Error carrying only a Kind.
func New(kind Kind) *Error {
	return &Error{Kind: kind}
}

// Wrap attaches a Kind to a lower-level cause (a socket error, a
// decode error) using pkg/errors so the original stack is retained
// for logs while call sites still switch on Kind.
func Wrap(kind Kind, cause error) *Error {
	if cause == nil {
		return New(kind)
	}
	return &Error{Kind: kind, cause: pkgerrors.WithStack(cause)}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		err = pkgerrors.Unwrap(err)
	}
	return e != nil && e.Kind == kind
}
