package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/sells-group/property-report/internal/resilience"
	"github.com/sells-group/property-report/pkg/propdata"
)

// Kind classifies a gateway failure.
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindNotFound     Kind = "not_found"
	KindTimeout      Kind = "timeout"
	KindUnavailable  Kind = "unavailable"
	KindUpstream     Kind = "upstream"
)

// Failure is the only error type returned by Gateway methods.
type Failure struct {
	Provider string
	Kind     Kind
	Err      error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("gateway: %s: %s", f.Provider, f.Kind)
	}
	return fmt.Sprintf("gateway: %s: %s: %v", f.Provider, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// IsKind reports whether err is a *Failure of the given kind.
func IsKind(err error, kind Kind) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == kind
}

func invalidInput(provider, msg string) *Failure {
	return &Failure{Provider: provider, Kind: KindInvalidInput, Err: errors.New(msg)}
}

// classify maps a client or resilience error onto a Failure.
func classify(provider string, err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	kind := KindUpstream
	var netErr net.Error
	switch {
	case errors.Is(err, propdata.ErrNotFound):
		kind = KindNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	case errors.Is(err, resilience.ErrCircuitOpen), resilience.IsTransient(err):
		kind = KindUnavailable
	}
	return &Failure{Provider: provider, Kind: kind, Err: err}
}

// tripsBreaker excludes caller-side outcomes from the failure count.
func tripsBreaker(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, propdata.ErrNotFound) && !errors.Is(err, context.Canceled)
}
