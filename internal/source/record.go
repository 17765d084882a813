// Package source defines the record shape every data-source adapter returns.
//
// A Record is either Ok(payload) or Unavailable(reason). Adapters never
// return errors or half-filled payloads: a malformed response, a timeout or a
// missing credential all collapse into an Unavailable record so one broken
// upstream cannot disturb the others.
package source

import (
	"context"
	"fmt"
	"time"
)

// ReasonKind classifies why a record carries no payload.
type ReasonKind string

const (
	// ReasonPending marks a slot that has never been populated.
	ReasonPending ReasonKind = "pending"
	// ReasonDisabled means the source is switched off (missing or placeholder credential).
	ReasonDisabled ReasonKind = "disabled"
	// ReasonFailed covers network errors, timeouts and malformed payloads.
	ReasonFailed ReasonKind = "failed"
	// ReasonExpired marks a slot whose last good value outlived the staleness limit.
	ReasonExpired ReasonKind = "expired"
)

// Reason explains an Unavailable record.
type Reason struct {
	Kind   ReasonKind `json:"kind"`
	Detail string     `json:"detail,omitempty"`
}

func (r Reason) String() string {
	if r.Detail == "" {
		return string(r.Kind)
	}
	return fmt.Sprintf("%s: %s", r.Kind, r.Detail)
}

// Record is the normalized result of a single adapter call.
// The zero value is Unavailable(pending).
type Record[T any] struct {
	value     T
	ok        bool
	reason    Reason
	fetchedAt time.Time
}

// OK wraps a complete payload fetched at the given instant.
func OK[T any](v T, at time.Time) Record[T] {
	return Record[T]{value: v, ok: true, fetchedAt: at}
}

// Unavailable builds a record without payload.
func Unavailable[T any](r Reason) Record[T] {
	if r.Kind == "" {
		r.Kind = ReasonFailed
	}
	return Record[T]{reason: r}
}

// Disabled is shorthand for Unavailable(ReasonDisabled).
func Disabled[T any](detail string) Record[T] {
	return Unavailable[T](Reason{Kind: ReasonDisabled, Detail: detail})
}

// Failed is shorthand for Unavailable(ReasonFailed) built from an error.
func Failed[T any](err error) Record[T] {
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	return Unavailable[T](Reason{Kind: ReasonFailed, Detail: detail})
}

// OK reports whether the record carries a payload.
func (r Record[T]) OK() bool { return r.ok }

// Value returns the payload and whether it is present.
func (r Record[T]) Value() (T, bool) { return r.value, r.ok }

// Reason returns why the record is unavailable. Ok records return the zero Reason.
func (r Record[T]) Reason() Reason {
	if r.ok {
		return Reason{}
	}
	if r.reason.Kind == "" {
		return Reason{Kind: ReasonPending}
	}
	return r.reason
}

// FetchedAt is the instant the payload was produced; zero for Unavailable records.
func (r Record[T]) FetchedAt() time.Time { return r.fetchedAt }

// Status is a payload-free summary of a record, suitable for logs and the preview API.
type Status struct {
	OK        bool      `json:"ok"`
	Reason    string    `json:"reason,omitempty"`
	FetchedAt time.Time `json:"fetchedAt,omitempty"`
}

// Status summarizes the record.
func (r Record[T]) Status() Status {
	if r.ok {
		return Status{OK: true, FetchedAt: r.fetchedAt}
	}
	return Status{Reason: r.Reason().String()}
}

// Adapter normalizes one external data source.
// Fetch must never panic past its own boundary; every failure is an Unavailable record.
type Adapter[T any] interface {
	Name() string
	Fetch(ctx context.Context, now time.Time) Record[T]
}

type funcAdapter[T any] struct {
	name string
	fn   func(ctx context.Context, now time.Time) Record[T]
}

func (f funcAdapter[T]) Name() string { return f.name }

func (f funcAdapter[T]) Fetch(ctx context.Context, now time.Time) Record[T] {
	return f.fn(ctx, now)
}

// Func adapts a plain function into an Adapter.
func Func[T any](name string, fn func(ctx context.Context, now time.Time) Record[T]) Adapter[T] {
	return funcAdapter[T]{name: name, fn: fn}
}

// Call invokes a.Fetch under its own timeout and converts a panic into a failed record.
// A timeout <= 0 leaves the context untouched.
func Call[T any](ctx context.Context, a Adapter[T], now time.Time, timeout time.Duration) (rec Record[T]) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			rec = Failed[T](fmt.Errorf("%s adapter panicked: %v", a.Name(), p))
		}
	}()
	return a.Fetch(ctx, now)
}
