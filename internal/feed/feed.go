/**
 * @description
 * This package implements the change feed: the live, push-based query
 * subscription the UI reads through, plus the one-shot ordered fetch. A feed
 * runs a query against the store, delivers the initial snapshot, then
 * re-delivers the full current result set whenever a change notification for
 * its collection arrives, until cancelled.
 *
 * Ordering is one algorithm with a capability probe, not two code paths: the
 * ordered query runs first, and only when the store refuses it for lack of a
 * provisioned index does the feed fetch unordered and sort in memory with the
 * same comparator. Both paths produce identical content and order; the
 * fallback is a resilience device, never a semantic one.
 *
 * Failure policy differs by shape: one-shot fetches wrap and raise store
 * errors, while live subscriptions swallow them and deliver an empty result.
 * A broken live feed degrades to "nothing to show" instead of crashing a
 * long-lived UI session.
 *
 * @dependencies
 * - context, errors, fmt, log, sort: Standard Go libraries.
 * - internal/domain, internal/store: Change events and error taxonomy.
 */

package feed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/investa/backoffice-service/internal/domain"
	"github.com/investa/backoffice-service/internal/store"
)

// Notifier delivers change notifications for one collection, optionally
// narrowed to a scope (an investor id or conversation id). The release
// function must be safe to call more than once.
type Notifier interface {
	Subscribe(ctx context.Context, collection, scopeID string) (events <-chan domain.ChangeEvent, release func(), err error)
}

// Query describes one subscribable view over a collection. FetchOrdered and
// FetchUnordered must run the same filter; Less must express exactly the
// ordering FetchOrdered requests, so the fallback path reproduces it.
type Query[T any] struct {
	Collection     string
	ScopeID        string
	FetchOrdered   func(ctx context.Context) ([]T, error)
	FetchUnordered func(ctx context.Context) ([]T, error)
	Less           func(a, b T) bool
}

// Fetch runs the query once and returns the ordered result set. When the
// store rejects the ordered query because its index is not provisioned, the
// same filter is re-issued without ordering and sorted here with a stable
// comparator; any other failure is wrapped and raised to the caller.
func Fetch[T any](ctx context.Context, q Query[T]) ([]T, error) {
	rows, err := q.FetchOrdered(ctx)
	if err == nil {
		return rows, nil
	}
	if !errors.Is(err, store.ErrIndexUnavailable) {
		return nil, fmt.Errorf("fetching %s: %w", q.Collection, err)
	}

	log.Printf("level=warn component=feed msg=\"ordering index unavailable; sorting in memory\" collection=%s scope=%s", q.Collection, q.ScopeID)
	rows, err = q.FetchUnordered(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s (unordered fallback): %w", q.Collection, err)
	}
	sort.SliceStable(rows, func(i, j int) bool { return q.Less(rows[i], rows[j]) })
	return rows, nil
}

// Subscribe opens a live feed: the callback receives the initial snapshot,
// then the full current result set after every change notification. Delivery
// stops when the returned cancel function runs or ctx ends; cancelling does
// not affect writes already in flight.
//
// Listener-level errors (transport loss, permission revocation) invoke the
// callback with an empty sequence rather than propagating.
func Subscribe[T any](ctx context.Context, n Notifier, q Query[T], callback func([]T)) (cancel func(), err error) {
	if n == nil {
		return nil, fmt.Errorf("subscribing to %s: no notifier configured", q.Collection)
	}

	subCtx, stop := context.WithCancel(ctx)

	events, release, err := n.Subscribe(subCtx, q.Collection, q.ScopeID)
	if err != nil {
		stop()
		return nil, fmt.Errorf("subscribing to %s: %w", q.Collection, err)
	}

	deliver := func() bool {
		rows, fetchErr := Fetch(subCtx, q)
		// A cancelled subscription must never invoke the callback again:
		// the consumer behind it may already be gone.
		if subCtx.Err() != nil {
			return false
		}
		if fetchErr != nil {
			log.Printf("level=warn component=feed msg=\"live fetch failed; delivering empty result\" collection=%s scope=%s err=%v", q.Collection, q.ScopeID, fetchErr)
			callback([]T{})
			return true
		}
		callback(rows)
		return true
	}

	go func() {
		defer release()
		if !deliver() {
			return
		}
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-events:
				if !ok {
					// Transport closed underneath us: fail soft.
					if subCtx.Err() == nil {
						callback([]T{})
					}
					return
				}
				if !deliver() {
					return
				}
			}
		}
	}()

	return stop, nil
}
