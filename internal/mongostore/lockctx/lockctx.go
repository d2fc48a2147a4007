// Package lockctx threads a distributed lock's reentrancy set through
// context.Context rather than a process-global table, so unrelated
// logical flows never falsely share reentrancy (spec §9 design note).
// Reentrancy is scoped to one logical execution flow: derive a child
// context via WithAcquired at acquire time and pass it down to whatever
// that flow calls next; a sibling flow branching from the same parent
// context never observes the acquisition.
package lockctx

import "context"

type acquiredKey struct{}

// acquired is an immutable set: each WithAcquired derives a fresh map
// copy-on-write, so branching contexts never share mutations.
type acquired map[string]struct{}

// Has reports whether resource is already held by the logical flow ctx
// belongs to.
func Has(ctx context.Context, resource string) bool {
	set, _ := ctx.Value(acquiredKey{}).(acquired)
	_, ok := set[resource]
	return ok
}

// WithAcquired returns a child context recording that resource is now
// held by this logical flow, in addition to whatever was already held.
func WithAcquired(ctx context.Context, resource string) context.Context {
	existing, _ := ctx.Value(acquiredKey{}).(acquired)

	next := make(acquired, len(existing)+1)
	for k := range existing {
		next[k] = struct{}{}
	}
	next[resource] = struct{}{}

	return context.WithValue(ctx, acquiredKey{}, next)
}
