package channel

import (
	"context"

	"transmit/internal/types"
)

// ResolverFunc computes a configuration value from the dispatch context at
// generation time. Resolvers may read dc freely but must not mutate the
// channel that owns them.
type ResolverFunc[T any] func(ctx context.Context, dc *types.DispatchContext) (T, error)

// Value is a configurable field that is either a fixed value or a resolver.
// The zero Value is unset.
type Value[T any] struct {
	static   T
	resolver ResolverFunc[T]
	set      bool
}

// Static returns a Value fixed at v.
func Static[T any](v T) Value[T] {
	return Value[T]{static: v, set: true}
}

// Resolve returns a Value computed by fn at generation time. A nil fn yields
// an unset Value.
func Resolve[T any](fn ResolverFunc[T]) Value[T] {
	if fn == nil {
		return Value[T]{}
	}
	return Value[T]{resolver: fn, set: true}
}

// IsSet reports whether either variant was configured.
func (v Value[T]) IsSet() bool {
	return v.set
}

// IsResolver reports whether the value is computed per dispatch.
func (v Value[T]) IsResolver() bool {
	return v.resolver != nil
}

// StaticValue returns the fixed value and true, or the zero value and false
// when the Value is unset or a resolver.
func (v Value[T]) StaticValue() (T, bool) {
	if !v.set || v.resolver != nil {
		var zero T
		return zero, false
	}
	return v.static, true
}

// Get evaluates the value once against dc. An unset Value yields the zero
// value. Resolver errors are returned as-is.
func (v Value[T]) Get(ctx context.Context, dc *types.DispatchContext) (T, error) {
	if v.resolver != nil {
		return v.resolver(ctx, dc)
	}
	return v.static, nil
}
