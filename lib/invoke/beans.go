package invoke

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Provider builds a managed object on demand.
type Provider func(ctx context.Context) (any, error)

// Beans is the managed-object registry handlers and injected parameters are
// resolved from. Objects are keyed by their static Go type.
type Beans struct {
	mu        sync.RWMutex
	providers map[reflect.Type]Provider
}

// NewBeans returns an empty registry.
func NewBeans() *Beans {
	return &Beans{providers: make(map[reflect.Type]Provider)}
}

// TypeOf returns the registry key for T.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Provide registers a provider for T, replacing any previous one.
func Provide[T any](b *Beans, fn func(ctx context.Context) (T, error)) {
	b.set(TypeOf[T](), func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
}

// Singleton registers a fixed instance for T.
func Singleton[T any](b *Beans, v T) {
	b.set(TypeOf[T](), func(context.Context) (any, error) {
		return v, nil
	})
}

// Resolve returns the T managed by b.
func Resolve[T any](ctx context.Context, b *Beans) (T, error) {
	var zero T
	v, err := b.Resolve(ctx, TypeOf[T]())
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("invoke: provider for %v returned %T", TypeOf[T](), v)
	}
	return t, nil
}

// Resolve looks up the provider registered for typ and calls it.
func (b *Beans) Resolve(ctx context.Context, typ reflect.Type) (any, error) {
	b.mu.RLock()
	p, ok := b.providers[typ]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNoProvider, typ)
	}
	return p(ctx)
}

// Has reports whether a provider is registered for typ.
func (b *Beans) Has(typ reflect.Type) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.providers[typ]
	return ok
}

func (b *Beans) set(typ reflect.Type, p Provider) {
	b.mu.Lock()
	b.providers[typ] = p
	b.mu.Unlock()
}
