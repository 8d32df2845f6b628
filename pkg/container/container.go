// Package container is the service registry the backend is assembled from.
//
// Services are registered under a name with a factory and resolved lazily. Singleton
// registrations are constructed at most once per container: callers that ask for a
// singleton while its factory is still running wait for that same construction instead
// of starting another one. A failed construction is not cached, so the next Resolve
// runs the factory again.
package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidName      = errors.New("container: service name is required")
	ErrNilFactory       = errors.New("container: factory is required")
	ErrDuplicateService = errors.New("container: service already registered")
	ErrServiceNotFound  = errors.New("container: service not registered")
	ErrTypeMismatch     = errors.New("container: service has unexpected type")
)

// CycleError is returned when a factory resolves a service that is already being
// constructed further up the same resolution chain.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "container: dependency cycle: " + strings.Join(e.Chain, " -> ")
}

// Resolver resolves services by name. Factories receive the container as a Resolver.
type Resolver interface {
	Resolve(ctx context.Context, name string) (any, error)
}

// Factory builds a service. Dependencies must be resolved with the ctx the factory
// receives so that cycles are detected.
type Factory func(ctx context.Context, r Resolver) (any, error)

// ObserverFunc is notified after every factory invocation.
type ObserverFunc func(name string, elapsed time.Duration, err error)

type registration struct {
	name      string
	factory   Factory
	singleton bool
}

type registerOptions struct {
	singleton bool
	override  bool
}

// Option configures a single registration.
type Option func(*registerOptions)

// WithTransient makes the factory run on every Resolve; nothing is cached.
func WithTransient() Option {
	return func(o *registerOptions) { o.singleton = false }
}

// WithOverride allows replacing an existing registration. A cached instance of the
// replaced registration is dropped.
func WithOverride() Option {
	return func(o *registerOptions) { o.override = true }
}

// Container holds registrations and resolved singletons.
type Container struct {
	mu       sync.RWMutex
	regs     map[string]*registration
	resolved map[string]any
	order    []string

	flights singleflight.Group

	// waits maps a service under construction to the singletons its factory is
	// blocked on, with a count per concurrent resolution.
	waitMu sync.Mutex
	waits  map[string]map[string]int

	logger   *zap.Logger
	observer ObserverFunc
}

// ContainerOption configures a Container.
type ContainerOption func(*Container)

func WithLogger(logger *zap.Logger) ContainerOption {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithObserver(fn ObserverFunc) ContainerOption {
	return func(c *Container) { c.observer = fn }
}

func New(opts ...ContainerOption) *Container {
	c := &Container{
		regs:     make(map[string]*registration),
		resolved: make(map[string]any),
		waits:    make(map[string]map[string]int),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register stores factory under name. Registrations are singletons unless
// WithTransient is passed.
func (c *Container) Register(name string, factory Factory, opts ...Option) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	if factory == nil {
		return ErrNilFactory
	}

	o := registerOptions{singleton: true}
	for _, opt := range opts {
		opt(&o)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.regs[name]; exists {
		if !o.override {
			return fmt.Errorf("%w: %q", ErrDuplicateService, name)
		}
		c.forgetLocked(name)
		c.logger.Warn("service registration overridden", zap.String("service", name))
	}

	c.regs[name] = &registration{name: name, factory: factory, singleton: o.singleton}
	return nil
}

// RegisterValue registers an already constructed singleton.
func (c *Container) RegisterValue(name string, value any, opts ...Option) error {
	if err := c.Register(name, func(context.Context, Resolver) (any, error) { return value, nil }, opts...); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if reg := c.regs[name]; reg != nil && reg.singleton {
		c.resolved[name] = value
		c.order = append(c.order, name)
	}
	return nil
}

// MustRegister panics when registration fails. Meant for process wiring.
func (c *Container) MustRegister(name string, factory Factory, opts ...Option) {
	if err := c.Register(name, factory, opts...); err != nil {
		panic(err)
	}
}

// Resolve returns the service registered under name, constructing it if needed.
func (c *Container) Resolve(ctx context.Context, name string) (any, error) {
	chain := chainFromContext(ctx)
	for _, n := range chain {
		if n == name {
			cycle := append(append([]string(nil), chain...), name)
			return nil, &CycleError{Chain: cycle}
		}
	}

	c.mu.RLock()
	reg, ok := c.regs[name]
	value, done := c.resolved[name]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrServiceNotFound, name)
	}
	if done {
		return value, nil
	}

	fctx := withChain(ctx, append(chain[:len(chain):len(chain)], name))

	if !reg.singleton {
		return c.construct(fctx, reg)
	}

	// Another goroutine may be constructing name while waiting, directly or
	// through others, on the service this caller is constructing.
	if len(chain) > 0 {
		owner := chain[len(chain)-1]
		if path := c.startWaiting(owner, name); path != nil {
			cycle := append(append([]string(nil), chain...), path...)
			return nil, &CycleError{Chain: cycle}
		}
		defer c.stopWaiting(owner, name)
	}

	value, err, _ := c.flights.Do(name, func() (any, error) {
		// A flight that finished between the cache check above and this one has
		// already stored the value.
		c.mu.RLock()
		cached, ok := c.resolved[name]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		v, err := c.construct(fctx, reg)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.regs[name] == reg {
			c.resolved[name] = v
			c.order = append(c.order, name)
		}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// ResolveAsync resolves name in the background.
func (c *Container) ResolveAsync(ctx context.Context, name string) *Future {
	f := newFuture()
	go func() {
		f.complete(c.Resolve(ctx, name))
	}()
	return f
}

// Has reports whether name is registered.
func (c *Container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.regs[name]
	return ok
}

// Names returns the registered service names, sorted.
func (c *Container) Names() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.regs))
	for name := range c.regs {
		names = append(names, name)
	}
	c.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Resolved reports whether a singleton has been constructed.
func (c *Container) Resolved(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.resolved[name]
	return ok
}

// Close closes constructed singletons in reverse construction order and forgets them.
func (c *Container) Close(ctx context.Context) error {
	c.mu.Lock()
	order := c.order
	resolved := c.resolved
	c.order = nil
	c.resolved = make(map[string]any)
	c.mu.Unlock()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		if err := closeValue(ctx, resolved[name]); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Container) construct(ctx context.Context, reg *registration) (value any, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("container: factory %q panicked: %v", reg.name, r)
		}
		elapsed := time.Since(start)
		if c.observer != nil {
			c.observer(reg.name, elapsed, err)
		}
		if err != nil {
			c.logger.Warn("service construction failed",
				zap.String("service", reg.name), zap.Duration("elapsed", elapsed), zap.Error(err))
			return
		}
		if reg.singleton {
			c.logger.Debug("service constructed", zap.String("service", reg.name), zap.Duration("elapsed", elapsed))
		}
	}()

	value, err = reg.factory(ctx, c)
	if err != nil {
		var cycle *CycleError
		if errors.As(err, &cycle) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve %s: %w", reg.name, err)
	}
	return value, nil
}

// startWaiting records that owner waits on name, unless name already waits on
// owner. In that case the wait path from name back to owner is returned.
func (c *Container) startWaiting(owner, name string) []string {
	c.waitMu.Lock()
	defer c.waitMu.Unlock()

	if path := c.waitPathLocked(name, owner, map[string]bool{}); path != nil {
		return path
	}
	if c.waits[owner] == nil {
		c.waits[owner] = make(map[string]int)
	}
	c.waits[owner][name]++
	return nil
}

func (c *Container) stopWaiting(owner, name string) {
	c.waitMu.Lock()
	defer c.waitMu.Unlock()

	c.waits[owner][name]--
	if c.waits[owner][name] <= 0 {
		delete(c.waits[owner], name)
	}
	if len(c.waits[owner]) == 0 {
		delete(c.waits, owner)
	}
}

func (c *Container) waitPathLocked(from, to string, seen map[string]bool) []string {
	if from == to {
		return []string{to}
	}
	if seen[from] {
		return nil
	}
	seen[from] = true
	for next := range c.waits[from] {
		if path := c.waitPathLocked(next, to, seen); path != nil {
			return append([]string{from}, path...)
		}
	}
	return nil
}

func (c *Container) forgetLocked(name string) {
	delete(c.resolved, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func closeValue(ctx context.Context, v any) error {
	switch closer := v.(type) {
	case interface{ Close(context.Context) error }:
		return closer.Close(ctx)
	case io.Closer:
		return closer.Close()
	case interface{ Close() }:
		closer.Close()
	}
	return nil
}

// Get resolves name and asserts its type.
func Get[T any](ctx context.Context, r Resolver, name string) (T, error) {
	var zero T
	v, err := r.Resolve(ctx, name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q is %T", ErrTypeMismatch, name, v)
	}
	return t, nil
}

// MustGet is Get for process wiring; it panics on error.
func MustGet[T any](ctx context.Context, r Resolver, name string) T {
	v, err := Get[T](ctx, r, name)
	if err != nil {
		panic(err)
	}
	return v
}

type chainKey struct{}

func chainFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	chain, _ := ctx.Value(chainKey{}).([]string)
	return chain
}

func withChain(ctx context.Context, chain []string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, chainKey{}, chain)
}
