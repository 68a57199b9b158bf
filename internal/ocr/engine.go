package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"
)

var (
	ErrUnknownEngine = errors.New("unknown ocr engine")
	ErrUnavailable   = errors.New("ocr engine unavailable")
)

// Factory builds an engine. It is where engines verify their runtime
// dependencies (executable, language data, credentials).
type Factory func(opts Options) (Engine, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes an engine factory available under name.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = f
}

// Names lists the registered engines.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New builds the engine registered under name.
func New(name string, opts Options) (Engine, error) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	return f(opts)
}

// Unavailable is the engine left behind when initialization failed. Every
// call reports the initialization error.
type Unavailable struct {
	Engine string
	Err    error
}

func (u *Unavailable) Name() string { return u.Engine }

func (u *Unavailable) Recognize(ctx context.Context, img image.Image) ([]Word, error) {
	return nil, fmt.Errorf("%w: %w", ErrUnavailable, u.Err)
}

// Lazy defers building an engine until its first use and keeps the outcome
// for the lifetime of the process.
type Lazy struct {
	name string
	opts Options

	once   sync.Once
	engine Engine
	err    error
}

// NewLazy returns a handle to the engine registered under name.
func NewLazy(name string, opts Options) *Lazy {
	return &Lazy{name: name, opts: opts}
}

func (l *Lazy) get() Engine {
	l.once.Do(func() {
		e, err := New(l.name, l.opts)
		if err != nil {
			l.err = err
			l.engine = &Unavailable{Engine: l.name, Err: err}
			return
		}
		l.engine = e
	})
	return l.engine
}

func (l *Lazy) Name() string { return l.name }

// Recognize initializes the engine on first use and delegates to it.
func (l *Lazy) Recognize(ctx context.Context, img image.Image) ([]Word, error) {
	return l.get().Recognize(ctx, img)
}

// Check initializes the engine if needed and reports whether it is usable.
func (l *Lazy) Check() error {
	l.get()
	return l.err
}
