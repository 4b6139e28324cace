package score

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tjparnell/biotoolbox-sub009/internal/chrom"
)

// Resource is an opened backend handle together with its resolved
// chromosome names.
type Resource interface {
	Path() string
	Chroms() *chrom.Map
	Close() error
}

// Adapter is implemented by each storage family. Open resolves and caches
// a dataset; the three retrieval operations consume a validated descriptor.
type Adapter interface {
	Open(ctx *Context, id string) (Resource, error)
	// Score returns one summary value for the region.
	Score(ctx *Context, p *Params) (float64, error)
	// Scores returns the unordered raw values for the region.
	Scores(ctx *Context, p *Params) ([]float64, error)
	// PositionScores returns reconciled values keyed by 1-based position.
	PositionScores(ctx *Context, p *Params) (map[int64]float64, error)
}

// Options carries resolved configuration values consumed by adapters.
type Options struct {
	MinMapQ     uint8  // minimum alignment mapping quality
	Workers     int    // bounded worker count for whole-file passes
	ChromPrefix string // conventional chromosome prefix, usually "chr"
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{ChromPrefix: chrom.DefaultPrefix}
}

// Context owns the per-process caches: opened resources keyed by path and
// adapter-local memo slots such as the alignment dispatch table. A Context
// is not safe for concurrent use; concurrent workers each take a Fork.
type Context struct {
	Logger  *zap.Logger
	Options Options

	resources map[string]Resource
	locals    map[any]any
}

// NewContext creates an empty context.
func NewContext(opts Options) *Context {
	if opts.ChromPrefix == "" {
		opts.ChromPrefix = chrom.DefaultPrefix
	}
	return &Context{
		Logger:    zap.NewNop(),
		Options:   opts,
		resources: make(map[string]Resource),
		locals:    make(map[any]any),
	}
}

// SetLogger sets the logger used by adapters.
func (c *Context) SetLogger(l *zap.Logger) {
	c.Logger = l
}

// Fork returns an independent context with the same logger and options but
// no cached resources. Handles are never shared across a fork.
func (c *Context) Fork() *Context {
	f := NewContext(c.Options)
	f.Logger = c.Logger
	return f
}

// Resource returns the cached resource for key, opening it on first use.
// Failed opens are not cached.
func (c *Context) Resource(key string, open func() (Resource, error)) (Resource, error) {
	if r, ok := c.resources[key]; ok {
		return r, nil
	}
	r, err := open()
	if err != nil {
		return nil, err
	}
	c.resources[key] = r
	c.Logger.Debug("opened resource", zap.String("path", key))
	return r, nil
}

// Cached reports whether a resource is cached under key.
func (c *Context) Cached(key string) bool {
	_, ok := c.resources[key]
	return ok
}

// ResourceCount returns the number of cached resources.
func (c *Context) ResourceCount() int {
	return len(c.resources)
}

// Local returns the adapter-local value stored under key, creating it with
// init on first use. Keys should be unexported types owned by the adapter.
func (c *Context) Local(key any, init func() any) any {
	if v, ok := c.locals[key]; ok {
		return v
	}
	v := init()
	c.locals[key] = v
	return v
}

// Close closes every cached resource and empties the cache.
func (c *Context) Close() error {
	var first error
	for key, r := range c.resources {
		if err := r.Close(); err != nil && first == nil {
			first = fmt.Errorf("close %s: %w", key, err)
		}
		delete(c.resources, key)
	}
	return first
}
