package distcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hupe1980/flowclust/blobstore"
	"github.com/hupe1980/flowclust/distance"
	"github.com/hupe1980/flowclust/internal/cache"
	"github.com/hupe1980/flowclust/internal/resource"
	"github.com/hupe1980/flowclust/matrix"
)

// ErrMiss is returned by Load when no committed entry exists.
var ErrMiss = errors.New("distcache: miss")

// DefaultMemoryBytes bounds the in-memory LRU.
const DefaultMemoryBytes = 256 << 20

// Key addresses one matrix.
type Key struct {
	// Dataset is the dataset fingerprint, see matrix.Dense.Fingerprint.
	Dataset string
	Metric  distance.Metric
}

// NewKey fingerprints data.
func NewKey(data *matrix.Dense, m distance.Metric) Key {
	return Key{Dataset: data.Fingerprint(), Metric: m}
}

func (k Key) name() string {
	return fmt.Sprintf("distcache/%s/norm%d.txt", k.Dataset, int(k.Metric))
}

// Entry is an index record of a committed matrix.
type Entry struct {
	Name    string
	Dataset string
	Metric  distance.Metric
	Rows    int
	Bytes   int64
	Created time.Time
}

// Index records committed entries. Register must be idempotent.
type Index interface {
	Lookup(ctx context.Context, name string) (Entry, bool, error)
	Register(ctx context.Context, e Entry) error
}

// Cache is a content-addressed distance-matrix cache.
type Cache struct {
	store       blobstore.Store
	compression Compression
	index       Index
	rc          *resource.Controller
	mem         *cache.LRU
	memBytes    int64
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithCompression sets the at-rest compression.
func WithCompression(c Compression) Option { return func(cc *Cache) { cc.compression = c } }

// WithIndex registers committed entries in idx.
func WithIndex(idx Index) Option { return func(c *Cache) { c.index = idx } }

// WithResourceController throttles IO and charges the memory tier against rc.
func WithResourceController(rc *resource.Controller) Option {
	return func(c *Cache) { c.rc = rc }
}

// WithMemoryBytes bounds the in-memory tier. Zero disables it.
func WithMemoryBytes(n int64) Option { return func(c *Cache) { c.memBytes = n } }

// WithLogger sets the logger for non-fatal cache failures.
func WithLogger(l *slog.Logger) Option { return func(c *Cache) { c.logger = l } }

// New returns a cache backed by store.
func New(store blobstore.Store, opts ...Option) *Cache {
	c := &Cache{
		store:    store,
		memBytes: DefaultMemoryBytes,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.memBytes > 0 {
		c.mem = cache.NewLRU(c.memBytes, c.rc)
	}
	return c
}

// Name returns the blob name for key.
func (c *Cache) Name(key Key) string {
	return key.name() + c.compression.Suffix()
}

// Load returns the n x n matrix stored under key, or ErrMiss.
func (c *Cache) Load(ctx context.Context, key Key, n int) (*matrix.Dense, error) {
	name := c.Name(key)
	if c.mem != nil {
		if m, ok := c.mem.Get(name); ok && m.Rows() == n {
			return m, nil
		}
	}

	if c.index != nil {
		if _, ok, err := c.index.Lookup(ctx, name); err != nil {
			return nil, err
		} else if !ok {
			return nil, ErrMiss
		}
	}

	blob, err := c.store.Open(ctx, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, ErrMiss
		}
		return nil, err
	}
	defer blob.Close()

	if err := c.rc.AcquireIO(ctx, int(blob.Size())); err != nil {
		return nil, err
	}

	src := blobstore.NewReader(blob)
	if mm, ok := blob.(blobstore.Mappable); ok {
		if b, err := mm.Bytes(); err == nil {
			src = bytes.NewReader(b)
		}
	}
	r, err := c.compression.reader(src)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	m, err := Decode(r, n)
	if err != nil {
		return nil, fmt.Errorf("distcache: %s: %w", name, err)
	}
	if c.mem != nil {
		c.mem.Set(name, m)
	}
	return m, nil
}

// Save stores d under key and registers it in the index.
func (c *Cache) Save(ctx context.Context, key Key, d *matrix.Dense) error {
	name := c.Name(key)
	w, err := c.store.Create(ctx, name)
	if err != nil {
		return err
	}

	cw := &throttledWriter{ctx: ctx, w: w, rc: c.rc}
	zw, err := c.compression.writer(cw)
	if err != nil {
		_ = w.Abort()
		return err
	}
	if err := Encode(zw, d); err != nil {
		_ = w.Abort()
		return err
	}
	if err := zw.Close(); err != nil {
		_ = w.Abort()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	if c.index != nil {
		err := c.index.Register(ctx, Entry{
			Name:    name,
			Dataset: key.Dataset,
			Metric:  key.Metric,
			Rows:    d.Rows(),
			Bytes:   cw.n,
			Created: c.now().UTC(),
		})
		if err != nil {
			return err
		}
	}
	if c.mem != nil {
		c.mem.Set(name, d)
	}
	return nil
}

// GetOrCompute loads the matrix for key, computing and saving it on a miss.
// Corrupt or mis-sized entries are recomputed and overwritten. Save failures
// are logged and do not fail the call.
func (c *Cache) GetOrCompute(ctx context.Context, key Key, n int, compute func(context.Context) (*matrix.Dense, error)) (m *matrix.Dense, hit bool, err error) {
	m, err = c.Load(ctx, key, n)
	switch {
	case err == nil:
		return m, true, nil
	case errors.Is(err, ErrMiss):
	case ctx.Err() != nil:
		return nil, false, ctx.Err()
	default:
		c.logger.WarnContext(ctx, "distance cache entry unreadable, recomputing", "name", c.Name(key), "error", err)
	}

	m, err = compute(ctx)
	if err != nil {
		return nil, false, err
	}
	if err := c.Save(ctx, key, m); err != nil {
		c.logger.WarnContext(ctx, "distance cache save failed", "name", c.Name(key), "error", err)
	}
	return m, false, nil
}

// Close drops the in-memory tier and returns its charge to the resource
// controller. Stored blobs are kept.
func (c *Cache) Close() error {
	if c.mem != nil {
		c.mem.Purge()
	}
	return nil
}

// Stats returns in-memory hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	if c.mem == nil {
		return 0, 0
	}
	return c.mem.Stats()
}

type throttledWriter struct {
	ctx context.Context
	w   io.Writer
	rc  *resource.Controller
	n   int64
}

func (t *throttledWriter) Write(p []byte) (int, error) {
	if err := t.rc.AcquireIO(t.ctx, len(p)); err != nil {
		return 0, err
	}
	n, err := t.w.Write(p)
	t.n += int64(n)
	return n, err
}
