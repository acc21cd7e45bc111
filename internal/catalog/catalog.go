// Package catalog holds the set of known templates and keeps the keyword index
// and persistent store in sync with it.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/sitewright/internal/document"
	"github.com/hyperjump/sitewright/internal/keyword"
	"github.com/hyperjump/sitewright/internal/models"
	"github.com/hyperjump/sitewright/internal/ranking"
	"github.com/hyperjump/sitewright/internal/storage"
)

// Catalog is an ordered, concurrency-safe collection of templates. Insertion
// order is preserved and breaks ties when matching.
type Catalog struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*document.Document

	ranker *ranking.Ranker
	index  keyword.TemplateIndex
	store  storage.Storage
	onSize func(n int)
	logger *zap.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIndex keeps the given keyword index in sync with the catalog and uses it
// for description relevance when matching.
func WithIndex(idx keyword.TemplateIndex) Option {
	return func(c *Catalog) { c.index = idx }
}

// WithStore persists every added template and removes deleted ones.
func WithStore(s storage.Storage) Option {
	return func(c *Catalog) { c.store = s }
}

// WithSizeHook calls fn with the template count after every change.
func WithSizeHook(fn func(n int)) Option {
	return func(c *Catalog) { c.onSize = fn }
}

// New creates an empty catalog. A nil ranker uses the default ranking config.
func New(ranker *ranking.Ranker, opts ...Option) *Catalog {
	c := &Catalog{
		entries: make(map[string]*document.Document),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if ranker == nil {
		ranker = ranking.NewRanker(nil)
	}
	if c.index != nil {
		ranker.WithKeywordIndex(c.index)
	}
	c.ranker = ranker.WithLogger(c.logger)
	return c
}

// Add inserts a template. It fails if a template with the same id exists.
func (c *Catalog) Add(ctx context.Context, doc *document.Document) error {
	if doc == nil {
		return fmt.Errorf("nil template")
	}
	c.mu.Lock()
	if _, ok := c.entries[doc.ID]; ok {
		c.mu.Unlock()
		return fmt.Errorf("template %q already in catalog", doc.ID)
	}
	c.put(doc)
	c.mu.Unlock()
	c.notify()
	return c.sync(ctx, doc)
}

// Upsert inserts or replaces a template. A replaced template keeps its position.
func (c *Catalog) Upsert(ctx context.Context, doc *document.Document) error {
	if doc == nil {
		return fmt.Errorf("nil template")
	}
	c.mu.Lock()
	c.put(doc)
	c.mu.Unlock()
	c.notify()
	return c.sync(ctx, doc)
}

// put stores a private copy; callers hold the write lock.
func (c *Catalog) put(doc *document.Document) {
	if _, ok := c.entries[doc.ID]; !ok {
		c.order = append(c.order, doc.ID)
	}
	c.entries[doc.ID] = document.Clone(doc)
}

func (c *Catalog) notify() {
	if c.onSize != nil {
		c.onSize(c.Len())
	}
}

func (c *Catalog) sync(ctx context.Context, doc *document.Document) error {
	if c.index != nil {
		if err := c.index.Index(ctx, doc); err != nil {
			return fmt.Errorf("failed to index template: %w", err)
		}
	}
	if c.store != nil {
		if err := c.store.SaveTemplate(ctx, doc); err != nil {
			return fmt.Errorf("failed to store template: %w", err)
		}
	}
	c.logger.Debug("catalog template added", zap.String("template_id", doc.ID))
	return nil
}

// Get returns a copy of the template with the given id.
func (c *Catalog) Get(id string) (*document.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrTemplateNotFound, id)
	}
	return document.Clone(doc), nil
}

// Remove deletes a template from the catalog, the index and the store.
// It reports whether the template was present.
func (c *Catalog) Remove(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	_, ok := c.entries[id]
	if ok {
		delete(c.entries, id)
		for i, existing := range c.order {
			if existing == id {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	c.notify()
	if c.index != nil {
		if err := c.index.Delete(ctx, id); err != nil {
			return true, fmt.Errorf("failed to delete from keyword index: %w", err)
		}
	}
	if c.store != nil {
		if err := c.store.DeleteTemplate(ctx, id); err != nil {
			return true, fmt.Errorf("failed to delete template: %w", err)
		}
	}
	c.logger.Debug("catalog template removed", zap.String("template_id", id))
	return true, nil
}

// List returns copies of all templates in insertion order.
func (c *Catalog) List() []*document.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*document.Document, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, document.Clone(c.entries[id]))
	}
	return out
}

// Len returns the number of templates.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// snapshot returns the stored templates without copying; they are never mutated in place.
func (c *Catalog) snapshot() []*document.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*document.Document, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	return out
}

// MatchBest ranks every template against the profile. An empty catalog yields
// an empty result. Returned documents are shared catalog entries; clone before
// mutating them.
func (c *Catalog) MatchBest(ctx context.Context, profile *models.BusinessProfile, opts ranking.MatchOptions) []*ranking.MatchResult {
	return c.ranker.MatchBest(ctx, c.snapshot(), profile, opts)
}

// Ranker returns the ranker used for matching.
func (c *Catalog) Ranker() *ranking.Ranker {
	return c.ranker
}

// LoadFile parses one template file and upserts it.
func (c *Catalog) LoadFile(ctx context.Context, path string) (*document.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := c.Upsert(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadDir loads every *.json file directly under dir in name order. Malformed
// templates are logged and skipped. Returns the number of templates loaded.
func (c *Catalog) LoadDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read template directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsTemplateFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	n := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		path := filepath.Join(dir, name)
		doc, err := c.LoadFile(ctx, path)
		if err != nil {
			c.logger.Warn("skipping template", zap.String("path", path), zap.Error(err))
			continue
		}
		c.logger.Debug("template loaded", zap.String("path", path), zap.String("template_id", doc.ID))
		n++
	}
	c.logger.Info("template directory loaded", zap.String("dir", dir), zap.Int("count", n))
	return n, nil
}

// IsTemplateFile reports whether name looks like a template payload.
func IsTemplateFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json") && !strings.HasPrefix(name, ".")
}

// Hydrate loads every stored template into the catalog and index. Templates
// already in the catalog are replaced.
func (c *Catalog) Hydrate(ctx context.Context) (int, error) {
	if c.store == nil {
		return 0, nil
	}
	docs, err := c.store.ListTemplates(ctx, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("list stored templates: %w", err)
	}
	c.mu.Lock()
	for _, doc := range docs {
		c.put(doc)
	}
	c.mu.Unlock()
	c.notify()
	if c.index != nil {
		for _, doc := range docs {
			if err := c.index.Index(ctx, doc); err != nil {
				return 0, fmt.Errorf("failed to index template: %w", err)
			}
		}
	}
	return len(docs), nil
}
