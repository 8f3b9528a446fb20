package archive

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Cache holds name-to-entity lookups for every archive entity kind plus
// custom field definitions. It never refreshes itself; callers refresh it
// explicitly on startup and after entity creation. Reads are safe for
// concurrent use.
type Cache struct {
	client *Client
	logger *slog.Logger

	mu       sync.RWMutex
	entities map[EntityKind]map[string]Entity
	ordered  map[EntityKind][]Entity
	fields   map[string]CustomField
	options  map[int]map[string]SelectOption
	version  uint64
}

// NewCache creates an empty Cache backed by the given client.
func NewCache(client *Client, logger *slog.Logger) *Cache {
	return &Cache{
		client: client,
		logger: logger.With("system", "cache"),
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Refresh reloads every entity category from the archive. Categories load
// concurrently; the cache swaps to the new snapshot only when all succeed.
func (c *Cache) Refresh(ctx context.Context) error {
	entities := make(map[EntityKind][]Entity, len(Kinds))
	var fields []CustomField
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)

	for _, kind := range Kinds {
		g.Go(func() error {
			list, err := c.client.Entities(gctx, kind)
			if err != nil {
				return fmt.Errorf("load %s: %w", kind, err)
			}
			mu.Lock()
			entities[kind] = list
			mu.Unlock()
			return nil
		})
	}

	g.Go(func() error {
		list, err := c.client.CustomFields(gctx)
		if err != nil {
			return fmt.Errorf("load custom fields: %w", err)
		}
		mu.Lock()
		fields = list
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	lookup := make(map[EntityKind]map[string]Entity, len(Kinds))
	ordered := make(map[EntityKind][]Entity, len(Kinds))
	for kind, list := range entities {
		m := make(map[string]Entity, len(list))
		for _, e := range list {
			m[normalize(e.Name)] = e
		}
		lookup[kind] = m
		ordered[kind] = list
	}

	fieldLookup := make(map[string]CustomField, len(fields))
	optionLookup := make(map[int]map[string]SelectOption)
	for _, f := range fields {
		fieldLookup[normalize(f.Name)] = f
		if len(f.ExtraData.SelectOptions) > 0 {
			opts := make(map[string]SelectOption, len(f.ExtraData.SelectOptions))
			for _, o := range f.ExtraData.SelectOptions {
				opts[normalize(o.Label)] = o
			}
			optionLookup[f.ID] = opts
		}
	}

	c.mu.Lock()
	c.entities = lookup
	c.ordered = ordered
	c.fields = fieldLookup
	c.options = optionLookup
	c.version++
	version := c.version
	c.mu.Unlock()

	c.logger.Info("cache refreshed",
		"version", version,
		"tags", len(entities[KindTag]),
		"correspondents", len(entities[KindCorrespondent]),
		"document_types", len(entities[KindDocumentType]),
		"storage_paths", len(entities[KindStoragePath]),
		"custom_fields", len(fields),
	)
	return nil
}

// Lookup finds an entity by case-insensitive name match.
func (c *Cache) Lookup(kind EntityKind, name string) (Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entities[kind][normalize(name)]
	return e, ok
}

// Entities returns the cached entities of a kind in archive order.
func (c *Cache) Entities(kind EntityKind) []Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list := c.ordered[kind]
	out := make([]Entity, len(list))
	copy(out, list)
	return out
}

// Names returns the cached entity names of a kind in archive order.
func (c *Cache) Names(kind EntityKind) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list := c.ordered[kind]
	names := make([]string, len(list))
	for i, e := range list {
		names[i] = e.Name
	}
	return names
}

// Field finds a custom field definition by case-insensitive name match.
func (c *Cache) Field(name string) (CustomField, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, ok := c.fields[normalize(name)]
	return f, ok
}

// Option finds a select option of a field by case-insensitive label match.
func (c *Cache) Option(fieldID int, label string) (SelectOption, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	o, ok := c.options[fieldID][normalize(label)]
	return o, ok
}

// OptionLabels returns the option labels of a select field.
func (c *Cache) OptionLabels(fieldID int) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	opts := c.options[fieldID]
	labels := make([]string, 0, len(opts))
	for _, o := range opts {
		labels = append(labels, o.Label)
	}
	sort.Strings(labels)
	return labels
}

// Version increments on every successful refresh. Consumers that derive
// state from the cache (prompt text, wellknown ids) use it to detect
// staleness.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}
