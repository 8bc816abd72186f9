package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"crmbridge/internal/connector"
	"crmbridge/internal/lexicon"
)

// DetailOptions control what GetEntityDetails loads and returns.
type DetailOptions struct {
	IncludeAttributes bool
	IncludeOptionSets bool
	Refresh           bool
}

// Cache holds entity schema fetched from the connector. Entries live for the
// whole process; a full refresh replaces the top-level map with bare entries
// and a per-entity detail load overwrites one entry with full schema.
// Refreshes are idempotent fetch-and-replace, so a lost race between two
// concurrent refreshes is harmless.
type Cache struct {
	conn connector.Connector
	lex  *lexicon.Lexicon
	ttl  time.Duration
	now  func() time.Time

	mu          sync.Mutex
	entities    map[string]*EntitySchema
	lastRefresh time.Time
}

// NewCache builds an empty cache over the given connector. ttl is how long a
// refreshed entity list stays fresh.
func NewCache(conn connector.Connector, lex *lexicon.Lexicon, ttl time.Duration) *Cache {
	return &Cache{
		conn:     conn,
		lex:      lex,
		ttl:      ttl,
		now:      time.Now,
		entities: map[string]*EntitySchema{},
	}
}

// NormalizeEntityName resolves a user-supplied entity name to its singular
// logical name.
func (c *Cache) NormalizeEntityName(name string) string {
	return c.lex.LogicalNameFor(name)
}

// ListEntities returns cached entity summaries, refreshing first when the
// cache is stale or forceRefresh is set. A failed refresh propagates as an
// error and leaves the stale cache in place.
func (c *Cache) ListEntities(ctx context.Context, forceRefresh bool) ([]EntitySummary, error) {
	if forceRefresh || c.stale() {
		if err := c.refresh(ctx); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	summaries := make([]EntitySummary, 0, len(c.entities))
	for _, entity := range c.entities {
		summaries = append(summaries, EntitySummary{
			Name:                  entity.LogicalName,
			DisplayName:           entity.DisplayName,
			DisplayCollectionName: entity.DisplayCollectionName,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, nil
}

// GetEntityDetails returns the schema record for an entity, loading it from
// the connector when the cache is stale, the entry is absent, attributes were
// requested but never cached, or option sets were requested and none of the
// cached attributes carry one. A partially loaded entry is never returned as
// if it were complete.
func (c *Cache) GetEntityDetails(ctx context.Context, name string, opts DetailOptions) (*EntitySchema, error) {
	logical := c.NormalizeEntityName(name)

	if opts.Refresh || c.stale() {
		if err := c.refresh(ctx); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	entry, ok := c.entities[logical]
	c.mu.Unlock()

	needLoad := !ok
	if ok && opts.IncludeAttributes && !entry.AttributesLoaded {
		needLoad = true
	}
	if ok && opts.IncludeOptionSets && !hasAnyOptionSet(entry) {
		needLoad = true
	}
	if !needLoad {
		return entry, nil
	}

	raw, err := c.conn.GetEntityMetadata(ctx, logical, connector.MetadataOptions{
		IncludeAttributes: true,
		IncludeOptionSets: opts.IncludeOptionSets,
	})
	if err != nil {
		return nil, fmt.Errorf("loading entity %q: %w", logical, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("entity %q: %w", logical, connector.ErrNotFound)
	}

	loaded := schemaFromConnector(raw, true)
	c.mu.Lock()
	c.entities[logical] = loaded
	c.mu.Unlock()
	return loaded, nil
}

// GetAttributeDetails fetches one attribute straight from the connector,
// bypassing the entity cache. Option sets are requested only for attribute
// types that can carry one.
func (c *Cache) GetAttributeDetails(ctx context.Context, entity, attribute string, includeOptionSet bool) (*Attribute, error) {
	logical := c.NormalizeEntityName(entity)

	raw, err := c.conn.GetAttributeMetadata(ctx, logical, attribute, connector.MetadataOptions{})
	if err != nil {
		return nil, fmt.Errorf("loading attribute %s.%s: %w", logical, attribute, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("attribute %s.%s: %w", logical, attribute, connector.ErrNotFound)
	}

	if includeOptionSet && AttributeType(raw.AttributeType).HasOptionSet() && raw.OptionSet == nil {
		withSet, err := c.conn.GetAttributeMetadata(ctx, logical, attribute, connector.MetadataOptions{IncludeOptionSets: true})
		if err != nil {
			return nil, fmt.Errorf("loading option set for %s.%s: %w", logical, attribute, err)
		}
		raw = withSet
	}

	attr := attributeFromConnector(raw)
	return &attr, nil
}

func (c *Cache) stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRefresh.IsZero() || c.now().Sub(c.lastRefresh) > c.ttl
}

// refresh replaces the whole entity map with bare entries. The connector call
// happens outside the lock; the replace itself is atomic under it.
func (c *Cache) refresh(ctx context.Context) error {
	defs, err := c.conn.ListEntityDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("refreshing entity cache: %w", err)
	}

	fresh := make(map[string]*EntitySchema, len(defs))
	for i := range defs {
		schema := schemaFromConnector(&defs[i], false)
		fresh[schema.LogicalName] = schema
	}

	c.mu.Lock()
	c.entities = fresh
	c.lastRefresh = c.now()
	c.mu.Unlock()

	slog.Debug("entity cache refreshed", slog.Int("entities", len(fresh)))
	return nil
}

func hasAnyOptionSet(entity *EntitySchema) bool {
	for i := range entity.Attributes {
		if entity.Attributes[i].OptionSet != nil {
			return true
		}
	}
	return false
}
