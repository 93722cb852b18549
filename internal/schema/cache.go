package schema

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"github.com/atlekbai/query_lowering/internal/ir"
)

const loadQuery = `
SELECT a.id, a.name, a.type
FROM metadata.attributes a
ORDER BY a.name
`

// Cache holds the attribute-type dictionary. Each load swaps in fresh maps,
// so a map returned by Types is never written to afterwards.
type Cache struct {
	mu    sync.RWMutex
	attrs map[string]*AttributeDef
	byID  map[uuid.UUID]*AttributeDef
	types map[string]ir.PrimitiveType
}

func NewCache() *Cache {
	return &Cache{
		attrs: make(map[string]*AttributeDef),
		byID:  make(map[uuid.UUID]*AttributeDef),
		types: make(map[string]ir.PrimitiveType),
	}
}

// NewCacheFromTypes builds a cache from a name to type dictionary.
// Used by the CLI and tests.
func NewCacheFromTypes(types map[string]ir.PrimitiveType) *Cache {
	c := NewCache()
	defs := make([]*AttributeDef, 0, len(types))
	for name, typ := range types {
		defs = append(defs, &AttributeDef{ID: AttributeID(name), Name: name, Type: typ})
	}
	c.swap(defs)
	return c
}

func (c *Cache) Load(ctx context.Context, pool *pgxpool.Pool) error {
	rows, err := pool.Query(ctx, loadQuery)
	if err != nil {
		return fmt.Errorf("schema cache load: %w", err)
	}
	defer rows.Close()

	var defs []*AttributeDef
	for rows.Next() {
		var (
			id      uuid.UUID
			name    string
			rawType string
		)
		if err := rows.Scan(&id, &name, &rawType); err != nil {
			return fmt.Errorf("schema cache scan: %w", err)
		}
		typ, err := ir.ParsePrimitiveType(rawType)
		if err != nil {
			return fmt.Errorf("schema cache attribute %q: %w", name, err)
		}
		defs = append(defs, &AttributeDef{ID: id, Name: name, Type: typ})
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("schema cache rows: %w", err)
	}

	c.swap(defs)
	return nil
}

// LoadFile replaces the dictionary with the contents of a YAML file.
func (c *Cache) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("schema cache read %s: %w", path, err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("schema cache parse %s: %w", path, err)
	}
	if len(f.Attributes) == 0 {
		return fmt.Errorf("schema cache parse %s: no attributes", path)
	}

	defs := make([]*AttributeDef, 0, len(f.Attributes))
	for name, rawType := range f.Attributes {
		typ, err := ir.ParsePrimitiveType(rawType)
		if err != nil {
			return fmt.Errorf("schema cache attribute %q: %w", name, err)
		}
		defs = append(defs, &AttributeDef{ID: AttributeID(name), Name: name, Type: typ})
	}

	c.swap(defs)
	return nil
}

func (c *Cache) swap(defs []*AttributeDef) {
	attrs := make(map[string]*AttributeDef, len(defs))
	byID := make(map[uuid.UUID]*AttributeDef, len(defs))
	types := make(map[string]ir.PrimitiveType, len(defs))
	for _, d := range defs {
		attrs[d.Name] = d
		byID[d.ID] = d
		types[d.Name] = d.Type
	}

	c.mu.Lock()
	c.attrs = attrs
	c.byID = byID
	c.types = types
	c.mu.Unlock()
}

func (c *Cache) Get(name string) *AttributeDef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attrs[name]
}

// GetByID finds an attribute by its UUID.
func (c *Cache) GetByID(id uuid.UUID) *AttributeDef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byID[id]
}

// List returns every attribute ordered by name.
func (c *Cache) List() []*AttributeDef {
	c.mu.RLock()
	defs := slices.Collect(maps.Values(c.attrs))
	c.mu.RUnlock()

	slices.SortFunc(defs, func(a, b *AttributeDef) int {
		return strings.Compare(a.Name, b.Name)
	})
	return defs
}

// Types returns the current dictionary. Callers must treat it as read-only.
func (c *Cache) Types() map[string]ir.PrimitiveType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.types
}

// Snapshot returns a private copy of the dictionary.
func (c *Cache) Snapshot() map[string]ir.PrimitiveType {
	return maps.Clone(c.Types())
}

// AttributeCount returns the number of loaded attributes.
func (c *Cache) AttributeCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.attrs)
}
