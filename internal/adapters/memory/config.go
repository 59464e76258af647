package memory

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
)

type configEntry struct {
	level domain.ConfigurationLevel
	value string
}

// Configuration resolves keys like the database resolver: the most specific
// scope matching the level wins.
type Configuration struct {
	mu      sync.RWMutex
	entries map[domain.ConfigurationKey][]configEntry
}

func NewConfiguration() *Configuration {
	return &Configuration{entries: map[domain.ConfigurationKey][]configEntry{}}
}

func (c *Configuration) Set(level domain.ConfigurationLevel, key domain.ConfigurationKey, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = append(c.entries[key], configEntry{level: level, value: value})
}

// SetSystem stores a system-wide value.
func (c *Configuration) SetSystem(key domain.ConfigurationKey, value string) {
	c.Set(domain.ConfigurationLevel{Scope: domain.ScopeSystem}, key, value)
}

func (c *Configuration) GetFor(ctx context.Context, keys []domain.ConfigurationKey, level domain.ConfigurationLevel) (domain.ConfigurationValues, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(domain.ConfigurationValues, len(keys))
	for _, k := range keys {
		best := -1
		v := domain.ConfigurationValue{Key: k}
		for _, e := range c.entries[k] {
			if !e.level.Covers(level) {
				continue
			}
			if p := e.level.Scope.Priority(); p > best {
				best = p
				v.Value = e.value
				v.Present = true
			}
		}
		out[k] = v
	}
	return out, nil
}

// Catalog is a fixed set of purchase contexts.
type Catalog struct {
	mu       sync.RWMutex
	contexts map[domain.PurchaseContextType]map[string]domain.PurchaseContext
}

func NewCatalog(pcs ...domain.PurchaseContext) *Catalog {
	c := &Catalog{contexts: map[domain.PurchaseContextType]map[string]domain.PurchaseContext{}}
	for _, pc := range pcs {
		c.Put(pc)
	}
	return c
}

func (c *Catalog) Put(pc domain.PurchaseContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.contexts[pc.Type()] == nil {
		c.contexts[pc.Type()] = map[string]domain.PurchaseContext{}
	}
	c.contexts[pc.Type()][pc.ID()] = pc
}

func (c *Catalog) PurchaseContext(ctx context.Context, t domain.PurchaseContextType, id string) (domain.PurchaseContext, error) {
	switch t {
	case domain.PurchaseContextEvent, domain.PurchaseContextSubscription:
	default:
		return nil, errors.Mark(errors.Newf("purchase context type %q", t), domain.ErrUnsupportedPurchaseContext)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	pc, ok := c.contexts[t][id]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "%s %s", t, id)
	}
	return pc, nil
}
