package cache

import (
	"net/url"
	"strings"
	"time"

	"maintenance_center/internal/lifecycle"

	gocache "github.com/patrickmn/go-cache"
)

// Resource names a family of backend reads.
type Resource string

const (
	ResourceMachine     Resource = "machine"
	ResourceMachines    Resource = "machines"
	ResourceTechnicians Resource = "technicians"
)

// Key identifies a cached read: the resource plus its filter. Filter is an
// encoded query string and empty for unfiltered reads.
type Key struct {
	Resource Resource
	Filter   string
}

// MachineKey is the key of a single machine read.
func MachineKey(id string) Key {
	return Key{Resource: ResourceMachine, Filter: url.Values{"id": {id}}.Encode()}
}

// ListKey builds a key for a filtered list; values are sorted by url.Values.Encode.
func ListKey(r Resource, filter url.Values) Key {
	return Key{Resource: r, Filter: filter.Encode()}
}

func (k Key) String() string {
	return string(k.Resource) + "|" + k.Filter
}

// Invalidation is the set of cache entries a mutation makes stale. Exact keys
// are dropped individually; every key of a listed resource is dropped.
type Invalidation struct {
	Keys      []Key
	Resources []Resource
}

// Invalidations returns what a successful action on the given machines makes
// stale. Every action changes the machine detail and may move it between
// filtered lists; assignments also change technician workloads.
func Invalidations(kind lifecycle.ActionKind, machineIDs ...string) Invalidation {
	inv := Invalidation{Resources: []Resource{ResourceMachines}}
	for _, id := range machineIDs {
		inv.Keys = append(inv.Keys, MachineKey(id))
	}
	if kind == lifecycle.ActionAssignTechnician {
		inv.Resources = append(inv.Resources, ResourceTechnicians)
	}
	return inv
}

// QueryCache is a read-through cache over backend reads.
type QueryCache struct {
	store *gocache.Cache
}

func New(ttl, cleanup time.Duration) *QueryCache {
	return &QueryCache{store: gocache.New(ttl, cleanup)}
}

// Get returns the cached value for k.
func (c *QueryCache) Get(k Key) (any, bool) {
	return c.store.Get(k.String())
}

// Set stores v under k with the default TTL.
func (c *QueryCache) Set(k Key, v any) {
	c.store.Set(k.String(), v, gocache.DefaultExpiration)
}

// Apply drops every entry covered by inv and returns how many were removed.
func (c *QueryCache) Apply(inv Invalidation) int {
	removed := 0
	for _, k := range inv.Keys {
		if _, ok := c.store.Get(k.String()); ok {
			removed++
		}
		c.store.Delete(k.String())
	}
	if len(inv.Resources) == 0 {
		return removed
	}
	for key := range c.store.Items() {
		for _, r := range inv.Resources {
			if strings.HasPrefix(key, string(r)+"|") {
				c.store.Delete(key)
				removed++
				break
			}
		}
	}
	return removed
}

// Flush empties the cache.
func (c *QueryCache) Flush() {
	c.store.Flush()
}

// Len reports the number of live entries.
func (c *QueryCache) Len() int {
	return c.store.ItemCount()
}

// Fetch returns the cached value for k or loads, stores and returns it.
// Failed loads are not cached.
func Fetch[T any](c *QueryCache, k Key, load func() (T, error)) (T, error) {
	if v, ok := c.Get(k); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(k, v)
	return v, nil
}
