// Package catalog is the read-only lookup table of objects and packages
// captured in a replay cache.
package catalog

import (
	"ptbscope/internal/domain"
	"ptbscope/internal/movetype"
)

type Entry struct {
	ObjectID   string
	Version    *uint64
	Kind       domain.ObjectKind
	Modules    []string
	ObjectType movetype.Type
}

// Catalog is built once by New and never mutated afterwards, so it can be
// shared freely.
type Catalog struct {
	entries []Entry
	byID    map[string]int
}

// New indexes entries by normalized object id. A later entry with the same
// id replaces the earlier one in place.
func New(entries []Entry) *Catalog {
	c := &Catalog{
		entries: make([]Entry, 0, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		e.ObjectID = movetype.NormalizeAddress(e.ObjectID)
		if e.Kind == "" {
			e.Kind = domain.ObjectKindUnknown
		}
		e.Modules = append([]string(nil), e.Modules...)
		if i, ok := c.byID[e.ObjectID]; ok {
			c.entries[i] = e
			continue
		}
		c.byID[e.ObjectID] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c
}

func (c *Catalog) Lookup(id string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	i, ok := c.byID[movetype.NormalizeAddress(id)]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// TypeOf returns the Move type of a cached object. Packages and objects
// without a known type report false.
func (c *Catalog) TypeOf(id string) (movetype.Type, bool) {
	e, ok := c.Lookup(id)
	if !ok || e.Kind != domain.ObjectKindMoveObject || e.ObjectType.IsUnknown() {
		return movetype.Unknown(), false
	}
	return e.ObjectType, true
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Entries returns a copy of all entries in insertion order.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}
