package artifact

import (
	"encoding/json"
	"fmt"
	"sort"

	"ptbscope/internal/movetype"
)

// CacheEntry is one object or package captured in the replay cache.
// ObjectType is Unknown for packages and for entries without a usable type.
type CacheEntry struct {
	ObjectID   string
	Version    *uint64
	IsPackage  bool
	Modules    []string
	ObjectType movetype.Type
}

type Cache struct {
	Entries         []CacheEntry
	Epoch           *uint64
	Checkpoint      *uint64
	ProtocolVersion *uint64
}

type rawCache struct {
	Entries         *[]rawCacheEntry `json:"cache_entries"`
	Epoch           json.RawMessage  `json:"epoch"`
	Checkpoint      json.RawMessage  `json:"checkpoint"`
	ProtocolVersion json.RawMessage  `json:"protocol_version"`
}

type rawCacheEntry struct {
	ObjectID   json.RawMessage `json:"object_id"`
	Version    json.RawMessage `json:"version"`
	Package    *rawPackage     `json:"package"`
	MoveObject json.RawMessage `json:"move_object"`
}

type rawPackage struct {
	Modules json.RawMessage `json:"modules"`
}

func DecodeCache(payload []byte) (Cache, error) {
	var raw rawCache
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Cache{}, wrongShape(ArtifactCache, "", err)
	}
	if raw.Entries == nil {
		return Cache{}, missing(ArtifactCache, "cache_entries")
	}

	var (
		out Cache
		err error
	)
	if out.Epoch, err = decodeUint64(raw.Epoch); err != nil {
		return Cache{}, wrongShape(ArtifactCache, "epoch", err)
	}
	if out.Checkpoint, err = decodeUint64(raw.Checkpoint); err != nil {
		return Cache{}, wrongShape(ArtifactCache, "checkpoint", err)
	}
	if out.ProtocolVersion, err = decodeUint64(raw.ProtocolVersion); err != nil {
		return Cache{}, wrongShape(ArtifactCache, "protocol_version", err)
	}

	out.Entries = make([]CacheEntry, 0, len(*raw.Entries))
	for i, entry := range *raw.Entries {
		field := fmt.Sprintf("cache_entries[%d]", i)
		id, ok := decodeObjectID(entry.ObjectID)
		if !ok {
			return Cache{}, missing(ArtifactCache, field+".object_id")
		}
		version, err := decodeUint64(entry.Version)
		if err != nil {
			return Cache{}, wrongShape(ArtifactCache, field+".version", err)
		}
		decoded := CacheEntry{ObjectID: id, Version: version, ObjectType: movetype.Unknown()}
		switch {
		case entry.Package != nil:
			decoded.IsPackage = true
			decoded.Modules = moduleNames(entry.Package.Modules)
		case !isAbsent(entry.MoveObject):
			decoded.ObjectType = movetype.Normalize(entry.MoveObject)
		}
		out.Entries = append(out.Entries, decoded)
	}
	return out, nil
}

// moduleNames accepts either a list of names or a name-keyed map of module
// bytes. Map keys are sorted for a stable order.
func moduleNames(raw json.RawMessage) []string {
	if isAbsent(raw) {
		return nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err == nil {
		return names
	}
	var byName map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil
	}
	names = make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
