package tenant

import (
	"encoding/json"
	"time"

	pebblestore "github.com/rzbill/pulse/internal/storage/pebble"
)

// Meta holds tenant metadata and optional limits/overrides.
type Meta struct {
	Name            string `json:"name"`
	CreatedAtMs     int64  `json:"createdAtMs"`
	PayloadMaxBytes int    `json:"payloadMaxBytes"`
}

// Defaults returns opinionated defaults for new tenants.
func Defaults() Meta {
	return Meta{
		PayloadMaxBytes: 1 << 20, // 1 MiB
	}
}

var tenantMetaPrefix = []byte("tmeta/")

func metaKey(name string) []byte {
	k := make([]byte, 0, len(tenantMetaPrefix)+len(name))
	k = append(k, tenantMetaPrefix...)
	k = append(k, name...)
	return k
}

// Ensure creates a tenant meta record if absent, returning the effective meta.
// Idempotent: returns existing if already present.
func Ensure(db *pebblestore.DB, name string) (Meta, error) {
	return EnsureWith(db, name, Defaults())
}

// EnsureWith is Ensure with caller-provided defaults for new tenants.
func EnsureWith(db *pebblestore.DB, name string, defaults Meta) (Meta, error) {
	key := metaKey(name)
	if b, err := db.Get(key); err == nil && len(b) > 0 {
		var m Meta
		if err := json.Unmarshal(b, &m); err == nil {
			return m, nil
		}
		// fallthrough to rewrite if corrupted
	}
	m := defaults
	m.Name = name
	m.CreatedAtMs = time.Now().UnixMilli()
	b, err := json.Marshal(m)
	if err != nil {
		return Meta{}, err
	}
	if err := db.Set(key, b); err != nil {
		return Meta{}, err
	}
	return m, nil
}
