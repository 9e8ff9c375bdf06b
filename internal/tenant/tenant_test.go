package tenant

import (
	"testing"

	pebblestore "github.com/rzbill/pulse/internal/storage/pebble"
)

func TestEnsureIdempotent(t *testing.T) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	m1, err := Ensure(db, "acme")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if m1.Name != "acme" || m1.CreatedAtMs == 0 {
		t.Fatalf("bad meta: %+v", m1)
	}
	m2, err := Ensure(db, "acme")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if m2.CreatedAtMs != m1.CreatedAtMs {
		t.Fatalf("meta rewritten: %+v vs %+v", m1, m2)
	}
}

func TestEnsureAppliesDefaults(t *testing.T) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	m, err := Ensure(db, "globex")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if m.PayloadMaxBytes != Defaults().PayloadMaxBytes {
		t.Fatalf("payload limit: %d", m.PayloadMaxBytes)
	}
}
