package dedup

import (
	"fmt"
	"testing"
	"time"
)

func TestFreshThenDuplicate(t *testing.T) {
	f := New(time.Minute, 100)
	if !f.Fresh("a") {
		t.Fatalf("first sighting must be fresh")
	}
	if f.Fresh("a") {
		t.Fatalf("second sighting inside the TTL must be a duplicate")
	}
	if !f.Fresh("b") {
		t.Fatalf("a different id is fresh")
	}
}

func TestExpiryMakesIDFreshAgain(t *testing.T) {
	f := New(10*time.Millisecond, 100)
	if !f.Fresh("a") {
		t.Fatalf("first sighting must be fresh")
	}
	time.Sleep(20 * time.Millisecond)
	if !f.Fresh("a") {
		t.Fatalf("expired id should be fresh again")
	}
}

func TestEmptyIDAlwaysFresh(t *testing.T) {
	f := New(time.Minute, 100)
	if !f.Fresh("") || !f.Fresh("") {
		t.Fatalf("empty ids must never be deduplicated")
	}
}

func TestCapacitySweepKeepsLiveEntries(t *testing.T) {
	f := New(time.Minute, 10)
	for i := 0; i < 50; i++ {
		f.Fresh(fmt.Sprintf("id-%d", i))
	}
	// Entries are all inside the TTL, so over-capacity sweeps cannot
	// evict them into reporting fresh again.
	if f.Fresh("id-0") {
		t.Fatalf("live entry was forgotten by the sweep")
	}
}
