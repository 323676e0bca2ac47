package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"trackclip/internal/core"
)

func newTestCache(t *testing.T, dir string) *Cache {
	t.Helper()

	cfg := core.DefaultConfig().Cache
	cfg.WithCacheDir(dir)

	c, err := Open(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	return c
}

func testMetadata(fp string) *core.Metadata {
	return &core.Metadata{
		Input:          "spotify:abc",
		Catalog:        core.CatalogSpotify,
		CatalogID:      "abc",
		Title:          "Song",
		Artist:         "Artist",
		Album:          "Album",
		DurationMs:     200000,
		YouTubeVideoID: "abc12345678",
		YouTube:        core.YouTubeMetadata{Title: "Artist - Song (Official Video)", DurationSeconds: 200, Channel: "ArtistVEVO"},
		ClipStartMs:    96500,
		ClipDurationMs: 7000,
		Options:        core.DefaultOptions(),
		Fingerprint:    fp,
		CreatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func sameMetadata(t *testing.T, got, want *core.Metadata) {
	t.Helper()

	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, expected %v", got.CreatedAt, want.CreatedAt)
	}
	g, w := *got, *want
	g.CreatedAt, w.CreatedAt = time.Time{}, time.Time{}
	if g != w {
		t.Errorf("Metadata = %+v, expected %+v", g, w)
	}
}

func TestCache_MetadataDurableRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fp := Compute("spotify:abc", core.DefaultOptions().Fields())
	want := testMetadata(fp)

	first := newTestCache(t, dir)
	if err := first.PutMetadata(fp, want); err != nil {
		t.Fatalf("PutMetadata() failed: %v", err)
	}

	got, ok := first.GetMetadata(fp)
	if !ok {
		t.Fatal("Expected fast tier hit")
	}
	sameMetadata(t, got, want)

	// A fresh instance has an empty fast tier and must read the durable record.
	second := newTestCache(t, dir)
	got, ok = second.GetMetadata(fp)
	if !ok {
		t.Fatal("Expected durable hit on fresh cache instance")
	}
	sameMetadata(t, got, want)

	stats, err := second.Stats()
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.FastEntries != 1 || stats.MetadataFiles != 1 {
		t.Errorf("Unexpected stats after durable hit: %+v", stats)
	}
}

func TestCache_GetMetadataMiss(t *testing.T) {
	c := newTestCache(t, t.TempDir())

	if _, ok := c.GetMetadata(Compute("missing", nil)); ok {
		t.Error("Expected miss for unknown fingerprint")
	}
	if _, ok := c.GetMetadata("../../etc/passwd"); ok {
		t.Error("Expected miss for malformed fingerprint")
	}
}

func TestCache_CorruptMetadataSelfHeals(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, dir)
	fp := Compute("spotify:corrupt", nil)

	path := filepath.Join(dir, "metadata", fp+".json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("Failed to write corrupt record: %v", err)
	}

	if _, ok := c.GetMetadata(fp); ok {
		t.Error("Corrupt record should be reported as a miss")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Corrupt record should be deleted, stat err = %v", err)
	}
}

func TestCache_PutMetadataDurableFailureKeepsFastTier(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, dir)
	fp := Compute("spotify:abc", nil)

	if err := os.RemoveAll(filepath.Join(dir, "metadata")); err != nil {
		t.Fatalf("Failed to remove metadata dir: %v", err)
	}

	err := c.PutMetadata(fp, testMetadata(fp))
	if !errors.Is(err, core.ErrCacheWriteFailed) {
		t.Fatalf("Expected ErrCacheWriteFailed, got %v", err)
	}

	if _, ok := c.GetMetadata(fp); !ok {
		t.Error("Fast tier should still hold the record")
	}
}

func TestCache_PutClip(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, dir)
	fp := Compute("spotify:abc", nil)

	if c.Has(fp) {
		t.Fatal("Empty cache should not have a clip")
	}

	source := filepath.Join(t.TempDir(), "render.mp4")
	if err := os.WriteFile(source, []byte("mp4 bytes"), 0o600); err != nil {
		t.Fatalf("Failed to write source: %v", err)
	}

	path, err := c.PutClip(fp, source)
	if err != nil {
		t.Fatalf("PutClip() failed: %v", err)
	}
	if path != filepath.Join(dir, "clips", fp+".mp4") {
		t.Errorf("Unexpected clip path %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil || string(data) != "mp4 bytes" {
		t.Errorf("Cached clip content mismatch: %q, %v", data, err)
	}
	if _, err := os.Stat(source); err != nil {
		t.Errorf("PutClip must not delete its source: %v", err)
	}

	got, ok := c.ClipPath(fp)
	if !ok || got != path {
		t.Errorf("ClipPath() = %s, %v", got, ok)
	}

	// A fresh instance seeds its clip index from disk.
	if !newTestCache(t, dir).Has(fp) {
		t.Error("Fresh cache instance should find the durable clip")
	}
}

func TestCache_ClipWrittenByAnotherInstance(t *testing.T) {
	dir := t.TempDir()
	a := newTestCache(t, dir)
	b := newTestCache(t, dir)
	fp := Compute("spotify:abc", nil)

	if a.Has(fp) {
		t.Fatal("Empty cache should not have a clip")
	}

	source := filepath.Join(t.TempDir(), "render.mp4")
	if err := os.WriteFile(source, []byte("mp4 bytes"), 0o600); err != nil {
		t.Fatalf("Failed to write source: %v", err)
	}
	if _, err := b.PutClip(fp, source); err != nil {
		t.Fatalf("PutClip() failed: %v", err)
	}

	if !a.Has(fp) {
		t.Error("Clip written by another instance should be visible")
	}
}

func TestCache_ClipRestoredIntoSettledDirectory(t *testing.T) {
	dir := t.TempDir()
	clipsDir := filepath.Join(dir, "clips")
	if err := os.MkdirAll(clipsDir, 0o750); err != nil {
		t.Fatalf("MkdirAll() failed: %v", err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(clipsDir, past, past); err != nil {
		t.Fatalf("Chtimes() failed: %v", err)
	}

	c := newTestCache(t, dir)
	fp := Compute("youtube:abc12345678", nil)
	other := Compute("youtube:zzz12345678", nil)

	if c.Has(other) {
		t.Fatal("Empty cache should not have a clip")
	}

	if err := os.WriteFile(filepath.Join(clipsDir, fp+".mp4"), []byte("mp4"), 0o600); err != nil {
		t.Fatalf("Failed to restore clip: %v", err)
	}

	if !c.Has(fp) {
		t.Error("Clip copied into the clips directory should be visible")
	}
	if c.Has(other) {
		t.Error("Unrelated fingerprint should still miss")
	}
}

func TestCache_PutClipMissingSource(t *testing.T) {
	c := newTestCache(t, t.TempDir())
	fp := Compute("spotify:abc", nil)

	_, err := c.PutClip(fp, filepath.Join(t.TempDir(), "nope.mp4"))
	if err == nil {
		t.Fatal("Expected error for missing source")
	}
	if c.Has(fp) {
		t.Error("Failed PutClip must not create a clip")
	}
}

func TestCache_DeleteIdempotent(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, dir)
	fp := Compute("spotify:abc", nil)

	if err := c.PutMetadata(fp, testMetadata(fp)); err != nil {
		t.Fatalf("PutMetadata() failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := c.Delete(fp); err != nil {
			t.Fatalf("Delete() #%d failed: %v", i+1, err)
		}
	}

	if _, ok := c.GetMetadata(fp); ok {
		t.Error("Deleted record should be gone from both tiers")
	}
}

func TestCache_ClearIdempotent(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, dir)

	for _, input := range []string{"a", "b", "c"} {
		fp := Compute(input, nil)
		if err := c.PutMetadata(fp, testMetadata(fp)); err != nil {
			t.Fatalf("PutMetadata() failed: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		if err := c.Clear(); err != nil {
			t.Fatalf("Clear() #%d failed: %v", i+1, err)
		}
	}

	stats, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats != (Stats{}) {
		t.Errorf("Expected empty stats after clear, got %+v", stats)
	}
}

func TestCache_FastTierExpires(t *testing.T) {
	dir := t.TempDir()
	cfg := core.DefaultConfig().Cache
	cfg.WithCacheDir(dir)
	cfg.TTL = 20 * time.Millisecond

	c, err := Open(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	fp := Compute("spotify:abc", nil)
	if err := c.PutMetadata(fp, testMetadata(fp)); err != nil {
		t.Fatalf("PutMetadata() failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	// Expiry never touches the durable tier.
	if _, ok := c.GetMetadata(fp); !ok {
		t.Fatal("Durable record should survive fast tier expiry")
	}

	time.Sleep(50 * time.Millisecond)
	if err := os.Remove(filepath.Join(dir, "metadata", fp+".json")); err != nil {
		t.Fatalf("Failed to remove durable record: %v", err)
	}
	if _, ok := c.GetMetadata(fp); ok {
		t.Error("Expired fast tier entry should not be served")
	}
}
