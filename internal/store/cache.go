// Package store provides the fingerprinted two-tier cache for metadata records
// and rendered clips.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"trackclip/internal/core"
)

const (
	metadataExt = ".json"
	clipExt     = ".mp4"
	tempPrefix  = ".tmp-"

	// mtimeSlack covers filesystems with coarse directory timestamps. A scan
	// taken closer than this to the directory's mtime may have missed a write
	// carrying the same timestamp.
	mtimeSlack = 2 * time.Second
)

// Cache stores metadata in a fast in-memory tier backed by JSON files and clips
// as MP4 files. Fast tier eviction never touches durable files.
type Cache struct {
	logger      *zap.Logger
	metadataDir string
	clipsDir    string
	fast        *expirable.LRU[string, core.Metadata]
	clips       *clipIndex

	scanMutex   sync.Mutex
	scannedDir  time.Time
	scanSettled bool
}

// Stats describes the current cache content.
type Stats struct {
	FastEntries   int   `json:"fast_entries"`
	MetadataFiles int   `json:"metadata_files"`
	ClipFiles     int   `json:"clip_files"`
	ClipBytes     int64 `json:"clip_bytes"`
}

// Open creates the cache directories and seeds the clip index from disk.
func Open(cfg core.CacheConfig, logger *zap.Logger) (*Cache, error) {
	for _, dir := range []string{cfg.MetadataDir, cfg.ClipsDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
		}
	}

	c := &Cache{
		logger:      logger,
		metadataDir: cfg.MetadataDir,
		clipsDir:    cfg.ClipsDir,
		fast:        expirable.NewLRU[string, core.Metadata](cfg.MaxEntries, nil, cfg.TTL),
		clips:       newClipIndex(cfg.BloomCapacity, cfg.BloomFalsePositiveRate),
	}

	known, err := c.rescanClips()
	if err != nil {
		return nil, fmt.Errorf("failed to scan clips directory: %w", err)
	}

	logger.Info("Cache opened",
		zap.String("metadata_dir", cfg.MetadataDir),
		zap.String("clips_dir", cfg.ClipsDir),
		zap.Int("known_clips", known))

	return c, nil
}

// GetMetadata returns the record for fp. A durable record that cannot be parsed
// is deleted and reported as a miss.
func (c *Cache) GetMetadata(fp Fingerprint) (*core.Metadata, bool) {
	if !ValidFingerprint(fp) {
		return nil, false
	}

	if m, ok := c.fast.Get(fp); ok {
		return &m, true
	}

	path := c.metadataPath(fp)
	data, err := os.ReadFile(path) //nolint:gosec // fp is validated hex
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("Failed to read metadata", zap.String("fingerprint", fp), zap.Error(err))
		}
		return nil, false
	}

	var m core.Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		c.logger.Warn("Dropping corrupt metadata",
			zap.String("fingerprint", fp),
			zap.Error(fmt.Errorf("%w: %w", core.ErrCacheCorrupt, err)))
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			c.logger.Warn("Failed to remove corrupt metadata", zap.String("fingerprint", fp), zap.Error(rmErr))
		}
		return nil, false
	}

	c.fast.Add(fp, m)
	return &m, true
}

// PutMetadata stores m in both tiers. When the durable write fails the fast
// tier keeps the record and the error wraps core.ErrCacheWriteFailed.
func (c *Cache) PutMetadata(fp Fingerprint, m *core.Metadata) error {
	if !ValidFingerprint(fp) {
		return fmt.Errorf("%w: fingerprint %q", core.ErrInvalidIdentifier, fp)
	}

	c.fast.Add(fp, *m)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrCacheWriteFailed, err)
	}

	if err := writeAtomic(c.metadataDir, fp+metadataExt, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}); err != nil {
		return fmt.Errorf("%w: %w", core.ErrCacheWriteFailed, err)
	}

	return nil
}

// ClipPath returns the durable clip path of fp if the file exists. Clips
// written to the directory by other processes are picked up through a rescan
// whenever the directory changed since the last one.
func (c *Cache) ClipPath(fp Fingerprint) (string, bool) {
	if !ValidFingerprint(fp) || !c.mayHaveClip(fp) {
		return "", false
	}

	path := c.clipPath(fp)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return path, true
}

// Has reports whether a durable clip exists for fp.
func (c *Cache) Has(fp Fingerprint) bool {
	_, ok := c.ClipPath(fp)
	return ok
}

// PutClip copies sourcePath into the durable tier and returns the cached path.
// sourcePath is left in place.
func (c *Cache) PutClip(fp Fingerprint, sourcePath string) (string, error) {
	if !ValidFingerprint(fp) {
		return "", fmt.Errorf("%w: fingerprint %q", core.ErrInvalidIdentifier, fp)
	}

	src, err := os.Open(sourcePath) //nolint:gosec // path is produced by the renderer
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrCacheWriteFailed, err)
	}
	defer func() {
		_ = src.Close()
	}()

	if err := writeAtomic(c.clipsDir, fp+clipExt, func(w io.Writer) error {
		_, err := io.Copy(w, src)
		return err
	}); err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrCacheWriteFailed, err)
	}

	c.clips.Add(fp)
	return c.clipPath(fp), nil
}

// Delete removes fp from both tiers. Absent entries are not an error.
func (c *Cache) Delete(fp Fingerprint) error {
	if !ValidFingerprint(fp) {
		return fmt.Errorf("%w: fingerprint %q", core.ErrInvalidIdentifier, fp)
	}

	c.fast.Remove(fp)

	for _, path := range []string{c.metadataPath(fp), c.clipPath(fp)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
	}
	return nil
}

// Clear empties both tiers, including leftover temp files.
func (c *Cache) Clear() error {
	c.fast.Purge()
	c.clips.Reset()

	removed := 0
	for _, dir := range []string{c.metadataDir, c.clipsDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to list %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
			}
			removed++
		}
	}

	c.logger.Info("Cache cleared", zap.Int("files_removed", removed))
	return nil
}

// Stats counts fast-tier entries and durable files.
func (c *Cache) Stats() (Stats, error) {
	stats := Stats{FastEntries: c.fast.Len()}

	metaEntries, err := os.ReadDir(c.metadataDir)
	if err != nil {
		return stats, fmt.Errorf("failed to list metadata: %w", err)
	}
	for _, entry := range metaEntries {
		if isCacheFile(entry, metadataExt) {
			stats.MetadataFiles++
		}
	}

	clipEntries, err := os.ReadDir(c.clipsDir)
	if err != nil {
		return stats, fmt.Errorf("failed to list clips: %w", err)
	}
	for _, entry := range clipEntries {
		if !isCacheFile(entry, clipExt) {
			continue
		}
		stats.ClipFiles++
		if info, err := entry.Info(); err == nil {
			stats.ClipBytes += info.Size()
		}
	}

	return stats, nil
}

func (c *Cache) metadataPath(fp Fingerprint) string {
	return filepath.Join(c.metadataDir, fp+metadataExt)
}

func (c *Cache) clipPath(fp Fingerprint) string {
	return filepath.Join(c.clipsDir, fp+clipExt)
}

func (c *Cache) mayHaveClip(fp Fingerprint) bool {
	if c.clips.MayHave(fp) {
		return true
	}
	if !c.clipsDirChanged() {
		return false
	}
	if _, err := c.rescanClips(); err != nil {
		c.logger.Warn("Failed to rescan clips directory", zap.Error(err))
		return true
	}
	return c.clips.MayHave(fp)
}

func (c *Cache) clipsDirChanged() bool {
	info, err := os.Stat(c.clipsDir)
	if err != nil {
		return false
	}

	c.scanMutex.Lock()
	defer c.scanMutex.Unlock()
	return !c.scanSettled || !info.ModTime().Equal(c.scannedDir)
}

// rescanClips reloads the clip index from disk and returns the clip count.
// The directory is stat'ed before it is listed, so a write racing the listing
// leaves a newer mtime behind and triggers another rescan.
func (c *Cache) rescanClips() (int, error) {
	c.scanMutex.Lock()
	defer c.scanMutex.Unlock()

	info, err := os.Stat(c.clipsDir)
	if err != nil {
		return 0, err
	}

	fps, err := c.durableClips()
	if err != nil {
		return 0, err
	}
	c.clips.Load(fps)

	c.scannedDir = info.ModTime()
	c.scanSettled = time.Since(info.ModTime()) > mtimeSlack
	return len(fps), nil
}

func (c *Cache) durableClips() ([]string, error) {
	entries, err := os.ReadDir(c.clipsDir)
	if err != nil {
		return nil, err
	}

	fps := make([]string, 0, len(entries))
	for _, entry := range entries {
		if isCacheFile(entry, clipExt) {
			fps = append(fps, strings.TrimSuffix(entry.Name(), clipExt))
		}
	}
	return fps, nil
}

func isCacheFile(entry fs.DirEntry, ext string) bool {
	name := entry.Name()
	return !entry.IsDir() && !strings.HasPrefix(name, tempPrefix) && strings.HasSuffix(name, ext)
}

// writeAtomic writes into a temp file inside dir and renames it onto name, so
// readers never observe a partial file.
func writeAtomic(dir, name string, write func(io.Writer) error) error {
	tmpPath := filepath.Join(dir, tempPrefix+uuid.NewString())

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640) //nolint:gosec // dir is configured
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		return err
	}
	committed = true
	return nil
}
