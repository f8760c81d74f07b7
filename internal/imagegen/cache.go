package imagegen

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lox/sgweather/internal/forecast"
)

// bannerTTL is how long a banner is served before it is painted again.
const bannerTTL = 7 * 24 * time.Hour

// Cache keeps one banner per weather category on disk as
// banner_<category>.png.
type Cache struct {
	dir    string
	maxAge time.Duration
}

func NewCache(dir string) *Cache {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("imagegen: create banner dir %s: %v", dir, err)
	}
	return &Cache{dir: dir, maxAge: bannerTTL}
}

// Entry describes one cached banner.
type Entry struct {
	Category forecast.Category
	Written  time.Time
	Stale    bool
}

func bannerFile(category forecast.Category) string {
	return "banner_" + string(category) + ".png"
}

// categoryOf is the inverse of bannerFile. Files for unknown categories are
// ignored.
func categoryOf(name string) (forecast.Category, bool) {
	raw, ok := strings.CutPrefix(name, "banner_")
	if !ok {
		return "", false
	}
	raw, ok = strings.CutSuffix(raw, ".png")
	if !ok {
		return "", false
	}
	return forecast.ParseCategory(raw)
}

func (c *Cache) read(category forecast.Category) ([]byte, time.Time, error) {
	f, err := os.Open(filepath.Join(c.dir, bannerFile(category)))
	if err != nil {
		return nil, time.Time{}, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, time.Time{}, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, time.Time{}, err
	}
	return data, info.ModTime(), nil
}

// Get returns the banner for category unless it is missing or stale.
func (c *Cache) Get(category forecast.Category) ([]byte, bool) {
	data, written, err := c.read(category)
	if err != nil || time.Since(written) > c.maxAge {
		return nil, false
	}
	return data, true
}

// Set writes the banner through a temporary file, so a concurrent Get never
// sees a partial image.
func (c *Cache) Set(category forecast.Category, data []byte) error {
	tmp, err := os.CreateTemp(c.dir, ".banner-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		log.Printf("imagegen: chmod %s: %v", tmp.Name(), err)
	}
	return os.Rename(tmp.Name(), filepath.Join(c.dir, bannerFile(category)))
}

// GetAny returns the most recently written banner of any category, stale or
// not. It stands in while the right one is being painted.
func (c *Cache) GetAny() ([]byte, bool) {
	for _, e := range c.List() {
		if data, _, err := c.read(e.Category); err == nil {
			return data, true
		}
	}
	return nil, false
}

// List returns the cached banners, newest first.
func (c *Cache) List() []Entry {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		category, ok := categoryOf(de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Category: category,
			Written:  info.ModTime(),
			Stale:    time.Since(info.ModTime()) > c.maxAge,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Written.After(entries[j].Written)
	})
	return entries
}
