package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"lyrics-viewer/pkg/fileutil"
)

const fileName = "translations.json"

var _ Cache = (*FileCache)(nil)

// document 磁盘上的 JSON 格式
type document struct {
	Translations []Entry   `json:"translations"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// FileCache 整个缓存是一个 JSON 文件，启动时读入，每次写入整体重写
type FileCache struct {
	mu   sync.RWMutex
	path string
	doc  document
	now  func() time.Time
}

// NewFileCache 读取 dir 下的缓存文件；文件损坏时记录警告并从空缓存开始
func NewFileCache(dir string) (*FileCache, error) {
	c := &FileCache{
		path: filepath.Join(dir, fileName),
		now:  time.Now,
	}

	data, err := os.ReadFile(c.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Info().Str("path", c.path).Msg("Offline cache file not found, starting empty")
	case err != nil:
		return nil, fmt.Errorf("failed to read offline cache: %w", err)
	default:
		if err := json.Unmarshal(data, &c.doc); err != nil {
			log.Warn().Err(err).Str("path", c.path).Msg("Offline cache file is corrupt, starting empty")
			c.doc = document{}
		}
	}

	log.Info().Int("entries", len(c.doc.Translations)).Str("path", c.path).Msg("Offline cache loaded")
	return c, nil
}

func (c *FileCache) Path() string {
	return c.path
}

func (c *FileCache) Get(ctx context.Context, songID, language string) (Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.doc.Translations {
		if e.SongID == songID && e.Language == language {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

func (c *FileCache) Put(ctx context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = c.now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]Entry, 0, len(c.doc.Translations)+1)
	for _, old := range c.doc.Translations {
		if old.SongID == e.SongID && old.Language == e.Language {
			continue
		}
		next = append(next, old)
	}
	next = append(next, e)

	doc := document{Translations: next, LastUpdated: c.now()}
	if err := c.write(doc); err != nil {
		return err
	}
	c.doc = doc
	return nil
}

func (c *FileCache) All(ctx context.Context) ([]Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, len(c.doc.Translations))
	copy(out, c.doc.Translations)
	sortEntries(out)
	return out, nil
}

func (c *FileCache) Stats(ctx context.Context) (Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return statsOf("file", c.doc.Translations, c.doc.LastUpdated), nil
}

func (c *FileCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove offline cache: %w", err)
	}
	c.doc = document{}
	log.Info().Str("path", c.path).Msg("Offline cache cleared")
	return nil
}

func (c *FileCache) write(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode offline cache: %w", err)
	}
	if err := fileutil.WriteFileAtomic(c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save offline cache: %w", err)
	}
	return nil
}
