// Package offline 保存已翻译的歌词，翻译服务不可用时兜底
package offline

import (
	"context"
	"sort"
	"time"

	"lyrics-viewer/internal/timeline"
)

// Entry 一首歌一种语言的翻译
type Entry struct {
	SongID    string            `json:"songId"`
	Language  string            `json:"language"`
	Lyrics    timeline.Timeline `json:"lyrics"`
	Timestamp time.Time         `json:"timestamp"`
}

type Stats struct {
	Backend           string     `json:"backend"`
	TotalTranslations int        `json:"totalTranslations"`
	TotalSongs        int        `json:"totalSongs"`
	LastUpdated       *time.Time `json:"lastUpdated"`
}

// Cache 以 (歌曲, 语言) 为键，同键写入覆盖旧值
type Cache interface {
	Get(ctx context.Context, songID, language string) (Entry, bool, error)
	Put(ctx context.Context, e Entry) error
	All(ctx context.Context) ([]Entry, error)
	Stats(ctx context.Context) (Stats, error)
	Clear(ctx context.Context) error
}

func statsOf(backend string, entries []Entry, lastUpdated time.Time) Stats {
	songs := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		songs[e.SongID] = struct{}{}
	}
	s := Stats{
		Backend:           backend,
		TotalTranslations: len(entries),
		TotalSongs:        len(songs),
	}
	if !lastUpdated.IsZero() {
		s.LastUpdated = &lastUpdated
	}
	return s
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SongID != entries[j].SongID {
			return entries[i].SongID < entries[j].SongID
		}
		return entries[i].Language < entries[j].Language
	})
}
