package song

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"lyrics-viewer/internal/timeline"
)

var _ Repository = (*MemoryStore)(nil)

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// MemoryStore 内存存储，启动时写入默认曲库
type MemoryStore struct {
	mu           sync.RWMutex
	songs        map[string]*Song
	order        []string
	translations map[trKey]*Translation
}

func NewMemoryStore(seed []*Song) *MemoryStore {
	s := &MemoryStore{
		songs:        make(map[string]*Song),
		translations: make(map[trKey]*Translation),
	}
	for _, song := range seed {
		if err := s.put(song); err != nil {
			log.Warn().Err(err).Str("song_id", song.ID).Msg("Skipping invalid seed song")
		}
	}
	log.Info().Int("songs", len(s.order)).Msg("Song catalog loaded")
	return s
}

func (s *MemoryStore) put(song *Song) error {
	if err := validateSong(song); err != nil {
		return err
	}
	if song.Translations == nil {
		song.Translations = map[string]timeline.Timeline{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.songs[song.ID]; !exists {
		s.order = append(s.order, song.ID)
	} else {
		s.dropStaleTranslationsLocked(song)
	}
	s.songs[song.ID] = song
	return nil
}

// dropStaleTranslationsLocked 覆盖歌曲时，时间轴对不上新歌词的翻译一并删除，
// 对得上的保留到新歌曲的 Translations 上
func (s *MemoryStore) dropStaleTranslationsLocked(song *Song) {
	for key, tr := range s.translations {
		if key.songID != song.ID {
			continue
		}
		if !timeline.SameTiming(song.Lyrics, tr.TranslatedLyrics) {
			delete(s.translations, key)
			log.Info().Str("song_id", song.ID).Str("language", key.language).Msg("Dropped stale translation")
			continue
		}
		if _, ok := song.Translations[key.language]; !ok {
			song.Translations[key.language] = tr.TranslatedLyrics
		}
	}
	for lang, lines := range song.Translations {
		if !timeline.SameTiming(song.Lyrics, lines) {
			delete(song.Translations, lang)
		}
	}
}

func (s *MemoryStore) GetSong(ctx context.Context, id string) (*Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	song, ok := s.songs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSongNotFound, id)
	}
	return song, nil
}

func (s *MemoryStore) GetAllSongs(ctx context.Context) ([]*Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Song, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.songs[id])
	}
	return out, nil
}

// SearchSongs 标题、歌手、专辑的大小写不敏感子串匹配
func (s *MemoryStore) SearchSongs(ctx context.Context, query string) ([]*Song, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Song
	for _, id := range s.order {
		song := s.songs[id]
		if containsFold(song.Title, q) || containsFold(song.Artist, q) || containsFold(song.Album, q) {
			out = append(out, song)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateSong(ctx context.Context, req CreateRequest) (*Song, error) {
	lyrics := req.Lyrics
	if len(lyrics) == 0 && req.LRC != "" {
		lyrics = timeline.ParseLRC(req.LRC)
	}

	id := req.ID
	if id == "" {
		id = Slug(req.Title)
	}
	song := &Song{
		ID:        id,
		Title:     req.Title,
		Artist:    req.Artist,
		Album:     req.Album,
		Year:      req.Year,
		Duration:  req.Duration,
		YoutubeID: req.YoutubeID,
		Lyrics:    lyrics,
	}
	if err := s.put(song); err != nil {
		return nil, err
	}
	log.Info().Str("song_id", song.ID).Int("lines", len(song.Lyrics)).Msg("Song created")
	return song, nil
}

func (s *MemoryStore) GetTranslation(ctx context.Context, songID, language string) (*Translation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tr, ok := s.translations[translationKey(songID, language)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrTranslationNotFound, songID, language)
	}
	return tr, nil
}

// CreateTranslation 保存翻译；同一 (歌曲, 语言) 已存在时覆盖
func (s *MemoryStore) CreateTranslation(ctx context.Context, songID, language string, lyrics timeline.Timeline) (*Translation, error) {
	if err := timeline.Validate(lyrics); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSong, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	song, ok := s.songs[songID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSongNotFound, songID)
	}
	if !timeline.SameTiming(song.Lyrics, lyrics) {
		return nil, fmt.Errorf("%w: translation timing differs from original lyrics", ErrInvalidSong)
	}

	tr := &Translation{
		ID:               uuid.New().String(),
		SongID:           songID,
		Language:         language,
		TranslatedLyrics: lyrics,
		CreatedAt:        time.Now(),
	}
	s.translations[translationKey(songID, language)] = tr

	// 歌曲上的 Translations 是只读快照，更新时整体替换
	translations := make(map[string]timeline.Timeline, len(song.Translations)+1)
	for k, v := range song.Translations {
		translations[k] = v
	}
	translations[language] = lyrics
	updated := *song
	updated.Translations = translations
	s.songs[songID] = &updated
	return tr, nil
}

func (s *MemoryStore) GetTranslationsForSong(ctx context.Context, songID string) ([]*Translation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Translation
	for _, tr := range s.translations {
		if tr.SongID == songID {
			out = append(out, tr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Language < out[j].Language })
	return out, nil
}

func validateSong(song *Song) error {
	if song.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidSong)
	}
	if strings.TrimSpace(song.Title) == "" || strings.TrimSpace(song.Artist) == "" {
		return fmt.Errorf("%w: title and artist are required", ErrInvalidSong)
	}
	if song.Duration < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidSong)
	}
	if err := timeline.Validate(song.Lyrics); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSong, err)
	}
	return nil
}

// Slug 由标题生成 id，例如 "Viva La Vida" => "viva-la-vida"
func Slug(title string) string {
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		return uuid.New().String()
	}
	return slug
}

// trKey 翻译按 (歌曲, 语言) 唯一；两部分都可能含 '-'，不能拼成字符串
type trKey struct {
	songID   string
	language string
}

func translationKey(songID, language string) trKey {
	return trKey{songID: songID, language: language}
}

func containsFold(s, lowerQuery string) bool {
	return s != "" && strings.Contains(strings.ToLower(s), lowerQuery)
}
