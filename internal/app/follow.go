package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyrics-viewer/internal/i3block"
	"lyrics-viewer/internal/lyrics"
	"lyrics-viewer/internal/player"
	"lyrics-viewer/internal/session"
	"lyrics-viewer/internal/translation"
	"lyrics-viewer/pkg/ai"
	musiccache "lyrics-viewer/pkg/musicCache"
)

const (
	idleText    = "No music playing..."
	introText   = "♪ 即将开始... ♪"
	trackCache  = "music_cache.list"
	resolveWait = 30 * time.Second
)

// FollowOptions 跟随桌面播放器时的参数
type FollowOptions struct {
	Language      string // 为空时显示原歌词
	StatusFile    string // i3blocks 读取的文件，为空时不写
	Signal        int    // i3blocks 的 signal=N，0 表示不发信号
	CheckInterval time.Duration
	Out           io.Writer // 为 nil 时写到 stdout
}

// Follow 轮询 MPRIS 播放器，换歌时解析并加载歌词，当前行输出到终端和 i3blocks。
// 阻塞直到 ctx 取消。
func (a *App) Follow(ctx context.Context, opts FollowOptions) error {
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = 2 * time.Second
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	tracks, err := musiccache.Open(filepath.Join(a.cfg.Cache.Dir, trackCache))
	if err != nil {
		a.logger.Warn().Err(err).Msg("Track cache unavailable")
		tracks = nil
	}

	var model ai.AiInterface
	if aiCfg := a.cfg.Translation.AI; aiCfg.APIKey != "" || aiCfg.BaseURL != "" {
		if model, err = translation.NewAIModel(ctx, aiCfg); err != nil {
			a.logger.Warn().Err(err).Msg("Media title parsing disabled")
			model = nil
		}
	}

	var importer lyrics.Importer
	if a.importer != nil {
		importer = a.importer
	}

	playerctl := player.NewPlayerctl(a.cfg.Player.Name)
	f := &follower{
		tracks:   playerctl,
		resolver: lyrics.NewResolver(a.repo, importer, tracks, model),
		display:  newLineDisplay(opts.Out, i3block.NewController(opts.StatusFile, opts.Signal)),
		language: opts.Language,
		logger:   log.With().Str("component", "follow").Logger(),
	}

	sessOpts := a.sessionOptions()
	sessOpts.Source = playerctl
	sess := session.New("follow", a.repo, a.translator, f.display, sessOpts)
	defer sess.Close()
	f.sess = sess

	ticker := time.NewTicker(opts.CheckInterval)
	defer ticker.Stop()

	f.logger.Info().Dur("interval", opts.CheckInterval).Msg("Starting player check loop...")
	for {
		f.update(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

type trackSource interface {
	CurrentTrack() (player.Track, error)
}

type loader interface {
	Load(songID, lang string) <-chan error
}

type follower struct {
	tracks   trackSource
	resolver *lyrics.Resolver
	display  *lineDisplay
	sess     loader
	language string

	current string
	logger  zerolog.Logger
}

func (f *follower) update(ctx context.Context) {
	track, err := f.tracks.CurrentTrack()
	if err != nil {
		if f.current != "" {
			f.logger.Debug().Err(err).Msg("Player stopped")
		}
		f.current = ""
		f.display.show(idleText)
		return
	}

	key := lyrics.TrackKey(track)
	if key == f.current {
		return
	}
	f.logger.Info().Str("song", key).Msg("New song detected")
	f.current = key
	f.display.show(fmt.Sprintf("... Searching for lyrics for %s ...", key))

	resolveCtx, cancel := context.WithTimeout(ctx, resolveWait)
	defer cancel()

	sng, err := f.resolver.Resolve(resolveCtx, track)
	if err != nil {
		f.logger.Error().Err(err).Str("song", key).Msg("Failed to get lyrics")
		f.display.show(fmt.Sprintf("Error getting lyrics: %v", err))
		return
	}
	f.sess.Load(sng.ID, f.language)
}

// lineDisplay 把会话消息变成一行文本；只在当前行变化时输出
type lineDisplay struct {
	mu        sync.Mutex
	out       io.Writer
	bar       *i3block.Controller
	songID    string
	lastIndex int
	lastText  string
	logger    zerolog.Logger
}

func newLineDisplay(out io.Writer, bar *i3block.Controller) *lineDisplay {
	return &lineDisplay{
		out:       out,
		bar:       bar,
		lastIndex: -2,
		logger:    log.With().Str("component", "follow-display").Logger(),
	}
}

func (d *lineDisplay) Publish(msg any) {
	switch m := msg.(type) {
	case session.Lyrics:
		d.mu.Lock()
		d.songID = m.SongID
		d.lastIndex = -2
		d.mu.Unlock()
		if m.Warning != "" {
			d.logger.Warn().Str("song_id", m.SongID).Msg(m.Warning)
		}
	case session.Frame:
		d.mu.Lock()
		if m.SongID == "" || m.SongID != d.songID || m.Index == d.lastIndex {
			d.mu.Unlock()
			return
		}
		d.lastIndex = m.Index
		d.mu.Unlock()

		switch {
		case m.Current != nil:
			d.show(m.Current.Text)
		case m.Index < 0:
			d.show(introText)
		}
	case session.Error:
		d.show("Error getting lyrics: " + m.Message)
	}
}

// show 相同文本只输出一次
func (d *lineDisplay) show(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if text == d.lastText {
		return
	}
	d.lastText = text

	fmt.Fprintln(d.out, text)
	if d.bar != nil {
		if err := d.bar.Show(text); err != nil {
			d.logger.Debug().Err(err).Msg("Failed to update i3blocks")
		}
	}
}
