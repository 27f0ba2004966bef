package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyrics-viewer/internal/playback"
	"lyrics-viewer/internal/player"
	"lyrics-viewer/internal/song"
	"lyrics-viewer/internal/timeline"
)

const fallbackWarning = "translation unavailable, showing original lyrics"

// Publisher 接收会话推送的消息（帧、歌词、播放器命令）
type Publisher interface {
	Publish(msg any)
}

// PublisherFunc 让普通函数实现 Publisher
type PublisherFunc func(msg any)

func (f PublisherFunc) Publish(msg any) { f(msg) }

// Translator 按语言取歌词，失败时返回原歌词和错误
type Translator interface {
	Lyrics(ctx context.Context, sng *song.Song, lang string) (timeline.Timeline, error)
}

// Options 会话参数
type Options struct {
	Lookahead        float64
	PollInterval     time.Duration // 有外部播放器时的回合间隔
	FallbackInterval time.Duration // 本地时钟的回合间隔
	Playback         playback.Options
	LoadTimeout      time.Duration

	// Source 外部播放器；为空时使用由浏览器上报驱动的 player.Remote
	Source playback.VideoSource
	// Ticks 测试用，非空时由调用方驱动回合
	Ticks <-chan time.Time
}

func DefaultOptions() Options {
	return Options{
		Lookahead:        timeline.DefaultLookahead,
		PollInterval:     50 * time.Millisecond,
		FallbackInterval: time.Second,
		Playback:         playback.DefaultOptions(),
		LoadTimeout:      45 * time.Second,
	}
}

// loaded 当前生效的歌词，整体替换
type loaded struct {
	songID   string
	title    string
	artist   string
	language string
	lines    timeline.Timeline
	warning  string
}

// Session 一个观看者的播放会话：一个控制器、一条歌词、一个驱动
type Session struct {
	ID string

	ctrl       *playback.Controller
	remote     *player.Remote
	repo       song.Repository
	translator Translator
	pub        Publisher
	opts       Options

	current atomic.Pointer[loaded]

	// 只由驱动 goroutine 读写
	interval time.Duration
	task     atomic.Pointer[playback.Task]

	frameMu    sync.Mutex
	lastSeq    uint64
	lastIndex  int
	lastLoaded *loaded

	loadMu     sync.Mutex
	loadSeq    uint64
	loadCancel context.CancelFunc
	loads      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger
}

// New 创建会话并立即启动驱动
func New(id string, repo song.Repository, translator Translator, pub Publisher, opts Options) *Session {
	def := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.FallbackInterval <= 0 {
		opts.FallbackInterval = def.FallbackInterval
	}
	if opts.Lookahead < 0 {
		opts.Lookahead = 0
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = def.LoadTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:         id,
		ctrl:       playback.NewController(0, opts.Playback),
		repo:       repo,
		translator: translator,
		pub:        pub,
		opts:       opts,
		lastIndex:  -2,
		ctx:        ctx,
		cancel:     cancel,
		logger:     log.With().Str("component", "session").Str("session_id", id).Logger(),
	}

	src := opts.Source
	if src == nil {
		s.remote = player.NewRemote(s.sendCommand)
		src = s.remote
	}
	s.ctrl.Attach(src)

	s.interval = opts.FallbackInterval
	var task *playback.Task
	if opts.Ticks != nil {
		task = playback.StartTaskWithTicks(ctx, "session-"+id, opts.Ticks, s.step)
	} else {
		task = playback.StartTask(ctx, "session-"+id, s.interval, s.step)
	}
	s.task.Store(task)

	s.logger.Info().Msg("Session started")
	return s
}

// step 一个回合：推进时钟、按来源调整节奏、发布帧
func (s *Session) step() {
	snap := s.ctrl.Tick()

	want := s.opts.FallbackInterval
	if snap.Source == playback.SourceExternal {
		want = s.opts.PollInterval
	}
	if want != s.interval {
		if t := s.task.Load(); t != nil {
			t.Reset(want)
			s.logger.Debug().Dur("interval", want).Str("source", string(snap.Source)).Msg("Driver cadence changed")
		}
		s.interval = want
	}

	s.emit(snap)
}

// emit 按快照计算帧并发布
func (s *Session) emit(snap playback.Snapshot) Frame {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()

	// 驱动和命令并发发布时，拿到旧快照的一方改用最新快照，帧的 Seq 不回退
	if snap.Seq < s.lastSeq {
		snap = s.ctrl.Snapshot()
	}
	s.lastSeq = snap.Seq

	cur := s.current.Load()
	f := Frame{
		Type:     TypeFrame,
		Seq:      snap.Seq,
		State:    snap.State,
		Source:   snap.Source,
		Time:     snap.Time,
		RawTime:  snap.RawTime,
		Offset:   snap.Offset,
		Duration: snap.Duration,
		Index:    -1,
	}
	if cur != nil {
		pos := timeline.Locate(cur.lines, snap.Time, s.opts.Lookahead)
		f.SongID = cur.songID
		f.Language = cur.language
		f.Index = pos.Index
		f.Progress = pos.Progress
		f.Current = pos.Current
		f.Next = pos.Next
		if cur != s.lastLoaded || pos.Index != s.lastIndex {
			f.Statuses = timeline.Statuses(len(cur.lines), pos.Index)
		}
		s.lastLoaded = cur
		s.lastIndex = pos.Index
	}

	s.pub.Publish(f)
	return f
}

// Frame 按当前状态立即计算并发布一帧
func (s *Session) Frame() Frame {
	return s.emit(s.ctrl.Snapshot())
}

// Load 异步加载歌词。新的加载会取消尚未完成的旧加载；
// 完成前驱动继续使用旧歌词。返回的通道在加载结束后收到结果。
func (s *Session) Load(songID, lang string) <-chan error {
	done := make(chan error, 1)

	s.loadMu.Lock()
	if s.loadCancel != nil {
		s.loadCancel()
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.opts.LoadTimeout)
	s.loadSeq++
	seq := s.loadSeq
	s.loadCancel = cancel
	s.loads.Add(1)
	s.loadMu.Unlock()

	go func() {
		defer s.loads.Done()
		defer cancel()
		err := s.load(ctx, seq, songID, lang)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.pub.Publish(Error{Type: TypeError, Message: err.Error()})
		}
		done <- err
		close(done)
	}()
	return done
}

func (s *Session) load(ctx context.Context, seq uint64, songID, lang string) error {
	l := s.logger.With().Str("song_id", songID).Str("language", lang).Logger()

	sng, err := s.repo.GetSong(ctx, songID)
	if err != nil {
		l.Warn().Err(err).Msg("Failed to load song")
		return err
	}

	next := &loaded{
		songID:   sng.ID,
		title:    sng.Title,
		artist:   sng.Artist,
		language: "original",
		lines:    sng.Lyrics,
	}
	if lang != "" && lang != "original" {
		lines, err := s.translator.Lyrics(ctx, sng, lang)
		switch {
		case err == nil:
			next.lines = lines
			next.language = lang
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			l.Warn().Err(err).Msg("Translation failed, falling back to original lyrics")
			next.warning = fallbackWarning
		}
	}

	s.loadMu.Lock()
	if seq != s.loadSeq {
		s.loadMu.Unlock()
		l.Debug().Msg("Load superseded")
		return context.Canceled
	}
	prev := s.current.Load()
	if prev == nil || prev.songID != next.songID {
		s.ctrl.Reset(sng.Duration)
	}
	s.current.Store(next)
	s.loadMu.Unlock()

	l.Info().Str("title", sng.Title).Int("lines", len(next.lines)).Str("shown", next.language).Msg("Lyrics loaded")
	s.pub.Publish(Lyrics{
		Type:     TypeLyrics,
		SongID:   next.songID,
		Title:    next.title,
		Artist:   next.artist,
		Language: next.language,
		Lines:    next.lines,
		Warning:  next.warning,
	})
	s.Frame()
	return nil
}

// SongID 当前生效的歌曲，未加载时为空
func (s *Session) SongID() string {
	if cur := s.current.Load(); cur != nil {
		return cur.songID
	}
	return ""
}

func (s *Session) Snapshot() playback.Snapshot {
	return s.ctrl.Snapshot()
}

func (s *Session) Play() error {
	return s.after(s.ctrl.Play())
}

func (s *Session) Pause() error {
	return s.after(s.ctrl.Pause())
}

func (s *Session) Toggle() error {
	return s.after(s.ctrl.Toggle())
}

func (s *Session) Stop() error {
	return s.after(s.ctrl.Stop())
}

func (s *Session) Seek(t float64) error {
	return s.after(s.ctrl.Seek(t))
}

func (s *Session) Jump(delta float64) error {
	return s.after(s.ctrl.Jump(delta))
}

func (s *Session) SetOffset(offset float64) error {
	return s.after(s.ctrl.SetOffset(offset))
}

// after 命令生效后立即发布一帧，不等下一个回合
func (s *Session) after(err error) error {
	if errors.Is(err, playback.ErrInvalidTime) || errors.Is(err, playback.ErrInvalidOffset) {
		return err
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("Player command failed")
	}
	s.Frame()
	return err
}

// ReportPlayer 浏览器播放器上报状态
func (s *Session) ReportPlayer(rep player.Report) {
	if s.remote == nil {
		s.logger.Warn().Msg("Player report ignored, session uses a local player")
		return
	}
	changed, playing := s.remote.Update(rep)
	if !changed {
		return
	}
	if playing {
		s.ctrl.HandleSourceEvent(playback.EventPlay)
	} else {
		s.ctrl.HandleSourceEvent(playback.EventPause)
	}
}

func (s *Session) sendCommand(cmd player.Command) error {
	s.pub.Publish(Command{Type: TypeCommand, Action: cmd.Type, Time: cmd.Time})
	return nil
}

// Close 停止驱动并等待进行中的加载退出
func (s *Session) Close() {
	s.cancel()
	if t := s.task.Load(); t != nil {
		t.Stop()
	}
	s.loads.Wait()
	s.logger.Info().Msg("Session closed")
}
