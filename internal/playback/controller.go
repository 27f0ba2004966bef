package playback

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidOffset = errors.New("offset must be a finite number")
	ErrInvalidTime   = errors.New("time must be a number")
)

// State 播放状态
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Clock 播放时钟：原始时间 + 手动偏移，限制在 [0, Duration]
type Clock struct {
	Raw      float64
	Offset   float64
	Duration float64 // <= 0 表示未知，只做下限限制
}

// Corrected 校正后的时间，所有同步判断都用它
func (c Clock) Corrected() float64 {
	return clampTime(c.Raw+c.Offset, c.Duration)
}

// Snapshot 一次完整计算后发布的只读状态
type Snapshot struct {
	Seq      uint64     `json:"seq"`
	State    State      `json:"state"`
	Source   SourceKind `json:"source"`
	RawTime  float64    `json:"rawTime"`
	Offset   float64    `json:"offset"`
	Duration float64    `json:"duration"`
	Time     float64    `json:"time"`
}

// Options 控制器参数
type Options struct {
	// Step 本地时钟每个 tick 前进的秒数
	Step float64
	// Loop 到达结尾时回到 0 继续播放，而不是停止
	Loop bool
}

func DefaultOptions() Options {
	return Options{Step: 1, Loop: true}
}

// Controller 持有一个播放会话的权威时钟。
// 所有修改都在 mu 下完成，读者通过 Snapshot 拿到完整发布的值。
type Controller struct {
	mu       sync.Mutex
	opts     Options
	state    State
	clock    Clock
	external VideoSource
	fallback fallbackClock
	seq      uint64

	snap   atomic.Pointer[Snapshot]
	logger zerolog.Logger
}

func NewController(duration float64, opts Options) *Controller {
	if opts.Step <= 0 {
		opts.Step = DefaultOptions().Step
	}
	c := &Controller{
		opts:   opts,
		clock:  Clock{Duration: duration},
		logger: log.With().Str("component", "playback").Logger(),
	}
	c.publishLocked()
	return c
}

// Snapshot 最近一次发布的状态
func (c *Controller) Snapshot() Snapshot {
	return *c.snap.Load()
}

// Tick 推进一个逻辑回合：选择时钟来源、推进、发布
func (c *Controller) Tick() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	src, kind := c.activeLocked()
	switch kind {
	case SourceExternal:
		if c.state != Paused {
			t := src.CurrentTime()
			if !isFinite(t) || t < 0 {
				c.logger.Warn().Float64("player_time", t).Msg("Invalid player time")
				break
			}
			c.clock.Raw = t
			c.fallback.pos = t
		}
	case SourceFallback:
		if c.state == Playing {
			if ended := c.fallback.advance(c.opts.Step, c.clock.Duration, c.opts.Loop); ended {
				c.logger.Info().Float64("duration", c.clock.Duration).Msg("Reached end of song")
				c.state = Stopped
			}
		}
		c.clock.Raw = c.fallback.pos
	}

	return c.publishLocked()
}

// Play stopped/paused -> playing
func (c *Controller) Play() error {
	c.mu.Lock()
	if c.state == Playing {
		c.mu.Unlock()
		return nil
	}
	if !c.opts.Loop && c.clock.Duration > 0 && c.clock.Raw >= c.clock.Duration {
		c.seekLocked(0)
	}
	c.state = Playing
	c.publishLocked()
	ext := c.readyExternalLocked()
	c.mu.Unlock()

	if ext != nil {
		if err := ext.Play(); err != nil {
			return fmt.Errorf("failed to start player: %w", err)
		}
	}
	return nil
}

// Pause playing -> paused，时钟冻结在当前值
func (c *Controller) Pause() error {
	c.mu.Lock()
	if c.state != Playing {
		c.mu.Unlock()
		return nil
	}
	c.state = Paused
	c.publishLocked()
	ext := c.readyExternalLocked()
	c.mu.Unlock()

	if ext != nil {
		if err := ext.Pause(); err != nil {
			return fmt.Errorf("failed to pause player: %w", err)
		}
	}
	return nil
}

// Toggle 播放/暂停切换
func (c *Controller) Toggle() error {
	if c.Snapshot().State == Playing {
		return c.Pause()
	}
	return c.Play()
}

// Seek 跳到绝对时间，超出范围时静默限制到 [0, duration]，不改变播放状态
func (c *Controller) Seek(t float64) error {
	if !isFinite(t) {
		return ErrInvalidTime
	}
	c.mu.Lock()
	target := c.seekLocked(t)
	c.publishLocked()
	ext := c.readyExternalLocked()
	c.mu.Unlock()

	return c.forwardSeek(ext, target)
}

// Jump 相对当前原始时间跳转 delta 秒
func (c *Controller) Jump(delta float64) error {
	if !isFinite(delta) {
		return ErrInvalidTime
	}
	c.mu.Lock()
	target := c.seekLocked(c.clock.Raw + delta)
	c.publishLocked()
	ext := c.readyExternalLocked()
	c.mu.Unlock()

	return c.forwardSeek(ext, target)
}

func (c *Controller) forwardSeek(ext VideoSource, target float64) error {
	if ext == nil {
		return nil
	}
	if seeker, ok := ext.(Seeker); ok {
		if err := seeker.SeekTo(target); err != nil {
			return fmt.Errorf("failed to seek player: %w", err)
		}
	}
	return nil
}

// SetOffset 设置手动校准偏移，从下一次发布起生效
func (c *Controller) SetOffset(offset float64) error {
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		return ErrInvalidOffset
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock.Offset = offset
	c.publishLocked()
	c.logger.Debug().Float64("offset", offset).Msg("Sync offset updated")
	return nil
}

// Attach 切换到外部播放器。本地时钟从当前时间接续，切换不会跳变。
func (c *Controller) Attach(src VideoSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.external = src
	c.fallback.pos = c.clock.Raw
	c.publishLocked()
}

// Detach 移除外部播放器，回到本地时钟
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.external = nil
	c.fallback.pos = c.clock.Raw
	c.publishLocked()
}

// HandleSourceEvent 外部播放器的播放/暂停通知，不再回调播放器
func (c *Controller) HandleSourceEvent(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ev {
	case EventPlay:
		c.state = Playing
	case EventPause:
		if c.state == Playing {
			c.state = Paused
		}
	}
	c.publishLocked()
}

// Reset 换歌时调用：停止、归零，保留会话内的偏移
func (c *Controller) Reset(duration float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Stopped
	c.clock.Raw = 0
	c.clock.Duration = duration
	c.fallback.pos = 0
	c.publishLocked()
}

// Stop 停止并回到开头
func (c *Controller) Stop() error {
	c.mu.Lock()
	wasPlaying := c.state == Playing
	c.state = Stopped
	c.seekLocked(0)
	c.publishLocked()
	ext := c.readyExternalLocked()
	c.mu.Unlock()

	if wasPlaying && ext != nil {
		if err := ext.Pause(); err != nil {
			return fmt.Errorf("failed to pause player: %w", err)
		}
	}
	return c.forwardSeek(ext, 0)
}

// ActiveSource 当前会被 Tick 选中的时钟来源
func (c *Controller) ActiveSource() SourceKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, kind := c.activeLocked()
	return kind
}

func (c *Controller) activeLocked() (Source, SourceKind) {
	if ext := c.readyExternalLocked(); ext != nil {
		return ext, SourceExternal
	}
	return &c.fallback, SourceFallback
}

func (c *Controller) readyExternalLocked() VideoSource {
	if c.external != nil && c.external.IsReady() {
		return c.external
	}
	return nil
}

func (c *Controller) seekLocked(t float64) float64 {
	t = clampTime(t, c.clock.Duration)
	c.clock.Raw = t
	c.fallback.pos = t
	return t
}

func (c *Controller) publishLocked() Snapshot {
	_, kind := c.activeLocked()
	c.seq++
	snap := &Snapshot{
		Seq:      c.seq,
		State:    c.state,
		Source:   kind,
		RawTime:  c.clock.Raw,
		Offset:   c.clock.Offset,
		Duration: c.clock.Duration,
		Time:     c.clock.Corrected(),
	}
	c.snap.Store(snap)
	return *snap
}

// clampTime 结果总是有限值；时长未知时上限为 math.MaxFloat64
func clampTime(t, duration float64) float64 {
	if t < 0 || math.IsNaN(t) {
		return 0
	}
	if duration > 0 && t > duration {
		return duration
	}
	if math.IsInf(t, 1) {
		return math.MaxFloat64
	}
	return t
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
