package playback

// Source 提供播放位置（秒）。每个 tick 只选一个 Source。
type Source interface {
	CurrentTime() float64
}

// VideoSource 外部视频播放器，就绪时作为权威时钟
type VideoSource interface {
	Source
	IsReady() bool
	Play() error
	Pause() error
}

// Seeker 支持跳转的外部播放器（可选能力）
type Seeker interface {
	SeekTo(seconds float64) error
}

// SourceKind 当前生效的时钟来源
type SourceKind string

const (
	SourceExternal SourceKind = "external"
	SourceFallback SourceKind = "fallback"
)

// Event 外部播放器发出的播放/暂停通知
type Event int

const (
	EventPlay Event = iota
	EventPause
)

func (e Event) String() string {
	if e == EventPlay {
		return "play"
	}
	return "pause"
}

// fallbackClock 本地计时器，没有外部播放器时使用
type fallbackClock struct {
	pos float64
}

func (f *fallbackClock) CurrentTime() float64 {
	return f.pos
}

// advance 前进一步；到达时长时 loop 则回到 0，否则停在结尾并返回 true
func (f *fallbackClock) advance(step, duration float64, loop bool) (ended bool) {
	f.pos += step
	if duration > 0 && f.pos >= duration {
		if loop {
			f.pos = 0
			return false
		}
		f.pos = duration
		return true
	}
	return false
}
