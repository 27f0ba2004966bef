package player

import (
	"errors"
	"sync"
	"time"

	"lyrics-viewer/internal/playback"
)

var _ playback.VideoSource = (*Remote)(nil)
var _ playback.Seeker = (*Remote)(nil)

// DefaultStaleAfter 超过这个时间没有上报就认为浏览器播放器不可用
const DefaultStaleAfter = 3 * time.Second

var ErrNoSender = errors.New("remote player has no command channel")

// Command 发给浏览器播放器的控制命令
type Command struct {
	Type string  `json:"type"` // play / pause / seek
	Time float64 `json:"time,omitempty"`
}

// Report 浏览器中 YouTube 播放器上报的状态
type Report struct {
	Time    float64 `json:"time"`
	Playing bool    `json:"playing"`
	Ready   bool    `json:"ready"`
}

// Remote 由浏览器上报驱动的播放器。
// 上报之间按墙钟外推，使每帧轮询拿到平滑的时间。
type Remote struct {
	mu         sync.Mutex
	send       func(Command) error
	last       Report
	lastAt     time.Time
	staleAfter time.Duration
	now        func() time.Time
}

func NewRemote(send func(Command) error) *Remote {
	return &Remote{
		send:       send,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}
}

// Update 记录一次上报，返回播放状态是否发生变化
func (r *Remote) Update(rep Report) (changed bool, playing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed = r.lastAt.IsZero() || r.last.Playing != rep.Playing
	r.last = rep
	r.lastAt = r.now()
	return changed, rep.Playing
}

func (r *Remote) CurrentTime() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastAt.IsZero() {
		return 0
	}
	t := r.last.Time
	if r.last.Playing {
		t += r.now().Sub(r.lastAt).Seconds()
	}
	return t
}

func (r *Remote) IsReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastAt.IsZero() || !r.last.Ready {
		return false
	}
	return r.now().Sub(r.lastAt) <= r.staleAfter
}

func (r *Remote) Play() error {
	if err := r.command(Command{Type: "play"}); err != nil {
		return err
	}
	r.mu.Lock()
	r.rebaseLocked(true)
	r.mu.Unlock()
	return nil
}

func (r *Remote) Pause() error {
	if err := r.command(Command{Type: "pause"}); err != nil {
		return err
	}
	r.mu.Lock()
	r.rebaseLocked(false)
	r.mu.Unlock()
	return nil
}

func (r *Remote) SeekTo(seconds float64) error {
	if err := r.command(Command{Type: "seek", Time: seconds}); err != nil {
		return err
	}
	r.mu.Lock()
	if !r.lastAt.IsZero() {
		r.last.Time = seconds
		r.lastAt = r.now()
	}
	r.mu.Unlock()
	return nil
}

// rebaseLocked 在命令发出后立即折算外推时间，等待下一次上报前不会跳变
func (r *Remote) rebaseLocked(playing bool) {
	if r.lastAt.IsZero() {
		return
	}
	now := r.now()
	if r.last.Playing {
		r.last.Time += now.Sub(r.lastAt).Seconds()
	}
	r.last.Playing = playing
	r.lastAt = now
}

func (r *Remote) command(cmd Command) error {
	if r.send == nil {
		return ErrNoSender
	}
	return r.send(cmd)
}
