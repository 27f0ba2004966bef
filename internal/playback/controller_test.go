package playback

import (
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
)

// fakeVideo 模拟外部播放器
type fakeVideo struct {
	mu      sync.Mutex
	time    float64
	ready   bool
	plays   int
	pauses  int
	seeks   []float64
	failErr error
}

func (f *fakeVideo) CurrentTime() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.time
}

func (f *fakeVideo) IsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeVideo) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	return f.failErr
}

func (f *fakeVideo) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return f.failErr
}

func (f *fakeVideo) SeekTo(seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, seconds)
	f.time = seconds
	return f.failErr
}

func (f *fakeVideo) set(t float64, ready bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.time = t
	f.ready = ready
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSeekClamps(t *testing.T) {
	c := NewController(240, DefaultOptions())

	if err := c.Seek(-5); err != nil {
		t.Fatal(err)
	}
	if got := c.Snapshot().Time; got != 0 {
		t.Errorf("seek(-5) corrected = %v, want 0", got)
	}

	if err := c.Seek(10000); err != nil {
		t.Fatal(err)
	}
	if got := c.Snapshot().Time; got != 240 {
		t.Errorf("seek(10000) corrected = %v, want 240", got)
	}

	if err := c.Seek(math.NaN()); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("seek(NaN) err = %v", err)
	}
}

func TestSeekKeepsState(t *testing.T) {
	c := NewController(240, DefaultOptions())
	_ = c.Seek(30)
	if s := c.Snapshot().State; s != Stopped {
		t.Errorf("seek from stopped changed state to %v", s)
	}
	_ = c.Play()
	_ = c.Seek(60)
	if s := c.Snapshot().State; s != Playing {
		t.Errorf("seek while playing changed state to %v", s)
	}
	_ = c.Pause()
	_ = c.Seek(90)
	snap := c.Snapshot()
	if snap.State != Paused || snap.Time != 90 {
		t.Errorf("seek while paused: %+v", snap)
	}
}

func TestJump(t *testing.T) {
	c := NewController(100, DefaultOptions())
	_ = c.Seek(95)
	_ = c.Jump(10)
	if got := c.Snapshot().RawTime; got != 100 {
		t.Errorf("jump past end = %v, want 100", got)
	}
	_ = c.Jump(-30)
	if got := c.Snapshot().RawTime; got != 70 {
		t.Errorf("jump back = %v, want 70", got)
	}
	_ = c.Jump(-1000)
	if got := c.Snapshot().RawTime; got != 0 {
		t.Errorf("jump before start = %v, want 0", got)
	}
}

func TestFallbackClockTicks(t *testing.T) {
	c := NewController(240, DefaultOptions())

	// 停止状态下不前进
	if snap := c.Tick(); snap.Time != 0 || snap.Source != SourceFallback {
		t.Fatalf("stopped tick: %+v", snap)
	}

	_ = c.Play()
	for i := 0; i < 3; i++ {
		c.Tick()
	}
	if got := c.Snapshot().Time; got != 3 {
		t.Errorf("after 3 ticks time = %v, want 3", got)
	}

	_ = c.Pause()
	c.Tick()
	c.Tick()
	if got := c.Snapshot().Time; got != 3 {
		t.Errorf("paused clock moved to %v", got)
	}

	_ = c.Play()
	c.Tick()
	if got := c.Snapshot().Time; got != 4 {
		t.Errorf("resumed clock = %v, want 4", got)
	}
}

func TestFallbackWrapsAtDuration(t *testing.T) {
	c := NewController(240, DefaultOptions())
	_ = c.Seek(239)
	_ = c.Play()

	snap := c.Tick()
	if snap.Time != 0 || snap.RawTime != 0 {
		t.Errorf("tick at duration boundary: %+v, want wrap to 0", snap)
	}
	if snap.State != Playing {
		t.Errorf("wrap changed state to %v", snap.State)
	}
	if snap = c.Tick(); snap.Time != 1 {
		t.Errorf("after wrap time = %v, want 1", snap.Time)
	}
}

func TestFallbackStopsWithoutLoop(t *testing.T) {
	c := NewController(10, Options{Step: 1, Loop: false})
	_ = c.Seek(9)
	_ = c.Play()

	snap := c.Tick()
	if snap.Time != 10 || snap.State != Stopped {
		t.Fatalf("end without loop: %+v", snap)
	}

	// 在结尾处重新播放从头开始
	_ = c.Play()
	if snap = c.Tick(); snap.Time != 1 {
		t.Errorf("replay from end: %+v", snap)
	}
}

func TestOffset(t *testing.T) {
	c := NewController(240, DefaultOptions())
	video := &fakeVideo{}
	video.set(10, true)
	c.Attach(video)

	if err := c.SetOffset(0.5); err != nil {
		t.Fatal(err)
	}
	snap := c.Tick()
	if !approx(snap.Time, 10.5) || snap.RawTime != 10 || snap.Source != SourceExternal {
		t.Errorf("offset applied: %+v", snap)
	}

	if err := c.SetOffset(math.Inf(1)); !errors.Is(err, ErrInvalidOffset) {
		t.Errorf("inf offset err = %v", err)
	}
	if err := c.SetOffset(math.NaN()); !errors.Is(err, ErrInvalidOffset) {
		t.Errorf("NaN offset err = %v", err)
	}

	// 偏移超出范围时静默限制
	_ = c.SetOffset(-20)
	if got := c.Tick().Time; got != 0 {
		t.Errorf("negative corrected time = %v, want 0", got)
	}
	video.set(239.5, true)
	_ = c.SetOffset(2)
	if got := c.Tick().Time; got != 240 {
		t.Errorf("corrected past end = %v, want 240", got)
	}

	// 偏移在 Reset 后保留
	c.Reset(100)
	if got := c.Snapshot().Offset; got != 2 {
		t.Errorf("offset after reset = %v", got)
	}
}

func TestOffsetDoesNotRewriteHistory(t *testing.T) {
	c := NewController(240, DefaultOptions())
	_ = c.Seek(10)
	before := c.Snapshot()
	_ = c.SetOffset(1)
	after := c.Snapshot()

	if before.Time != 10 {
		t.Errorf("earlier snapshot changed: %+v", before)
	}
	if after.Time != 11 || after.Seq <= before.Seq {
		t.Errorf("new snapshot: %+v", after)
	}
}

func TestExternalSource(t *testing.T) {
	c := NewController(240, DefaultOptions())
	video := &fakeVideo{}
	c.Attach(video)

	// 未就绪时使用本地时钟
	_ = c.Play()
	if video.plays != 0 {
		t.Errorf("play forwarded to unready player")
	}
	snap := c.Tick()
	if snap.Source != SourceFallback || snap.Time != 1 {
		t.Fatalf("unready external: %+v", snap)
	}

	video.set(42, true)
	snap = c.Tick()
	if snap.Source != SourceExternal || snap.Time != 42 {
		t.Fatalf("ready external: %+v", snap)
	}

	_ = c.Pause()
	video.set(50, true)
	if got := c.Tick().Time; got != 42 {
		t.Errorf("paused external moved to %v", got)
	}
	if video.pauses != 1 {
		t.Errorf("pause forwarded %d times", video.pauses)
	}

	_ = c.Seek(60)
	if len(video.seeks) != 1 || video.seeks[0] != 60 {
		t.Errorf("seek not forwarded: %v", video.seeks)
	}

	// 播放器掉线后从最后的时间继续
	_ = c.Play()
	video.set(60, false)
	snap = c.Tick()
	if snap.Source != SourceFallback || snap.Time != 61 {
		t.Errorf("fallback after player lost: %+v", snap)
	}
}

func TestExternalInvalidTimeIgnored(t *testing.T) {
	c := NewController(240, DefaultOptions())
	video := &fakeVideo{}
	video.set(12, true)
	c.Attach(video)
	c.Tick()

	video.set(-3, true)
	if got := c.Tick().Time; got != 12 {
		t.Errorf("negative player time accepted: %v", got)
	}
}

func TestNonFiniteTimeRejected(t *testing.T) {
	c := NewController(0, DefaultOptions())

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := c.Seek(v); !errors.Is(err, ErrInvalidTime) {
			t.Errorf("Seek(%v) err = %v, want ErrInvalidTime", v, err)
		}
		if err := c.Jump(v); !errors.Is(err, ErrInvalidTime) {
			t.Errorf("Jump(%v) err = %v, want ErrInvalidTime", v, err)
		}
	}

	// 时长未知时连续大跨度跳转也不会溢出到 +Inf
	_ = c.Jump(math.MaxFloat64)
	_ = c.Jump(math.MaxFloat64)
	_ = c.SetOffset(math.MaxFloat64)
	snap := c.Snapshot()
	if math.IsInf(snap.RawTime, 0) || math.IsInf(snap.Time, 0) {
		t.Fatalf("snapshot not finite: %+v", snap)
	}
	if _, err := json.Marshal(snap); err != nil {
		t.Errorf("snapshot not encodable: %v", err)
	}

	video := &fakeVideo{}
	video.set(12, true)
	c.Attach(video)
	_ = c.Seek(12)
	c.Tick()
	video.set(math.Inf(1), true)
	if got := c.Tick().RawTime; got != 12 {
		t.Errorf("infinite player time accepted: %v", got)
	}
}

func TestAttachDetachSeamless(t *testing.T) {
	c := NewController(240, DefaultOptions())
	video := &fakeVideo{}
	video.set(30, true)
	c.Attach(video)
	c.Tick()

	c.Detach()
	if c.ActiveSource() != SourceFallback {
		t.Fatal("detach did not switch source")
	}
	_ = c.Play()
	if got := c.Tick().Time; got != 31 {
		t.Errorf("fallback resumed at %v, want 31", got)
	}
}

func TestHandleSourceEvent(t *testing.T) {
	c := NewController(240, DefaultOptions())
	video := &fakeVideo{}
	video.set(0, true)
	c.Attach(video)

	c.HandleSourceEvent(EventPlay)
	if s := c.Snapshot().State; s != Playing {
		t.Errorf("play event state = %v", s)
	}
	c.HandleSourceEvent(EventPause)
	if s := c.Snapshot().State; s != Paused {
		t.Errorf("pause event state = %v", s)
	}
	if video.plays != 0 || video.pauses != 0 {
		t.Error("source events were echoed back to the player")
	}
}

func TestPlayerErrorsSurface(t *testing.T) {
	c := NewController(240, DefaultOptions())
	boom := errors.New("boom")
	video := &fakeVideo{failErr: boom}
	video.set(0, true)
	c.Attach(video)

	if err := c.Play(); !errors.Is(err, boom) {
		t.Errorf("play err = %v", err)
	}
	// 状态仍然切换
	if s := c.Snapshot().State; s != Playing {
		t.Errorf("state = %v", s)
	}
}

func TestToggleAndStop(t *testing.T) {
	c := NewController(240, DefaultOptions())
	_ = c.Toggle()
	if c.Snapshot().State != Playing {
		t.Fatal("toggle did not start playback")
	}
	c.Tick()
	_ = c.Toggle()
	if c.Snapshot().State != Paused {
		t.Fatal("toggle did not pause")
	}
	_ = c.Stop()
	snap := c.Snapshot()
	if snap.State != Stopped || snap.RawTime != 0 {
		t.Errorf("stop: %+v", snap)
	}
}

func TestResetOnSongChange(t *testing.T) {
	c := NewController(240, DefaultOptions())
	_ = c.Play()
	c.Tick()
	c.Reset(180)
	snap := c.Snapshot()
	if snap.State != Stopped || snap.RawTime != 0 || snap.Duration != 180 {
		t.Errorf("reset: %+v", snap)
	}
}

func TestUnknownDurationOnlyClampsBelow(t *testing.T) {
	c := NewController(0, DefaultOptions())
	_ = c.Seek(500)
	if got := c.Snapshot().Time; got != 500 {
		t.Errorf("unknown duration clamp = %v", got)
	}
	_ = c.Play()
	if got := c.Tick().Time; got != 501 {
		t.Errorf("unknown duration tick = %v", got)
	}
}

func TestSnapshotsAreConsistentUnderConcurrency(t *testing.T) {
	c := NewController(1000, DefaultOptions())
	_ = c.Play()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				snap := c.Snapshot()
				if !approx(snap.Time, clampTime(snap.RawTime+snap.Offset, snap.Duration)) {
					t.Errorf("torn snapshot %+v", snap)
					return
				}
			}
		}
	}()

	for i := 0; i < 500; i++ {
		c.Tick()
		_ = c.SetOffset(float64(i%5) * 0.25)
	}
	close(stop)
	wg.Wait()
}
