package player

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"lyrics-viewer/internal/playback"
)

var _ playback.VideoSource = (*Playerctl)(nil)
var _ playback.Seeker = (*Playerctl)(nil)

// Playerctl 通过 playerctl 读取桌面 MPRIS 播放器
type Playerctl struct {
	bin     string
	player  string // 为空时由 playerctl 自己选择
	timeout time.Duration
}

func NewPlayerctl(player string) *Playerctl {
	return &Playerctl{
		bin:     "playerctl",
		player:  player,
		timeout: 2 * time.Second,
	}
}

func (p *Playerctl) run(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if p.player != "" {
		args = append([]string{"--player", p.player}, args...)
	}
	out, err := exec.CommandContext(ctx, p.bin, args...).Output()
	if err != nil {
		return "", fmt.Errorf("playerctl %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (p *Playerctl) CurrentTime() float64 {
	out, err := p.run("position")
	if err != nil {
		return -1
	}
	seconds, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return -1
	}
	return seconds
}

func (p *Playerctl) IsReady() bool {
	status, err := p.run("status")
	if err != nil {
		return false
	}
	return status == "Playing" || status == "Paused"
}

func (p *Playerctl) Play() error {
	_, err := p.run("play")
	return err
}

func (p *Playerctl) Pause() error {
	_, err := p.run("pause")
	return err
}

func (p *Playerctl) SeekTo(seconds float64) error {
	_, err := p.run("position", strconv.FormatFloat(seconds, 'f', 3, 64))
	return err
}

// Track 当前曲目
type Track struct {
	Title    string
	Artist   string
	Duration float64 // 秒，未知时为 0
}

// CurrentTrack 一次 playerctl 调用读取标题、歌手和时长
func (p *Playerctl) CurrentTrack() (Track, error) {
	out, err := p.run("metadata", "--format", "{{title}}\t{{artist}}\t{{mpris:length}}")
	if err != nil {
		return Track{}, err
	}
	return parseTrack(out)
}

func parseTrack(out string) (Track, error) {
	parts := strings.Split(out, "\t")
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
		return Track{}, fmt.Errorf("no track metadata: %q", out)
	}
	t := Track{Title: strings.TrimSpace(parts[0]), Artist: strings.TrimSpace(parts[1])}
	if len(parts) > 2 {
		if us, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64); err == nil && us > 0 {
			t.Duration = us / 1e6
		}
	}
	return t, nil
}
