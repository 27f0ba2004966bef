package session

import (
	"errors"
	"fmt"

	"lyrics-viewer/internal/playback"
	"lyrics-viewer/internal/player"
	"lyrics-viewer/internal/timeline"
)

var ErrBadMessage = errors.New("bad session message")

// 服务端推送的消息类型
const (
	TypeFrame   = "frame"
	TypeLyrics  = "lyrics"
	TypeCommand = "command"
	TypeError   = "error"
)

// Frame 每个回合发布一次的同步结果
type Frame struct {
	Type     string              `json:"type"`
	SongID   string              `json:"songId,omitempty"`
	Language string              `json:"language,omitempty"`
	Seq      uint64              `json:"seq"`
	State    playback.State      `json:"state"`
	Source   playback.SourceKind `json:"source"`
	Time     float64             `json:"time"`
	RawTime  float64             `json:"rawTime"`
	Offset   float64             `json:"offset"`
	Duration float64             `json:"duration"`
	Index    int                 `json:"index"`
	Progress float64             `json:"progress"`
	Current  *timeline.Line      `json:"current,omitempty"`
	Next     *timeline.Line      `json:"next,omitempty"`
	// Statuses 只在当前行变化或换歌时携带
	Statuses []timeline.Status `json:"statuses,omitempty"`
}

func (f Frame) MessageType() string { return f.Type }

// Lyrics 加载完成后推送整份歌词
type Lyrics struct {
	Type     string            `json:"type"`
	SongID   string            `json:"songId"`
	Title    string            `json:"title"`
	Artist   string            `json:"artist"`
	Language string            `json:"language"`
	Lines    timeline.Timeline `json:"lines"`
	Warning  string            `json:"warning,omitempty"`
}

func (l Lyrics) MessageType() string { return l.Type }

// Command 发给浏览器播放器的控制命令
type Command struct {
	Type   string  `json:"type"`
	Action string  `json:"action"`
	Time   float64 `json:"time,omitempty"`
}

func (c Command) MessageType() string { return c.Type }

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e Error) MessageType() string { return e.Type }

// ClientMessage 客户端发来的消息
type ClientMessage struct {
	Type     string   `json:"type"`
	SongID   string   `json:"songId,omitempty"`
	Language string   `json:"language,omitempty"`
	Time     *float64 `json:"time,omitempty"`
	Delta    *float64 `json:"delta,omitempty"`
	Offset   *float64 `json:"offset,omitempty"`
	Playing  bool     `json:"playing,omitempty"`
	Ready    bool     `json:"ready,omitempty"`
}

// Handle 把一条客户端消息分发到会话
func (s *Session) Handle(msg ClientMessage) error {
	switch msg.Type {
	case "load":
		if msg.SongID == "" {
			return fmt.Errorf("%w: load requires songId", ErrBadMessage)
		}
		s.Load(msg.SongID, msg.Language)
		return nil
	case "play":
		return s.Play()
	case "pause":
		return s.Pause()
	case "toggle":
		return s.Toggle()
	case "stop":
		return s.Stop()
	case "seek":
		if msg.Time == nil {
			return fmt.Errorf("%w: seek requires time", ErrBadMessage)
		}
		return s.Seek(*msg.Time)
	case "jump":
		if msg.Delta == nil {
			return fmt.Errorf("%w: jump requires delta", ErrBadMessage)
		}
		return s.Jump(*msg.Delta)
	case "offset":
		if msg.Offset == nil {
			return fmt.Errorf("%w: offset requires offset", ErrBadMessage)
		}
		return s.SetOffset(*msg.Offset)
	case "player":
		var t float64
		if msg.Time != nil {
			t = *msg.Time
		}
		s.ReportPlayer(player.Report{Time: t, Playing: msg.Playing, Ready: msg.Ready})
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrBadMessage, msg.Type)
	}
}
