package timeline

import (
	"errors"
	"fmt"
	"math"
)

// DefaultLookahead 默认提前量（秒），让歌词比音频略早出现以抵消渲染延迟
const DefaultLookahead = 0.2

var (
	ErrInvalidTimestamp = errors.New("invalid lyric timestamp")
	ErrUnsorted         = errors.New("lyric timestamps are not in order")
)

// Line 一行歌词
type Line struct {
	Timestamp float64 `json:"timestamp" yaml:"timestamp"`                   // 时间戳（秒）
	Text      string  `json:"text" yaml:"text"`                             // 歌词文本
	Duration  float64 `json:"duration,omitempty" yaml:"duration,omitempty"` // 建议高亮时长，仅供参考
}

// Timeline 同一首歌某一语言版本的有序歌词
type Timeline []Line

// Position 某一时刻在时间轴上的位置
type Position struct {
	Index    int     `json:"index"`
	Progress float64 `json:"progress"`
	Current  *Line   `json:"current,omitempty"`
	Next     *Line   `json:"next,omitempty"`
}

// Validate 检查时间戳是否有限、非负且单调不减。
// 加载歌曲时调用；LocateCurrentLine 假定输入已通过校验。
func Validate(lines []Line) error {
	prev := 0.0
	for i, l := range lines {
		if math.IsNaN(l.Timestamp) || math.IsInf(l.Timestamp, 0) || l.Timestamp < 0 {
			return fmt.Errorf("line %d: %w: %v", i, ErrInvalidTimestamp, l.Timestamp)
		}
		if i > 0 && l.Timestamp < prev {
			return fmt.Errorf("line %d (%.3fs) before line %d (%.3fs): %w", i, l.Timestamp, i-1, prev, ErrUnsorted)
		}
		prev = l.Timestamp
	}
	return nil
}

// LocateCurrentLine 返回满足 lines[i].Timestamp <= t+lookahead 的最大下标，
// 如果 t+lookahead 早于第一行则返回 -1。相同时间戳的多行取最后一行。
func LocateCurrentLine(lines []Line, t, lookahead float64) int {
	if len(lines) == 0 {
		return -1
	}

	threshold := t + lookahead
	if threshold < lines[0].Timestamp {
		return -1
	}

	// 二分查找最右侧 <= threshold 的位置
	left, right := 0, len(lines)-1
	result := -1
	for left <= right {
		mid := left + (right-left)/2
		if lines[mid].Timestamp <= threshold {
			result = mid
			left = mid + 1
		} else {
			right = mid - 1
		}
	}
	return result
}

// Progress 当前行内的播放进度，范围 [0,1]。
// 没有下一行或相邻时间戳相同时视为已完成（1）。
func Progress(lines []Line, current int, t float64) float64 {
	if current < 0 || current >= len(lines) {
		return 0
	}
	if current+1 >= len(lines) {
		return 1
	}

	span := lines[current+1].Timestamp - lines[current].Timestamp
	if span <= 0 {
		return 1
	}
	return clamp01((t - lines[current].Timestamp) / span)
}

// Locate 组合 LocateCurrentLine 与 Progress。
// 进度按未加提前量的时间计算，与行切换所用的阈值不同。
func Locate(lines []Line, t, lookahead float64) Position {
	idx := LocateCurrentLine(lines, t, lookahead)
	pos := Position{Index: idx, Progress: Progress(lines, idx, t)}
	if idx >= 0 {
		pos.Current = &lines[idx]
	}
	if idx+1 < len(lines) {
		pos.Next = &lines[idx+1]
	}
	return pos
}

// Clone 返回一份独立副本，用于生成平行的翻译版本
func (tl Timeline) Clone() Timeline {
	if tl == nil {
		return nil
	}
	out := make(Timeline, len(tl))
	copy(out, tl)
	return out
}

// SameTiming 两个时间轴行数与时间戳是否完全一致
func SameTiming(a, b []Line) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Timestamp != b[i].Timestamp {
			return false
		}
	}
	return true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
