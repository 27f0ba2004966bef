package timeline

import (
	"errors"
	"math"
	"testing"
)

func abc() []Line {
	return []Line{{Timestamp: 0, Text: "A"}, {Timestamp: 4, Text: "B"}, {Timestamp: 8, Text: "C"}}
}

func TestLocateCurrentLine(t *testing.T) {
	tests := []struct {
		name      string
		lines     []Line
		time      float64
		lookahead float64
		want      int
	}{
		{"empty", nil, 3, 0, -1},
		{"before first", abc(), -1, DefaultLookahead, -1},
		{"first line", abc(), 0, 0, 0},
		{"lookahead crosses boundary", abc(), 3.9, DefaultLookahead, 1},
		{"lookahead short of boundary", abc(), 3.7, DefaultLookahead, 0},
		{"exact boundary", abc(), 4, 0, 1},
		{"just before boundary", abc(), 3.999, 0, 0},
		{"last line", abc(), 100, 0, 2},
		{"first line starts late", []Line{{Timestamp: 5, Text: "x"}}, 4.5, 0.2, -1},
		{"ties select last", []Line{{0, "a", 0}, {2, "b", 0}, {2, "c", 0}, {2, "d", 0}, {6, "e", 0}}, 2, 0, 3},
		{"ties at start", []Line{{1, "a", 0}, {1, "b", 0}}, 1, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LocateCurrentLine(tt.lines, tt.time, tt.lookahead)
			if got != tt.want {
				t.Errorf("LocateCurrentLine(%v, %v) = %d, want %d", tt.time, tt.lookahead, got, tt.want)
			}
		})
	}
}

func linearLocate(lines []Line, threshold float64) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if threshold >= lines[i].Timestamp {
			return i
		}
	}
	return -1
}

func TestLocateMatchesLinearScan(t *testing.T) {
	lines := make([]Line, 0, 600)
	ts := 0.0
	for i := 0; i < 600; i++ {
		// 每 7 行重复一次时间戳，覆盖并列情况
		if i%7 != 0 {
			ts += 0.5 + float64(i%5)*0.25
		}
		lines = append(lines, Line{Timestamp: ts, Text: "x"})
	}

	prev := -1
	for step := -20; step < int(ts*10)+40; step++ {
		tm := float64(step) / 10
		got := LocateCurrentLine(lines, tm, DefaultLookahead)
		want := linearLocate(lines, tm+DefaultLookahead)
		if got != want {
			t.Fatalf("t=%.1f: binary %d, linear %d", tm, got, want)
		}
		if got < prev {
			t.Fatalf("t=%.1f: index went backwards %d -> %d", tm, prev, got)
		}
		if again := LocateCurrentLine(lines, tm, DefaultLookahead); again != got {
			t.Fatalf("t=%.1f: not idempotent %d vs %d", tm, got, again)
		}
		prev = got

		// 边界性质：T[i] <= t+la < T[i+1]
		if got >= 0 && lines[got].Timestamp > tm+DefaultLookahead {
			t.Fatalf("t=%.1f: line %d starts after threshold", tm, got)
		}
		if got+1 < len(lines) && lines[got+1].Timestamp <= tm+DefaultLookahead {
			t.Fatalf("t=%.1f: line %d should already be current", tm, got+1)
		}
	}
}

func TestProgress(t *testing.T) {
	lines := []Line{{0, "a", 0}, {8, "b", 0}, {12, "c", 0}, {12, "d", 0}}

	tests := []struct {
		name    string
		current int
		time    float64
		want    float64
	}{
		{"no current line", -1, 3, 0},
		{"mid line", 1, 10.5, 0.625},
		{"clamped low", 1, 7, 0},
		{"clamped high", 1, 20, 1},
		{"zero span", 2, 12, 1},
		{"last line", 3, 12, 1},
		{"out of range", 9, 12, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Progress(lines, tt.current, tt.time); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Progress(%d, %v) = %v, want %v", tt.current, tt.time, got, tt.want)
			}
		})
	}
}

func TestLocate(t *testing.T) {
	lines := abc()

	pos := Locate(lines, 5, 0)
	if pos.Index != 1 || pos.Current == nil || pos.Current.Text != "B" || pos.Next == nil || pos.Next.Text != "C" {
		t.Fatalf("unexpected position %+v", pos)
	}
	if math.Abs(pos.Progress-0.25) > 1e-9 {
		t.Errorf("progress = %v, want 0.25", pos.Progress)
	}

	pos = Locate(lines, -3, 0)
	if pos.Index != -1 || pos.Current != nil || pos.Next == nil || pos.Next.Text != "A" {
		t.Errorf("before start: %+v", pos)
	}

	pos = Locate(lines, 9, 0)
	if pos.Next != nil || pos.Progress != 1 {
		t.Errorf("after last: %+v", pos)
	}
}

func TestStatusCoherence(t *testing.T) {
	for current := -1; current <= 5; current++ {
		statuses := Statuses(5, current)
		counts := map[Status]int{}
		for i, s := range statuses {
			counts[s]++
			if s != StatusOf(i, current) {
				t.Fatalf("Statuses disagrees with StatusOf at %d", i)
			}
		}
		wantCurrent := 0
		if current >= 0 && current < 5 {
			wantCurrent = 1
		}
		if counts[Current] != wantCurrent {
			t.Errorf("current=%d: %d current lines, want %d", current, counts[Current], wantCurrent)
		}
		if counts[Next] > 1 {
			t.Errorf("current=%d: %d next lines", current, counts[Next])
		}
	}

	if got := StatusOf(0, -1); got != Next {
		t.Errorf("line 0 before start = %v, want next", got)
	}
	if got := StatusOf(3, -1); got != Future {
		t.Errorf("line 3 before start = %v, want future", got)
	}
	if got := StatusOf(0, 2); got != Past {
		t.Errorf("StatusOf(0,2) = %v, want past", got)
	}
}

func TestStatusText(t *testing.T) {
	for _, s := range []Status{Current, Next, Past, Future} {
		b, err := s.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Status
		if err := back.UnmarshalText(b); err != nil || back != s {
			t.Errorf("%v: round trip gave %v, %v", s, back, err)
		}
	}
	var s Status
	if err := s.UnmarshalText([]byte("playing")); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(abc()); err != nil {
		t.Fatalf("sorted timeline rejected: %v", err)
	}
	if err := Validate(nil); err != nil {
		t.Fatalf("empty timeline rejected: %v", err)
	}
	if err := Validate([]Line{{1, "a", 0}, {1, "b", 0}}); err != nil {
		t.Fatalf("equal timestamps rejected: %v", err)
	}

	err := Validate([]Line{{0, "a", 0}, {5, "b", 0}, {3, "c", 0}})
	if !errors.Is(err, ErrUnsorted) {
		t.Errorf("unsorted: got %v", err)
	}
	err = Validate([]Line{{-1, "a", 0}})
	if !errors.Is(err, ErrInvalidTimestamp) {
		t.Errorf("negative: got %v", err)
	}
	err = Validate([]Line{{math.NaN(), "a", 0}})
	if !errors.Is(err, ErrInvalidTimestamp) {
		t.Errorf("NaN: got %v", err)
	}
}

// 未排序输入属于前置条件违例：不崩溃、结果在合法范围内即可
func TestLocateUnsortedPrecondition(t *testing.T) {
	lines := []Line{{8, "c", 0}, {0, "a", 0}, {4, "b", 0}}
	got := LocateCurrentLine(lines, 5, 0)
	if got < -1 || got >= len(lines) {
		t.Errorf("index %d out of range", got)
	}
}

func TestCloneAndSameTiming(t *testing.T) {
	orig := Timeline(abc())
	c := orig.Clone()
	c[0].Text = "changed"
	if orig[0].Text != "A" {
		t.Error("Clone shares backing array")
	}
	if !SameTiming(orig, c) {
		t.Error("SameTiming should ignore text")
	}
	if SameTiming(orig, c[:2]) {
		t.Error("SameTiming should compare length")
	}
	if Timeline(nil).Clone() != nil {
		t.Error("nil clone should stay nil")
	}
}
