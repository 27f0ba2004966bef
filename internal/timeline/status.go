package timeline

import "fmt"

// Status 某一行相对当前行的显示状态
type Status int

const (
	Future Status = iota
	Past
	Current
	Next
)

func (s Status) String() string {
	switch s {
	case Current:
		return "current"
	case Next:
		return "next"
	case Past:
		return "past"
	default:
		return "future"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "current":
		*s = Current
	case "next":
		*s = Next
	case "past":
		*s = Past
	case "future":
		*s = Future
	default:
		return fmt.Errorf("unknown line status %q", string(b))
	}
	return nil
}

// StatusOf 计算第 i 行的状态。current 为 -1 时第 0 行为 next。
func StatusOf(i, current int) Status {
	switch {
	case i == current:
		return Current
	case i == current+1:
		return Next
	case i < current:
		return Past
	default:
		return Future
	}
}

// Statuses 计算 [0,n) 每一行的状态
func Statuses(n, current int) []Status {
	out := make([]Status, n)
	for i := 0; i < n; i++ {
		out[i] = StatusOf(i, current)
	}
	return out
}
