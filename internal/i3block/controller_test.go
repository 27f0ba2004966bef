package i3block

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

func TestParsePID(t *testing.T) {
	tests := []struct {
		out     string
		want    int
		wantErr bool
	}{
		{"1234\n", 1234, false},
		{"1234\n5678\n", 1234, false},
		{"", -1, true},
		{"abc", -1, true},
	}
	for _, tt := range tests {
		got, err := parsePID(tt.out)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parsePID(%q) = %d, %v", tt.out, got, err)
		}
	}
}

func TestShowWritesAndSignals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lyrics")
	c := NewController(path, 21)

	var sent []syscall.Signal
	c.findPID = func() (int, error) { return 42, nil }
	c.send = func(pid int, sig syscall.Signal) error {
		if pid != 42 {
			t.Errorf("pid = %d", pid)
		}
		sent = append(sent, sig)
		return nil
	}

	if err := c.Show("Look at the stars"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Look at the stars\n" {
		t.Errorf("file = %q", data)
	}
	if len(sent) != 1 || sent[0] != syscall.Signal(55) {
		t.Errorf("signals = %v, want [55]", sent)
	}

	// 相同文本不重复发送
	if err := c.Show("Look at the stars"); err != nil {
		t.Fatal(err)
	}
	if len(sent) != 1 {
		t.Errorf("signals after repeat = %d", len(sent))
	}
}

func TestShowWithoutI3blocks(t *testing.T) {
	c := NewController("", 21)
	c.findPID = func() (int, error) { return -1, errors.New("not running") }
	c.send = func(int, syscall.Signal) error {
		t.Error("signal sent without a pid")
		return nil
	}
	if err := c.Show("line"); err != nil {
		t.Errorf("err = %v", err)
	}
}

func TestShowForgetsDeadPID(t *testing.T) {
	c := NewController("", 1)
	c.findPID = func() (int, error) { return 7, nil }
	c.send = func(int, syscall.Signal) error { return errors.New("no such process") }

	if err := c.Show("a"); err == nil {
		t.Error("expected signal error")
	}
	if c.PID() != -1 {
		t.Errorf("pid = %d, want -1", c.PID())
	}
}
