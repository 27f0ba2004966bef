// Package i3block 把当前歌词行写到文件，并通知 i3blocks 刷新对应的块
package i3block

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyrics-viewer/pkg/fileutil"
)

// sigRTMin Linux 上的 SIGRTMIN，i3blocks 的 signal=N 对应 SIGRTMIN+N
const sigRTMin = 34

// Controller 维护 i3blocks 的 PID 并发送刷新信号
type Controller struct {
	path   string
	signal int // 0 表示只写文件不发信号

	mu      sync.Mutex
	pid     int
	last    string
	findPID func() (int, error)
	send    func(pid int, sig syscall.Signal) error
	logger  zerolog.Logger
}

// NewController path 为空时不写文件；signal 对应 i3blocks 配置里的 signal=N
func NewController(path string, signal int) *Controller {
	return &Controller{
		path:    path,
		signal:  signal,
		pid:     -1,
		findPID: findI3blocks,
		send:    sendSignal,
		logger:  log.With().Str("component", "i3block").Logger(),
	}
}

// RefreshPID 重新查找 i3blocks 进程
func (c *Controller) RefreshPID() error {
	pid, err := c.findPID()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.pid = -1
		return err
	}
	if pid != c.pid {
		c.logger.Debug().Int("old_pid", c.pid).Int("pid", pid).Msg("i3blocks PID updated")
	}
	c.pid = pid
	return nil
}

func (c *Controller) PID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pid
}

// Show 文本变化时写文件并发送信号。找不到 i3blocks 时只写文件。
func (c *Controller) Show(text string) error {
	c.mu.Lock()
	if text == c.last {
		c.mu.Unlock()
		return nil
	}
	c.last = text
	c.mu.Unlock()

	if c.path != "" {
		if err := fileutil.WriteFileAtomic(c.path, []byte(text+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write status file: %w", err)
		}
	}
	if c.signal <= 0 {
		return nil
	}

	pid := c.PID()
	if pid <= 0 {
		if err := c.RefreshPID(); err != nil {
			return nil
		}
		pid = c.PID()
	}
	if err := c.send(pid, syscall.Signal(sigRTMin+c.signal)); err != nil {
		// 进程可能已重启，下次重新查找
		c.mu.Lock()
		c.pid = -1
		c.mu.Unlock()
		return fmt.Errorf("failed to signal i3blocks (pid %d): %w", pid, err)
	}
	return nil
}

func findI3blocks() (int, error) {
	out, err := exec.Command("pgrep", "-x", "i3blocks").Output()
	if err != nil {
		return -1, fmt.Errorf("i3blocks process not found: %w", err)
	}
	return parsePID(string(out))
}

// parsePID 多个 PID 时取第一个
func parsePID(out string) (int, error) {
	first, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	if first == "" {
		return -1, fmt.Errorf("i3blocks process not found")
	}
	pid, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return -1, fmt.Errorf("failed to parse PID %q: %w", first, err)
	}
	return pid, nil
}

func sendSignal(pid int, sig syscall.Signal) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Signal(sig)
}
