// Package musiccache 播放器曲目标识到歌曲 id 的持久映射，每行一条 "key => value"
package musiccache

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"lyrics-viewer/pkg/fileutil"
)

const (
	kvFormat = "%s => %s"
	kvSep    = " => "
)

var ErrNotFound = errors.New("not found")

type Store struct {
	path string
	mu   sync.RWMutex
	m    map[string]string
}

// Open 读取映射文件，文件不存在时返回空映射
func Open(path string) (*Store, error) {
	s := &Store{path: path, m: make(map[string]string)}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), kvSep)
		if !ok || key == "" {
			continue
		}
		s.m[key] = value
	}
	return s, scanner.Err()
}

func (s *Store) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Add 写入并落盘；值未变化时不写文件
func (s *Store) Add(key, value string) error {
	key = strings.ReplaceAll(key, "\n", " ")

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.m[key]; ok && old == value {
		return nil
	}
	s.m[key] = value
	return s.flushLocked()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

func (s *Store) flushLocked() error {
	if s.path == "" {
		return nil
	}
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, kvFormat+"\n", k, s.m[k])
	}
	return fileutil.WriteFileAtomic(s.path, []byte(b.String()), 0o644)
}
