package music

import (
	"context"
	"errors"
	"testing"
)

// mockProvider 模拟音乐提供商
type mockProvider struct {
	name       string
	searchFail bool
	lyricsFail bool
	searched   int
}

func (m *mockProvider) SearchSong(ctx context.Context, title, artist string) (string, error) {
	m.searched++
	if m.searchFail {
		return "", errors.New("search failed")
	}
	return "mock-song-id", nil
}

func (m *mockProvider) GetLyrics(ctx context.Context, songID string) (string, error) {
	if m.lyricsFail {
		return "", errors.New("lyrics failed")
	}
	return "[00:10.00]Test lyrics", nil
}

func (m *mockProvider) GetProviderName() string {
	return m.name
}

// mockInfoProvider 支持按信息直接查询
type mockInfoProvider struct {
	mockProvider
	gotDuration float64
}

func (m *mockInfoProvider) GetLyricsByInfo(ctx context.Context, title, artist string, duration float64) (string, error) {
	m.gotDuration = duration
	return "[00:01.00]By info", nil
}

func TestGetLyricsByInfo(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		manager := NewManager([]MusicAPI{&mockProvider{name: "TestProvider"}})
		lyrics, err := manager.GetLyricsByInfo(context.Background(), "Test Song", "Test Artist", 0)
		if err != nil {
			t.Fatalf("Expected success, got error: %v", err)
		}
		if lyrics != "[00:10.00]Test lyrics" {
			t.Errorf("Expected '[00:10.00]Test lyrics', got '%s'", lyrics)
		}
	})

	t.Run("FailoverSuccess", func(t *testing.T) {
		failProvider := &mockProvider{name: "FailProvider", searchFail: true}
		successProvider := &mockProvider{name: "SuccessProvider"}

		manager := NewManager([]MusicAPI{failProvider, successProvider})
		lyrics, err := manager.GetLyricsByInfo(context.Background(), "Test Song", "Test Artist", 0)
		if err != nil {
			t.Fatalf("Expected success with failover, got error: %v", err)
		}
		if lyrics != "[00:10.00]Test lyrics" || successProvider.searched != 1 {
			t.Errorf("lyrics = %q, searched = %d", lyrics, successProvider.searched)
		}
	})

	t.Run("AllFail", func(t *testing.T) {
		manager := NewManager([]MusicAPI{
			&mockProvider{name: "FailProvider1", searchFail: true},
			&mockProvider{name: "FailProvider2", lyricsFail: true},
		})
		if _, err := manager.GetLyricsByInfo(context.Background(), "Test Song", "Test Artist", 0); err == nil {
			t.Error("Expected error when all providers fail, got success")
		}
	})

	t.Run("InfoProviderSkipsSearch", func(t *testing.T) {
		info := &mockInfoProvider{mockProvider: mockProvider{name: "Info"}}
		manager := NewManager([]MusicAPI{info})
		lyrics, err := manager.GetLyricsByInfo(context.Background(), "Test Song", "Test Artist", 242)
		if err != nil {
			t.Fatal(err)
		}
		if lyrics != "[00:01.00]By info" || info.gotDuration != 242 || info.searched != 0 {
			t.Errorf("lyrics = %q, duration = %v, searched = %d", lyrics, info.gotDuration, info.searched)
		}
	})

	t.Run("NoProviders", func(t *testing.T) {
		_, err := NewManager(nil).GetLyricsByInfo(context.Background(), "a", "b", 0)
		if !errors.Is(err, ErrNoProviders) {
			t.Errorf("err = %v, want ErrNoProviders", err)
		}
	})
}

// TestManagerInterfaceCompliance 测试Manager是否正确实现了接口
func TestManagerInterfaceCompliance(t *testing.T) {
	manager := NewManager([]MusicAPI{&mockProvider{name: "TestProvider"}})

	var _ MusicAPI = manager
	var _ MusicManager = manager

	name := manager.GetProviderName()
	expected := "Manager[Primary: TestProvider]"
	if name != expected {
		t.Errorf("Expected provider name '%s', got '%s'", expected, name)
	}
}

func TestCreateManager(t *testing.T) {
	manager, err := CreateManager([]string{"lrclib", "unknown", "netease"})
	if err != nil {
		t.Fatal(err)
	}
	names := manager.GetProviderNames()
	if len(names) != 2 || names[0] != "LRCLib" || names[1] != "NetEase Cloud Music" {
		t.Errorf("providers = %v", names)
	}

	if _, err := CreateManager([]string{"kugou"}); err == nil {
		t.Error("expected error when no provider can be created")
	}
}
