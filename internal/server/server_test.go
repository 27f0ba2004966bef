package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"lyrics-viewer/internal/offline"
	"lyrics-viewer/internal/session"
	"lyrics-viewer/internal/song"
	"lyrics-viewer/internal/timeline"
	"lyrics-viewer/internal/translation"
)

// prefixProvider 给每行加语言前缀；lang 为 "xx" 时模拟后端不可用
type prefixProvider struct{}

func (prefixProvider) Name() string { return "prefix" }

func (prefixProvider) TranslateLyrics(ctx context.Context, lines timeline.Timeline, lang string) (timeline.Timeline, error) {
	if lang == "xx" {
		return nil, errors.New("quota exceeded")
	}
	out := lines.Clone()
	for i := range out {
		out[i].Text = lang + ":" + out[i].Text
	}
	return out, nil
}

func (prefixProvider) TranslateText(ctx context.Context, text, lang string) (string, error) {
	return lang + ":" + text, nil
}

type fakeImporter struct {
	repo song.Repository
}

func (f fakeImporter) Import(ctx context.Context, req song.ImportRequest) (*song.Song, error) {
	if req.Title == "Unknown" {
		return nil, song.ErrNoSyncedLyrics
	}
	return f.repo.CreateSong(ctx, song.CreateRequest{Title: req.Title, Artist: req.Artist, LRC: "[00:01.00]imported"})
}

type testEnv struct {
	srv     *Server
	ts      *httptest.Server
	cache   offline.Cache
	manager *session.Manager
}

func newTestEnv(t *testing.T, importer bool) *testEnv {
	t.Helper()
	repo := song.NewMemoryStore(song.DefaultCatalog())
	cache, err := offline.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc := translation.NewService(repo, cache, prefixProvider{}, translation.ServiceOptions{Timeout: time.Second})

	opts := session.DefaultOptions()
	opts.FallbackInterval = time.Hour
	opts.PollInterval = time.Hour
	manager := session.NewManager(repo, svc, opts)

	deps := Deps{
		Songs:          repo,
		Translator:     svc,
		Sessions:       manager,
		AllowedOrigins: []string{"*"},
	}
	if importer {
		deps.Importer = fakeImporter{repo: repo}
	}
	srv := New(deps)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.closeViewers()
		manager.Close()
	})
	return &testEnv{srv: srv, ts: ts, cache: cache, manager: manager}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, e.ts.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out bytes.Buffer
	out.ReadFrom(resp.Body)
	return resp, out.Bytes()
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func TestSongRoutes(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"list", http.MethodGet, "/api/songs", nil, http.StatusOK},
		{"search", http.MethodGet, "/api/songs/search?q=yell", nil, http.StatusOK},
		{"search without query", http.MethodGet, "/api/songs/search", nil, http.StatusBadRequest},
		{"get", http.MethodGet, "/api/songs/yellow", nil, http.StatusOK},
		{"get missing", http.MethodGet, "/api/songs/missing", nil, http.StatusNotFound},
		{"translations of missing song", http.MethodGet, "/api/songs/missing/translations", nil, http.StatusNotFound},
		{"create from lrc", http.MethodPost, "/api/songs", map[string]any{
			"title": "Clocks", "artist": "Coldplay", "lrc": "[00:01.00]Lights go out\n[00:05.00]and I can't be saved",
		}, http.StatusCreated},
		{"create unsorted", http.MethodPost, "/api/songs", map[string]any{
			"title": "Broken", "artist": "Nobody",
			"lyrics": []map[string]any{{"timestamp": 5, "text": "b"}, {"timestamp": 1, "text": "a"}},
		}, http.StatusBadRequest},
		{"create malformed", http.MethodPost, "/api/songs", "{", http.StatusBadRequest},
		{"import not configured", http.MethodPost, "/api/songs/import", map[string]any{"title": "Clocks", "artist": "Coldplay"}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, tt.method, tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d: %s", resp.StatusCode, tt.status, body)
			}
			if resp.StatusCode >= 400 {
				if msg := decode[errorResponse](t, body).Message; msg == "" {
					t.Errorf("error without message: %s", body)
				}
			}
		})
	}

	_, body := env.do(t, http.MethodGet, "/api/songs", nil)
	if songs := decode[[]song.Song](t, body); len(songs) != 6 {
		t.Errorf("songs after create = %d, want 6", len(songs))
	}
	_, body = env.do(t, http.MethodGet, "/api/songs/search?q=yell", nil)
	if songs := decode[[]song.Song](t, body); len(songs) != 1 || songs[0].ID != "yellow" {
		t.Errorf("search = %+v", songs)
	}
	_, body = env.do(t, http.MethodGet, "/api/songs/clocks", nil)
	if sng := decode[song.Song](t, body); len(sng.Lyrics) != 2 || sng.Lyrics[1].Timestamp != 5 {
		t.Errorf("created song = %+v", sng)
	}
}

func TestImportRoute(t *testing.T) {
	env := newTestEnv(t, true)

	resp, body := env.do(t, http.MethodPost, "/api/songs/import", map[string]any{"title": "Clocks", "artist": "Coldplay"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if sng := decode[song.Song](t, body); sng.ID != "clocks" || len(sng.Lyrics) != 1 {
		t.Errorf("imported = %+v", sng)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/songs/import", map[string]any{"title": "Unknown", "artist": "Nobody"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestTranslateRoutes(t *testing.T) {
	env := newTestEnv(t, false)

	resp, body := env.do(t, http.MethodPost, "/api/songs/yellow/translate", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	tr := decode[song.Translation](t, body)
	if tr.Language != "es" || tr.TranslatedLyrics[0].Text != "es:Look at the stars" {
		t.Errorf("translation = %+v", tr)
	}

	resp, body = env.do(t, http.MethodPost, "/api/songs/yellow/translate", map[string]string{"targetLanguage": "fr"})
	if resp.StatusCode != http.StatusOK || decode[song.Translation](t, body).Language != "fr" {
		t.Errorf("fr translation status = %d: %s", resp.StatusCode, body)
	}

	resp, body = env.do(t, http.MethodPost, "/api/songs/yellow/translate", map[string]string{"targetLanguage": "xx"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("unavailable status = %d: %s", resp.StatusCode, body)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/songs/missing/translate", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing song status = %d", resp.StatusCode)
	}

	_, body = env.do(t, http.MethodGet, "/api/songs/yellow/translations", nil)
	if list := decode[[]song.Translation](t, body); len(list) != 2 || list[0].Language != "es" || list[1].Language != "fr" {
		t.Errorf("translations = %+v", list)
	}

	resp, body = env.do(t, http.MethodPost, "/api/translate", map[string]string{"text": "hello"})
	if resp.StatusCode != http.StatusOK || decode[translateTextResponse](t, body).TranslatedText != "es:hello" {
		t.Errorf("translate text status = %d: %s", resp.StatusCode, body)
	}
	resp, _ = env.do(t, http.MethodPost, "/api/translate", map[string]string{"text": " "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty text status = %d", resp.StatusCode)
	}
}

func TestOfflineRoutes(t *testing.T) {
	env := newTestEnv(t, false)
	env.do(t, http.MethodPost, "/api/songs/yellow/translate", map[string]string{"targetLanguage": "de"})

	_, body := env.do(t, http.MethodGet, "/api/offline/translations", nil)
	entries := decode[[]offline.Entry](t, body)
	if len(entries) != 1 || entries[0].SongID != "yellow" || entries[0].Language != "de" {
		t.Errorf("entries = %+v", entries)
	}

	_, body = env.do(t, http.MethodGet, "/api/offline/stats", nil)
	stats := decode[offline.Stats](t, body)
	if stats.TotalTranslations != 1 || stats.TotalSongs != 1 || stats.LastUpdated == nil {
		t.Errorf("stats = %+v", stats)
	}

	resp, _ := env.do(t, http.MethodDelete, "/api/offline/translations", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("clear status = %d", resp.StatusCode)
	}
	_, body = env.do(t, http.MethodGet, "/api/offline/stats", nil)
	if stats := decode[offline.Stats](t, body); stats.TotalTranslations != 0 {
		t.Errorf("stats after clear = %+v", stats)
	}
}

func TestHealthAndCORS(t *testing.T) {
	env := newTestEnv(t, false)

	resp, body := env.do(t, http.MethodGet, "/api/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	health := decode[map[string]any](t, body)
	if health["status"] != "ok" || health["translation"] != "prefix" || health["offlineCache"] != "file" {
		t.Errorf("health = %v", health)
	}

	req, _ := http.NewRequest(http.MethodOptions, env.ts.URL+"/api/songs", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("preflight status = %d, allow-origin = %q", resp.StatusCode, resp.Header.Get("Access-Control-Allow-Origin"))
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{song.ErrSongNotFound, http.StatusNotFound},
		{song.ErrInvalidSong, http.StatusBadRequest},
		{timeline.ErrUnsorted, http.StatusBadRequest},
		{translation.ErrUnavailable, http.StatusServiceUnavailable},
		{song.ErrLyricsUnavailable, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusOf(tt.err); got != tt.want {
			t.Errorf("statusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

// wsMessage 读取时只关心的字段
type wsMessage struct {
	Type      string            `json:"type"`
	SessionID string            `json:"sessionId"`
	SongID    string            `json:"songId"`
	Language  string            `json:"language"`
	Lines     timeline.Timeline `json:"lines"`
	Time      float64           `json:"time"`
	Index     int               `json:"index"`
	Message   string            `json:"message"`
}

func dial(t *testing.T, env *testEnv, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/api/sessions/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil 读到指定类型且满足条件的消息
func readUntil(t *testing.T, conn *websocket.Conn, kind string, ok func(wsMessage) bool) wsMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", kind, err)
		}
		if msg.Type == kind && (ok == nil || ok(msg)) {
			return msg
		}
	}
}

func TestSessionWebSocket(t *testing.T) {
	env := newTestEnv(t, false)
	conn := dial(t, env, "")

	hello := readUntil(t, conn, "session", nil)
	if hello.SessionID == "" {
		t.Fatal("no session id")
	}

	if err := conn.WriteJSON(map[string]any{"type": "load", "songId": "yellow", "language": "fr"}); err != nil {
		t.Fatal(err)
	}
	lyrics := readUntil(t, conn, session.TypeLyrics, nil)
	if lyrics.SongID != "yellow" || lyrics.Language != "fr" || lyrics.Lines[0].Text != "fr:Look at the stars" {
		t.Errorf("lyrics = %+v", lyrics)
	}

	if err := conn.WriteJSON(map[string]any{"type": "seek", "time": 9}); err != nil {
		t.Fatal(err)
	}
	frame := readUntil(t, conn, session.TypeFrame, func(m wsMessage) bool { return m.Time == 9 })
	if frame.Index != 2 {
		t.Errorf("frame index = %d, want 2", frame.Index)
	}

	if err := conn.WriteJSON(map[string]any{"type": "seek"}); err != nil {
		t.Fatal(err)
	}
	if msg := readUntil(t, conn, session.TypeError, nil); !strings.Contains(msg.Message, "seek requires time") {
		t.Errorf("error = %q", msg.Message)
	}

	// 第二个连接加入同一会话，先收到重放的歌词和最新帧
	second := dial(t, env, "?session="+hello.SessionID)
	if readUntil(t, second, "session", nil).SessionID != hello.SessionID {
		t.Error("second connection joined a different session")
	}
	if replay := readUntil(t, second, session.TypeLyrics, nil); replay.Language != "fr" {
		t.Errorf("replayed lyrics = %+v", replay)
	}
	if env.manager.Len() != 1 {
		t.Errorf("sessions = %d, want 1", env.manager.Len())
	}
}

func TestSessionClosedWhenLastViewerLeaves(t *testing.T) {
	env := newTestEnv(t, false)
	conn := dial(t, env, "")
	readUntil(t, conn, "session", nil)
	if env.manager.Len() != 1 {
		t.Fatalf("sessions = %d, want 1", env.manager.Len())
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	deadline := time.Now().Add(3 * time.Second)
	for env.manager.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("session not removed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
