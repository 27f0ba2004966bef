package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyrics-viewer/internal/offline"
	"lyrics-viewer/internal/session"
	"lyrics-viewer/internal/song"
)

// Translator 翻译服务中 HTTP 层用到的部分
type Translator interface {
	Translate(ctx context.Context, songID, lang string) (*song.Translation, error)
	TranslateText(ctx context.Context, text, lang string) (string, error)
	DefaultLanguage() string
	ProviderName() string
	Cache() offline.Cache
}

type Importer interface {
	Import(ctx context.Context, req song.ImportRequest) (*song.Song, error)
}

// Deps HTTP 层依赖
type Deps struct {
	Songs          song.Repository
	Translator     Translator
	Importer       Importer // 为空时导入接口返回 503
	Sessions       *session.Manager
	AllowedOrigins []string
}

type Server struct {
	deps     Deps
	router   *mux.Router
	upgrader websocket.Upgrader
	started  time.Time

	mu      sync.Mutex
	viewers map[string]*viewer

	logger zerolog.Logger
}

func New(deps Deps) *Server {
	s := &Server{
		deps:    deps,
		router:  mux.NewRouter(),
		started: time.Now(),
		viewers: make(map[string]*viewer),
		logger:  log.With().Str("component", "http").Logger(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api.HandleFunc("/songs", s.handleListSongs).Methods(http.MethodGet)
	api.HandleFunc("/songs", s.handleCreateSong).Methods(http.MethodPost)
	api.HandleFunc("/songs/search", s.handleSearchSongs).Methods(http.MethodGet)
	api.HandleFunc("/songs/import", s.handleImportSong).Methods(http.MethodPost)
	api.HandleFunc("/songs/{id}", s.handleGetSong).Methods(http.MethodGet)
	api.HandleFunc("/songs/{id}/translations", s.handleListTranslations).Methods(http.MethodGet)
	api.HandleFunc("/songs/{id}/translate", s.handleTranslateSong).Methods(http.MethodPost)

	api.HandleFunc("/translate", s.handleTranslateText).Methods(http.MethodPost)

	api.HandleFunc("/offline/translations", s.handleOfflineTranslations).Methods(http.MethodGet)
	api.HandleFunc("/offline/translations", s.handleClearOffline).Methods(http.MethodDelete)
	api.HandleFunc("/offline/stats", s.handleOfflineStats).Methods(http.MethodGet)

	api.HandleFunc("/sessions/ws", s.handleSessionWS).Methods(http.MethodGet)
}

// Handler CORS 包在路由外层，预检请求不需要匹配任何路由
func (s *Server) Handler() http.Handler {
	return s.cors(s.accessLog(s.router))
}

func (s *Server) allowed(origin string) bool {
	for _, o := range s.deps.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.allowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		} else if origin == "" && s.allowed("*") {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.allowed(origin)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// websocket 需要原始的 Hijacker
		if websocket.IsWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("Request handled")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":      "ok",
		"uptime":      time.Since(s.started).Round(time.Second).String(),
		"translation": s.deps.Translator.ProviderName(),
		"sessions":    s.deps.Sessions.Len(),
	}
	if stats, err := s.deps.Translator.Cache().Stats(r.Context()); err == nil {
		resp["offlineCache"] = stats.Backend
	} else {
		resp["offlineCache"] = "error"
	}
	writeJSON(w, http.StatusOK, resp)
}

// Run 监听 addr，ctx 取消后优雅关闭
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.closeViewers()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
