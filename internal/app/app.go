// Package app 组装各个组件：配置、日志、曲库、离线缓存、翻译、会话和 HTTP 服务
package app

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyrics-viewer/internal/config"
	"lyrics-viewer/internal/logging"
	"lyrics-viewer/internal/offline"
	"lyrics-viewer/internal/server"
	"lyrics-viewer/internal/session"
	"lyrics-viewer/internal/song"
	"lyrics-viewer/internal/translation"
	"lyrics-viewer/pkg/music"
	pkgredis "lyrics-viewer/pkg/redis"
)

type App struct {
	cfg *config.Config

	repo       *song.MemoryStore
	cache      offline.Cache
	redis      *pkgredis.Client
	translator *translation.Service
	importer   *song.Importer // 没有可用的歌词源时为 nil
	sessions   *session.Manager
	server     *server.Server

	logCloser io.Closer
	logger    zerolog.Logger
}

// New 初始化日志并创建全部组件。console 为 nil 时日志写到 stderr。
func New(ctx context.Context, cfg *config.Config, console io.Writer) (*App, error) {
	a := &App{cfg: cfg}
	a.logCloser = logging.Setup(cfg.Log, console)
	a.logger = log.With().Str("component", "app").Logger()

	seed := song.DefaultCatalog()
	if cfg.Catalog.SeedFile != "" {
		extra, err := song.LoadSeedFile(cfg.Catalog.SeedFile)
		if err != nil {
			a.logger.Warn().Err(err).Str("file", cfg.Catalog.SeedFile).Msg("Failed to load seed file, using built-in catalog")
		} else {
			seed = append(seed, extra...)
		}
	}
	a.repo = song.NewMemoryStore(seed)

	cache, err := a.openCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.cache = cache

	provider := translation.NewProvider(ctx, cfg.Translation)
	a.translator = translation.NewService(a.repo, a.cache, provider, translation.ServiceOptions{
		Timeout:         cfg.Translation.Timeout,
		DefaultLanguage: cfg.Translation.DefaultLanguage,
	})

	manager, err := music.CreateManager(cfg.Catalog.LyricsProviders)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Lyrics import disabled")
	} else {
		a.importer = song.NewImporter(a.repo, manager)
		a.logger.Info().Strs("providers", manager.GetProviderNames()).Msg("Lyrics import enabled")
	}

	a.sessions = session.NewManager(a.repo, a.translator, a.sessionOptions())

	deps := server.Deps{
		Songs:          a.repo,
		Translator:     a.translator,
		Sessions:       a.sessions,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if a.importer != nil {
		deps.Importer = a.importer
	}
	a.server = server.New(deps)
	return a, nil
}

// openCache 启用 Redis 且能连上时用 Redis，否则退回 JSON 文件
func (a *App) openCache(ctx context.Context) (offline.Cache, error) {
	if a.cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
		if err == nil {
			a.redis = client
			a.logger.Info().Str("addr", a.cfg.Redis.Addr).Msg("Offline cache backed by Redis")
			return offline.NewRedisCache(client), nil
		}
		a.logger.Warn().Err(err).Msg("Redis unavailable, falling back to file cache")
	}

	fc, err := offline.NewFileCache(a.cfg.Cache.Dir)
	if err != nil {
		return nil, err
	}
	a.logger.Info().Str("path", fc.Path()).Msg("Offline cache backed by file")
	return fc, nil
}

func (a *App) sessionOptions() session.Options {
	opts := session.DefaultOptions()
	opts.Lookahead = a.cfg.Sync.Lookahead
	opts.PollInterval = a.cfg.Sync.PollInterval
	opts.FallbackInterval = a.cfg.Sync.FallbackInterval
	opts.Playback.Step = a.cfg.Sync.Step
	opts.Playback.Loop = a.cfg.Sync.Loop
	return opts
}

func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Serve 阻塞直到 ctx 取消
func (a *App) Serve(ctx context.Context) error {
	a.logger.Info().
		Str("addr", a.cfg.Server.Addr).
		Str("translation", a.translator.ProviderName()).
		Msg("Starting lyrics viewer")
	return a.server.Run(ctx, a.cfg.Server.Addr, a.cfg.Server.ShutdownTimeout)
}

func (a *App) Close() {
	if a.sessions != nil {
		a.sessions.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
	if a.logCloser != nil {
		a.logCloser.Close()
	}
}
