package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	DefaultAddr             = ":5000"
	DefaultLookahead        = 0.2
	DefaultPollInterval     = 50 * time.Millisecond
	DefaultFallbackInterval = time.Second
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultTranslateTimeout = 30 * time.Second
	DefaultLanguage         = "es"
)

func getDefaultCacheDir() string {
	// 优先使用 XDG_CACHE_HOME 环境变量
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, "lyrics-viewer")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "lyrics_cache"
	}

	return filepath.Join(homeDir, ".cache", "lyrics-viewer")
}

// TomlConfig TOML配置文件结构，时长字段用字符串写，例如 "50ms"
type TomlConfig struct {
	Server struct {
		Addr            string   `toml:"addr"`
		AllowedOrigins  []string `toml:"allowed_origins"`
		ShutdownTimeout string   `toml:"shutdown_timeout"`
	} `toml:"server"`

	Sync struct {
		Lookahead        *float64 `toml:"lookahead"`
		PollInterval     string   `toml:"poll_interval"`
		FallbackInterval string   `toml:"fallback_interval"`
		Step             float64  `toml:"step"`
		Loop             *bool    `toml:"loop"`
	} `toml:"sync"`

	Translation struct {
		Provider        string `toml:"provider"`
		SourceLanguage  string `toml:"source_language"`
		DefaultLanguage string `toml:"default_language"`
		Timeout         string `toml:"timeout"`
		Google          struct {
			APIKey   string `toml:"api_key"`
			Endpoint string `toml:"endpoint"`
		} `toml:"google"`
		Tencent struct {
			SecretID  string `toml:"secret_id"`
			SecretKey string `toml:"secret_key"`
			Region    string `toml:"region"`
		} `toml:"tencent"`
	} `toml:"translation"`

	AI struct {
		ModuleName string `toml:"module_name"`
		APIKey     string `toml:"api_key"`
		Model      string `toml:"model"`
		BaseURL    string `toml:"base_url"` // for OpenAI
	} `toml:"ai"`

	Catalog struct {
		SeedFile        string   `toml:"seed_file"`
		LyricsProviders []string `toml:"lyrics_providers"`
	} `toml:"catalog"`

	Cache struct {
		Dir string `toml:"dir"`
	} `toml:"cache"`

	Redis struct {
		Enabled  bool   `toml:"enabled"`
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`

	Log struct {
		Level      string `toml:"level"`
		File       string `toml:"file"`
		MaxSizeMB  int    `toml:"max_size_mb"`
		MaxBackups int    `toml:"max_backups"`
		MaxAgeDays int    `toml:"max_age_days"`
	} `toml:"log"`

	Player struct {
		Name string `toml:"name"`
	} `toml:"player"`
}

type ServerConfig struct {
	Addr            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// SyncConfig 时间轴同步参数
type SyncConfig struct {
	Lookahead        float64 // 秒
	PollInterval     time.Duration
	FallbackInterval time.Duration
	Step             float64 // 内部时钟每次前进的秒数
	Loop             bool
}

type GoogleConfig struct {
	APIKey   string
	Endpoint string
}

type TencentConfig struct {
	SecretID  string
	SecretKey string
	Region    string
}

// AIConfig AI配置
type AIConfig struct {
	ModuleName string // gemini / openai
	APIKey     string
	Model      string
	BaseURL    string
}

type TranslationConfig struct {
	Provider        string // google / tencent / ai
	SourceLanguage  string
	DefaultLanguage string
	Timeout         time.Duration
	Google          GoogleConfig
	Tencent         TencentConfig
	AI              AIConfig
}

type CatalogConfig struct {
	SeedFile        string
	LyricsProviders []string
}

type CacheConfig struct {
	Dir string
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type PlayerConfig struct {
	Name string
}

// Config 主配置结构
type Config struct {
	Server      ServerConfig
	Sync        SyncConfig
	Translation TranslationConfig
	Catalog     CatalogConfig
	Cache       CacheConfig
	Redis       RedisConfig
	Log         LogConfig
	Player      PlayerConfig
}

// Default 全部默认值
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Sync: SyncConfig{
			Lookahead:        DefaultLookahead,
			PollInterval:     DefaultPollInterval,
			FallbackInterval: DefaultFallbackInterval,
			Step:             1,
			Loop:             true,
		},
		Translation: TranslationConfig{
			Provider:        "google",
			SourceLanguage:  "en",
			DefaultLanguage: DefaultLanguage,
			Timeout:         DefaultTranslateTimeout,
			Tencent:         TencentConfig{Region: "ap-guangzhou"},
			AI:              AIConfig{ModuleName: "gemini"},
		},
		Catalog: CatalogConfig{
			LyricsProviders: []string{"lrclib", "netease"},
		},
		Cache: CacheConfig{
			Dir: getDefaultCacheDir(),
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// DefaultPath 获取配置文件路径
func DefaultPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "lyrics-viewer", "config.toml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warn().Err(err).Msg("Cannot get user home directory")
		return "config.toml"
	}

	return filepath.Join(homeDir, ".config", "lyrics-viewer", "config.toml")
}

// loadTomlConfig 文件不存在时返回空配置
func loadTomlConfig(configPath string) (*TomlConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Info().Str("path", configPath).Msg("Config file not found, using defaults")
		return &TomlConfig{}, nil
	}

	var config TomlConfig
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return nil, err
	}

	log.Info().Str("path", configPath).Msg("Loaded config")
	return &config, nil
}

// Load 默认值 < TOML 文件 < .env / 环境变量。path 为空时使用 DefaultPath。
func Load(path string) *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	if path == "" {
		path = DefaultPath()
	}
	tomlConfig, err := loadTomlConfig(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to load config file, using default configuration")
		tomlConfig = &TomlConfig{}
	}

	config := Default()
	config.applyToml(tomlConfig)
	config.applyEnv(os.Getenv)
	config.warnMissing()
	return config
}

func parseDuration(field, value string, dst *time.Duration) {
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Warn().Str("field", field).Str("value", value).Msg("Invalid duration, using default")
		return
	}
	*dst = d
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func (c *Config) applyToml(t *TomlConfig) {
	setString(&c.Server.Addr, t.Server.Addr)
	if len(t.Server.AllowedOrigins) > 0 {
		c.Server.AllowedOrigins = t.Server.AllowedOrigins
	}
	parseDuration("server.shutdown_timeout", t.Server.ShutdownTimeout, &c.Server.ShutdownTimeout)

	if t.Sync.Lookahead != nil {
		if *t.Sync.Lookahead >= 0 {
			c.Sync.Lookahead = *t.Sync.Lookahead
		} else {
			log.Warn().Float64("value", *t.Sync.Lookahead).Msg("Negative sync.lookahead, using default")
		}
	}
	parseDuration("sync.poll_interval", t.Sync.PollInterval, &c.Sync.PollInterval)
	parseDuration("sync.fallback_interval", t.Sync.FallbackInterval, &c.Sync.FallbackInterval)
	if t.Sync.Step > 0 {
		c.Sync.Step = t.Sync.Step
	}
	if t.Sync.Loop != nil {
		c.Sync.Loop = *t.Sync.Loop
	}

	tr := &c.Translation
	setString(&tr.Provider, t.Translation.Provider)
	setString(&tr.SourceLanguage, t.Translation.SourceLanguage)
	setString(&tr.DefaultLanguage, t.Translation.DefaultLanguage)
	parseDuration("translation.timeout", t.Translation.Timeout, &tr.Timeout)
	setString(&tr.Google.APIKey, t.Translation.Google.APIKey)
	setString(&tr.Google.Endpoint, t.Translation.Google.Endpoint)
	setString(&tr.Tencent.SecretID, t.Translation.Tencent.SecretID)
	setString(&tr.Tencent.SecretKey, t.Translation.Tencent.SecretKey)
	setString(&tr.Tencent.Region, t.Translation.Tencent.Region)
	setString(&tr.AI.ModuleName, t.AI.ModuleName)
	setString(&tr.AI.APIKey, t.AI.APIKey)
	setString(&tr.AI.Model, t.AI.Model)
	setString(&tr.AI.BaseURL, t.AI.BaseURL)

	setString(&c.Catalog.SeedFile, t.Catalog.SeedFile)
	if len(t.Catalog.LyricsProviders) > 0 {
		c.Catalog.LyricsProviders = t.Catalog.LyricsProviders
	}

	setString(&c.Cache.Dir, t.Cache.Dir)

	c.Redis.Enabled = t.Redis.Enabled
	setString(&c.Redis.Addr, t.Redis.Addr)
	setString(&c.Redis.Password, t.Redis.Password)
	if t.Redis.DB != 0 {
		c.Redis.DB = t.Redis.DB
	}

	setString(&c.Log.Level, t.Log.Level)
	setString(&c.Log.File, t.Log.File)
	if t.Log.MaxSizeMB > 0 {
		c.Log.MaxSizeMB = t.Log.MaxSizeMB
	}
	if t.Log.MaxBackups > 0 {
		c.Log.MaxBackups = t.Log.MaxBackups
	}
	if t.Log.MaxAgeDays > 0 {
		c.Log.MaxAgeDays = t.Log.MaxAgeDays
	}

	setString(&c.Player.Name, t.Player.Name)
}

// applyEnv 环境变量优先级最高
func (c *Config) applyEnv(getenv func(string) string) {
	if port := getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	setString(&c.Server.Addr, getenv("LYRICS_ADDR"))

	// 与旧版部署兼容的 Google 变量名
	setString(&c.Translation.Google.APIKey, getenv("GOOGLE_API_KEY"))
	setString(&c.Translation.Google.APIKey, getenv("GOOGLE_TRANSLATE_API_KEY"))
	setString(&c.Translation.Tencent.SecretID, getenv("TENCENTCLOUD_SECRET_ID"))
	setString(&c.Translation.Tencent.SecretKey, getenv("TENCENTCLOUD_SECRET_KEY"))
	setString(&c.Translation.Provider, getenv("LYRICS_TRANSLATION_PROVIDER"))
	setString(&c.Translation.AI.APIKey, getenv("LYRICS_AI_API_KEY"))

	setString(&c.Cache.Dir, getenv("LYRICS_CACHE_DIR"))
	setString(&c.Catalog.SeedFile, getenv("LYRICS_SEED_FILE"))
	setString(&c.Log.Level, getenv("LYRICS_LOG_LEVEL"))

	if addr := getenv("LYRICS_REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
		c.Redis.Enabled = true
	}

	if v := getenv("LYRICS_LOOKAHEAD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.Sync.Lookahead = f
		} else {
			log.Warn().Str("value", v).Msg("Invalid LYRICS_LOOKAHEAD, ignoring")
		}
	}
	if v := getenv("LYRICS_LOOP"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Sync.Loop = b
		} else {
			log.Warn().Str("value", v).Msg("Invalid LYRICS_LOOP, ignoring")
		}
	}
}

// warnMissing 缺少翻译凭证时不阻止启动，翻译请求会直接失败
func (c *Config) warnMissing() {
	tr := c.Translation
	var missing string
	switch strings.ToLower(tr.Provider) {
	case "google":
		if tr.Google.APIKey == "" {
			missing = "GOOGLE_TRANSLATE_API_KEY"
		}
	case "tencent":
		if tr.Tencent.SecretID == "" || tr.Tencent.SecretKey == "" {
			missing = "translation.tencent.secret_id / secret_key"
		}
	case "ai":
		if tr.AI.APIKey == "" {
			missing = "ai.api_key"
		}
	}
	if missing != "" {
		log.Warn().
			Str("provider", tr.Provider).
			Str("missing", missing).
			Msg("Translation credentials not configured, translation requests will fail")
	}
}
