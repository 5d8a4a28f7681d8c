package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"marketsim-server/internal/shared/utils"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Frontend  FrontendConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Game      GameConfig
	Archive   ArchiveConfig
	Journal   JournalConfig
}

type RedisConfig struct {
	Enabled   bool
	URL       string
	Host      string
	Port      string
	Password  string
	DB        int
	KeyPrefix string
}

type ServerConfig struct {
	Port         string
	URL          string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	JWTSecret       string
	TokenExpiration time.Duration
	CookieSecure    bool
	CookieSameSite  string
}

type FrontendConfig struct {
	URL       string // comma-separated; the first entry scopes the session cookie
	CORSDebug bool
}

// Origins splits URL into the list of allowed browser origins.
func (f FrontendConfig) Origins() []string {
	var origins []string
	for _, o := range strings.Split(f.URL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

type LoggingConfig struct {
	Level      string
	Format     string
	JSONFormat bool
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	TrustProxy        bool
}

// GameConfig holds the defaults used when a create-game request leaves a field out.
type GameConfig struct {
	TotalTurns      int
	ComputerPlayers int
	PlayerName      string
	Seed            uint64 // 0 draws a fresh seed per game
	EconomyProfile  string // YAML file; empty uses the built-in profile
}

const (
	ArchiveDriverNone     = "none"
	ArchiveDriverPostgres = "postgres"
	ArchiveDriverSQLite   = "sqlite"
	ArchiveDriverMySQL    = "mysql"
)

type ArchiveConfig struct {
	Driver     string
	SQLitePath string
	MySQLDSN   string
}

type JournalConfig struct {
	Enabled bool
	Dir     string
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config, err := load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

func load() (*Config, error) {
	game, err := loadGameConfig()
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server:    loadServerConfig(),
		Database:  loadDatabaseConfig(),
		Redis:     loadRedisConfig(),
		Auth:      loadAuthConfig(),
		Frontend:  loadFrontendConfig(),
		Logging:   loadLoggingConfig(),
		RateLimit: loadRateLimitConfig(),
		Game:      game,
		Archive:   loadArchiveConfig(),
		Journal:   loadJournalConfig(),
	}

	return config, nil
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:   utils.GetEnv("REDIS_ENABLED", "false") == "true",
		URL:       utils.GetEnv("REDIS_URL", ""),
		Host:      utils.GetEnv("REDIS_HOST", "localhost"),
		Port:      utils.GetEnv("REDIS_PORT", "6379"),
		Password:  utils.GetEnv("REDIS_PASSWORD", ""),
		DB:        utils.GetEnvInt("REDIS_DB", 0),
		KeyPrefix: utils.GetEnv("REDIS_KEY_PREFIX", "marketsim"),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:         utils.GetEnv("SERVER_PORT", "8080"),
		URL:          utils.GetEnv("SERVER_URL", "http://localhost:8080"),
		Environment:  utils.GetEnv("ENVIRONMENT", "development"),
		ReadTimeout:  time.Duration(utils.GetEnvInt("SERVER_READ_TIMEOUT_SECONDS", 15)) * time.Second,
		WriteTimeout: time.Duration(utils.GetEnvInt("SERVER_WRITE_TIMEOUT_SECONDS", 15)) * time.Second,
		IdleTimeout:  time.Duration(utils.GetEnvInt("SERVER_IDLE_TIMEOUT_SECONDS", 60)) * time.Second,
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:            utils.GetEnv("DB_HOST", "localhost"),
		Port:            utils.GetEnv("DB_PORT", "5432"),
		User:            utils.GetEnv("DB_USER", "postgres"),
		Password:        utils.GetEnv("DB_PASSWORD", "postgres"),
		Name:            utils.GetEnv("DB_NAME", "marketsim"),
		SSLMode:         utils.GetEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    utils.GetEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    utils.GetEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: time.Duration(utils.GetEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
	}
}

func loadAuthConfig() AuthConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")

	return AuthConfig{
		JWTSecret:       utils.GetEnv("JWT_SECRET", ""),
		TokenExpiration: time.Duration(utils.GetEnvInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
		CookieSecure:    environment == "production",
		CookieSameSite:  utils.GetEnv("COOKIE_SAME_SITE", "lax"),
	}
}

func loadFrontendConfig() FrontendConfig {
	return FrontendConfig{
		URL:       utils.GetEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSDebug: utils.GetEnv("CORS_DEBUG", "") == "true",
	}
}

func loadLoggingConfig() LoggingConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")
	format := utils.GetEnv("LOG_FORMAT", "text")

	return LoggingConfig{
		Level:      utils.GetEnv("LOG_LEVEL", "debug"),
		Format:     format,
		JSONFormat: environment == "production" || format == "json",
	}
}

func loadRateLimitConfig() RateLimitConfig {
	requestsPerSecond, _ := strconv.ParseFloat(utils.GetEnv("RATE_LIMIT_REQUESTS_PER_SECOND", "10"), 64)

	return RateLimitConfig{
		Enabled:           utils.GetEnv("RATE_LIMIT_ENABLED", "true") == "true",
		RequestsPerSecond: requestsPerSecond,
		BurstSize:         utils.GetEnvInt("RATE_LIMIT_BURST_SIZE", 20),
		TrustProxy:        utils.GetEnvBool("RATE_LIMIT_TRUST_PROXY", false),
	}
}

func loadGameConfig() (GameConfig, error) {
	seed, err := strconv.ParseUint(utils.GetEnv("GAME_SEED", "0"), 10, 64)
	if err != nil {
		return GameConfig{}, fmt.Errorf("GAME_SEED: %w", err)
	}

	return GameConfig{
		TotalTurns:      utils.GetEnvInt("GAME_TOTAL_TURNS", 20),
		ComputerPlayers: utils.GetEnvInt("GAME_COMPUTER_PLAYERS", 5),
		PlayerName:      utils.GetEnv("GAME_PLAYER_NAME", "Player"),
		Seed:            seed,
		EconomyProfile:  utils.GetEnv("GAME_ECONOMY_PROFILE", ""),
	}, nil
}

func loadArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Driver:     utils.GetEnv("ARCHIVE_DRIVER", ArchiveDriverSQLite),
		SQLitePath: utils.GetEnv("ARCHIVE_SQLITE_PATH", "data/archive.sqlite"),
		MySQLDSN:   utils.GetEnv("ARCHIVE_MYSQL_DSN", ""),
	}
}

func loadJournalConfig() JournalConfig {
	return JournalConfig{
		Enabled: utils.GetEnv("JOURNAL_ENABLED", "true") == "true",
		Dir:     utils.GetEnv("JOURNAL_DIR", "data/journal"),
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Game.TotalTurns < 1 || c.Game.TotalTurns > 50 {
		return fmt.Errorf("GAME_TOTAL_TURNS must be between 1 and 50")
	}

	if c.Game.ComputerPlayers < 0 || c.Game.ComputerPlayers > 10 {
		return fmt.Errorf("GAME_COMPUTER_PLAYERS must be between 0 and 10")
	}

	switch c.Archive.Driver {
	case ArchiveDriverNone:
	case ArchiveDriverSQLite:
		if c.Archive.SQLitePath == "" {
			return fmt.Errorf("ARCHIVE_SQLITE_PATH is required for the sqlite archive")
		}
	case ArchiveDriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required for the postgres archive")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required for the postgres archive")
		}
	case ArchiveDriverMySQL:
		if c.Archive.MySQLDSN == "" {
			return fmt.Errorf("ARCHIVE_MYSQL_DSN is required for the mysql archive")
		}
	default:
		return fmt.Errorf("ARCHIVE_DRIVER must be one of none, sqlite, postgres, mysql")
	}

	if c.Journal.Enabled && c.Journal.Dir == "" {
		return fmt.Errorf("JOURNAL_DIR is required when the journal is enabled")
	}

	return nil
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
