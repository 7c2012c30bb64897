package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	AI       AIConfig
	Admin    AdminConfig
	Economy  EconomyConfig
	Sentry   SentryConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxOpenConns      int
	MaxIdleConns      int
	ConnMaxIdleTime   time.Duration
	ConnMaxLifetime   time.Duration
	MigrationsEnabled bool
}

type AuthConfig struct {
	JWTSecret          string
	JWTIssuer          string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
}

type AIConfig struct {
	Provider           string
	APIKey             string
	BaseURL            string
	Model              string
	Timeout            time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
	MaxOutputTokens    int
	NewsCacheTTL       time.Duration
}

type AdminConfig struct {
	Emails []string
}

// EconomyConfig задаёт параметры экономики прогрессии.
// PolicyFile указывает на YAML с таблицами уровней и наградами; пустое значение означает встроенную политику.
type EconomyConfig struct {
	PolicyFile      string
	StartingBalance int64
	LevelCount      int
}

type SentryConfig struct {
	DSN         string
	Environment string
	SampleRate  float64
}

var supportedProviders = map[string]struct {
	baseURL string
	model   string
	keyEnv  string
}{
	"gemini": {model: "gemini-2.5-flash", keyEnv: "GEMINI_API_KEY"},
	"groq":   {baseURL: "https://api.groq.com/openai/v1", model: "llama-3.1-8b-instant", keyEnv: "GROQ_API_KEY"},
	"openai": {model: "gpt-4o-mini", keyEnv: "OPENAI_API_KEY"},
}

// Load загружает конфигурацию приложения из окружения и .env.
func Load() (Config, error) {
	cfg := Config{}

	if err := loadEnv(); err != nil {
		return cfg, err
	}

	cfg.Env = getEnv("APP_ENV", "local")

	var err error
	if cfg.Server, err = loadServer(); err != nil {
		return cfg, err
	}
	if cfg.Database, err = loadDatabase(); err != nil {
		return cfg, err
	}
	if cfg.Auth, err = loadAuth(); err != nil {
		return cfg, err
	}
	if cfg.AI, err = loadAI(); err != nil {
		return cfg, err
	}
	if cfg.Economy, err = loadEconomy(); err != nil {
		return cfg, err
	}
	if cfg.Sentry, err = loadSentry(cfg.Env); err != nil {
		return cfg, err
	}

	cfg.Admin = AdminConfig{
		Emails: parseCSVEnv("ADMIN_EMAILS"),
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadOffline загружает только настройки базы и экономики. Используется CLI, которому не нужны
// ключи JWT и модели.
func LoadOffline() (DatabaseConfig, EconomyConfig, error) {
	if err := loadEnv(); err != nil {
		return DatabaseConfig{}, EconomyConfig{}, err
	}

	db, err := loadDatabase()
	if err != nil {
		return DatabaseConfig{}, EconomyConfig{}, err
	}
	economy, err := loadEconomy()
	if err != nil {
		return DatabaseConfig{}, EconomyConfig{}, err
	}
	return db, economy, nil
}

func loadServer() (ServerConfig, error) {
	port, err := parseIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return ServerConfig{}, err
	}
	readTimeout, err := parseDurationEnv("SERVER_READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return ServerConfig{}, err
	}
	// SSE-поток уведомлений держит соединение открытым, поэтому запись по умолчанию длиннее чтения.
	writeTimeout, err := parseDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return ServerConfig{}, err
	}
	idleTimeout, err := parseDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		Host:         getEnv("SERVER_HOST", "0.0.0.0"),
		Port:         port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}, nil
}

func loadDatabase() (DatabaseConfig, error) {
	port, err := parseIntEnv("DB_PORT", 5432)
	if err != nil {
		return DatabaseConfig{}, err
	}
	maxOpenConns, err := parseIntEnv("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return DatabaseConfig{}, err
	}
	maxIdleConns, err := parseIntEnv("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return DatabaseConfig{}, err
	}
	connMaxIdleTime, err := parseDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)
	if err != nil {
		return DatabaseConfig{}, err
	}
	connMaxLifetime, err := parseDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return DatabaseConfig{}, err
	}
	migrations, err := parseBoolEnv("MIGRATIONS_ENABLED", true)
	if err != nil {
		return DatabaseConfig{}, err
	}

	return DatabaseConfig{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              port,
		User:              getEnv("DB_USER", "ecopulse"),
		Password:          getEnv("DB_PASSWORD", "ecopulse"),
		Name:              getEnv("DB_NAME", "ecopulse"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:      maxOpenConns,
		MaxIdleConns:      maxIdleConns,
		ConnMaxIdleTime:   connMaxIdleTime,
		ConnMaxLifetime:   connMaxLifetime,
		MigrationsEnabled: migrations,
	}, nil
}

func loadAuth() (AuthConfig, error) {
	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return AuthConfig{}, err
	}
	// Гостевые игроки живут на одном устройстве, поэтому refresh-токен держится дольше обычного.
	refreshTTL, err := parseDurationEnv("JWT_REFRESH_TTL", 30*24*time.Hour)
	if err != nil {
		return AuthConfig{}, err
	}
	perMinute, err := parseIntEnv("AUTH_RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		return AuthConfig{}, err
	}
	burst, err := parseIntEnv("AUTH_RATE_LIMIT_BURST", 10)
	if err != nil {
		return AuthConfig{}, err
	}

	return AuthConfig{
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTIssuer:          getEnv("JWT_ISSUER", "ecopulse"),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
		RateLimitPerMinute: perMinute,
		RateLimitBurst:     burst,
	}, nil
}

func loadAI() (AIConfig, error) {
	timeout, err := parseDurationEnv("AI_TIMEOUT", 30*time.Second)
	if err != nil {
		return AIConfig{}, err
	}
	perMinute, err := parseIntEnv("AI_RATE_LIMIT_PER_MINUTE", 30)
	if err != nil {
		return AIConfig{}, err
	}
	burst, err := parseIntEnv("AI_RATE_LIMIT_BURST", 10)
	if err != nil {
		return AIConfig{}, err
	}
	maxOutputTokens, err := parseIntEnv("AI_MAX_OUTPUT_TOKENS", 4096)
	if err != nil {
		return AIConfig{}, err
	}
	newsTTL, err := parseDurationEnv("NEWS_CACHE_TTL", 30*time.Minute)
	if err != nil {
		return AIConfig{}, err
	}

	provider := strings.ToLower(getEnv("AI_PROVIDER", "gemini"))
	defaults := supportedProviders[provider]

	apiKey := getEnv("AI_API_KEY", "")
	if apiKey == "" && defaults.keyEnv != "" {
		apiKey = getEnv(defaults.keyEnv, "")
	}

	return AIConfig{
		Provider:           provider,
		APIKey:             apiKey,
		BaseURL:            getEnv("AI_BASE_URL", defaults.baseURL),
		Model:              getEnv("AI_MODEL", defaults.model),
		Timeout:            timeout,
		RateLimitPerMinute: perMinute,
		RateLimitBurst:     burst,
		MaxOutputTokens:    maxOutputTokens,
		NewsCacheTTL:       newsTTL,
	}, nil
}

func loadEconomy() (EconomyConfig, error) {
	levels, err := parseIntEnv("ECONOMY_LEVEL_COUNT", 100)
	if err != nil {
		return EconomyConfig{}, err
	}

	var balance int64
	if value, ok := os.LookupEnv("ECONOMY_STARTING_BALANCE"); ok {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return EconomyConfig{}, fmt.Errorf("ECONOMY_STARTING_BALANCE must be an integer: %w", err)
		}
		if parsed < 0 {
			return EconomyConfig{}, fmt.Errorf("ECONOMY_STARTING_BALANCE cannot be negative")
		}
		balance = parsed
	}

	return EconomyConfig{
		PolicyFile:      getEnv("ECONOMY_POLICY_FILE", ""),
		StartingBalance: balance,
		LevelCount:      levels,
	}, nil
}

func loadSentry(env string) (SentryConfig, error) {
	rate := 1.0
	if value, ok := os.LookupEnv("SENTRY_SAMPLE_RATE"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return SentryConfig{}, fmt.Errorf("SENTRY_SAMPLE_RATE must be a number: %w", err)
		}
		if parsed < 0 || parsed > 1 {
			return SentryConfig{}, fmt.Errorf("SENTRY_SAMPLE_RATE must be between 0 and 1")
		}
		rate = parsed
	}

	return SentryConfig{
		DSN:         getEnv("SENTRY_DSN", ""),
		Environment: getEnv("SENTRY_ENVIRONMENT", env),
		SampleRate:  rate,
	}, nil
}

// DSN возвращает строку подключения к базе данных.
func (c DatabaseConfig) DSN() string {
	user := url.UserPassword(c.User, c.Password)
	dsn := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}

	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	return dsn.String() + "?" + query.Encode()
}

func (c Config) validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}

	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("DB_MAX_IDLE_CONNS cannot exceed DB_MAX_OPEN_CONNS")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if _, ok := supportedProviders[c.AI.Provider]; !ok {
		return fmt.Errorf("AI_PROVIDER %q is not supported", c.AI.Provider)
	}

	if c.AI.Provider == "groq" && c.AI.BaseURL == "" {
		return fmt.Errorf("AI_BASE_URL is required for groq")
	}

	if c.Economy.LevelCount < 2 {
		return fmt.Errorf("ECONOMY_LEVEL_COUNT must be at least 2")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseBoolEnv(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return parsed, nil
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseCSVEnv(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func loadEnv() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}
