package internal

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Dashboard     DashboardConfig     `mapstructure:"dashboard"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Ledger        LedgerConfig        `mapstructure:"ledger"`
	RPC           RPCConfig           `mapstructure:"rpc"`
	Confirmation  ConfirmationConfig  `mapstructure:"confirmation"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	OpenAPIPath       string        `mapstructure:"openapi_path"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	JWTPrivateKey    string        `mapstructure:"jwt_private_key" validate:"required"`
	JWTPublicKey     string        `mapstructure:"jwt_public_key" validate:"required"`
	JWTIssuer        string        `mapstructure:"jwt_issuer"`
	MerchantTokenTTL time.Duration `mapstructure:"merchant_token_duration"`
	BCryptCost       int           `mapstructure:"bcrypt_cost" validate:"required,min=10,max=15"`
}

// DashboardConfig controls ephemeral dashboard credentials.
type DashboardConfig struct {
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
	PasswordLength   int           `mapstructure:"password_length"`
	BCryptCost       int           `mapstructure:"bcrypt_cost"`
	LockoutThreshold int           `mapstructure:"lockout_threshold"`
	LockoutWindow    time.Duration `mapstructure:"lockout_window"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type KafkaConfig struct {
	Brokers      []string `mapstructure:"brokers"`
	WebhookTopic string   `mapstructure:"webhook_topic"`
}

type LedgerConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RPCConfig maps a chain identifier (e.g. "solana", "base") to its endpoints.
type RPCConfig struct {
	CandidateTimeout time.Duration          `mapstructure:"candidate_timeout"`
	Chains           map[string]ChainConfig `mapstructure:"chains"`
}

type ChainConfig struct {
	Kind                  string   `mapstructure:"kind"` // evm | solana
	Endpoints             []string `mapstructure:"endpoints"`
	RequiredConfirmations uint64   `mapstructure:"required_confirmations"`
}

type ConfirmationConfig struct {
	MaxWorkers      int           `mapstructure:"max_workers"`
	JobQueueSize    int           `mapstructure:"job_queue_size"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	BatchSize       int           `mapstructure:"batch_size"`
	NotFoundTimeout time.Duration `mapstructure:"not_found_timeout"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

const (
	DefaultSessionTTL     = 2 * time.Hour
	DefaultPasswordLength = 12
	DefaultDashboardCost  = 10
)

// ApplyDefaults fills zero values that have a fixed meaning for the domain.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.OpenAPIPath == "" {
		c.Server.OpenAPIPath = "./api/openapi.yml"
	}
	if c.Dashboard.SessionTTL <= 0 {
		c.Dashboard.SessionTTL = DefaultSessionTTL
	}
	if c.Dashboard.PasswordLength <= 0 {
		c.Dashboard.PasswordLength = DefaultPasswordLength
	}
	if c.Dashboard.BCryptCost <= 0 {
		c.Dashboard.BCryptCost = DefaultDashboardCost
	}
	if c.Dashboard.LockoutThreshold <= 0 {
		c.Dashboard.LockoutThreshold = 5
	}
	if c.Dashboard.LockoutWindow <= 0 {
		c.Dashboard.LockoutWindow = 15 * time.Minute
	}
	if c.Security.MerchantTokenTTL <= 0 {
		c.Security.MerchantTokenTTL = 24 * time.Hour
	}
	if c.Security.JWTIssuer == "" {
		c.Security.JWTIssuer = "paylink"
	}
	if c.Kafka.WebhookTopic == "" {
		c.Kafka.WebhookTopic = "paylink.webhooks"
	}
	if c.Ledger.Timeout <= 0 {
		c.Ledger.Timeout = 10 * time.Second
	}
	if c.RPC.CandidateTimeout <= 0 {
		c.RPC.CandidateTimeout = 10 * time.Second
	}
	if c.Confirmation.MaxWorkers <= 0 {
		c.Confirmation.MaxWorkers = 4
	}
	if c.Confirmation.JobQueueSize <= 0 {
		c.Confirmation.JobQueueSize = 100
	}
	if c.Confirmation.PollInterval <= 0 {
		c.Confirmation.PollInterval = 15 * time.Second
	}
	if c.Confirmation.BatchSize <= 0 {
		c.Confirmation.BatchSize = 50
	}
	if c.Confirmation.NotFoundTimeout <= 0 {
		c.Confirmation.NotFoundTimeout = 24 * time.Hour
	}
}

// ----------------- ENV LOADING -----------------

// LoadConfigFromEnv builds the configuration for container deployments.
// RPC endpoints come from RPC_<CHAIN>_ENDPOINTS (comma separated) for every
// chain listed in RPC_CHAINS, with RPC_<CHAIN>_KIND selecting evm or solana.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("HTTP_BASE_URL", ""),
			AllowedOrigins:    getEnv("HTTP_ALLOWED_ORIGINS", "*"),
			OpenAPIPath:       getEnv("HTTP_OPENAPI_PATH", "./api/openapi.yml"),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DB_SOURCE", ""),
		},
		Security: SecurityConfig{
			JWTPrivateKey:    getEnv("JWT_PRIVATE_KEY", ""),
			JWTPublicKey:     getEnv("JWT_PUBLIC_KEY", ""),
			JWTIssuer:        getEnv("JWT_ISSUER", "paylink"),
			MerchantTokenTTL: getEnvAsDuration("MERCHANT_TOKEN_DURATION", 24*time.Hour),
			BCryptCost:       getEnvAsInt("BCRYPT_COST", 12),
		},
		Dashboard: DashboardConfig{
			SessionTTL:       getEnvAsDuration("DASHBOARD_SESSION_TTL", DefaultSessionTTL),
			PasswordLength:   getEnvAsInt("DASHBOARD_PASSWORD_LENGTH", DefaultPasswordLength),
			BCryptCost:       getEnvAsInt("DASHBOARD_BCRYPT_COST", DefaultDashboardCost),
			LockoutThreshold: getEnvAsInt("DASHBOARD_LOCKOUT_THRESHOLD", 5),
			LockoutWindow:    getEnvAsDuration("DASHBOARD_LOCKOUT_WINDOW", 15*time.Minute),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Kafka: KafkaConfig{
			Brokers:      splitList(getEnv("KAFKA_BROKERS", "")),
			WebhookTopic: getEnv("KAFKA_WEBHOOK_TOPIC", "paylink.webhooks"),
		},
		Ledger: LedgerConfig{
			BaseURL: getEnv("LEDGER_BASE_URL", ""),
			APIKey:  getEnv("LEDGER_API_KEY", ""),
			Timeout: getEnvAsDuration("LEDGER_TIMEOUT", 10*time.Second),
		},
		RPC: RPCConfig{
			CandidateTimeout: getEnvAsDuration("RPC_CANDIDATE_TIMEOUT", 10*time.Second),
			Chains:           map[string]ChainConfig{},
		},
		Confirmation: ConfirmationConfig{
			MaxWorkers:      getEnvAsInt("CONFIRMATION_MAX_WORKERS", 4),
			JobQueueSize:    getEnvAsInt("CONFIRMATION_JOB_QUEUE_SIZE", 100),
			PollInterval:    getEnvAsDuration("CONFIRMATION_POLL_INTERVAL", 15*time.Second),
			BatchSize:       getEnvAsInt("CONFIRMATION_BATCH_SIZE", 50),
			NotFoundTimeout: getEnvAsDuration("CONFIRMATION_NOT_FOUND_TIMEOUT", 24*time.Hour),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}

	for _, chain := range splitList(getEnv("RPC_CHAINS", "")) {
		prefix := "RPC_" + strings.ToUpper(chain) + "_"
		cfg.RPC.Chains[strings.ToLower(chain)] = ChainConfig{
			Kind:                  getEnv(prefix+"KIND", "evm"),
			Endpoints:             splitList(getEnv(prefix+"ENDPOINTS", "")),
			RequiredConfirmations: uint64(getEnvAsInt(prefix+"REQUIRED_CONFIRMATIONS", 1)),
		}
	}

	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Dashboard.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("dashboard config: %v", err))
	}

	if err := c.RPC.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("rpc config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if _, err := c.GetPrivateKey(); err != nil {
		return fmt.Errorf("invalid JWT private key: %w", err)
	}
	if _, err := c.GetPublicKey(); err != nil {
		return fmt.Errorf("invalid JWT public key: %w", err)
	}
	return nil
}

func (c *DashboardConfig) Validate() error {
	if c.PasswordLength < 8 {
		return errors.New("password_length must be at least 8")
	}
	if c.BCryptCost < 4 || c.BCryptCost > 31 {
		return errors.New("bcrypt_cost must be between 4 and 31")
	}
	return nil
}

func (c *RPCConfig) Validate() error {
	for name, chain := range c.Chains {
		switch chain.Kind {
		case "evm", "solana":
		default:
			return fmt.Errorf("chain %s: unknown kind %q", name, chain.Kind)
		}
		if len(chain.Endpoints) == 0 {
			return fmt.Errorf("chain %s: at least one endpoint is required", name)
		}
		for _, endpoint := range chain.Endpoints {
			if _, err := url.Parse(endpoint); err != nil {
				return fmt.Errorf("chain %s: invalid endpoint %s: %w", name, endpoint, err)
			}
		}
	}
	return nil
}

func (c *SecurityConfig) GetPrivateKey() (*rsa.PrivateKey, error) {
	keyData, err := base64.StdEncoding.DecodeString(c.JWTPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, errors.New("failed to parse PEM block")
	}
	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

func (c *SecurityConfig) GetPublicKey() (*rsa.PublicKey, error) {
	keyData, err := base64.StdEncoding.DecodeString(c.JWTPublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, errors.New("failed to parse PEM block")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not an RSA public key")
	}
	return rsaPub, nil
}
