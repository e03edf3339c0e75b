package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App        AppConfig
	HTTP       HTTPConfig
	Pricing    PricingConfig
	Storage    StorageConfig
	Redis      RedisConfig
	DB         DBConfig
	JWT        JWTConfig
	Password   PasswordConfig
	Simulation SimulationConfig

	AuthRateLimit AuthRateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"NEXUSSHOP_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"NEXUSSHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NEXUSSHOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type HTTPConfig struct {
	Port            string        `envconfig:"NEXUSSHOP_HTTP_PORT" default:"8080"`
	AllowedOrigins  []string      `envconfig:"NEXUSSHOP_HTTP_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	ShutdownTimeout time.Duration `envconfig:"NEXUSSHOP_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

// PricingConfig holds the cart pricing constants. Decimal values are kept as
// strings so decimal parsing happens once, in validate.
type PricingConfig struct {
	TaxRate               string            `envconfig:"NEXUSSHOP_PRICING_TAX_RATE" default:"0.08"`
	FreeShippingThreshold string            `envconfig:"NEXUSSHOP_PRICING_FREE_SHIPPING_THRESHOLD" default:"100"`
	FlatShippingFee       string            `envconfig:"NEXUSSHOP_PRICING_FLAT_SHIPPING_FEE" default:"9.99"`
	Coupons               map[string]string `envconfig:"NEXUSSHOP_PRICING_COUPONS" default:"WELCOME10:10,SAVE20:20,NEXUS15:15"`
}

// Decimals returns the parsed pricing constants.
func (p PricingConfig) Decimals() (taxRate, threshold, flatFee decimal.Decimal, err error) {
	if taxRate, err = decimal.NewFromString(strings.TrimSpace(p.TaxRate)); err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("%s: %w", EnvPricingTaxRate, err)
	}
	if threshold, err = decimal.NewFromString(strings.TrimSpace(p.FreeShippingThreshold)); err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("%s: %w", EnvPricingFreeShipping, err)
	}
	if flatFee, err = decimal.NewFromString(strings.TrimSpace(p.FlatShippingFee)); err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("%s: %w", EnvPricingFlatShipping, err)
	}
	return taxRate, threshold, flatFee, nil
}

// CouponPercentages returns the coupon table keyed by upper-cased code.
func (p PricingConfig) CouponPercentages() (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(p.Coupons))
	for code, raw := range p.Coupons {
		pct, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("coupon %q: %w", code, err)
		}
		if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
			return nil, fmt.Errorf("coupon %q percentage %s out of range", code, pct)
		}
		out[strings.ToUpper(strings.TrimSpace(code))] = pct
	}
	return out, nil
}

func (p PricingConfig) validate() error {
	taxRate, threshold, flatFee, err := p.Decimals()
	if err != nil {
		return err
	}
	if taxRate.IsNegative() || threshold.IsNegative() || flatFee.IsNegative() {
		return fmt.Errorf("pricing values must be non-negative")
	}
	_, err = p.CouponPercentages()
	return err
}

type StorageConfig struct {
	Driver  string `envconfig:"NEXUSSHOP_STORAGE_DRIVER" default:"file"`
	Dir     string `envconfig:"NEXUSSHOP_STORAGE_DIR" default:".nexusshop"`
	CartKey string `envconfig:"NEXUSSHOP_STORAGE_CART_KEY" default:"nexusshop-cart"`
	AuthKey string `envconfig:"NEXUSSHOP_STORAGE_AUTH_KEY" default:"nexusshop-auth"`
}

func (s StorageConfig) validate() error {
	switch strings.ToLower(s.Driver) {
	case StorageDriverMemory, StorageDriverFile, StorageDriverRedis, StorageDriverSQLite, StorageDriverPostgres:
		return nil
	}
	return fmt.Errorf("%s: unsupported storage driver %q", EnvStorageDriver, s.Driver)
}

type RedisConfig struct {
	URL          string        `envconfig:"NEXUSSHOP_REDIS_URL"`
	Address      string        `envconfig:"NEXUSSHOP_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"NEXUSSHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"NEXUSSHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NEXUSSHOP_REDIS_POOL_SIZE" default:"4"`
	DialTimeout  time.Duration `envconfig:"NEXUSSHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NEXUSSHOP_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"NEXUSSHOP_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type DBConfig struct {
	DSN             string        `envconfig:"NEXUSSHOP_DB_DSN" default:"file:nexusshop.db?cache=shared"`
	MaxOpenConns    int           `envconfig:"NEXUSSHOP_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"NEXUSSHOP_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"NEXUSSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	AutoMigrate     bool          `envconfig:"NEXUSSHOP_DB_AUTO_MIGRATE" default:"true"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"NEXUSSHOP_JWT_SECRET" default:"nexusshop-demo-secret"`
	Issuer                 string `envconfig:"NEXUSSHOP_JWT_ISSUER" default:"nexusshop"`
	ExpirationMinutes      int    `envconfig:"NEXUSSHOP_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"NEXUSSHOP_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
// AccessTokenTTL is the lifetime of a minted access token.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"NEXUSSHOP_ARGON_MEMORY_KB" default:"19456"`
	ArgonTime        int `envconfig:"NEXUSSHOP_ARGON_TIME" default:"2"`
	ArgonParallelism int `envconfig:"NEXUSSHOP_ARGON_PARALLELISM" default:"1"`
	ArgonSaltLen     int `envconfig:"NEXUSSHOP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"NEXUSSHOP_ARGON_KEY_LEN" default:"32"`
}

// SimulationConfig drives the artificial latency and failure injection of the
// mocked network collaborators.
type SimulationConfig struct {
	LoginLatency    time.Duration `envconfig:"NEXUSSHOP_SIM_LOGIN_LATENCY" default:"1s"`
	OAuthLatency    time.Duration `envconfig:"NEXUSSHOP_SIM_OAUTH_LATENCY" default:"1500ms"`
	ProfileLatency  time.Duration `envconfig:"NEXUSSHOP_SIM_PROFILE_LATENCY" default:"500ms"`
	PasswordLatency time.Duration `envconfig:"NEXUSSHOP_SIM_PASSWORD_LATENCY" default:"1s"`
	ShippingLatency time.Duration `envconfig:"NEXUSSHOP_SIM_SHIPPING_LATENCY" default:"800ms"`
	FailureRate     float64       `envconfig:"NEXUSSHOP_SIM_FAILURE_RATE" default:"0"`
}

// AuthRateLimitConfig throttles login and registration attempts. Limits are
// only enforced when the redis storage driver provides the counters.
type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"NEXUSSHOP_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"NEXUSSHOP_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"NEXUSSHOP_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"NEXUSSHOP_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"NEXUSSHOP_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"NEXUSSHOP_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}
