package config

// EnvPrefix is handed to envconfig; every field carries an explicit name so it
// only matters for error messages.
const EnvPrefix = "NEXUSSHOP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverFile     = "file"
	StorageDriverRedis    = "redis"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
)

const (
	EnvAppEnv              = "NEXUSSHOP_APP_ENV"
	EnvLogLevel            = "NEXUSSHOP_LOG_LEVEL"
	EnvHTTPPort            = "NEXUSSHOP_HTTP_PORT"
	EnvPricingTaxRate      = "NEXUSSHOP_PRICING_TAX_RATE"
	EnvPricingFreeShipping = "NEXUSSHOP_PRICING_FREE_SHIPPING_THRESHOLD"
	EnvPricingFlatShipping = "NEXUSSHOP_PRICING_FLAT_SHIPPING_FEE"
	EnvPricingCoupons      = "NEXUSSHOP_PRICING_COUPONS"
	EnvStorageDriver       = "NEXUSSHOP_STORAGE_DRIVER"
	EnvStorageDir          = "NEXUSSHOP_STORAGE_DIR"
	EnvRedisURL            = "NEXUSSHOP_REDIS_URL"
	EnvDBDSN               = "NEXUSSHOP_DB_DSN"
	EnvJWTSecret           = "NEXUSSHOP_JWT_SECRET"
	EnvSimFailureRate      = "NEXUSSHOP_SIM_FAILURE_RATE"
	EnvSimShippingLatency  = "NEXUSSHOP_SIM_SHIPPING_LATENCY"
)
