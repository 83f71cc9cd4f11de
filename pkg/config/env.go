package config

// EnvPrefix is passed to envconfig; every field carries its full variable
// name so the prefix only affects the fallback lookup.
const EnvPrefix = "AGUASOL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "AGUASOL_APP_ENV"
	EnvPort     = "AGUASOL_APP_PORT"
	EnvLogLevel = "AGUASOL_LOG_LEVEL"

	EnvDBDSN  = "AGUASOL_DB_DSN"
	EnvDBHost = "AGUASOL_DB_HOST"
	EnvDBUser = "AGUASOL_DB_USER"
	EnvDBName = "AGUASOL_DB_NAME"

	EnvRedisURL = "AGUASOL_REDIS_URL"

	EnvJWTSecret  = "AGUASOL_JWT_SECRET"
	EnvJWTIssuer  = "AGUASOL_JWT_ISSUER"
	EnvJWTExpMins = "AGUASOL_JWT_EXPIRATION_MINUTES"

	EnvDeliveryFee   = "AGUASOL_DELIVERY_FEE"
	EnvGuestOrderTTL = "AGUASOL_GUEST_ORDER_TTL"

	EnvPubSubDomainTopic = "AGUASOL_PUBSUB_DOMAIN_TOPIC"
	EnvGCPProjectID      = "AGUASOL_GCP_PROJECT_ID"

	EnvPricingBaseURL = "AGUASOL_PRICING_BASE_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
