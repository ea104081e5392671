package config

// EnvPrefix namespaces envconfig lookups; the explicit tags resolve through the alternate-key fallback.
const EnvPrefix = "PACKFINDERZ"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Variable names referenced by validation messages and tests.
const (
	EnvAppEnv = "PACKFINDERZ_APP_ENV"
	EnvPort   = "PACKFINDERZ_APP_PORT"

	EnvDBDSN  = "PACKFINDERZ_DB_DSN"
	EnvDBHost = "PACKFINDERZ_DB_HOST"
	EnvDBUser = "PACKFINDERZ_DB_USER"
	EnvDBName = "PACKFINDERZ_DB_NAME"

	EnvRedisURL = "PACKFINDERZ_REDIS_URL"

	EnvJWTSecret            = "PACKFINDERZ_JWT_SECRET"
	EnvJWTIssuer            = "PACKFINDERZ_JWT_ISSUER"
	EnvJWTExpirationMinutes = "PACKFINDERZ_JWT_EXPIRATION_MINUTES"

	EnvPOSTaxEnabled       = "PACKFINDERZ_POS_TAX_ENABLED"
	EnvPOSMultiCountry     = "PACKFINDERZ_POS_MULTI_COUNTRY"
	EnvPOSDefaultCountry   = "PACKFINDERZ_POS_DEFAULT_COUNTRY"
	EnvPOSMaxOrderSlots    = "PACKFINDERZ_POS_MAX_ORDER_SLOTS"
	EnvPOSSessionTTL       = "PACKFINDERZ_POS_SESSION_TTL"
	EnvPOSCurrencyDecimals = "PACKFINDERZ_POS_CURRENCY_DECIMALS"
	EnvPOSRegisterRequired = "PACKFINDERZ_POS_REGISTER_REQUIRED"
)
