package config

const (
	EnvPrefix = "GRUPPY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "GRUPPY_DB_DSN"
	EnvDBHost = "GRUPPY_DB_HOST"
	EnvDBUser = "GRUPPY_DB_USER"
	EnvDBName = "GRUPPY_DB_NAME"

	EnvJWTSecret          = "GRUPPY_JWT_SECRET"
	EnvMpesaWebhookSecret = "GRUPPY_MPESA_WEBHOOK_SECRET"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
