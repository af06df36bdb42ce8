package config // package config loads application configuration from environment variables

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported values of DB_DRIVER.
const (
	DriverMongo = "mongo"
	DriverMySQL = "mysql"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable named by its mapstructure tag.
type Config struct {
	Env  string `mapstructure:"APP_ENV"`  // application environment (e.g. "dev", "prod")
	Port string `mapstructure:"APP_PORT"` // HTTP port to listen on

	DBDriver string `mapstructure:"DB_DRIVER"` // "mongo" (default) or "mysql"
	MongoURI string `mapstructure:"MONGO_URI"`
	MongoDB  string `mapstructure:"MONGO_DB"`
	DBUser   string `mapstructure:"DB_USER"`
	DBPass   string `mapstructure:"DB_PASS"` // empty allowed
	DBHost   string `mapstructure:"DB_HOST"`
	DBPort   string `mapstructure:"DB_PORT"`
	DBName   string `mapstructure:"DB_NAME"`

	JWTPrivateKeyPath string        `mapstructure:"JWT_PRIVATE_KEY_PATH"` // empty makes the service verify-only
	JWTPublicKeyPath  string        `mapstructure:"JWT_PUBLIC_KEY_PATH"`
	JWTIssuer         string        `mapstructure:"JWT_ISSUER"`
	AccessTokenTTL    time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	BcryptCost        int           `mapstructure:"BCRYPT_COST"`
	OTPTTL            time.Duration `mapstructure:"OTP_TTL"`

	RabbitMQURL string `mapstructure:"RABBITMQ_URL"` // empty disables OTP dispatch
	OTPQueue    string `mapstructure:"OTP_QUEUE"`

	UploadDir      string `mapstructure:"UPLOAD_DIR"`
	UploadBaseURL  string `mapstructure:"UPLOAD_BASE_URL"`
	UploadMaxBytes int64  `mapstructure:"UPLOAD_MAX_BYTES"`

	GoogleClientID string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleJWKSURL  string `mapstructure:"GOOGLE_JWKS_URL"`

	Log       LogConfig       `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	RateLimit RateLimitConfig `mapstructure:",squash"`
	Policy    Policy          `mapstructure:",squash"`
}

// LogConfig configures the zap logger and its rolling file.
type LogConfig struct {
	Level      string `mapstructure:"LOG_LEVEL"`
	Filename   string `mapstructure:"LOG_FILENAME"` // empty logs to stdout only
	MaxSize    int    `mapstructure:"LOG_MAX_SIZE"` // megabytes
	MaxBackups int    `mapstructure:"LOG_MAX_BACKUPS"`
	MaxAge     int    `mapstructure:"LOG_MAX_AGE"` // days
	Compress   bool   `mapstructure:"LOG_COMPRESS"`
}

// Policy switches the behaviours that differ between deployments of the
// authentication flow.
type Policy struct {
	LoginRequiresActive  bool `mapstructure:"POLICY_LOGIN_REQUIRES_ACTIVE"`
	ForgotRequiresActive bool `mapstructure:"POLICY_FORGOT_REQUIRES_ACTIVE"`
	VerifyRequiresActive bool `mapstructure:"POLICY_VERIFY_REQUIRES_ACTIVE"`
	ConsumeOTPOnVerify   bool `mapstructure:"POLICY_CONSUME_OTP_ON_VERIFY"`
	ConsumeOTPOnSet      bool `mapstructure:"POLICY_CONSUME_OTP_ON_SET"`
	RequireAddress       bool `mapstructure:"POLICY_REQUIRE_ADDRESS"`
	UpdateRequiresAuth   bool `mapstructure:"POLICY_UPDATE_REQUIRES_AUTH"`
}

var defaults = map[string]interface{}{
	"APP_ENV":              "dev",
	"APP_PORT":             "",
	"DB_DRIVER":            DriverMongo,
	"MONGO_URI":            "",
	"MONGO_DB":             "",
	"DB_USER":              "",
	"DB_PASS":              "",
	"DB_HOST":              "",
	"DB_PORT":              "3306",
	"DB_NAME":              "",
	"JWT_PRIVATE_KEY_PATH": "",
	"JWT_PUBLIC_KEY_PATH":  "",
	"JWT_ISSUER":           "myapp",
	"ACCESS_TOKEN_TTL":     "4h",
	"BCRYPT_COST":          10,
	"OTP_TTL":              "10m",
	"RABBITMQ_URL":         "",
	"OTP_QUEUE":            "otp.issued",
	"UPLOAD_DIR":           "./uploads",
	"UPLOAD_BASE_URL":      "/files",
	"UPLOAD_MAX_BYTES":     5 << 20,
	"GOOGLE_CLIENT_ID":     "",
	"GOOGLE_JWKS_URL":      "https://www.googleapis.com/oauth2/v3/certs",

	"LOG_LEVEL":       "info",
	"LOG_FILENAME":    "",
	"LOG_MAX_SIZE":    100,
	"LOG_MAX_BACKUPS": 7,
	"LOG_MAX_AGE":     30,
	"LOG_COMPRESS":    true,

	"POLICY_LOGIN_REQUIRES_ACTIVE":  true,
	"POLICY_FORGOT_REQUIRES_ACTIVE": false,
	"POLICY_VERIFY_REQUIRES_ACTIVE": false,
	"POLICY_CONSUME_OTP_ON_VERIFY":  false,
	"POLICY_CONSUME_OTP_ON_SET":     false,
	"POLICY_REQUIRE_ADDRESS":        false,
	"POLICY_UPDATE_REQUIRES_AUTH":   false,
}

// Load reads an optional .env file, then the environment, and returns the
// resulting Config.  Required variables that are unset or empty produce an
// error naming the variable.
func Load() (Config, error) {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	for k, d := range redisDefaults {
		v.SetDefault(k, d)
	}
	for k, d := range rateLimitDefaults {
		v.SetDefault(k, d)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.RateLimit.normalize()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	required := map[string]string{
		"APP_PORT":            c.Port,
		"JWT_PUBLIC_KEY_PATH": c.JWTPublicKeyPath,
	}
	switch c.DBDriver {
	case DriverMongo:
		required["MONGO_URI"] = c.MongoURI
		required["MONGO_DB"] = c.MongoDB
	case DriverMySQL:
		required["DB_USER"] = c.DBUser
		required["DB_HOST"] = c.DBHost
		required["DB_PORT"] = c.DBPort
		required["DB_NAME"] = c.DBName
	default:
		return fmt.Errorf("invalid DB_DRIVER %q: want %q or %q", c.DBDriver, DriverMongo, DriverMySQL)
	}
	for _, key := range sortedKeys(required) {
		if strings.TrimSpace(required[key]) == "" {
			return fmt.Errorf("missing required env var: %s", key)
		}
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("invalid ACCESS_TOKEN_TTL: %s", c.AccessTokenTTL)
	}
	if c.OTPTTL <= 0 {
		return fmt.Errorf("invalid OTP_TTL: %s", c.OTPTTL)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
