package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// It is composed of smaller structs that represent different concerns of the system,
// such as server settings, the warehouse connection, the loader and the refresh scheduler.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	WAREHOUSE_DIALECT=postgres
//	POSTGRES_HOST=localhost
//	POSTGRES_PORT=5432
//	POSTGRES_USER=postgres
//	POSTGRES_PASSWORD=secret
//	POSTGRES_DB=cryptopulse
//	LOADER_DATA_DIR=./data
//	CACHE_BACKEND=memory
//	CHANGEFEED=postgres
type Config struct {
	Server     ServerConfig     // HTTP server configuration
	Warehouse  WarehouseConfig  // Which SQL engine backs the raw/staging/analytics schemas
	Postgres   PostgresConfig   // PostgreSQL connection settings
	Snowflake  SnowflakeConfig  // Snowflake connection settings
	Loader     LoaderConfig     // CSV loader settings
	Refresh    RefreshConfig    // Derivation scheduler settings
	Cache      CacheConfig      // Where refreshed derivations are published
	Redis      RedisConfig      // Redis connection, used when Cache.Backend is "redis"
	ChangeFeed ChangeFeedConfig // Load notifications that trigger refreshes
	Kafka      KafkaConfig      // Kafka connection, used when ChangeFeed.Kind is "kafka"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string // The TCP port the HTTP server will listen on (e.g., "8080")
	RateLimitRPM int    // Requests per minute allowed per client IP
}

// WarehouseConfig selects the SQL dialect.
//
// PasswordSSMParam, when set, names an AWS SSM parameter holding the
// password of the selected dialect. It overrides POSTGRES_PASSWORD or
// SNOWFLAKE_PASSWORD.
type WarehouseConfig struct {
	Dialect          string
	PasswordSSMParam string
}

// PostgresConfig defines connection details for PostgreSQL.
//
// Fields:
//   - Host: hostname of the database server.
//   - Port: port number of the database server (default 5432).
//   - User: username for authentication.
//   - Password: password for authentication.
//   - DBName: target database name.
//   - SSLMode: SSL mode (e.g., "disable", "require").
//   - URL: computed DSN used by database/sql to connect.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// SnowflakeConfig defines connection details for Snowflake.
type SnowflakeConfig struct {
	Account   string
	User      string
	Password  string
	Database  string
	Warehouse string
	Role      string
}

// LoaderConfig configures the CSV loader.
type LoaderConfig struct {
	DataDir   string // landing directory; one subdirectory per batch label
	BatchSize int    // rows per insert chunk
}

// RefreshConfig configures the derivation scheduler.
type RefreshConfig struct {
	Enabled     bool          // run the scheduler inside the serve process
	Tick        time.Duration // timer-driven evaluation interval
	ProfilesLag time.Duration // freshness target of latest_user_profiles
	DailyLag    time.Duration // freshness target of daily_trading_metrics
}

// CacheConfig selects the derivation cache store ("memory" or "redis").
type CacheConfig struct {
	Backend string
}

// RedisConfig defines connection details for Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ChangeFeedConfig selects how loads notify the scheduler ("none", "postgres" or "kafka").
type ChangeFeedConfig struct {
	Kind    string
	Channel string // LISTEN/NOTIFY channel for the postgres feed
}

// KafkaConfig defines connection details for Kafka.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and used throughout the application.
// All services should import this package and read from AppConfig instead of
// reloading environment variables directly.
var AppConfig Config

// secretResolver resolves the SSM-backed warehouse password. Swapped in tests.
var secretResolver = resolveSSMParameter

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Behavior:
//   - Sets defaults for all required fields.
//   - Reads environment variables automatically with viper.AutomaticEnv().
//   - Resolves the warehouse password from SSM when WAREHOUSE_PASSWORD_SSM_PARAM is set.
//   - Constructs the PostgreSQL connection string (DSN).
//   - Calls validateConfig() to ensure required fields are present.
//
// Fatal exit:
//   - If required variables are missing or inconsistent, validateConfig() will
//     terminate the app with a descriptive log message.
func LoadConfig() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("RATE_LIMIT_RPM", 120)

	viper.SetDefault("WAREHOUSE_DIALECT", "postgres")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "cryptopulse")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("SNOWFLAKE_DATABASE", "CRYPTO_DB")
	viper.SetDefault("SNOWFLAKE_WAREHOUSE", "CRYPTO_WH")

	viper.SetDefault("LOADER_DATA_DIR", "./data")
	viper.SetDefault("LOADER_BATCH_SIZE", 5000)

	viper.SetDefault("REFRESH_ENABLED", true)
	viper.SetDefault("REFRESH_TICK", "15s")
	viper.SetDefault("REFRESH_PROFILES_LAG", "10m")
	viper.SetDefault("REFRESH_DAILY_LAG", "5m")

	viper.SetDefault("CACHE_BACKEND", "memory")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("CHANGEFEED", "none")
	viper.SetDefault("CHANGEFEED_CHANNEL", "raw_loaded")
	viper.SetDefault("KAFKA_BROKERS", "localhost:9092")
	viper.SetDefault("KAFKA_TOPIC", "cryptopulse.raw-loads")
	viper.SetDefault("KAFKA_GROUP_ID", "cryptopulse-refresh")

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			RateLimitRPM: viper.GetInt("RATE_LIMIT_RPM"),
		},
		Warehouse: WarehouseConfig{
			Dialect:          strings.ToLower(viper.GetString("WAREHOUSE_DIALECT")),
			PasswordSSMParam: viper.GetString("WAREHOUSE_PASSWORD_SSM_PARAM"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Snowflake: SnowflakeConfig{
			Account:   viper.GetString("SNOWFLAKE_ACCOUNT"),
			User:      viper.GetString("SNOWFLAKE_USER"),
			Password:  viper.GetString("SNOWFLAKE_PASSWORD"),
			Database:  viper.GetString("SNOWFLAKE_DATABASE"),
			Warehouse: viper.GetString("SNOWFLAKE_WAREHOUSE"),
			Role:      viper.GetString("SNOWFLAKE_ROLE"),
		},
		Loader: LoaderConfig{
			DataDir:   viper.GetString("LOADER_DATA_DIR"),
			BatchSize: viper.GetInt("LOADER_BATCH_SIZE"),
		},
		Refresh: RefreshConfig{
			Enabled:     viper.GetBool("REFRESH_ENABLED"),
			Tick:        viper.GetDuration("REFRESH_TICK"),
			ProfilesLag: viper.GetDuration("REFRESH_PROFILES_LAG"),
			DailyLag:    viper.GetDuration("REFRESH_DAILY_LAG"),
		},
		Cache: CacheConfig{
			Backend: strings.ToLower(viper.GetString("CACHE_BACKEND")),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		ChangeFeed: ChangeFeedConfig{
			Kind:    strings.ToLower(viper.GetString("CHANGEFEED")),
			Channel: viper.GetString("CHANGEFEED_CHANNEL"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(viper.GetString("KAFKA_BROKERS")),
			Topic:   viper.GetString("KAFKA_TOPIC"),
			GroupID: viper.GetString("KAFKA_GROUP_ID"),
		},
	}

	if param := AppConfig.Warehouse.PasswordSSMParam; param != "" {
		secret, err := secretResolver(param)
		if err != nil {
			log.Fatalf("❌ Failed to resolve warehouse password from SSM parameter %q: %v\n", param, err)
		}
		switch AppConfig.Warehouse.Dialect {
		case "snowflake":
			AppConfig.Snowflake.Password = secret
		default:
			AppConfig.Postgres.Password = secret
		}
	}

	AppConfig.Postgres.URL = buildPostgresURL(AppConfig.Postgres)

	validateConfig()
}

// buildPostgresURL constructs the DSN used by database/sql and pq.NewListener.
func buildPostgresURL(pg PostgresConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(pg.User, pg.Password),
		Host:     fmt.Sprintf("%s:%d", pg.Host, pg.Port),
		Path:     "/" + pg.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(pg.SSLMode),
	}
	return u.String()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validateConfig ensures required variables are present and terminates
// the application if they are missing.
//
// Behavior:
//   - Checks each critical field of AppConfig for the selected dialect and backends.
//   - Collects missing or invalid ones in a slice.
//   - If any are found, logs them and terminates the app with log.Fatalf().
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}

	switch AppConfig.Warehouse.Dialect {
	case "postgres":
		if AppConfig.Postgres.Host == "" {
			missing = append(missing, "POSTGRES_HOST")
		}
		if AppConfig.Postgres.Port == 0 {
			missing = append(missing, "POSTGRES_PORT")
		}
		if AppConfig.Postgres.User == "" {
			missing = append(missing, "POSTGRES_USER")
		}
		if AppConfig.Postgres.Password == "" {
			missing = append(missing, "POSTGRES_PASSWORD")
		}
		if AppConfig.Postgres.DBName == "" {
			missing = append(missing, "POSTGRES_DB")
		}
	case "snowflake":
		if AppConfig.Snowflake.Account == "" {
			missing = append(missing, "SNOWFLAKE_ACCOUNT")
		}
		if AppConfig.Snowflake.User == "" {
			missing = append(missing, "SNOWFLAKE_USER")
		}
		if AppConfig.Snowflake.Password == "" {
			missing = append(missing, "SNOWFLAKE_PASSWORD")
		}
		if AppConfig.Snowflake.Database == "" {
			missing = append(missing, "SNOWFLAKE_DATABASE")
		}
		if AppConfig.Snowflake.Warehouse == "" {
			missing = append(missing, "SNOWFLAKE_WAREHOUSE")
		}
	default:
		missing = append(missing, "WAREHOUSE_DIALECT (postgres|snowflake)")
	}

	if AppConfig.Loader.DataDir == "" {
		missing = append(missing, "LOADER_DATA_DIR")
	}
	if AppConfig.Loader.BatchSize <= 0 {
		missing = append(missing, "LOADER_BATCH_SIZE (> 0)")
	}
	if AppConfig.Refresh.Tick <= 0 {
		missing = append(missing, "REFRESH_TICK (> 0)")
	}

	switch AppConfig.Cache.Backend {
	case "memory":
	case "redis":
		if AppConfig.Redis.Addr == "" {
			missing = append(missing, "REDIS_ADDR")
		}
	default:
		missing = append(missing, "CACHE_BACKEND (memory|redis)")
	}
	if !AppConfig.Refresh.Enabled && AppConfig.Cache.Backend != "redis" {
		missing = append(missing, "CACHE_BACKEND=redis (required when REFRESH_ENABLED=false)")
	}

	switch AppConfig.ChangeFeed.Kind {
	case "none":
	case "postgres":
		if AppConfig.Warehouse.Dialect != "postgres" {
			missing = append(missing, "CHANGEFEED=postgres requires WAREHOUSE_DIALECT=postgres")
		}
		if AppConfig.ChangeFeed.Channel == "" {
			missing = append(missing, "CHANGEFEED_CHANNEL")
		}
	case "kafka":
		if len(AppConfig.Kafka.Brokers) == 0 {
			missing = append(missing, "KAFKA_BROKERS")
		}
		if AppConfig.Kafka.Topic == "" {
			missing = append(missing, "KAFKA_TOPIC")
		}
	default:
		missing = append(missing, "CHANGEFEED (none|postgres|kafka)")
	}

	if len(missing) > 0 {
		log.Fatalf("❌ Missing required environment variables: %v\n", missing)
	}
}
