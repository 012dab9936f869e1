package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "IAM_"

// Load builds the configuration from defaults, files, environment and args
// (without the program name).
func Load(args []string) (*Config, error) {
	fset := flag.NewFlagSet("iamd", flag.ContinueOnError)

	configPath := fset.String("config", "", "path to a YAML config file")
	envFile := fset.String("env-file", ".env", "path to a dotenv file")
	listen := fset.String("listen", "", "HTTP listen address")
	logLevel := fset.String("log-level", "", "log level (debug, info, warn, error)")
	storeDriver := fset.String("store", "", "account store driver (sqlite, postgres, pgx)")
	storeDSN := fset.String("dsn", "", "account store DSN")
	redisAddr := fset.String("redis", "", "Redis address")

	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	dotenv, err := readDotenv(*envFile)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	cfg := Defaults()

	path := *configPath
	if path == "" {
		path, _ = lookup(envPrefix + "CONFIG_FILE")
	}
	if path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return nil, err
	}

	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.ListenAddr = *listen
		case "log-level":
			cfg.LogLevel = *logLevel
		case "store":
			cfg.Store.Driver = *storeDriver
		case "dsn":
			cfg.Store.DSN = *storeDSN
		case "redis":
			cfg.Redis.Addr = *redisAddr
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readDotenv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return values, nil
}

func loadYAML(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = splitList(v)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(envPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(envPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(envPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("LISTEN_ADDR", &cfg.ListenAddr)
	str("LOG_LEVEL", &cfg.LogLevel)
	boolean("LOG_DEVELOPMENT", &cfg.LogDevelopment)
	duration("SHUTDOWN_GRACE", &cfg.ShutdownGrace)
	list("CORS_ORIGINS", &cfg.CORSOrigins)

	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	integer("REDIS_DB", &cfg.Redis.DB)
	str("REDIS_PREFIX", &cfg.Redis.Prefix)

	str("STORE_DRIVER", &cfg.Store.Driver)
	str("STORE_DSN", &cfg.Store.DSN)

	str("JWT_SECRET", &cfg.JWT.Secret)
	str("JWT_ISSUER", &cfg.JWT.Issuer)
	str("JWT_AUDIENCE", &cfg.JWT.Audience)
	duration("JWT_ACCESS_TTL", &cfg.JWT.AccessTTL)
	duration("JWT_REFRESH_TTL", &cfg.JWT.RefreshTTL)

	list("KAFKA_BROKERS", &cfg.Kafka.Brokers)
	str("KAFKA_TOPIC", &cfg.Kafka.Topic)

	boolean("AUDIT_ENABLED", &cfg.Audit.Enabled)
	integer("AUDIT_BUFFER_SIZE", &cfg.Audit.BufferSize)
	boolean("METRICS_ENABLED", &cfg.Metrics.Enabled)
	boolean("OTEL_ENABLED", &cfg.Metrics.OTel)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
