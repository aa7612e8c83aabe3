package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "LINKSHARE"

type Config struct {
	Environment string
	LogLevel    string
	API         APIConfig
	Session     SessionConfig
	Web         WebConfig
	Storage     StorageConfig
	MQ          MQConfig
}

// APIConfig locates the remote backend. Paths differ between deployments,
// so every endpoint that has been seen to vary is configurable.
type APIConfig struct {
	BaseURL       string
	LoginPath     string
	RegisterPath  string
	VerifyPath    string
	Timeout       time.Duration
	VerifySession bool
}

type SessionConfig struct {
	TokenFile    string
	CookieName   string
	CookieSecret string
	CookieSecure bool
	CookieMaxAge int
}

type WebConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type StorageConfig struct {
	// Backend selects the export sink: "local", "minio" or "gcs".
	Backend string
	Dir     string
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

type MQConfig struct {
	// Backend selects the activity broker: "", "rabbitmq" or "pubsub".
	Backend  string
	Channel  string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"api-url":    "api.baseurl",
	"token-file": "session.tokenfile",
	"env":        "environment",
	"log-level":  "loglevel",
}

// LoadConfig layers defaults, an optional linkshare.yaml, LINKSHARE_* environment
// variables and the given flags (highest precedence). flags may be nil.
func LoadConfig(flags *pflag.FlagSet) (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetConfigName("linkshare")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "linkshare"))
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if cfg.API.BaseURL == "" {
		return Config{}, fmt.Errorf("api base url is required")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("loglevel", "")

	v.SetDefault("api.baseurl", "http://localhost:8080")
	v.SetDefault("api.loginpath", "/api/auth/authenticate")
	v.SetDefault("api.registerpath", "/api/auth/register")
	v.SetDefault("api.verifypath", "/api/test/secured")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.verifysession", true)

	v.SetDefault("session.tokenfile", defaultTokenFile())
	v.SetDefault("session.cookiename", "linkshare")
	v.SetDefault("session.cookiesecret", "")
	v.SetDefault("session.cookiesecure", false)
	v.SetDefault("session.cookiemaxage", 86400)

	v.SetDefault("web.host", "127.0.0.1")
	v.SetDefault("web.port", 3000)
	v.SetDefault("web.readtimeout", "15s")
	v.SetDefault("web.writetimeout", "60s")
	v.SetDefault("web.idletimeout", "60s")

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.dir", ".")
	v.SetDefault("storage.minio.endpoint", "")
	v.SetDefault("storage.minio.accesskey", "")
	v.SetDefault("storage.minio.secretkey", "")
	v.SetDefault("storage.minio.bucket", "linkshare-exports")
	v.SetDefault("storage.minio.usessl", false)
	v.SetDefault("storage.gcs.bucket", "")
	v.SetDefault("storage.gcs.projectid", "")
	v.SetDefault("storage.gcs.credentialsfile", "")

	v.SetDefault("mq.backend", "")
	v.SetDefault("mq.channel", "linkshare.activity")
	v.SetDefault("mq.rabbitmq.url", "")
	v.SetDefault("mq.rabbitmq.queuedurable", true)
	v.SetDefault("mq.rabbitmq.queueautodelete", false)
	v.SetDefault("mq.rabbitmq.prefetchcount", 10)
	v.SetDefault("mq.pubsub.projectid", "")
	v.SetDefault("mq.pubsub.credentialsfile", "")
	v.SetDefault("mq.pubsub.subscriptionsuffix", "-sub")
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".linkshare-token"
	}
	return filepath.Join(dir, "linkshare", "token")
}
