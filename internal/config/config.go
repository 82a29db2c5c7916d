package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Driver string
		DSN    string
	}
	Auth struct {
		JWTSecret       string
		TokenTTLMinutes int
		Issuer          string
	}
	Attachments struct {
		MaxBytes          int64
		AllowedExtensions []string
	}
	Storage struct {
		Driver    string
		LocalDir  string
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from environment variables, an optional .env
// file and an optional config file. args are command line flags without the
// program name.
func Load(args []string) (Config, error) {
	_ = godotenv.Load() // optional file; real env wins

	flags := pflag.NewFlagSet("server", pflag.ContinueOnError)
	configFile := flags.String("config", "", "path to a config file (yaml, json or toml)")
	if err := flags.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/chat.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttlminutes", 24*60)
	v.SetDefault("auth.issuer", "bioseed-chat")
	v.SetDefault("attachments.maxbytes", int64(5<<20))
	v.SetDefault("attachments.allowedextensions", []string{".pdf", ".doc", ".docx", ".txt"})
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.localdir", "uploads")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "chat-attachments")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", *configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		_ = v.ReadInConfig() // optional file
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// comma separated lists from the environment arrive as a single element
	if len(cfg.Attachments.AllowedExtensions) == 1 && strings.Contains(cfg.Attachments.AllowedExtensions[0], ",") {
		cfg.Attachments.AllowedExtensions = strings.Split(cfg.Attachments.AllowedExtensions[0], ",")
	}

	return cfg, nil
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwtsecret is required (set CHAT_AUTH_JWTSECRET)"))
	}

	switch c.Storage.Driver {
	case "local":
		if strings.TrimSpace(c.Storage.LocalDir) == "" {
			errs = append(errs, errors.New("storage.localdir is required for local storage"))
		}
	case "s3":
		if strings.TrimSpace(c.Storage.Bucket) == "" {
			errs = append(errs, errors.New("storage.bucket is required for s3 storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be local or s3, got %q", c.Storage.Driver))
	}

	return errors.Join(errs...)
}
