package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds server configuration loaded from flags, env, or config file.
type Config struct {
	Addr        string
	LoopbackURL string
	LogLevel    string

	PostgresDSN string
	UseMemory   bool

	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	SubaccountCacheTTL time.Duration

	LuxorBaseURL string
	LuxorAPIKey  string
	Currency     string
	CallTimeout  time.Duration

	SessionSecret string
	SessionCookie string

	RevenueSince    time.Time
	ChargesNegative bool
	StreamInterval  time.Duration
}

const dateLayout = "2006-01-02"

// Load merges config file, environment variables, and flags into Config.
// Environment variables use the MINERHOST_ prefix with dashes as underscores.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MINERHOST")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("log-level", "info")
	v.SetDefault("use-memory", false)
	v.SetDefault("redis-db", 0)
	v.SetDefault("subaccount-cache-ttl", 5*time.Minute)
	v.SetDefault("luxor-base-url", "https://app.luxor.tech/api")
	v.SetDefault("currency", "BTC")
	v.SetDefault("call-timeout", 30*time.Second)
	v.SetDefault("session-cookie", "session")
	v.SetDefault("charges-negative", true)
	v.SetDefault("stream-interval", 30*time.Second)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Addr:               v.GetString("addr"),
		LoopbackURL:        v.GetString("loopback-url"),
		LogLevel:           v.GetString("log-level"),
		PostgresDSN:        v.GetString("pg-dsn"),
		UseMemory:          v.GetBool("use-memory"),
		RedisAddr:          v.GetString("redis-addr"),
		RedisPassword:      v.GetString("redis-password"),
		RedisDB:            v.GetInt("redis-db"),
		SubaccountCacheTTL: v.GetDuration("subaccount-cache-ttl"),
		LuxorBaseURL:       v.GetString("luxor-base-url"),
		LuxorAPIKey:        v.GetString("luxor-api-key"),
		Currency:           strings.ToUpper(strings.TrimSpace(v.GetString("currency"))),
		CallTimeout:        v.GetDuration("call-timeout"),
		SessionSecret:      v.GetString("session-secret"),
		SessionCookie:      v.GetString("session-cookie"),
		ChargesNegative:    v.GetBool("charges-negative"),
		StreamInterval:     v.GetDuration("stream-interval"),
	}

	if raw := strings.TrimSpace(v.GetString("revenue-since")); raw != "" {
		since, err := time.Parse(dateLayout, raw)
		if err != nil {
			return Config{}, fmt.Errorf("revenue-since: expected YYYY-MM-DD: %w", err)
		}
		cfg.RevenueSince = since
	}

	if cfg.LoopbackURL == "" {
		cfg.LoopbackURL = loopbackFromAddr(cfg.Addr)
	}

	return cfg, nil
}

// Validate checks the settings the serve command cannot run without.
func (c Config) Validate() error {
	var errs []error
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("session-secret is required"))
	}
	if !c.UseMemory && c.PostgresDSN == "" {
		errs = append(errs, errors.New("pg-dsn is required unless use-memory is set"))
	}
	if c.CallTimeout <= 0 {
		errs = append(errs, errors.New("call-timeout must be positive"))
	}
	if c.StreamInterval <= 0 {
		errs = append(errs, errors.New("stream-interval must be positive"))
	}
	return errors.Join(errs...)
}

// loopbackFromAddr derives the URL the service uses to reach its own listener.
func loopbackFromAddr(addr string) string {
	host, port, ok := strings.Cut(addr, ":")
	if !ok {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + host + ":" + port
}
