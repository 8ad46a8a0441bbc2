package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the runtime configuration shared by the api and worker
// binaries.
//
// Precedence, highest first: PHISHGUARD_* environment, the bare legacy
// variables (REDIS_ADDR, DB_URL, ...), the YAML file named by
// PHISHGUARD_CONFIG, defaults.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	APIKey     string `mapstructure:"api_key"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	DatabaseURL   string `mapstructure:"db_url"`
	// VerdictStoreURL points at a remote verdict store. When set, the api
	// uses it instead of a local repository.
	VerdictStoreURL string `mapstructure:"verdict_store_url"`

	VirusTotalKey string `mapstructure:"virustotal_key"`
	SSLLabsEmail  string `mapstructure:"ssllabs_email"`

	DNSMode     string `mapstructure:"dns_mode"`
	DoHEndpoint string `mapstructure:"doh_endpoint"`
	DNSServer   string `mapstructure:"dns_server"`

	ProxyList        []string `mapstructure:"proxy_list"`
	ProxyConcurrency int      `mapstructure:"proxy_concurrency"`

	ReporterQueue   int           `mapstructure:"reporter_queue"`
	ReporterWorkers int           `mapstructure:"reporter_workers"`
	ReporterTimeout time.Duration `mapstructure:"reporter_timeout"`

	SafeTTL      time.Duration `mapstructure:"safe_ttl"`
	Interstitial string        `mapstructure:"interstitial_url"`
	DeepBudget   time.Duration `mapstructure:"deep_budget"`
	WorkerFast   bool          `mapstructure:"worker_fast_only"`
}

const (
	DNSModeDoH = "doh"
	DNSModeUDP = "udp"
)

var ErrInvalidConfig = errors.New("invalid config")

var legacyEnv = map[string]string{
	"redis_addr":        "REDIS_ADDR",
	"db_url":            "DB_URL",
	"api_key":           "API_SECRET_KEY",
	"proxy_list":        "PROXY_LIST",
	"proxy_concurrency": "PROXY_CONCURRENCY",
	"virustotal_key":    "VIRUSTOTAL_API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("api_key", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("db_url", "")
	v.SetDefault("verdict_store_url", "")
	v.SetDefault("virustotal_key", "")
	v.SetDefault("ssllabs_email", "")
	v.SetDefault("dns_mode", DNSModeDoH)
	v.SetDefault("doh_endpoint", "https://dns.google/resolve")
	v.SetDefault("dns_server", "")
	v.SetDefault("proxy_list", []string{})
	v.SetDefault("proxy_concurrency", 0)
	v.SetDefault("reporter_queue", 256)
	v.SetDefault("reporter_workers", 2)
	v.SetDefault("reporter_timeout", 5*time.Second)
	v.SetDefault("safe_ttl", 30*time.Minute)
	v.SetDefault("interstitial_url", "/checking.html")
	v.SetDefault("deep_budget", 0)
	v.SetDefault("worker_fast_only", false)
}

// Load reads configuration using lookup for the environment. Pass
// os.LookupEnv in production.
func Load(lookup func(string) (string, bool)) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path, ok := lookup("PHISHGUARD_CONFIG"); ok && path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	for key, name := range legacyEnv {
		if val, ok := lookup(name); ok && val != "" {
			v.Set(key, val)
		}
	}
	for _, key := range v.AllKeys() {
		if val, ok := lookup("PHISHGUARD_" + strings.ToUpper(key)); ok {
			v.Set(key, val)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.ProxyList = splitList(cfg.ProxyList)

	return cfg, cfg.validate()
}

// PROXY_LIST arrives as one comma separated string from the environment.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, p := range strings.Split(item, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func (c Config) validate() error {
	switch c.DNSMode {
	case DNSModeDoH, DNSModeUDP:
	default:
		return fmt.Errorf("%w: dns_mode %q", ErrInvalidConfig, c.DNSMode)
	}
	if c.ProxyConcurrency < 0 {
		return fmt.Errorf("%w: proxy_concurrency must not be negative", ErrInvalidConfig)
	}
	if c.ReporterQueue <= 0 || c.ReporterWorkers <= 0 {
		return fmt.Errorf("%w: reporter queue and workers must be positive", ErrInvalidConfig)
	}
	return nil
}
