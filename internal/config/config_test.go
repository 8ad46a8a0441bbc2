package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func envOf(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(envOf(nil))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != ":8080" || cfg.DNSMode != DNSModeDoH || cfg.SafeTTL != 30*time.Minute {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.ReporterQueue != 256 || cfg.ReporterWorkers != 2 || cfg.ReporterTimeout != 5*time.Second {
		t.Errorf("unexpected reporter defaults %+v", cfg)
	}
	if len(cfg.ProxyList) != 0 {
		t.Errorf("expected no proxies, got %v", cfg.ProxyList)
	}
}

func TestPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "phishguard.yaml")
	yaml := "listen_addr: \":9000\"\nredis_addr: file:6379\nsafe_ttl: 10m\ndns_mode: udp\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(envOf(map[string]string{
		"PHISHGUARD_CONFIG":     path,
		"REDIS_ADDR":            "legacy:6379",
		"PHISHGUARD_SAFE_TTL":   "45m",
		"PROXY_LIST":            "socks5://a:1080, socks5h://b:1080,",
		"PROXY_CONCURRENCY":     "4",
		"PHISHGUARD_DNS_SERVER": "1.1.1.1:53",
	}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ListenAddr != ":9000" {
		t.Errorf("file value lost: %q", cfg.ListenAddr)
	}
	if cfg.RedisAddr != "legacy:6379" {
		t.Errorf("legacy env should beat the file, got %q", cfg.RedisAddr)
	}
	if cfg.SafeTTL != 45*time.Minute {
		t.Errorf("prefixed env should win, got %v", cfg.SafeTTL)
	}
	if cfg.DNSMode != DNSModeUDP || cfg.DNSServer != "1.1.1.1:53" {
		t.Errorf("unexpected dns settings %q %q", cfg.DNSMode, cfg.DNSServer)
	}
	want := []string{"socks5://a:1080", "socks5h://b:1080"}
	if !reflect.DeepEqual(cfg.ProxyList, want) || cfg.ProxyConcurrency != 4 {
		t.Errorf("unexpected proxies %v (%d)", cfg.ProxyList, cfg.ProxyConcurrency)
	}
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"Unknown DNS mode", map[string]string{"PHISHGUARD_DNS_MODE": "tcp"}},
		{"Negative proxy concurrency", map[string]string{"PROXY_CONCURRENCY": "-1"}},
		{"Zero reporter workers", map[string]string{"PHISHGUARD_REPORTER_WORKERS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(envOf(tt.env)); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if _, err := Load(envOf(map[string]string{"PHISHGUARD_CONFIG": "/nonexistent/x.yaml"})); err == nil {
		t.Error("missing config file should fail")
	}
}
