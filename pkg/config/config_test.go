package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var configEnv = []string{
	"CALENDAR_URL", "KUBECONFIG", "POOL_LABEL", "PLACEHOLDER_NAMESPACE", "PLACEHOLDER_SELECTOR",
	"POOLS_FILE", "TEMPLATE_FILE", "DRY_RUN", "RECONCILE_INTERVAL", "METRICS_ADDR",
	"STORAGE_ENABLED", "DATABASE_URL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		t.Setenv(key, "")
	}
}

func TestNewConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg := NewConfig()

	if cfg.PoolLabel != "hub.jupyter.org/pool-name" {
		t.Errorf("Expected default pool label, got %s", cfg.PoolLabel)
	}
	if cfg.ReconcileInterval != time.Minute {
		t.Errorf("Expected interval 1m, got %v", cfg.ReconcileInterval)
	}
	if cfg.DryRun {
		t.Error("Expected dry run to be off by default")
	}
	if cfg.StorageEnabled {
		t.Error("Expected storage to be off by default")
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("Expected metrics on :9090, got %s", cfg.MetricsAddr)
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("CALENDAR_URL", "https://example.com/cal.ics")
	t.Setenv("POOL_LABEL", "example.com/pool")
	t.Setenv("PLACEHOLDER_NAMESPACE", "hub")
	t.Setenv("DRY_RUN", "1")
	t.Setenv("RECONCILE_INTERVAL", "5m")
	t.Setenv("STORAGE_ENABLED", "true")

	cfg := NewConfig()

	if cfg.CalendarURL != "https://example.com/cal.ics" {
		t.Errorf("Expected calendar URL from env, got %s", cfg.CalendarURL)
	}
	if cfg.PoolLabel != "example.com/pool" {
		t.Errorf("Expected pool label from env, got %s", cfg.PoolLabel)
	}
	if cfg.PlaceholderNamespace != "hub" {
		t.Errorf("Expected namespace hub, got %s", cfg.PlaceholderNamespace)
	}
	if !cfg.DryRun || !cfg.StorageEnabled {
		t.Errorf("Expected dry run and storage enabled, got %v/%v", cfg.DryRun, cfg.StorageEnabled)
	}
	if cfg.ReconcileInterval != 5*time.Minute {
		t.Errorf("Expected interval 5m, got %v", cfg.ReconcileInterval)
	}
}

func TestReconcileIntervalParsing(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"90s", 90 * time.Second},
		{"120", 120 * time.Second},
		{"soon", time.Minute},
		{"-5", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("RECONCILE_INTERVAL", tt.value)
			if got := getEnvDuration("RECONCILE_INTERVAL", time.Minute); got != tt.want {
				t.Errorf("getEnvDuration(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		clearEnv(t)
		cfg := NewConfig()
		cfg.CalendarURL = "file:///tmp/cal.ics"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing calendar", func(c *Config) { c.CalendarURL = "" }, "CALENDAR_URL"},
		{"missing namespace", func(c *Config) { c.PlaceholderNamespace = "" }, "PLACEHOLDER_NAMESPACE"},
		{"missing pools file", func(c *Config) { c.PoolsFile = "" }, "POOLS_FILE"},
		{"missing template", func(c *Config) { c.TemplateFile = "" }, "TEMPLATE_FILE"},
		{"storage without url", func(c *Config) { c.StorageEnabled = true; c.DatabaseURL = "" }, "DATABASE_URL"},
		{"interval too short", func(c *Config) { c.ReconcileInterval = 10 * time.Millisecond }, "interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

const poolsYAML = `pools:
  pool-a:
    nodeSelector:
      hub.jupyter.org/pool-name: pool-a
    resources:
      requests:
        cpu: 1500m
        memory: 2Gi
    replicas: 1
  pool-b:
    resources:
      requests:
        cpu: "2"
    replicas: 0
`

func TestLoadPools(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pools.yaml")
	if err := os.WriteFile(path, []byte(poolsYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	pools, err := LoadPools(path)
	if err != nil {
		t.Fatalf("LoadPools failed: %v", err)
	}

	if names := pools.Names(); len(names) != 2 || names[0] != "pool-a" || names[1] != "pool-b" {
		t.Fatalf("Expected [pool-a pool-b], got %v", names)
	}

	a := pools.Pools["pool-a"]
	if a.Replicas != 1 {
		t.Errorf("Expected 1 default replica, got %d", a.Replicas)
	}
	if a.NodeSelector["hub.jupyter.org/pool-name"] != "pool-a" {
		t.Errorf("Unexpected node selector %v", a.NodeSelector)
	}
	if a.ReplicaCPUMillicores() != 1500 || a.ReplicaMemoryMebibytes() != 2048 {
		t.Errorf("Expected 1500m/2048Mi, got %dm/%dMi", a.ReplicaCPUMillicores(), a.ReplicaMemoryMebibytes())
	}

	b := pools.Pools["pool-b"]
	if b.ReplicaCPUMillicores() != 2000 || b.ReplicaMemoryMebibytes() != 0 {
		t.Errorf("Expected 2000m/0Mi, got %dm/%dMi", b.ReplicaCPUMillicores(), b.ReplicaMemoryMebibytes())
	}
}

func TestParsePoolsErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "pools: {}\n"},
		{"negative replicas", "pools:\n  a:\n    replicas: -1\n"},
		{"negative cpu", "pools:\n  a:\n    resources:\n      requests:\n        cpu: \"-1\"\n"},
		{"bad quantity", "pools:\n  a:\n    resources:\n      requests:\n        cpu: lots\n"},
		{"unknown field", "pools:\n  a:\n    replica: 2\n"},
		{"not yaml", "pools: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePools([]byte(tt.yaml)); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}

	if _, err := LoadPools(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
