package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func withRootArgs(t *testing.T, out string) {
	t.Helper()
	saved := rootArgs
	t.Cleanup(func() { rootArgs = saved })
	rootArgs.config = filepath.Join("..", "..", "configs", "config.yaml")
	rootArgs.fixture = filepath.Join("..", "..", "configs", "fixture.yaml")
	rootArgs.out = out
	rootArgs.logLevel = "error"
}

func TestLoadConfigOverrides(t *testing.T) {
	withRootArgs(t, "out-dir")
	rootArgs.parallel = 7
	rootArgs.servers = "dhcp01,dns:dc01"
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig error: %v", err)
	}
	if cfg.Source.Kind != "static" || cfg.Report.OutputDir != "out-dir" || cfg.Collect.ParallelServers != 7 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.Collect.Servers) != 1 || cfg.Collect.Servers[0] != "dhcp01,dns:dc01" {
		t.Fatalf("unexpected servers %v", cfg.Collect.Servers)
	}
}

func TestRunCollectWithFixture(t *testing.T) {
	out := t.TempDir()
	withRootArgs(t, out)
	collectArgs.failTier = "Red"
	t.Cleanup(func() { collectArgs.failTier = "" })

	err := runCollect(context.Background(), nil)
	var exit exitError
	if !errors.As(err, &exit) || exit != 3 {
		t.Fatalf("fixture is Red, expected exit 3, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "report.html")); err != nil {
		t.Fatalf("html report missing: %v", err)
	}
}

func TestRunValidate(t *testing.T) {
	withRootArgs(t, t.TempDir())
	if err := runValidate(context.Background(), nil); err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if err := runValidate(context.Background(), []string{"extra"}); err == nil {
		t.Fatalf("expected error for extra args")
	}
}
