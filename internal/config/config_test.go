// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dotandev/tzsubmit/internal/compat"
	"github.com/spf13/pflag"
)

// isolate points HOME and the working directory at empty temp dirs so that
// no real config file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Network != NetworkMainnet {
		t.Errorf("expected mainnet, got %s", cfg.Network)
	}
	if cfg.ForgeMode != "remote" {
		t.Errorf("expected remote forging, got %s", cfg.ForgeMode)
	}
	if cfg.BalanceRecoveryConstraint != compat.DefaultBalanceRecoveryConstraint {
		t.Errorf("unexpected constraint %q", cfg.BalanceRecoveryConstraint)
	}
	if cfg.JournalPath == "" {
		t.Error("expected non-empty JournalPath")
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	preset, _ := LookupNetwork(NetworkMainnet)
	if strings.Join(cfg.RPCURLs, ",") != strings.Join(preset.RPCURLs, ",") {
		t.Errorf("expected preset URLs, got %v", cfg.RPCURLs)
	}
	if cfg.ParseURL != preset.ParseURL {
		t.Errorf("expected preset parse URL, got %q", cfg.ParseURL)
	}
	if cfg.RPCTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", cfg.RPCTimeout)
	}
	if !cfg.BalanceRecovery {
		t.Error("balance recovery should default to on")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("TZSUBMIT_NETWORK", "custom")
	t.Setenv("TZSUBMIT_RPC_URLS", "https://a.example.com, https://b.example.com")
	t.Setenv("TZSUBMIT_FORGE_MODE", "LOCAL")
	t.Setenv("TZSUBMIT_REORG_MARGIN", "3")
	t.Setenv("TZSUBMIT_RPC_TIMEOUT", "5s")
	t.Setenv("TZSUBMIT_LOG_LEVEL", "debug")
	t.Setenv("TZSUBMIT_TELEMETRY_ENABLED", "true")
	t.Setenv("TZSUBMIT_BALANCE_RECOVERY", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.RPCURLs) != 2 || cfg.RPCURLs[1] != "https://b.example.com" {
		t.Errorf("unexpected rpc urls %v", cfg.RPCURLs)
	}
	if cfg.ForgeMode != "local" {
		t.Errorf("expected local forge mode, got %q", cfg.ForgeMode)
	}
	if cfg.ReorgMargin != 3 {
		t.Errorf("expected reorg margin 3, got %d", cfg.ReorgMargin)
	}
	if cfg.RPCTimeout != 5*time.Second {
		t.Errorf("expected 5s, got %s", cfg.RPCTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug, got %s", cfg.LogLevel)
	}
	if !cfg.Telemetry.Enabled {
		t.Error("expected telemetry enabled")
	}
	if cfg.BalanceRecovery {
		t.Error("expected balance recovery disabled")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := isolate(t)
	content := `network: ghostnet
forge_mode: local
reorg_margin: 2
daemon_port: 9000
telemetry:
  service_name: wallet
`
	if err := os.WriteFile(filepath.Join(dir, ".tzsubmit.yaml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Network != NetworkGhostnet {
		t.Errorf("expected ghostnet, got %s", cfg.Network)
	}
	preset, _ := LookupNetwork(NetworkGhostnet)
	if cfg.RPCURLs[0] != preset.RPCURLs[0] {
		t.Errorf("expected ghostnet URLs, got %v", cfg.RPCURLs)
	}
	if cfg.DaemonPort != 9000 || cfg.ReorgMargin != 2 {
		t.Errorf("unexpected port %d or margin %d", cfg.DaemonPort, cfg.ReorgMargin)
	}
	if cfg.Telemetry.ServiceName != "wallet" {
		t.Errorf("expected service name wallet, got %s", cfg.Telemetry.ServiceName)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	content := "forge_mode = \"local\"\nlog_level = \"warn\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TZSUBMIT_LOG_LEVEL", "error")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ForgeMode != "local" {
		t.Errorf("expected local, got %s", cfg.ForgeMode)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("environment should win, got %s", cfg.LogLevel)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	dir := isolate(t)
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	isolate(t)
	t.Setenv("TZSUBMIT_FORGE_MODE", "sideways")

	if _, err := Load(""); err == nil {
		t.Fatal("expected invalid forge mode to be rejected")
	}
}

func TestMergeDefaultsPreservesExistingValues(t *testing.T) {
	cfg := &Config{
		Network:  NetworkSandbox,
		RPCURLs:  []string{"https://custom.example.com"},
		LogLevel: "debug",
	}
	cfg.MergeDefaults()

	if len(cfg.RPCURLs) != 1 || cfg.RPCURLs[0] != "https://custom.example.com" {
		t.Errorf("MergeDefaults should not overwrite RPCURLs, got %v", cfg.RPCURLs)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("MergeDefaults should not overwrite LogLevel, got %s", cfg.LogLevel)
	}
	if cfg.ParseURL != "" {
		t.Errorf("parse URL should only come with preset URLs, got %q", cfg.ParseURL)
	}
}

func TestNetworks(t *testing.T) {
	got := Networks()
	if got[len(got)-1] != NetworkCustom {
		t.Errorf("custom should be listed last, got %v", got)
	}
	if _, ok := LookupNetwork(NetworkCustom); ok {
		t.Error("custom has no preset")
	}

	p, _ := LookupNetwork(NetworkMainnet)
	p.RPCURLs[0] = "changed"
	again, _ := LookupNetwork(NetworkMainnet)
	if again.RPCURLs[0] == "changed" {
		t.Error("LookupNetwork must return a copy")
	}
}

func TestConfigString(t *testing.T) {
	cfg := &Config{Network: NetworkSandbox, RPCURLs: []string{"http://localhost:8732"}, PrivateKeyHex: "secret"}
	s := cfg.String()
	if !strings.Contains(s, "localhost:8732") {
		t.Errorf("expected URLs in %q", s)
	}
	if strings.Contains(s, "secret") {
		t.Error("String must not print keys")
	}
}

func TestLoadWithFlagsOverridesEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("TZSUBMIT_NETWORK", "mainnet")
	t.Setenv("TZSUBMIT_LOG_LEVEL", "error")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("network", "", "")
	flags.String("log-level", "", "")
	flags.StringSlice("rpc-url", nil, "")
	if err := flags.Parse([]string{"--network", "ghostnet"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadWithFlags("", flags)
	if err != nil {
		t.Fatalf("LoadWithFlags: %v", err)
	}
	if cfg.Network != NetworkGhostnet {
		t.Errorf("expected flag network, got %s", cfg.Network)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("unset flag must not override env, got %q", cfg.LogLevel)
	}
	preset, _ := LookupNetwork(NetworkGhostnet)
	if strings.Join(cfg.RPCURLs, ",") != strings.Join(preset.RPCURLs, ",") {
		t.Errorf("expected ghostnet preset URLs, got %v", cfg.RPCURLs)
	}
}

func TestLoadNotifyEndpoints(t *testing.T) {
	dir := isolate(t)
	content := `notify:
  error_only: true
  endpoints:
    - type: slack
      url: https://hooks.example.com/a
      retries: 2
    - url: https://hooks.example.com/b
      timeout: 5s
`
	if err := os.WriteFile(filepath.Join(dir, ".tzsubmit.yaml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Notify.ErrorOnly || len(cfg.Notify.Webhooks) != 2 {
		t.Fatalf("unexpected notify config %+v", cfg.Notify)
	}
	if cfg.Notify.Webhooks[0].Retries != 2 || cfg.Notify.Webhooks[1].Timeout != 5*time.Second {
		t.Errorf("endpoint options not decoded: %+v", cfg.Notify.Webhooks)
	}
}

func TestLoadRejectsBadNotifyEndpoint(t *testing.T) {
	dir := isolate(t)
	content := "notify:\n  endpoints:\n    - type: pager\n      url: https://hooks.example.com/a\n"
	if err := os.WriteFile(filepath.Join(dir, ".tzsubmit.yaml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "notify.endpoints[0]") {
		t.Fatalf("expected the endpoint to be rejected, got %v", err)
	}
}
