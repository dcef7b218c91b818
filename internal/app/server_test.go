package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"oidcconfig/internal/client"
	"oidcconfig/internal/selector"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func fetchSnapshot(t *testing.T, addr, hint string) *client.Snapshot {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "http://"+addr+"/oidc/configuration", nil)
	if err != nil {
		t.Fatal(err)
	}
	if hint != "" {
		req.AddCookie(&http.Cookie{Name: selector.DefaultCookieName, Value: hint})
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	var snapshot client.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		t.Fatal(err)
	}
	return &snapshot
}

func TestServerStartStop(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(filepath.Join(cfg.Profiles.Directory, "tenant-a.yaml"), []byte(tenantProfile), 0o644); err != nil {
		t.Fatal(err)
	}

	server, err := NewServer(cfg, nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if ok, _ := server.Registry().Has("tenantA"); !ok {
		t.Error("expected persisted profile to be registered at start")
	}

	snapshot := fetchSnapshot(t, server.Addr(), "tenantA")
	if snapshot.Hint != "tenantA" || snapshot.ClientID != "client-a" {
		t.Errorf("unexpected snapshot %q %q", snapshot.Hint, snapshot.ClientID)
	}
	if snapshot := fetchSnapshot(t, server.Addr(), "unknown"); snapshot.Hint != client.DefaultHint {
		t.Errorf("expected default configuration for an unknown hint, got %q", snapshot.Hint)
	}

	tenantB := strings.ReplaceAll(tenantProfile, "tenantA", "tenantB")
	if err := os.WriteFile(filepath.Join(cfg.Profiles.Directory, "tenant-b.yaml"), []byte(tenantB), 0o644); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 3*time.Second, func() bool {
		ok, _ := server.Registry().Has("tenantB")
		return ok
	}) {
		t.Error("expected watched profile to be registered")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(stopCtx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}

	if _, err := net.DialTimeout("tcp", server.Addr(), 200*time.Millisecond); err == nil {
		t.Error("server still listening after Stop")
	}
}

func TestServerReloadsSettings(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	write := func(clientID string) {
		data := "server:\n  port: 8080\nsettings:\n  oidc.clientid: " + clientID + "\n"
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("wiki")

	server, err := NewBuilder(cfg, nil).WithConfigPath(path).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = server.Stop(context.Background()) })

	write("reloaded")
	if !waitFor(t, 3*time.Second, func() bool {
		c, err := server.Registry().Default()
		if err != nil {
			return false
		}
		id, err := c.For(nil, nil).ClientID()
		return err == nil && id == "reloaded"
	}) {
		t.Error("expected static settings to be reloaded")
	}
}

func TestServerStartBindError(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	cfg := testConfig(t)
	cfg.Server.Port = listener.Addr().(*net.TCPAddr).Port
	server := buildServer(t, cfg)

	if err := server.Start(context.Background()); err == nil {
		t.Error("expected Start() to fail on a bound port")
	}
}
