package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnv(t *testing.T) {
	unsetEnv(t, "OKX_APIKEY")
	unsetEnv(t, "OKX_SECRET")
	unsetEnv(t, "OKX_PASSPHRASE")
	unsetEnv(t, "TELEGRAM_CHAT_ID")
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "" +
		"# okx credentials\n" +
		"OKX_APIKEY=key\n" +
		"OKX_SECRET=\"secret\"\n" +
		"OKX_PASSPHRASE='pass'\n" +
		"TELEGRAM_CHAT_ID=\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	if err := LoadEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("OKX_APIKEY"); got != "key" {
		t.Fatalf("OKX_APIKEY expected key, got %q", got)
	}
	if got := os.Getenv("OKX_SECRET"); got != "secret" {
		t.Fatalf("OKX_SECRET expected secret, got %q", got)
	}
	if got := os.Getenv("OKX_PASSPHRASE"); got != "pass" {
		t.Fatalf("OKX_PASSPHRASE expected pass, got %q", got)
	}
	if got := os.Getenv("TELEGRAM_CHAT_ID"); got != "" {
		t.Fatalf("TELEGRAM_CHAT_ID expected empty, got %q", got)
	}
}

func TestLoadEnvDoesNotOverrideExisting(t *testing.T) {
	t.Setenv("OKX_APIKEY", "existing")
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("OKX_APIKEY=other\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	if err := LoadEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("OKX_APIKEY"); got != "existing" {
		t.Fatalf("OKX_APIKEY expected existing, got %q", got)
	}
}

func TestLoadEnvMissingFile(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	if old, ok := os.LookupEnv(key); ok {
		t.Cleanup(func() { _ = os.Setenv(key, old) })
	} else {
		t.Cleanup(func() { _ = os.Unsetenv(key) })
	}
	_ = os.Unsetenv(key)
}
