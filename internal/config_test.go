package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/quire/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Editor.HistoryLimit != 200 || !cfg.Editor.StripZeroWidth {
		t.Errorf("editor defaults = %+v", cfg.Editor)
	}
}

func TestEditorConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     EditorConfig
		wantErr bool
	}{
		{"defaults", EditorConfig{HistoryLimit: 200, SSEThrottle: 2 * time.Second}, false},
		{"no throttle", EditorConfig{HistoryLimit: 1}, false},
		{"zero history", EditorConfig{HistoryLimit: 0}, true},
		{"negative history", EditorConfig{HistoryLimit: -5}, true},
		{"negative throttle", EditorConfig{HistoryLimit: 10, SSEThrottle: -time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVaultConfig_Extensions(t *testing.T) {
	ok := VaultConfig{Path: "./vault", Extensions: []string{".md", "markdown"}}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid extensions rejected: %v", err)
	}
	bad := VaultConfig{Path: "./vault", Extensions: []string{".md", ""}}
	if err := bad.Validate(); err == nil {
		t.Error("empty extension accepted")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("QUIRE_TEST_TOKEN", "s3cret")
	yml := `
app:
  log_level: debug
  http:
    port: 9090
vault:
  path: ./docs
  extensions: [".md", ".markdown"]
auth:
  mode: token
  token: ${QUIRE_TEST_TOKEN}
editor:
  history_limit: 50
  sse_throttle: 500ms
  strip_zero_width: false
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Auth.Token != "s3cret" || !cfg.Auth.AuthEnabled() {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Editor.HistoryLimit != 50 || cfg.Editor.SSEThrottle != 500*time.Millisecond || cfg.Editor.StripZeroWidth {
		t.Errorf("editor = %+v", cfg.Editor)
	}
	if cfg.SQLite.Path != "./quire.db" || len(cfg.Vault.Extensions) != 2 {
		t.Errorf("defaults lost: sqlite=%q vault=%+v", cfg.SQLite.Path, cfg.Vault)
	}
}
