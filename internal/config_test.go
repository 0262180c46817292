package internal

import (
	"strings"
	"testing"
	"time"
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
		t.Fatalf("default config should pass: %v", err)
	}
	opts := cfg.Editor.Options()
	if !opts.FlushOnClose {
		t.Error("flush on close should default to true")
	}
	if opts.AutosaveInterval != cfg.Editor.AutosaveInterval {
		t.Errorf("autosave interval = %v, want %v", opts.AutosaveInterval, cfg.Editor.AutosaveInterval)
	}
}

func TestVaultConfig_Compression(t *testing.T) {
	for _, name := range []string{"", "none", "gzip", "lz4", "brotli"} {
		cfg := VaultConfig{Path: "./vault", Compression: name}
		if err := cfg.Validate(); err != nil {
			t.Errorf("compression %q should pass: %v", name, err)
		}
	}
	cfg := VaultConfig{Path: "./vault", Compression: "zip"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown compression should fail")
	}
}

func TestEditorConfig_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EditorConfig)
	}{
		{"autosave too fast", func(c *EditorConfig) { c.AutosaveInterval = time.Millisecond }},
		{"autosave missing", func(c *EditorConfig) { c.AutosaveInterval = 0 }},
		{"negative history", func(c *EditorConfig) { c.HistoryLimit = -1 }},
		{"image cap missing", func(c *EditorConfig) { c.MaxImageBytes = 0 }},
		{"image cap too large", func(c *EditorConfig) { c.MaxImageBytes = 1 << 30 }},
		{"negative idle", func(c *EditorConfig) { c.IdleTimeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(&cfg.Editor)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
