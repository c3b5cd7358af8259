package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromValue(t *testing.T) {
	secret, err := Load(Source{Name: "api key", Value: "  token-123  "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "token-123" {
		t.Fatalf("expected trimmed value, got %q", secret)
	}
}

func TestLoadFilePrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("file-token\n"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	secret, err := Load(Source{Name: "api key", Value: "inline-token", File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "file-token" {
		t.Fatalf("expected file to win over inline value, got %q", secret)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CVNER_TEST_TOKEN", "env-token")

	secret, err := Load(Source{Name: "api key", Env: "CVNER_TEST_TOKEN"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "env-token" {
		t.Fatalf("expected env value, got %q", secret)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  Source
		want string
	}{
		{name: "nothing configured", src: Source{Name: "tracker token"}, want: "tracker token is not configured"},
		{name: "missing file", src: Source{Name: "api key", File: "/nonexistent/key"}, want: "reading api key"},
		{name: "empty env", src: Source{Name: "api key", Env: "CVNER_TEST_UNSET_TOKEN"}, want: "environment variable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.src)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error to mention %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("   \n"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := Load(Source{Name: "api key", File: path}); err == nil {
		t.Fatal("expected an error for an empty secret file")
	}
}
