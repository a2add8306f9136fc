// cliparse/cliparse_test.go
package cliparse

import (
	"os"
	"testing"
	"time"
)

func TestParseFlags_EnvVars(t *testing.T) {
	// Set env vars
	os.Setenv("PORT", "9000")
	os.Setenv("DATABASE_URL", "file:test.db")
	os.Setenv("ADMIN_KEY_SALT", "test-salt")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}

	if cfg.DatabaseType != "sqlite" {
		t.Errorf("expected default database type sqlite, got %s", cfg.DatabaseType)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	os.Setenv("PORT", "9000")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "file:test.db", "-admin-salt", "s1"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
}

func TestParseFlags_MissingDatabaseURL(t *testing.T) {
	os.Clearenv()

	_, err := ParseFlags([]string{"-admin-salt", "s1"})
	if err == nil {
		t.Error("expected error for missing database URL")
	}
}

func TestParseFlags_MissingAdminSalt(t *testing.T) {
	os.Clearenv()

	_, err := ParseFlags([]string{"-d", "file:test.db"})
	if err == nil {
		t.Error("expected error for missing admin key salt")
	}
}

func TestParseFlags_ReapConfig(t *testing.T) {
	os.Clearenv()

	cfg, err := ParseFlags([]string{
		"-d", "file:test.db", "-admin-salt", "s1",
		"-reap-interval", "5m", "-reap-after", "2h",
	})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ReapInterval != 5*time.Minute {
		t.Errorf("expected reap interval 5m, got %v", cfg.ReapInterval)
	}
	if cfg.ReapAfter != 2*time.Hour {
		t.Errorf("expected reap after 2h, got %v", cfg.ReapAfter)
	}
}

func TestParseFlags_ReapIntervalWithoutAfter(t *testing.T) {
	os.Clearenv()

	_, err := ParseFlags([]string{
		"-d", "file:test.db", "-admin-salt", "s1", "-reap-interval", "5m",
	})
	if err == nil {
		t.Error("expected error when reap-interval is set without reap-after")
	}
}
