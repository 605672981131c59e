package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
)

// clearEnv blanks every key so the host environment cannot leak into a test.
// Empty variables are treated as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for key := range defaults {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.DBPath != "castle.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.StoreTimeout != 5*time.Second || cfg.NotifyTimeout != 3*time.Second {
		t.Errorf("timeouts = %s/%s, want 5s/3s", cfg.StoreTimeout, cfg.NotifyTimeout)
	}
	if cfg.Location().String() != "Europe/London" {
		t.Errorf("Location = %s", cfg.Location())
	}
	if cfg.TelegramEnabled() || cfg.PushEnabled() || cfg.AdminEnabled() {
		t.Error("optional integrations should be disabled by default")
	}
	if !cfg.BackupEnabled() || cfg.BackupDir != "backups" || cfg.BackupKeep != 14 {
		t.Errorf("backup = %q keep %d, want backups keep 14", cfg.BackupDir, cfg.BackupKeep)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CASTLE_PORT", "9090")
	t.Setenv("CASTLE_TIMEZONE", "America/New_York")
	t.Setenv("CASTLE_STORE_TIMEOUT", "10s")
	t.Setenv("CASTLE_NOTIFY_TIMEOUT", "2s")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.StoreTimeout != 10*time.Second || cfg.NotifyTimeout != 2*time.Second {
		t.Errorf("timeouts = %s/%s", cfg.StoreTimeout, cfg.NotifyTimeout)
	}
	if cfg.Location().String() != "America/New_York" {
		t.Errorf("Location = %s", cfg.Location())
	}
	if !cfg.TelegramEnabled() {
		t.Error("expected Telegram enabled")
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "CASTLE_DB_PATH=/var/lib/castle/castle.db\nCASTLE_LOG_FORMAT=json\nCASTLE_PORT=7000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("CASTLE_PORT", "7100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/var/lib/castle/castle.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q", cfg.LogFormat)
	}
	if cfg.Port != 7100 {
		t.Errorf("Port = %d, environment should override the file", cfg.Port)
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Errorf("missing env file should be ignored: %v", err)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad port", map[string]string{"CASTLE_PORT": "-1"}, "CASTLE_PORT"},
		{"bad timezone", map[string]string{"CASTLE_TIMEZONE": "Mars/Olympus"}, "CASTLE_TIMEZONE"},
		{"notify not shorter", map[string]string{"CASTLE_STORE_TIMEOUT": "2s", "CASTLE_NOTIFY_TIMEOUT": "2s"}, "CASTLE_NOTIFY_TIMEOUT"},
		{"half vapid", map[string]string{"VAPID_PUBLIC_KEY": "pub"}, "VAPID"},
		{"telegram without chat", map[string]string{"TELEGRAM_BOT_TOKEN": "123:abc"}, "TELEGRAM_CHAT_ID"},
		{"negative backup keep", map[string]string{"CASTLE_BACKUP_KEEP": "-1"}, "CASTLE_BACKUP_KEEP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %s", err, tt.wantErr)
			}
		})
	}
}
