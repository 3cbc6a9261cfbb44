package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Language != "en-US" || cfg.EndpointCountry != "GB" {
		t.Errorf("Ожидались en-US/GB, получено %s/%s", cfg.Language, cfg.EndpointCountry)
	}
	if cfg.Addon.Timeout != 60*time.Second {
		t.Errorf("Ожидался таймаут 60s, получено %v", cfg.Addon.Timeout)
	}
	if !cfg.Integration.FailSilent {
		t.Errorf("fail_silent по умолчанию должен быть включен")
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlData := `
language: de-DE
integration:
  mode: addon
addon:
  timeout: 30s
logging:
  name: ha-shazam
`
	if err := os.WriteFile(path, []byte(yamlData), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHAZAMIO_FAIL_SILENT", "false")
	t.Setenv("PORT", "9000")
	t.Setenv("SHAZAMIO_TIMEZONE", "Europe/Berlin")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Ошибка загрузки: %v", err)
	}
	if cfg.Language != "de-DE" {
		t.Errorf("Ожидался язык de-DE, получено %s", cfg.Language)
	}
	if cfg.EndpointCountry != "GB" {
		t.Errorf("Значение по умолчанию endpoint_country потеряно: %s", cfg.EndpointCountry)
	}
	if cfg.Integration.Mode != "addon" || cfg.Addon.Timeout != 30*time.Second {
		t.Errorf("YAML не применен: %+v %+v", cfg.Integration, cfg.Addon)
	}
	if cfg.Integration.FailSilent {
		t.Errorf("SHAZAMIO_FAIL_SILENT=false не применен")
	}
	if cfg.Addon.Listen != ":9000" {
		t.Errorf("Ожидался адрес :9000, получено %s", cfg.Addon.Listen)
	}
	if cfg.Logging.Name != "ha-shazam" || cfg.Shazam.Timezone != "Europe/Berlin" {
		t.Errorf("Неверные logging.name/shazam.timezone: %s/%s", cfg.Logging.Name, cfg.Shazam.Timezone)
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Default()
	cfg.Integration.Mode = "remote"
	if err := cfg.Validate(); err == nil {
		t.Errorf("Ожидалась ошибка для неизвестного режима")
	}
}
