// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config описывает настройки add-on, моста и общего клиента.
type Config struct {
	Language        string `yaml:"language"`
	EndpointCountry string `yaml:"endpoint_country"`

	Logging     LoggingConfig     `yaml:"logging"`
	Shazam      ShazamConfig      `yaml:"shazam"`
	Addon       AddonConfig       `yaml:"addon"`
	Integration IntegrationConfig `yaml:"integration"`
	Redis       RedisConfig       `yaml:"redis"`
	PubSub      PubSubConfig      `yaml:"pubsub"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	MinIO       MinIOConfig       `yaml:"minio"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type LoggingConfig struct {
	ProjectID string `yaml:"project_id"`
	Name      string `yaml:"name"`
}

// ShazamConfig - параметры клиента распознавания.
type ShazamConfig struct {
	SignerCommand []string `yaml:"signer_command"` // внешний генератор сигнатур, путь к файлу добавляется последним аргументом
	Concurrency   int      `yaml:"concurrency"`
	Retries       int      `yaml:"retries"`
	Timezone      string   `yaml:"timezone"`
}

type AddonConfig struct {
	Listen     string        `yaml:"listen"`
	URL        string        `yaml:"url"` // адрес add-on для режима прокси
	Timeout    time.Duration `yaml:"timeout"`
	RateLimit  int           `yaml:"rate_limit"` // 0 - без ограничения
	RateWindow time.Duration `yaml:"rate_window"`
}

// IntegrationConfig управляет формой прямого вызова.
type IntegrationConfig struct {
	Mode       string `yaml:"mode"` // "local" или "addon"
	FailSilent bool   `yaml:"fail_silent"`
	EventType  string `yaml:"event_type"`
}

type RedisConfig struct {
	Address   string `yaml:"address"`
	StatesKey string `yaml:"states_key"`
	Channel   string `yaml:"channel"`
}

type PubSubConfig struct {
	ProjectID        string `yaml:"project_id"`
	CallSubscription string `yaml:"call_subscription"`
	EventTopic       string `yaml:"event_topic"`
	Workers          int    `yaml:"workers"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
}

type TelegramConfig struct {
	Token      string        `yaml:"token"`
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Default возвращает конфигурацию со значениями по умолчанию.
func Default() *Config {
	return &Config{
		Language:        "en-US",
		EndpointCountry: "GB",
		Logging:         LoggingConfig{Name: "shazamio"},
		Shazam:          ShazamConfig{Concurrency: 5, Timezone: "Europe/London"},
		Addon: AddonConfig{
			Listen:     ":8099",
			URL:        "http://localhost:8099/api",
			Timeout:    60 * time.Second,
			RateWindow: time.Minute,
		},
		Integration: IntegrationConfig{
			Mode:       "local",
			FailSilent: true,
			EventType:  "ha_shazamio_response",
		},
		Redis:    RedisConfig{StatesKey: "ha_shazamio:states", Channel: "ha_shazamio_response"},
		PubSub:   PubSubConfig{Workers: 5},
		MQTT:     MQTTConfig{Prefix: "ha_shazamio"},
		Telegram: TelegramConfig{RateLimit: 3, RateWindow: 5 * time.Second},
	}
}

// Load читает .env, затем YAML-файл (если задан) и применяет переменные окружения.
func Load(path string) (*Config, error) {
	// .env необязателен
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("чтение .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&c.Language, "SHAZAMIO_LANGUAGE")
	setString(&c.EndpointCountry, "SHAZAMIO_ENDPOINT_COUNTRY")
	setString(&c.Logging.ProjectID, "GOOGLE_CLOUD_PROJECT")
	setString(&c.PubSub.ProjectID, "GOOGLE_CLOUD_PROJECT")
	setString(&c.Redis.Address, "REDIS_ADDRESS")
	setString(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setString(&c.Shazam.Timezone, "SHAZAMIO_TIMEZONE")
	setString(&c.Addon.URL, "SHAZAMIO_ADDON_URL")
	setString(&c.Integration.Mode, "SHAZAMIO_MODE")
	setString(&c.MQTT.Broker, "SHAZAMIO_MQTT_BROKER")
	setString(&c.MQTT.Username, "SHAZAMIO_MQTT_USERNAME")
	setString(&c.MQTT.Password, "SHAZAMIO_MQTT_PASSWORD")
	setString(&c.MinIO.Endpoint, "MINIO_ENDPOINT")
	setString(&c.MinIO.AccessKeyID, "MINIO_ACCESS_KEY_ID")
	setString(&c.MinIO.SecretAccessKey, "MINIO_SECRET_ACCESS_KEY")

	if port := strings.TrimSpace(getenv("PORT")); port != "" {
		c.Addon.Listen = ":" + port
	}
	if cmd := strings.TrimSpace(getenv("SHAZAMIO_SIGNER_COMMAND")); cmd != "" {
		c.Shazam.SignerCommand = strings.Fields(cmd)
	}
	if v := strings.TrimSpace(getenv("SHAZAMIO_FAIL_SILENT")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SHAZAMIO_FAIL_SILENT: %w", err)
		}
		c.Integration.FailSilent = b
	}
	if v := strings.TrimSpace(getenv("SHAZAMIO_ADDON_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SHAZAMIO_ADDON_TIMEOUT: %w", err)
		}
		c.Addon.Timeout = d
	}
	return nil
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	switch c.Integration.Mode {
	case "local", "addon":
	default:
		return fmt.Errorf("integration.mode должен быть local или addon, получено %q", c.Integration.Mode)
	}
	if c.Addon.Timeout <= 0 {
		return fmt.Errorf("addon.timeout должен быть положительным")
	}
	if c.Shazam.Concurrency <= 0 {
		c.Shazam.Concurrency = 1
	}
	if c.PubSub.Workers <= 0 {
		c.PubSub.Workers = 1
	}
	return nil
}
