package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port                int    `validate:"min=1,max=65535"`
	LogLevel            string `validate:"oneof=debug info warn error"`
	BotToken            string
	TelegramAPIURL      string `validate:"url"`
	TelegramPollTimeout int    `validate:"min=0,max=50"`
	TelegramSendRate    int    `validate:"min=1"`
	YandexFolderID      string
	YandexModel         string `validate:"required"`
	YandexIAMURL        string `validate:"url"`
	YandexLLMURL        string `validate:"url"`
	ServiceAccountJSON  string
	PhoneDefaultRegion  string `validate:"len=2"`
	PhoneLanguage       string `validate:"required"`
	CallerTimezone      string
	ColumnAliasesFile   string
	SharedTable         bool
	MaxUploadBytes      int64 `validate:"min=1"`
	DatabaseURL         string
	NatsURL             string
	NatsToken           string
	APIToken            string
}

// ServiceAccount is the authorized key of the service account that signs
// IAM token requests.
type ServiceAccount struct {
	ID               string `json:"id" validate:"required"`
	ServiceAccountID string `json:"service_account_id" validate:"required"`
	PrivateKey       string `json:"private_key" validate:"required"`
}

var ErrNoServiceAccount = errors.New("SERVICE_ACCOUNT_JSON is not set")

var validate = validator.New()

// Load reads configuration from the environment and an optional .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:                envInt("CALLHOUR_PORT", 8760),
		LogLevel:            envStr("LOG_LEVEL", "info"),
		BotToken:            envStr("BOT_TOKEN", ""),
		TelegramAPIURL:      envStr("TELEGRAM_API_URL", "https://api.telegram.org"),
		TelegramPollTimeout: envInt("TELEGRAM_POLL_TIMEOUT", 30),
		TelegramSendRate:    envInt("TELEGRAM_SEND_RATE", 20),
		YandexFolderID:      envStr("YANDEX_FOLDER_ID", ""),
		YandexModel:         envStr("YANDEX_MODEL", "yandexgpt/latest"),
		YandexIAMURL:        envStr("YANDEX_IAM_URL", "https://iam.api.cloud.yandex.net/iam/v1/tokens"),
		YandexLLMURL:        envStr("YANDEX_LLM_URL", "https://llm.api.cloud.yandex.net/foundationModels/v1/completion"),
		ServiceAccountJSON:  envStr("SERVICE_ACCOUNT_JSON", ""),
		PhoneDefaultRegion:  envStr("PHONE_DEFAULT_REGION", "RU"),
		PhoneLanguage:       envStr("PHONE_LANGUAGE", "ru"),
		CallerTimezone:      envStr("CALLER_TIMEZONE", "Asia/Yekaterinburg"),
		ColumnAliasesFile:   envStr("COLUMN_ALIASES_FILE", ""),
		SharedTable:         envBool("SHARED_TABLE", false),
		MaxUploadBytes:      int64(envInt("MAX_UPLOAD_BYTES", 20<<20)),
		DatabaseURL:         envStr("DATABASE_URL", ""),
		NatsURL:             envStr("NATS_URL", ""),
		NatsToken:           envStr("NATS_TOKEN", ""),
		APIToken:            envStr("CALLHOUR_API_TOKEN", ""),
	}
}

// Validate checks ranges and formats of the loaded values.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LLMEnabled reports whether enough is configured to call the model.
func (c Config) LLMEnabled() bool {
	return c.YandexFolderID != "" && c.ServiceAccountJSON != ""
}

// ServiceAccount decodes and validates SERVICE_ACCOUNT_JSON.
func (c Config) ServiceAccount() (ServiceAccount, error) {
	if c.ServiceAccountJSON == "" {
		return ServiceAccount{}, ErrNoServiceAccount
	}
	var sa ServiceAccount
	if err := json.Unmarshal([]byte(c.ServiceAccountJSON), &sa); err != nil {
		return ServiceAccount{}, fmt.Errorf("decode service account: %w", err)
	}
	if err := validate.Struct(sa); err != nil {
		return ServiceAccount{}, fmt.Errorf("invalid service account: %w", err)
	}
	return sa, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
