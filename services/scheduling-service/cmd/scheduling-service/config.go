package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/callbook/libs/config"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/availability"
)

type serviceConfig struct {
	Service  string
	Port     string
	LogLevel string

	CalendarBaseURL string
	CalendarToken   string
	CalendarTimeout time.Duration
	SlotMinutes     int

	DefaultZone   *time.Location
	DefaultRegion string

	RedisAddr         string
	EventTypeCacheTTL time.Duration
	RateLimitPerMin   int

	AgentJWTSecret  string
	AgentAPIKeyHash string

	SMSMode         string
	SMSWebhookURL   string
	SMSWebhookToken string
	KafkaBrokers    string
	SMSTopic        string

	DatabaseURL string
}

func loadConfig() (serviceConfig, error) {
	var (
		cfg serviceConfig
		err error
	)
	cfg.Service = config.String("SERVICE_NAME", "scheduling-service")
	if cfg.Port, err = config.Port("PORT", "8090"); err != nil {
		return cfg, err
	}
	cfg.LogLevel = config.String("LOG_LEVEL", "info")

	cfg.CalendarBaseURL = config.String("CALENDAR_API_BASE_URL", "https://api.calendly.com")
	cfg.CalendarToken = config.String("CALENDAR_API_TOKEN", "")
	if cfg.CalendarTimeout, err = config.Duration("CALENDAR_TIMEOUT", 10*time.Second); err != nil {
		return cfg, err
	}
	if cfg.SlotMinutes, err = config.Int("SLOT_MINUTES", 30); err != nil {
		return cfg, err
	}
	if cfg.SlotMinutes <= 0 || cfg.SlotMinutes > availability.MaxSlotMinutes {
		return cfg, fmt.Errorf("SLOT_MINUTES must be between 1 and %d", availability.MaxSlotMinutes)
	}

	if cfg.DefaultZone, err = config.Location("DEFAULT_TIMEZONE", "UTC"); err != nil {
		return cfg, err
	}
	cfg.DefaultRegion = strings.ToUpper(config.String("DEFAULT_PHONE_REGION", "US"))

	cfg.RedisAddr = config.String("REDIS_ADDR", "")
	if cfg.EventTypeCacheTTL, err = config.Duration("EVENT_TYPE_CACHE_TTL", 10*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.RateLimitPerMin, err = config.Int("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return cfg, err
	}

	cfg.AgentJWTSecret = config.String("AGENT_JWT_SECRET", "")
	cfg.AgentAPIKeyHash = config.String("AGENT_API_KEY_HASH", "")

	cfg.SMSMode = strings.ToLower(config.String("SMS_MODE", "noop"))
	switch cfg.SMSMode {
	case "noop", "webhook", "kafka":
	default:
		return cfg, fmt.Errorf("SMS_MODE must be one of noop, webhook, kafka (got %q)", cfg.SMSMode)
	}
	cfg.SMSWebhookURL = config.String("SMS_WEBHOOK_URL", "")
	cfg.SMSWebhookToken = config.String("SMS_WEBHOOK_TOKEN", "")
	cfg.KafkaBrokers = config.String("KAFKA_BROKERS", "")
	cfg.SMSTopic = config.String("SMS_TOPIC", "notification.sms.requested.v1")
	if cfg.SMSMode == "webhook" && cfg.SMSWebhookURL == "" {
		return cfg, fmt.Errorf("SMS_WEBHOOK_URL is required when SMS_MODE=webhook")
	}
	if cfg.SMSMode == "kafka" && cfg.KafkaBrokers == "" {
		return cfg, fmt.Errorf("KAFKA_BROKERS is required when SMS_MODE=kafka")
	}

	cfg.DatabaseURL = config.String("DATABASE_URL", "")
	return cfg, nil
}
