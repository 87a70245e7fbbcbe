package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/md-rashed-zaman/callbook/libs/db"
	"github.com/md-rashed-zaman/callbook/libs/httpx"
	"github.com/md-rashed-zaman/callbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/callbook/libs/otel"
	"github.com/md-rashed-zaman/callbook/libs/runtime"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/calendar"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/handlers"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/notify"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/scheduling"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/sms"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/callbook/services/scheduling-service/internal/timectx"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var version = "dev"

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := runtime.NewLogger(cfg.Service, cfg.LogLevel)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.Service, version))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var checks []runtime.ReadyCheck

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	if cfg.CalendarToken == "" {
		logger.Warn("CALENDAR_API_TOKEN is not set; availability requests will fail with 503")
	}
	client := calendar.NewClient(calendar.Config{
		BaseURL: cfg.CalendarBaseURL,
		Token:   cfg.CalendarToken,
		Timeout: cfg.CalendarTimeout,
	})
	var eventTypes calendar.EventTypeSource = client
	if rdb != nil {
		eventTypes = calendar.NewCachedEventTypes(client, rdb, cfg.EventTypeCacheTTL, logger)
	}

	resolver := timectx.NewResolver(timectx.Config{
		Fallback: cfg.DefaultZone,
		Region:   cfg.DefaultRegion,
	})
	svc := scheduling.NewService(resolver, client, eventTypes, logger, scheduling.Config{SlotMinutes: cfg.SlotMinutes})

	var dispatchLog notify.DispatchLog
	if cfg.DatabaseURL != "" {
		pool, err := db.Open(ctx, cfg.DatabaseURL, db.PoolOptions{})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		dispatchLog = storage.NewDispatchRepository(pool)
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	}

	var sender sms.Sender
	switch cfg.SMSMode {
	case "webhook":
		sender = sms.NewWebhookSender(cfg.SMSWebhookURL, cfg.SMSWebhookToken)
	case "kafka":
		w, err := kafkax.NewWriter(cfg.KafkaBrokers, cfg.SMSTopic)
		if err != nil {
			logger.Error("kafka writer init failed", "err", err)
			os.Exit(1)
		}
		defer func() { _ = w.Close() }()
		sender = sms.NewKafkaSender(w)
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
	default:
		sender = sms.NewNoopSender()
	}
	dispatcher := notify.NewDispatcher(sender, dispatchLog, cfg.DefaultRegion, logger)

	var limiter httpx.Limiter = httpx.NewMemoryLimiter(cfg.RateLimitPerMin, time.Minute)
	if rdb != nil {
		limiter = httpx.NewRedisLimiter(rdb, cfg.RateLimitPerMin, time.Minute, "callbook:rl")
	}

	if cfg.AgentJWTSecret == "" && cfg.AgentAPIKeyHash == "" {
		logger.Warn("agent auth disabled; set AGENT_JWT_SECRET or AGENT_API_KEY_HASH")
	}

	mux := runtime.NewBaseMux(checks...)
	mux.Handle("/api/", newAPIHandler(svc, client, dispatcher, logger, cfg))

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.RateLimit(limiter, httpx.ClientKey, logger, true),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := runtime.Serve(ctx, srv, logger, 10*time.Second); err != nil {
		os.Exit(1)
	}
}

// newAPIHandler guards each route group with its agent scope.
func newAPIHandler(svc handlers.Scheduler, eventTypes handlers.EventTypeLister, links handlers.LinkSender, logger *slog.Logger, cfg serviceConfig) http.Handler {
	routes := http.NewServeMux()
	handlers.NewSchedulingHandler(svc, eventTypes, links, logger).Register(routes)

	api := http.NewServeMux()
	api.Handle("/api/v1/booking-link/", requireAgent(routes, scopeSMS, cfg.AgentJWTSecret, cfg.AgentAPIKeyHash))
	api.Handle("/api/v1/", requireAgent(routes, scopeAvailability, cfg.AgentJWTSecret, cfg.AgentAPIKeyHash))
	return httpx.Chain(api,
		httpx.WithBodyLimit(64<<10),
		httpx.WithTimeout(cfg.CalendarTimeout+5*time.Second),
	)
}
