package main

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	alertapi "github.com/lepusmq/lepusmon/internal/alerting/api"
	"github.com/lepusmq/lepusmon/internal/alerting/model"
	"github.com/lepusmq/lepusmon/internal/alerting/service/detector"
	"github.com/lepusmq/lepusmon/internal/alerting/service/lifecycle"
	"github.com/lepusmq/lepusmon/internal/alerting/service/notify"
	"github.com/lepusmq/lepusmon/internal/alerting/service/query"
	"github.com/lepusmq/lepusmon/internal/alerting/service/settings"
	"github.com/lepusmq/lepusmon/internal/alerting/service/source"
	"github.com/lepusmq/lepusmon/internal/alerting/service/threshold"
	"github.com/lepusmq/lepusmon/internal/config"
	"github.com/lepusmq/lepusmon/internal/database"
	"github.com/lepusmq/lepusmon/internal/metrics"
	"github.com/lepusmq/lepusmon/internal/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Info().Msg("Starting lepusmon api server")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// optional Postgres; stores fall back to memory when absent
	var db *database.Database
	if cfg.Database.Host != "" {
		if d, derr := database.New(cfg.Database.DSN()); derr == nil {
			db = d
			defer db.Close()
		} else {
			log.Error().Err(derr).Msg("database init failed; running with in-memory stores")
		}
	}

	// optional Redis for the resolved alert archive
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	defaults := model.DefaultThresholds()
	if path := cfg.Alerting.Defaults.ThresholdsFile; path != "" {
		loaded, lerr := threshold.LoadDefaultsFile(path)
		if lerr != nil {
			log.Fatal().Err(lerr).Str("path", path).Msg("failed to load threshold defaults file")
		}
		defaults = loaded
	}

	var thresholdRepo threshold.Repo = threshold.NewMemoryRepo()
	var settingsRepo settings.Repo = settings.NewMemoryRepo()
	if db != nil {
		thresholdRepo = threshold.NewPgRepo(db)
		settingsRepo = settings.NewPgRepo(db)
	}
	thresholds := threshold.NewStore(thresholdRepo, threshold.AllowAllGate{}).WithDefaults(defaults)
	settingsStore := settings.NewStore(settingsRepo, settings.AllowAllGate{})

	retention := parseDuration(cfg.Alerting.Detector.Retention, lifecycle.DefaultRetention)
	active := lifecycle.NewMemoryActiveStore()
	var resolved lifecycle.ResolvedStore = lifecycle.NewMemoryResolvedStore()
	if rdb != nil {
		resolved = lifecycle.NewRedisResolvedStore(rdb, retention)
	}
	tracker := lifecycle.NewTracker(active, resolved, nil).WithRetention(retention)

	metricsSource := source.NewHTTPSource(source.HTTPConfig{
		BaseURL: cfg.Alerting.Metrics.BaseURL,
		Token:   cfg.Alerting.Metrics.Token,
		Timeout: parseDuration(cfg.Alerting.Metrics.Timeout, 30*time.Second),
	})

	registry := notify.NewRegistry()
	registry.Register(notify.NewSlackTransport(cfg.Alerting.Notify.DashboardBaseURL))
	registry.Register(notify.NewWebhookTransport())
	registry.Register(notify.NewEmailTransport(emailProvider(cfg.Alerting.Notify.Email)))
	dispatcher := notify.NewDispatcher(registry, notify.RetryConfig{
		MaxRetries:     cfg.Alerting.Notify.MaxRetries,
		BaseDelay:      parseDuration(cfg.Alerting.Notify.BaseDelay, 500*time.Millisecond),
		AttemptTimeout: parseDuration(cfg.Alerting.Notify.AttemptTimeout, 10*time.Second),
	}, nil)

	servers := make(detector.StaticRegistry, 0, len(cfg.Alerting.Servers))
	for _, s := range cfg.Alerting.Servers {
		servers = append(servers, detector.Server{ID: s.ID, Name: s.Name, WorkspaceID: s.WorkspaceID})
	}
	go detector.StartScheduler(ctx, detector.Deps{
		Registry:   servers,
		Source:     metricsSource,
		Thresholds: thresholds,
		Tracker:    tracker,
		Settings:   settingsStore,
		Dispatcher: dispatcher,
		Interval:   parseDuration(cfg.Alerting.Detector.Interval, 30*time.Second),
	})

	queries := query.NewService(active, resolved, thresholds, metricsSource, nil, nil)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.Use(middleware.Authentication)
	alertapi.NewApi(router, queries, thresholds, settingsStore)

	log.Info().Msgf("Starting server on %s", cfg.Server.BindAddr)
	if err := router.Run(cfg.Server.BindAddr); err != nil {
		log.Fatal().Err(err).Msg("start lepusmon api server failed.")
	}
	log.Info().Msg("lepusmon api server exit...")
}

func emailProvider(cfg config.Email) notify.EmailProvider {
	switch strings.ToLower(cfg.Provider) {
	case "resend":
		return notify.NewResendProvider(cfg.ResendAPIKey, cfg.From)
	default:
		return &notify.SMTPProvider{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPassword,
			From: cfg.From,
		}
	}
}

func parseDuration(s string, d time.Duration) time.Duration {
	if s == "" {
		return d
	}
	if v, err := time.ParseDuration(s); err == nil {
		return v
	}
	return d
}
