package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"

	apihttp "audiocast/internal/api/http"
	"audiocast/internal/app"
	"audiocast/internal/cache"
	"audiocast/internal/metrics"
	"audiocast/internal/mirror"
	"audiocast/internal/provider/dab"
	"audiocast/internal/provider/deezer"
	"audiocast/internal/provider/link"
	"audiocast/internal/provider/tidal"
	"audiocast/internal/proxy"
	mongorepo "audiocast/internal/repository/mongo"
	"audiocast/internal/resolver"
	"audiocast/internal/tagger"
	"audiocast/internal/telemetry"
	"audiocast/internal/transcode"
	"audiocast/internal/usecase"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "audiocast")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "audiocast"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("cacheDir", cfg.CacheDir),
		slog.Int64("cacheTTLHours", cfg.CacheTTLHours),
		slog.Int64("maxCacheSizeMB", cfg.MaxCacheSizeMB),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	encoder := transcode.NewEncoder(cfg.FFMPEGPath, cfg.TranscodeWorkers, logger)
	if err := encoder.Check(); err != nil {
		logger.Error("encoder check failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, err := cache.New(cfg.CacheDir, logger)
	if err != nil {
		logger.Error("cache init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Mongo is auxiliary (metadata, play history): start without it when
	// unreachable instead of refusing to serve audio.
	var metaRepo *mongorepo.MetadataRepository
	var historyRepo *mongorepo.PlayHistoryRepository
	var mongoDisconnect func()
	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
		mongoClient, err := mongorepo.Connect(ctx, cfg.MongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
		if err == nil {
			err = mongoClient.Ping(ctx, readpref.Primary())
		}
		cancel()
		if err != nil {
			logger.Warn("mongo unavailable, metadata and history disabled", slog.String("error", err.Error()))
		} else {
			metaRepo = mongorepo.NewMetadataRepository(mongoClient, cfg.MongoDatabase)
			historyRepo = mongorepo.NewPlayHistoryRepository(mongoClient, cfg.MongoDatabase)
			if err := historyRepo.EnsureIndexes(rootCtx); err != nil {
				logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
			}
			mongoDisconnect = func() {
				if err := mongoClient.Disconnect(context.Background()); err != nil {
					logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
				}
			}
		}
	}

	mirrorCfg, err := app.LoadMirrors(cfg.MirrorsFile)
	if err != nil {
		logger.Warn("mirror file load failed, using defaults", slog.String("error", err.Error()))
	}
	selector := mirror.NewSelector(mirrorCfg.Providers, logger)

	tidalFeed := cfg.MirrorHealthFeedURL
	if feed := mirrorCfg.HealthFeeds[tidal.ProviderName]; feed != "" {
		tidalFeed = feed
	}
	tidalClient := tidal.New(tidal.Config{
		ClientID:      cfg.TidalClientID,
		ClientSecret:  cfg.TidalClientSecret,
		HealthFeedURL: tidalFeed,
	}, selector, logger)
	dabClient := dab.New(dab.Config{
		SessionToken: cfg.DabSession,
		VisitorID:    cfg.DabVisitorID,
	}, logger)
	deezerClient := deezer.New(deezer.Config{GatewayURL: cfg.DeezerGatewayURL}, logger)
	linkClient := link.New(cfg.YTDLPPath, logger)

	// Fixed fallback order: hi-res first, then the mirrored lossless
	// sources, then the public gateway.
	origins := []resolver.Origin{dabClient, tidalClient, deezerClient}
	if !dabClient.Enabled() {
		logger.Warn("dab session not configured, hi-res source disabled")
		origins = []resolver.Origin{tidalClient, deezerClient}
	}
	res := resolver.New(logger, linkClient, origins...)

	fetcher := usecase.NewHTTPFetcher()
	tagWriter := tagger.New(logger)

	streamUC := &usecase.StreamTrack{
		Resolver: res,
		Cache:    store,
		Encoder:  encoder,
		Fetcher:  fetcher,
		Logger:   logger,
	}
	downloadUC := &usecase.DownloadTrack{
		Resolver: res,
		Cache:    store,
		Encoder:  encoder,
		Fetcher:  fetcher,
		Tagger:   tagWriter,
		Logger:   logger,
	}
	if metaRepo != nil {
		streamUC.Metadata = metaRepo
		downloadUC.Metadata = metaRepo
	}
	if historyRepo != nil {
		streamUC.History = historyRepo
	}
	batchUC := &usecase.BatchDownload{Download: downloadUC, Logger: logger}

	sweepUC := &usecase.SweepCache{
		Cache:         store,
		TTL:           time.Duration(cfg.CacheTTLHours) * time.Hour,
		MaxTotalBytes: cfg.MaxCacheSizeMB << 20,
		Interval:      time.Duration(cfg.CacheSweepMinutes) * time.Minute,
		Logger:        logger,
	}
	go sweepUC.Run(rootCtx)

	serverOpts := []apihttp.ServerOption{
		apihttp.WithLogger(logger),
		apihttp.WithDownload(downloadUC),
		apihttp.WithBatchDownload(batchUC),
		apihttp.WithProxy(proxy.New(logger)),
		apihttp.WithAllowedOrigins(cfg.CORSAllowedOrigins),
	}
	if historyRepo != nil {
		serverOpts = append(serverOpts, apihttp.WithPlayHistory(historyRepo))
	}
	handler := apihttp.NewServer(streamUC, serverOpts...)

	go broadcastStats(rootCtx, handler, store)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	handler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	if mongoDisconnect != nil {
		mongoDisconnect()
	}

	logger.Info("server stopped")
}

type cacheStats struct {
	Entries    int   `json:"entries"`
	TotalBytes int64 `json:"totalBytes"`
}

// broadcastStats pushes cache stats to WebSocket clients on a fixed tick.
func broadcastStats(ctx context.Context, handler *apihttp.Server, store *cache.Store) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			handler.BroadcastStats(cacheStats{
				Entries:    store.EntryCount(),
				TotalBytes: store.TotalSize(),
			})
		}
	}
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
