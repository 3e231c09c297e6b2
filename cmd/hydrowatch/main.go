package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rewired-gh/hydrowatch/internal/api"
	"github.com/rewired-gh/hydrowatch/internal/config"
	"github.com/rewired-gh/hydrowatch/internal/genai"
	"github.com/rewired-gh/hydrowatch/internal/hydroapi"
	"github.com/rewired-gh/hydrowatch/internal/logger"
	"github.com/rewired-gh/hydrowatch/internal/models"
	"github.com/rewired-gh/hydrowatch/internal/monitor"
	"github.com/rewired-gh/hydrowatch/internal/storage"
	"github.com/rewired-gh/hydrowatch/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup logging with level support
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	// Initialize storage
	store, err := storage.New(cfg.Storage.MaxReadingsPerReservoir, cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()
	logger.Debug("Storage opened at %s", store.Path())

	// Initialize the generative report tier
	var generator genai.Generator
	if cfg.GenAI.Enabled {
		g, err := genai.NewOpenAIGenerator(cfg.GenAI.APIKey, cfg.GenAI.BaseURL, cfg.GenAI.Model)
		if err != nil {
			logger.Fatal("Failed to initialize generative tier: %v", err)
		}
		generator = g
		logger.Info("Generative report tier enabled (model: %s)", cfg.GenAI.Model)
	} else {
		logger.Debug("Generative report tier disabled")
	}

	// Initialize access layer
	params := cfg.FallbackParams()
	access := hydroapi.NewClient(cfg.Access.BaseURL, hydroapi.Options{
		Timeouts:  cfg.AccessTimeouts(),
		Params:    &params,
		Seed:      cfg.Fallback.Seed,
		Generator: generator,
	})
	if cfg.Access.BaseURL == "" {
		logger.Warn("No backend base URL configured, running in offline mode")
	}
	defer access.Wait()

	// Initialize monitor
	reservoirs, err := cfg.ReservoirList()
	if err != nil {
		logger.Fatal("Failed to load reservoirs: %v", err)
	}
	mon := monitor.New(access, store, reservoirs, monitor.Options{
		HistorySize: cfg.Monitor.HistorySize,
		Concurrency: cfg.Monitor.Concurrency,
		Season:      cfg.SeasonOverride(),
	})

	// Initialize Telegram client
	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	// Start HTTP facade
	if cfg.Server.Enabled {
		if cfg.Logging.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		server := &http.Server{
			Addr:              cfg.Server.ListenAddr,
			Handler:           api.NewRouter(api.NewHandler(mon, access, store)),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP facade listening on %s", cfg.Server.ListenAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP facade stopped: %v", err)
				cancel()
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Failed to shut down HTTP facade: %v", err)
			}
		}()
	}

	// Start monitoring loop
	logger.Info("Starting monitoring service (interval: %v, reservoirs: %d, concurrency: %d, alert_cooldown: %v)",
		cfg.Monitor.PollInterval,
		len(reservoirs),
		cfg.Monitor.Concurrency,
		cfg.Monitor.AlertCooldown,
	)

	ticker := time.NewTicker(cfg.Monitor.PollInterval)
	defer ticker.Stop()

	outageCycles := 0

	handleCycleResult := func(assessments []*models.Assessment, err error) {
		if err != nil {
			logger.Error("Monitoring cycle failed: %v", err)
			return
		}

		kind, down := backendOutage(assessments)
		if down {
			outageCycles++
			logger.Warn("Analysis backend unavailable for %d consecutive cycles (%s)", outageCycles, kind)
			if outageCycles == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendOutage(kind, len(assessments)); sendErr != nil {
					logger.Warn("Failed to send outage notification to Telegram: %v", sendErr)
				}
			}
			return
		}

		if outageCycles > 0 && telegramClient != nil {
			if sendErr := telegramClient.SendRecovery(outageCycles); sendErr != nil {
				logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
			}
		}
		outageCycles = 0
	}

	// Run initial cycle immediately
	logger.Debug("Running initial monitoring cycle")
	handleCycleResult(runMonitoringCycle(ctx, mon, telegramClient, cfg))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled monitoring cycle")
			handleCycleResult(runMonitoringCycle(ctx, mon, telegramClient, cfg))

			// Rotate old data
			removed, err := store.RotateReadings()
			if err != nil {
				logger.Warn("Failed to rotate readings: %v", err)
			} else if removed > 0 {
				logger.Debug("Rotated %d old readings", removed)
			}
		}
	}
}

func runMonitoringCycle(
	ctx context.Context,
	mon *monitor.Monitor,
	telegramClient *telegram.Client,
	cfg *config.Config,
) ([]*models.Assessment, error) {
	startTime := time.Now()
	logger.Info("Starting monitoring cycle")

	assessments, err := mon.RunCycle(ctx)
	if err != nil {
		return nil, err
	}

	// Suppress reservoirs already alerted at this level within the cooldown
	alerts := mon.FilterAlerts(assessments, cfg.Monitor.AlertCooldown)

	if len(alerts) > 0 {
		logger.Info("%d reservoirs at High or Critical risk", len(alerts))

		if telegramClient != nil {
			logger.Debug("Sending %d alerts to Telegram", len(alerts))
			if err := telegramClient.Send(alerts); err != nil {
				logger.Error("Failed to send Telegram notification: %v", err)
			} else {
				logger.Info("Sent Telegram notification for %d reservoirs", len(alerts))
				mon.RecordNotified(alerts)
			}
		} else {
			logger.Debug("Alerts raised but Telegram notifications disabled")
		}
	} else {
		logger.Info("No new risk alerts this cycle")
	}

	duration := time.Since(startTime)
	logger.Info("Monitoring cycle completed in %v", duration)

	return assessments, nil
}

// backendOutage reports whether no reservoir reading came from the backend,
// along with the failure kind of the first one.
func backendOutage(assessments []*models.Assessment) (models.FailureKind, bool) {
	if len(assessments) == 0 {
		return models.FailureNone, false
	}
	for _, a := range assessments {
		if a.Reading.Source == models.SourceRemote {
			return models.FailureNone, false
		}
	}
	return assessments[0].Reading.Failure, true
}
