package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arbot/internal/api"
	"arbot/internal/config"
	"arbot/internal/detector"
	"arbot/internal/engine"
	"arbot/internal/execution"
	"arbot/internal/exchange"
	"arbot/internal/marketstate"
	"arbot/internal/metrics"
	"arbot/internal/models"
	"arbot/internal/pipeline"
	"arbot/internal/repository"
	"arbot/internal/risk"
	"arbot/internal/service"
	"arbot/internal/websocket"

	_ "github.com/lib/pq"
)

const (
	marketStateShards = 16
	signalQueueDepth  = 256
	executionWorkers  = 4
)

func main() {
	// Загрузка конфигурации
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfgStore := config.NewStore(cfg)
	_ = cfgStore

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Connected to database successfully")

	// Инициализация репозиториев
	exchangeRepo := repository.NewExchangeRepository(db)
	pairRepo := repository.NewPairRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	blacklistRepo := repository.NewBlacklistRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	tradeRepo := repository.NewTradeRepository(db)

	// Инициализация сервисов
	exchangeService := service.NewExchangeService(
		exchangeRepo,
		pairRepo,
		cfg.Security.EncryptionKey,
	)
	pairService := service.NewPairService(pairRepo, exchangeRepo, exchangeService)
	notificationService := service.NewNotificationService(notificationRepo, settingsRepo)
	statsService := service.NewStatsService(statsRepo, pairRepo)
	settingsService := service.NewSettingsService(settingsRepo)
	blacklistService := service.NewBlacklistService(blacklistRepo)

	// WebSocket hub — broadcasts pair/notification/balance/stats updates to
	// every connected dashboard client.
	hub := websocket.NewHub()
	go hub.Run()
	exchangeService.SetWebSocketHub(hub)
	notificationService.SetWebSocketHub(hub)

	// Market state, detectors, risk, and execution: the pipeline that turns
	// order book updates into approved, executed trades.
	store := marketstate.New(marketStateShards)
	fees := detector.NewFeeCache()
	for name, profile := range cfg.Exchange {
		fees.SetFee(name, profile.TakerFeePct/100)
	}

	spatial := detector.NewSpatialDetector(store, fees, cfg.Symbols, cfg.Detector.Spatial, cfg.Risk.MaxPositionPerCoinUSD)
	detectors := []detector.Detector{spatial}
	if cfg.Detector.Triangular.Enabled {
		triangular, err := detector.NewTriangularDetector(store, fees, cfg.Exchanges.Enabled, cfg.Detector.Triangular)
		if err != nil {
			log.Fatalf("Failed to build triangular detector: %v", err)
		}
		detectors = append(detectors, triangular)
	}
	if cfg.Detector.Statistical.Enabled {
		if _, err := detector.NewStatisticalDetector(); err != nil {
			log.Fatalf("Failed to build statistical detector: %v", err)
		}
	}

	notifyChan := make(chan *models.Notification, 64)
	riskMgr := risk.New(cfg.Risk, cfg.System.ExecutionMode, notifyChan)
	riskMgr.AttachMarketStore(store)
	go relayNotifications(notifyChan, notificationService)

	connectedExchanges := loadConnectedExchanges(context.Background(), exchangeService)

	paperExecutor := execution.NewPaperExecutor(store, fees, cfg.Execution)
	liveExecutor := execution.NewLiveExecutor(connectedExchanges, cfg.Execution)
	execMgr := execution.NewManager(models.ExecutionMode(cfg.System.ExecutionMode), paperExecutor, liveExecutor, cfg.Execution)

	queue := pipeline.NewSignalQueue(signalQueueDepth)

	detectInterval := time.Duration(cfg.System.DetectIntervalMs) * time.Millisecond
	if detectInterval <= 0 {
		detectInterval = 200 * time.Millisecond
	}
	botEngine := engine.New(store, detectors, riskMgr, execMgr, queue, tradeRepo, notificationService, hub, detectInterval, executionWorkers)
	pairService.SetEngine(botEngine)

	existingPairs, err := pairRepo.GetAll()
	if err != nil {
		log.Printf("Failed to load pairs at startup: %v", err)
	} else {
		botEngine.LoadPairs(existingPairs)
	}

	engineCtx, stopEngine := context.WithCancel(context.Background())
	go botEngine.Run(engineCtx)
	go pollExchangeBalances(engineCtx, exchangeService)

	// Настройка зависимостей для API
	deps := &api.Dependencies{
		ExchangeService:     exchangeService,
		PairService:         pairService,
		StatsService:        statsService,
		SettingsService:     settingsService,
		NotificationService: notificationService,
		BlacklistService:    blacklistService,
	}

	// Настройка HTTP роутера
	router := api.SetupRoutes(deps)
	router.Handle("/metrics", metrics.Handler())

	// HTTP сервер
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if cfg.Server.UseHTTPS {
			if err := server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Server failed: %v", err)
			}
		} else {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Server failed: %v", err)
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	stopEngine()
	botEngine.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Execution.EmergencyStopSeconds)*time.Second)
	defer cancel()
	if err := execMgr.Stop(ctx, connectedExchanges); err != nil {
		log.Printf("Error during emergency stop: %v", err)
	}

	// Закрываем соединения с биржами
	if err := exchangeService.Close(); err != nil {
		log.Printf("Error closing exchange connections: %v", err)
	}

	hub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// relayNotifications drains the risk manager's notification channel into
// the persistence/broadcast path; it exits once the channel is closed.
func relayNotifications(notifyChan <-chan *models.Notification, notificationService *service.NotificationService) {
	for notif := range notifyChan {
		if err := notificationService.CreateNotification(notif); err != nil {
			log.Printf("Failed to persist risk notification: %v", err)
		}
	}
}

// loadConnectedExchanges builds the live executor's exchange map from
// whatever accounts were left connected across a restart. A failed
// reconnect is logged and that exchange is simply absent from live
// execution's routing table until reconnected via the API.
func loadConnectedExchanges(ctx context.Context, exchangeService *service.ExchangeService) map[string]exchange.Exchange {
	result := make(map[string]exchange.Exchange)
	accounts, err := exchangeService.GetConnectedExchanges()
	if err != nil {
		log.Printf("Failed to list connected exchanges: %v", err)
		return result
	}
	for _, account := range accounts {
		conn, err := exchangeService.GetConnection(ctx, account.Name)
		if err != nil {
			log.Printf("Failed to restore connection to %s: %v", account.Name, err)
			continue
		}
		result[account.Name] = conn
	}
	return result
}

// pollExchangeBalances refreshes every connected exchange's balance and
// publishes it to the metrics gauge on a fixed interval, matching the
// teacher's once-a-minute balance broadcast cadence.
func pollExchangeBalances(ctx context.Context, exchangeService *service.ExchangeService) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			balances := exchangeService.UpdateAllBalances(ctx)
			for name, balance := range balances {
				metrics.UpdateExchangeStatus(name, true, balance)
			}
		}
	}
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := sql.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
