package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/username/fintrack/backend/src/config"
	"github.com/username/fintrack/backend/src/database"
	"github.com/username/fintrack/backend/src/handlers"
	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/models"
	"github.com/username/fintrack/backend/src/services"
	"github.com/username/fintrack/backend/src/simplefin"
	"github.com/username/fintrack/backend/src/store"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// runSyncScheduler drives the background cadence: quick balance refreshes on
// the short interval, full transaction syncs on the long one.
func runSyncScheduler(syncService *services.SyncService) {
	quickTicker := time.NewTicker(config.Cfg.QuickSyncInterval)
	fullTicker := time.NewTicker(config.Cfg.FullSyncInterval)
	defer quickTicker.Stop()
	defer fullTicker.Stop()

	for {
		select {
		case <-quickTicker.C:
			logger.L.Info("Scheduled quick sync starting")
			syncService.SyncAll(context.Background(), services.SyncQuick)
		case <-fullTicker.C:
			logger.L.Info("Scheduled full sync starting")
			syncService.SyncAll(context.Background(), services.SyncFull)
		}
	}
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Fintrack backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	appCache := cache.New(5*time.Minute, 10*time.Minute)
	categoryCfg := models.NewCategoryConfig()
	ledgerStore := store.New(database.DB)
	aggregatorClient := simplefin.NewClient()

	ruleService := services.NewRuleService(ledgerStore, categoryCfg, appCache)
	netWorthService := services.NewNetWorthService(ledgerStore)
	syncService := services.NewSyncService(
		ledgerStore, aggregatorClient, ruleService, netWorthService, categoryCfg,
		services.SyncConfig{
			QuickTimeout:          config.Cfg.QuickSyncTimeout,
			FullTimeout:           config.Cfg.FullSyncTimeout,
			FullWindowDays:        config.Cfg.FullSyncWindowDays,
			IncrementalBufferDays: config.Cfg.IncrementalBufferDays,
		},
	)
	duplicateService := services.NewDuplicateService(ledgerStore, services.DuplicateConfig{
		LookbackDays:   config.Cfg.DuplicateLookbackDays,
		DateWindowDays: config.Cfg.DuplicateDateWindowDays,
	})
	subscriptionService := services.NewSubscriptionService(ledgerStore, services.SubscriptionConfig{
		LookbackDays:       config.Cfg.SubscriptionLookbackDays,
		AnnualLookbackDays: config.Cfg.AnnualDetectionLookbackDays,
		MinOccurrences:     config.Cfg.SubscriptionMinOccurrences,
		AmountTolerancePct: config.Cfg.AmountTolerancePct,
		AmountToleranceAbs: config.Cfg.AmountToleranceAbs,
		IntervalBandPct:    config.Cfg.CycleIntervalBandPct,
	}, appCache)
	transactionService := services.NewTransactionService(ledgerStore)

	institutionHandler := handlers.NewInstitutionHandler(syncService, ledgerStore)
	accountHandler := handlers.NewAccountHandler(ledgerStore)
	transactionHandler := handlers.NewTransactionHandler(transactionService, ruleService)
	ruleHandler := handlers.NewRuleHandler(ruleService)
	duplicateHandler := handlers.NewDuplicateHandler(duplicateService)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)
	netWorthHandler := handlers.NewNetWorthHandler(netWorthService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Fintrack Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/institutions/claim", institutionHandler.HandleConnect)
		r.Get("/institutions", institutionHandler.HandleList)
		r.Get("/institutions/{id}", institutionHandler.HandleGet)
		r.Delete("/institutions/{id}", institutionHandler.HandleDelete)
		r.Post("/institutions/{id}/sync", institutionHandler.HandleSync)
		r.Post("/sync", institutionHandler.HandleSyncAll)

		r.Get("/accounts", accountHandler.HandleList)
		r.Put("/accounts/{id}", accountHandler.HandleUpdate)
		r.Delete("/accounts/{id}", accountHandler.HandleRemove)

		r.Get("/transactions", transactionHandler.HandleList)
		r.Put("/transactions/{id}/category", transactionHandler.HandleSetCategory)
		r.Put("/transactions/{id}/exclude", transactionHandler.HandleSetExcluded)
		r.Put("/transactions/{id}/notes", transactionHandler.HandleSetNotes)
		r.Post("/transactions/{id}/split", transactionHandler.HandleSplit)
		r.Post("/transactions/recategorize", transactionHandler.HandleRecategorize)

		r.Get("/rules", ruleHandler.HandleList)
		r.Post("/rules", ruleHandler.HandleCreate)
		r.Put("/rules/{id}", ruleHandler.HandleUpdate)
		r.Delete("/rules/{id}", ruleHandler.HandleDelete)
		r.Post("/rules/{id}/apply", ruleHandler.HandleApply)
		r.Post("/rules/test", ruleHandler.HandleTest)

		r.Get("/duplicates", duplicateHandler.HandleDetect)
		r.Post("/duplicates/{id}/exclude", duplicateHandler.HandleExclude)
		r.Post("/duplicates/{id}/include", duplicateHandler.HandleInclude)
		r.Post("/duplicates/dismiss", duplicateHandler.HandleDismiss)

		r.Get("/subscriptions/detected", subscriptionHandler.HandleDetect)
		r.Get("/subscriptions", subscriptionHandler.HandleList)
		r.Post("/subscriptions/confirm", subscriptionHandler.HandleConfirm)
		r.Post("/subscriptions/dismiss", subscriptionHandler.HandleDismiss)
		r.Put("/subscriptions/{id}", subscriptionHandler.HandleUpdate)
		r.Delete("/subscriptions/{id}", subscriptionHandler.HandleDelete)

		r.Get("/networth", netWorthHandler.HandleHistory)
		r.Post("/networth/backfill", netWorthHandler.HandleBackfill)
	})

	go runSyncScheduler(syncService)

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
