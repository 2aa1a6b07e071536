package main

import (
	"context"
	"log"
	"time"

	"tern/internal/domain/account"
	"tern/internal/domain/budget"
	"tern/internal/domain/notification"
	"tern/internal/domain/sync"
	"tern/internal/infrastructure/aggregator"
	"tern/internal/infrastructure/anthropic"
	"tern/internal/infrastructure/crypto"
	"tern/internal/infrastructure/firebase"
	"tern/internal/infrastructure/postgres"
	httphandlers "tern/internal/interfaces/http"
	"tern/internal/shared/cache"
	"tern/internal/shared/config"
)

// reportTokenTTL bounds how long a generated sync report stays downloadable.
const reportTokenTTL = 15 * time.Minute

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB      *postgres.DB
	Reports *cache.TokenCache

	// Handlers
	SyncHandler   *httphandlers.SyncHandler
	BudgetHandler *httphandlers.BudgetHandler

	// For the scheduler job provider and admin triggers
	Syncer      *sync.ConnectionSyncer
	BatchDriver *sync.BatchDriver
	JobProvider *sync.JobProvider
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		return nil, err
	}

	// Repositories
	connectionRepo := postgres.NewConnectionRepository(db, encryptor)
	accountRepo := postgres.NewAccountRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	holdingRepo := postgres.NewHoldingRepository(db)
	syncStateRepo := postgres.NewSyncStateRepository(db)
	budgetRepo := postgres.NewBudgetRepository(db)
	deviceTokenRepo := postgres.NewDeviceTokenRepository(db)

	// Aggregator client for the configured environment
	aggClient := aggregator.NewClient(cfg.Aggregator.Environment)

	// Notifications are optional: without Firebase credentials syncs still
	// run, they just stay silent.
	var notifications *notification.Service
	if cfg.Firebase.CredentialsFile != "" {
		fcmClient, err := firebase.NewClient(ctx, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.Printf("Warning: Firebase disabled: %v", err)
		} else {
			notifications = notification.NewService(deviceTokenRepo, fcmClient)
			log.Println("Firebase messaging initialized")
		}
	}

	// Categorization is optional the same way.
	var budgetService *budget.Service
	var trigger sync.CategorizationTrigger
	if cfg.AI.APIKey != "" {
		categorizer := anthropic.NewCategorizer(cfg.AI.APIKey, cfg.AI.Model)
		budgetService = budget.NewService(budgetRepo, transactionRepo, categorizer)
		trigger = budgetService
		log.Println("Background categorization enabled")
	}

	// Sync engines
	directory := account.NewService(accountRepo)
	transactions := sync.NewTransactionSyncService(aggClient, directory, transactionRepo, syncStateRepo, accountRepo, trigger)
	investments := sync.NewInvestmentSyncService(aggClient, directory, holdingRepo, syncStateRepo)
	syncer := sync.NewConnectionSyncer(transactions, investments, connectionRepo, notifications)
	driver := sync.NewBatchDriver(connectionRepo, syncer)
	jobProvider := sync.NewJobProvider(connectionRepo, syncer, cfg.Aggregator.Environment)

	reports := cache.NewTokenCache(reportTokenTTL)

	syncHandler := httphandlers.NewSyncHandler(syncStateRepo, syncer, driver, cfg.Aggregator.Environment, reports)

	var budgetHandler *httphandlers.BudgetHandler
	if budgetService != nil {
		budgetHandler = httphandlers.NewBudgetHandler(budgetService, budgetRepo)
	}

	return &Dependencies{
		DB:            db,
		Reports:       reports,
		SyncHandler:   syncHandler,
		BudgetHandler: budgetHandler,
		Syncer:        syncer,
		BatchDriver:   driver,
		JobProvider:   jobProvider,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.Reports != nil {
		d.Reports.Close()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
