// Package container provides dependency injection and lifecycle management
// for the travel approval service.
package container

import (
	"context"
	"fmt"

	"github.com/garyjia/travel-approval/internal/application/dispatcher"
	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/application/service"
	"github.com/garyjia/travel-approval/internal/config"
	"github.com/garyjia/travel-approval/internal/infrastructure/directory"
	"github.com/garyjia/travel-approval/internal/infrastructure/export"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/travel-approval/internal/infrastructure/worker"
	"github.com/garyjia/travel-approval/migrations"
	"github.com/garyjia/travel-approval/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds the connection and the transaction manager built on it
type DatabaseBundle struct {
	Conn      *database.DB
	TxManager *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
// Directory is the cached decorator, not the raw SQLite repository.
type RepositoryBundle struct {
	Requests      port.RequestRepository
	Decisions     port.DecisionRepository
	Notifications port.NotificationRepository
	Directory     port.DirectoryRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Requests      service.RequestService
	Directory     service.DirectoryService
	Reports       service.ReportService
	Notifications service.NotificationService
}

// ServiceDeps holds what ProvideServices needs
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Reports    config.ReportsConfig
	Logger     *zap.Logger
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	conn, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(conn, logger).RunMigrations(migrations.FS); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Conn:      conn,
		TxManager: sqlite.NewDB(conn.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories over one connection.
func ProvideRepositories(db *DatabaseBundle, dirCfg *config.DirectoryConfig, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil || db.Conn == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if dirCfg == nil {
		return nil, fmt.Errorf("directory config is required")
	}

	sqlDB := db.Conn.DB
	return &RepositoryBundle{
		Requests:      repository.NewRequestRepository(sqlDB, logger),
		Decisions:     repository.NewDecisionRepository(sqlDB, logger),
		Notifications: repository.NewNotificationRepository(sqlDB, logger),
		Directory: directory.NewCachedRepository(
			repository.NewDirectoryRepository(sqlDB, logger),
			dirCfg.CacheTTL,
		),
	}, nil
}

// SeedDirectory loads the org chart file and upserts it.
func SeedDirectory(ctx context.Context, path string, repos *RepositoryBundle, tx port.TransactionManager, logger *zap.Logger) error {
	seed, err := directory.LoadSeed(path)
	if err != nil {
		return err
	}
	return seed.Apply(ctx, repos.Directory, tx, logger)
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger.Named("dispatcher")}),
	)
}

// ProvideServices wires the application services and subscribes the
// notification handlers on the dispatcher.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	log := &zapLoggerAdapter{logger: deps.Logger}
	repos := deps.Repos

	notifications := service.NewNotificationService(repos.Notifications, repos.Directory, log)
	notifications.Register(deps.Dispatcher)

	writer := export.NewXLSXWriter(deps.Reports.SheetName, deps.Logger)

	return &ServiceBundle{
		Requests: service.NewRequestService(
			repos.Requests,
			repos.Decisions,
			repos.Directory,
			deps.TxManager,
			deps.Dispatcher,
			log,
		),
		Directory:     service.NewDirectoryService(repos.Directory, log),
		Reports:       service.NewReportService(repos.Requests, repos.Directory, writer, deps.Reports.TopReasons, log),
		Notifications: notifications,
	}, nil
}

// ProvideWorkers creates the worker manager with the enabled background jobs.
func ProvideWorkers(cfg *config.RemindersConfig, repos *RepositoryBundle, services *ServiceBundle, logger *zap.Logger) *worker.Manager {
	manager := worker.NewManager(logger.Named("worker"))
	if cfg.Enabled {
		manager.Register(worker.NewReminderWorker(
			repos.Requests,
			services.Notifications,
			worker.ReminderConfig{
				Interval:   cfg.Interval,
				StaleAfter: cfg.StaleAfter,
				BatchSize:  cfg.BatchSize,
			},
			logger.Named("reminder"),
		))
	}
	return manager
}
