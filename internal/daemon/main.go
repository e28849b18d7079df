// Package daemon wires configuration, storage, the event bus and the web
// service into the running RBAC service.
package daemon

import (
	"context"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/kha997/zenamanagephp-sub030/internal/config"
	"github.com/kha997/zenamanagephp-sub030/internal/db/dsn"
	"github.com/kha997/zenamanagephp-sub030/internal/db/models"
	"github.com/kha997/zenamanagephp-sub030/internal/events"
	"github.com/kha997/zenamanagephp-sub030/internal/logger"
	gormlog "github.com/kha997/zenamanagephp-sub030/internal/logger/adapter/gorm"
	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
	"github.com/kha997/zenamanagephp-sub030/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	bus        io.Closer
	svc        *rbac.Service
	webService *web.Service
}

// Start serves the API until a shutdown signal arrives.
func (d *Daemon) Start() error {
	defer d.Close()

	go d.webService.WaitShutdown()

	return d.webService.Start(":" + strconv.Itoa(d.cfg.Webserver.Port))
}

// Close releases the event bus and the database.
func (d *Daemon) Close() {
	if d.bus != nil {
		if err := d.bus.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close event bus")
		}
	}

	if sqlDB, err := d.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Service returns the RBAC service of the daemon.
func (d *Daemon) Service() *rbac.Service {
	return d.svc
}

// DB returns the database handle of the daemon.
func (d *Daemon) DB() *gorm.DB {
	return d.db
}

// OpenDB connects to the configured database.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dsn.Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlog.New(nil, gormlog.ParseLevel(cfg.DB.LogLevel), 0),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get database handle")
	}

	if cfg.DB.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	}

	if cfg.DB.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	}

	return db, nil
}

// Migrate creates or updates the schema and seeds the guard permissions.
func Migrate(ctx context.Context, cfg *config.Config, db *gorm.DB, svc *rbac.Service) (*SeedState, error) {
	// assignments used to be unique without their tenant
	if m := db.WithContext(ctx).Migrator(); m.HasIndex(&models.Assignment{}, "idx_assignment_tuple") {
		if err := m.DropIndex(&models.Assignment{}, "idx_assignment_tuple"); err != nil {
			return nil, errors.Wrap(err, "failed to drop legacy assignment index")
		}
	}

	if err := db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	state, err := Seed(ctx, cfg, db, svc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to seed database")
	}

	return state, nil
}

// New initializes logging, opens storage and the event bus and builds the
// web service. With migrate set the schema is migrated and seeded first.
func New(cfg *config.Config, migrate bool) (*Daemon, error) {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil, nil
	}

	if err := logger.Init(cfg.Log); err != nil {
		return nil, errors.Wrap(err, "failed to init logger")
	}

	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	pub, bus, err := events.New(cfg.Events)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open event bus")
	}

	if err := events.Check(context.Background(), pub); err != nil {
		log.Warn().Err(err).Str("driver", cfg.Events.Driver).Msg("event bus unreachable, audit events will not be published")
	}

	svc := rbac.NewService(db, pub, rbac.WithMaxImportBytes(cfg.RBAC.MaxImportBytes))

	d := &Daemon{cfg: cfg, db: db, bus: bus, svc: svc}

	if migrate {
		state, err := Migrate(context.Background(), cfg, db, svc)
		if err != nil {
			d.Close()

			return nil, err
		}

		log.Info().Uint("admin_role_id", state.AdminRoleID).Msg("database migrated")
	}

	d.webService = web.New(cfg, svc)

	return d, nil
}
