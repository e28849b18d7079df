package app

import (
	"io"

	"gorm.io/gorm"

	"github.com/kha997/zenamanagephp-sub030/internal/daemon"
	"github.com/kha997/zenamanagephp-sub030/internal/events"
	"github.com/kha997/zenamanagephp-sub030/internal/logger"
	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
)

// openService builds an RBAC service for one-shot commands.
// The returned closer releases the event bus.
func openService() (*rbac.Service, *gorm.DB, io.Closer, error) {
	if err := logger.Init(cfg.Log); err != nil {
		return nil, nil, nil, err
	}

	db, err := daemon.OpenDB(&cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	pub, bus, err := events.New(cfg.Events)
	if err != nil {
		return nil, nil, nil, err
	}

	return rbac.NewService(db, pub, rbac.WithMaxImportBytes(cfg.RBAC.MaxImportBytes)), db, bus, nil
}
