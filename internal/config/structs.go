package config

import (
	"github.com/kha997/zenamanagephp-sub030/internal/events"
	"github.com/kha997/zenamanagephp-sub030/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Events    events.Config
	RBAC      RBAC
}

// Webserver implement webserver settings.
type Webserver struct {
	CleanPath      bool   // use clean path middleware to allow multi slash requests
	DisableRecover bool   // disable recover middleware
	Domain         string // domain name for the webserver
	Port           int    // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown
	URL            string // base url for the webserver
	// HierarchyCacheTTL is the lifetime in seconds of the cached permission hierarchy.
	HierarchyCacheTTL int
}

// RBAC holds the access control engine settings.
type RBAC struct {
	// MaxImportBytes bounds the size of an uploaded permission matrix.
	MaxImportBytes int
	// BootstrapAdminUserID, when set, is granted the Admin role on migrate.
	BootstrapAdminUserID uint64
}
