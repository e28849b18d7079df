// Package dsn builds database connection strings and gorm dialectors from the configuration.
package dsn

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/kha997/zenamanagephp-sub030/internal/config"
)

// Create builds the MySQL Data Source Name from the configuration.
func Create(cfg *config.Config) string {
	return MySQL(&cfg.DB)
}

// MySQL returns a go-sql-driver style DSN.
func MySQL(db *config.DB) string {
	out := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
		db.User,
		db.Password,
		db.Host,
		db.Port,
		db.Name,
	)

	if db.Extras != "" {
		out += "?" + db.Extras
	}

	return out
}

// Postgres returns a libpq URL. Extras are appended as the query string.
func Postgres(db *config.DB) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.User, db.Password),
		Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:     "/" + db.Name,
		RawQuery: db.Extras,
	}

	if db.Password == "" {
		u.User = url.User(db.User)
	}

	return u.String()
}

// SQLite returns the database file path, with Extras as pragma query string.
func SQLite(db *config.DB) string {
	if db.Extras == "" {
		return db.Name
	}

	sep := "?"
	if strings.Contains(db.Name, "?") {
		sep = "&"
	}

	return db.Name + sep + db.Extras
}

// Dialector selects the gorm dialector for the configured engine.
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DB.GormEngine {
	case config.EngineMySQL, "":
		return mysql.Open(MySQL(&cfg.DB)), nil
	case config.EnginePostgres:
		return postgres.Open(Postgres(&cfg.DB)), nil
	case config.EngineSQLite:
		return sqlite.Open(SQLite(&cfg.DB)), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownDBEngine, cfg.DB.GormEngine)
	}
}
