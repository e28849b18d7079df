package config

// Supported gorm engines.
const (
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

// DB holds the database configuration settings.
type DB struct {
	Extras   string
	Host     string
	Port     int
	User     string
	Password string
	// Name is the database name, or the file path for sqlite.
	Name       string
	GormEngine string `split_words:"true"`
	// LogLevel is the gorm log level: silent, error, warn or info.
	LogLevel     string `split_words:"true"`
	MaxOpenConns int    `split_words:"true"`
	MaxIdleConns int    `split_words:"true"`
}
