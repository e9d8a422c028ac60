package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env       string `env:"ENV"        envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Port                int           `env:"PORT"                  envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	DatabaseFile string `env:"GATEHOUSE_DATABASE_FILE" envDefault:"gatehouse.db"`
	PepperFile   string `env:"GATEHOUSE_PEPPER_FILE"   envDefault:"pepper"`

	CookieName   string `env:"GATEHOUSE_COOKIE_NAME"   envDefault:"gatehouse_session"`
	CookieSecure bool   `env:"GATEHOUSE_COOKIE_SECURE" envDefault:"false"`

	LoginAttempts int           `env:"GATEHOUSE_LOGIN_ATTEMPTS" envDefault:"10"`
	LoginWindow   time.Duration `env:"GATEHOUSE_LOGIN_WINDOW"   envDefault:"3m"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// DatabaseDSN builds the sqlite DSN for the configured database file. The
// pragmas apply to every pooled connection, which DSN-less PRAGMA statements
// do not. Transactions begin immediate so SELECT-then-INSERT flows take the
// write lock up front; a deferred transaction that upgrades mid-flight fails
// with SQLITE_BUSY without waiting out busy_timeout.
func DatabaseDSN(file string) string {
	return fmt.Sprintf(
		"file:%s?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		file,
	)
}
