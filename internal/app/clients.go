package app

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/xwerkax/BloomlyApp/internal/clients/redis"
	"github.com/xwerkax/BloomlyApp/internal/data/db"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

type Clients struct {
	// Bus is nil when REDIS_ADDR is unset; events are then only logged.
	Bus redis.EventBus
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	var bus redis.EventBus
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		b, err := redis.NewEventBus(cfg.RedisAddr, log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis event bus: %w", err)
		}
		bus = b
	}
	return Clients{Bus: bus}, nil
}

func (c Clients) Close() {
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
}

// openDatabase connects with the configured driver and migrates the schema.
func openDatabase(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	var theDB *gorm.DB
	switch cfg.DBDriver {
	case "sqlite":
		svc, err := db.NewSQLiteService(cfg.SQLitePath, log)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		theDB = svc.DB()
	case "postgres", "":
		svc, err := db.NewPostgresService(cfg.Postgres, log)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		theDB = svc.DB()
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if err := db.AutoMigrateAll(theDB); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return theDB, nil
}
