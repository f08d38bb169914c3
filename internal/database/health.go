package database

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Probes returns readiness checks for the configured backends keyed by name.
// Nil clients are skipped.
func Probes(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) map[string]func(context.Context) error {
	probes := make(map[string]func(context.Context) error)

	if db != nil {
		probes["database"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}

	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	if natsConn != nil {
		probes["nats"] = func(ctx context.Context) error {
			if !natsConn.IsConnected() {
				return errors.New("nats connection " + natsConn.Status().String())
			}
			return nil
		}
	}

	return probes
}
