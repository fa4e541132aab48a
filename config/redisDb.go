package config

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

// ErrorLockNotObtained is returned when another worker holds the lock.
var ErrorLockNotObtained = redislock.ErrNotObtained

func GetRedisDB() *redis.Client {
	return rdb
}

func GetRedisObject(ctx context.Context, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	val, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

func SetRedisObject(ctx context.Context, key string, obj any, exp time.Duration) error {
	if rdb == nil {
		return nil
	}
	objInByte, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, objInByte, exp).Err()
}

// ObtainLock takes a short lived distributed lock. Without redis it returns
// a nil lock and no error, callers then run unguarded.
func ObtainLock(ctx context.Context, key string, ttl time.Duration) (*redislock.Lock, error) {
	if locker == nil {
		return nil, nil
	}
	return locker.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), int(ttl/(100*time.Millisecond))),
	})
}

// ConnectRedisWithRetry connects and sets the global Redis client + lock
// client. It gives up after attempts tries and leaves the process on the
// in-process cache.
// Call this from main() AFTER the HTTP server is listening.
func ConnectRedisWithRetry(ctx context.Context, redisAddr string, attempts int) error {
	logger := GetLogger()
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		client := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			PoolSize: 100,
		})
		if err = client.Ping(ctx).Err(); err == nil {
			rdb = client
			locker = redislock.New(rdb)
			logger.WithFields(logrus.Fields{"attempt": attempt, "addr": redisAddr}).Info("connected to redis")
			return nil
		}
		_ = client.Close()
		if attempt == attempts {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{"attempt": attempt, "addr": redisAddr, "retry_in": sleep.String()}).Warn("failed to connect redis: " + err.Error())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
	return err
}

func CloseRedis() error {
	if rdb == nil {
		return nil
	}
	return rdb.Close()
}
