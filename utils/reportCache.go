package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/audit_backend/config"
)

// ReportCache keeps computed reports in process and, when redis is
// connected, in redis so that replicas share them.
type ReportCache struct {
	local   *expirable.LRU[string, []byte]
	ttl     time.Duration
	lockTTL time.Duration
}

func NewReportCache(size int, ttl, lockTTL time.Duration) *ReportCache {
	return &ReportCache{
		local:   expirable.NewLRU[string, []byte](size, nil, ttl),
		ttl:     ttl,
		lockTTL: lockTTL,
	}
}

// CacheKey hashes the JSON encoding of parts under prefix.
func CacheKey(prefix string, parts ...any) (string, error) {
	b, err := json.Marshal(parts)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return prefix + ":" + hex.EncodeToString(sum[:]), nil
}

func (c *ReportCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if b, ok := c.local.Get(key); ok {
		return true, json.Unmarshal(b, dest)
	}
	var raw json.RawMessage
	found, err := config.GetRedisObject(ctx, key, &raw)
	if err != nil || !found {
		return false, err
	}
	c.local.Add(key, raw)
	return true, json.Unmarshal(raw, dest)
}

func (c *ReportCache) Set(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.local.Add(key, b)
	return config.SetRedisObject(ctx, key, json.RawMessage(b), c.ttl)
}

func (c *ReportCache) Len() int {
	return c.local.Len()
}

// GetOrCompute returns the cached value of key or computes and stores it.
// Concurrent computations of the same key across replicas are serialized
// with a redis lock when one can be obtained; the lock is best effort.
func GetOrCompute[T any](ctx context.Context, c *ReportCache, key string, compute func(context.Context) (T, error)) (T, bool, error) {
	var out T
	logger := config.GetLogger()
	if hit, err := c.Get(ctx, key, &out); err == nil && hit {
		return out, true, nil
	} else if err != nil {
		config.LogError(logger, "reportCache.go", "GetOrCompute", "Get", key, err)
	}

	lock, err := config.ObtainLock(ctx, "lock:"+key, c.lockTTL)
	if err != nil {
		fields := logrus.Fields{"field": "GetOrCompute", "key": key}
		if errors.Is(err, config.ErrorLockNotObtained) {
			logger.WithFields(fields).Warn("could not obtain redis lock; computing without it")
		} else {
			logger.WithFields(fields).Warn("error obtaining redis lock; computing without it: " + err.Error())
		}
		lock = nil
	}
	if lock != nil {
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.WithFields(logrus.Fields{"field": "GetOrCompute", "key": key}).Warn("failed to release redis lock: " + err.Error())
			}
		}()
		// another replica may have filled it while we waited
		if hit, err := c.Get(ctx, key, &out); err == nil && hit {
			return out, true, nil
		}
	}

	out, err = compute(ctx)
	if err != nil {
		return out, false, err
	}
	if err := c.Set(ctx, key, out); err != nil {
		config.LogError(logger, "reportCache.go", "GetOrCompute", "Set", key, err)
	}
	return out, false, nil
}
