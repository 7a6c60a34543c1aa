package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"catering-planner/internal/infrastructure/config"
)

// Cache 文字生成結果快取；未命中時回傳 common.ErrCacheMiss
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
	Close() error
}

// Key 以模型與提示內容產生快取鍵
func Key(model, prompt string) string {
	hash := sha256.Sum256([]byte(model + "\x00" + prompt))
	return "scale:" + hex.EncodeToString(hash[:])
}

// New 依設定選擇快取後端；停用時回傳 nil
func New(cfg *config.Config) (Cache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	switch cfg.Cache.Backend {
	case "", "memory":
		return NewManager(cfg.Cache), nil
	case "redis":
		rc, err := NewRedis(cfg.Redis, cfg.Cache)
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
}
