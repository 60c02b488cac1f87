package bootstrap

import (
	"context"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/Goden-Gun/resilience-lib/pkg/config"
	"github.com/Goden-Gun/resilience-lib/pkg/probe"
)

// InitRedis 初始化 Redis 客户端并通过连通性探测校验
func InitRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.Db,
	})

	if _, err := probe.Verify(ctx, probe.Redis(client)); err != nil {
		log.WithField("addr", cfg.Addr).Errorf("redis初始化失败: %v", err)
		_ = client.Close()
		return nil, err
	}

	log.WithField("addr", cfg.Addr).Info("redis initialized successfully")
	return client, nil
}
