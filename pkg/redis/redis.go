package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kanatwo544/university-guidance-6-sub001/config"
)

// Client Redis 客户端封装
// 承载学生池文档存储（名册、池属性、学业成绩、权重、志愿表）、综合分缓存、Token 黑名单与限流
type Client struct {
	rdb    goredis.UniversalClient
	prefix string
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return Wrap(rdb, cfg.KeyPrefix, logger), nil
}

// Wrap 包装已有的 go-redis 客户端（测试或复用连接时使用）
func Wrap(rdb goredis.UniversalClient, prefix string, logger *zap.Logger) *Client {
	return &Client{rdb: rdb, prefix: prefix, logger: logger}
}

// Key 拼接带全局前缀的键名，各段以冒号分隔
func (c *Client) Key(parts ...string) string {
	if c.prefix == "" {
		return strings.Join(parts, ":")
	}
	return c.prefix + ":" + strings.Join(parts, ":")
}

// Ping 健康检查
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}

// ── JSON 文档 ──

// GetJSON 读取 JSON 文档到 dst；键不存在时返回 false
func (c *Client) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("解析文档 %s 失败: %w", key, err)
	}
	return true, nil
}

// SetJSON 整体覆盖写入 JSON 文档，ttl<=0 表示不过期
func (c *Client) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("序列化文档 %s 失败: %w", key, err)
	}
	return c.rdb.Set(ctx, key, raw, positiveTTL(ttl)).Err()
}

// ── Hash 文档 ──

// HashGetAll 读取整个 Hash；键不存在时返回空 map
func (c *Client) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	return c.rdb.HGetAll(ctx, key).Result()
}

// HashSet 局部更新 Hash 字段，不影响其余字段
func (c *Client) HashSet(ctx context.Context, key string, values map[string]interface{}) error {
	if len(values) == 0 {
		return nil
	}
	return c.rdb.HSet(ctx, key, values).Err()
}

// ReplaceHash 以 MULTI/EXEC 删除旧 Hash 后整体写入新内容
func (c *Client) ReplaceHash(ctx context.Context, key string, values map[string]interface{}) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values)
		}
		return nil
	})
	return err
}

// ── 有序集合（保持插入顺序的名册） ──

// OrderedSetAdd 追加成员，已存在的成员保持原有位置
func (c *Client) OrderedSetAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	base := float64(time.Now().UnixMicro())
	zs := make([]goredis.Z, len(members))
	for i, m := range members {
		zs[i] = goredis.Z{Score: base + float64(i), Member: m}
	}
	return c.rdb.ZAddNX(ctx, key, zs...).Err()
}

// OrderedSetMembers 按插入顺序返回全部成员
func (c *Client) OrderedSetMembers(ctx context.Context, key string) ([]string, error) {
	return c.rdb.ZRange(ctx, key, 0, -1).Result()
}

// Delete 删除键，键不存在时不报错
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// ── Token 黑名单 ──

const blacklistSegment = "token:blacklist"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, c.Key(blacklistSegment, jti), "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, c.Key(blacklistSegment, jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 限流 ──

// CheckRateLimit 滑动窗口限流：窗口内请求数未超过 limit 时返回 true
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	fullKey := c.Key("rate_limit", key)

	var card *goredis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, fullKey, "0", strconv.FormatInt(now.Add(-window).UnixMicro(), 10))
		pipe.ZAdd(ctx, fullKey, goredis.Z{Score: float64(now.UnixMicro()), Member: uuid.NewString()})
		card = pipe.ZCard(ctx, fullKey)
		pipe.Expire(ctx, fullKey, window)
		return nil
	})
	if err != nil {
		return false, err
	}
	return card.Val() <= int64(limit), nil
}

func positiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return ttl
}
