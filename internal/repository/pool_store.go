package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kanatwo544/university-guidance-6-sub001/internal/model"
	"github.com/kanatwo544/university-guidance-6-sub001/pkg/redis"
)

// ErrDocumentNotFound 文档层中不存在对应的键
var ErrDocumentNotFound = errors.New("文档不存在")

// 文档键布局（均带全局前缀）：
//
//	caseload:{counselor}    ZSET   顾问名册，按加入顺序
//	pool:{student}          HASH   description / essayAverage / careerInterests / isAssigned
//	academic:{student}      HASH   overallAverage / pastOverallAverage
//	weighting:{counselor}   STRING WeightingConfig JSON
//	assignments:{student}   HASH   大学名 → Reach | Mid | Safety
//	strength:{student}      STRING CachedStrength JSON（带权重指纹，可重算）
const (
	segCaseload    = "caseload"
	segPool        = "pool"
	segAcademic    = "academic"
	segWeighting   = "weighting"
	segAssignments = "assignments"
	segStrength    = "strength"

	fieldDescription     = "description"
	fieldEssayAverage    = "essayAverage"
	fieldCareerInterests = "careerInterests"
	fieldIsAssigned      = "isAssigned"
	fieldOverallAverage  = "overallAverage"
	fieldPastAverage     = "pastOverallAverage"
)

// PoolStore 学生池文档存储接口（以顾问显示名 / 学生姓名为键）
type PoolStore interface {
	// GetCaseload 名册不存在时返回空切片
	GetCaseload(ctx context.Context, counselorName string) ([]string, error)
	AddToCaseload(ctx context.Context, counselorName string, studentNames ...string) error

	// GetPoolAttributes 不存在时返回 ErrDocumentNotFound
	GetPoolAttributes(ctx context.Context, studentName string) (*model.PoolAttributes, error)
	// SetPoolAttributes 只写 description / essayAverage / careerInterests，不触碰 isAssigned
	SetPoolAttributes(ctx context.Context, studentName string, attrs model.PoolAttributes) error
	// MarkAssigned 仅更新 isAssigned 字段
	MarkAssigned(ctx context.Context, studentName string) error

	// GetAcademicAttributes 不存在时返回 ErrDocumentNotFound
	GetAcademicAttributes(ctx context.Context, studentName string) (*model.AcademicAttributes, error)
	SetAcademicAttributes(ctx context.Context, studentName string, attrs model.AcademicAttributes) error

	// GetWeighting 不存在时返回 ErrDocumentNotFound
	GetWeighting(ctx context.Context, counselorName string) (*model.WeightingConfig, error)
	SetWeighting(ctx context.Context, counselorName string, cfg model.WeightingConfig) error

	// ReplaceAssignments 整体覆盖学生的志愿表
	ReplaceAssignments(ctx context.Context, studentName string, universities map[string]string) error
	GetAssignments(ctx context.Context, studentName string) (map[string]string, error)

	SetStrength(ctx context.Context, studentName string, entry model.CachedStrength) error
	// GetStrength 缓存缺失或过期时 ok=false
	GetStrength(ctx context.Context, studentName string) (entry model.CachedStrength, ok bool, err error)
	DeleteStrength(ctx context.Context, studentName string) error
}

type redisPoolStore struct {
	rdb         *redis.Client
	strengthTTL time.Duration
}

// NewPoolStore 创建基于 Redis 的 PoolStore
func NewPoolStore(rdb *redis.Client, strengthTTL time.Duration) PoolStore {
	return &redisPoolStore{rdb: rdb, strengthTTL: strengthTTL}
}

// ── 名册 ──

func (s *redisPoolStore) GetCaseload(ctx context.Context, counselorName string) ([]string, error) {
	return s.rdb.OrderedSetMembers(ctx, s.rdb.Key(segCaseload, counselorName))
}

func (s *redisPoolStore) AddToCaseload(ctx context.Context, counselorName string, studentNames ...string) error {
	return s.rdb.OrderedSetAdd(ctx, s.rdb.Key(segCaseload, counselorName), studentNames...)
}

// ── 池属性 ──

func (s *redisPoolStore) GetPoolAttributes(ctx context.Context, studentName string) (*model.PoolAttributes, error) {
	h, err := s.rdb.HashGetAll(ctx, s.rdb.Key(segPool, studentName))
	if err != nil {
		return nil, err
	}
	if len(h) == 0 {
		return nil, ErrDocumentNotFound
	}

	attrs := &model.PoolAttributes{Description: h[fieldDescription]}
	if attrs.EssayAverage, err = parseFloatField(h, fieldEssayAverage); err != nil {
		return nil, err
	}
	if raw := h[fieldCareerInterests]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &attrs.CareerInterests); err != nil {
			return nil, fmt.Errorf("解析 %s 失败: %w", fieldCareerInterests, err)
		}
	}
	if raw := h[fieldIsAssigned]; raw != "" {
		if attrs.IsAssigned, err = strconv.ParseBool(raw); err != nil {
			return nil, fmt.Errorf("解析 %s 失败: %w", fieldIsAssigned, err)
		}
	}
	return attrs, nil
}

func (s *redisPoolStore) SetPoolAttributes(ctx context.Context, studentName string, attrs model.PoolAttributes) error {
	interests := attrs.CareerInterests
	if interests == nil {
		interests = map[string]bool{}
	}
	raw, err := json.Marshal(interests)
	if err != nil {
		return err
	}
	return s.rdb.HashSet(ctx, s.rdb.Key(segPool, studentName), map[string]interface{}{
		fieldDescription:     attrs.Description,
		fieldEssayAverage:    formatFloat(attrs.EssayAverage),
		fieldCareerInterests: string(raw),
	})
}

func (s *redisPoolStore) MarkAssigned(ctx context.Context, studentName string) error {
	return s.rdb.HashSet(ctx, s.rdb.Key(segPool, studentName), map[string]interface{}{
		fieldIsAssigned: "true",
	})
}

// ── 学业成绩 ──

func (s *redisPoolStore) GetAcademicAttributes(ctx context.Context, studentName string) (*model.AcademicAttributes, error) {
	h, err := s.rdb.HashGetAll(ctx, s.rdb.Key(segAcademic, studentName))
	if err != nil {
		return nil, err
	}
	if len(h) == 0 {
		return nil, ErrDocumentNotFound
	}

	var attrs model.AcademicAttributes
	if attrs.OverallAverage, err = parseFloatField(h, fieldOverallAverage); err != nil {
		return nil, err
	}
	if attrs.PastOverallAverage, err = parseFloatField(h, fieldPastAverage); err != nil {
		return nil, err
	}
	return &attrs, nil
}

func (s *redisPoolStore) SetAcademicAttributes(ctx context.Context, studentName string, attrs model.AcademicAttributes) error {
	return s.rdb.HashSet(ctx, s.rdb.Key(segAcademic, studentName), map[string]interface{}{
		fieldOverallAverage: formatFloat(attrs.OverallAverage),
		fieldPastAverage:    formatFloat(attrs.PastOverallAverage),
	})
}

// ── 权重配置 ──

func (s *redisPoolStore) GetWeighting(ctx context.Context, counselorName string) (*model.WeightingConfig, error) {
	var cfg model.WeightingConfig
	ok, err := s.rdb.GetJSON(ctx, s.rdb.Key(segWeighting, counselorName), &cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return &cfg, nil
}

func (s *redisPoolStore) SetWeighting(ctx context.Context, counselorName string, cfg model.WeightingConfig) error {
	return s.rdb.SetJSON(ctx, s.rdb.Key(segWeighting, counselorName), cfg, 0)
}

// ── 志愿表 ──

func (s *redisPoolStore) ReplaceAssignments(ctx context.Context, studentName string, universities map[string]string) error {
	values := make(map[string]interface{}, len(universities))
	for name, label := range universities {
		values[name] = label
	}
	return s.rdb.ReplaceHash(ctx, s.rdb.Key(segAssignments, studentName), values)
}

func (s *redisPoolStore) GetAssignments(ctx context.Context, studentName string) (map[string]string, error) {
	return s.rdb.HashGetAll(ctx, s.rdb.Key(segAssignments, studentName))
}

// ── 综合分缓存 ──

func (s *redisPoolStore) SetStrength(ctx context.Context, studentName string, entry model.CachedStrength) error {
	return s.rdb.SetJSON(ctx, s.rdb.Key(segStrength, studentName), entry, s.strengthTTL)
}

func (s *redisPoolStore) GetStrength(ctx context.Context, studentName string) (model.CachedStrength, bool, error) {
	var entry model.CachedStrength
	ok, err := s.rdb.GetJSON(ctx, s.rdb.Key(segStrength, studentName), &entry)
	return entry, ok, err
}

func (s *redisPoolStore) DeleteStrength(ctx context.Context, studentName string) error {
	return s.rdb.Delete(ctx, s.rdb.Key(segStrength, studentName))
}

// ── 辅助函数 ──

func parseFloatField(h map[string]string, field string) (float64, error) {
	raw, ok := h[field]
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("解析 %s 失败: %w", field, err)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
