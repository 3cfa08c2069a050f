package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/kanatwo544/university-guidance-6-sub001/internal/model"
)

// ProgressRepository 申请进度数据访问接口
type ProgressRepository interface {
	Create(ctx context.Context, progress *model.ApplicationProgress) error
	GetByID(ctx context.Context, id string) (*model.ApplicationProgress, error)
	GetByAssignment(ctx context.Context, assignmentID string) (*model.ApplicationProgress, error)
	// UpdateFields 局部更新，同时以 progress_id 与 counselor_id 过滤；未命中返回 gorm.ErrRecordNotFound
	UpdateFields(ctx context.Context, id, counselorID string, fields map[string]interface{}) error
}

type progressRepo struct {
	db *gorm.DB
}

// NewProgressRepo 创建 ProgressRepository 实例
func NewProgressRepo(db *gorm.DB) ProgressRepository {
	return &progressRepo{db: db}
}

func (r *progressRepo) Create(ctx context.Context, progress *model.ApplicationProgress) error {
	return r.db.WithContext(ctx).Create(progress).Error
}

func (r *progressRepo) GetByID(ctx context.Context, id string) (*model.ApplicationProgress, error) {
	var p model.ApplicationProgress
	err := r.db.WithContext(ctx).
		Where("progress_id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *progressRepo) GetByAssignment(ctx context.Context, assignmentID string) (*model.ApplicationProgress, error) {
	var p model.ApplicationProgress
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *progressRepo) UpdateFields(ctx context.Context, id, counselorID string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.ApplicationProgress{}).
		Where("progress_id = ? AND counselor_id = ?", id, counselorID).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
