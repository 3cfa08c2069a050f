package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/kanatwo544/university-guidance-6-sub001/internal/model"
)

// CounselorRepository 顾问数据访问接口
type CounselorRepository interface {
	Create(ctx context.Context, counselor *model.Counselor) error
	GetByID(ctx context.Context, id string) (*model.Counselor, error)
	GetByEmail(ctx context.Context, email string) (*model.Counselor, error)
	GetByName(ctx context.Context, name string) (*model.Counselor, error)
}

type counselorRepo struct {
	db *gorm.DB
}

// NewCounselorRepo 创建 CounselorRepository 实例
func NewCounselorRepo(db *gorm.DB) CounselorRepository {
	return &counselorRepo{db: db}
}

func (r *counselorRepo) Create(ctx context.Context, counselor *model.Counselor) error {
	return r.db.WithContext(ctx).Create(counselor).Error
}

func (r *counselorRepo) GetByID(ctx context.Context, id string) (*model.Counselor, error) {
	var c model.Counselor
	err := r.db.WithContext(ctx).
		Where("counselor_id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *counselorRepo) GetByEmail(ctx context.Context, email string) (*model.Counselor, error) {
	var c model.Counselor
	err := r.db.WithContext(ctx).
		Where("lower(email) = lower(?)", email).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *counselorRepo) GetByName(ctx context.Context, name string) (*model.Counselor, error) {
	var c model.Counselor
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}
