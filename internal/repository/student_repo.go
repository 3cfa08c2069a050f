package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/kanatwo544/university-guidance-6-sub001/internal/model"
)

// StudentRepository 学生数据访问接口
type StudentRepository interface {
	Create(ctx context.Context, student *model.Student) error
	// GetByID 不做归属过滤，归属校验由 Service 层完成
	GetByID(ctx context.Context, id string) (*model.Student, error)
	GetByCounselorAndName(ctx context.Context, counselorID, name string) (*model.Student, error)
	// ListAssigned 列出顾问名下至少有一条志愿的学生
	ListAssigned(ctx context.Context, counselorID string, offset, limit int) ([]model.Student, int64, error)
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) Create(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepo) GetByID(ctx context.Context, id string) (*model.Student, error) {
	var s model.Student
	err := r.db.WithContext(ctx).
		Where("student_id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *studentRepo) GetByCounselorAndName(ctx context.Context, counselorID, name string) (*model.Student, error) {
	var s model.Student
	err := r.db.WithContext(ctx).
		Where("counselor_id = ? AND name = ?", counselorID, name).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *studentRepo) ListAssigned(ctx context.Context, counselorID string, offset, limit int) ([]model.Student, int64, error) {
	var students []model.Student
	var total int64

	assigned := r.db.WithContext(ctx).
		Model(&model.UniversityAssignment{}).
		Select("student_id").
		Where("counselor_id = ?", counselorID)

	db := r.db.WithContext(ctx).Model(&model.Student{}).
		Where("counselor_id = ? AND student_id IN (?)", counselorID, assigned)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Assignments", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("assigned_at ASC")
	}).
		Offset(offset).Limit(limit).
		Order("name ASC").
		Find(&students).Error
	return students, total, err
}
