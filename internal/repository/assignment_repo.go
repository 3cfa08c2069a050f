package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kanatwo544/university-guidance-6-sub001/internal/model"
)

// AssignmentRepository 志愿分配数据访问接口
type AssignmentRepository interface {
	GetByID(ctx context.Context, id string) (*model.UniversityAssignment, error)
	// ListByStudent 按 assigned_at 升序返回，附带各志愿的申请进度
	ListByStudent(ctx context.Context, studentID string) ([]model.UniversityAssignment, error)
	// UpsertBatch 在同一事务中以新列表替换学生的志愿：已存在（忽略大小写）的更新档位，
	// 不存在的新建，不在新列表中的连同申请进度一并软删除
	UpsertBatch(ctx context.Context, studentID, counselorID string, choices []model.UniversityChoice) error
	// Delete 按 (assignment_id, counselor_id) 软删除；cascade 为 true 时一并删除申请进度
	Delete(ctx context.Context, id, counselorID string, cascade bool) error
}

type assignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepo 创建 AssignmentRepository 实例
func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) GetByID(ctx context.Context, id string) (*model.UniversityAssignment, error) {
	var a model.UniversityAssignment
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepo) ListByStudent(ctx context.Context, studentID string) ([]model.UniversityAssignment, error) {
	var assignments []model.UniversityAssignment
	err := r.db.WithContext(ctx).
		Preload("Progress").
		Where("student_id = ?", studentID).
		Order("assigned_at ASC").
		Find(&assignments).Error
	return assignments, err
}

func (r *assignmentRepo) UpsertBatch(ctx context.Context, studentID, counselorID string, choices []model.UniversityChoice) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keep := make([]string, 0, len(choices))
		for _, ch := range choices {
			keep = append(keep, strings.ToLower(ch.Name))
		}
		if err := deleteStaleAssignments(tx, studentID, keep); err != nil {
			return err
		}

		for _, ch := range choices {
			var existing model.UniversityAssignment
			err := tx.Where("student_id = ? AND lower(university_name) = ?", studentID, strings.ToLower(ch.Name)).
				First(&existing).Error
			switch {
			case err == nil:
				if existing.Tier == ch.Tier {
					continue
				}
				if err := tx.Model(&existing).Update("tier", ch.Tier).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				a := model.UniversityAssignment{
					StudentID:      studentID,
					CounselorID:    counselorID,
					UniversityName: ch.Name,
					Tier:           ch.Tier,
					AssignedAt:     now,
				}
				if err := tx.Create(&a).Error; err != nil {
					return err
				}
			default:
				return err
			}
		}
		return nil
	})
}

// deleteStaleAssignments 软删除学生名下不在 keep 中的志愿及其申请进度
func deleteStaleAssignments(tx *gorm.DB, studentID string, keep []string) error {
	q := tx.Model(&model.UniversityAssignment{}).Where("student_id = ?", studentID)
	if len(keep) > 0 {
		q = q.Where("lower(university_name) NOT IN ?", keep)
	}
	var stale []string
	if err := q.Pluck("assignment_id", &stale).Error; err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}
	if err := tx.Where("assignment_id IN ?", stale).Delete(&model.ApplicationProgress{}).Error; err != nil {
		return err
	}
	return tx.Where("assignment_id IN ?", stale).Delete(&model.UniversityAssignment{}).Error
}

func (r *assignmentRepo) Delete(ctx context.Context, id, counselorID string, cascade bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("assignment_id = ? AND counselor_id = ?", id, counselorID).
			Delete(&model.UniversityAssignment{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if !cascade {
			return nil
		}
		return tx.Where("assignment_id = ? AND counselor_id = ?", id, counselorID).
			Delete(&model.ApplicationProgress{}).Error
	})
}
