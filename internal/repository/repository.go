package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/kanatwo544/university-guidance-6-sub001/pkg/redis"
)

// Repository 所有 Repository 的聚合入口
// 关系型数据（顾问、学生、志愿、申请进度）走 PostgreSQL，学生池文档走 Redis
type Repository struct {
	Counselor  CounselorRepository
	Student    StudentRepository
	Assignment AssignmentRepository
	Progress   ProgressRepository
	Pool       PoolStore
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB, rdb *redis.Client, strengthTTL time.Duration) *Repository {
	return &Repository{
		Counselor:  NewCounselorRepo(db),
		Student:    NewStudentRepo(db),
		Assignment: NewAssignmentRepo(db),
		Progress:   NewProgressRepo(db),
		Pool:       NewPoolStore(rdb, strengthTTL),
	}
}
