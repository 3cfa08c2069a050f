package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/kanatwo544/university-guidance-6-sub001/internal/dto"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/service"
	"github.com/kanatwo544/university-guidance-6-sub001/pkg/response"
)

// ProgressHandler 已分配学生与申请进度 HTTP 处理器
type ProgressHandler struct {
	progressSvc service.ProgressService
}

// NewProgressHandler 创建 ProgressHandler
func NewProgressHandler(progressSvc service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressSvc: progressSvc}
}

// ListStudents 当前顾问名下已有志愿的学生
// GET /api/v1/students?page=1&page_size=20
func (h *ProgressHandler) ListStudents(c *gin.Context) {
	counselorID, ok := MustGetCounselorID(c)
	if !ok {
		return
	}

	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, 22001, err)
		return
	}

	list, total, err := h.progressSvc.ListAssignedStudents(c.Request.Context(), counselorID, &req)
	if err != nil {
		h.handleProgressError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetStudent 学生详情：全部志愿及各自的申请进度
// GET /api/v1/students/:id
func (h *ProgressHandler) GetStudent(c *gin.Context) {
	counselorID, ok := MustGetCounselorID(c)
	if !ok {
		return
	}

	studentID, ok := pathUUID(c, "id", 22002, "学生不存在")
	if !ok {
		return
	}

	result, err := h.progressSvc.GetAssignedStudentDetails(c.Request.Context(), studentID, counselorID)
	if err != nil {
		h.handleProgressError(c, err)
		return
	}

	response.OK(c, result)
}

// CreateProgress 为志愿创建申请进度
// POST /api/v1/students/:id/assignments/:assignmentId/progress
func (h *ProgressHandler) CreateProgress(c *gin.Context) {
	counselorID, ok := MustGetCounselorID(c)
	if !ok {
		return
	}

	studentID, ok := pathUUID(c, "id", 22002, "学生不存在")
	if !ok {
		return
	}
	assignmentID, ok := pathUUID(c, "assignmentId", 22004, "志愿不存在")
	if !ok {
		return
	}

	var req dto.CreateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, 22001, err)
		return
	}

	result, err := h.progressSvc.CreateApplicationProgress(
		c.Request.Context(), assignmentID, studentID, counselorID, &req)
	if err != nil {
		h.handleProgressError(c, err)
		return
	}

	response.Created(c, result)
}

// UpdateProgress 部分更新申请进度，未提交的字段保持不变
// PATCH /api/v1/progress/:id
func (h *ProgressHandler) UpdateProgress(c *gin.Context) {
	counselorID, ok := MustGetCounselorID(c)
	if !ok {
		return
	}

	progressID, ok := pathUUID(c, "id", 22006, "申请进度不存在")
	if !ok {
		return
	}

	var req dto.UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, 22001, err)
		return
	}

	result, err := h.progressSvc.UpdateApplicationProgress(c.Request.Context(), progressID, counselorID, &req)
	if err != nil {
		h.handleProgressError(c, err)
		return
	}

	response.OK(c, result)
}

// DeleteAssignment 移除一条志愿
// DELETE /api/v1/assignments/:id
func (h *ProgressHandler) DeleteAssignment(c *gin.Context) {
	counselorID, ok := MustGetCounselorID(c)
	if !ok {
		return
	}

	assignmentID, ok := pathUUID(c, "id", 22004, "志愿不存在")
	if !ok {
		return
	}

	if err := h.progressSvc.RemoveUniversityAssignment(c.Request.Context(), assignmentID, counselorID); err != nil {
		h.handleProgressError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *ProgressHandler) handleProgressError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 22002, "学生不存在")
	case errors.Is(err, service.ErrStudentForbidden):
		response.Forbidden(c, 22003, "学生不属于当前顾问")
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 22004, "志愿不存在")
	case errors.Is(err, service.ErrAssignmentForbidden):
		response.Forbidden(c, 22005, "志愿不属于当前顾问")
	case errors.Is(err, service.ErrProgressNotFound):
		response.NotFound(c, 22006, "申请进度不存在")
	case errors.Is(err, service.ErrProgressForbidden):
		response.Forbidden(c, 22007, "申请进度不属于当前顾问")
	case errors.Is(err, service.ErrProgressExists):
		response.Conflict(c, 22008, "该志愿已存在申请进度")
	default:
		respondCommonError(c, err)
	}
}
