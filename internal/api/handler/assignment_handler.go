package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kanatwo544/university-guidance-6-sub001/internal/dto"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/service"
	"github.com/kanatwo544/university-guidance-6-sub001/pkg/response"
)

// AssignmentHandler 志愿分配 HTTP 处理器
type AssignmentHandler struct {
	assignmentSvc service.AssignmentService
}

// NewAssignmentHandler 创建 AssignmentHandler
func NewAssignmentHandler(assignmentSvc service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentSvc: assignmentSvc}
}

// AssignUniversities 为名册中的学生写入志愿表并移出待分配池
// POST /api/v1/pool/students/:name/assignments
func (h *AssignmentHandler) AssignUniversities(c *gin.Context) {
	counselorID, ok := MustGetCounselorID(c)
	if !ok {
		return
	}
	counselorName, ok := MustGetCounselorName(c)
	if !ok {
		return
	}
	studentName := strings.TrimSpace(c.Param("name"))
	if studentName == "" {
		response.BadRequest(c, 21001, "学生姓名不能为空")
		return
	}

	var req dto.AssignUniversitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, 21001, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.assignmentSvc.CheckSelection(ctx, counselorID, counselorName, studentName, len(req.Universities)); err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	result, err := h.assignmentSvc.AssignUniversities(ctx, counselorID, studentName, req.ToChoices())
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *AssignmentHandler) handleAssignmentError(c *gin.Context, err error) {
	var countErr *service.SelectionCountError
	switch {
	case errors.As(err, &countErr):
		response.ErrorWithDetails(c, http.StatusBadRequest, 21002, "志愿数量与顾问设定不符", countErr.Error())
	case errors.Is(err, service.ErrStudentNotInCaseload):
		response.NotFound(c, 21003, "学生不在当前顾问名册中")
	case errors.Is(err, service.ErrCounselorNotFound):
		response.NotFound(c, 11003, "顾问不存在")
	default:
		respondCommonError(c, err)
	}
}
