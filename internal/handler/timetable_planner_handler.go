package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/el-siradj/SCHOOL/internal/dto"
	"github.com/el-siradj/SCHOOL/internal/middleware"
	"github.com/el-siradj/SCHOOL/internal/service"
	appErrors "github.com/el-siradj/SCHOOL/pkg/errors"
	"github.com/el-siradj/SCHOOL/pkg/response"
)

type timetablePlanner interface {
	GetPlanner(ctx context.Context, classID int64) (*dto.PlannerView, error)
	Suggest(ctx context.Context, query dto.SuggestionQuery) (*dto.SuggestionResponse, error)
	Autofill(ctx context.Context, classID int64, req dto.AutofillRequest) (*dto.AutofillResult, error)
}

// TimetablePlannerHandler exposes the planner view, suggestions and auto-fill.
type TimetablePlannerHandler struct {
	service timetablePlanner
}

// NewTimetablePlannerHandler constructs the handler.
func NewTimetablePlannerHandler(svc *service.TimetablePlannerService) *TimetablePlannerHandler {
	return &TimetablePlannerHandler{service: svc}
}

// Planner godoc
// @Summary Planner view for a class
// @Description Days, periods, study window, current slots and per-subject workload with eligible teachers.
// @Tags Timetable
// @Produce json
// @Param classId path int true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/planner/class/{classId} [get]
func (h *TimetablePlannerHandler) Planner(c *gin.Context) {
	classID, err := parseIDParam(c, "classId")
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.service.GetPlanner(c.Request.Context(), classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Suggestions godoc
// @Summary Legal empty cells for a class, subject and teacher
// @Tags Timetable
// @Produce json
// @Param class_id query int true "Class ID"
// @Param subject_id query int true "Subject ID"
// @Param teacher_id query int true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetable/planner/suggestions [get]
func (h *TimetablePlannerHandler) Suggestions(c *gin.Context) {
	var query dto.SuggestionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "class_id, subject_id and teacher_id must be integers"))
		return
	}
	result, err := h.service.Suggest(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Autofill godoc
// @Summary Greedily fill a class's remaining weekly quotas
// @Description Commits every placement in one transaction. A concurrent conflicting write aborts the whole run with TRANSACTION_ABORTED.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param classId path int true "Class ID"
// @Param payload body dto.AutofillRequest false "Auto-fill options"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/planner/autofill/class/{classId} [post]
func (h *TimetablePlannerHandler) Autofill(c *gin.Context) {
	classID, err := parseIDParam(c, "classId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AutofillRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid autofill payload"))
		return
	}
	req.CreatedBy = actorFromContext(c)

	result, err := h.service.Autofill(c.Request.Context(), classID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "inserted", result.Inserted)
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}
