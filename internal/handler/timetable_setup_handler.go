package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/el-siradj/SCHOOL/internal/dto"
	"github.com/el-siradj/SCHOOL/internal/models"
	"github.com/el-siradj/SCHOOL/internal/service"
	appErrors "github.com/el-siradj/SCHOOL/pkg/errors"
	"github.com/el-siradj/SCHOOL/pkg/response"
)

type timetableSetup interface {
	ListLevels(ctx context.Context) ([]string, error)
	GetLevelQuotas(ctx context.Context, query dto.LevelQuery) ([]models.LevelSubjectQuotaDetail, error)
	SaveLevelQuotas(ctx context.Context, req dto.SaveLevelQuotasRequest) error
	GetTeacherSubjects(ctx context.Context, teacherID int64) ([]int64, error)
	ReplaceTeacherSubjects(ctx context.Context, teacherID int64, req dto.ReplaceTeacherSubjectsRequest) ([]int64, error)
	GetTeacherClasses(ctx context.Context, teacherID int64) ([]int64, error)
	ReplaceTeacherClasses(ctx context.Context, teacherID int64, req dto.ReplaceTeacherClassesRequest) ([]int64, error)
	GetTeacherAvailability(ctx context.Context, teacherID int64) ([]models.TeacherAvailability, error)
	ReplaceTeacherAvailability(ctx context.Context, teacherID int64, req dto.ReplaceTeacherAvailabilityRequest) ([]models.TeacherAvailability, error)
	AssignedSlots(ctx context.Context, teacherID int64) (*dto.TeacherSlotsResponse, error)
}

type catalogInvalidator interface {
	Invalidate(ctx context.Context) error
}

// TimetableSetupHandler exposes the planner inputs: level quotas and teacher capabilities.
type TimetableSetupHandler struct {
	service timetableSetup
	catalog catalogInvalidator
}

// NewTimetableSetupHandler constructs the handler.
func NewTimetableSetupHandler(svc *service.TimetableSetupService, catalog *service.TimetableCatalogService) *TimetableSetupHandler {
	return &TimetableSetupHandler{service: svc, catalog: catalog}
}

// Levels godoc
// @Summary Levels of active classes
// @Tags TimetableSetup
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable-admin/levels [get]
func (h *TimetableSetupHandler) Levels(c *gin.Context) {
	levels, err := h.service.ListLevels(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, levels)
}

// LevelSubjects godoc
// @Summary Weekly quotas of a level
// @Tags TimetableSetup
// @Produce json
// @Param level query string true "Level"
// @Success 200 {object} response.Envelope
// @Router /timetable-admin/level-subjects [get]
func (h *TimetableSetupHandler) LevelSubjects(c *gin.Context) {
	quotas, err := h.service.GetLevelQuotas(c.Request.Context(), dto.LevelQuery{Level: c.Query("level")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, quotas)
}

// SaveLevelSubjects godoc
// @Summary Upsert weekly quotas of a level
// @Tags TimetableSetup
// @Accept json
// @Produce json
// @Param payload body dto.SaveLevelQuotasRequest true "Quota lines"
// @Success 200 {object} response.Envelope
// @Router /timetable-admin/level-subjects [put]
func (h *TimetableSetupHandler) SaveLevelSubjects(c *gin.Context) {
	var req dto.SaveLevelQuotasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid level quota payload"))
		return
	}
	if err := h.service.SaveLevelQuotas(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	quotas, err := h.service.GetLevelQuotas(c.Request.Context(), dto.LevelQuery{Level: req.Level})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, quotas)
}

// TeacherSubjects godoc
// @Summary Subjects a teacher is qualified for
// @Tags TimetableSetup
// @Produce json
// @Param id path int true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /timetable-admin/teachers/{id}/subjects [get]
func (h *TimetableSetupHandler) TeacherSubjects(c *gin.Context) {
	h.listIDs(c, h.service.GetTeacherSubjects)
}

// ReplaceTeacherSubjects godoc
// @Summary Replace a teacher's qualifications
// @Tags TimetableSetup
// @Accept json
// @Produce json
// @Param id path int true "Teacher ID"
// @Param payload body dto.ReplaceTeacherSubjectsRequest true "Subject ids"
// @Success 200 {object} response.Envelope
// @Router /timetable-admin/teachers/{id}/subjects [put]
func (h *TimetableSetupHandler) ReplaceTeacherSubjects(c *gin.Context) {
	teacherID, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReplaceTeacherSubjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid teacher subjects payload"))
		return
	}
	ids, err := h.service.ReplaceTeacherSubjects(c.Request.Context(), teacherID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"teacherId": teacherID, "subjectIds": ids})
}

// TeacherClasses godoc
// @Summary Classes a teacher is assigned to
// @Tags TimetableSetup
// @Produce json
// @Param id path int true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /timetable-admin/teachers/{id}/classes [get]
func (h *TimetableSetupHandler) TeacherClasses(c *gin.Context) {
	h.listIDs(c, h.service.GetTeacherClasses)
}

// ReplaceTeacherClasses godoc
// @Summary Replace a teacher's class assignments
// @Tags TimetableSetup
// @Accept json
// @Produce json
// @Param id path int true "Teacher ID"
// @Param payload body dto.ReplaceTeacherClassesRequest true "Class ids"
// @Success 200 {object} response.Envelope
// @Router /timetable-admin/teachers/{id}/classes [put]
func (h *TimetableSetupHandler) ReplaceTeacherClasses(c *gin.Context) {
	teacherID, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReplaceTeacherClassesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid teacher classes payload"))
		return
	}
	ids, err := h.service.ReplaceTeacherClasses(c.Request.Context(), teacherID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"teacherId": teacherID, "classIds": ids})
}

// TeacherAvailability godoc
// @Summary A teacher's explicit availability overrides
// @Description Cells without an override are available.
// @Tags TimetableSetup
// @Produce json
// @Param id path int true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /timetable-admin/teachers/{id}/availability [get]
func (h *TimetableSetupHandler) TeacherAvailability(c *gin.Context) {
	teacherID, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.service.GetTeacherAvailability(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}

// ReplaceTeacherAvailability godoc
// @Summary Replace a teacher's availability overrides
// @Tags TimetableSetup
// @Accept json
// @Produce json
// @Param id path int true "Teacher ID"
// @Param payload body dto.ReplaceTeacherAvailabilityRequest true "Overrides"
// @Success 200 {object} response.Envelope
// @Router /timetable-admin/teachers/{id}/availability [put]
func (h *TimetableSetupHandler) ReplaceTeacherAvailability(c *gin.Context) {
	teacherID, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReplaceTeacherAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	rows, err := h.service.ReplaceTeacherAvailability(c.Request.Context(), teacherID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}

// AssignedSlots godoc
// @Summary Cells a teacher already occupies
// @Tags TimetableSetup
// @Produce json
// @Param id path int true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /timetable-admin/teachers/{id}/assigned-slots [get]
func (h *TimetableSetupHandler) AssignedSlots(c *gin.Context) {
	teacherID, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.AssignedSlots(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// FlushCache godoc
// @Summary Drop cached days, periods and study windows
// @Tags TimetableSetup
// @Success 204
// @Router /timetable-admin/cache [delete]
func (h *TimetableSetupHandler) FlushCache(c *gin.Context) {
	if h.catalog == nil {
		response.NoContent(c)
		return
	}
	if err := h.catalog.Invalidate(c.Request.Context()); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flush timetable cache"))
		return
	}
	response.NoContent(c)
}

func (h *TimetableSetupHandler) listIDs(c *gin.Context, load func(context.Context, int64) ([]int64, error)) {
	teacherID, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	ids, err := load(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ids)
}
