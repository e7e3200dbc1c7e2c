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

type timetableSlotManager interface {
	Create(ctx context.Context, req dto.CreateSlotRequest) (*models.TimetableSlot, error)
	Delete(ctx context.Context, id int64) error
	ClearClass(ctx context.Context, classID int64) (*dto.ClearClassResult, error)
}

// TimetableSlotHandler exposes manual slot placement.
type TimetableSlotHandler struct {
	service timetableSlotManager
}

// NewTimetableSlotHandler constructs the handler.
func NewTimetableSlotHandler(svc *service.TimetableSlotService) *TimetableSlotHandler {
	return &TimetableSlotHandler{service: svc}
}

// Create godoc
// @Summary Place one session
// @Description Rejected placements name the failed check: NOT_FOUND, INACTIVE_ENTITY, NOT_IN_STUDY_WINDOW, TEACHER_NOT_ELIGIBLE, TEACHER_UNAVAILABLE or SLOT_CONFLICT.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.CreateSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetable/slots [post]
func (h *TimetableSlotHandler) Create(c *gin.Context) {
	var req dto.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}
	req.CreatedBy = actorFromContext(c)

	slot, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// Delete godoc
// @Summary Delete one slot
// @Tags Timetable
// @Param id path int true "Slot ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /timetable/slots/{id} [delete]
func (h *TimetableSlotHandler) Delete(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ClearClass godoc
// @Summary Delete every slot of a class
// @Tags Timetable
// @Produce json
// @Param classId path int true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/planner/class/{classId}/slots [delete]
func (h *TimetableSlotHandler) ClearClass(c *gin.Context) {
	classID, err := parseIDParam(c, "classId")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.ClearClass(c.Request.Context(), classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
