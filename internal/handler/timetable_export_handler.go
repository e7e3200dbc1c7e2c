package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/el-siradj/SCHOOL/internal/dto"
	"github.com/el-siradj/SCHOOL/internal/service"
	appErrors "github.com/el-siradj/SCHOOL/pkg/errors"
	"github.com/el-siradj/SCHOOL/pkg/response"
)

type timetableViewer interface {
	ClassView(ctx context.Context, classID int64) (*dto.TimetableView, error)
	TeacherView(ctx context.Context, teacherID int64) (*dto.TimetableView, error)
	Export(ctx context.Context, kind string, ownerID int64, format string) (*dto.ExportFile, error)
}

// TimetableExportHandler serves read-only weekly grids and their printable exports.
type TimetableExportHandler struct {
	service timetableViewer
}

// NewTimetableExportHandler constructs the handler.
func NewTimetableExportHandler(svc *service.ExportService) *TimetableExportHandler {
	return &TimetableExportHandler{service: svc}
}

// ClassView godoc
// @Summary Weekly grid of a class
// @Tags TimetableViews
// @Produce json
// @Param classId path int true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/class/{classId}/view [get]
func (h *TimetableExportHandler) ClassView(c *gin.Context) {
	h.view(c, "classId", h.service.ClassView)
}

// TeacherView godoc
// @Summary Weekly grid of a teacher
// @Tags TimetableViews
// @Produce json
// @Param teacherId path int true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/teacher/{teacherId}/view [get]
func (h *TimetableExportHandler) TeacherView(c *gin.Context) {
	h.view(c, "teacherId", h.service.TeacherView)
}

// ClassExport godoc
// @Summary Download a class grid
// @Tags TimetableViews
// @Produce application/pdf
// @Produce text/csv
// @Param classId path int true "Class ID"
// @Param format query string false "pdf (default) or csv"
// @Success 200 {file} file
// @Router /timetable/class/{classId}/export [get]
func (h *TimetableExportHandler) ClassExport(c *gin.Context) {
	h.export(c, "classId", dto.ViewKindClass)
}

// TeacherExport godoc
// @Summary Download a teacher grid
// @Tags TimetableViews
// @Produce application/pdf
// @Produce text/csv
// @Param teacherId path int true "Teacher ID"
// @Param format query string false "pdf (default) or csv"
// @Success 200 {file} file
// @Router /timetable/teacher/{teacherId}/export [get]
func (h *TimetableExportHandler) TeacherExport(c *gin.Context) {
	h.export(c, "teacherId", dto.ViewKindTeacher)
}

func (h *TimetableExportHandler) view(c *gin.Context, param string, load func(context.Context, int64) (*dto.TimetableView, error)) {
	id, err := parseIDParam(c, param)
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := load(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

func (h *TimetableExportHandler) export(c *gin.Context, param, kind string) {
	id, err := parseIDParam(c, param)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	file, err := h.service.Export(c.Request.Context(), kind, id, query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
