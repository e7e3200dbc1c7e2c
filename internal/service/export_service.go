package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/el-siradj/SCHOOL/internal/dto"
	"github.com/el-siradj/SCHOOL/internal/models"
	appErrors "github.com/el-siradj/SCHOOL/pkg/errors"
	"github.com/el-siradj/SCHOOL/pkg/export"
)

type viewCatalog interface {
	GetClass(ctx context.Context, id int64) (*models.Class, error)
	GetTeacher(ctx context.Context, id int64) (*models.Teacher, error)
	ListActiveDays(ctx context.Context) ([]models.Day, error)
	ListActivePeriods(ctx context.Context) ([]models.Period, error)
}

type viewSlotReader interface {
	ListDetailsByClass(ctx context.Context, classID int64) ([]models.TimetableSlotDetail, error)
	ListDetailsByTeacher(ctx context.Context, teacherID int64) ([]models.TimetableSlotDetail, error)
}

type csvRenderer interface {
	Render(grid export.Grid) ([]byte, error)
}

type pdfRenderer interface {
	Render(grid export.Grid) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	TitlePrefix string
}

// ExportService renders read-only weekly grids for a class or a teacher.
type ExportService struct {
	catalog viewCatalog
	slots   viewSlotReader
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(catalog viewCatalog, slots viewSlotReader, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TitlePrefix == "" {
		cfg.TitlePrefix = "Timetable"
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		catalog: catalog,
		slots:   slots,
		csv:     csv,
		pdf:     pdf,
		logger:  logger,
		cfg:     cfg,
	}
}

// ClassView returns the weekly grid of a class. Inactive classes can still be viewed.
func (s *ExportService) ClassView(ctx context.Context, classID int64) (*dto.TimetableView, error) {
	class, err := loadClass(ctx, s.catalog, classID)
	if err != nil {
		return nil, err
	}
	view := &dto.TimetableView{
		Kind:    dto.ViewKindClass,
		OwnerID: class.ID,
		Title:   fmt.Sprintf("%s - %s", s.cfg.TitlePrefix, class.Name),
	}
	if err := s.fill(ctx, view, func(ctx context.Context) ([]models.TimetableSlotDetail, error) {
		return s.slots.ListDetailsByClass(ctx, classID)
	}); err != nil {
		return nil, err
	}
	return view, nil
}

// TeacherView returns the weekly grid of a teacher across all classes.
func (s *ExportService) TeacherView(ctx context.Context, teacherID int64) (*dto.TimetableView, error) {
	teacher, err := s.catalog.GetTeacher(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	view := &dto.TimetableView{
		Kind:    dto.ViewKindTeacher,
		OwnerID: teacher.ID,
		Title:   fmt.Sprintf("%s - %s", s.cfg.TitlePrefix, teacher.FullName),
	}
	if err := s.fill(ctx, view, func(ctx context.Context) ([]models.TimetableSlotDetail, error) {
		return s.slots.ListDetailsByTeacher(ctx, teacherID)
	}); err != nil {
		return nil, err
	}
	return view, nil
}

// Export renders the class or teacher grid as PDF (default) or CSV.
func (s *ExportService) Export(ctx context.Context, kind string, ownerID int64, format string) (*dto.ExportFile, error) {
	var (
		view *dto.TimetableView
		err  error
	)
	switch kind {
	case dto.ViewKindClass:
		view, err = s.ClassView(ctx, ownerID)
	case dto.ViewKindTeacher:
		view, err = s.TeacherView(ctx, ownerID)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported view kind %s", kind))
	}
	if err != nil {
		return nil, err
	}

	grid := BuildGrid(view)
	file := &dto.ExportFile{}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", dto.ExportFormatPDF:
		file.Content, err = s.pdf.Render(grid)
		file.ContentType = "application/pdf"
		file.Filename = buildFilename(view, dto.ExportFormatPDF)
	case dto.ExportFormatCSV:
		file.Content, err = s.csv.Render(grid)
		file.ContentType = "text/csv"
		file.Filename = buildFilename(view, dto.ExportFormatCSV)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}

	s.logger.Debug("timetable exported",
		zap.String("kind", kind),
		zap.Int64("owner_id", ownerID),
		zap.String("filename", file.Filename),
		zap.Int("bytes", len(file.Content)),
	)
	return file, nil
}

func (s *ExportService) fill(ctx context.Context, view *dto.TimetableView, load func(context.Context) ([]models.TimetableSlotDetail, error)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { view.Days, err = s.catalog.ListActiveDays(gctx); return })
	g.Go(func() (err error) { view.Periods, err = s.catalog.ListActivePeriods(gctx); return })
	g.Go(func() (err error) { view.Slots, err = load(gctx); return })
	if err := g.Wait(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable view")
	}
	if view.Slots == nil {
		view.Slots = []models.TimetableSlotDetail{}
	}
	return nil
}

// BuildGrid lays a view out as periods by days. Slots on inactive days or periods are not shown.
func BuildGrid(view *dto.TimetableView) export.Grid {
	grid := export.Grid{
		Title:     view.Title,
		Columns:   make([]string, 0, len(view.Days)),
		RowLabels: make([]string, 0, len(view.Periods)),
		Cells:     make([][]string, len(view.Periods)),
	}
	col := make(map[int64]int, len(view.Days))
	for i, day := range view.Days {
		col[day.ID] = i
		grid.Columns = append(grid.Columns, day.Label)
	}
	row := make(map[int64]int, len(view.Periods))
	for i, period := range view.Periods {
		row[period.ID] = i
		grid.RowLabels = append(grid.RowLabels, period.Label())
		grid.Cells[i] = make([]string, len(view.Days))
	}
	for _, slot := range view.Slots {
		r, okRow := row[slot.PeriodID]
		c, okCol := col[slot.DayID]
		if !okRow || !okCol {
			continue
		}
		second := slot.TeacherName
		if view.Kind == dto.ViewKindTeacher {
			second = slot.ClassName
		}
		grid.Cells[r][c] = slot.SubjectName + "\n" + second
	}
	return grid
}

func buildFilename(view *dto.TimetableView, format string) string {
	return fmt.Sprintf("timetable_%s_%s.%s", strings.ToLower(view.Kind), sanitizeFilename(view.Title), format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
