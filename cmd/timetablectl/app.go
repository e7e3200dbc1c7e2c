package main

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/el-siradj/SCHOOL/internal/repository"
	"github.com/el-siradj/SCHOOL/internal/service"
	"github.com/el-siradj/SCHOOL/pkg/config"
	"github.com/el-siradj/SCHOOL/pkg/database"
	"github.com/el-siradj/SCHOOL/pkg/export"
	"github.com/el-siradj/SCHOOL/pkg/logger"
)

// app holds what the commands share. Database-backed services are built on first use so that
// commands like "token" run without Postgres.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB

	planner *service.TimetablePlannerService
	slots   *service.TimetableSlotService
	export  *service.ExportService
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &app{cfg: cfg, logger: logr}, nil
}

func (a *app) connect() error {
	if a.db != nil {
		return nil
	}
	db, err := database.NewPostgres(a.cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	a.db = db

	validate := validator.New()
	catalogRepo := repository.NewTimetableCatalogRepository(db)
	quotaRepo := repository.NewTimetableQuotaRepository(db)
	capabilityRepo := repository.NewTimetableCapabilityRepository(db)
	slotRepo := repository.NewTimetableSlotRepository(db)
	catalog := service.NewTimetableCatalogService(catalogRepo, nil, 0, a.logger)

	a.planner = service.NewTimetablePlannerService(catalog, quotaRepo, capabilityRepo, slotRepo, db, nil, validate, a.logger, service.TimetablePlannerConfig{
		MaxSameSubjectPerDay: a.cfg.Timetable.MaxSameSubjectPerDay,
	})
	a.slots = service.NewTimetableSlotService(catalog, service.NewPlacementValidator(catalog, capabilityRepo, slotRepo), slotRepo, db, nil, validate, a.logger)
	a.export = service.NewExportService(catalog, slotRepo, service.ExportConfig{TitlePrefix: a.cfg.Timetable.ExportTitlePrefix}, a.logger, export.NewCSVExporter(), export.NewPDFExporter())
	return nil
}

func (a *app) close() {
	if a == nil {
		return
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	_ = a.logger.Sync()
}
