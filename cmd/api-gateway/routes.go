package main

import (
	"github.com/gin-gonic/gin"

	"github.com/el-siradj/SCHOOL/internal/handler"
	internalmiddleware "github.com/el-siradj/SCHOOL/internal/middleware"
)

type routeDeps struct {
	prefix       string
	tokens       internalmiddleware.TokenValidator
	plannerRoles []string
	setupRoles   []string

	metrics *handler.MetricsHandler
	planner *handler.TimetablePlannerHandler
	slots   *handler.TimetableSlotHandler
	views   *handler.TimetableExportHandler
	setup   *handler.TimetableSetupHandler
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	r.GET("/health", d.metrics.Health)
	r.GET("/ready", d.metrics.Ready)
	r.GET("/metrics", d.metrics.Prometheus)

	api := r.Group(d.prefix)
	api.Use(internalmiddleware.WithResponseMeta(), internalmiddleware.JWT(d.tokens))

	timetable := api.Group("/timetable", internalmiddleware.RBAC(d.plannerRoles...))
	{
		timetable.GET("/planner/class/:classId", d.planner.Planner)
		timetable.GET("/planner/suggestions", d.planner.Suggestions)
		timetable.POST("/planner/autofill/class/:classId", d.planner.Autofill)
		timetable.DELETE("/planner/class/:classId/slots", d.slots.ClearClass)

		timetable.POST("/slots", d.slots.Create)
		timetable.DELETE("/slots/:id", d.slots.Delete)

		timetable.GET("/class/:classId/view", d.views.ClassView)
		timetable.GET("/class/:classId/export", d.views.ClassExport)
		timetable.GET("/teacher/:teacherId/view", d.views.TeacherView)
		timetable.GET("/teacher/:teacherId/export", d.views.TeacherExport)
	}

	admin := api.Group("/timetable-admin", internalmiddleware.RBAC(d.setupRoles...))
	{
		admin.GET("/levels", d.setup.Levels)
		admin.GET("/level-subjects", d.setup.LevelSubjects)
		admin.PUT("/level-subjects", d.setup.SaveLevelSubjects)
		admin.GET("/teachers/:id/subjects", d.setup.TeacherSubjects)
		admin.PUT("/teachers/:id/subjects", d.setup.ReplaceTeacherSubjects)
		admin.GET("/teachers/:id/classes", d.setup.TeacherClasses)
		admin.PUT("/teachers/:id/classes", d.setup.ReplaceTeacherClasses)
		admin.GET("/teachers/:id/availability", d.setup.TeacherAvailability)
		admin.PUT("/teachers/:id/availability", d.setup.ReplaceTeacherAvailability)
		admin.GET("/teachers/:id/assigned-slots", d.setup.AssignedSlots)
		admin.DELETE("/cache", d.setup.FlushCache)
	}
}
