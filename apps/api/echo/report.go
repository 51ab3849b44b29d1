package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

func (s *server) registerReportAPI(g *echo.Group) {
	g.GET("/dashboard/stats", s.dashboardStats)
	g.GET("/reports/faculty", s.facultyReport)
}

// dashboardStats is empty for everyone but admins.
func (s *server) dashboardStats(ctx echo.Context) error {
	stats, err := s.ReportSvc.DashboardStats(ctx.Request().Context(), contextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "computing dashboard stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

// facultyReport defaults to the dean's own faculty.
func (s *server) facultyReport(ctx echo.Context) error {
	facultyID := queryInt(ctx, "faculty_id")
	if facultyID == 0 {
		facultyID = contextUser(ctx).FacultyID
	}
	rep, err := s.ReportSvc.FacultyReport(ctx.Request().Context(), contextUser(ctx), facultyID)
	if err != nil {
		return errors.Wrap(err, "building faculty report")
	}
	return ctx.JSON(http.StatusOK, rep)
}
