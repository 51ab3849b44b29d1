package echoapi

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/payment"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/services/spreadsheet"
)

func (s *server) registerPaymentAPI(g *echo.Group) {
	viewers := rolesMiddleware(user.RoleAdmin, user.RoleDean, user.RoleAccounting)
	recorders := rolesMiddleware(user.RoleAdmin, user.RoleAccounting)

	pg := g.Group("/payments")
	pg.GET("", s.queryPayments, viewers)
	pg.POST("", s.createPayment, recorders)
	pg.GET("/stats", s.paymentStats, viewers)
	pg.GET("/export", s.exportContracts, viewers)
	pg.POST("/import", s.importPayments, recorders)
	pg.GET("/import/sample", s.paymentImportSample, recorders)
	// students may read their own summary
	pg.GET("/students/:id", s.studentPayments)
}

func listFilter(ctx echo.Context) payment.ListFilter {
	return payment.ListFilter{
		Search:     core.CleanString(ctx.QueryParam("search")),
		GroupID:    queryInt(ctx, "group"),
		FacultyID:  queryInt(ctx, "faculty"),
		CourseYear: queryInt(ctx, "course"),
	}
}

func (s *server) queryPayments(ctx echo.Context) error {
	rows, err := s.PaymentSvc.List(ctx.Request().Context(), contextUser(ctx), listFilter(ctx))
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if rows == nil {
		rows = []payment.Row{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (s *server) createPayment(ctx echo.Context) error {
	var data payment.Form
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to payment.Form")
	}
	p, err := s.PaymentSvc.Create(ctx.Request().Context(), contextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (s *server) paymentStats(ctx echo.Context) error {
	st, err := s.PaymentSvc.Stats(ctx.Request().Context(), contextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "computing payment stats")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (s *server) studentPayments(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	sum, err := s.PaymentSvc.StudentSummary(ctx.Request().Context(), contextUser(ctx), id)
	if err != nil {
		return errors.Wrap(err, "summarizing student payments")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (s *server) importPayments(ctx echo.Context) error {
	up, closeFn, err := s.spreadsheetUpload(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	rows, problems, err := spreadsheet.ReadPayments(up.Content)
	if err != nil {
		return err
	}
	res, err := s.PaymentSvc.Import(ctx.Request().Context(), contextUser(ctx), rows)
	if err != nil {
		return errors.Wrap(err, "importing payments")
	}
	return ctx.JSON(http.StatusOK, mergeImportProblems(res, problems))
}

func (s *server) paymentImportSample(ctx echo.Context) error {
	return xlsx(ctx, "payments_import_sample.xlsx", spreadsheet.WritePaymentSample)
}

// exportContracts writes the filtered payment list, the filters naming the file.
func (s *server) exportContracts(ctx echo.Context) error {
	f := listFilter(ctx)
	rows, err := s.PaymentSvc.List(ctx.Request().Context(), contextUser(ctx), f)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}

	var parts []string
	if f.FacultyID != 0 {
		if fac, err := s.AcademicsSvc.GetFaculty(ctx.Request().Context(), f.FacultyID); err == nil {
			parts = append(parts, fac.Code)
		}
	}
	if f.GroupID != 0 {
		if g, err := s.AcademicsSvc.GetGroup(ctx.Request().Context(), f.GroupID); err == nil {
			parts = append(parts, g.Name)
		}
	}
	return xlsx(ctx, spreadsheet.Filename("contracts", time.Now(), parts...), func(w io.Writer) error {
		return spreadsheet.WriteContracts(w, rows)
	})
}
