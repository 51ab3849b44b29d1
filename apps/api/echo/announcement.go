package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/announcement"
	"github.com/trezcool/campus/core/user"
)

func (s *server) registerAnnouncementAPI(g *echo.Group) {
	authors := rolesMiddleware(user.RoleAdmin, user.RoleDean)

	ag := g.Group("/announcements")
	ag.GET("", s.queryAnnouncements)
	ag.POST("", s.createAnnouncement, authors)
	ag.DELETE("/:id", s.destroyAnnouncement, authors)
}

func (s *server) queryAnnouncements(ctx echo.Context) error {
	list, err := s.AnnouncementSvc.List(ctx.Request().Context(), contextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	if list == nil {
		list = []announcement.Announcement{}
	}
	return ctx.JSON(http.StatusOK, list)
}

func (s *server) createAnnouncement(ctx echo.Context) error {
	var data announcement.Form
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to announcement.Form")
	}
	a, err := s.AnnouncementSvc.Create(ctx.Request().Context(), contextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating announcement")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (s *server) destroyAnnouncement(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	if err = s.AnnouncementSvc.Delete(ctx.Request().Context(), contextUser(ctx), id); err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	return ctx.NoContent(http.StatusNoContent)
}
