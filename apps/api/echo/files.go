package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

func (s *server) registerFileAPI(g *echo.Group) {
	g.GET("/uploads/:kind/:name", s.serveUpload)
}

// serveUpload streams a stored file. Lesson media is open to whoever may view the lesson's subject,
// submissions only to their owner and the staff who may see the assignment.
func (s *server) serveUpload(ctx echo.Context) error {
	kind, name := ctx.Param("kind"), ctx.Param("name")
	switch kind {
	case core.DirVideos, core.DirLessonFiles:
		ok, err := s.LessonSvc.CanAccessFile(ctx.Request().Context(), contextUser(ctx), name)
		if err != nil {
			return errors.Wrap(err, "checking lesson file access")
		}
		if !ok {
			return errHttpForbidden
		}
	case core.DirSubmissions:
		ok, err := s.CourseworkSvc.CanAccessSubmissionFile(ctx.Request().Context(), contextUser(ctx), name)
		if err != nil {
			return errors.Wrap(err, "checking submission access")
		}
		if !ok {
			return errHttpForbidden
		}
	default:
		return errHttpNotFound
	}

	path, err := s.Files.Path(kind, name)
	if err != nil {
		return errHttpNotFound
	}
	if err = ctx.File(path); err != nil {
		if he, ok := err.(*echo.HTTPError); ok && he.Code == http.StatusNotFound {
			return errHttpNotFound
		}
		return err
	}
	return nil
}
