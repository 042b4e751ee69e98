package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/twiced-technology-gmbh/taskboard/internal/calfeed"
	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
)

const feedName = "Taskboard"

// calendarFeed serves GET /calendar/{token}.ics without authentication.
// The token is the credential; unknown or rotated tokens are 404.
func (s *Server) calendarFeed(c echo.Context) error {
	token, ok := calfeed.TokenFromPath(c.Param("file"))
	if !ok {
		return clierr.New(clierr.NotFound, "calendar feed not found")
	}
	ctx := c.Request().Context()
	user, err := s.store.UserForCalendarToken(ctx, token)
	if err != nil {
		return err
	}
	tasks, err := s.store.FeedTasks(ctx, user)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8",
		[]byte(calfeed.Render(feedName, tasks, time.Now())))
}
