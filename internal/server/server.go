// Package server is the HTTP API behind the task board client, plus the
// public calendar feed.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
)

const (
	maxBodySize = 1 << 20
	userKey     = "user_id"
)

// Server serves the board API over echo.
type Server struct {
	echo  *echo.Echo
	store Storage
	auth  Authenticator
	log   *log.Entry
}

// New wires every route onto a fresh echo instance.
func New(store Storage, auth Authenticator, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = sonicSerializer{}

	s := &Server{echo: e, store: store, auth: auth, log: logger.WithField("component", "server")}
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(s.requestLogger())
	s.routes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.log.WithField("addr", addr).Info("listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.healthz)
	s.echo.GET("/calendar/:file", s.calendarFeed)

	api := s.echo.Group("/api", s.authenticate)
	api.GET("/boards", s.listBoards)
	api.POST("/boards/:id/members", s.shareBoard)
	api.GET("/boards/:id/tasks", s.listTasks)

	api.POST("/tasks", s.createTask)
	api.PATCH("/tasks/:id", s.updateTask)
	api.DELETE("/tasks/:id", s.deleteTask)
	api.POST("/tasks/:id/complete", s.completeTask)
	api.POST("/tasks/:id/move", s.moveTask)
	api.PUT("/tasks/:id/assignee", s.assignTask)
	api.GET("/tasks/:id/comments", s.listComments)
	api.POST("/tasks/:id/comments", s.createComment)
	api.GET("/tasks/:id/activity", s.listActivity)

	api.GET("/tasks/:id/time-entries", s.listTimeEntries)
	api.POST("/tasks/:id/time-entries", s.createTimeEntry)
	api.POST("/tasks/:id/timer", s.startTimer)
	api.POST("/time-entries/:id/stop", s.stopTimer)
	api.GET("/timer", s.runningTimer)

	api.GET("/calendar/token", s.getCalendarToken)
	api.POST("/calendar/token", s.regenerateCalendarToken)
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := s.auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(err)
		}
		c.Set(userKey, userID)
		return next(c)
	}
}

func userID(c echo.Context) string {
	id, _ := c.Get(userKey).(string)
	return id
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := s.log.WithFields(log.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.Round(time.Microsecond).String(),
			})
			if u := userID(c); u != "" {
				entry = entry.WithField("user", u)
			}
			if v.Error != nil {
				entry.WithError(v.Error).Info("request")
				return nil
			}
			entry.Debug("request")
			return nil
		},
	})
}

// decodeBody reads a JSON request body into v, rejecting unknown fields.
func decodeBody(c echo.Context, v any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is required")
		}
		return badRequest("invalid body: %v", err)
	}
	return nil
}

type sonicSerializer struct{}

func (sonicSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := sonic.ConfigStd.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (sonicSerializer) Deserialize(c echo.Context, i any) error {
	if err := sonic.ConfigStd.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body").SetInternal(err)
	}
	return nil
}
