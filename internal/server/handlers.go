package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/twiced-technology-gmbh/taskboard/internal/api"
	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// checkBoard returns BOARD_NOT_FOUND for boards the user cannot see and a
// 403 when edit is requested on a read-only board.
func (s *Server) checkBoard(c echo.Context, boardID string, edit bool) error {
	acc, err := s.store.BoardAccess(c.Request().Context(), userID(c), boardID)
	if err != nil {
		return err
	}
	if !acc.Member {
		return boardNotFound(boardID)
	}
	if edit && !acc.CanEdit {
		return forbidden("board %s is read-only", boardID)
	}
	return nil
}

// loadTask fetches the task named by the id path parameter and checks access.
// Tasks on boards the user cannot see are TASK_NOT_FOUND.
func (s *Server) loadTask(c echo.Context, edit bool) (task.Task, error) {
	id := c.Param("id")
	t, err := s.store.GetTask(c.Request().Context(), id)
	if err != nil {
		return task.Task{}, err
	}
	if err := s.checkBoard(c, t.BoardID, edit); err != nil {
		if clierr.CodeOf(err) == clierr.BoardNotFound {
			return task.Task{}, task.NotFound(id)
		}
		return task.Task{}, err
	}
	return t, nil
}

func (s *Server) listBoards(c echo.Context) error {
	ctx := c.Request().Context()
	if err := s.store.EnsureDefaultBoard(ctx, userID(c)); err != nil {
		return err
	}
	boards, err := s.store.ListBoards(ctx, userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(boards))
}

func (s *Server) shareBoard(c echo.Context) error {
	boardID := c.Param("id")
	acc, err := s.store.BoardAccess(c.Request().Context(), userID(c), boardID)
	if err != nil {
		return err
	}
	if !acc.Member {
		return boardNotFound(boardID)
	}
	if !acc.Owner {
		return forbidden("only the owner can share board %s", boardID)
	}
	var req api.ShareRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.UserID) == "" {
		return badRequest("user_id is required")
	}
	if err := s.store.ShareBoard(c.Request().Context(), boardID, req.UserID, req.CanEdit); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listTasks(c echo.Context) error {
	boardID := c.Param("id")
	if err := s.checkBoard(c, boardID, false); err != nil {
		return err
	}
	all := false
	if v := c.QueryParam("include_completed"); v != "" {
		var err error
		if all, err = strconv.ParseBool(v); err != nil {
			return badRequest("invalid include_completed %q", v)
		}
	}
	tasks, err := s.store.ListTasks(c.Request().Context(), boardID, all)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(tasks))
}

func (s *Server) createTask(c echo.Context) error {
	var f task.Fields
	if err := decodeBody(c, &f); err != nil {
		return err
	}
	if err := task.ValidateFields(f); err != nil {
		return err
	}
	if err := s.checkBoard(c, f.BoardID, true); err != nil {
		return err
	}
	t, err := s.store.CreateTask(c.Request().Context(), userID(c), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (s *Server) updateTask(c echo.Context) error {
	var p task.Patch
	if err := decodeBody(c, &p); err != nil {
		return err
	}
	if err := task.ValidatePatch(p); err != nil {
		return err
	}
	t, err := s.loadTask(c, true)
	if err != nil {
		return err
	}
	t, err = s.store.UpdateTask(c.Request().Context(), userID(c), t.ID, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) deleteTask(c echo.Context) error {
	t, err := s.loadTask(c, true)
	if err != nil {
		return err
	}
	if _, err := s.store.DeleteTask(c.Request().Context(), t.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) completeTask(c echo.Context) error {
	t, err := s.loadTask(c, true)
	if err != nil {
		return err
	}
	t, err = s.store.CompleteTask(c.Request().Context(), userID(c), t.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) moveTask(c echo.Context) error {
	var req api.MoveRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if req.ColumnID == "" {
		return badRequest("column_id is required")
	}
	if req.Index < 0 {
		return badRequest("index must not be negative, got %d", req.Index)
	}
	t, err := s.loadTask(c, true)
	if err != nil {
		return err
	}
	if _, err := s.store.MoveTask(c.Request().Context(), userID(c), t.ID, task.Placement{
		ColumnID: req.ColumnID, Index: req.Index, IncludeCompleted: req.IncludeCompleted,
	}); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) assignTask(c echo.Context) error {
	var req api.AssignRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	t, err := s.loadTask(c, true)
	if err != nil {
		return err
	}
	t, err = s.store.AssignTask(c.Request().Context(), userID(c), t.ID, req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) listComments(c echo.Context) error {
	t, err := s.loadTask(c, false)
	if err != nil {
		return err
	}
	comments, err := s.store.ListComments(c.Request().Context(), t.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(comments))
}

func (s *Server) createComment(c echo.Context) error {
	var req api.CommentRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if err := task.ValidateComment(req.Content); err != nil {
		return err
	}
	t, err := s.loadTask(c, false)
	if err != nil {
		return err
	}
	cm, err := s.store.CreateComment(c.Request().Context(), userID(c), t.ID, req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cm)
}

func (s *Server) listActivity(c echo.Context) error {
	t, err := s.loadTask(c, false)
	if err != nil {
		return err
	}
	entries, err := s.store.ListActivity(c.Request().Context(), t.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(entries))
}

func (s *Server) listTimeEntries(c echo.Context) error {
	t, err := s.loadTask(c, false)
	if err != nil {
		return err
	}
	entries, err := s.store.ListTimeEntries(c.Request().Context(), t.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(entries))
}

func (s *Server) createTimeEntry(c echo.Context) error {
	var req api.TimeEntryRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if err := task.ValidateMinutes(req.Minutes); err != nil {
		return err
	}
	t, err := s.loadTask(c, true)
	if err != nil {
		return err
	}
	e, err := s.store.CreateTimeEntry(c.Request().Context(), userID(c), t.ID, req.Minutes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, e)
}

func (s *Server) startTimer(c echo.Context) error {
	t, err := s.loadTask(c, true)
	if err != nil {
		return err
	}
	e, err := s.store.StartTimer(c.Request().Context(), userID(c), t.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, e)
}

func (s *Server) stopTimer(c echo.Context) error {
	e, err := s.store.StopTimer(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (s *Server) runningTimer(c echo.Context) error {
	e, err := s.store.RunningTimer(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	if e == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, e)
}

func (s *Server) getCalendarToken(c echo.Context) error {
	tok, err := s.store.CalendarToken(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	if tok == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, tok)
}

func (s *Server) regenerateCalendarToken(c echo.Context) error {
	tok, err := s.store.RegenerateCalendarToken(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tok)
}

func boardNotFound(id string) error {
	return clierr.Newf(clierr.BoardNotFound, "board %s not found", id).
		WithDetails(map[string]any{"board_id": id})
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
