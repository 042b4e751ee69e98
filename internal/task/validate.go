package task

import (
	"strings"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
)

// MaxTitleLength bounds task titles.
const MaxTitleLength = 200

// ValidateStatus checks that a status is one of Statuses.
func ValidateStatus(status Status) error {
	for _, s := range Statuses {
		if s == status {
			return nil
		}
	}
	return clierr.Newf(clierr.InvalidStatus, "invalid status %q", status).
		WithDetails(map[string]any{
			"status":  status,
			"allowed": Statuses,
		})
}

// ValidatePriority checks that a priority is one of Priorities.
func ValidatePriority(priority Priority) error {
	if priority.Rank() >= 0 {
		return nil
	}
	return clierr.Newf(clierr.InvalidPriority, "invalid priority %q", priority).
		WithDetails(map[string]any{
			"priority": priority,
			"allowed":  Priorities,
		})
}

// ValidateTitle rejects empty and oversized titles.
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return clierr.New(clierr.InvalidInput, "title must not be empty").
			WithDetails(map[string]any{"field": "title"})
	}
	if len(title) > MaxTitleLength {
		return clierr.Newf(clierr.InvalidInput, "title exceeds %d characters", MaxTitleLength).
			WithDetails(map[string]any{"field": "title", "length": len(title)})
	}
	return nil
}

// ValidateMinutes rejects non-positive manual durations.
func ValidateMinutes(minutes int) error {
	if minutes <= 0 {
		return clierr.Newf(clierr.InvalidInput, "minutes must be positive, got %d", minutes).
			WithDetails(map[string]any{"field": "minutes", "value": minutes})
	}
	return nil
}

// ValidateComment rejects blank comments.
func ValidateComment(content string) error {
	if strings.TrimSpace(content) == "" {
		return clierr.New(clierr.InvalidInput, "comment must not be empty").
			WithDetails(map[string]any{"field": "content"})
	}
	return nil
}

// ValidateFields checks the inputs of a create call.
func ValidateFields(f Fields) error {
	if f.BoardID == "" {
		return clierr.New(clierr.InvalidInput, "board id is required").
			WithDetails(map[string]any{"field": "board_id"})
	}
	if err := ValidateTitle(f.Title); err != nil {
		return err
	}
	if f.Priority != "" {
		return ValidatePriority(f.Priority)
	}
	return nil
}

// ValidatePatch checks a partial update.
func ValidatePatch(p Patch) error {
	if p.Empty() {
		return clierr.New(clierr.NoChanges, "no fields to update")
	}
	if p.Title != nil {
		if err := ValidateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Priority != nil {
		if err := ValidatePriority(*p.Priority); err != nil {
			return err
		}
	}
	if p.Status != nil {
		if err := ValidateStatus(*p.Status); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDate returns an error for invalid date input.
func ValidateDate(field, input string, err error) *clierr.Error {
	return clierr.Newf(clierr.InvalidDate, "invalid %s date: %v", field, err).
		WithDetails(map[string]any{
			"field": field,
			"input": input,
		})
}

// ValidateTaskID returns an error for an empty or malformed task id.
func ValidateTaskID(input string) *clierr.Error {
	return clierr.Newf(clierr.InvalidTaskID, "invalid task ID %q", input).
		WithDetails(map[string]any{"input": input})
}

// NotFound returns the error for a task id that no longer exists.
func NotFound(id string) *clierr.Error {
	return clierr.Newf(clierr.TaskNotFound, "task %s not found", id).
		WithDetails(map[string]any{"id": id})
}

// WIPWarning describes a column that is over its advisory limit.
func WIPWarning(column string, limit, current int) *clierr.Error {
	return clierr.Newf(clierr.WIPLimitExceeded,
		"WIP limit exceeded for %q (%d/%d)", column, current, limit).
		WithDetails(map[string]any{
			"column":  column,
			"limit":   limit,
			"current": current,
		})
}
