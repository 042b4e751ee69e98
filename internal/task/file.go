package task

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

const fileMode = 0o600

// FileTask is a task as stored in a markdown export: YAML frontmatter with
// the description as the body. Column is the column name, so files can be
// imported into another board.
type FileTask struct {
	ID         string     `yaml:"id,omitempty"`
	Title      string     `yaml:"title"`
	Column     string     `yaml:"column,omitempty"`
	Status     Status     `yaml:"status,omitempty"`
	Priority   Priority   `yaml:"priority,omitempty"`
	Due        *time.Time `yaml:"due,omitempty"`
	Assignee   string     `yaml:"assignee,omitempty"`
	TimeSpent  int        `yaml:"time_minutes,omitempty"`
	Created    time.Time  `yaml:"created,omitempty"`
	Updated    time.Time  `yaml:"updated,omitempty"`
	Body       string     `yaml:"-"`
	SourceFile string     `yaml:"-"`
}

// ToFile converts t for export. column is the name of t's column.
func ToFile(t Task, column string) FileTask {
	return FileTask{
		ID:        t.ID,
		Title:     t.Title,
		Column:    column,
		Status:    t.Status,
		Priority:  t.Priority,
		Due:       t.DueDate,
		Assignee:  t.AssigneeID,
		TimeSpent: t.TotalTimeMinutes,
		Created:   t.CreatedAt,
		Updated:   t.UpdatedAt,
		Body:      t.Description,
	}
}

// Fields returns the create inputs for importing f into boardID/columnID.
func (f FileTask) Fields(boardID, columnID string) Fields {
	return Fields{
		BoardID:     boardID,
		ColumnID:    columnID,
		Title:       f.Title,
		Description: f.Body,
		Priority:    f.Priority,
		DueDate:     f.Due,
		AssigneeID:  f.Assignee,
	}
}

// ReadFile parses a task file.
func ReadFile(path string) (FileTask, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path chosen by the user
	if err != nil {
		return FileTask{}, fmt.Errorf("reading task file: %w", err)
	}

	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return FileTask{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	var f FileTask
	if err := yaml.Unmarshal(fm, &f); err != nil {
		return FileTask{}, fmt.Errorf("parsing frontmatter in %s: %w", path, err)
	}
	if strings.TrimSpace(f.Title) == "" {
		return FileTask{}, fmt.Errorf("%s: title is missing", path)
	}
	f.Body = strings.TrimRight(body, "\n")
	f.SourceFile = path
	return f, nil
}

// WriteFile serializes f to a markdown file with YAML frontmatter.
func WriteFile(path string, f FileTask) error {
	fm, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n")
	if f.Body != "" {
		buf.WriteString("\n")
		buf.WriteString(f.Body)
		if !strings.HasSuffix(f.Body, "\n") {
			buf.WriteString("\n")
		}
	}

	return os.WriteFile(path, buf.Bytes(), fileMode)
}

// splitFrontmatter splits a markdown file into YAML frontmatter and body.
// The file must start with "---\n".
func splitFrontmatter(data []byte) ([]byte, string, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")

	if !strings.HasPrefix(content, "---\n") {
		return nil, "", errors.New("file does not start with YAML frontmatter (---)")
	}

	rest := content[4:]
	idx := strings.Index(rest, "\n---\n")
	if idx < 0 {
		if !strings.HasSuffix(rest, "\n---") {
			return nil, "", errors.New("unclosed frontmatter (missing closing ---)")
		}
		idx = len(rest) - len("\n---")
	}

	fm := rest[:idx]
	body := ""
	if end := idx + len("\n---\n"); end < len(rest) {
		body = strings.TrimLeft(rest[end:], "\n")
	}
	return []byte(fm), body, nil
}
