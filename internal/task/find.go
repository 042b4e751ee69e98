package task

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ReadWarning describes a file that could not be parsed during lenient reading.
type ReadWarning struct {
	File string // base filename
	Err  error
}

// ReadDir reads every .md task file in dir, sorted by filename. Malformed
// files are skipped and reported as warnings instead of aborting.
func ReadDir(dir string) ([]FileTask, []ReadWarning, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading task directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var tasks []FileTask
	var warnings []ReadWarning
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		f, readErr := ReadFile(filepath.Join(dir, entry.Name()))
		if readErr != nil {
			warnings = append(warnings, ReadWarning{File: entry.Name(), Err: readErr})
			continue
		}
		tasks = append(tasks, f)
	}
	return tasks, warnings, nil
}
