package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

var exportCmd = &cobra.Command{
	Use:   "export DIR",
	Short: "Write the board's tasks as markdown files",
	Long: `Writes one markdown file per task into DIR, with the fields as YAML
frontmatter and the description as the body. Existing files are
overwritten. Completed tasks are included with --all.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import DIR",
	Short: "Create tasks from markdown files",
	Long: `Creates a task for every markdown file in DIR, as written by "export".
Each task goes to the column named in its file when the board has one,
else to --column (default To Do). Files that cannot be parsed are skipped
with a warning.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	exportCmd.Flags().Bool("all", false, "include completed tasks")
	importCmd.Flags().String("column", "", "fallback column (ID, name or status)")
	rootCmd.AddCommand(exportCmd, importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	sess, _, err := openSession(cmd.Context(), all)
	if err != nil {
		return err
	}

	dir := args[0]
	if err := os.MkdirAll(dir, 0o750); err != nil { //nolint:mnd // directory mode
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	names := map[string]string{}
	for _, c := range sess.Store.Columns() {
		names[c.ID] = c.Name
	}
	var files []string
	for _, t := range sess.Store.Tasks() {
		path := filepath.Join(dir, task.Filename(t))
		if err := task.WriteFile(path, task.ToFile(t, names[t.ColumnID])); err != nil {
			return err
		}
		files = append(files, path)
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{"dir": dir, "files": files})
	}
	output.Messagef(os.Stdout, "Exported %d tasks to %s", len(files), dir)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	files, warnings, err := task.ReadDir(args[0])
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: skipping malformed file %s: %v\n", w.File, w.Err)
	}
	if len(files) == 0 {
		return clierr.Newf(clierr.InvalidInput, "no task files found in %s", args[0])
	}

	sess, _, err := openSession(cmd.Context(), false)
	if err != nil {
		return err
	}
	cols := sess.Store.Columns()

	fallback, ok := task.DefaultColumn(cols, "")
	if v, _ := cmd.Flags().GetString("column"); v != "" {
		if fallback, err = resolveColumn(cols, v); err != nil {
			return err
		}
		ok = true
	}
	if !ok {
		return clierr.New(clierr.NotFound, "board has no columns")
	}

	ids := make([]string, len(files))
	byName := make(map[string]task.FileTask, len(files))
	for i, f := range files {
		ids[i] = filepath.Base(f.SourceFile)
		byName[ids[i]] = f
	}
	return runBatch(ids, func(name string) error {
		f := byName[name]
		col := fallback
		if f.Column != "" {
			if c, err := resolveColumn(cols, f.Column); err == nil {
				col = c
			}
		}
		_, err := sess.Create(cmd.Context(), f.Fields(sess.Board().ID, col.ID))
		return err
	})
}
