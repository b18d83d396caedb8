// Package cmd implements the tudu command line interface.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stsysd/tudu/config"
	"github.com/stsysd/tudu/crypt"
	"github.com/stsysd/tudu/repo"
	"github.com/stsysd/tudu/store"
	"github.com/stsysd/tudu/tui"
)

var (
	flagProject     string
	flagAddTask     string
	flagStoryPoints int
	flagDescription string
	flagList        bool
	flagProjects    bool
	flagComplete    string
	flagDeleteTask  string
)

var rootCmd = &cobra.Command{
	Use:   "tudu",
	Short: "Tudu - A simple TUI todo list with story points.",
	Long: `Tudu - A simpler Jira in your terminal.

Manage tasks with story points, organize by project, and use vim-like
keybindings for fast navigation. Run without flags to launch the
interactive TUI.

Examples:
  tudu --project "Tudu" --add-task "Create app" --story-points 4
  tudu --list --project "Tudu"
  tudu --projects
  tudu --complete "Create app"
  tudu --delete-task "Create app"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&flagProject, "project", "p", "", "Project name (used with --add-task or --list)")
	rootCmd.Flags().StringVarP(&flagAddTask, "add-task", "a", "", "Add a new task with the given title")
	rootCmd.Flags().IntVarP(&flagStoryPoints, "story-points", "s", 1, "Story points for the task")
	rootCmd.Flags().StringVarP(&flagDescription, "description", "d", "", "Task description")
	rootCmd.Flags().BoolVarP(&flagList, "list", "l", false, "List tasks (use --project to filter)")
	rootCmd.Flags().BoolVar(&flagProjects, "projects", false, "List all projects")
	rootCmd.Flags().StringVarP(&flagComplete, "complete", "c", "", "Toggle completion of a task (search by title)")
	rootCmd.Flags().StringVar(&flagDeleteTask, "delete-task", "", "Delete a task (search by title)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()

	key, err := crypt.LoadOrCreateKey(cfg.DataDir)
	if err != nil {
		var keyErr *crypt.KeyLoadError
		if errors.As(err, &keyErr) {
			return fmt.Errorf("%w\nThe encryption key cannot be reconstructed. Restore %s from a backup, or remove the data directory to start over (existing data will become unreadable)", keyErr, keyErr.File)
		}
		return err
	}

	st, err := store.NewSQLiteStore(cfg.DataDir, crypt.NewCodec(key))
	if err != nil {
		return err
	}
	defer st.Close()

	r := repo.New(st)
	ctx := cmd.Context()

	switch {
	case flagAddTask != "":
		if flagProject == "" {
			return errors.New("--project is required when adding a task")
		}
		return runAddTask(ctx, r)
	case flagList:
		return runListTasks(ctx, r)
	case flagProjects:
		return runListProjects(ctx, r)
	case flagComplete != "":
		return runCompleteTask(ctx, r)
	case flagDeleteTask != "":
		return runDeleteTask(ctx, r)
	default:
		// No CLI action requested: launch the interactive TUI.
		return tui.Run(r)
	}
}
