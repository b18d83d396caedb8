package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/stsysd/tudu/model"
	"github.com/stsysd/tudu/repo"
)

const rule = "──────────────────────────────────────────────────"

// runAddTask adds a new task to a project, creating the project if needed.
func runAddTask(ctx context.Context, r *repo.Repo) error {
	project, err := r.GetOrCreateProject(ctx, flagProject)
	if err != nil {
		return err
	}

	task, err := r.AddTask(ctx, project.Name, flagAddTask, flagStoryPoints, flagDescription, nil)
	if err != nil {
		return err
	}

	fmt.Printf("Task added to project '%s':\n", project.Name)
	fmt.Printf("  %s | SP:%d | %s\n", task.Priority().Display(), task.StoryPoints, task.Title)
	return nil
}

// runListTasks lists tasks, optionally filtered by project.
func runListTasks(ctx context.Context, r *repo.Repo) error {
	var tasks []*model.Task
	if flagProject != "" {
		project, err := r.GetProject(ctx, flagProject)
		if err != nil {
			return fmt.Errorf("project '%s' not found", flagProject)
		}
		tasks, err = r.ListTasks(ctx, project.Name)
		if err != nil {
			return err
		}
		fmt.Printf("\n  Project: %s\n", project.Name)
	} else {
		var err error
		tasks, err = r.ListAllTasks(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("\n  All Tasks\n")
	}
	fmt.Printf("  %s\n", rule)

	if len(tasks) == 0 {
		fmt.Println("  No tasks found.")
		return nil
	}

	totalPoints := 0
	donePoints := 0
	for _, task := range tasks {
		fmt.Printf("  %s SP:%-3d %s\n", task.Status.Icon(), task.StoryPoints, task.Title)
		totalPoints += task.StoryPoints
		if task.Status == model.StatusDone {
			donePoints += task.StoryPoints
		}
	}

	fmt.Printf("  %s\n", rule)
	fmt.Printf("  %d tasks | %d/%d story points done\n\n", len(tasks), donePoints, totalPoints)
	return nil
}

// runListProjects lists all projects with their statistics.
func runListProjects(ctx context.Context, r *repo.Repo) error {
	projects, err := r.ListProjects(ctx)
	if err != nil {
		return err
	}

	if len(projects) == 0 {
		fmt.Println("  No projects found. Add a task to create one.")
		return nil
	}

	fmt.Printf("\n  Projects\n")
	fmt.Printf("  %s\n", rule)
	for _, project := range projects {
		stats, err := r.Stats(ctx, project.Name)
		if err != nil {
			return err
		}
		fmt.Printf("  %-20s %d/%d tasks | %d/%d SP | %.0f%%\n",
			project.Name,
			stats.DoneTasks, stats.TotalTasks,
			stats.DonePoints, stats.TotalPoints,
			stats.CompletionPct,
		)
	}
	fmt.Println()
	return nil
}

// findSingleTask resolves a title query to exactly one task. Ambiguous or
// empty matches are reported to the user and rejected.
func findSingleTask(ctx context.Context, r *repo.Repo, query string) (*model.Task, error) {
	matches, err := r.FindTasksByTitle(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("no tasks matching '%s' found", query)
	}
	if len(matches) > 1 {
		var b strings.Builder
		fmt.Fprintf(&b, "multiple tasks match '%s':\n", query)
		for i, t := range matches {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, t.Title)
		}
		b.WriteString("please be more specific")
		return nil, fmt.Errorf("%s", b.String())
	}
	return matches[0], nil
}

// runCompleteTask toggles completion of a task found by title.
func runCompleteTask(ctx context.Context, r *repo.Repo) error {
	task, err := findSingleTask(ctx, r, flagComplete)
	if err != nil {
		return err
	}

	task, err = r.ToggleTask(ctx, task.ID)
	if err != nil {
		return err
	}
	fmt.Printf("  %s %s -> %s\n", task.Status.Icon(), task.Title, task.Status.Display())
	return nil
}

// runDeleteTask deletes a task found by title.
func runDeleteTask(ctx context.Context, r *repo.Repo) error {
	task, err := findSingleTask(ctx, r, flagDeleteTask)
	if err != nil {
		return err
	}

	if err := r.DeleteTask(ctx, task.ID); err != nil {
		return err
	}
	fmt.Printf("  Deleted: %s\n", task.Title)
	return nil
}
