package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stsysd/tudu/model"
	"github.com/stsysd/tudu/repo"
)

// mode identifies which screen the TUI is showing. Each mode pairs its own
// key handling with its own render function.
type mode int

const (
	modeList mode = iota
	modeAddTask
	modeEditTask
	modeAddProject
	modeConfirm
	modeHelp
)

// confirmTarget identifies what a pending confirmation dialog will delete.
type confirmTarget int

const (
	confirmNone confirmTarget = iota
	confirmDeleteTask
	confirmDeleteProject
)

// Model represents the TUI state.
type Model struct {
	repo *repo.Repo
	ctx  context.Context

	projects   []*model.Project
	tasks      []*model.Task
	projectIdx int
	taskIdx    int
	focusTasks bool

	mode    mode
	inputs  []textinput.Model
	inputIdx int
	editing *model.Task

	confirm    confirmTarget
	confirmMsg string

	width  int
	height int

	notice string
	err    error
}

// New creates a new TUI model backed by the given repository.
func New(r *repo.Repo) Model {
	m := Model{
		repo: r,
		ctx:  context.Background(),
	}
	m.loadData()
	return m
}

// Run launches the interactive TUI and blocks until the user quits.
func Run(r *repo.Repo) error {
	p := tea.NewProgram(New(r), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// loadData reloads projects and the selected project's tasks.
func (m *Model) loadData() {
	projects, err := m.repo.ListProjects(m.ctx)
	if err != nil {
		m.err = err
		return
	}
	m.projects = projects
	if m.projectIdx >= len(m.projects) {
		m.projectIdx = max(0, len(m.projects)-1)
	}
	m.loadTasks()
}

// loadTasks reloads the task list for the selected project.
func (m *Model) loadTasks() {
	if len(m.projects) == 0 {
		m.tasks = nil
		return
	}
	tasks, err := m.repo.ListTasks(m.ctx, m.projects[m.projectIdx].Name)
	if err != nil {
		m.err = err
		return
	}
	m.tasks = tasks
	if m.taskIdx >= len(m.tasks) {
		m.taskIdx = max(0, len(m.tasks)-1)
	}
}

func (m *Model) selectedProject() *model.Project {
	if len(m.projects) == 0 {
		return nil
	}
	return m.projects[m.projectIdx]
}

func (m *Model) selectedTask() *model.Task {
	if len(m.tasks) == 0 {
		return nil
	}
	return m.tasks[m.taskIdx]
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeList:
			return m.updateList(msg)
		case modeAddTask, modeEditTask, modeAddProject:
			return m.updateForm(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		case modeHelp:
			switch msg.String() {
			case "esc", "?", "q":
				m.mode = modeList
			}
			return m, nil
		}
	}
	return m, nil
}

// updateList handles keys on the main list screen.
func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	m.err = nil

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.mode = modeHelp

	case "j", "down":
		if m.focusTasks {
			if m.taskIdx < len(m.tasks)-1 {
				m.taskIdx++
			}
		} else if m.projectIdx < len(m.projects)-1 {
			m.projectIdx++
			m.taskIdx = 0
			m.loadTasks()
		}

	case "k", "up":
		if m.focusTasks {
			if m.taskIdx > 0 {
				m.taskIdx--
			}
		} else if m.projectIdx > 0 {
			m.projectIdx--
			m.taskIdx = 0
			m.loadTasks()
		}

	case "h", "left":
		m.focusTasks = false

	case "l", "right":
		m.focusTasks = true

	case "tab":
		m.focusTasks = !m.focusTasks

	case "a":
		if m.selectedProject() == nil {
			m.notice = "Create a project first (Shift+P)"
			return m, nil
		}
		m.openTaskForm(nil)

	case "e":
		if task := m.selectedTask(); task != nil {
			m.openTaskForm(task)
		}

	case "enter", " ":
		if task := m.selectedTask(); task != nil {
			updated, err := m.repo.CycleTask(m.ctx, task.ID)
			if err != nil {
				m.err = err
				return m, nil
			}
			m.notice = fmt.Sprintf("'%s' -> %s", updated.Title, updated.Status.Display())
			m.loadTasks()
		}

	case "x":
		if task := m.selectedTask(); task != nil {
			if _, err := m.repo.ToggleTask(m.ctx, task.ID); err != nil {
				m.err = err
				return m, nil
			}
			m.loadTasks()
		}

	case "d":
		if task := m.selectedTask(); task != nil {
			m.confirm = confirmDeleteTask
			m.confirmMsg = fmt.Sprintf("Delete task '%s'?", task.Title)
			m.mode = modeConfirm
		}

	case "P":
		m.openProjectForm()

	case "D":
		if project := m.selectedProject(); project != nil {
			m.confirm = confirmDeleteProject
			m.confirmMsg = fmt.Sprintf("Delete project '%s' and all its tasks?", project.Name)
			m.mode = modeConfirm
		}
	}
	return m, nil
}

// openTaskForm prepares the add/edit task dialog. A nil task means add.
func (m *Model) openTaskForm(task *model.Task) {
	title := textinput.New()
	title.Placeholder = "Task title..."
	title.CharLimit = 200
	title.Focus()

	points := textinput.New()
	points.Placeholder = "1"
	points.CharLimit = 3

	desc := textinput.New()
	desc.Placeholder = "Optional description..."
	desc.CharLimit = 500

	if task != nil {
		title.SetValue(task.Title)
		points.SetValue(strconv.Itoa(task.StoryPoints))
		desc.SetValue(task.Description)
		m.mode = modeEditTask
	} else {
		m.mode = modeAddTask
	}

	m.editing = task
	m.inputs = []textinput.Model{title, points, desc}
	m.inputIdx = 0
}

// openProjectForm prepares the add project dialog.
func (m *Model) openProjectForm() {
	name := textinput.New()
	name.Placeholder = "Project name..."
	name.CharLimit = 100
	name.Focus()

	desc := textinput.New()
	desc.Placeholder = "Optional description..."
	desc.CharLimit = 500

	m.mode = modeAddProject
	m.inputs = []textinput.Model{name, desc}
	m.inputIdx = 0
}

// updateForm handles keys inside the add/edit dialogs.
func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		m.inputs = nil
		m.editing = nil
		return m, nil

	case "tab", "shift+tab", "enter":
		// Enter on the last field submits; otherwise move focus.
		last := m.inputIdx == len(m.inputs)-1
		if msg.String() == "enter" && last {
			return m.submitForm()
		}
		m.inputs[m.inputIdx].Blur()
		if msg.String() == "shift+tab" {
			m.inputIdx = (m.inputIdx + len(m.inputs) - 1) % len(m.inputs)
		} else {
			m.inputIdx = (m.inputIdx + 1) % len(m.inputs)
		}
		m.inputs[m.inputIdx].Focus()
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.inputIdx], cmd = m.inputs[m.inputIdx].Update(msg)
	return m, cmd
}

// submitForm validates and applies the current dialog.
func (m Model) submitForm() (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeAddTask, modeEditTask:
		title := strings.TrimSpace(m.inputs[0].Value())
		if title == "" {
			m.notice = "Title is required!"
			return m, nil
		}
		points := 1
		if v, err := strconv.Atoi(strings.TrimSpace(m.inputs[1].Value())); err == nil && v > 0 {
			points = v
		} else if m.editing != nil {
			points = m.editing.StoryPoints
		}
		desc := strings.TrimSpace(m.inputs[2].Value())

		if m.editing != nil {
			task := m.editing
			task.Title = title
			task.StoryPoints = points
			task.Description = desc
			if err := m.repo.EditTask(m.ctx, task); err != nil {
				m.err = err
			} else {
				m.notice = fmt.Sprintf("Task '%s' updated!", title)
			}
		} else {
			project := m.selectedProject()
			if _, err := m.repo.AddTask(m.ctx, project.Name, title, points, desc, nil); err != nil {
				m.err = err
			} else {
				m.notice = fmt.Sprintf("Task '%s' added!", title)
			}
		}

	case modeAddProject:
		name := strings.TrimSpace(m.inputs[0].Value())
		if name == "" {
			m.notice = "Project name is required!"
			return m, nil
		}
		desc := strings.TrimSpace(m.inputs[1].Value())
		if _, err := m.repo.AddProject(m.ctx, name, desc); err != nil {
			m.err = err
		} else {
			m.notice = fmt.Sprintf("Project '%s' created!", name)
			m.projectIdx = len(m.projects) // select the new project after reload
		}
	}

	m.mode = modeList
	m.inputs = nil
	m.editing = nil
	m.loadData()
	return m, nil
}

// updateConfirm handles the yes/no confirmation dialog.
func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		switch m.confirm {
		case confirmDeleteTask:
			if task := m.selectedTask(); task != nil {
				if err := m.repo.DeleteTask(m.ctx, task.ID); err != nil {
					m.err = err
				} else {
					m.notice = fmt.Sprintf("Task '%s' deleted.", task.Title)
				}
			}
		case confirmDeleteProject:
			if project := m.selectedProject(); project != nil {
				if err := m.repo.DeleteProject(m.ctx, project.Name); err != nil {
					m.err = err
				} else {
					m.notice = fmt.Sprintf("Project '%s' deleted.", project.Name)
					m.projectIdx = 0
				}
			}
		}
		m.confirm = confirmNone
		m.mode = modeList
		m.loadData()

	case "n", "esc":
		m.confirm = confirmNone
		m.mode = modeList
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	switch m.mode {
	case modeAddTask:
		return m.viewTaskForm("Add New Task")
	case modeEditTask:
		return m.viewTaskForm("Edit Task")
	case modeAddProject:
		return m.viewProjectForm()
	case modeConfirm:
		return m.viewDialog(dialogTitleStyle.Render("Confirm") + "\n" +
			m.confirmMsg + "\n\n" +
			helpStyle.Render("y: yes  n: no"))
	case modeHelp:
		return m.viewHelp()
	}
	return m.viewList()
}

// viewList renders the main two-panel screen.
func (m Model) viewList() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Tudu"))
	b.WriteString(statsStyle.Render("  Task Manager"))
	b.WriteString("\n\n")

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.viewSidebar(),
		m.viewTaskPanel(),
	)
	b.WriteString(body)
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	} else if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("a: add task  e: edit  enter: cycle  x: toggle  d: delete  P: new project  ?: help  q: quit"))
	return b.String()
}

// viewSidebar renders the project list.
func (m Model) viewSidebar() string {
	var b strings.Builder
	b.WriteString(sidebarTitleStyle.Render("Projects"))
	b.WriteString("\n\n")

	if len(m.projects) == 0 {
		b.WriteString(projectStatsStyle.Render("No projects yet"))
		return sidebarStyle.Render(b.String())
	}

	for i, project := range m.projects {
		style := projectStyle
		if i == m.projectIdx {
			style = projectSelectedStyle
		}
		b.WriteString(style.Render(project.Name))
		b.WriteString("\n")

		stats, err := m.repo.Stats(m.ctx, project.Name)
		if err == nil {
			b.WriteString(projectStatsStyle.Render(
				fmt.Sprintf("%d/%d tasks  %.0f%%", stats.DoneTasks, stats.TotalTasks, stats.CompletionPct)))
		}
		b.WriteString("\n")
	}
	return sidebarStyle.Render(b.String())
}

// viewTaskPanel renders the task list for the selected project.
func (m Model) viewTaskPanel() string {
	var b strings.Builder

	project := m.selectedProject()
	if project == nil {
		b.WriteString(statsStyle.Render("  No projects yet. Press Shift+P to create one."))
		return b.String()
	}

	stats, err := m.repo.Stats(m.ctx, project.Name)
	header := titleStyle.Render("Tasks - " + project.Name)
	if err == nil {
		header += statsStyle.Render(fmt.Sprintf("   %d/%d SP | %.0f%% done",
			stats.DonePoints, stats.TotalPoints, stats.CompletionPct))
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	if len(m.tasks) == 0 {
		b.WriteString(statsStyle.Render("  No tasks yet. Press 'a' to add one."))
		return b.String()
	}

	for i, task := range m.tasks {
		b.WriteString(m.renderTaskRow(task, i == m.taskIdx && m.focusTasks))
		b.WriteString("\n")
	}
	return b.String()
}

// renderTaskRow renders one task line: icon, SP badge, title, priority label.
func (m Model) renderTaskRow(task *model.Task, selected bool) string {
	priority := task.Priority()
	pStyle := priorityStyle(priority)

	badge := pStyle.Render(fmt.Sprintf("[%d]", task.StoryPoints))
	title := task.Title
	if task.IsComplete() {
		title = taskDoneStyle.Render(title)
	}
	row := fmt.Sprintf("%s %s %-40s %s",
		task.Status.Icon(), badge, title, pStyle.Render(priority.Display()))

	if selected {
		return taskSelectedStyle.Render(row)
	}
	return taskStyle.Render(row)
}

// viewTaskForm renders the add/edit task dialog.
func (m Model) viewTaskForm(title string) string {
	var b strings.Builder
	b.WriteString(dialogTitleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(fieldLabelStyle.Render("Title:"))
	b.WriteString("\n" + m.inputs[0].View() + "\n\n")
	b.WriteString(fieldLabelStyle.Render("Story Points:"))
	b.WriteString("\n" + m.inputs[1].View() + "\n\n")
	b.WriteString(fieldLabelStyle.Render("Description:"))
	b.WriteString("\n" + m.inputs[2].View() + "\n")
	b.WriteString(helpStyle.Render("tab: next field  enter: submit  esc: cancel"))
	return m.viewDialog(b.String())
}

// viewProjectForm renders the add project dialog.
func (m Model) viewProjectForm() string {
	var b strings.Builder
	b.WriteString(dialogTitleStyle.Render("New Project"))
	b.WriteString("\n")
	b.WriteString(fieldLabelStyle.Render("Name:"))
	b.WriteString("\n" + m.inputs[0].View() + "\n\n")
	b.WriteString(fieldLabelStyle.Render("Description:"))
	b.WriteString("\n" + m.inputs[1].View() + "\n")
	b.WriteString(helpStyle.Render("tab: next field  enter: submit  esc: cancel"))
	return m.viewDialog(b.String())
}

// viewDialog centers a dialog box when the terminal size is known.
func (m Model) viewDialog(content string) string {
	dialog := dialogStyle.Render(content)
	if m.width == 0 || m.height == 0 {
		return dialog
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
}

// viewHelp renders the keyboard shortcut overlay.
func (m Model) viewHelp() string {
	var b strings.Builder
	b.WriteString(dialogTitleStyle.Render("Tudu - Keyboard Shortcuts"))
	b.WriteString("\n")
	sections := []struct {
		title string
		keys  []string
	}{
		{"Navigation", []string{
			"j / Down      Move cursor down",
			"k / Up        Move cursor up",
			"h / Left      Focus sidebar (projects)",
			"l / Right     Focus task list",
			"Tab           Switch focus between panels",
		}},
		{"Task Management", []string{
			"a             Add new task",
			"e             Edit selected task",
			"Enter/Space   Cycle task status",
			"x             Mark task done / toggle",
			"d             Delete selected task",
		}},
		{"Project Management", []string{
			"P             Add new project",
			"D             Delete selected project",
		}},
		{"General", []string{
			"?             Show this help",
			"q             Quit",
			"Esc           Close dialog / Cancel",
		}},
	}
	for _, s := range sections {
		b.WriteString(fieldLabelStyle.Render(s.title))
		b.WriteString("\n")
		for _, k := range s.keys {
			b.WriteString("  " + k + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("Press Esc or ? to close"))
	return m.viewDialog(b.String())
}
