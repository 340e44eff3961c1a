package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"imgbatch/internal/imagecodec"
	"imgbatch/internal/job"
	"imgbatch/internal/model"
	"imgbatch/internal/settings"
)

type convertMode int

const (
	convertModeForm convertMode = iota
	convertModeRunning
)

const maxShownErrors = 4

type imagePreview struct {
	path string
	info imagecodec.Info
	size int64
	err  error
}

type convertModel struct {
	runner   *job.Runner
	settings settings.Settings
	form     *convertForm
	mode     convertMode
	width    int
	height   int

	events   <-chan job.Event
	cfg      model.JobConfig
	summary  job.Summary
	last     *job.Summary
	lastCfg  model.JobConfig
	progress progress.Model
	spinner  spinner.Model
	preview  *imagePreview

	statusMessage string
	record        func(job.Summary, model.JobConfig)
	// pendingRecords counts history writes still in flight; quitting waits
	// for them.
	pendingRecords int
	quitting       bool
}

type jobStartedMsg struct {
	events <-chan job.Event
	cfg    model.JobConfig
	err    error
}

type jobEventMsg struct {
	event job.Event
	ok    bool
}

type previewMsg struct {
	preview imagePreview
}

type historyRecordedMsg struct{}

var (
	convertTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	convertMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	convertErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	convertOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	convertPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	convertSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

func runConvertTUI(ctx context.Context, cc *commandContext, st settings.Settings, path string) error {
	logger, err := cc.logger(st, true)
	if err != nil {
		return err
	}
	runner := job.NewRunner(job.Options{Logger: logger})
	m := newConvertModel(runner, st)
	m.record = func(s job.Summary, cfg model.JobConfig) {
		recordHistory(ctx, st, cfg, s, logger)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "tty") {
			return errors.New("convert requires an interactive terminal (TTY); use --no-tui")
		}
		return err
	}
	fm, ok := finalModel.(convertModel)
	if !ok {
		return nil
	}
	saved, err := settings.Save(path, fm.settings)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	logger.Info("settings saved", "path", saved)
	if fm.last != nil {
		fmt.Println("Finished.")
		printSummary(os.Stdout, *fm.last, fm.lastCfg.DestDir)
	}
	return nil
}

func newConvertModel(runner *job.Runner, st settings.Settings) convertModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return convertModel{
		runner:   runner,
		settings: st,
		form:     newConvertForm(st, 100),
		mode:     convertModeForm,
		progress: progress.New(progress.WithDefaultGradient()),
		spinner:  sp,
	}
}

func (m convertModel) Init() tea.Cmd {
	return nil
}

func (m convertModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.form.resize(m.width)
		return m, nil
	case jobStartedMsg:
		if msg.err != nil {
			m.form.Error = msg.err.Error()
			return m, nil
		}
		m.events = msg.events
		m.cfg = msg.cfg
		m.summary = job.Summary{}
		return m, waitForJobEvent(m.events)
	case jobEventMsg:
		return m.handleJobEvent(msg)
	case historyRecordedMsg:
		if m.pendingRecords > 0 {
			m.pendingRecords--
		}
		if m.quitting && m.pendingRecords == 0 {
			return m, tea.Quit
		}
		return m, nil
	case previewMsg:
		if m.mode != convertModeRunning {
			return m, nil
		}
		p := msg.preview
		m.preview = &p
		return m, nil
	case spinner.TickMsg:
		if m.mode != convertModeRunning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.mode == convertModeRunning {
		return m.updateRunning(keyMsg)
	}
	return m.updateForm(keyMsg)
}

func (m convertModel) handleJobEvent(msg jobEventMsg) (tea.Model, tea.Cmd) {
	if !msg.ok {
		m.events = nil
		return m, nil
	}
	ev := msg.event
	m.summary.Apply(ev)

	var cmds []tea.Cmd
	switch ev.Kind {
	case job.EventStarted:
		m.mode = convertModeRunning
		m.form.Error = ""
		m.statusMessage = ""
		m.last = nil
		m.preview = nil
		cmds = append(cmds, m.spinner.Tick)
	case job.EventImagePreview:
		cmds = append(cmds, probePreviewCmd(ev.Path))
	case job.EventFailed:
		m.form.Error = ev.Message
		m.events = nil
		return m, nil
	case job.EventFinished:
		m.mode = convertModeForm
		m.preview = nil
		m.events = nil
		summary := m.summary
		m.last = &summary
		m.lastCfg = m.cfg
		m.statusMessage = "Finished."
		if err := m.runner.Reset(); err != nil {
			m.statusMessage = "error: " + err.Error()
		}
		if m.record != nil {
			m.pendingRecords++
			record, cfg := m.record, m.cfg
			return m, func() tea.Msg {
				record(summary, cfg)
				return historyRecordedMsg{}
			}
		}
		return m, nil
	}

	cmds = append(cmds, waitForJobEvent(m.events))
	return m, tea.Batch(cmds...)
}

func (m convertModel) updateRunning(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc", "q":
		m.statusMessage = "a conversion is running; wait for it to finish"
	}
	return m, nil
}

func (m convertModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := strings.ToLower(msg.String())
	switch key {
	case "ctrl+c", "esc":
		m.form.commitInput()
		if st, err := m.form.applyTo(m.settings); err == nil {
			m.settings = st
		}
		if m.pendingRecords > 0 {
			m.quitting = true
			m.statusMessage = "saving job history..."
			return m, nil
		}
		return m, tea.Quit
	case "up", "shift+tab":
		m.form.commitInput()
		if m.form.Index > 0 {
			m.form.Index--
		}
		m.form.loadFieldIntoInput()
		return m, nil
	case "down", "tab":
		m.form.commitInput()
		if m.form.Index < len(m.form.Fields)-1 {
			m.form.Index++
		}
		m.form.loadFieldIntoInput()
		return m, nil
	case " ", "space", "right", "left":
		kind := m.form.currentField().Kind
		if kind == formFieldBool {
			m.form.toggleBoolField()
			return m, nil
		}
		if kind == formFieldSelect {
			if key == "left" {
				m.form.stepSelectOption(-1)
			} else {
				m.form.stepSelectOption(1)
			}
			return m, nil
		}
	case "y", "n":
		if m.form.currentField().Kind == formFieldBool {
			m.form.setBoolField(key == "y")
			return m, nil
		}
	case "enter", "ctrl+s":
		m.form.commitInput()
		if m.form.Index < len(m.form.Fields)-1 && key != "ctrl+s" {
			m.form.Index++
			m.form.loadFieldIntoInput()
			return m, nil
		}
		st, err := m.form.applyTo(m.settings)
		if err != nil {
			m.form.Error = err.Error()
			return m, nil
		}
		m.form.Error = ""
		m.settings = st
		return m, startJobCmd(m.runner, st.JobConfig())
	}

	kind := m.form.currentField().Kind
	if kind == formFieldBool || kind == formFieldSelect {
		return m, nil
	}
	var cmd tea.Cmd
	m.form.Input, cmd = m.form.Input.Update(msg)
	m.form.Fields[m.form.Index].Value = m.form.Input.Value()
	return m, cmd
}

func startJobCmd(runner *job.Runner, cfg model.JobConfig) tea.Cmd {
	return func() tea.Msg {
		events, err := runner.Start(cfg)
		return jobStartedMsg{events: events, cfg: cfg, err: err}
	}
}

func waitForJobEvent(events <-chan job.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		return jobEventMsg{event: ev, ok: ok}
	}
}

func probePreviewCmd(path string) tea.Cmd {
	return func() tea.Msg {
		p := imagePreview{path: path}
		p.info, p.err = imagecodec.Probe(path)
		if fi, err := os.Stat(path); err == nil {
			p.size = fi.Size()
		}
		return previewMsg{preview: p}
	}
}

func (m convertModel) View() string {
	if m.width <= 0 {
		m.width = 100
	}
	if m.height <= 0 {
		m.height = 30
	}

	hints := "tab/shift+tab or up/down: move | left/right/space: change | enter: next/start | ctrl+s: start | esc: quit"
	if m.mode == convertModeRunning {
		hints = "converting... controls are locked until the job finishes"
	}
	header := convertTitleStyle.Render("imgbatch convert") + "\n" + convertMutedStyle.Render(hints)

	form := m.renderFormPanel(m.width)
	sections := []string{header, form}
	if m.mode == convertModeRunning {
		sections = append(sections, m.renderProgressPanel(m.width))
	} else if m.last != nil {
		sections = append(sections, m.renderSummaryPanel(m.width))
	}
	if errs := m.renderErrors(m.width); errs != "" {
		sections = append(sections, errs)
	}
	sections = append(sections, m.renderStatusLine(m.width))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m convertModel) renderFormPanel(width int) string {
	locked := m.mode == convertModeRunning
	lines := make([]string, 0, len(m.form.Fields)+6)
	for i, f := range m.form.Fields {
		display := strings.TrimSpace(f.Value)
		if f.Kind == formFieldBool {
			v, _ := parseBool(display)
			display = yesNo(v)
		}
		if display == "" {
			display = "(empty)"
		}
		if f.Kind == formFieldSelect {
			display = "[" + display + "]"
		}
		line := truncateRunes(fmt.Sprintf("%s: %s", f.Label, display), maxInt(width-8, 20))
		switch {
		case locked:
			line = convertMutedStyle.Render("  " + line)
		case i == m.form.Index:
			line = convertSelStyle.Render("> " + line)
		default:
			line = "  " + line
		}
		lines = append(lines, line)
	}

	if !locked {
		curr := m.form.currentField()
		lines = append(lines, "", curr.Label)
		if strings.TrimSpace(curr.Help) != "" {
			lines = append(lines, convertMutedStyle.Render(curr.Help))
		}
		if curr.Kind == formFieldString {
			lines = append(lines, m.form.Input.View())
		}
		if strings.TrimSpace(m.form.Error) != "" {
			lines = append(lines, "", convertErrorStyle.Render("error: "+m.form.Error))
		}
	}
	return convertPanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m convertModel) renderProgressPanel(width int) string {
	total := m.summary.FileCount
	done := m.summary.Processed
	percent := 0.0
	if total > 0 {
		percent = float64(done) / float64(total)
	}

	bar := m.progress
	bar.Width = clampInt(width-16, 10, 80)
	status := m.summary.LastStatus
	if status == "" {
		status = "Scanning folders..."
	}
	left := strings.Join([]string{
		m.spinner.View() + " " + truncateRunes(status, maxInt(width-12, 20)),
		bar.ViewAs(percent),
		convertMutedStyle.Render(fmt.Sprintf("%d of %d files", done, total)),
	}, "\n")

	if m.preview == nil || width < 70 {
		return convertPanelStyle.Width(width).Render(left)
	}
	previewW := clampInt(width/3, 28, 44)
	leftPanel := convertPanelStyle.Width(width - previewW - 1).Render(left)
	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, m.renderPreviewPanel(previewW))
}

func (m convertModel) renderPreviewPanel(width int) string {
	p := m.preview
	lines := []string{"Preview", ""}
	lines = append(lines, kv("file", filepath.Base(p.path)))
	if p.err != nil {
		lines = append(lines, convertErrorStyle.Render("unreadable"))
	} else {
		lines = append(lines, kv("size", fmt.Sprintf("%dx%d", p.info.Width, p.info.Height)))
		lines = append(lines, kv("format", p.info.Format))
	}
	if p.size > 0 {
		lines = append(lines, kv("bytes", formatBytesIEC(p.size)))
	}
	for i := range lines {
		lines[i] = wrapOrTrim(lines[i], maxInt(width-6, 12))
	}
	return convertPanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m convertModel) renderSummaryPanel(width int) string {
	st := m.last.Stats
	lines := []string{
		convertOKStyle.Render("Finished."),
		"",
		kv("converted", fmt.Sprint(st.Converted)),
		kv("already in destination", fmt.Sprint(st.SkippedExists)),
		kv("unrecognized", fmt.Sprint(st.SkippedUnrecognized)),
		kv("failed", fmt.Sprint(st.Failed)),
	}
	if m.lastCfg.DeleteOriginals {
		lines = append(lines, kv("originals deleted", fmt.Sprint(st.Deleted)))
	}
	if ev, ok := m.last.FatalError(); ok {
		lines = append(lines, "", convertErrorStyle.Render("stopped: "+ev.Message))
	}
	return convertPanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m convertModel) renderErrors(width int) string {
	var errs []job.Event
	switch {
	case m.mode == convertModeRunning:
		errs = m.summary.Errors
	case m.last != nil:
		errs = m.last.Errors
	}
	if len(errs) == 0 {
		return ""
	}
	start := 0
	if len(errs) > maxShownErrors {
		start = len(errs) - maxShownErrors
	}
	lines := make([]string, 0, maxShownErrors+1)
	if start > 0 {
		lines = append(lines, convertMutedStyle.Render(fmt.Sprintf("... %d earlier errors", start)))
	}
	for _, ev := range errs[start:] {
		lines = append(lines, convertErrorStyle.Render(truncateRunes(formatErrorEvent(ev), maxInt(width-2, 10))))
	}
	return strings.Join(lines, "\n")
}

func (m convertModel) renderStatusLine(width int) string {
	msg := strings.TrimSpace(m.statusMessage)
	if msg == "" {
		msg = "Tip: files whose converted name already exists in the destination are skipped."
	}
	style := convertMutedStyle
	if strings.HasPrefix(strings.ToLower(msg), "error:") {
		style = convertErrorStyle
	} else if msg == "Finished." {
		style = convertOKStyle
	}
	return style.Width(width).Render(truncateRunes(msg, maxInt(width-2, 10)))
}
