package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/thomas/mayhem-terminal-go/internal/admin"
)

// adminFieldsPerPage splits long entity forms into several huh groups.
const adminFieldsPerPage = 6

type loginFields struct {
	Email    string
	Password string
}

// ============================================
// Login
// ============================================

func (m Model) openAdmin() (tea.Model, tea.Cmd) {
	if m.admin == nil || !m.sess.Admin.Enabled() {
		cmd := m.notify("The admin panel is not enabled on this server", true)
		return m, cmd
	}

	ctx, cancel := newContext()
	defer cancel()
	if _, err := m.sess.Admin.Require(ctx); err != nil {
		m.viewState = ViewAdminLogin
		cmd := m.initLoginForm()
		return m, cmd
	}

	m.viewState = ViewAdminTables
	return m, nil
}

func (m *Model) initLoginForm() tea.Cmd {
	if m.adminLogin == nil {
		m.adminLogin = &loginFields{}
	}
	m.adminLogin.Password = ""

	m.adminLoginForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&m.adminLogin.Email).
				Validate(required("Email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.adminLogin.Password).
				Validate(required("Password")),
		),
	).WithShowHelp(true).WithShowErrors(true)

	return m.adminLoginForm.Init()
}

func (m Model) handleAdminLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" && !m.adminLoading {
		m.adminLoginForm = nil
		m.viewState = ViewProductList
		return m, nil
	}
	return m.updateLoginForm(msg)
}

func (m Model) updateLoginForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.adminLoginForm == nil || m.adminLoading {
		return m, nil
	}

	var cmd tea.Cmd
	m.adminLoginForm, cmd = updateForm(m.adminLoginForm, msg)
	if m.adminLoginForm.State != huh.StateCompleted {
		return m, cmd
	}

	m.adminLoading = true
	guard := m.sess.Admin
	email, password := m.adminLogin.Email, m.adminLogin.Password
	m.adminLogin.Password = ""

	login := func() tea.Msg {
		ctx, cancel := newContext()
		defer cancel()

		s, err := guard.Login(ctx, email, password)
		if err != nil {
			return errMsg{err: err}
		}
		return adminLoggedInMsg{email: s.Email}
	}
	return m, tea.Batch(cmd, login)
}

// ============================================
// Tables
// ============================================

func (m Model) adminEntity() admin.EntitySpec {
	return admin.Entities[m.adminEntityIdx]
}

func (m Model) handleAdminTablesKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.viewState = ViewProductList
		return m, nil

	case "up", "k":
		if m.adminEntityIdx > 0 {
			m.adminEntityIdx--
		}
		return m, nil

	case "down", "j":
		if m.adminEntityIdx < len(admin.Entities)-1 {
			m.adminEntityIdx++
		}
		return m, nil

	case "enter":
		m.adminSearch.SetValue("")
		m.adminPage = admin.Page{}
		m.fillAdminTable()
		m.adminLoading = true
		m.viewState = ViewAdminList
		return m, m.loadAdminPage(1)

	case "L":
		ctx, cancel := newContext()
		defer cancel()
		if err := m.sess.Admin.Logout(ctx); err != nil {
			cmd := m.notify(errorText(err), true)
			return m, cmd
		}
		m.viewState = ViewProductList
		cmd := m.notify("Signed out of the admin panel", false)
		return m, cmd
	}
	return m, nil
}

func (m Model) loadAdminPage(page int) tea.Cmd {
	svc := m.admin
	name := m.adminEntity().Name
	search := m.adminSearch.Value()

	return func() tea.Msg {
		ctx, cancel := newContext()
		defer cancel()

		p, err := svc.List(ctx, name, page, search)
		if err != nil {
			return errMsg{err: err}
		}
		return adminPageMsg{page: p}
	}
}

func newAdminTable() table.Model {
	t := table.New(
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorAsh).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(colorBone).
		Background(colorBlood).
		Bold(false)
	t.SetStyles(s)

	return t
}

// fillAdminTable renders the loaded page into the table using the
// entity's list columns.
func (m *Model) fillAdminTable() {
	entity := m.adminEntity()
	width := max(m.width-8, 40)
	colWidth := max(width/len(entity.Columns)-2, 6)

	cols := make([]table.Column, len(entity.Columns))
	for i, c := range entity.Columns {
		cols[i] = table.Column{Title: c, Width: colWidth}
	}

	rows := make([]table.Row, len(m.adminPage.Rows))
	for i, r := range m.adminPage.Rows {
		row := make(table.Row, len(entity.Columns))
		for j, c := range entity.Columns {
			row[j] = truncate(admin.FormatCell(r[c]), colWidth)
		}
		rows[i] = row
	}

	// Rows must never be wider than the columns.
	m.adminTable.SetRows(nil)
	m.adminTable.SetColumns(cols)
	m.adminTable.SetRows(rows)
	m.adminTable.SetCursor(0)
}

func (m Model) selectedAdminRow() (admin.Row, bool) {
	i := m.adminTable.Cursor()
	if i < 0 || i >= len(m.adminPage.Rows) {
		return nil, false
	}
	return m.adminPage.Rows[i], true
}

func (m Model) handleAdminListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.adminSearching {
		switch key {
		case "enter", "esc":
			if key == "esc" {
				m.adminSearch.SetValue("")
			}
			m.adminSearching = false
			m.adminSearch.Blur()
			m.adminLoading = true
			return m, m.loadAdminPage(1)
		}
		var cmd tea.Cmd
		m.adminSearch, cmd = m.adminSearch.Update(msg)
		return m, cmd
	}

	if m.adminConfirmDelete {
		m.adminConfirmDelete = false
		if row, ok := m.selectedAdminRow(); ok && key == "y" {
			m.adminLoading = true
			return m, m.deleteAdminRow(row.ID())
		}
		cmd := m.notify("Delete cancelled", false)
		return m, cmd
	}

	if key == "esc" || key == "q" {
		m.viewState = ViewAdminTables
		m.adminLoading = false
		m.adminSearch.SetValue("")
		return m, nil
	}
	if m.adminLoading {
		return m, nil
	}

	page := max(m.adminPage.Page, 1)

	switch key {
	case "up", "k", "down", "j":
		var cmd tea.Cmd
		m.adminTable, cmd = m.adminTable.Update(msg)
		return m, cmd

	case "left", "h":
		if page > 1 {
			m.adminLoading = true
			return m, m.loadAdminPage(page - 1)
		}
		return m, nil

	case "right", "l":
		if page < m.adminPage.PageCount() {
			m.adminLoading = true
			return m, m.loadAdminPage(page + 1)
		}
		return m, nil

	case "r":
		m.adminLoading = true
		return m, m.loadAdminPage(page)

	case "/":
		m.adminSearching = true
		m.adminSearch.Focus()
		return m, textinput.Blink

	case "n":
		cmd := m.openAdminForm(nil)
		return m, cmd

	case "e", "enter":
		if row, ok := m.selectedAdminRow(); ok {
			cmd := m.openAdminForm(row)
			return m, cmd
		}
		return m, nil

	case "d":
		if row, ok := m.selectedAdminRow(); ok {
			m.adminConfirmDelete = true
			cmd := m.notify(fmt.Sprintf("Delete #%s? Press y to confirm", row.ID()), true)
			return m, cmd
		}
		return m, nil

	case "x":
		m.adminLoading = true
		return m, m.exportAdminTable()
	}

	return m, nil
}

func (m Model) deleteAdminRow(id string) tea.Cmd {
	svc := m.admin
	name := m.adminEntity().Name

	return func() tea.Msg {
		ctx, cancel := newContext()
		defer cancel()

		if err := svc.Delete(ctx, name, id); err != nil {
			return errMsg{err: err}
		}
		return adminSavedMsg{action: "deleted", id: id}
	}
}

// exportAdminTable writes the whole table to an .xlsx file in the export
// directory on the server.
func (m Model) exportAdminTable() tea.Cmd {
	svc := m.admin
	entity := m.adminEntity()
	dir := m.exportDir

	return func() tea.Msg {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errMsg{err: fmt.Errorf("creating export directory: %w", err)}
		}

		name := fmt.Sprintf("%s-%s.xlsx", entity.Table, time.Now().Format("20060102-150405"))
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return errMsg{err: fmt.Errorf("creating export file: %w", err)}
		}

		ctx, cancel := newContext()
		defer cancel()

		rows, err := svc.Export(ctx, entity.Name, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
			return errMsg{err: err}
		}
		return adminExportedMsg{path: path, rows: rows}
	}
}

// ============================================
// Create / edit form
// ============================================

// openAdminForm edits row, or creates a new one when row is nil.
func (m *Model) openAdminForm(row admin.Row) tea.Cmd {
	entity := m.adminEntity()

	current := map[string]string{}
	m.adminEditID = ""
	if row != nil {
		current = admin.FormValues(entity, row)
		m.adminEditID = row.ID()
	}

	m.adminValues = make(map[string]*string, len(entity.Fields))
	for _, f := range entity.Fields {
		v := current[f.Name]
		if v == "" && f.Kind == admin.KindBool {
			v = "no"
			if f.Name == "active" {
				v = "yes"
			}
		}
		m.adminValues[f.Name] = &v
	}

	m.viewState = ViewAdminForm
	return m.rebuildAdminForm()
}

// rebuildAdminForm builds a fresh form over the current values, keeping
// whatever the admin already typed.
func (m *Model) rebuildAdminForm() tea.Cmd {
	entity := m.adminEntity()

	var groups []*huh.Group
	var fields []huh.Field
	for _, f := range entity.Fields {
		value, ok := m.adminValues[f.Name]
		if !ok {
			value = new(string)
			m.adminValues[f.Name] = value
		}

		title := f.Label
		if f.Required {
			title += " *"
		}

		if f.Kind == admin.KindBool {
			fields = append(fields, huh.NewSelect[string]().
				Title(title).
				Options(huh.NewOptions("yes", "no")...).
				Value(value))
		} else {
			in := huh.NewInput().Title(title).Description(f.Kind.String()).Value(value)
			if f.Required {
				in = in.Validate(required(f.Label))
			}
			fields = append(fields, in)
		}

		if len(fields) == adminFieldsPerPage {
			groups = append(groups, huh.NewGroup(fields...))
			fields = nil
		}
	}
	if len(fields) > 0 {
		groups = append(groups, huh.NewGroup(fields...))
	}

	m.adminForm = huh.NewForm(groups...).
		WithShowHelp(true).
		WithShowErrors(true)
	return m.adminForm.Init()
}

func (m Model) handleAdminFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" && !m.adminLoading {
		m.adminForm = nil
		m.adminValues = nil
		m.viewState = ViewAdminList
		return m, nil
	}
	return m.updateAdminForm(msg)
}

func (m Model) updateAdminForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.adminForm == nil || m.adminLoading {
		return m, nil
	}

	var cmd tea.Cmd
	m.adminForm, cmd = updateForm(m.adminForm, msg)
	if m.adminForm.State != huh.StateCompleted {
		return m, cmd
	}

	m.adminLoading = true
	return m, tea.Batch(cmd, m.saveAdminRow())
}

func (m Model) saveAdminRow() tea.Cmd {
	svc := m.admin
	name := m.adminEntity().Name
	id := m.adminEditID

	values := make(map[string]string, len(m.adminValues))
	for k, v := range m.adminValues {
		values[k] = *v
	}

	return func() tea.Msg {
		ctx, cancel := newContext()
		defer cancel()

		if id == "" {
			row, err := svc.Create(ctx, name, values)
			if err != nil {
				return errMsg{err: err}
			}
			return adminSavedMsg{action: "created", id: row.ID()}
		}

		if _, err := svc.Update(ctx, name, id, values); err != nil {
			return errMsg{err: err}
		}
		return adminSavedMsg{action: "updated", id: id}
	}
}

// ============================================
// Views
// ============================================

func (m Model) viewAdminLogin() string {
	var sb strings.Builder

	sb.WriteString(m.styles.HeaderTitle.Render("Admin sign in"))
	sb.WriteString("\n\n")

	if m.adminLoading {
		sb.WriteString(m.spinner.View() + " Signing in...")
		return m.styles.Box.Render(sb.String())
	}
	if m.adminLoginForm != nil {
		sb.WriteString(m.adminLoginForm.View())
		sb.WriteString("\n")
	}

	sb.WriteString(m.styles.HelpBar.Render("enter next • esc back to shop"))
	return m.styles.Box.Render(sb.String())
}

func (m Model) viewAdminTables() string {
	var sb strings.Builder

	sb.WriteString(m.styles.HeaderTitle.Render("Admin"))
	sb.WriteString("\n\n")

	for i, e := range admin.Entities {
		if i == m.adminEntityIdx {
			sb.WriteString(m.styles.Highlight.Render("▸ " + e.Title))
		} else {
			sb.WriteString("  " + e.Title)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.styles.HelpBar.Render("↑/↓ select • enter open • L sign out • esc back to shop"))
	return m.styles.Box.Render(sb.String())
}

func (m Model) viewAdminList() string {
	var sb strings.Builder
	entity := m.adminEntity()

	sb.WriteString(m.styles.HeaderTitle.Render(entity.Title))
	sb.WriteString("  ")
	sb.WriteString(m.styles.Subtle.Render(fmt.Sprintf("page %d of %d • %d rows",
		max(m.adminPage.Page, 1), m.adminPage.PageCount(), m.adminPage.Total)))
	if m.adminLoading {
		sb.WriteString("  " + m.spinner.View())
	}
	sb.WriteString("\n\n")

	switch {
	case m.adminSearching:
		sb.WriteString("Search " + entity.SearchColumn + ": " + m.adminSearch.View() + "\n\n")
	case m.adminSearch.Value() != "":
		sb.WriteString(m.styles.Subtle.Render(fmt.Sprintf("%s matching %q", entity.SearchColumn, m.adminSearch.Value())))
		sb.WriteString("\n\n")
	}

	if len(m.adminPage.Rows) == 0 && !m.adminLoading {
		sb.WriteString(m.styles.Subtle.Render("No rows"))
		sb.WriteString("\n")
	} else {
		sb.WriteString(m.adminTable.View())
		sb.WriteString("\n")
	}

	help := "↑/↓ select • ←/→ page • / search • n new • e edit • d delete • x export • r reload • esc back"
	if m.adminSearching {
		help = "enter search • esc clear"
	}
	sb.WriteString(m.styles.HelpBar.Render(help))
	return m.styles.Box.Render(sb.String())
}

func (m Model) viewAdminForm() string {
	var sb strings.Builder
	entity := m.adminEntity()

	title := "New " + strings.ToLower(entity.Title)
	if m.adminEditID != "" {
		title = fmt.Sprintf("Edit %s #%s", strings.ToLower(entity.Title), m.adminEditID)
	}
	sb.WriteString(m.styles.FormTitle.Render(title))
	sb.WriteString("\n\n")

	if m.adminLoading {
		sb.WriteString(m.spinner.View() + " Saving...")
		return m.styles.Box.Render(sb.String())
	}
	if m.adminForm != nil {
		sb.WriteString(m.adminForm.View())
		sb.WriteString("\n")
	}

	sb.WriteString(m.styles.HelpBar.Render("tab next field • enter next • esc cancel"))
	return m.styles.Box.Render(sb.String())
}
