package directory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gilbertlabs/gilbert/internal/memory"
)

// Client is one directory row from the clients sheet.
type Client struct {
	Name     string
	Contact  string
	Projects string // comma-separated project names
	KeyDates string
	Notes    string
}

// Project is one directory row from the projects sheet.
type Project struct {
	Name    string
	Client  string
	Status  string
	DueDate string
	Team    string // comma-separated member names
	Notes   string
}

// Lookup caches the client and project directory and answers name lookups
// against prompts. Entries are read-only here; the sheet is the source.
type Lookup struct {
	sheets       memory.SheetClient
	clientRange  string
	projectRange string
	logger       *slog.Logger

	mu       sync.RWMutex
	clients  []Client
	projects []Project
}

// NewLookup creates a directory lookup over the given sheet client.
func NewLookup(sheets memory.SheetClient, clientRange, projectRange string, logger *slog.Logger) *Lookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lookup{
		sheets:       sheets,
		clientRange:  clientRange,
		projectRange: projectRange,
		logger:       logger.With("component", "directory"),
	}
}

// Refresh re-reads both directory sheets. Malformed rows are skipped
// per-row; a failed read keeps the previous snapshot.
func (l *Lookup) Refresh(ctx context.Context) error {
	clientRows, err := l.sheets.Read(ctx, l.clientRange)
	if err != nil {
		return fmt.Errorf("failed to read client directory: %w", err)
	}

	projectRows, err := l.sheets.Read(ctx, l.projectRange)
	if err != nil {
		return fmt.Errorf("failed to read project directory: %w", err)
	}

	clients := make([]Client, 0, len(clientRows))
	for _, row := range clientRows {
		if c, ok := parseClient(row); ok {
			clients = append(clients, c)
		}
	}

	projects := make([]Project, 0, len(projectRows))
	for _, row := range projectRows {
		if p, ok := parseProject(row); ok {
			projects = append(projects, p)
		}
	}

	l.mu.Lock()
	l.clients = clients
	l.projects = projects
	l.mu.Unlock()

	l.logger.Debug("directory refreshed", "clients", len(clients), "projects", len(projects))
	return nil
}

// MatchClient looks for a client mention in the prompt.
func (l *Lookup) MatchClient(prompt string) (Match, bool) {
	l.mu.RLock()
	names := make([]string, len(l.clients))
	for i, c := range l.clients {
		names[i] = c.Name
	}
	l.mu.RUnlock()

	return FindEntity(prompt, names, ClientTriggers)
}

// MatchProject looks for a project mention in the prompt.
func (l *Lookup) MatchProject(prompt string) (Match, bool) {
	l.mu.RLock()
	names := make([]string, len(l.projects))
	for i, p := range l.projects {
		names[i] = p.Name
	}
	l.mu.RUnlock()

	return FindEntity(prompt, names, ProjectTriggers)
}

// ClientByName returns the directory entry for a known client name.
func (l *Lookup) ClientByName(name string) (Client, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, c := range l.clients {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Client{}, false
}

// ProjectByName returns the directory entry for a known project name.
func (l *Lookup) ProjectByName(name string) (Project, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, p := range l.projects {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Project{}, false
}

// Describe renders a client entry for prompt context.
func (c Client) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Client %s", c.Name)
	if c.Contact != "" {
		fmt.Fprintf(&sb, " (contact: %s)", c.Contact)
	}
	if c.Projects != "" {
		fmt.Fprintf(&sb, "; projects: %s", c.Projects)
	}
	if c.KeyDates != "" {
		fmt.Fprintf(&sb, "; key dates: %s", c.KeyDates)
	}
	if c.Notes != "" {
		fmt.Fprintf(&sb, "; notes: %s", c.Notes)
	}
	return sb.String()
}

// Describe renders a project entry for prompt context.
func (p Project) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Project %s", p.Name)
	if p.Client != "" {
		fmt.Fprintf(&sb, " for %s", p.Client)
	}
	if p.Status != "" {
		fmt.Fprintf(&sb, " (status: %s)", p.Status)
	}
	if p.DueDate != "" {
		fmt.Fprintf(&sb, "; due %s", p.DueDate)
	}
	if p.Team != "" {
		fmt.Fprintf(&sb, "; team: %s", p.Team)
	}
	if p.Notes != "" {
		fmt.Fprintf(&sb, "; notes: %s", p.Notes)
	}
	return sb.String()
}

// parseClient maps a (name, contact, projects, key-dates, notes) row.
// Rows without a name are rejected.
func parseClient(row []string) (Client, bool) {
	if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
		return Client{}, false
	}
	c := Client{Name: strings.TrimSpace(row[0])}
	if len(row) > 1 {
		c.Contact = row[1]
	}
	if len(row) > 2 {
		c.Projects = row[2]
	}
	if len(row) > 3 {
		c.KeyDates = row[3]
	}
	if len(row) > 4 {
		c.Notes = row[4]
	}
	return c, true
}

// parseProject maps a (name, client, status, due-date, team, notes) row.
func parseProject(row []string) (Project, bool) {
	if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
		return Project{}, false
	}
	p := Project{Name: strings.TrimSpace(row[0])}
	if len(row) > 1 {
		p.Client = row[1]
	}
	if len(row) > 2 {
		p.Status = row[2]
	}
	if len(row) > 3 {
		p.DueDate = row[3]
	}
	if len(row) > 4 {
		p.Team = row[4]
	}
	if len(row) > 5 {
		p.Notes = row[5]
	}
	return p, true
}
