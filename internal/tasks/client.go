// Package tasks reads open tasks from the agency's task tracker so the
// bot can answer deadline questions.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gilbertlabs/gilbert/internal/config"
	"github.com/gilbertlabs/gilbert/internal/llm"
)

// TriggerWords flag a prompt as task-related.
var TriggerWords = []string{"task", "tasks", "todo", "todos", "deadline", "deadlines", "due"}

// Task is one tracker item.
type Task struct {
	Name      string
	Assignee  string
	DueOn     string // YYYY-MM-DD, empty when unset
	Completed bool
}

// IsTaskRelated reports whether the prompt mentions tasks or deadlines.
func IsTaskRelated(prompt string) bool {
	for _, f := range strings.Fields(strings.ToLower(prompt)) {
		tok := strings.Trim(f, ".,!?;:'\"()")
		for _, w := range TriggerWords {
			if tok == w {
				return true
			}
		}
	}
	return false
}

// Client talks to an Asana-style HTTP API.
type Client struct {
	baseURL   string
	token     string
	projectID string
	client    *http.Client
}

// NewClient creates a task-tracker client from config.
func NewClient(cfg config.TasksConfig) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		token:     cfg.Token,
		projectID: cfg.ProjectID,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type taskPayload struct {
	Data []struct {
		Name     string `json:"name"`
		Assignee *struct {
			Name string `json:"name"`
		} `json:"assignee"`
		DueOn     string `json:"due_on"`
		Completed bool   `json:"completed"`
	} `json:"data"`
}

// ListOpenTasks returns the incomplete tasks for the given project, or
// the configured default project when project is empty.
func (c *Client) ListOpenTasks(ctx context.Context, project string) ([]Task, error) {
	if project == "" {
		project = c.projectID
	}

	endpoint := fmt.Sprintf("%s/projects/%s/tasks?%s", c.baseURL, url.PathEscape(project),
		url.Values{"opt_fields": {"name,assignee.name,due_on,completed"}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &llm.ProviderError{Provider: "tasks", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &llm.ProviderError{Provider: "tasks", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &llm.ProviderError{
			Provider: "tasks",
			Err:      fmt.Errorf("task API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	}

	var payload taskPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &llm.ProviderError{Provider: "tasks", Err: err}
	}

	open := make([]Task, 0, len(payload.Data))
	for _, d := range payload.Data {
		if d.Completed {
			continue
		}
		task := Task{Name: d.Name, DueOn: d.DueOn}
		if d.Assignee != nil {
			task.Assignee = d.Assignee.Name
		}
		open = append(open, task)
	}
	return open, nil
}

// Ping verifies the tracker is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ListOpenTasks(ctx, "")
	return err
}

// FormatTasks renders tasks as a bulleted snapshot for prompt context.
func FormatTasks(tasks []Task) string {
	if len(tasks) == 0 {
		return "No open tasks."
	}

	var sb strings.Builder
	for _, t := range tasks {
		sb.WriteString("- ")
		sb.WriteString(t.Name)
		if t.Assignee != "" {
			fmt.Fprintf(&sb, " (assignee: %s)", t.Assignee)
		}
		if t.DueOn != "" {
			fmt.Fprintf(&sb, " (due: %s)", t.DueOn)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
