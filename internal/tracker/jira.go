package tracker

import (
	"fmt"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"

	"github.com/reportmill/internal/models"
)

const defaultSearchLimit = 50

// Client wraps the Jira REST API behind the narrow surface reports need:
// connection checks and bounded JQL searches projected into models.Issue.
type Client struct {
	client  *jira.Client
	baseURL string
}

func NewClient(baseURL, email, apiToken string) (*Client, error) {
	if baseURL == "" || email == "" || apiToken == "" {
		return nil, fmt.Errorf("jira base URL, email and API token are required")
	}

	tp := jira.BasicAuthTransport{
		Username: email,
		Password: apiToken,
	}
	client, err := jira.NewClient(tp.Client(), baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %v", err)
	}

	return &Client{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// TestConnection verifies credentials by fetching the authenticated user.
func (c *Client) TestConnection() error {
	if _, _, err := c.client.User.GetSelf(); err != nil {
		return fmt.Errorf("jira connection test failed: %v", err)
	}
	return nil
}

// Search runs a JQL query bounded by limit and projects the results.
func (c *Client) Search(jql string, limit int) ([]models.Issue, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	found, _, err := c.client.Issue.Search(jql, &jira.SearchOptions{
		MaxResults: limit,
		Fields: []string{
			"summary", "status", "assignee", "priority",
			"created", "updated", "duedate", "labels",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("jira search failed: %v", err)
	}

	issues := make([]models.Issue, 0, len(found))
	for _, issue := range found {
		issues = append(issues, c.project(issue))
	}
	return issues, nil
}

func (c *Client) project(issue jira.Issue) models.Issue {
	out := models.Issue{
		Key:     issue.Key,
		Summary: issue.Fields.Summary,
		Created: time.Time(issue.Fields.Created),
		Updated: time.Time(issue.Fields.Updated),
		Labels:  issue.Fields.Labels,
		URL:     c.baseURL + "/browse/" + issue.Key,
	}
	if issue.Fields.Status != nil {
		out.Status = issue.Fields.Status.Name
	}
	if issue.Fields.Assignee != nil {
		out.Assignee = issue.Fields.Assignee.DisplayName
	}
	if issue.Fields.Priority != nil {
		out.Priority = issue.Fields.Priority.Name
	}
	if due := time.Time(issue.Fields.Duedate); !due.IsZero() {
		out.DueDate = &due
	}
	return out
}
