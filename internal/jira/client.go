package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// searchFields is the set of fields to request in search/get queries.
const searchFields = "summary,timespent,progress,project,fixVersions"

// Client provides HTTP access to a Jira instance.
type Client struct {
	URL        string
	Username   string
	Password   string // password, or API token on Cloud
	HTTPClient *http.Client
}

// NewClient creates a new Jira client.
func NewClient(url, username, password string) *Client {
	return &Client{
		URL:      strings.TrimSuffix(url, "/"),
		Username: username,
		Password: password,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Search runs a JQL query and returns at most maxResults issues from the
// first page.
func (c *Client) Search(ctx context.Context, jql string, maxResults int) ([]Issue, error) {
	result, err := c.searchPage(ctx, jql, 0, maxResults)
	if err != nil {
		return nil, err
	}
	return result.Issues, nil
}

// SearchIssues queries Jira using JQL and returns all matching issues, handling pagination.
func (c *Client) SearchIssues(ctx context.Context, jql string) ([]Issue, error) {
	var allIssues []Issue
	startAt := 0
	maxResults := 100

	for {
		result, err := c.searchPage(ctx, jql, startAt, maxResults)
		if err != nil {
			return nil, err
		}

		allIssues = append(allIssues, result.Issues...)

		if len(result.Issues) == 0 || startAt+len(result.Issues) >= result.Total {
			break
		}
		startAt += len(result.Issues)
	}

	return allIssues, nil
}

func (c *Client) searchPage(ctx context.Context, jql string, startAt, maxResults int) (*SearchResult, error) {
	params := url.Values{
		"jql":        {jql},
		"fields":     {searchFields},
		"startAt":    {strconv.Itoa(startAt)},
		"maxResults": {strconv.Itoa(maxResults)},
	}
	apiURL := fmt.Sprintf("%s/rest/api/2/search?%s", c.URL, params.Encode())

	body, err := c.doRequest(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("search issues: %w", err)
	}

	var result SearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}
	return &result, nil
}

// GetIssue fetches a single Jira issue by key (e.g., "PROJ-123").
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	apiURL := fmt.Sprintf("%s/rest/api/2/issue/%s?fields=%s", c.URL, url.PathEscape(key), searchFields)

	body, err := c.doRequest(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("get issue %s: %w", key, err)
	}

	var issue Issue
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, fmt.Errorf("parse issue response: %w", err)
	}

	return &issue, nil
}

// GetWorklogs returns every worklog on an issue, following pagination.
func (c *Client) GetWorklogs(ctx context.Context, key string) ([]Worklog, error) {
	var all []Worklog
	startAt := 0

	for {
		apiURL := fmt.Sprintf("%s/rest/api/2/issue/%s/worklog?startAt=%d", c.URL, url.PathEscape(key), startAt)
		body, err := c.doRequest(ctx, "GET", apiURL, nil)
		if err != nil {
			return nil, fmt.Errorf("get worklogs of %s: %w", key, err)
		}

		var page WorklogPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("parse worklog response: %w", err)
		}
		all = append(all, page.Worklogs...)

		if len(page.Worklogs) == 0 || startAt+len(page.Worklogs) >= page.Total {
			break
		}
		startAt += len(page.Worklogs)
	}

	return all, nil
}

// CreateIssue creates a new issue in Jira.
// fields should include "project", "summary", "issuetype", and optionally other fields.
func (c *Client) CreateIssue(ctx context.Context, fields map[string]interface{}) (*Issue, error) {
	payload := map[string]interface{}{"fields": fields}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal create request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/rest/api/2/issue", c.URL)

	body, err := c.doRequest(ctx, "POST", apiURL, data)
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}

	// Create response only returns id, key, self.
	var created Issue
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("parse create response: %w", err)
	}
	return &created, nil
}

// AddWorklog logs work on an issue. adjustEstimate and newEstimate map to
// the query parameters of the same name and are omitted when empty.
func (c *Client) AddWorklog(ctx context.Context, key string, wl Worklog, adjustEstimate, newEstimate string) (*Worklog, error) {
	payload := map[string]interface{}{
		"comment":          wl.Comment,
		"timeSpentSeconds": wl.TimeSpentSeconds,
		"started":          wl.Started,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal worklog request: %w", err)
	}

	params := url.Values{}
	if adjustEstimate != "" {
		params.Set("adjustEstimate", adjustEstimate)
	}
	if newEstimate != "" {
		params.Set("newEstimate", newEstimate)
	}
	apiURL := fmt.Sprintf("%s/rest/api/2/issue/%s/worklog", c.URL, url.PathEscape(key))
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	body, err := c.doRequest(ctx, "POST", apiURL, data)
	if err != nil {
		return nil, fmt.Errorf("add worklog to %s: %w", key, err)
	}

	var created Worklog
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("parse worklog response: %w", err)
	}
	return &created, nil
}

// GetProject fetches a project by key.
func (c *Client) GetProject(ctx context.Context, key string) (*ProjectField, error) {
	apiURL := fmt.Sprintf("%s/rest/api/2/project/%s", c.URL, url.PathEscape(key))

	body, err := c.doRequest(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", key, err)
	}

	var project ProjectField
	if err := json.Unmarshal(body, &project); err != nil {
		return nil, fmt.Errorf("parse project response: %w", err)
	}
	return &project, nil
}

// GetProjectVersions lists the versions of a project.
func (c *Client) GetProjectVersions(ctx context.Context, key string) ([]VersionField, error) {
	apiURL := fmt.Sprintf("%s/rest/api/2/project/%s/versions", c.URL, url.PathEscape(key))

	body, err := c.doRequest(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("get versions of %s: %w", key, err)
	}

	var versions []VersionField
	if err := json.Unmarshal(body, &versions); err != nil {
		return nil, fmt.Errorf("parse versions response: %w", err)
	}
	return versions, nil
}

// GetUser fetches a user by username.
func (c *Client) GetUser(ctx context.Context, username string) (*UserField, error) {
	apiURL := fmt.Sprintf("%s/rest/api/2/user?%s", c.URL, url.Values{"username": {username}}.Encode())

	body, err := c.doRequest(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}

	var user UserField
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("parse user response: %w", err)
	}
	return &user, nil
}

// doRequest executes an authenticated HTTP request and returns the response body.
func (c *Client) doRequest(ctx context.Context, method, apiURL string, body []byte) ([]byte, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("jira URL not configured")
	}
	if c.Password == "" {
		return nil, fmt.Errorf("jira password not configured")
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.setAuth(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "copylog/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// setAuth sets basic auth when a username is configured, otherwise treats
// the password as a personal access token.
func (c *Client) setAuth(req *http.Request) {
	if c.Username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
		req.Header.Set("Authorization", "Basic "+auth)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.Password)
	}
}
