package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/", "alice", "secret")
}

func TestClientSetsHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			t.Errorf("BasicAuth() = %q, %q, %v, want alice, secret, true", user, pass, ok)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q, want %q", got, "application/json")
		}
		if got := r.Header.Get("User-Agent"); got != "copylog/1.0" {
			t.Errorf("User-Agent = %q, want %q", got, "copylog/1.0")
		}
		_, _ = io.WriteString(w, `{"name":"alice","key":"alice"}`)
	})

	if _, err := c.GetUser(context.Background(), "alice"); err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
}

func TestClientBearerWithoutUsername(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer secret")
		}
		_, _ = io.WriteString(w, `{"name":"alice"}`)
	})
	c.Username = ""

	if _, err := c.GetUser(context.Background(), "alice"); err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
}

func TestClientRequiresPassword(t *testing.T) {
	c := NewClient("https://jira.example.com", "alice", "")
	_, err := c.GetUser(context.Background(), "alice")
	if err == nil {
		t.Fatal("GetUser() without password succeeded, want error")
	}
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/search" {
			t.Errorf("path = %q, want /rest/api/2/search", r.URL.Path)
		}
		q := r.URL.Query()
		if got := q.Get("jql"); got != "project = SS ORDER BY updated DESC" {
			t.Errorf("jql = %q", got)
		}
		if got := q.Get("maxResults"); got != "150" {
			t.Errorf("maxResults = %q, want 150", got)
		}
		if got := q.Get("fields"); got != searchFields {
			t.Errorf("fields = %q, want %q", got, searchFields)
		}
		_, _ = io.WriteString(w, `{"total":2,"issues":[
			{"id":"1","key":"SS-1","fields":{"summary":"One","timespent":3600,"progress":{"progress":3600,"total":7200}}},
			{"id":"2","key":"SS-2","fields":{"summary":"Two","timespent":null}}]}`)
	})

	issues, err := c.Search(context.Background(), "project = SS ORDER BY updated DESC", 150)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("Search() returned %d issues, want 2", len(issues))
	}
	if issues[0].Fields.TimeSpent == nil || *issues[0].Fields.TimeSpent != 3600 {
		t.Errorf("issues[0].timespent = %v, want 3600", issues[0].Fields.TimeSpent)
	}
	if issues[1].Fields.TimeSpent != nil {
		t.Errorf("issues[1].timespent = %v, want nil", *issues[1].Fields.TimeSpent)
	}
}

func TestSearchIssuesPaginates(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
		result := SearchResult{StartAt: startAt, Total: 3}
		if startAt < 3 {
			n := 2
			if startAt+n > 3 {
				n = 3 - startAt
			}
			for i := 0; i < n; i++ {
				result.Issues = append(result.Issues, Issue{Key: fmt.Sprintf("SS-%d", startAt+i+1)})
			}
		}
		_ = json.NewEncoder(w).Encode(result)
	})

	issues, err := c.SearchIssues(context.Background(), "project = SS")
	if err != nil {
		t.Fatalf("SearchIssues() error = %v", err)
	}
	if len(issues) != 3 {
		t.Errorf("SearchIssues() returned %d issues, want 3", len(issues))
	}
	if calls != 2 {
		t.Errorf("server called %d times, want 2", calls)
	}
}

func TestGetWorklogsPaginates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/issue/SS-12/worklog" {
			t.Errorf("path = %q", r.URL.Path)
		}
		page := WorklogPage{Total: 2}
		switch r.URL.Query().Get("startAt") {
		case "0":
			page.Worklogs = []Worklog{{ID: "1", Started: "2024-01-10T09:00:00.000+0800"}}
		case "1":
			page.StartAt = 1
			page.Worklogs = []Worklog{{ID: "2", Started: "2024-01-11T09:00:00.000+0800"}}
		}
		_ = json.NewEncoder(w).Encode(page)
	})

	logs, err := c.GetWorklogs(context.Background(), "SS-12")
	if err != nil {
		t.Fatalf("GetWorklogs() error = %v", err)
	}
	if len(logs) != 2 || logs[1].ID != "2" {
		t.Errorf("GetWorklogs() = %+v, want two entries", logs)
	}
}

func TestAddWorklog(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		q := r.URL.Query()
		if got := q.Get("adjustEstimate"); got != "new" {
			t.Errorf("adjustEstimate = %q, want new", got)
		}
		if got := q.Get("newEstimate"); got != "90m" {
			t.Errorf("newEstimate = %q, want 90m", got)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		if body["comment"] != "debug" {
			t.Errorf("comment = %v, want debug", body["comment"])
		}
		if body["timeSpentSeconds"] != float64(3600) {
			t.Errorf("timeSpentSeconds = %v, want 3600", body["timeSpentSeconds"])
		}
		if body["started"] != "2024-01-10T09:00:00.000+0800" {
			t.Errorf("started = %v", body["started"])
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"77","comment":"debug","timeSpentSeconds":3600,"started":"2024-01-10T09:00:00.000+0800"}`)
	})

	wl := Worklog{Comment: "debug", TimeSpentSeconds: 3600, Started: "2024-01-10T09:00:00.000+0800"}
	created, err := c.AddWorklog(context.Background(), "AIL-7", wl, "new", "90m")
	if err != nil {
		t.Fatalf("AddWorklog() error = %v", err)
	}
	if created.ID != "77" {
		t.Errorf("created.ID = %q, want 77", created.ID)
	}
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"errorMessages":["bad jql"]}`)
	})

	_, err := c.Search(context.Background(), "nonsense", 10)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Search() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", apiErr.StatusCode)
	}
}
