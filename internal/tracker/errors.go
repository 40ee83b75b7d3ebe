package tracker

import "fmt"

// AuthError reports credentials a tracker refused. It is fatal for a run.
type AuthError struct {
	URL      string
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s at %s: %v", e.Username, e.URL, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RemoteQueryError reports a failed read against a tracker. The project
// pair being processed is skipped.
type RemoteQueryError struct {
	Op  string
	Err error
}

func (e *RemoteQueryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteQueryError) Unwrap() error { return e.Err }

// IssueCreationError reports a target issue that could not be created.
// The worklog that needed it is skipped.
type IssueCreationError struct {
	Project string
	Summary string
	Err     error
}

func (e *IssueCreationError) Error() string {
	return fmt.Sprintf("create issue %q in %s: %v", e.Summary, e.Project, e.Err)
}

func (e *IssueCreationError) Unwrap() error { return e.Err }
