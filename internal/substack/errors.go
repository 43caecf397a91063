package substack

import (
	"fmt"

	"go-substack-watch/internal/fetch"
)

// NetworkError is raised by the transport on timeouts and connection failures.
type NetworkError = fetch.NetworkError

// FetchError is a non-2xx reply from an API call.
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
	// Subject names what was being fetched, e.g. a post slug or user handle.
	Subject string
}

func (e *FetchError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("fetch %s: %s returned %s", e.Subject, e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Status)
}

// NotFoundError is a lookup miss in a listing, such as an unknown category.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

// ParseError is a reply whose JSON does not have the expected shape.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse response from %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func fetchError(resp *fetch.Response, rawURL, subject string) *FetchError {
	status := resp.Status
	if status == "" {
		status = fmt.Sprintf("%d", resp.StatusCode)
	}
	return &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Status: status, Subject: subject}
}
