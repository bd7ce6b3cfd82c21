package crawler

import "fmt"

// FetchError indicates a network failure, timeout or non-2xx response.
// Entries failing this way are retried up to the configured cap.
type FetchError struct {
	URL        string
	StatusCode int // 0 when the request never completed
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ContentError indicates the response body was unusable: a non-HTML
// content type or a body exceeding the configured size cap.
type ContentError struct {
	URL    string
	Reason string
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content %s: %s", e.URL, e.Reason)
}

// PolicyViolation indicates the URL is disallowed by the domain's robots
// policy. It terminates the queue entry as completed without a retry.
type PolicyViolation struct {
	URL string
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("robots policy disallows %s", e.URL)
}

// ProcessingError indicates extraction or classification failed on
// malformed markup.
type ProcessingError struct {
	URL string
	Err error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("process %s: %v", e.URL, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// StorageError indicates a transactional write failure. It aborts the
// affected crawl iteration but never stops the scheduler loop.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
