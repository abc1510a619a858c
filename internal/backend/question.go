package backend

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNoQuestionID is returned when a page URL does not identify a question
var ErrNoQuestionID = errors.New("no question id in URL")

// ResolveQuestionID extracts the question id from a candidate page URL:
// the question_id query parameter when present, else the last path segment.
func ResolveQuestionID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid question URL: %w", err)
	}

	if id := u.Query().Get("question_id"); id != "" {
		return id, nil
	}

	segments := strings.Split(u.Path, "/")
	if id := segments[len(segments)-1]; id != "" {
		return id, nil
	}

	return "", fmt.Errorf("%w: %q", ErrNoQuestionID, rawURL)
}
