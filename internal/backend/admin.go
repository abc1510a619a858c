package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Candidate is the admin view of one candidate and their tests
type Candidate struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	Position       string   `json:"position"`
	Score          *float64 `json:"score,omitempty"`
	FeedbackStatus string   `json:"feedback_status"`
	AudioPath      string   `json:"audio_path,omitempty"`
	Tests          []Test   `json:"tests"`
}

// Test is a set of questions assigned to a candidate
type Test struct {
	ID        int              `json:"id"`
	Title     string           `json:"title"`
	Status    string           `json:"status"`
	Questions []QuestionResult `json:"questions"`
}

// QuestionResult is a question with the candidate's recorded answer, if any
type QuestionResult struct {
	ID       int      `json:"id"`
	Question string   `json:"question"`
	Answer   string   `json:"answer,omitempty"`
	Score    *float64 `json:"score,omitempty"`
	Feedback string   `json:"feedback,omitempty"`
}

type questionsResponse struct {
	apiResponse
	Questions []string `json:"questions"`
}

type checkAnswerRequest struct {
	Question string `json:"question"`
}

type checkAnswerResponse struct {
	apiResponse
	Answer string `json:"answer"`
}

type candidateResponse struct {
	apiResponse
	Candidate *Candidate `json:"candidate"`
}

// GenerateQuestions asks the backend for a fresh list of interview questions
func (c *Client) GenerateQuestions(ctx context.Context) ([]string, error) {
	var resp questionsResponse
	if err := c.callJSON(ctx, http.MethodPost, "/api/generate-questions", nil, &resp); err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}
	return resp.Questions, nil
}

// CheckAnswer asks the backend for a model answer to question
func (c *Client) CheckAnswer(ctx context.Context, question string) (string, error) {
	var resp checkAnswerResponse
	if err := c.callJSON(ctx, http.MethodPost, "/api/check-answer", checkAnswerRequest{Question: question}, &resp); err != nil {
		return "", fmt.Errorf("check answer: %w", err)
	}
	return resp.Answer, nil
}

// Candidate fetches a candidate with all tests and answers
func (c *Client) Candidate(ctx context.Context, id string) (*Candidate, error) {
	var resp candidateResponse
	if err := c.callJSON(ctx, http.MethodGet, "/api/candidate/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, fmt.Errorf("get candidate %s: %w", id, err)
	}
	if resp.Candidate == nil {
		return nil, fmt.Errorf("get candidate %s: %w: response has no candidate", id, ErrRequestFailed)
	}
	return resp.Candidate, nil
}

// CompleteTest marks a test as completed once every question has been answered
func (c *Client) CompleteTest(ctx context.Context, testID string) error {
	var resp apiResponse
	if err := c.callJSON(ctx, http.MethodPost, "/api/complete-test/"+url.PathEscape(testID), nil, &resp); err != nil {
		return fmt.Errorf("complete test %s: %w", testID, err)
	}
	return nil
}

// statusHolder lets callJSON check the status of any response envelope
type statusHolder interface {
	status() apiResponse
}

func (r apiResponse) status() apiResponse { return r }

// callJSON sends an optional JSON body and decodes a success envelope into out
func (c *Client) callJSON(ctx context.Context, method, path string, in any, out statusHolder) error {
	var body *bytes.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: failed to encode request: %v", ErrRequestFailed, err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	} else {
		body = bytes.NewReader(nil)
	}

	respBody, err := c.do(ctx, method, path, contentType, body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: failed to parse response JSON: %v", ErrRequestFailed, err)
	}

	if st := out.status(); st.Status != statusSuccess {
		return fmt.Errorf("%w: %s", ErrRequestFailed, describeFailure(st, "unsuccessful status"))
	}
	return nil
}
