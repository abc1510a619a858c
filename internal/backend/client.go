package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/its-ammu/ai-interview-bot/internal/metrics"
)

var (
	// ErrNetwork marks transport failures: the request never got an HTTP response
	ErrNetwork = errors.New("network error")

	// ErrSubmissionFailed is returned when an answer upload yields no transcript
	ErrSubmissionFailed = errors.New("answer submission failed")

	// ErrFeedbackUnavailable is returned when feedback for a transcript cannot be fetched
	ErrFeedbackUnavailable = errors.New("feedback unavailable")

	// ErrRequestFailed is returned by the admin endpoints
	ErrRequestFailed = errors.New("backend request failed")
)

const (
	recordAnswerPath   = "/api/record-answer"
	submitFeedbackPath = "/api/submit-feedback"

	// SessionCookieName is the cookie carrying the logged-in session
	SessionCookieName = "session"

	statusSuccess = "success"

	maxErrorBody = 512
)

// Client talks to the interview backend
type Client struct {
	config     Config
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// Config contains backend client configuration
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	SessionCookie string
	UserAgent     string
}

// Feedback is the evaluation of one answer
type Feedback struct {
	Score    *float64 `json:"score,omitempty"`
	Feedback string   `json:"feedback,omitempty"`
}

// ScoreText formats the score for display, "N/A" when the backend sent none
func (f *Feedback) ScoreText() string {
	if f == nil || f.Score == nil {
		return "N/A"
	}
	return fmt.Sprintf("%g", *f.Score)
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
}

type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type answerResponse struct {
	apiResponse
	Transcript string `json:"transcript,omitempty"`
}

type feedbackRequest struct {
	QuestionID string `json:"question_id"`
	Transcript string `json:"transcript"`
}

type feedbackResponse struct {
	apiResponse
	Feedback
}

// NewClient creates a new backend HTTP client
func NewClient(config Config, logger *slog.Logger, m *metrics.Metrics) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}

	baseURL, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https, got %q", config.BaseURL)
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	if config.UserAgent == "" {
		config.UserAgent = "ai-interview-bot/1.0"
	}

	if logger == nil {
		logger = slog.Default()
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
		// A login redirect means the session is gone; report it instead of parsing the login page
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &Client{
		config:     config,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		metrics:    m,
	}, nil
}

// SubmitAnswer uploads a WAV recording for questionID and returns the transcript
func (c *Client) SubmitAnswer(ctx context.Context, wav []byte, questionID string) (string, error) {
	startTime := time.Now()
	c.metrics.RecordSubmissionRequest()

	transcript, err := c.submitAnswer(ctx, wav, questionID)
	elapsed := time.Since(startTime)
	if err != nil {
		c.metrics.RecordSubmissionFailure(elapsed.Seconds())
		c.logger.Error("Answer submission failed",
			slog.String("question_id", questionID),
			slog.Int("wav_bytes", len(wav)),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()))
		return "", err
	}

	c.metrics.RecordSubmissionSuccess(elapsed.Seconds())
	c.logger.Info("Answer submitted",
		slog.String("question_id", questionID),
		slog.Int("wav_bytes", len(wav)),
		slog.Int("transcript_length", len(transcript)),
		slog.Duration("elapsed", elapsed))

	return transcript, nil
}

func (c *Client) submitAnswer(ctx context.Context, wav []byte, questionID string) (string, error) {
	body, contentType, err := createAnswerForm(wav, questionID)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create multipart request: %v", ErrSubmissionFailed, err)
	}

	respBody, err := c.do(ctx, http.MethodPost, recordAnswerPath, contentType, body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	var resp answerResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("%w: failed to parse response JSON: %v", ErrSubmissionFailed, err)
	}

	if resp.Status != statusSuccess || resp.Transcript == "" {
		return "", fmt.Errorf("%w: %s", ErrSubmissionFailed, describeFailure(resp.apiResponse, "no transcript returned"))
	}

	return resp.Transcript, nil
}

// FetchFeedback requests an evaluation of transcript for questionID
func (c *Client) FetchFeedback(ctx context.Context, questionID, transcript string) (*Feedback, error) {
	feedback, err := c.fetchFeedback(ctx, questionID, transcript)
	c.metrics.RecordFeedback(err == nil)
	if err != nil {
		c.logger.Warn("Feedback unavailable",
			slog.String("question_id", questionID),
			slog.String("error", err.Error()))
		return nil, err
	}

	c.logger.Info("Feedback received",
		slog.String("question_id", questionID),
		slog.String("score", feedback.ScoreText()))

	return feedback, nil
}

func (c *Client) fetchFeedback(ctx context.Context, questionID, transcript string) (*Feedback, error) {
	payload, err := json.Marshal(feedbackRequest{QuestionID: questionID, Transcript: transcript})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %v", ErrFeedbackUnavailable, err)
	}

	respBody, err := c.do(ctx, http.MethodPost, submitFeedbackPath, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeedbackUnavailable, err)
	}

	var resp feedbackResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response JSON: %v", ErrFeedbackUnavailable, err)
	}

	if resp.Status != statusSuccess {
		return nil, fmt.Errorf("%w: %s", ErrFeedbackUnavailable, describeFailure(resp.apiResponse, "unsuccessful status"))
	}

	feedback := resp.Feedback
	return &feedback, nil
}

// createAnswerForm builds the multipart body with the "audio" file and "question_id" field
func createAnswerForm(wav []byte, questionID string) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="audio"; filename="recording.wav"`)
	header.Set("Content-Type", "audio/wav")

	fileWriter, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := fileWriter.Write(wav); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	if err := writer.WriteField("question_id", questionID); err != nil {
		return nil, "", fmt.Errorf("failed to write field question_id: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

// do performs a single request and returns the body of a 2xx response.
// Transport failures are wrapped with ErrNetwork.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	startTime := time.Now()
	c.incrementTotalRequests()

	respBody, err := c.doRequest(ctx, method, path, contentType, body)
	if err != nil {
		c.incrementFailedRequests()
		return nil, err
	}

	c.incrementSuccessRequests()
	c.updateAvgResponseTime(time.Since(startTime))
	return respBody, nil
}

func (c *Client) doRequest(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	endpoint := c.baseURL.JoinPath(path).String()

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	requestID := uuid.NewString()
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if c.config.SessionCookie != "" {
		httpReq.AddCookie(&http.Cookie{Name: SessionCookieName, Value: c.config.SessionCookie})
	}

	c.logger.Debug("Sending backend request",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", requestID))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if loc := resp.Header.Get("Location"); loc != "" {
			return nil, fmt.Errorf("HTTP error %d: redirected to %s (session expired?)", resp.StatusCode, loc)
		}
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, truncate(respBody, maxErrorBody))
	}

	return respBody, nil
}

func describeFailure(resp apiResponse, fallback string) string {
	switch {
	case resp.Message != "":
		return fmt.Sprintf("status %q: %s", resp.Status, resp.Message)
	case resp.Status != "":
		return fmt.Sprintf("status %q: %s", resp.Status, fallback)
	default:
		return fallback
	}
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Statistics methods
func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementSuccessRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *Client) updateAvgResponseTime(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		AvgResponseTime: c.avgResponseTime,
	}
}

// BaseURL returns the configured backend root
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}
