package mockapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/its-ammu/ai-interview-bot/internal/audio"
	"github.com/its-ammu/ai-interview-bot/internal/backend"
)

// Canned responses served until real transcription and scoring exist
const (
	SampleTranscript = "This is a sample answer for the question."
	SampleFeedback   = "Good answer! You demonstrated clear communication skills."
	SampleScore      = 8.5
	SampleAIAnswer   = "This is a sample answer from the AI."

	maxUploadSize = 32 << 20
)

// SampleQuestions is returned by the question generator
var SampleQuestions = []string{
	"Tell me about a challenge you overcame?",
	"What are your greatest strengths and weaknesses?",
	"Where do you see yourself in 5 years?",
	"Why should we hire you?",
	"Describe a situation where you showed leadership.",
	"How do you handle stress and pressure?",
	"What is your approach to problem-solving?",
	"Tell me about a time you failed and what you learned from it.",
}

var exampleQuestions = []string{
	"Explain the concept of object-oriented programming and its main principles.",
	"Describe your experience with version control systems like Git.",
	"How would you handle a situation where your code is causing performance issues?",
	"Explain the difference between REST and SOAP APIs.",
	"Describe your approach to debugging complex issues.",
}

// Options configures the mock backend
type Options struct {
	// SessionCookie, when set, must be presented in the "session" cookie;
	// other requests are redirected to /login
	SessionCookie string

	// AudioDir, when set, receives every uploaded answer as question_<id>.wav
	AudioDir string
}

// Server is an in-memory stand-in for the interview backend
type Server struct {
	opts   Options
	logger *slog.Logger
	mux    *http.ServeMux

	candidates map[int]*backend.Candidate
	mu         sync.Mutex
}

// New creates a mock backend seeded with one example candidate and test
func New(opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		opts:       opts,
		logger:     logger,
		mux:        http.NewServeMux(),
		candidates: map[int]*backend.Candidate{1: exampleCandidate()},
	}

	s.mux.HandleFunc("POST /api/record-answer", s.handleRecordAnswer)
	s.mux.HandleFunc("POST /api/submit-feedback", s.handleSubmitFeedback)
	s.mux.HandleFunc("POST /api/complete-test/{id}", s.handleCompleteTest)
	s.mux.HandleFunc("POST /api/generate-questions", s.handleGenerateQuestions)
	s.mux.HandleFunc("POST /api/check-answer", s.handleCheckAnswer)
	s.mux.HandleFunc("GET /api/candidate/{id}", s.handleCandidate)

	return s
}

func exampleCandidate() *backend.Candidate {
	score := 0.0
	test := backend.Test{ID: 1, Title: "Technical Interview Assessment", Status: "Pending"}
	for i, q := range exampleQuestions {
		test.Questions = append(test.Questions, backend.QuestionResult{ID: i + 1, Question: q})
	}
	return &backend.Candidate{
		ID:             1,
		Name:           "example_candidate",
		Position:       "Software Engineer",
		Score:          &score,
		FeedbackStatus: "Pending",
		Tests:          []backend.Test{test},
	}
}

// ServeHTTP checks the session cookie and dispatches to the API routes
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.opts.SessionCookie != "" {
		cookie, err := r.Cookie(backend.SessionCookieName)
		if err != nil || cookie.Value != s.opts.SessionCookie {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
	}
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": message})
}

// findQuestion returns the question with id; callers hold s.mu
func (s *Server) findQuestion(id int) *backend.QuestionResult {
	for _, c := range s.candidates {
		for ti := range c.Tests {
			for qi := range c.Tests[ti].Questions {
				if q := &c.Tests[ti].Questions[qi]; q.ID == id {
					return q
				}
			}
		}
	}
	return nil
}

func (s *Server) handleRecordAnswer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	questionID, err := strconv.Atoi(r.FormValue("question_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid question id")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing audio file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error reading audio file")
		return
	}

	info, err := audio.GetWAVInfo(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid WAV upload: %v", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.findQuestion(questionID)
	if q == nil {
		writeError(w, http.StatusNotFound, "Question not found")
		return
	}

	if s.opts.AudioDir != "" {
		path := filepath.Join(s.opts.AudioDir, fmt.Sprintf("question_%d.wav", questionID))
		if err := os.WriteFile(path, data, 0644); err != nil {
			s.logger.Error("Failed to store answer audio", slog.String("path", path), slog.String("error", err.Error()))
		}
	}

	q.Answer = SampleTranscript

	s.logger.Info("Answer received",
		slog.String("upload_id", uuid.NewString()),
		slog.Int("question_id", questionID),
		slog.String("filename", header.Filename),
		slog.Int("bytes", len(data)),
		slog.Int("sample_rate", int(info.SampleRate)),
		slog.Float64("duration", info.Duration))

	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "transcript": q.Answer})
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuestionID json.Number `json:"question_id"`
		Transcript string      `json:"transcript"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	questionID, err := strconv.Atoi(req.QuestionID.String())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid question id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.findQuestion(questionID)
	if q == nil {
		writeError(w, http.StatusNotFound, "Question not found")
		return
	}

	score := SampleScore
	q.Feedback = SampleFeedback
	q.Score = &score

	// the score is stored but, like the real endpoint, not returned
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "feedback": q.Feedback})
}

func (s *Server) handleCompleteTest(w http.ResponseWriter, r *http.Request) {
	testID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid test id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.candidates {
		for i := range c.Tests {
			if c.Tests[i].ID == testID {
				c.Tests[i].Status = "Completed"
				writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
				return
			}
		}
	}
	writeError(w, http.StatusNotFound, "Test not found")
}

func (s *Server) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "questions": SampleQuestions})
}

func (s *Server) handleCheckAnswer(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "answer": SampleAIAnswer})
}

func (s *Server) handleCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid candidate id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.candidates[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Candidate not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "candidate": c})
}
