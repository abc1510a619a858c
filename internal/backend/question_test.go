package backend

import (
	"errors"
	"testing"
)

func TestResolveQuestionID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{url: "http://localhost:5000/candidate/question/12", want: "12"},
		{url: "http://localhost:5000/candidate/question/12?question_id=34", want: "34"},
		{url: "/candidate/question/5", want: "5"},
		{url: "?question_id=abc", want: "abc"},
		{url: "http://localhost:5000/candidate/question/12?question_id=", want: "12"},
		{url: "http://localhost:5000/candidate/question/", wantErr: true},
		{url: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := ResolveQuestionID(tt.url)
			if tt.wantErr {
				if !errors.Is(err, ErrNoQuestionID) {
					t.Errorf("Expected ErrNoQuestionID, got %q, %v", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
