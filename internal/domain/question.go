package domain

import "strings"

// Question is one trivia record. Answer holds the text of the correct option.
type Question struct {
	ID          string   `json:"id,omitempty" yaml:"id"`
	Prompt      string   `json:"question" yaml:"question"`
	Options     []string `json:"options" yaml:"options"`
	Answer      string   `json:"answer" yaml:"answer"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation"`
	Category    string   `json:"category,omitempty" yaml:"category"`
	Difficulty  string   `json:"difficulty,omitempty" yaml:"difficulty"`
}

// Validate requires a prompt, at least two distinct options and an answer among them.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" || len(q.Options) < 2 {
		return ErrInvalidQuestion
	}
	seen := make(map[string]struct{}, len(q.Options))
	found := false
	for _, o := range q.Options {
		if strings.TrimSpace(o) == "" {
			return ErrInvalidQuestion
		}
		if _, dup := seen[o]; dup {
			return ErrInvalidQuestion
		}
		seen[o] = struct{}{}
		if o == q.Answer {
			found = true
		}
	}
	if !found {
		return ErrInvalidQuestion
	}
	return nil
}

// IsCorrect reports whether option is this question's correct answer.
func (q Question) IsCorrect(option string) bool { return option == q.Answer }

// QuestionRequest is what a question source is asked for.
type QuestionRequest struct {
	Count      int
	Category   string
	Difficulty string
}

func RequestFor(s Settings) QuestionRequest {
	return QuestionRequest{Count: s.QuestionCount, Category: s.Category, Difficulty: s.Difficulty}
}
