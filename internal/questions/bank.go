// Package questions loads trivia banks and serves random draws from them.
package questions

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"go.yaml.in/yaml/v3"

	"github.com/dkeye/QuizRush/internal/domain"
)

//go:embed bank.yaml
var builtin []byte

var ErrEmptyBank = errors.New("question bank is empty")

// record is one bank entry as written in YAML. The answer may be given as the
// option text or as a zero-based option index.
type record struct {
	ID            string   `yaml:"id"`
	Question      string   `yaml:"question"`
	Options       []string `yaml:"options"`
	Answer        string   `yaml:"answer"`
	CorrectAnswer *int     `yaml:"correctAnswer"`
	Explanation   string   `yaml:"explanation"`
	Category      string   `yaml:"category"`
	Difficulty    string   `yaml:"difficulty"`
}

func (r record) toDomain() (domain.Question, error) {
	q := domain.Question{
		ID:          r.ID,
		Prompt:      strings.TrimSpace(r.Question),
		Options:     r.Options,
		Answer:      r.Answer,
		Explanation: r.Explanation,
		Category:    r.Category,
		Difficulty:  strings.ToLower(r.Difficulty),
	}
	if q.Answer == "" && r.CorrectAnswer != nil {
		i := *r.CorrectAnswer
		if i < 0 || i >= len(r.Options) {
			return domain.Question{}, domain.ErrInvalidQuestion
		}
		q.Answer = r.Options[i]
	}
	return q, q.Validate()
}

type file struct {
	Questions []record `yaml:"questions"`
}

// Bank is an immutable, validated set of questions.
type Bank struct {
	questions []domain.Question

	mu  sync.Mutex
	rnd *rand.Rand
}

// Parse decodes a YAML bank. Any invalid entry fails the whole bank.
func Parse(data []byte) (*Bank, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode bank: %w", err)
	}
	if len(f.Questions) == 0 {
		return nil, ErrEmptyBank
	}
	qs := make([]domain.Question, 0, len(f.Questions))
	for i, r := range f.Questions {
		q, err := r.toDomain()
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i+1, r.ID, err)
		}
		qs = append(qs, q)
	}
	return &Bank{questions: qs, rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}, nil
}

// Builtin returns the bank shipped with the binary.
func Builtin() (*Bank, error) { return Parse(builtin) }

// Load reads a bank from path, or the built-in one when path is empty.
func Load(path string) (*Bank, error) {
	if path == "" {
		return Builtin()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Info().Str("module", "questions").Str("path", path).Int("questions", b.Len()).Msg("question bank loaded")
	return b, nil
}

func (b *Bank) Len() int { return len(b.questions) }

// Categories lists the distinct categories in bank order.
func (b *Bank) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, q := range b.questions {
		if _, ok := seen[q.Category]; ok || q.Category == "" {
			continue
		}
		seen[q.Category] = struct{}{}
		out = append(out, q.Category)
	}
	return out
}

// Questions draws up to req.Count random questions matching the category and
// difficulty. "all" and "mixed" match everything. Fewer matches than requested
// yields a shorter game; no match at all is ErrNoQuestions.
func (b *Bank) Questions(ctx context.Context, req domain.QuestionRequest) ([]domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var pool []domain.Question
	for _, q := range b.questions {
		if matches(req.Category, q.Category) && matches(req.Difficulty, q.Difficulty) {
			pool = append(pool, q)
		}
	}
	if len(pool) == 0 {
		return nil, domain.ErrNoQuestions
	}

	b.mu.Lock()
	b.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	b.mu.Unlock()

	n := req.Count
	if n <= 0 || n > len(pool) {
		n = len(pool)
	}
	out := make([]domain.Question, n)
	for i := range out {
		out[i] = pool[i]
		out[i].Options = append([]string(nil), pool[i].Options...)
	}
	return out, nil
}

func matches(want, have string) bool {
	switch strings.ToLower(want) {
	case "", "all", "mixed":
		return true
	}
	return strings.EqualFold(want, have)
}
