package quiz

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/p-n-ai/pai-lessons/internal/catalog"
)

// DefaultPassThreshold is the minimum percentage that passes a quiz.
const DefaultPassThreshold = 60.0

// ErrEmptyQuiz is returned when scoring a quiz with no questions.
var ErrEmptyQuiz = errors.New("quiz has no questions")

const (
	msgScore = "نتيجتك: %s%%"
	msgPass  = " - نجحت! الدرس التالي مفتوح."
	msgFail  = " - حاول مجدداً."
)

// Selections maps a question position to the chosen option index. A missing
// position means no option was selected.
type Selections map[int]int

// Result is the outcome of scoring one submission.
type Result struct {
	Score      int     `json:"score"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
}

// Score counts the positions whose selection equals the question's answer.
// The quiz passes when the percentage reaches threshold.
func Score(quiz []catalog.Question, selected Selections, threshold float64) (Result, error) {
	if len(quiz) == 0 {
		return Result{}, ErrEmptyQuiz
	}

	score := 0
	for pos, q := range quiz {
		if choice, ok := selected[pos]; ok && choice == q.Answer {
			score++
		}
	}

	pct := float64(100*score) / float64(len(quiz))
	return Result{
		Score:      score,
		Total:      len(quiz),
		Percentage: pct,
		Passed:     pct >= threshold,
	}, nil
}

// Message renders the learner-facing result line.
func (r Result) Message() string {
	msg := fmt.Sprintf(msgScore, strconv.FormatFloat(r.Percentage, 'f', -1, 64))
	if r.Passed {
		return msg + msgPass
	}
	return msg + msgFail
}
