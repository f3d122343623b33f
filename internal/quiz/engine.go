// Package quiz derives lesson unlock state and scores quiz submissions.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-lessons/internal/catalog"
	"github.com/p-n-ai/pai-lessons/internal/progress"
)

var (
	// ErrLessonNotFound is returned for an index outside the branch.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrLessonLocked is returned when the previous lesson's quiz has not
	// been passed.
	ErrLessonLocked = errors.New("lesson is locked")
)

// animationStep staggers lesson cards as they appear.
const animationStep = 300 * time.Millisecond

// Session is the explicit page context every engine call works against.
type Session struct {
	Profile string
	Grade   string
	Term    string
	Branch  string
}

// NewSession returns a session for a lessons page; an empty branch selects
// catalog.DefaultBranch.
func NewSession(profile, grade, term, branch string) Session {
	if branch == "" {
		branch = catalog.DefaultBranch
	}
	return Session{Profile: profile, Grade: grade, Term: term, Branch: branch}
}

// Key is the progress track of this session.
func (s Session) Key() progress.Key {
	return progress.Key{Grade: s.Grade, Term: s.Term, Branch: s.Branch}
}

// Notifier receives completion events for fan-out to other open pages.
type Notifier interface {
	Publish(profileID string, event any)
}

// Completion is published after a quiz is passed.
type Completion struct {
	Type        string `json:"type"`
	Grade       string `json:"grade"`
	Term        string `json:"term"`
	Branch      string `json:"branch"`
	LessonIndex int    `json:"lesson_index"`
}

// LessonView is one lesson card.
type LessonView struct {
	Index            int    `json:"index"`
	Title            string `json:"title"`
	Video            string `json:"video"`
	Unlocked         bool   `json:"unlocked"`
	Completed        bool   `json:"completed"`
	AnimationDelayMS int64  `json:"animation_delay_ms"`
}

// BranchView is the rendered state of a branch.
type BranchView struct {
	Grade            string       `json:"grade"`
	Term             string       `json:"term"`
	Branch           string       `json:"branch"`
	Lessons          []LessonView `json:"lessons"`
	Total            int          `json:"total"`
	CompletedLessons int          `json:"completed_lessons"`
	// ProgressPercent is derived from completion flags and never exceeds 100.
	ProgressPercent float64 `json:"progress_percent"`
	// CounterPercent is derived from the stored counter and may exceed 100.
	CounterPercent float64 `json:"counter_percent"`
}

// QuestionView is a question with the answer withheld.
type QuestionView struct {
	Position int      `json:"position"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// QuizView is what the quiz overlay shows.
type QuizView struct {
	Index     int            `json:"index"`
	Title     string         `json:"title"`
	Questions []QuestionView `json:"questions"`
}

// Outcome is the response to a submission.
type Outcome struct {
	Result  Result     `json:"result"`
	Message string     `json:"message"`
	Branch  BranchView `json:"branch"`
}

// EngineConfig holds dependencies for the engine.
type EngineConfig struct {
	Backend       progress.Backend
	Events        EventLogger
	Notifier      Notifier
	PassThreshold float64 // percent (default 60)
}

// Engine evaluates unlock state and quiz submissions.
type Engine struct {
	backend       progress.Backend
	events        EventLogger
	notifier      Notifier
	passThreshold float64
}

// NewEngine creates a new engine.
func NewEngine(cfg EngineConfig) *Engine {
	backend := cfg.Backend
	if backend == nil {
		backend = progress.NewMemoryBackend()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	threshold := cfg.PassThreshold
	if threshold == 0 {
		threshold = DefaultPassThreshold
	}
	return &Engine{
		backend:       backend,
		events:        events,
		notifier:      cfg.Notifier,
		passThreshold: threshold,
	}
}

// Store returns the progress store of a profile.
func (e *Engine) Store(profile string) *progress.Store {
	return progress.NewStore(e.backend, profile)
}

// IsUnlocked reports whether lesson index is open: the first lesson always
// is, any other once the previous lesson's flag is set.
func (e *Engine) IsUnlocked(ctx context.Context, sess Session, index int) (bool, error) {
	switch {
	case index < 0:
		return false, nil
	case index == 0:
		return true, nil
	}
	return e.Store(sess.Profile).IsCompleted(ctx, sess.Key(), index-1)
}

// Branch renders every lesson of the session's branch from current storage.
// An unknown branch renders as an empty list.
func (e *Engine) Branch(ctx context.Context, sess Session, c catalog.Catalog) (BranchView, error) {
	store := e.Store(sess.Profile)
	key := sess.Key()
	lessons := c.Lessons(sess.Branch)

	view := BranchView{
		Grade:   sess.Grade,
		Term:    sess.Term,
		Branch:  sess.Branch,
		Lessons: make([]LessonView, 0, len(lessons)),
		Total:   len(lessons),
	}

	// completed[i] doubles as the unlock input for i+1.
	prevCompleted := false
	for i, l := range lessons {
		done, err := store.IsCompleted(ctx, key, i)
		if err != nil {
			return BranchView{}, err
		}
		view.Lessons = append(view.Lessons, LessonView{
			Index:            i,
			Title:            l.Title,
			Video:            l.Video,
			Unlocked:         i == 0 || prevCompleted,
			Completed:        done,
			AnimationDelayMS: (time.Duration(i) * animationStep).Milliseconds(),
		})
		prevCompleted = done
	}

	completed, err := store.CompletedLessons(ctx, key, view.Total)
	if err != nil {
		return BranchView{}, err
	}
	view.CompletedLessons = completed

	count, err := store.CompletedCount(ctx, key)
	if err != nil {
		return BranchView{}, err
	}
	if view.Total > 0 {
		view.ProgressPercent = float64(100*view.CompletedLessons) / float64(view.Total)
		view.CounterPercent = float64(100*count) / float64(view.Total)
	}

	return view, nil
}

// FilterView keeps only lessons whose title matches query. Totals and
// percentages still describe the whole branch.
func FilterView(view BranchView, query string) BranchView {
	kept := make([]LessonView, 0, len(view.Lessons))
	for _, l := range view.Lessons {
		if catalog.MatchTitle(l.Title, query) {
			kept = append(kept, l)
		}
	}
	view.Lessons = kept
	return view
}

// StartQuiz returns the questions of an unlocked lesson.
func (e *Engine) StartQuiz(ctx context.Context, sess Session, c catalog.Catalog, index int) (QuizView, error) {
	lesson, ok := c.Lesson(sess.Branch, index)
	if !ok {
		return QuizView{}, fmt.Errorf("%w: %s[%d]", ErrLessonNotFound, sess.Branch, index)
	}
	unlocked, err := e.IsUnlocked(ctx, sess, index)
	if err != nil {
		return QuizView{}, err
	}
	if !unlocked {
		return QuizView{}, fmt.Errorf("%w: %s[%d]", ErrLessonLocked, sess.Branch, index)
	}

	view := QuizView{
		Index:     index,
		Title:     lesson.Title,
		Questions: make([]QuestionView, len(lesson.Quiz)),
	}
	for i, q := range lesson.Quiz {
		view.Questions[i] = QuestionView{Position: i, Question: q.Question, Options: q.Options}
	}

	e.logEvent(sess, EventQuizStarted, map[string]any{"lesson_index": index})
	return view, nil
}

// Submit scores a submission for lesson index. A pass marks the lesson
// completed; a fail changes nothing. The returned branch view reflects the
// storage after the submission.
func (e *Engine) Submit(ctx context.Context, sess Session, c catalog.Catalog, index int, selected Selections) (Outcome, error) {
	lesson, ok := c.Lesson(sess.Branch, index)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s[%d]", ErrLessonNotFound, sess.Branch, index)
	}
	unlocked, err := e.IsUnlocked(ctx, sess, index)
	if err != nil {
		return Outcome{}, err
	}
	if !unlocked {
		return Outcome{}, fmt.Errorf("%w: %s[%d]", ErrLessonLocked, sess.Branch, index)
	}

	result, err := Score(lesson.Quiz, selected, e.passThreshold)
	if err != nil {
		return Outcome{}, fmt.Errorf("scoring %s[%d]: %w", sess.Branch, index, err)
	}

	data := map[string]any{
		"grade":        sess.Grade,
		"term":         sess.Term,
		"branch":       sess.Branch,
		"lesson_index": index,
		"score":        result.Score,
		"total":        result.Total,
		"percentage":   result.Percentage,
	}

	if result.Passed {
		if err := e.Store(sess.Profile).MarkCompleted(ctx, sess.Key(), index); err != nil {
			return Outcome{}, err
		}
		e.logEvent(sess, EventQuizPassed, data)
		if e.notifier != nil {
			e.notifier.Publish(sess.Profile, Completion{
				Type:        "lesson_completed",
				Grade:       sess.Grade,
				Term:        sess.Term,
				Branch:      sess.Branch,
				LessonIndex: index,
			})
		}
	} else {
		e.logEvent(sess, EventQuizFailed, data)
	}

	slog.Info("quiz submitted",
		"profile", sess.Profile,
		"branch", sess.Branch,
		"lesson_index", index,
		"percentage", result.Percentage,
		"passed", result.Passed,
	)

	view, err := e.Branch(ctx, sess, c)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Result:  result,
		Message: result.Message(),
		Branch:  view,
	}, nil
}

func (e *Engine) logEvent(sess Session, eventType string, data map[string]any) {
	if err := e.events.LogEvent(Event{
		ProfileID: sess.Profile,
		EventType: eventType,
		Data:      data,
	}); err != nil {
		slog.Warn("failed to log event", "type", eventType, "error", err)
	}
}
