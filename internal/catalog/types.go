package catalog

import "sort"

// DefaultBranch is the branch shown when a lessons page is first opened.
const DefaultBranch = "نحو"

// Question is a single multiple-choice quiz item. Answer indexes Options.
type Question struct {
	Question string   `json:"question" yaml:"question"`
	Options  []string `json:"options" yaml:"options"`
	Answer   int      `json:"answer" yaml:"answer"`
}

// Lesson is one video lesson and the quiz that gates the next lesson.
type Lesson struct {
	Title string     `json:"title" yaml:"title"`
	Video string     `json:"video" yaml:"video"`
	Quiz  []Question `json:"quiz" yaml:"quiz"`
}

// Catalog maps a branch name to its ordered lessons for one (grade, term).
type Catalog map[string][]Lesson

// Lessons returns the lessons of branch, or nil when the branch is unknown.
func (c Catalog) Lessons(branch string) []Lesson {
	if c == nil {
		return nil
	}
	return c[branch]
}

// Lesson returns the lesson at index within branch.
func (c Catalog) Lesson(branch string, index int) (Lesson, bool) {
	lessons := c.Lessons(branch)
	if index < 0 || index >= len(lessons) {
		return Lesson{}, false
	}
	return lessons[index], true
}

// Branches returns the branch names in sorted order.
func (c Catalog) Branches() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
