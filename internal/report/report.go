// Package report exports a profile's progress for one grade and term as an
// XLSX workbook.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"

	"github.com/p-n-ai/pai-lessons/internal/catalog"
	"github.com/p-n-ai/pai-lessons/internal/quiz"
)

// SummarySheet is the name of the first sheet.
const SummarySheet = "Summary"

const maxSheetName = 31

// Report is the progress of every branch of one (grade, term).
type Report struct {
	Grade    string
	Term     string
	Branches []quiz.BranchView
}

// WriteXLSX writes r as a workbook: a summary sheet followed by one sheet per
// branch listing its lessons.
func WriteXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}

	rows := [][]any{
		{catalog.GradeTitle(r.Grade), "term " + r.Term},
		{"branch", "lessons", "completed", "progress_percent"},
	}
	for _, b := range r.Branches {
		rows = append(rows, []any{b.Branch, b.Total, b.CompletedLessons, b.ProgressPercent})
	}
	if err := setRows(f, SummarySheet, rows); err != nil {
		return err
	}

	used := map[string]bool{cases.Fold().String(SummarySheet): true}
	for _, b := range r.Branches {
		name := uniqueSheetName(SheetName(b.Branch), used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}
		lessonRows := [][]any{{"index", "title", "unlocked", "completed"}}
		for _, l := range b.Lessons {
			lessonRows = append(lessonRows, []any{l.Index, l.Title, l.Unlocked, l.Completed})
		}
		if err := setRows(f, name, lessonRows); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SheetName turns a branch name into a valid worksheet name.
func SheetName(branch string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, branch)
	if name == "" || strings.EqualFold(name, SummarySheet) {
		name = "_" + name
	}
	return truncate(name, maxSheetName)
}

// uniqueSheetName returns name, or name with a numeric suffix when a sheet
// with the same case-folded name was already taken, and records the result.
func uniqueSheetName(name string, used map[string]bool) string {
	candidate := name
	for n := 2; used[cases.Fold().String(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncate(name, maxSheetName-len([]rune(suffix))) + suffix
	}
	used[cases.Fold().String(candidate)] = true
	return candidate
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}
