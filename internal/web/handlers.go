package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/p-n-ai/pai-lessons/internal/catalog"
	"github.com/p-n-ai/pai-lessons/internal/quiz"
	"github.com/p-n-ai/pai-lessons/internal/report"
)

const (
	maxBodySize = 64 << 10
	xlsxType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type lessonsResponse struct {
	GradeTitle string   `json:"grade_title"`
	Branches   []string `json:"branches"`
	quiz.BranchView
}

type submitRequest struct {
	Grade   string         `json:"grade"`
	Term    string         `json:"term"`
	Branch  string         `json:"branch"`
	Index   int            `json:"index"`
	Answers map[string]int `json:"answers"`
}

type darkModeBody struct {
	DarkMode bool `json:"dark_mode"`
}

func (s *Server) handleGrade(w http.ResponseWriter, r *http.Request) {
	grade := r.PathValue("grade")
	writeJSON(w, http.StatusOK, map[string]string{
		"grade": grade,
		"title": catalog.GradeTitle(grade),
	})
}

// handleCatalog serves the raw document; the ETag is its digest.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	doc, _, err := s.loader.LoadDocument(r.Context(), q.Get("grade"), q.Get("term"))
	if err != nil {
		writeError(w, r, classifyLoad(err))
		return
	}

	etag := `"` + catalog.Digest(doc.Raw) + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Raw)
}

func (s *Server) handleLessons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sess := quiz.NewSession(profileFrom(r.Context()), q.Get("grade"), q.Get("term"), q.Get("branch"))

	c, err := s.loadCatalog(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}

	view, err := s.engine.Branch(r.Context(), sess, c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if query := q.Get("q"); query != "" {
		view = quiz.FilterView(view, query)
	}

	writeJSON(w, http.StatusOK, lessonsResponse{
		GradeTitle: catalog.GradeTitle(sess.Grade),
		Branches:   c.Branches(),
		BranchView: view,
	})
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sess := quiz.NewSession(profileFrom(r.Context()), q.Get("grade"), q.Get("term"), q.Get("branch"))

	index, err := strconv.Atoi(q.Get("index"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: index %q", errBadRequest, q.Get("index")))
		return
	}

	c, err := s.loadCatalog(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}

	view, err := s.engine.StartQuiz(r.Context(), sess, c, index)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	selected := make(quiz.Selections, len(req.Answers))
	for k, v := range req.Answers {
		pos, err := strconv.Atoi(k)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: answer position %q", errBadRequest, k))
			return
		}
		selected[pos] = v
	}

	sess := quiz.NewSession(profileFrom(r.Context()), req.Grade, req.Term, req.Branch)
	c, err := s.loadCatalog(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := s.engine.Submit(r.Context(), sess, c, req.Index, selected)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDarkMode(w http.ResponseWriter, r *http.Request) {
	on, err := s.engine.Store(profileFrom(r.Context())).DarkMode(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, darkModeBody{DarkMode: on})
}

func (s *Server) handleSetDarkMode(w http.ResponseWriter, r *http.Request) {
	var body darkModeBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.engine.Store(profileFrom(r.Context())).SetDarkMode(r.Context(), body.DarkMode); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleToggleDarkMode(w http.ResponseWriter, r *http.Request) {
	on, err := s.engine.Store(profileFrom(r.Context())).ToggleDarkMode(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, darkModeBody{DarkMode: on})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	grade, term := q.Get("grade"), q.Get("term")
	profile := profileFrom(r.Context())

	c, err := s.loadCatalog(r.Context(), quiz.NewSession(profile, grade, term, ""))
	if err != nil {
		writeError(w, r, err)
		return
	}

	rep := report.Report{Grade: grade, Term: term}
	for _, branch := range c.Branches() {
		view, err := s.engine.Branch(r.Context(), quiz.NewSession(profile, grade, term, branch), c)
		if err != nil {
			writeError(w, r, err)
			return
		}
		rep.Branches = append(rep.Branches, view)
	}

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, rep); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="progress_grade%s_term%s.xlsx"`, grade, term))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// loadCatalog fetches the catalog of the session's (grade, term). A missing
// document renders as an empty catalog.
func (s *Server) loadCatalog(ctx context.Context, sess quiz.Session) (catalog.Catalog, error) {
	c, err := s.loader.Load(ctx, sess.Grade, sess.Term)
	if errors.Is(err, catalog.ErrNotFound) {
		return catalog.Catalog{}, nil
	}
	if err != nil {
		return nil, classifyLoad(err)
	}
	return c, nil
}

// classifyLoad keeps client errors as they are and marks everything else as
// an upstream failure.
func classifyLoad(err error) error {
	if errors.Is(err, catalog.ErrInvalidParams) || errors.Is(err, catalog.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", errUpstream, err)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
