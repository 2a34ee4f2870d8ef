package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Dan9191/issue-tracker/internal/export"
	"github.com/Dan9191/issue-tracker/internal/middleware"
	"github.com/Dan9191/issue-tracker/internal/models"
	"github.com/gorilla/mux"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ListIssues handles GET /api/issues
func (h *Handler) ListIssues(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	issues, total, err := h.svc.ListIssues(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	writeJSON(w, http.StatusOK, issues)
}

// CreateIssue handles POST /api/issues
func (h *Handler) CreateIssue(w http.ResponseWriter, r *http.Request) {
	var req models.CreateIssueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	issue, err := h.svc.CreateIssue(r.Context(), middleware.UserIDFromContext(r.Context()), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, issue)
}

// GetIssue handles GET /api/issues/{id}
func (h *Handler) GetIssue(w http.ResponseWriter, r *http.Request) {
	issue, err := h.svc.GetIssue(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

// UpdateIssue handles PUT /api/issues/{id}
func (h *Handler) UpdateIssue(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateIssueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	issue, err := h.svc.UpdateIssue(r.Context(), middleware.UserIDFromContext(r.Context()), mux.Vars(r)["id"], req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

// DeleteIssue handles DELETE /api/issues/{id}
func (h *Handler) DeleteIssue(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteIssue(r.Context(), middleware.UserIDFromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Issue deleted successfully"})
}

// IssueStats handles GET /api/issues/stats
func (h *Handler) IssueStats(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if isTrue(r.URL.Query().Get("mine")) {
		userID = middleware.UserIDFromContext(r.Context())
	}
	stats, err := h.svc.IssueStats(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ExportIssues handles GET /api/issues/export
func (h *Handler) ExportIssues(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	issues, _, err := h.svc.ListIssues(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, issues); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// parseFilter reads status, priority, severity, search, mine, page and limit
func parseFilter(r *http.Request) (models.IssueFilter, error) {
	q := r.URL.Query()
	var f models.IssueFilter
	var err error

	if f.Status, err = models.ParseStatus(q.Get("status")); err != nil {
		return f, err
	}
	if f.Priority, err = models.ParsePriority(q.Get("priority")); err != nil {
		return f, err
	}
	if f.Severity, err = models.ParseSeverity(q.Get("severity")); err != nil {
		return f, err
	}
	f.Search = q.Get("search")
	if isTrue(q.Get("mine")) {
		f.UserID = middleware.UserIDFromContext(r.Context())
	}

	if q.Has("page") || q.Has("limit") {
		if f.Page, err = intParam(q, "page", 1); err != nil || f.Page < 1 {
			return f, fmt.Errorf("page must be a positive integer")
		}
		if f.Limit, err = intParam(q, "limit", defaultPageSize); err != nil || f.Limit < 1 || f.Limit > maxPageSize {
			return f, fmt.Errorf("limit must be between 1 and %d", maxPageSize)
		}
	}
	return f, nil
}

func intParam(q url.Values, key string, def int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func isTrue(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
