package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/shared"
	"github.com/campus-hub/campus-data-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT LOOKUP
// GET /api/students/{id}     — one cached record
// GET /api/students/search   — ?q= tokens, or exact ?name= ?email= ?group=
// Served entirely from the cache index; the relational source is never hit.
// ══════════════════════════════════════════════════════════════════════════════

// StudentHandler serves cached student lookups.
type StudentHandler struct {
	index student.CacheIndex
}

// NewStudentHandler creates the handler.
func NewStudentHandler(index student.CacheIndex) *StudentHandler {
	return &StudentHandler{index: index}
}

type studentResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Mail  string `json:"mail"`
	Group string `json:"group"`
}

func toStudent(r student.CacheRecord) studentResponse {
	return studentResponse{
		ID:    int64(r.ID),
		Name:  r.Name,
		Age:   r.Age,
		Mail:  r.Mail,
		Group: r.Group,
	}
}

// Get handles GET /api/students/{id}.
func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	record, err := h.index.Get(r.Context(), catalog.SourceID(id))
	if errors.Is(err, shared.ErrNotFound) {
		writeError(w, http.StatusNotFound, "student not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, toStudent(record))
}

// Search handles GET /api/students/search. Exactly one of q, name, email
// or group selects the lookup mode.
func (h *StudentHandler) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	var (
		records []student.CacheRecord
		err     error
	)
	switch {
	case params.Get("q") != "":
		records, err = h.index.Search(r.Context(), params.Get("q"))
	case params.Get("name") != "":
		records, err = h.index.FindByName(r.Context(), params.Get("name"))
	case params.Get("email") != "":
		records, err = h.index.FindByEmail(r.Context(), params.Get("email"))
	case params.Get("group") != "":
		records, err = h.index.FindByGroup(r.Context(), params.Get("group"))
	default:
		writeError(w, http.StatusBadRequest, "one of q, name, email or group is required")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	out := make([]studentResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toStudent(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"students": out,
		"meta":     map[string]any{"status": "success", "results": len(out)},
	})
}
