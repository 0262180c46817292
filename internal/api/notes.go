package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scriptor/internal/document"
	"github.com/starford/scriptor/internal/editor"
	"github.com/starford/scriptor/internal/models"
	"github.com/starford/scriptor/internal/notestore"
	"github.com/starford/scriptor/internal/parser"
)

// Handler holds API route handlers.
type Handler struct {
	store    *notestore.Store
	sessions *editor.Manager
}

// NewHandler creates a new Handler.
func NewHandler(store *notestore.Store, sessions *editor.Manager) *Handler {
	return &Handler{store: store, sessions: sessions}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes with optional pagination and filtering
//	@Tags			notes
//	@Produce		json
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Param			tag			query		string	false	"Filter by tag"
//	@Param			category	query		string	false	"Filter by category"
//	@Param			folder		query		string	false	"Filter by folder"
//	@Param			starred		query		bool	false	"Only starred notes"
//	@Param			sort		query		string	false	"Sort field"	Enums(updated, title)
//	@Success		200			{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	starred, _ := strconv.ParseBool(q.Get("starred"))

	items, total, err := h.store.List(r.Context(), models.ListFilter{
		Tag:      q.Get("tag"),
		Category: q.Get("category"),
		Folder:   q.Get("folder"),
		Starred:  starred,
		Sort:     q.Get("sort"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note with its document
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note ID"
//	@Success		200	{object}	notestore.Detail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	w.Header().Set("ETag", `"`+note.Checksum+`"`)
	writeJSON(w, http.StatusOK, note)
}

// ExportNote handles GET /api/notes/{id}/export?format=markdown|html.
func (h *Handler) ExportNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "export note", err)
		return
	}
	renderContent(w, r.URL.Query().Get("format"), note.Document.Content)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note, optionally importing Markdown, HTML or text
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := parser.Import(req.Format, []byte(req.Content))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if t := strings.TrimSpace(req.Title); t != "" {
		d.Title = t
	}
	for _, tag := range req.Tags {
		d.AddTag(tag)
	}
	if c := strings.TrimSpace(req.Category); c != "" {
		d.Category = c
	}
	note, err := h.store.Create(r.Context(), d)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	slog.Info("api: note created", slog.String("id", note.ID))
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Replace a note's document with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string				true	"Note ID"
//	@Param			If-Match	header		string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		UpdateNoteRequest	true	"Serialized document"
//	@Success		200			{object}	models.Note
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// The stored document always carries the ID it is stored under.
	d, err := document.Load(req.Document)
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	d.ID = id
	data, err := d.Serialize()
	if err != nil {
		writeError(w, "update note", err)
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	note, err := h.store.Update(r.Context(), id, data, ifMatch)
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	if n := h.sessions.Refresh(r.Context(), id); n > 0 {
		slog.Info("api: open sessions reloaded", slog.String("id", id), slog.Int("sessions", n))
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note ID"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.store.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// renderContent writes c as Markdown or (by default) HTML.
func renderContent(w http.ResponseWriter, format string, c document.Content) {
	switch format {
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(document.RenderMarkdown(c)))
	case "", "html":
		out, err := document.RenderHTML(c)
		if err != nil {
			writeError(w, "render", err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(out))
	case "json":
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(c)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("format must be html, markdown or json"))
	}
}
