package api

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scriptor/internal/command"
	"github.com/starford/scriptor/internal/editor"
	"github.com/starford/scriptor/internal/ingest"
)

// session resolves {sid} or writes the error response.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, "get session", err)
		return nil, false
	}
	return s, true
}

// OpenSession handles POST /api/sessions.
//
//	@Summary		Open an editing session on a note, or on a new note
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenSessionRequest	false	"Note to open"
//	@Success		201		{object}	editor.State
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.sessions.Open(r.Context(), strings.TrimSpace(req.NoteID))
	if err != nil {
		writeError(w, "open session", err)
		return
	}
	writeJSON(w, http.StatusCreated, s.State())
}

// SessionState handles GET /api/sessions/{sid}.
func (h *Handler) SessionState(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

// CloseSession handles DELETE /api/sessions/{sid}. Unsaved edits are
// flushed first when the server is configured to.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.Context(), chi.URLParam(r, "sid")); err != nil {
		writeError(w, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SessionDocument handles GET /api/sessions/{sid}/document.
func (h *Handler) SessionDocument(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Document())
}

// Preview handles GET /api/sessions/{sid}/preview?format=html|markdown.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	renderContent(w, r.URL.Query().Get("format"), s.Document().Content)
}

// ListCommands handles GET /api/commands.
func (h *Handler) ListCommands(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"commands": command.Names()})
}

// RunCommand handles POST /api/sessions/{sid}/commands.
//
//	@Summary		Run an editing command on the current selection
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			sid		path		string			true	"Session ID"
//	@Param			body	body		CommandRequest	true	"Command"
//	@Success		200		{object}	CommandResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/commands [post]
func (h *Handler) RunCommand(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req CommandRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Execute(command.Name(req.Name), req.Arg)
	h.respond(w, s, "run command", res, err)
}

// Text handles POST /api/sessions/{sid}/text.
func (h *Handler) Text(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var (
		res     command.Result
		err     error
		changed bool
	)
	for i := 0; i < req.Backspace && err == nil; i++ {
		res, err = s.DeleteBackward()
		changed = changed || res.Changed
	}
	if err == nil && req.Text != "" {
		res, err = s.InsertText(req.Text)
		changed = changed || res.Changed
	}
	res.Changed = changed
	h.respond(w, s, "text", res, err)
}

// Select handles POST /api/sessions/{sid}/select.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SelectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var err error
	switch {
	case req.All:
		_, err = s.SelectAll()
	case req.Blur:
		err = s.Blur()
	default:
		_, err = s.Select(*req.Range)
	}
	if err != nil {
		writeError(w, "select", err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

// Paste handles POST /api/sessions/{sid}/paste.
func (h *Handler) Paste(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req PasteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var (
		res command.Result
		err error
	)
	if req.HTML != "" {
		res, err = s.PasteHTML(req.HTML)
	} else {
		res, err = s.PasteText(req.Text)
	}
	h.respond(w, s, "paste", res, err)
}

// InsertImage handles POST /api/sessions/{sid}/images. A multipart upload
// (field "file", optional "alt") is embedded directly; a JSON body names a
// URL to download or a data URI.
//
//	@Summary		Insert an image at the caret
//	@Tags			sessions
//	@Accept			multipart/form-data
//	@Accept			json
//	@Produce		json
//	@Param			sid		path		string	true	"Session ID"
//	@Success		200		{object}	CommandResponse
//	@Failure		413		{object}	errResponse
//	@Failure		415		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/images [post]
func (h *Handler) InsertImage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		h.uploadImage(w, r, s)
		return
	}
	var req ImageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var (
		res command.Result
		err error
	)
	if req.URL != "" {
		res, err = s.InsertImageURL(r.Context(), req.URL, req.Alt)
	} else {
		res, err = s.InsertImageDataURI(req.DataURI, req.Alt)
	}
	h.respond(w, s, "insert image", res, err)
}

func (h *Handler) uploadImage(w http.ResponseWriter, r *http.Request, s *editor.Session) {
	limit := h.sessions.MaxImageBytes()
	// Multipart framing needs headroom beyond the image itself.
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}
	if int64(len(data)) > limit {
		writeError(w, "upload image", &ingest.TooLargeError{Size: int64(len(data)), Limit: limit})
		return
	}
	declared := header.Header.Get("Content-Type")
	if declared == "application/octet-stream" {
		declared = ""
	}
	res, err := s.InsertImage(data, declared, r.FormValue("alt"))
	if err == nil {
		slog.Info("api: image uploaded", slog.String("session", s.ID()), slog.String("filename", header.Filename), slog.Int("bytes", len(data)))
	}
	h.respond(w, s, "upload image", res, err)
}

// Save handles POST /api/sessions/{sid}/save.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Save(r.Context()); err != nil {
		writeError(w, "save", err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

// AddTag handles POST /api/sessions/{sid}/tags.
func (h *Handler) AddTag(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req TagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := s.AddTag(req.Tag); err != nil {
		writeError(w, "add tag", err)
		return
	}
	writeJSON(w, http.StatusOK, s.Document().Tags)
}

// RemoveTag handles DELETE /api/sessions/{sid}/tags/{tag}.
func (h *Handler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	removed, err := s.RemoveTag(chi.URLParam(r, "tag"))
	if err != nil {
		writeError(w, "remove tag", err)
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, errorBody("tag not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateMeta handles PATCH /api/sessions/{sid}/meta.
func (h *Handler) UpdateMeta(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req MetaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := applyMeta(r, s, req); err != nil {
		writeError(w, "update meta", err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

func applyMeta(r *http.Request, s *editor.Session, req MetaRequest) error {
	if req.Title != nil {
		if err := s.SetTitle(*req.Title); err != nil {
			return err
		}
	}
	if req.Folder != nil {
		if err := s.SetFolder(*req.Folder); err != nil {
			return err
		}
	}
	if req.Category != nil {
		if err := s.SetCategory(*req.Category); err != nil {
			return err
		}
	}
	if req.Subject != nil {
		if err := s.SetSubject(*req.Subject); err != nil {
			return err
		}
	}
	flags := s.Document().Flags
	if req.Starred != nil && *req.Starred != flags.Starred {
		if _, err := s.ToggleStar(); err != nil {
			return err
		}
	}
	if req.Public != nil && *req.Public != flags.Public {
		if _, err := s.TogglePublic(r.Context()); err != nil {
			return err
		}
	}
	if req.Picker != nil {
		return s.OpenPicker(editor.Picker(*req.Picker))
	}
	return nil
}

// respond writes a command outcome with the state that follows it.
func (h *Handler) respond(w http.ResponseWriter, s *editor.Session, op string, res command.Result, err error) {
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, CommandResponse{Result: res, State: s.State()})
}
