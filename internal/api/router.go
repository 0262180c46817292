package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scriptor/internal/editor"
	"github.com/starford/scriptor/internal/notestore"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(store *notestore.Store, sessions *editor.Manager, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(store, sessions)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Stored notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Put("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)
	r.Get("/notes/{id}/export", h.ExportNote)

	// Search.
	r.Get("/search", h.Search)

	// Editing sessions.
	r.Post("/sessions", h.OpenSession)
	r.Route("/sessions/{sid}", func(r chi.Router) {
		r.Get("/", h.SessionState)
		r.Delete("/", h.CloseSession)
		r.Get("/document", h.SessionDocument)
		r.Get("/preview", h.Preview)
		r.Post("/commands", h.RunCommand)
		r.Post("/text", h.Text)
		r.Post("/select", h.Select)
		r.Post("/paste", h.Paste)
		r.Post("/images", h.InsertImage)
		r.Post("/save", h.Save)
		r.Post("/tags", h.AddTag)
		r.Delete("/tags/{tag}", h.RemoveTag)
		r.Patch("/meta", h.UpdateMeta)
	})

	// Commands the sessions accept.
	r.Get("/commands", h.ListCommands)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
