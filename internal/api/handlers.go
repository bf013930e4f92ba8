package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ansuz/internal/apperr"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Status handles GET /api/status.
//
//	@Summary		Summarize the knowledge stores
//	@Tags			status
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Status()
	if err != nil {
		slog.Error("status failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Tags handles GET /api/tags.
//
//	@Summary		List tags ranked by usage
//	@Tags			tags
//	@Produce		json
//	@Success		200	{object}	TagsResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags()
	if err != nil {
		slog.Error("tags failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if tags == nil {
		tags = []TagCount{}
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: tags})
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List indexed notes across all topics
//	@Tags			notes
//	@Produce		json
//	@Param			tag	query		string	false	"Filter by tag"
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	items, err := h.svc.ListNotes(tag)
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// GetNote handles GET /api/notes/{topic}/{filename}.
//
//	@Summary		Get a single note with parsed frontmatter
//	@Tags			notes
//	@Produce		json
//	@Param			topic		path		string	true	"Topic name"
//	@Param			filename	path		string	true	"Note filename"
//	@Success		200			{object}	NoteDetail
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{topic}/{filename} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "topic")
	filename := pathParam(r, "filename")
	if topic == "" || filename == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("topic and filename are required"))
		return
	}
	note, err := h.svc.GetNote(topic, filename)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get note failed",
				slog.String("topic", topic),
				slog.String("filename", filename),
				slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// pathParam extracts a chi URL parameter, decoding percent escapes from
// OpenAPI clients.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// URLs handles GET /api/urls.
//
//	@Summary		List the URL index in stored order
//	@Tags			urls
//	@Produce		json
//	@Success		200	{array}	knowledge.URLIndexEntry
//	@Security		BearerAuth
//	@Router			/urls [get]
func (h *Handler) URLs(w http.ResponseWriter, r *http.Request) {
	urls, err := h.svc.URLs()
	if err != nil {
		slog.Error("list urls failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"urls":  urls,
		"total": len(urls),
	})
}

// Instructions handles GET /api/instructions.
//
//	@Summary		Get the instructions document split into sections
//	@Tags			instructions
//	@Produce		json
//	@Success		200	{object}	InstructionsResponse
//	@Security		BearerAuth
//	@Router			/instructions [get]
func (h *Handler) Instructions(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Instructions()
	if err != nil {
		slog.Error("instructions failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Search handles GET /api/search.
//
// Exactly one of q (content search) or tags (comma-separated tag search)
// must be set.
//
//	@Summary		Search notes, URLs, and instructions
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	false	"Content search terms"
//	@Param			tags	query		string	false	"Comma-separated tags"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	tags := r.URL.Query().Get("tags")
	switch {
	case q != "" && tags != "":
		writeJSON(w, http.StatusBadRequest, errorBody("pass either 'q' or 'tags', not both"))
	case q != "":
		writeJSON(w, http.StatusOK, SearchResponse{Query: q, Result: h.svc.Search(q)})
	case tags != "":
		writeJSON(w, http.StatusOK, SearchResponse{Query: tags, Result: h.svc.SearchByTags(tags)})
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' or 'tags' is required"))
	}
}

// MetricsSummary handles GET /api/metrics/summary.
//
//	@Summary		All-time tool invocation counts
//	@Tags			metrics
//	@Produce		json
//	@Success		200	{object}	MetricsSummaryResponse
//	@Security		BearerAuth
//	@Router			/metrics/summary [get]
func (h *Handler) MetricsSummary(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.MetricsSummary()
	if err != nil {
		slog.Error("metrics summary failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
