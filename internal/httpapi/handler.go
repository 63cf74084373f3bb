// Package httpapi implements the HTTP handlers for the profile service.
//
// All routes except /health expect an x-user-id header forwarded by the
// Gateway.
//
// Routes:
//
//	GET    /health             → liveness
//	GET    /profile            → caller's profile
//	POST   /profile            → register caller's FREE profile
//	PATCH  /profile            → patch caller's profile
//	GET    /profiles/{id}      → another company's public profile
//	GET    /posts              → caller's posts (?status=ACTIVE|PENDING|FAILED, ?active=true)
//	POST   /posts              → create a post (media dispatched async)
//	GET    /posts/{id}         → one post (others' only once ACTIVE)
//	PATCH  /posts/{id}         → patch title / caption
//	DELETE /posts/{id}         → delete a post
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"jobmate/profile-service/internal/model"
	"jobmate/profile-service/internal/posts"
	"jobmate/profile-service/internal/profile"
)

// Handler holds shared dependencies.
type Handler struct {
	profiles *profile.Service
	posts    *posts.Workflow
	version  string
	log      *slog.Logger
}

// NewHandler returns a configured Handler.
func NewHandler(profiles *profile.Service, workflow *posts.Workflow, version string, log *slog.Logger) *Handler {
	return &Handler{profiles: profiles, posts: workflow, version: version, log: log}
}

// RegisterRoutes mounts all profile-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /profile", h.withUser(h.getOwnProfile))
	mux.HandleFunc("POST /profile", h.withUser(h.createProfile))
	mux.HandleFunc("PATCH /profile", h.withUser(h.updateProfile))
	mux.HandleFunc("GET /profiles/{id}", h.withUser(h.getProfile))
	mux.HandleFunc("GET /posts", h.withUser(h.listPosts))
	mux.HandleFunc("POST /posts", h.withUser(h.createPost))
	mux.HandleFunc("GET /posts/{id}", h.withUser(h.getPost))
	mux.HandleFunc("PATCH /posts/{id}", h.withUser(h.updatePost))
	mux.HandleFunc("DELETE /posts/{id}", h.withUser(h.deletePost))
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

func (h *Handler) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("x-user-id")
		if userID == "" {
			jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
			return
		}
		next(w, r, userID)
	}
}

// ─── Individual handlers ──────────────────────────────────────────────────────

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, map[string]string{
		"status":  "ok",
		"service": "profile-service",
		"version": h.version,
	})
}

func (h *Handler) getOwnProfile(w http.ResponseWriter, r *http.Request, userID string) {
	v, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonOK(w, v)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")
	v, err := h.profiles.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if id != userID {
		v.ApplicantSearchProfile = nil
	}
	jsonOK(w, v)
}

func (h *Handler) createProfile(w http.ResponseWriter, r *http.Request, userID string) {
	var in profile.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if in.UserID != "" && in.UserID != userID {
		jsonError(w, "cannot create a profile for another user", http.StatusForbidden)
		return
	}
	in.UserID = userID
	v, err := h.profiles.Create(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonStatus(w, http.StatusCreated, v)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request, userID string) {
	var patch profile.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	v, err := h.profiles.Update(r.Context(), userID, patch)
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonOK(w, v)
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()
	filter := q.Get("status")
	if filter == "" && q.Get("active") == "true" {
		filter = string(model.PostActive)
	}
	list, err := h.posts.List(r.Context(), userID, userID, filter)
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonOK(w, list)
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request, userID string) {
	var in posts.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	p, err := h.posts.Create(r.Context(), userID, in)
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonStatus(w, http.StatusAccepted, p)
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request, userID string) {
	p, err := h.posts.GetFor(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonOK(w, p)
}

func (h *Handler) updatePost(w http.ResponseWriter, r *http.Request, userID string) {
	var in posts.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	p, err := h.posts.Update(r.Context(), userID, r.PathValue("id"), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonOK(w, p)
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.posts.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var (
		ve *model.ValidationError
		de *model.DispatchError
	)
	switch {
	case errors.Is(err, model.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, model.ErrForbidden):
		jsonError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, model.ErrPremiumRequired):
		jsonError(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, model.ErrVersionConflict), errors.Is(err, model.ErrAlreadyExists):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.As(err, &ve):
		jsonStatus(w, http.StatusBadRequest, map[string]string{
			"error": ve.Msg, "field": ve.Field, "constraint": ve.Constraint,
		})
	case errors.As(err, &de):
		jsonError(w, de.Error(), http.StatusServiceUnavailable)
	default:
		h.log.Error("request failed", "err", err)
		jsonError(w, "internal server error", http.StatusInternalServerError)
	}
}

func jsonOK(w http.ResponseWriter, v any) {
	jsonStatus(w, http.StatusOK, v)
}

func jsonStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	jsonStatus(w, code, map[string]string{"error": msg})
}
