package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/soulsync/soulsync/internal/app"
	"github.com/soulsync/soulsync/internal/companion"
	"github.com/soulsync/soulsync/internal/matching"
	"github.com/soulsync/soulsync/internal/mood"
	"github.com/soulsync/soulsync/internal/moodlog"
	"github.com/soulsync/soulsync/internal/profile"
	"github.com/soulsync/soulsync/internal/wall"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Version is reported by /health and the MCP server.
const Version = "0.1.0"

type AppDeps struct {
	App *app.App
}

// NewAppHandler returns the HTTP/JSON surface of the daemon.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)
	r.Get("/moods", handleMoods)

	r.Get("/profile", handleGetProfile(deps))
	r.Patch("/profile", handlePatchProfile(deps))

	r.Post("/mood", handleSelectMood(deps))
	r.Get("/mood/history", handleHistory(deps))
	r.Get("/mood/trend", handleTrend(deps))

	r.Post("/interests", handleAddInterest(deps))
	r.Delete("/interests/{interest}", handleRemoveInterest(deps))

	r.Get("/posts", handleListPosts(deps))
	r.Post("/posts", handleAddPost(deps))
	r.Post("/posts/{id}/like", handleLikePost(deps))

	r.Get("/matches", handleMatches(deps))
	r.Get("/dashboard", handleDashboard(deps))
	r.Get("/tip", handleTip(deps))
	r.Get("/export", handleExport(deps))

	r.Post("/chat", handleChat(deps))
	r.Get("/chat/ws", handleChatWS(deps))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": Version})
}

func handleMoods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mood.Displays())
}

func handleGetProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.App.Profile()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get profile: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

type patchProfileRequest struct {
	Nickname *string `json:"nickname"`
	Avatar   *string `json:"avatar"`
}

func handlePatchProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req patchProfileRequest
		if !decodeBody(w, r, &req) {
			return
		}

		cur, err := deps.App.Profile()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get profile: %v", err)
			return
		}
		nickname, avatar := cur.Nickname, cur.Avatar
		if req.Nickname != nil {
			nickname = *req.Nickname
			if req.Avatar == nil && cur.Avatar == profile.AvatarFor(cur.Nickname) {
				// Keep a generated avatar in step with the nickname.
				avatar = ""
			}
		}
		if req.Avatar != nil {
			avatar = *req.Avatar
		}

		p, err := deps.App.UpdateSettings(nickname, avatar)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

type selectMoodRequest struct {
	Mood *mood.Mood `json:"mood"`
}

func handleSelectMood(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectMoodRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Mood == nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "mood is required")
			return
		}

		res, err := deps.App.SelectMood(r.Context(), *req.Mood)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := deps.App.History()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load history: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

type trendResponse struct {
	Points  []moodlog.Point `json:"points"`
	Empty   bool            `json:"empty"`
	Message string          `json:"message,omitempty"`
}

func handleTrend(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := parseIntParam(r, "n", moodlog.DefaultTrendLen, 365)
		points, err := deps.App.Trend(n)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load trend: %v", err)
			return
		}
		resp := trendResponse{Points: points}
		if len(points) == 0 {
			resp.Empty = true
			resp.Message = moodlog.EmptyMessage
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type interestRequest struct {
	Interest string `json:"interest"`
}

type interestResponse struct {
	Profile profile.Profile `json:"profile"`
	Added   bool            `json:"added"`
}

func handleAddInterest(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req interestRequest
		if !decodeBody(w, r, &req) {
			return
		}
		p, added, err := deps.App.AddInterest(req.Interest)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, interestResponse{Profile: p, Added: added})
	}
}

func handleRemoveInterest(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// chi routes on RawPath when it is set, leaving the param escaped.
		tag := chi.URLParam(r, "interest")
		if r.URL.RawPath != "" {
			var err error
			if tag, err = url.PathUnescape(tag); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid interest: %v", err)
				return
			}
		}
		p, err := deps.App.RemoveInterest(tag)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleListPosts(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := deps.App.Posts()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list posts: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, posts)
	}
}

type addPostRequest struct {
	Content string `json:"content"`
}

func handleAddPost(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addPostRequest
		if !decodeBody(w, r, &req) {
			return
		}
		p, err := deps.App.AddPost(req.Content)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func handleLikePost(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.App.LikePost(chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

type matchesResponse struct {
	Matches []matching.Match `json:"matches"`
	Empty   bool             `json:"empty"`
	Message string           `json:"message,omitempty"`
}

func handleMatches(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 0, 0)
		matches, err := deps.App.Matches(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to rank peers: %v", err)
			return
		}
		resp := matchesResponse{Matches: matches}
		if len(matches) == 0 {
			resp.Empty = true
			resp.Message = matching.EmptyMessage
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleDashboard(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := deps.App.Dashboard(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to build dashboard: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func handleTip(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"tip": deps.App.Tip()})
	}
}

// Export is the full local data set.
type Export struct {
	Profile profile.Profile `json:"profile"`
	History []moodlog.Entry `json:"history"`
	Posts   []wall.Post     `json:"posts"`
}

func handleExport(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			exp Export
			err error
		)
		if exp.Profile, err = deps.App.Profile(); err == nil {
			if exp.History, err = deps.App.History(); err == nil {
				exp.Posts, err = deps.App.Posts()
			}
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to export data: %v", err)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="soulsync-export.json"`)
		writeJSON(w, http.StatusOK, exp)
	}
}

type chatRequest struct {
	Message string                  `json:"message"`
	History []companion.ChatMessage `json:"history"`
}

func handleChat(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !decodeBody(w, r, &req) {
			return
		}
		msg, err := deps.App.Chat(r.Context(), req.Message, req.History)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

// writeDomainError maps package sentinel errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profile.ErrEmptyInterest),
		errors.Is(err, profile.ErrEmptyNickname),
		errors.Is(err, wall.ErrEmptyPost),
		errors.Is(err, companion.ErrEmptyMessage):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, wall.ErrPostNotFound):
		httpError(w, http.StatusNotFound, "not_found", "%v", err)
	case errors.Is(err, companion.ErrTurnInFlight):
		httpError(w, http.StatusConflict, "conflict", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
