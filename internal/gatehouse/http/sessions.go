package http

import (
	"net/http"
	"time"

	"github.com/lodgepole/gatehouse/internal/gatehouse/service"
	"github.com/lodgepole/gatehouse/pkg/httpx"
	"github.com/lodgepole/gatehouse/pkg/slogx"
)

// MeHandler returns the authenticated user.
type MeHandler struct{}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		// SessionMiddleware guarantees a user; reaching here is a wiring bug.
		httpx.WriteJSON(w, http.StatusUnauthorized, httpx.ErrorResponse{
			Error: "unauthenticated",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, UserResponse{
		UserID: user.ID,
		Email:  user.Email,
	})
}

// SessionListHandler lists the caller's sessions for the audit view; the
// captured address and user agent are informational only.
type SessionListHandler struct {
	SessionService *service.SessionService
}

type SessionResponse struct {
	SessionID string    `json:"session_id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *SessionListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := userFromContext(ctx)
	if !ok {
		httpx.WriteJSON(w, http.StatusUnauthorized, httpx.ErrorResponse{
			Error: "unauthenticated",
		})
		return
	}

	sessions, err := h.SessionService.List(ctx, user.ID)
	if err != nil {
		log.Error("failed to list sessions", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Failed to list sessions",
		})
		return
	}

	out := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionResponse{
			SessionID: s.ID,
			IPAddress: s.IPAddress,
			UserAgent: s.UserAgent,
			CreatedAt: s.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// SessionRevokeAllHandler logs the caller out everywhere, including the
// current session.
type SessionRevokeAllHandler struct {
	SessionService *service.SessionService
	Cookies        CookieConfig
}

func (h *SessionRevokeAllHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := userFromContext(ctx)
	if !ok {
		httpx.WriteJSON(w, http.StatusUnauthorized, httpx.ErrorResponse{
			Error: "unauthenticated",
		})
		return
	}

	if err := h.SessionService.TerminateAll(ctx, user.ID); err != nil {
		log.Error("failed to terminate sessions", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Failed to log out everywhere",
		})
		return
	}

	clearSessionCookie(w, h.Cookies)
	w.WriteHeader(http.StatusNoContent)
}
