package http

import (
	"net/http"

	"github.com/lodgepole/gatehouse/internal/gatehouse/service"
	"github.com/lodgepole/gatehouse/pkg/httpx"
	"github.com/lodgepole/gatehouse/pkg/slogx"
)

// LogoutHandler terminates the cookie's session. Logging out without a
// session, or twice in a row, succeeds; the cookie is cleared either way.
type LogoutHandler struct {
	SessionService *service.SessionService
	Cookies        CookieConfig
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := h.SessionService.Terminate(ctx, sessionToken(r, h.Cookies)); err != nil {
		log.Error("failed to terminate session", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Failed to log out",
		})
		return
	}

	clearSessionCookie(w, h.Cookies)
	w.WriteHeader(http.StatusNoContent)
}
