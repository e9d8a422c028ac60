package http

import (
	"errors"
	"net/http"

	"github.com/lodgepole/gatehouse/internal/gatehouse/domain"
	"github.com/lodgepole/gatehouse/internal/gatehouse/service"
	"github.com/lodgepole/gatehouse/pkg/httpx"
	"github.com/lodgepole/gatehouse/pkg/slogx"
)

type LoginHandler struct {
	PasswordService *service.PasswordService
	Cookies         CookieConfig
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid form data",
		})
		return
	}

	// The limiter key comes from the socket peer, not forwarding headers;
	// a client rotating X-Forwarded-For must not mint fresh quota. The
	// header-derived address is still recorded for the session audit view.
	user, issued, err := h.PasswordService.Login(ctx, service.LoginRequest{
		Email:     r.FormValue("email"),
		Password:  r.FormValue("password"),
		ClientKey: httpx.RemoteAddrKeyExtractor(r),
		IPAddress: httpx.IPKeyExtractor(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRateLimited):
			w.Header().Set("Retry-After", "60")
			httpx.WriteJSON(w, http.StatusTooManyRequests, httpx.ErrorResponse{
				Error:            "rate_limited",
				ErrorDescription: "Too many login attempts. Try again later.",
			})
		case errors.Is(err, domain.ErrInvalidCredentials):
			// Same message for unknown email and wrong password.
			httpx.WriteJSON(w, http.StatusUnauthorized, httpx.ErrorResponse{
				Error:            "invalid_credentials",
				ErrorDescription: "Try another email address or password",
			})
		default:
			log.Error("failed to log in user", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
				Error:            "server_error",
				ErrorDescription: "Failed to log in",
			})
		}
		return
	}

	setSessionCookie(w, h.Cookies, issued.Token)
	httpx.WriteJSON(w, http.StatusOK, UserResponse{
		UserID: user.ID,
		Email:  user.Email,
	})
}
