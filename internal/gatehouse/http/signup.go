package http

import (
	"errors"
	"net/http"

	"github.com/lodgepole/gatehouse/internal/gatehouse/domain"
	"github.com/lodgepole/gatehouse/internal/gatehouse/service"
	"github.com/lodgepole/gatehouse/pkg/httpx"
	"github.com/lodgepole/gatehouse/pkg/slogx"
)

type SignupHandler struct {
	RegistrationService *service.RegistrationService
	Cookies             CookieConfig
}

// UserResponse is the public view of a user.
type UserResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid form data",
		})
		return
	}

	user, issued, err := h.RegistrationService.Register(ctx, service.RegisterRequest{
		Email:                r.FormValue("email"),
		Password:             r.FormValue("password"),
		PasswordConfirmation: r.FormValue("password_confirmation"),
		IPAddress:            httpx.IPKeyExtractor(r),
		UserAgent:            r.UserAgent(),
	})
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			httpx.WriteJSON(w, http.StatusUnprocessableEntity, httpx.ErrorResponse{
				Error:            "validation_failed",
				ErrorDescription: "Could not create the account",
				Fields:           verr.Fields,
			})
			return
		}
		log.Error("failed to register user", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Failed to create the account",
		})
		return
	}

	// Registration leaves the caller authenticated.
	setSessionCookie(w, h.Cookies, issued.Token)
	httpx.WriteJSON(w, http.StatusCreated, UserResponse{
		UserID: user.ID,
		Email:  user.Email,
	})
}
