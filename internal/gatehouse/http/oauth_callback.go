package http

import (
	"errors"
	"net/http"

	"github.com/lodgepole/gatehouse/internal/gatehouse/domain"
	"github.com/lodgepole/gatehouse/internal/gatehouse/service"
	"github.com/lodgepole/gatehouse/pkg/httpx"
	"github.com/lodgepole/gatehouse/pkg/slogx"
)

// OAuthCallbackHandler completes provider sign-in. It sits behind the OAuth
// transport layer, which performs the handshake and verifies the provider's
// response before posting the resulting assertion here; by the time this
// handler runs, subject_id and email are trusted.
type OAuthCallbackHandler struct {
	OAuthService *service.OAuthService
	Cookies      CookieConfig
}

func (h *OAuthCallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid form data",
		})
		return
	}

	provider := r.PathValue("provider")
	subjectID := r.FormValue("subject_id")
	if provider == "" || subjectID == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "provider and subject_id are required",
		})
		return
	}

	assertion := service.Assertion{
		Provider:  provider,
		SubjectID: subjectID,
		Email:     r.FormValue("email"),
	}

	user, issued, err := h.OAuthService.Reconcile(ctx, assertion, httpx.IPKeyExtractor(r), r.UserAgent())
	if err != nil {
		var oerr *domain.OAuthError
		if errors.As(err, &oerr) {
			httpx.WriteJSON(w, http.StatusUnprocessableEntity, httpx.ErrorResponse{
				Error:            "oauth_failed",
				ErrorDescription: oerr.Reason,
			})
			return
		}
		log.Error("failed to reconcile oauth identity", "err", err, "provider", provider)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Failed to complete sign-in",
		})
		return
	}

	setSessionCookie(w, h.Cookies, issued.Token)
	httpx.WriteJSON(w, http.StatusOK, UserResponse{
		UserID: user.ID,
		Email:  user.Email,
	})
}
