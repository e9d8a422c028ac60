package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lodgepole/gatehouse/internal/gatehouse/service"
	"github.com/lodgepole/gatehouse/internal/gatehouse/store/drivers/sqlite"
	"github.com/lodgepole/gatehouse/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	cryptox.SetPepperPath(filepath.Join(os.TempDir(), "gatehouse-http-test-pepper"))
	os.Exit(m.Run())
}

var testCookies = CookieConfig{Name: "gatehouse_session", Secure: false}

// newTestRouter wires a full router against a file-backed sqlite store.
func newTestRouter(t *testing.T) *Router {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "gatehouse.db") +
		"?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter("test", testCookies, st, logger)

	sessions := &service.SessionService{Store: st}
	router.SessionService = sessions
	router.RegistrationService = &service.RegistrationService{Store: st}
	router.PasswordService = &service.PasswordService{
		Store:    st,
		Limiter:  service.NewLoginLimiter(service.DefaultLoginAttempts, service.DefaultLoginWindow),
		Sessions: sessions,
	}
	router.OAuthService = &service.OAuthService{Store: st}
	router.ApplyRoutes()

	return router
}

// postForm performs a form POST against the router, with optional cookies.
func postForm(router *Router, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doRequest(router *Router, method, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// sessionCookieFrom digs the session cookie out of a response.
func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookies.Name {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

// signupForm builds a valid signup form; password doubles as confirmation.
func signupForm(email, password string) url.Values {
	return url.Values{
		"email":                 {email},
		"password":              {password},
		"password_confirmation": {password},
	}
}
