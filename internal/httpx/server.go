package httpx

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	maxBodyBytes   = 10 << 20
	defaultTimeout = 15 * time.Second
	timeoutMargin  = 5 * time.Second
)

// requestTimeout outlasts an order submission, which keeps running after its client
// context is gone, so the router never answers 504 over a handler that already replied.
func requestTimeout(orderTimeout time.Duration) time.Duration {
	if t := orderTimeout + timeoutMargin; t > defaultTimeout {
		return t
	}
	return defaultTimeout
}

func NewRouter(orderTimeout time.Duration) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout(orderTimeout)))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Admin guards the back-office routes with a shared password sent as a bearer token.
type Admin struct {
	Password string
}

func (a *Admin) Register(r chi.Router) {
	r.Post("/api/admin/login", a.login)
}

func (a *Admin) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil || !a.matches(req.Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid password"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": a.Password})
}

// Require rejects requests without "Authorization: Bearer <password>".
func (a *Admin) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "
		h := r.Header.Get("Authorization")
		if len(h) <= len(prefix) || h[:len(prefix)] != prefix || !a.matches(h[len(prefix):]) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Admin) matches(s string) bool {
	return a.Password != "" && subtle.ConstantTimeCompare([]byte(s), []byte(a.Password)) == 1
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, code int, b []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

func fail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "error": msg})
}

func internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	log.Printf("%s %s [%s]: %v", r.Method, r.URL.Path, middleware.GetReqID(r.Context()), err)
	fail(w, http.StatusInternalServerError, msg)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// param returns a route parameter with percent-escapes removed, so ids such as
// "MANTEAU 3/4" can travel as "MANTEAU%203%2F4".
func param(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}
