package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/2beens/liftlog/internal/metrics"
	"github.com/2beens/liftlog/internal/middleware"
	"github.com/2beens/liftlog/internal/users"
	"github.com/2beens/liftlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// recordsReloader reloads the workout records from disk. Used on logout, so
// that the persisted state is the source of truth at session boundaries.
type recordsReloader interface {
	Reload() error
}

type Handler struct {
	authService    *Service
	records        recordsReloader
	metricsManager *metrics.Manager
}

func NewHandler(
	authService *Service,
	records recordsReloader,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		authService:    authService,
		records:        records,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	loginRateLimitAllowedPerMin int,
) {
	authSubrouter := mainRouter.PathPrefix("/a").Subrouter()
	authSubrouter.
		HandleFunc("/register", handler.handleRegister).
		Methods("POST", "OPTIONS").Name("register")
	authSubrouter.
		HandleFunc("/login", handler.handleLogin).
		Methods("POST", "OPTIONS").Name("login")
	authSubrouter.
		HandleFunc("/logout", handler.handleLogout).
		Methods("GET", "OPTIONS").Name("logout")

	// rate limit the auth endpoints to prevent abuse
	authSubrouter.Use(middleware.RateLimit(rateLimiter, "auth", loginRateLimitAllowedPerMin))
	authSubrouter.Use(middleware.Cors())
}

func (handler *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	type registerRequest struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Confirm  string `json:"confirm"`
	}

	var registerReq registerRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&registerReq); err != nil {
			log.Errorf("register, unmarshal json params: %s", err)
			http.Error(w, "register failed", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Errorf("register failed, parse form error: %s", err)
			http.Error(w, "parse form error", http.StatusInternalServerError)
			return
		}
		registerReq = registerRequest{
			Username: r.Form.Get("username"),
			Email:    r.Form.Get("email"),
			Password: r.Form.Get("password"),
			Confirm:  r.Form.Get("confirm"),
		}
	}

	if registerReq.Username == "" || registerReq.Email == "" ||
		registerReq.Password == "" || registerReq.Confirm == "" {
		http.Error(w, "error, all fields must be filled in", http.StatusBadRequest)
		return
	}

	err := handler.authService.Register(
		registerReq.Username,
		registerReq.Email,
		registerReq.Password,
		registerReq.Confirm,
	)
	switch {
	case errors.Is(err, ErrPasswordMismatch):
		http.Error(w, "error, passwords do not match", http.StatusBadRequest)
		return
	case errors.Is(err, users.ErrUsernameTaken):
		http.Error(w, "error, username already exists", http.StatusConflict)
		return
	case errors.Is(err, users.ErrEmailTaken):
		http.Error(w, "error, email is already registered", http.StatusConflict)
		return
	case err != nil:
		log.Errorf("register user [%s]: %s", registerReq.Username, err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	log.Debugf("new user registered: %s", registerReq.Username)
	pkg.WriteResponse(w, pkg.ContentType.JSON, `{"registered": true}`, http.StatusCreated)
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	type loginRequest struct {
		// username or email
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}

	var loginReq loginRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
			log.Errorf("login, unmarshal json params: %s", err)
			http.Error(w, "login failed", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Errorf("login failed, parse form error: %s", err)
			http.Error(w, "parse form error", http.StatusInternalServerError)
			return
		}
		loginReq = loginRequest{
			Identifier: r.Form.Get("identifier"),
			Password:   r.Form.Get("password"),
		}
	}

	if loginReq.Identifier == "" {
		http.Error(w, "error, identifier empty", http.StatusBadRequest)
		return
	}
	if loginReq.Password == "" {
		http.Error(w, "error, password empty", http.StatusBadRequest)
		return
	}

	session, err := handler.authService.Login(r.Context(), loginReq.Identifier, loginReq.Password, time.Now())
	switch {
	case errors.Is(err, users.ErrUserNotFound):
		reqIp, _ := pkg.ReadUserIP(r)
		log.Tracef("[identifier] failed login attempt for [%s] from: %s", loginReq.Identifier, reqIp)
		http.Error(w, "error, username or email not found", http.StatusBadRequest)
		return
	case errors.Is(err, ErrWrongPassword):
		reqIp, _ := pkg.ReadUserIP(r)
		log.Tracef("[password] failed login attempt for [%s] from: %s", loginReq.Identifier, reqIp)
		http.Error(w, "error, incorrect password", http.StatusBadRequest)
		return
	case err != nil:
		log.Errorf("login failed, generate token error: %s", err)
		http.Error(w, "generate token error", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterLogins.Inc()

	log.Tracef("new login success: %s", session.Username)
	pkg.WriteJSONResponseOK(w, fmt.Sprintf(
		`{"token": "%s", "username": "%s", "email": "%s"}`,
		session.Token, session.Username, session.Email,
	))
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	authToken := r.Header.Get("X-LIFTLOG-TOKEN")
	if authToken == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	loggedOut, err := handler.authService.Logout(r.Context(), authToken)
	if err != nil {
		log.Tracef("[failed logout] => %s: %s", r.URL.Path, err)
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}
	if !loggedOut {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	// in-memory state not yet persisted is discarded with the session
	if err := handler.records.Reload(); err != nil {
		log.Errorf("logout, reload workout records: %s", err)
	}

	log.Printf("logout for [%s] success", authToken)
	pkg.WriteTextResponseOK(w, "logged-out")
}
