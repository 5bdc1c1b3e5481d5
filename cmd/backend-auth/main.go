package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/sessions"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/different-technology/entra-be-auth/pkg/authpipe"
	appcfg "github.com/different-technology/entra-be-auth/pkg/config"
	"github.com/different-technology/entra-be-auth/pkg/entra"
	"github.com/different-technology/entra-be-auth/pkg/errors"
	"github.com/different-technology/entra-be-auth/pkg/provision"
	"github.com/different-technology/entra-be-auth/pkg/session"
)

type DbConfig struct {
	Host     string `env:"BE_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"BE_PG_PORT" env-default:"5432"`
	Database string `env:"BE_PG_DATABASE" env-default:"cms_db"`
	User     string `env:"BE_PG_USER" env-default:"cms"`
	Password string `env:"BE_PG_PASSWORD" env-default:"pwd"`
}

func (d DbConfig) toDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", d.User, d.Password, d.Host, d.Port, d.Database)
}

type ServerConfig struct {
	Host          string `env:"HOST" env-default:"localhost"`
	Port          uint16 `env:"PORT" env-default:"4000"`
	SessionSecret string `env:"SESSION_SECRET" env-default:"very-secure-session-secret"`
	SessionName   string `env:"SESSION_NAME" env-default:"be_auth"`
	UserTable     string `env:"USER_TABLE" env-default:"be_users"`
	EnabledClause string `env:"USER_ENABLED_CLAUSE" env-default:"disabled = false"`
	InMemoryStore bool   `env:"IN_MEMORY_STORE" env-default:"false"`
}

type Config struct {
	DbConfig     DbConfig
	ServerConfig ServerConfig
}

func main() {
	config := Config{}
	cleanenv.ReadEnv(&config)

	entraCfg, err := appcfg.Load()
	if err != nil {
		slog.Error("Failed loading provider configuration", "error", err)
		os.Exit(-1)
	}
	if err := entraCfg.Validate(); err != nil {
		slog.Error("Invalid provider configuration", "error", err)
		os.Exit(-1)
	}

	rules, err := appcfg.LoadGroupRules(entraCfg.GroupRulesFile, entraCfg.StrictRules)
	if err != nil {
		slog.Error("Failed loading group rules", "error", err, "path", entraCfg.GroupRulesFile)
		os.Exit(-1)
	}

	var repo provision.UserRepository
	if config.ServerConfig.InMemoryStore {
		repo = provision.NewInMemoryUserRepository()
	} else {
		pool, err := pgxpool.New(context.Background(), config.DbConfig.toDSN())
		if err != nil {
			slog.Error("Failed creating dbpool", "db", config.DbConfig.Database, "host", config.DbConfig.Host, "port", config.DbConfig.Port, "user", config.DbConfig.User)
			os.Exit(-1)
		}
		repo = provision.NewPostgresUserRepository(pool)
	}

	provisioner := provision.New(repo,
		provision.WithDefaults(rules.Defaults),
		provision.WithGroupRules(rules.GroupsKey, rules.Groups),
	)

	pipeline := authpipe.NewPipeline(
		entra.Factory(entraCfg, rules, provisioner),
	)

	srv := &server{
		pipeline:     pipeline,
		sessionStore: sessions.NewCookieStore([]byte(config.ServerConfig.SessionSecret)),
		cfg:          config.ServerConfig,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.HandleFunc("/backend/login", srv.handleLogin)

	addr := fmt.Sprintf("%s:%d", config.ServerConfig.Host, config.ServerConfig.Port)
	slog.Info("Starting backend auth server", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(-1)
	}
}

type server struct {
	pipeline     *authpipe.Pipeline
	sessionStore sessions.Store
	cfg          ServerConfig
}

// handleLogin serves both legs of the login flow: the form submission that
// initiates the provider redirect, and the provider callback carrying code
// and state.
func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	login := authpipe.LoginData{
		Status:    authpipe.LoginStatusLogin,
		Username:  r.PostFormValue("username"),
		Password:  r.PostFormValue("password"),
		LoginHint: r.PostFormValue("ad_email"),
		AuthCode:  r.URL.Query().Get("code"),
		State:     r.URL.Query().Get("state"),
	}
	info := authpipe.AuthInfo{
		UserTable:     s.cfg.UserTable,
		EnabledClause: s.cfg.EnabledClause,
	}
	sess := session.NewCookieSession(s.sessionStore, s.cfg.SessionName, w, r)

	outcome, err := s.pipeline.Authenticate(r.Context(), login, info, sess)
	if err != nil {
		// Full detail to the operator log, a generic message to the user.
		slog.Error("Authentication attempt failed",
			"error", err,
			"code", errors.GetCode(err),
			"details", errors.GetDetails(err))
		render.Status(r, errors.MapErrorCodeToHTTPStatus(errors.GetCode(err)))
		render.JSON(w, r, map[string]string{
			"error":             "authentication_failed",
			"error_description": "Authentication failed. Please try again or contact an administrator.",
		})
		return
	}

	switch outcome.Kind {
	case authpipe.OutcomeRedirect:
		http.Redirect(w, r, outcome.RedirectURL, http.StatusSeeOther)

	case authpipe.OutcomeAuthenticated:
		if err := sess.Set("be_user", outcome.User.Username); err != nil {
			slog.Error("Failed persisting session user", "error", err)
		}
		render.JSON(w, r, map[string]string{
			"username":  outcome.User.Username,
			"real_name": outcome.User.RealName,
		})

	case authpipe.OutcomeDenied:
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, map[string]string{
			"error":             "login_denied",
			"error_description": "Login is not allowed for this account.",
		})

	default:
		// Unauthenticated: restart the login flow.
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{
			"error":             "not_authenticated",
			"error_description": "Please log in again.",
		})
	}
}
