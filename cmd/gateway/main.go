package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/mind-engage/mindengage-classroom/internal/api/http"
	auth "github.com/mind-engage/mindengage-classroom/internal/auth/middleware"
	"github.com/mind-engage/mindengage-classroom/internal/config"
	"github.com/mind-engage/mindengage-classroom/internal/db"
	"github.com/mind-engage/mindengage-classroom/internal/lock"
	"github.com/mind-engage/mindengage-classroom/internal/quiz"
	rbac "github.com/mind-engage/mindengage-classroom/internal/rbac"
	"github.com/mind-engage/mindengage-classroom/internal/store"
	syncx "github.com/mind-engage/mindengage-classroom/internal/sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	st := store.NewSQLStore(dbh)
	events := syncx.NewEventRepo(dbh, cfg.SiteID)

	// --- Session locks ---
	var locker lock.Locker = lock.NewMemory()
	if cfg.RedisAddr != "" {
		rl, err := lock.NewRedis(lock.RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rl.Close()
		locker = rl
	}

	limits := cfg.Limits()
	mgr := quiz.NewManager(func() *quiz.Controller {
		return quiz.NewController(st, st,
			quiz.WithLimits(limits),
			quiz.WithConditionalWrites(cfg.ConditionalWrites),
			quiz.WithEventSink(events),
		)
	}, locker, cfg.SessionTTL)

	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))
	}

	// Protected API (JWT -> role from users -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, cfg.Mode == config.ModeOffline))

		pr.With(rbac.Require("quiz:view")).
			Get("/lessons/{lessonID}/quiz/status", api.QuizStatusHandler(mgr))

		pr.Route("/quiz/sessions", func(sr chi.Router) {
			sr.Use(rbac.Require("quiz:attempt"))
			sr.Post("/", api.StartSessionHandler(mgr))
			sr.Get("/{sessionID}", api.GetSessionHandler(mgr))
			sr.Post("/{sessionID}/answer", api.AnswerHandler(mgr))
			sr.Post("/{sessionID}/next", api.NextHandler(mgr))
			sr.Post("/{sessionID}/prev", api.PrevHandler(mgr))
			sr.Post("/{sessionID}/finish", api.FinishHandler(mgr))
			sr.Post("/{sessionID}/save", api.RetrySaveHandler(mgr))
			sr.Delete("/{sessionID}", api.CloseSessionHandler(mgr))
		})

		pr.With(rbac.RequireAny("events:list", "reports:read")).
			Get("/events", api.ListEventsHandler(events))

		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(dbh))

		pr.Route("/admin", func(ar chi.Router) {
			ar.With(rbac.Require("users:manage")).Post("/users", api.ImportUsersHandler(dbh))
			ar.With(rbac.RequireAny("users:manage", "users:list")).Get("/users", api.ListUsersHandler(dbh))
			ar.With(rbac.Require("users:manage")).Put("/users/{userID}/role", api.UpdateUserRoleHandler(dbh))
			ar.With(rbac.Require("enrollments:manage")).Post("/enrollments", api.CreateEnrollmentHandler(dbh, st))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("listening on %s (mode=%s, db=%s, redis=%v)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver, cfg.RedisAddr != "")
	log.Fatal(srv.ListenAndServe())
}
