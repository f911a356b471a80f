// Package server is the admin HTTP API over the bot's catalog and training
// records. Authentication is a JWT issued after a Telegram or password login.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"gymbot/internal/auth"
	"gymbot/internal/models"
	"gymbot/internal/presets"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
)

// Catalog справочник мышц и упражнений
type Catalog interface {
	AllMuscles(ctx context.Context) ([]models.Muscle, error)
	VisibleMuscles(ctx context.Context, userID int64) ([]models.Muscle, error)
	CreateMuscle(ctx context.Context, name string) (*models.Muscle, error)
	UpdateMuscle(ctx context.Context, id int, name string) (*models.Muscle, error)
	AllExercises(ctx context.Context, muscleID int) ([]models.Exercise, error)
	VisibleExercises(ctx context.Context, userID int64, muscleID int) ([]models.Exercise, error)
	CreateExercise(ctx context.Context, name string, muscleID int) (*models.Exercise, error)
	UpdateExercise(ctx context.Context, id int, name string, muscleID int) (*models.Exercise, error)
}

// Trainings записи тренировок
type Trainings interface {
	Save(ctx context.Context, t models.TrainingEntry) error
	Update(ctx context.Context, id string, userID int64, weight decimal.Decimal, reps int) error
	ListAll(ctx context.Context, limit, offset int) ([]models.Training, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Training, error)
}

// Users регистрация пользователей, вошедших через Telegram
type Users interface {
	Touch(ctx context.Context, u models.User, at time.Time) error
}

// Deps зависимости сервера. Users может быть nil.
type Deps struct {
	Catalog        Catalog
	Trainings      Trainings
	Users          Users
	Auth           *auth.Service
	Presets        *presets.Holder
	Location       *time.Location
	AllowedOrigins []string
	Log            *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	catalog   Catalog
	trainings Trainings
	users     Users
	auth      *auth.Service
	presets   *presets.Holder
	loc       *time.Location
	origins   []string
	log       *slog.Logger
	router    chi.Router

	now   func() time.Time
	newID func() string
}

// New creates a new Server with all routes configured.
func New(d Deps) *Server {
	if d.Location == nil {
		d.Location = time.Local
	}
	if len(d.AllowedOrigins) == 0 {
		d.AllowedOrigins = []string{"*"}
	}
	s := &Server{
		catalog:   d.Catalog,
		trainings: d.Trainings,
		users:     d.Users,
		auth:      d.Auth,
		presets:   d.Presets,
		loc:       d.Location,
		origins:   d.AllowedOrigins,
		log:       d.Log,
		router:    chi.NewRouter(),
		now:       time.Now,
		newID:     models.NewTrainingID,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestLogging(s.log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}).Handler)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/telegram", s.handleTelegramLogin)
		r.Post("/auth/telegram/webapp", s.handleWebAppLogin)
		r.Post("/auth/admin", s.handleAdminLogin)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(s.auth))

			r.Get("/auth/me", s.handleMe)
			r.Get("/static-data", s.handleStaticData)
			r.Get("/muscles", s.handleListMuscles)
			r.Get("/exercises", s.handleListExercises)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Post("/muscles", s.handleCreateMuscle)
				r.Put("/muscles/{id}", s.handleUpdateMuscle)
				r.Post("/exercises", s.handleCreateExercise)
				r.Put("/exercises/{id}", s.handleUpdateExercise)
				r.Get("/training", s.handleListTraining)
			})

			r.Route("/user", func(r chi.Router) {
				r.Use(RequireTelegramUser)
				r.Get("/muscles", s.handleUserMuscles)
				r.Get("/exercises", s.handleUserExercises)
				r.Get("/training", s.handleUserTraining)
				r.Post("/training", s.handleCreateUserTraining)
				r.Put("/training/{id}", s.handleUpdateUserTraining)
				r.Get("/training/export", s.handleExportUserTraining)
			})
		})
	})
}
