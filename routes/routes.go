package routes

import (
	"net/http"

	"github.com/Dosada05/squad-tournaments/handlers"
	"github.com/Dosada05/squad-tournaments/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Dosada05/squad-tournaments/docs"
)

// Handlers собирает все HTTP-обработчики приложения.
type Handlers struct {
	Team         *handlers.TeamHandler
	Registration *handlers.RegistrationHandler
	Submission   *handlers.SubmissionHandler
	Leaderboard  *handlers.LeaderboardHandler
	Moderation   *handlers.ModerationHandler
}

func SetupRoutes(router chi.Router, auth *middleware.Authenticator, allowedOrigins []string, h Handlers) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Route("/tournaments/{tournamentID}", func(r chi.Router) {
		// Публичные маршруты
		r.Get("/participants", h.Registration.ListParticipants)
		r.Get("/leaderboard", h.Leaderboard.GetLeaderboard)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/registrations", h.Registration.Register)
			r.Route("/teams/{teamID}", func(r chi.Router) {
				r.Post("/scoreboards", h.Submission.UploadScoreboard)
				r.Get("/submissions", h.Submission.ListTeamSubmissions)
				r.Put("/submissions/{mapNumber}", h.Submission.Submit)
			})
		})
	})

	// Маршруты игроков
	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Route("/teams", func(r chi.Router) {
			r.Post("/", h.Team.CreateTeam)
			r.Get("/mine", h.Team.ListMyTeams)
			r.Get("/{teamID}", h.Team.GetTeam)
			r.Post("/{teamID}/accept", h.Team.AcceptInvite)
		})

		r.Get("/registrations/mine", h.Registration.ListMyRegistrations)
	})

	// Маршруты модераторов
	router.Route("/admin", func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(middleware.RequireModerator)

		r.Post("/teams/{teamID}/confirm", h.Moderation.ConfirmTeam)

		r.Route("/registrations", func(r chi.Router) {
			r.Get("/pending", h.Moderation.ListPendingRegistrations)
			r.Post("/{registrationID}/confirm", h.Moderation.ConfirmRegistration)
			r.Delete("/{registrationID}", h.Moderation.DenyRegistration)
		})

		r.Route("/submissions", func(r chi.Router) {
			r.Get("/pending", h.Moderation.ListPendingSubmissions)
			r.Post("/{submissionID}/approve", h.Moderation.ApproveSubmission)
			r.Post("/{submissionID}/reject", h.Moderation.RejectSubmission)
			r.Post("/{submissionID}/void", h.Moderation.VoidSubmission)
			r.Get("/{submissionID}/scoreboard", h.Moderation.ScoreboardURL)
		})
	})
}
