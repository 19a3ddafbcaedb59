package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/nm1236623-droid/fitsync/internal/middleware"
	"github.com/nm1236623-droid/fitsync/internal/models"
)

// Handlers groups every endpoint handler mounted by NewRouter.
type Handlers struct {
	Session      *SessionHandler
	Mode         *ModeHandler
	Diet         *RecordHandler[models.DietRecord]
	Training     *RecordHandler[models.TrainingRecord]
	PartAnalysis *RecordHandler[models.PartWeightsSnapshot]
	BodyPhotos   *RecordHandler[models.BodyPhotoMetadata]
	Stats        *StatsHandler
	Coaching     *CoachingHandler
}

// NewRouter mounts the API under /api.
//
// Routes:
//
//	POST|GET|DELETE /api/session
//	GET|PUT         /api/sync-mode
//	/api/{diet,training,part-analysis,body-photos}   record CRUD, ?date=, /ws
//	GET             /api/stats/{weight,calories,parts}, POST /api/stats/plan-calories
//	/api/coach/*, /api/trainee/*                      require a signed-in user
//
// Middleware chain: Recoverer, AllowContentType("application/json"),
// WithRequestLogging, CORS.
func NewRouter(h Handlers, identity middleware.Identity, origins []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))
	if len(origins) > 0 {
		r.Use(middleware.CORS(origins))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/session", h.Session.SignIn)
		r.Get("/session", h.Session.Show)
		r.Delete("/session", h.Session.SignOut)

		r.Get("/sync-mode", h.Mode.Get)
		r.Put("/sync-mode", h.Mode.Put)

		r.Route("/diet", h.Diet.Routes)
		r.Route("/training", h.Training.Routes)
		r.Route("/part-analysis", h.PartAnalysis.Routes)
		r.Route("/body-photos", h.BodyPhotos.Routes)

		r.Route("/stats", func(r chi.Router) {
			r.Get("/weight", h.Stats.Weight)
			r.Get("/calories", h.Stats.Calories)
			r.Get("/parts", h.Stats.PartWeights)
			r.Post("/plan-calories", h.Stats.PlanCalories)
		})

		// Protected group: coaching needs the caller's user id
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(identity))
			r.Route("/coach", h.Coaching.CoachRoutes)
			r.Route("/trainee", h.Coaching.TraineeRoutes)
		})
	})

	return r
}
