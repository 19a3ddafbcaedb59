package http

import (
	"net/http"

	"github.com/nm1236623-droid/fitsync/internal/models"
	"github.com/nm1236623-droid/fitsync/internal/stats"
)

// Lister yields the current in-memory list of a repository.
type Lister[T any] interface {
	Records() []T
}

type StatsHandler struct {
	Training Lister[models.TrainingRecord]
	Diet     Lister[models.DietRecord]
	Parts    Lister[models.PartWeightsSnapshot]
}

// Weight handles GET /api/stats/weight?exercise=...
func (h *StatsHandler) Weight(w http.ResponseWriter, r *http.Request) {
	exercise := r.URL.Query().Get("exercise")
	if exercise == "" {
		http.Error(w, "exercise is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, stats.WeightProgression(h.Training.Records(), exercise))
}

func (h *StatsHandler) Calories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stats.DailyCalories(h.Diet.Records()))
}

func (h *StatsHandler) PartWeights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stats.LatestPartWeights(h.Parts.Records()))
}

// PlanCalories handles POST /api/stats/plan-calories with a plan body.
func (h *StatsHandler) PlanCalories(w http.ResponseWriter, r *http.Request) {
	var plan models.Plan
	if !decode(w, r, &plan) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"calories": stats.EstimatePlanCalories(plan)})
}
