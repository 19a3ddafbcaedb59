package http

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/nm1236623-droid/fitsync/internal/coaching"
	"github.com/nm1236623-droid/fitsync/internal/middleware"
	"github.com/nm1236623-droid/fitsync/internal/models"
)

// CoachingService is the coach/trainee workflow backing the /coach and /trainee routes.
type CoachingService interface {
	Link(ctx context.Context, coachID, traineeID, displayName string) (models.CoachTrainee, error)
	Unlink(ctx context.Context, coachID, traineeID string) error
	Trainees(ctx context.Context, coachID string) ([]models.CoachTrainee, error)
	Coaches(ctx context.Context, traineeID string) ([]models.CoachTrainee, error)
	PublishPlan(ctx context.Context, plan models.Plan) (models.Plan, error)
	PublishToTrainee(ctx context.Context, traineeID string, plan models.Plan) (models.Plan, error)
	CoachPlans(ctx context.Context, coachID string) ([]models.Plan, error)
	ReportCompletion(ctx context.Context, c coaching.Completion) (string, []models.CompletionReport, error)
	CompletionReports(ctx context.Context, coachID, traineeID string) ([]models.CompletionReport, error)
	Inbox(traineeID string) *coaching.Inbox
}

// CoachingHandler serves both sides of the workflow for the signed-in user.
// Routes are expected behind middleware.RequireSession.
type CoachingHandler struct {
	Coaching CoachingService

	mu      sync.Mutex
	inboxes map[string]*coaching.Inbox
}

func (h *CoachingHandler) inbox(traineeID string) *coaching.Inbox {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inboxes == nil {
		h.inboxes = make(map[string]*coaching.Inbox)
	}
	in, ok := h.inboxes[traineeID]
	if !ok {
		in = h.Coaching.Inbox(traineeID)
		h.inboxes[traineeID] = in
	}
	return in
}

func (h *CoachingHandler) CoachRoutes(r chi.Router) {
	r.Get("/trainees", h.Trainees)
	r.Post("/trainees", h.AddTrainee)
	r.Delete("/trainees/{traineeID}", h.RemoveTrainee)
	r.Post("/trainees/{traineeID}/plans", h.SendPlan)
	r.Get("/plans", h.Plans)
	r.Post("/plans", h.Broadcast)
	r.Get("/reports", h.Reports)
}

func (h *CoachingHandler) TraineeRoutes(r chi.Router) {
	r.Get("/coaches", h.Coaches)
	r.Post("/coaches", h.JoinCoach)
	r.Delete("/coaches/{coachID}", h.LeaveCoach)
	r.Get("/plans", h.Items)
	r.Post("/plans/refresh", h.Refresh)
	r.Post("/plans/{coachID}/{planID}/read", h.MarkRead)
	r.Delete("/plans/{coachID}/{planID}", h.RemovePlan)
	r.Post("/reports", h.Report)
}

type linkRequest struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

func (h *CoachingHandler) Trainees(w http.ResponseWriter, r *http.Request) {
	list, err := h.Coaching.Trainees(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CoachingHandler) AddTrainee(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if !decode(w, r, &req) {
		return
	}
	ct, err := h.Coaching.Link(r.Context(), middleware.GetUserIDFromContext(r.Context()), req.UserID, req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ct)
}

func (h *CoachingHandler) RemoveTrainee(w http.ResponseWriter, r *http.Request) {
	err := h.Coaching.Unlink(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "traineeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodePlan reads a plan body owned by the signed-in coach.
func decodePlan(w http.ResponseWriter, r *http.Request) (models.Plan, bool) {
	var plan models.Plan
	if !decode(w, r, &plan) {
		return plan, false
	}
	plan.CoachID = middleware.GetUserIDFromContext(r.Context())
	return plan, true
}

func (h *CoachingHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	plan, ok := decodePlan(w, r)
	if !ok {
		return
	}
	plan, err := h.Coaching.PublishPlan(r.Context(), plan)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// SendPlan delivers a plan to one trainee. When only the inbox write fails
// the response still carries the stamped plan so the call can be retried
// with the same id.
func (h *CoachingHandler) SendPlan(w http.ResponseWriter, r *http.Request) {
	plan, ok := decodePlan(w, r)
	if !ok {
		return
	}
	sent, err := h.Coaching.PublishToTrainee(r.Context(), chi.URLParam(r, "traineeID"), plan)
	if err != nil {
		if sent.ID != "" {
			writeJSON(w, statusFor(err), map[string]any{"plan": sent, "error": err.Error()})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sent)
}

func (h *CoachingHandler) Plans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Coaching.CoachPlans(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// Reports handles GET /api/coach/reports, optionally filtered by ?trainee=.
func (h *CoachingHandler) Reports(w http.ResponseWriter, r *http.Request) {
	coachID := middleware.GetUserIDFromContext(r.Context())
	reports, err := h.Coaching.CompletionReports(r.Context(), coachID, r.URL.Query().Get("trainee"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (h *CoachingHandler) Coaches(w http.ResponseWriter, r *http.Request) {
	list, err := h.Coaching.Coaches(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// JoinCoach links the signed-in trainee to the coach named in the body.
func (h *CoachingHandler) JoinCoach(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if !decode(w, r, &req) {
		return
	}
	ct, err := h.Coaching.Link(r.Context(), req.UserID, middleware.GetUserIDFromContext(r.Context()), req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ct)
}

func (h *CoachingHandler) LeaveCoach(w http.ResponseWriter, r *http.Request) {
	err := h.Coaching.Unlink(r.Context(), chi.URLParam(r, "coachID"), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CoachingHandler) Items(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.inbox(middleware.GetUserIDFromContext(r.Context())).Items())
}

func (h *CoachingHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	items, err := h.inbox(middleware.GetUserIDFromContext(r.Context())).Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CoachingHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	in := h.inbox(middleware.GetUserIDFromContext(r.Context()))
	if !in.MarkInboxPlanRead(chi.URLParam(r, "coachID"), chi.URLParam(r, "planID")) {
		http.Error(w, "plan not in inbox", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CoachingHandler) RemovePlan(w http.ResponseWriter, r *http.Request) {
	in := h.inbox(middleware.GetUserIDFromContext(r.Context()))
	if !in.RemoveRemotePlan(chi.URLParam(r, "coachID"), chi.URLParam(r, "planID")) {
		http.Error(w, "plan not shown", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Report handles POST /api/trainee/reports. Passing back the returned
// workflowId retries a partially failed report without duplicates.
func (h *CoachingHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkflowID       string      `json:"workflowId"`
		Plan             models.Plan `json:"plan"`
		EstimateCalories bool        `json:"estimateCalories"`
	}
	if !decode(w, r, &req) {
		return
	}
	id, reports, err := h.Coaching.ReportCompletion(r.Context(), coaching.Completion{
		WorkflowID:       req.WorkflowID,
		TraineeID:        middleware.GetUserIDFromContext(r.Context()),
		Plan:             req.Plan,
		EstimateCalories: req.EstimateCalories,
	})
	resp := map[string]any{"workflowId": id, "reports": reports}
	if err != nil {
		if id == "" {
			writeError(w, err)
			return
		}
		resp["error"] = err.Error()
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}
