// Package coaching implements plan distribution from coaches to trainees
// and completion reporting back, on top of the remote document store.
//
// The workflows write several documents without a transaction. Every
// document id is derived from the workflow (plan id, report workflow id),
// so retrying a partially failed workflow overwrites instead of duplicating.
package coaching

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nm1236623-droid/fitsync/internal/models"
	"github.com/nm1236623-droid/fitsync/internal/remote"
	"github.com/nm1236623-droid/fitsync/internal/stats"
)

const (
	RelationsCollection = "coach_trainees"
	PlansCollection     = "coach_plans"
	InboxCollection     = "trainee_inbox"
	ReportsCollection   = "completion_reports"
)

// reportNamespace seeds the deterministic completion report ids.
var reportNamespace = uuid.MustParse("0f5c7c1e-6a51-4c1b-9d7e-3a2f4b8e9c10")

type Service struct {
	docs remote.DocumentStore
	log  *zap.Logger
	now  func() time.Time
}

func New(docs remote.DocumentStore, log *zap.Logger) *Service {
	return &Service{
		docs: docs,
		log:  log,
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Link adds traineeID to coachID's directory. Linking again refreshes the display name.
func (s *Service) Link(ctx context.Context, coachID, traineeID, displayName string) (models.CoachTrainee, error) {
	if coachID == "" || traineeID == "" {
		return models.CoachTrainee{}, fmt.Errorf("%w: coach and trainee are required", models.ErrInvalidRecord)
	}
	if coachID == traineeID {
		return models.CoachTrainee{}, fmt.Errorf("%w: a coach cannot coach themselves", models.ErrInvalidRecord)
	}
	ct := models.CoachTrainee{
		CoachID:     coachID,
		TraineeID:   traineeID,
		DisplayName: displayName,
		LinkedAt:    s.now(),
	}
	if err := s.docs.Set(ctx, RelationsCollection, ct.Key(), ct.ToDocument()); err != nil {
		return models.CoachTrainee{}, fmt.Errorf("link %s: %w", ct.Key(), err)
	}
	return ct, nil
}

func (s *Service) Unlink(ctx context.Context, coachID, traineeID string) error {
	key := models.CoachTrainee{CoachID: coachID, TraineeID: traineeID}.Key()
	if err := s.docs.Delete(ctx, RelationsCollection, key); err != nil {
		return fmt.Errorf("unlink %s: %w", key, err)
	}
	return nil
}

// Trainees lists the trainees linked to coachID, oldest link first.
func (s *Service) Trainees(ctx context.Context, coachID string) ([]models.CoachTrainee, error) {
	return s.relations(ctx, remote.Query{Collection: RelationsCollection}.Where("coachId", coachID))
}

// Coaches lists the coaches traineeID has joined, oldest link first.
func (s *Service) Coaches(ctx context.Context, traineeID string) ([]models.CoachTrainee, error) {
	return s.relations(ctx, remote.Query{Collection: RelationsCollection}.Where("traineeId", traineeID))
}

func (s *Service) relations(ctx context.Context, q remote.Query) ([]models.CoachTrainee, error) {
	docs, err := s.docs.Find(ctx, q.Order("linkedAt", false))
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	out := make([]models.CoachTrainee, 0, len(docs))
	for _, d := range docs {
		ct, err := models.CoachTraineeFromDocument(d.ID, d.Data)
		if err != nil {
			s.log.Warn("skipping undecodable relation", zap.String("id", d.ID), zap.Error(err))
			continue
		}
		out = append(out, ct)
	}
	return out, nil
}

// PublishPlan stamps plan and broadcasts it to every trainee linked to its coach.
func (s *Service) PublishPlan(ctx context.Context, plan models.Plan) (models.Plan, error) {
	plan, err := s.stamp(plan)
	if err != nil {
		return models.Plan{}, err
	}
	if err := s.writePlan(ctx, plan, true); err != nil {
		return models.Plan{}, err
	}
	return plan, nil
}

// PublishToTrainee stamps plan, writes it to the coach's plan list and then
// into traineeID's inbox. An inbox failure is returned; the coach copy stays.
func (s *Service) PublishToTrainee(ctx context.Context, traineeID string, plan models.Plan) (models.Plan, error) {
	if traineeID == "" {
		return models.Plan{}, fmt.Errorf("%w: trainee is required", models.ErrInvalidRecord)
	}
	plan, err := s.stamp(plan)
	if err != nil {
		return models.Plan{}, err
	}
	if err := s.writePlan(ctx, plan, false); err != nil {
		return models.Plan{}, err
	}

	doc := plan.ToDocument()
	doc["planId"] = plan.ID
	doc["traineeId"] = traineeID
	doc["read"] = false
	key := inboxKey(traineeID, plan.CoachID, plan.ID)
	if err := s.docs.Set(ctx, InboxCollection, key, doc); err != nil {
		s.log.Error("plan published to coach list but not to trainee inbox",
			zap.String("plan", plan.ID), zap.String("trainee", traineeID), zap.Error(err))
		return plan, fmt.Errorf("deliver plan %s to %s: %w", plan.ID, traineeID, err)
	}
	return plan, nil
}

// CoachPlans lists coachID's published plans, newest first.
func (s *Service) CoachPlans(ctx context.Context, coachID string) ([]models.Plan, error) {
	docs, err := s.docs.Find(ctx, remote.Query{Collection: PlansCollection}.
		Where("coachId", coachID).
		Order("publishedAt", true))
	if err != nil {
		return nil, fmt.Errorf("list plans of %s: %w", coachID, err)
	}
	plans := make([]models.Plan, 0, len(docs))
	for _, d := range docs {
		p, err := models.PlanFromDocument(d.ID, d.Data)
		if err != nil {
			s.log.Warn("skipping undecodable plan", zap.String("id", d.ID), zap.Error(err))
			continue
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// stamp validates plan and sets PublishedAt, keeping an earlier stamp so a
// retried publish writes identical documents.
func (s *Service) stamp(plan models.Plan) (models.Plan, error) {
	if plan.CoachID == "" || plan.Name == "" {
		return models.Plan{}, fmt.Errorf("%w: plan needs a coach and a name", models.ErrInvalidRecord)
	}
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = s.now()
	}
	if plan.PublishedAt == nil {
		now := s.now()
		plan.PublishedAt = &now
	}
	return plan, nil
}

// writePlan stores plan in the coach list. Once broadcast, a plan stays
// broadcast when it is later sent to a single trainee.
func (s *Service) writePlan(ctx context.Context, plan models.Plan, broadcast bool) error {
	if !broadcast {
		existing, err := s.docs.Get(ctx, PlansCollection, plan.ID)
		switch {
		case err == nil:
			broadcast, _ = existing.Data["broadcast"].(bool)
		case !errors.Is(err, models.ErrNotFound):
			return fmt.Errorf("publish plan %s: %w", plan.ID, err)
		}
	}
	doc := plan.ToDocument()
	doc["broadcast"] = broadcast
	if err := s.docs.Set(ctx, PlansCollection, plan.ID, doc); err != nil {
		return fmt.Errorf("publish plan %s: %w", plan.ID, err)
	}
	return nil
}

// RemoteItems is traineeID's view of remote plans: broadcasts from every
// joined coach plus plans delivered to the trainee's inbox, newest first.
func (s *Service) RemoteItems(ctx context.Context, traineeID string) ([]models.InboxItem, error) {
	coaches, err := s.Coaches(ctx, traineeID)
	if err != nil {
		return nil, err
	}

	var items []models.InboxItem
	for _, c := range coaches {
		docs, err := s.docs.Find(ctx, remote.Query{Collection: PlansCollection}.
			Where("coachId", c.CoachID).
			Where("broadcast", true))
		if err != nil {
			return nil, fmt.Errorf("list broadcasts of %s: %w", c.CoachID, err)
		}
		items = s.appendItems(items, docs, models.OriginBroadcast)
	}

	docs, err := s.docs.Find(ctx, remote.Query{Collection: InboxCollection}.Where("traineeId", traineeID))
	if err != nil {
		return nil, fmt.Errorf("list inbox of %s: %w", traineeID, err)
	}
	items = s.appendItems(items, docs, models.OriginInbox)

	slices.SortStableFunc(items, func(a, b models.InboxItem) int {
		return publishedAt(b).Compare(publishedAt(a))
	})
	if items == nil {
		items = []models.InboxItem{}
	}
	return items, nil
}

func (s *Service) appendItems(items []models.InboxItem, docs []remote.Document, origin models.Origin) []models.InboxItem {
	for _, d := range docs {
		p, err := models.PlanFromDocument(d.ID, d.Data)
		if err != nil {
			s.log.Warn("skipping undecodable plan", zap.String("id", d.ID), zap.Error(err))
			continue
		}
		read, _ := d.Data["read"].(bool)
		items = append(items, models.InboxItem{Plan: p, Origin: origin, Read: read})
	}
	return items
}

func publishedAt(it models.InboxItem) time.Time {
	if it.Plan.PublishedAt != nil {
		return *it.Plan.PublishedAt
	}
	return it.Plan.CreatedAt
}

func inboxKey(traineeID, coachID, planID string) string {
	return traineeID + ":" + coachID + ":" + planID
}

// Completion describes a finished plan reported by a trainee.
type Completion struct {
	// WorkflowID identifies this report across retries; empty generates one.
	WorkflowID string
	TraineeID  string
	Plan       models.Plan
	// EstimateCalories attaches stats.EstimatePlanCalories to every report.
	EstimateCalories bool
}

// ReportCompletion writes one report per coach the trainee has joined.
// It returns the workflow id, the reports that were stored, and the first
// failure; stored reports are kept when a later write fails.
func (s *Service) ReportCompletion(ctx context.Context, c Completion) (string, []models.CompletionReport, error) {
	if c.TraineeID == "" || c.Plan.ID == "" {
		return "", nil, fmt.Errorf("%w: trainee and plan are required", models.ErrInvalidRecord)
	}
	if c.WorkflowID == "" {
		c.WorkflowID = uuid.NewString()
	}
	coaches, err := s.Coaches(ctx, c.TraineeID)
	if err != nil {
		return c.WorkflowID, nil, err
	}

	var calories *float64
	if c.EstimateCalories {
		v := stats.EstimatePlanCalories(c.Plan)
		calories = &v
	}

	completedAt := s.now()
	var (
		written  []models.CompletionReport
		firstErr error
	)
	for _, coach := range coaches {
		r := models.CompletionReport{
			ID:                reportID(c.WorkflowID, coach.CoachID),
			CoachID:           coach.CoachID,
			TraineeID:         c.TraineeID,
			PlanID:            c.Plan.ID,
			PlanName:          c.Plan.Name,
			CompletedAt:       completedAt,
			EstimatedCalories: calories,
		}
		if err := s.docs.Set(ctx, ReportsCollection, r.ID, r.ToDocument()); err != nil {
			s.log.Error("completion report failed", zap.String("coach", coach.CoachID), zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("report to coach %s: %w", coach.CoachID, err)
			}
			continue
		}
		written = append(written, r)
	}
	return c.WorkflowID, written, firstErr
}

func reportID(workflowID, coachID string) string {
	return uuid.NewSHA1(reportNamespace, []byte(workflowID+"/"+coachID)).String()
}

// CompletionReports lists reports addressed to coachID, newest first,
// optionally restricted to one trainee.
func (s *Service) CompletionReports(ctx context.Context, coachID, traineeID string) ([]models.CompletionReport, error) {
	q := remote.Query{Collection: ReportsCollection}.Where("coachId", coachID)
	if traineeID != "" {
		q = q.Where("traineeId", traineeID)
	}
	docs, err := s.docs.Find(ctx, q.Order("completedAt", true))
	if err != nil {
		return nil, fmt.Errorf("list reports of %s: %w", coachID, err)
	}
	reports := make([]models.CompletionReport, 0, len(docs))
	for _, d := range docs {
		r, err := models.CompletionReportFromDocument(d.ID, d.Data)
		if err != nil {
			s.log.Warn("skipping undecodable report", zap.String("id", d.ID), zap.Error(err))
			continue
		}
		reports = append(reports, r)
	}
	return reports, nil
}
