package models

import (
	"time"

	"github.com/google/uuid"
)

// PlanExercise is one line of a workout plan.
type PlanExercise struct {
	Name   string   `json:"name"`
	Sets   int      `json:"sets"`
	Reps   int      `json:"reps,omitempty"`
	Weight *float64 `json:"weight,omitempty"`
}

// Plan is a workout plan owned by a coach. PublishedAt is set when the plan
// is pushed to the remote store.
type Plan struct {
	ID          string         `json:"id"`
	CoachID     string         `json:"coachId"`
	Name        string         `json:"name"`
	Exercises   []PlanExercise `json:"exercises"`
	CreatedAt   time.Time      `json:"createdAt"`
	PublishedAt *time.Time     `json:"publishedAt,omitempty"`
}

func NewPlan(coachID, name string, exercises []PlanExercise) Plan {
	return Plan{
		ID:        uuid.NewString(),
		CoachID:   coachID,
		Name:      name,
		Exercises: exercises,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

// TotalSets sums the set counts of every exercise in the plan.
func (p Plan) TotalSets() int {
	total := 0
	for _, ex := range p.Exercises {
		total += ex.Sets
	}
	return total
}

func (p Plan) ToDocument() map[string]any {
	exercises := make([]any, 0, len(p.Exercises))
	for _, ex := range p.Exercises {
		m := map[string]any{
			"name": ex.Name,
			"sets": ex.Sets,
			"reps": ex.Reps,
		}
		if ex.Weight != nil {
			m["weight"] = *ex.Weight
		}
		exercises = append(exercises, m)
	}
	doc := map[string]any{
		"coachId":   p.CoachID,
		"name":      p.Name,
		"exercises": exercises,
		"createdAt": p.CreatedAt.UTC(),
	}
	if p.PublishedAt != nil {
		doc["publishedAt"] = p.PublishedAt.UTC()
	}
	return doc
}

// PlanFromDocument decodes a plan from a coach list or inbox document.
// The plan id is read from the "planId" field when present, since inbox
// documents are keyed by (trainee, coach, plan) rather than by plan id.
func PlanFromDocument(id string, data map[string]any) (Plan, error) {
	d := newDocReader(id, data)
	planID := d.OptString("planId")
	if planID == "" {
		planID = id
	}
	p := Plan{
		ID:          planID,
		CoachID:     d.String("coachId"),
		Name:        d.String("name"),
		CreatedAt:   d.Time("createdAt"),
		PublishedAt: d.OptTime("publishedAt"),
	}
	for _, m := range d.Maps("exercises") {
		ex := newDocReader(id, m)
		item := PlanExercise{
			Name:   ex.String("name"),
			Sets:   ex.Int("sets"),
			Weight: ex.OptFloat("weight"),
		}
		if reps := ex.OptInt("reps"); reps != nil {
			item.Reps = *reps
		}
		if err := ex.Err(); err != nil {
			return Plan{}, err
		}
		p.Exercises = append(p.Exercises, item)
	}
	if err := d.Err(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// CoachTrainee links a trainee to a coach's directory.
type CoachTrainee struct {
	CoachID     string    `json:"coachId"`
	TraineeID   string    `json:"traineeId"`
	DisplayName string    `json:"displayName"`
	LinkedAt    time.Time `json:"linkedAt"`
}

// Key is the document id of the relationship.
func (ct CoachTrainee) Key() string {
	return ct.CoachID + ":" + ct.TraineeID
}

func (ct CoachTrainee) ToDocument() map[string]any {
	return map[string]any{
		"coachId":     ct.CoachID,
		"traineeId":   ct.TraineeID,
		"displayName": ct.DisplayName,
		"linkedAt":    ct.LinkedAt.UTC(),
	}
}

func CoachTraineeFromDocument(id string, data map[string]any) (CoachTrainee, error) {
	d := newDocReader(id, data)
	ct := CoachTrainee{
		CoachID:     d.String("coachId"),
		TraineeID:   d.String("traineeId"),
		DisplayName: d.OptString("displayName"),
		LinkedAt:    d.Time("linkedAt"),
	}
	if err := d.Err(); err != nil {
		return CoachTrainee{}, err
	}
	return ct, nil
}

// CompletionReport is written by a trainee against a published plan and read
// by the coach. Reports are never modified after creation.
type CompletionReport struct {
	ID                string    `json:"id"`
	CoachID           string    `json:"coachId"`
	TraineeID         string    `json:"traineeId"`
	PlanID            string    `json:"planId"`
	PlanName          string    `json:"planName"`
	CompletedAt       time.Time `json:"completedAt"`
	EstimatedCalories *float64  `json:"estimatedCalories,omitempty"`
}

func (r CompletionReport) ToDocument() map[string]any {
	doc := map[string]any{
		"coachId":     r.CoachID,
		"traineeId":   r.TraineeID,
		"planId":      r.PlanID,
		"planName":    r.PlanName,
		"completedAt": r.CompletedAt.UTC(),
	}
	if r.EstimatedCalories != nil {
		doc["estimatedCalories"] = *r.EstimatedCalories
	}
	return doc
}

func CompletionReportFromDocument(id string, data map[string]any) (CompletionReport, error) {
	d := newDocReader(id, data)
	r := CompletionReport{
		ID:                id,
		CoachID:           d.String("coachId"),
		TraineeID:         d.String("traineeId"),
		PlanID:            d.String("planId"),
		PlanName:          d.String("planName"),
		CompletedAt:       d.Time("completedAt"),
		EstimatedCalories: d.OptFloat("estimatedCalories"),
	}
	if err := d.Err(); err != nil {
		return CompletionReport{}, err
	}
	return r, nil
}

// Origin tells where a trainee's remote plan came from.
type Origin string

const (
	OriginBroadcast Origin = "broadcast"
	OriginInbox     Origin = "inbox"
)

// InboxItem is a plan as shown in a trainee's remote items view.
type InboxItem struct {
	Plan   Plan   `json:"plan"`
	Origin Origin `json:"origin"`
	Read   bool   `json:"read"`
}

// Key identifies the item within one trainee's view.
func (it InboxItem) Key() string {
	return string(it.Origin) + ":" + it.Plan.CoachID + ":" + it.Plan.ID
}
