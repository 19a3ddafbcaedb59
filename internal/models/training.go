package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TrainingRecord is one exercise performed on a calendar day.
// Reps and Weight are optional: cardio or timed work leaves them nil.
type TrainingRecord struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId,omitempty"`
	Date     time.Time `json:"date"`
	Exercise string    `json:"exercise"`
	BodyPart string    `json:"bodyPart,omitempty"`
	Sets     int       `json:"sets"`
	Reps     *int      `json:"reps,omitempty"`
	Weight   *float64  `json:"weight,omitempty"`
	Notes    string    `json:"notes,omitempty"`
}

// NewTrainingRecord creates a training entry with a fresh id on the given day.
func NewTrainingRecord(day time.Time, exercise string, sets int) TrainingRecord {
	return TrainingRecord{
		ID:       uuid.NewString(),
		Date:     Day(day),
		Exercise: exercise,
		Sets:     sets,
	}
}

func (r TrainingRecord) RecordID() string      { return r.ID }
func (r TrainingRecord) OwnerID() string       { return r.UserID }
func (r TrainingRecord) RecordTime() time.Time { return r.Date }

func (r TrainingRecord) WithID(id string) TrainingRecord {
	r.ID = id
	return r
}

func (r TrainingRecord) WithOwner(userID string) TrainingRecord {
	r.UserID = userID
	return r
}

func (r TrainingRecord) Normalized() TrainingRecord {
	r.Date = Day(r.Date)
	return r
}

// TrainingDTO is the local file encoding; the date is a yyyy-MM-dd string.
type TrainingDTO struct {
	ID       string   `json:"id"`
	UserID   string   `json:"userId,omitempty"`
	Date     string   `json:"date"`
	Exercise string   `json:"exercise"`
	BodyPart string   `json:"bodyPart,omitempty"`
	Sets     int      `json:"sets"`
	Reps     *int     `json:"reps"`
	Weight   *float64 `json:"weight"`
	Notes    string   `json:"notes,omitempty"`
}

func (r TrainingRecord) DTO() TrainingDTO {
	return TrainingDTO{
		ID:       r.ID,
		UserID:   r.UserID,
		Date:     r.Date.UTC().Format(DateLayout),
		Exercise: r.Exercise,
		BodyPart: r.BodyPart,
		Sets:     r.Sets,
		Reps:     r.Reps,
		Weight:   r.Weight,
		Notes:    r.Notes,
	}
}

func (d TrainingDTO) Record() (TrainingRecord, error) {
	day, err := ParseDay(d.Date)
	if err != nil {
		return TrainingRecord{}, fmt.Errorf("%w: training %s date %q", ErrParseFailure, d.ID, d.Date)
	}
	return TrainingRecord{
		ID:       d.ID,
		UserID:   d.UserID,
		Date:     day,
		Exercise: d.Exercise,
		BodyPart: d.BodyPart,
		Sets:     d.Sets,
		Reps:     d.Reps,
		Weight:   d.Weight,
		Notes:    d.Notes,
	}, nil
}

func (r TrainingRecord) ToDocument() map[string]any {
	doc := map[string]any{
		FieldUserID:    r.UserID,
		FieldTimestamp: r.Date.UTC(),
		"exercise":     r.Exercise,
		"sets":         r.Sets,
	}
	if r.BodyPart != "" {
		doc["bodyPart"] = r.BodyPart
	}
	if r.Reps != nil {
		doc["reps"] = *r.Reps
	}
	if r.Weight != nil {
		doc["weight"] = *r.Weight
	}
	if r.Notes != "" {
		doc["notes"] = r.Notes
	}
	return doc
}

// TrainingFromDocument decodes a remote training document.
func TrainingFromDocument(id string, data map[string]any) (TrainingRecord, error) {
	d := newDocReader(id, data)
	rec := TrainingRecord{
		ID:       id,
		UserID:   d.OptString(FieldUserID),
		Date:     Day(d.Time(FieldTimestamp)),
		Exercise: d.String("exercise"),
		BodyPart: d.OptString("bodyPart"),
		Sets:     d.Int("sets"),
		Reps:     d.OptInt("reps"),
		Weight:   d.OptFloat("weight"),
		Notes:    d.OptString("notes"),
	}
	if err := d.Err(); err != nil {
		return TrainingRecord{}, err
	}
	return rec, nil
}
