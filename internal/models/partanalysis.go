package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PartWeightsSnapshot records the training load per body part at one instant.
type PartWeightsSnapshot struct {
	ID        string             `json:"id"`
	UserID    string             `json:"userId,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Weights   map[string]float64 `json:"weights"`
}

func NewPartWeightsSnapshot(at time.Time, weights map[string]float64) PartWeightsSnapshot {
	return PartWeightsSnapshot{
		ID:        uuid.NewString(),
		Timestamp: Instant(at),
		Weights:   weights,
	}
}

func (r PartWeightsSnapshot) RecordID() string      { return r.ID }
func (r PartWeightsSnapshot) OwnerID() string       { return r.UserID }
func (r PartWeightsSnapshot) RecordTime() time.Time { return r.Timestamp }

func (r PartWeightsSnapshot) WithID(id string) PartWeightsSnapshot {
	r.ID = id
	return r
}

func (r PartWeightsSnapshot) WithOwner(userID string) PartWeightsSnapshot {
	r.UserID = userID
	return r
}

func (r PartWeightsSnapshot) Normalized() PartWeightsSnapshot {
	r.Timestamp = Instant(r.Timestamp)
	return r
}

// PartWeightsDTO is the local file encoding; the timestamp is epoch milliseconds.
type PartWeightsDTO struct {
	ID        string             `json:"id"`
	UserID    string             `json:"userId,omitempty"`
	Timestamp int64              `json:"timestamp"`
	Weights   map[string]float64 `json:"weights"`
}

func (r PartWeightsSnapshot) DTO() PartWeightsDTO {
	return PartWeightsDTO{
		ID:        r.ID,
		UserID:    r.UserID,
		Timestamp: r.Timestamp.UnixMilli(),
		Weights:   r.Weights,
	}
}

func (d PartWeightsDTO) Record() (PartWeightsSnapshot, error) {
	if d.Timestamp <= 0 {
		return PartWeightsSnapshot{}, fmt.Errorf("%w: part weights %s timestamp %d", ErrParseFailure, d.ID, d.Timestamp)
	}
	weights := d.Weights
	if weights == nil {
		weights = map[string]float64{}
	}
	return PartWeightsSnapshot{
		ID:        d.ID,
		UserID:    d.UserID,
		Timestamp: fromEpochMillis(d.Timestamp),
		Weights:   weights,
	}, nil
}

func (r PartWeightsSnapshot) ToDocument() map[string]any {
	weights := make(map[string]any, len(r.Weights))
	for part, w := range r.Weights {
		weights[part] = w
	}
	return map[string]any{
		FieldUserID:    r.UserID,
		FieldTimestamp: r.Timestamp.UTC(),
		"weights":      weights,
	}
}

// PartWeightsFromDocument decodes a remote part-analysis document.
func PartWeightsFromDocument(id string, data map[string]any) (PartWeightsSnapshot, error) {
	d := newDocReader(id, data)
	rec := PartWeightsSnapshot{
		ID:        id,
		UserID:    d.OptString(FieldUserID),
		Timestamp: d.Time(FieldTimestamp),
		Weights:   d.FloatMap("weights"),
	}
	if err := d.Err(); err != nil {
		return PartWeightsSnapshot{}, err
	}
	return rec, nil
}
