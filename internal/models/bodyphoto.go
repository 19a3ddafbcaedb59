package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BodyPhotoMetadata describes a progress photo kept in object storage.
// Only the metadata is synchronized here; StoragePath points at the object.
type BodyPhotoMetadata struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	StoragePath string    `json:"storagePath"`
	BodyWeight  *float64  `json:"bodyWeight,omitempty"`
	Note        string    `json:"note,omitempty"`
}

func NewBodyPhoto(at time.Time, storagePath string) BodyPhotoMetadata {
	return BodyPhotoMetadata{
		ID:          uuid.NewString(),
		Timestamp:   Instant(at),
		StoragePath: storagePath,
	}
}

func (r BodyPhotoMetadata) RecordID() string      { return r.ID }
func (r BodyPhotoMetadata) OwnerID() string       { return r.UserID }
func (r BodyPhotoMetadata) RecordTime() time.Time { return r.Timestamp }

func (r BodyPhotoMetadata) WithID(id string) BodyPhotoMetadata {
	r.ID = id
	return r
}

func (r BodyPhotoMetadata) WithOwner(userID string) BodyPhotoMetadata {
	r.UserID = userID
	return r
}

func (r BodyPhotoMetadata) Normalized() BodyPhotoMetadata {
	r.Timestamp = Instant(r.Timestamp)
	return r
}

// BodyPhotoDTO is the local file encoding; the timestamp is epoch milliseconds.
type BodyPhotoDTO struct {
	ID          string   `json:"id"`
	UserID      string   `json:"userId,omitempty"`
	Timestamp   int64    `json:"timestamp"`
	StoragePath string   `json:"storagePath"`
	BodyWeight  *float64 `json:"bodyWeight"`
	Note        string   `json:"note,omitempty"`
}

func (r BodyPhotoMetadata) DTO() BodyPhotoDTO {
	return BodyPhotoDTO{
		ID:          r.ID,
		UserID:      r.UserID,
		Timestamp:   r.Timestamp.UnixMilli(),
		StoragePath: r.StoragePath,
		BodyWeight:  r.BodyWeight,
		Note:        r.Note,
	}
}

func (d BodyPhotoDTO) Record() (BodyPhotoMetadata, error) {
	if d.Timestamp <= 0 {
		return BodyPhotoMetadata{}, fmt.Errorf("%w: body photo %s timestamp %d", ErrParseFailure, d.ID, d.Timestamp)
	}
	return BodyPhotoMetadata{
		ID:          d.ID,
		UserID:      d.UserID,
		Timestamp:   fromEpochMillis(d.Timestamp),
		StoragePath: d.StoragePath,
		BodyWeight:  d.BodyWeight,
		Note:        d.Note,
	}, nil
}

func (r BodyPhotoMetadata) ToDocument() map[string]any {
	doc := map[string]any{
		FieldUserID:    r.UserID,
		FieldTimestamp: r.Timestamp.UTC(),
		"storagePath":  r.StoragePath,
	}
	if r.BodyWeight != nil {
		doc["bodyWeight"] = *r.BodyWeight
	}
	if r.Note != "" {
		doc["note"] = r.Note
	}
	return doc
}

// BodyPhotoFromDocument decodes a remote body-photo document.
func BodyPhotoFromDocument(id string, data map[string]any) (BodyPhotoMetadata, error) {
	d := newDocReader(id, data)
	rec := BodyPhotoMetadata{
		ID:          id,
		UserID:      d.OptString(FieldUserID),
		Timestamp:   d.Time(FieldTimestamp),
		StoragePath: d.String("storagePath"),
		BodyWeight:  d.OptFloat("bodyWeight"),
		Note:        d.OptString("note"),
	}
	if err := d.Err(); err != nil {
		return BodyPhotoMetadata{}, err
	}
	return rec, nil
}
