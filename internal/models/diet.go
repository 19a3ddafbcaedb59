package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Remote document field names shared by every owner-scoped record.
const (
	FieldUserID    = "userId"
	FieldTimestamp = "timestamp"
)

// DietRecord is one logged food entry for a calendar day.
type DietRecord struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId,omitempty"`
	Date     time.Time `json:"date"`
	FoodName string    `json:"foodName"`
	MealType string    `json:"mealType,omitempty"`
	Calories float64   `json:"calories"`
	Protein  float64   `json:"protein"`
	Carbs    float64   `json:"carbs"`
	Fat      float64   `json:"fat"`
}

// NewDietRecord creates a diet entry with a fresh id on the given day.
func NewDietRecord(day time.Time, food string, calories float64) DietRecord {
	return DietRecord{
		ID:       uuid.NewString(),
		Date:     Day(day),
		FoodName: food,
		Calories: calories,
	}
}

func (r DietRecord) RecordID() string      { return r.ID }
func (r DietRecord) OwnerID() string       { return r.UserID }
func (r DietRecord) RecordTime() time.Time { return r.Date }

func (r DietRecord) WithID(id string) DietRecord {
	r.ID = id
	return r
}

func (r DietRecord) WithOwner(userID string) DietRecord {
	r.UserID = userID
	return r
}

func (r DietRecord) Normalized() DietRecord {
	r.Date = Day(r.Date)
	return r
}

// DietDTO is the local file encoding; the date is a yyyy-MM-dd string.
type DietDTO struct {
	ID       string  `json:"id"`
	UserID   string  `json:"userId,omitempty"`
	Date     string  `json:"date"`
	FoodName string  `json:"foodName"`
	MealType string  `json:"mealType,omitempty"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

func (r DietRecord) DTO() DietDTO {
	return DietDTO{
		ID:       r.ID,
		UserID:   r.UserID,
		Date:     r.Date.UTC().Format(DateLayout),
		FoodName: r.FoodName,
		MealType: r.MealType,
		Calories: r.Calories,
		Protein:  r.Protein,
		Carbs:    r.Carbs,
		Fat:      r.Fat,
	}
}

func (d DietDTO) Record() (DietRecord, error) {
	day, err := ParseDay(d.Date)
	if err != nil {
		return DietRecord{}, fmt.Errorf("%w: diet %s date %q", ErrParseFailure, d.ID, d.Date)
	}
	return DietRecord{
		ID:       d.ID,
		UserID:   d.UserID,
		Date:     day,
		FoodName: d.FoodName,
		MealType: d.MealType,
		Calories: d.Calories,
		Protein:  d.Protein,
		Carbs:    d.Carbs,
		Fat:      d.Fat,
	}, nil
}

func (r DietRecord) ToDocument() map[string]any {
	doc := map[string]any{
		FieldUserID:    r.UserID,
		FieldTimestamp: r.Date.UTC(),
		"foodName":     r.FoodName,
		"calories":     r.Calories,
		"protein":      r.Protein,
		"carbs":        r.Carbs,
		"fat":          r.Fat,
	}
	if r.MealType != "" {
		doc["mealType"] = r.MealType
	}
	return doc
}

// DietFromDocument decodes a remote diet document.
func DietFromDocument(id string, data map[string]any) (DietRecord, error) {
	d := newDocReader(id, data)
	rec := DietRecord{
		ID:       id,
		UserID:   d.OptString(FieldUserID),
		Date:     Day(d.Time(FieldTimestamp)),
		FoodName: d.String("foodName"),
		MealType: d.OptString("mealType"),
		Calories: d.Float("calories"),
	}
	if p := d.OptFloat("protein"); p != nil {
		rec.Protein = *p
	}
	if c := d.OptFloat("carbs"); c != nil {
		rec.Carbs = *c
	}
	if f := d.OptFloat("fat"); f != nil {
		rec.Fat = *f
	}
	if err := d.Err(); err != nil {
		return DietRecord{}, err
	}
	return rec, nil
}
