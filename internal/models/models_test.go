package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func day(s string) time.Time {
	d, _ := ParseDay(s)
	return d
}

func ms(t time.Time) time.Time { return t.UTC().Truncate(time.Millisecond) }

// roundTrip pushes a DTO through JSON the way the local file store does.
func roundTrip[D any](t *testing.T, dto D) D {
	t.Helper()
	b, err := json.Marshal(dto)
	require.NoError(t, err)
	var out D
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestTrainingDTO_NullablePayload(t *testing.T) {
	cases := []struct {
		name string
		rec  TrainingRecord
	}{
		{"full", TrainingRecord{ID: "t1", UserID: "u1", Date: day("2024-03-01"), Exercise: "squat", BodyPart: "legs", Sets: 5, Reps: intPtr(5), Weight: floatPtr(100), Notes: "pr"}},
		{"no reps no weight", TrainingRecord{ID: "t2", Date: day("2024-03-02"), Exercise: "run", Sets: 1}},
		{"weight only", TrainingRecord{ID: "t3", Date: day("2024-03-03"), Exercise: "plank", Sets: 3, Weight: floatPtr(0)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := roundTrip(t, tc.rec.DTO()).Record()
			require.NoError(t, err)
			assert.Equal(t, tc.rec, got)
		})
	}
}

func TestDietDTO_EncodesCalendarDate(t *testing.T) {
	rec := DietRecord{ID: "d1", Date: day("2024-01-31"), FoodName: "oats", MealType: "breakfast", Calories: 350, Protein: 12.5}
	dto := rec.DTO()
	assert.Equal(t, "2024-01-31", dto.Date)

	got, err := roundTrip(t, dto).Record()
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestEpochDTOs_RoundTrip(t *testing.T) {
	at := ms(time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC))

	snap := PartWeightsSnapshot{ID: "p1", UserID: "u1", Timestamp: at, Weights: map[string]float64{"chest": 1200, "back": 900.5}}
	gotSnap, err := roundTrip(t, snap.DTO()).Record()
	require.NoError(t, err)
	assert.Equal(t, snap, gotSnap)
	assert.Equal(t, at.UnixMilli(), snap.DTO().Timestamp)

	photo := BodyPhotoMetadata{ID: "b1", Timestamp: at, StoragePath: "photos/u1/b1.jpg"}
	gotPhoto, err := roundTrip(t, photo.DTO()).Record()
	require.NoError(t, err)
	assert.Equal(t, photo, gotPhoto)

	photo.BodyWeight = floatPtr(72.4)
	photo.Note = "morning"
	gotPhoto, err = roundTrip(t, photo.DTO()).Record()
	require.NoError(t, err)
	assert.Equal(t, photo, gotPhoto)
}

func TestDTO_InvalidDate(t *testing.T) {
	_, err := DietDTO{ID: "x", Date: "31/01/2024"}.Record()
	if !errors.Is(err, ErrParseFailure) {
		t.Errorf("expected ErrParseFailure, got %v", err)
	}
	_, err = BodyPhotoDTO{ID: "y"}.Record()
	if !errors.Is(err, ErrParseFailure) {
		t.Errorf("expected ErrParseFailure for zero timestamp, got %v", err)
	}
}

func TestDocuments_RoundTrip(t *testing.T) {
	tr := TrainingRecord{ID: "t1", UserID: "u1", Date: day("2024-03-01"), Exercise: "bench", Sets: 3, Reps: intPtr(8), Weight: floatPtr(60)}
	gotTr, err := TrainingFromDocument(tr.ID, tr.ToDocument())
	require.NoError(t, err)
	assert.Equal(t, tr, gotTr)

	diet := DietRecord{ID: "d1", UserID: "u1", Date: day("2024-03-01"), FoodName: "rice", Calories: 200}
	gotDiet, err := DietFromDocument(diet.ID, diet.ToDocument())
	require.NoError(t, err)
	assert.Equal(t, diet, gotDiet)

	published := ms(time.Now())
	plan := Plan{ID: "p1", CoachID: "c1", Name: "push day", CreatedAt: ms(time.Now()), PublishedAt: &published,
		Exercises: []PlanExercise{{Name: "bench", Sets: 4, Reps: 8, Weight: floatPtr(70)}, {Name: "dips", Sets: 3}}}
	gotPlan, err := PlanFromDocument(plan.ID, plan.ToDocument())
	require.NoError(t, err)
	assert.Equal(t, plan, gotPlan)
}

func TestDocuments_ParseFailure(t *testing.T) {
	cases := []struct {
		name string
		data map[string]any
	}{
		{"missing exercise", map[string]any{FieldTimestamp: time.Now(), "sets": 3}},
		{"sets not a number", map[string]any{FieldTimestamp: time.Now(), "exercise": "row", "sets": "three"}},
		{"fractional sets", map[string]any{FieldTimestamp: time.Now(), "exercise": "row", "sets": 2.5}},
		{"bad timestamp", map[string]any{FieldTimestamp: "yesterday", "exercise": "row", "sets": 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := TrainingFromDocument("doc", tc.data)
			assert.ErrorIs(t, err, ErrParseFailure)
		})
	}
}

func TestDocuments_AcceptsJSONDecodedValues(t *testing.T) {
	// Documents read back from a JSONB column carry float64 numbers and string timestamps.
	data := map[string]any{
		FieldUserID:    "u1",
		FieldTimestamp: "2024-03-01T00:00:00Z",
		"exercise":     "deadlift",
		"sets":         float64(3),
		"reps":         float64(5),
	}
	rec, err := TrainingFromDocument("t9", data)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Sets)
	require.NotNil(t, rec.Reps)
	assert.Equal(t, 5, *rec.Reps)
	assert.Nil(t, rec.Weight)
	assert.True(t, rec.Date.Equal(day("2024-03-01")))
}

func TestPlan_TotalSets(t *testing.T) {
	p := Plan{Exercises: []PlanExercise{{Sets: 3}, {Sets: 4}, {Sets: 0}}}
	if got := p.TotalSets(); got != 7 {
		t.Errorf("TotalSets = %d; want 7", got)
	}
}

func TestNormalized(t *testing.T) {
	at := time.Date(2024, 4, 1, 13, 45, 10, 123456789, time.FixedZone("x", 3*3600))

	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), DietRecord{Date: at}.Normalized().Date)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), TrainingRecord{Date: at}.Normalized().Date)

	ms := time.Date(2024, 4, 1, 10, 45, 10, 123000000, time.UTC)
	assert.Equal(t, ms, PartWeightsSnapshot{Timestamp: at}.Normalized().Timestamp)
	photo := BodyPhotoMetadata{Timestamp: at}.Normalized()
	assert.Equal(t, ms, photo.Timestamp)

	back, err := photo.DTO().Record()
	require.NoError(t, err)
	assert.Equal(t, photo, back)
}
