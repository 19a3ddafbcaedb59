package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nm1236623-droid/fitsync/internal/models"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func day(s string) time.Time {
	d, err := models.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestFileStore_LoadMissingFile(t *testing.T) {
	s := NewDietStore(t.TempDir(), zap.NewNop())

	records := s.Load(context.Background())

	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestFileStore_LoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DietFile), []byte("{not json"), 0o600))

	s := NewDietStore(dir, zap.NewNop())

	assert.Empty(t, s.Load(context.Background()))
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewTrainingStore(t.TempDir(), zap.NewNop())

	records := []models.TrainingRecord{
		{ID: "a", Date: day("2024-05-01"), Exercise: "squat", BodyPart: "legs", Sets: 5, Reps: intPtr(5), Weight: floatPtr(100)},
		{ID: "b", Date: day("2024-05-02"), Exercise: "plank", Sets: 3},
	}
	require.NoError(t, s.Save(ctx, records))

	assert.Equal(t, records, s.Load(ctx))
}

func TestFileStore_SkipsUndecodableEntries(t *testing.T) {
	dir := t.TempDir()
	raw := `[
		{"id": "ok", "date": "2024-05-01", "foodName": "rice", "calories": 200, "protein": 4, "carbs": 45, "fat": 0.5},
		{"id": "bad", "date": "05/01/2024", "foodName": "oats", "calories": 150, "protein": 5, "carbs": 27, "fat": 3}
	]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DietFile), []byte(raw), 0o600))

	s := NewDietStore(dir, zap.NewNop())
	records := s.Load(context.Background())

	require.Len(t, records, 1)
	assert.Equal(t, "ok", records[0].ID)
}

func TestFileStore_SaveOverwritesWholeFile(t *testing.T) {
	ctx := context.Background()
	s := NewBodyPhotoStore(t.TempDir(), zap.NewNop())
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, []models.BodyPhotoMetadata{
		{ID: "1", Timestamp: at, StoragePath: "photos/1.jpg"},
		{ID: "2", Timestamp: at, StoragePath: "photos/2.jpg"},
	}))
	require.NoError(t, s.Save(ctx, []models.BodyPhotoMetadata{
		{ID: "3", Timestamp: at, StoragePath: "photos/3.jpg", BodyWeight: floatPtr(71.5)},
	}))

	records := s.Load(ctx)
	require.Len(t, records, 1)
	assert.Equal(t, "3", records[0].ID)
	assert.Equal(t, 71.5, *records[0].BodyWeight)

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStore_Mutate(t *testing.T) {
	ctx := context.Background()
	s := NewPartWeightsStore(t.TempDir(), zap.NewNop())
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.Mutate(ctx, func(list []models.PartWeightsSnapshot) []models.PartWeightsSnapshot {
		return append(list, models.PartWeightsSnapshot{ID: "p1", Timestamp: at, Weights: map[string]float64{"chest": 40}})
	}))
	require.NoError(t, s.Mutate(ctx, func(list []models.PartWeightsSnapshot) []models.PartWeightsSnapshot {
		return append(list, models.PartWeightsSnapshot{ID: "p2", Timestamp: at.Add(time.Hour), Weights: map[string]float64{"back": 55}})
	}))

	records := s.Load(ctx)
	require.Len(t, records, 2)
	assert.Equal(t, "p1", records[0].ID)
	assert.Equal(t, "p2", records[1].ID)
}

func TestFileStore_Prune(t *testing.T) {
	ctx := context.Background()
	s := NewDietStore(t.TempDir(), zap.NewNop())
	require.NoError(t, s.Save(ctx, []models.DietRecord{
		{ID: "old", Date: day("2024-01-01"), FoodName: "apple", Calories: 80},
		{ID: "new", Date: day("2024-03-01"), FoodName: "pear", Calories: 90},
	}))

	removed, err := s.Prune(ctx, day("2024-02-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	records := s.Load(ctx)
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].ID)

	removed, err = s.Prune(ctx, day("2024-02-01"))
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestFileStore_PruneIf(t *testing.T) {
	ctx := context.Background()
	s := NewDietStore(t.TempDir(), zap.NewNop())
	require.NoError(t, s.Save(ctx, []models.DietRecord{
		{ID: "uploaded", Date: day("2024-01-01"), FoodName: "apple", Calories: 80},
		{ID: "pending", Date: day("2024-01-01"), FoodName: "kiwi", Calories: 40},
	}))

	removed, err := s.PruneIf(ctx, day("2024-02-01"), func(r models.DietRecord) bool {
		return r.ID == "uploaded"
	})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	records := s.Load(ctx)
	require.Len(t, records, 1)
	assert.Equal(t, "pending", records[0].ID)
}

func TestFileStore_SaveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewDietStore(t.TempDir(), zap.NewNop())
	err := s.Save(ctx, nil)

	assert.ErrorIs(t, err, context.Canceled)
}
