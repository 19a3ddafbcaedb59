// Package stats derives progress figures from the in-memory record lists.
package stats

import (
	"slices"
	"strings"
	"time"

	"github.com/nm1236623-droid/fitsync/internal/models"
)

// CaloriesPerSet is the flat energy estimate for one completed set.
const CaloriesPerSet = 8.0

// Point is one value on a calendar day.
type Point struct {
	Day   time.Time `json:"day"`
	Value float64   `json:"value"`
}

// WeightProgression returns the heaviest logged weight of exercise per day,
// oldest first. Exercise names compare case-insensitively; entries without
// a weight are ignored.
func WeightProgression(records []models.TrainingRecord, exercise string) []Point {
	best := make(map[time.Time]float64)
	for _, r := range records {
		if r.Weight == nil || !strings.EqualFold(strings.TrimSpace(r.Exercise), strings.TrimSpace(exercise)) {
			continue
		}
		d := models.Day(r.Date)
		if w, ok := best[d]; !ok || *r.Weight > w {
			best[d] = *r.Weight
		}
	}
	return sorted(best)
}

// DailyCalories sums calories per day, oldest first.
func DailyCalories(records []models.DietRecord) []Point {
	totals := make(map[time.Time]float64)
	for _, r := range records {
		totals[models.Day(r.Date)] += r.Calories
	}
	return sorted(totals)
}

// EstimatePlanCalories estimates the energy spent completing plan.
func EstimatePlanCalories(plan models.Plan) float64 {
	return float64(plan.TotalSets()) * CaloriesPerSet
}

// PartWeight is the most recent load recorded for one body part.
type PartWeight struct {
	Weight float64   `json:"weight"`
	At     time.Time `json:"at"`
}

// LatestPartWeights returns, per body part, the value from the newest
// snapshot that mentions it.
func LatestPartWeights(snapshots []models.PartWeightsSnapshot) map[string]PartWeight {
	out := make(map[string]PartWeight)
	for _, s := range snapshots {
		for part, w := range s.Weights {
			if cur, ok := out[part]; !ok || s.Timestamp.After(cur.At) {
				out[part] = PartWeight{Weight: w, At: s.Timestamp}
			}
		}
	}
	return out
}

func sorted(byDay map[time.Time]float64) []Point {
	points := make([]Point, 0, len(byDay))
	for d, v := range byDay {
		points = append(points, Point{Day: d, Value: v})
	}
	slices.SortFunc(points, func(a, b Point) int { return a.Day.Compare(b.Day) })
	return points
}
