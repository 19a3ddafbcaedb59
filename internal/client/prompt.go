package client

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nm1236623-droid/fitsync/internal/models"
)

// Prompter reads record fields line by line.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

// Next prints label and returns the trimmed next line. ok is false at end of input.
func (p *Prompter) Next(label string) (line string, ok bool) {
	fmt.Fprint(p.out, label)
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

// Ask is Next with end of input read as an empty answer.
func (p *Prompter) Ask(label string) string {
	line, _ := p.Next(label)
	return line
}

func (p *Prompter) askDay() (time.Time, error) {
	s := p.Ask("Date (yyyy-MM-dd, empty for today): ")
	if s == "" {
		return models.Day(time.Now()), nil
	}
	d, err := models.ParseDay(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", models.ErrInvalidRecord, s)
	}
	return d, nil
}

func (p *Prompter) askFloat(label string, required bool) (*float64, error) {
	s := p.Ask(label)
	if s == "" {
		if required {
			return nil, fmt.Errorf("%w: %s is required", models.ErrInvalidRecord, strings.TrimSuffix(label, ": "))
		}
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", models.ErrInvalidRecord, s)
	}
	return &v, nil
}

func (p *Prompter) askInt(label string, required bool) (*int, error) {
	s := p.Ask(label)
	if s == "" {
		if required {
			return nil, fmt.Errorf("%w: %s is required", models.ErrInvalidRecord, strings.TrimSuffix(label, ": "))
		}
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a whole number", models.ErrInvalidRecord, s)
	}
	return &v, nil
}

// PromptDiet asks for one food entry.
func (p *Prompter) PromptDiet() (models.DietRecord, error) {
	day, err := p.askDay()
	if err != nil {
		return models.DietRecord{}, err
	}
	food := p.Ask("Food: ")
	if food == "" {
		return models.DietRecord{}, fmt.Errorf("%w: food is required", models.ErrInvalidRecord)
	}
	calories, err := p.askFloat("Calories: ", true)
	if err != nil {
		return models.DietRecord{}, err
	}
	rec := models.NewDietRecord(day, food, *calories)
	rec.MealType = p.Ask("Meal (breakfast/lunch/dinner/snack, optional): ")
	return rec, nil
}

// PromptTraining asks for one exercise entry. Reps and weight may be left empty.
func (p *Prompter) PromptTraining() (models.TrainingRecord, error) {
	day, err := p.askDay()
	if err != nil {
		return models.TrainingRecord{}, err
	}
	exercise := p.Ask("Exercise: ")
	if exercise == "" {
		return models.TrainingRecord{}, fmt.Errorf("%w: exercise is required", models.ErrInvalidRecord)
	}
	sets, err := p.askInt("Sets: ", true)
	if err != nil {
		return models.TrainingRecord{}, err
	}
	rec := models.NewTrainingRecord(day, exercise, *sets)
	if rec.Reps, err = p.askInt("Reps (optional): ", false); err != nil {
		return models.TrainingRecord{}, err
	}
	if rec.Weight, err = p.askFloat("Weight kg (optional): ", false); err != nil {
		return models.TrainingRecord{}, err
	}
	return rec, nil
}
