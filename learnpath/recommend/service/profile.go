package service

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// LearningStyle is the learner's preferred modality
type LearningStyle string

const (
	StyleVisual      LearningStyle = "visual"
	StyleAuditory    LearningStyle = "auditory"
	StyleKinesthetic LearningStyle = "kinesthetic"
	StyleReading     LearningStyle = "reading"
)

// KnownStyles fixes the one-hot slot order. Appending is safe, reordering
// invalidates stored learner vectors.
var KnownStyles = []LearningStyle{StyleVisual, StyleAuditory, StyleKinesthetic, StyleReading}

// Canonical folds case and aliases ("Reading/Writing") onto a known style.
// Unrecognized labels come back unchanged with ok=false.
func (s LearningStyle) Canonical() (LearningStyle, bool) {
	norm := LearningStyle(strings.ToLower(strings.TrimSpace(string(s))))
	switch norm {
	case "reading/writing", "reading_writing", "read/write":
		norm = StyleReading
	}
	for _, known := range KnownStyles {
		if norm == known {
			return known, true
		}
	}
	return s, false
}

// slot returns the one-hot index for the style
func (s LearningStyle) slot() (int, bool) {
	canon, ok := s.Canonical()
	if !ok {
		return 0, false
	}
	for i, known := range KnownStyles {
		if canon == known {
			return i, true
		}
	}
	return 0, false
}

// LearnerProfile is the "Learner DNA" of one request
type LearnerProfile struct {
	Skills      map[string]float64 `json:"skills" validate:"dive,keys,required,endkeys,gte=0,lte=1"`
	Style       LearningStyle      `json:"learning_style"`
	Aspirations []string           `json:"aspirations" validate:"dive,required"`
}

// NormalizeProficiency maps the 0-100 proficiency scale onto [0,1].
func NormalizeProficiency(p float64) float64 {
	switch {
	case p <= 0:
		return 0
	case p >= 100:
		return 1
	default:
		return p / 100
	}
}

var (
	profileValidate     *validator.Validate
	profileValidateOnce sync.Once
)

func getValidator() *validator.Validate {
	profileValidateOnce.Do(func() {
		profileValidate = validator.New(validator.WithRequiredStructEnabled())
	})
	return profileValidate
}

// Validate checks skill scores and aspiration ids. Failures wrap ErrInvalidProfile.
func (p LearnerProfile) Validate() error {
	if err := p.checkFinite(); err != nil {
		return err
	}

	err := getValidator().Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidProfile, strings.Join(msgs, "; "))
}

// checkFinite rejects NaN and infinite scores before range validation
func (p LearnerProfile) checkFinite() error {
	var bad []string
	for name, score := range p.Skills {
		if math.IsNaN(score) || math.IsInf(score, 0) {
			bad = append(bad, fmt.Sprintf("Skills[%s]=%v", name, score))
		}
	}
	if len(bad) == 0 {
		return nil
	}
	sort.Strings(bad)
	return fmt.Errorf("%w: non-finite skill scores: %s", ErrInvalidProfile, strings.Join(bad, ", "))
}
