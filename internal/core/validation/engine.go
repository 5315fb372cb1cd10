// Package validation checks health records against their consistency rules.
//
// Checks run in a fixed order: required fields, ranges, BMI, body fat, then
// component mass and date uniqueness. Every check runs; Validate reports
// them all with the first one as the headline error.
package validation

import (
	"math"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

// Mode selects create or update semantics.
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

// Rules holds the tolerances of the cross-field checks.
type Rules struct {
	// BMITolerance is the allowed absolute difference, in BMI points, between
	// a submitted BMI and weight / (height/100)^2.
	BMITolerance float64
	// BodyFatToleranceKg is the allowed absolute difference between
	// body_fat_kg and weight * body_fat_percentage / 100.
	BodyFatToleranceKg float64
	// ComponentMassSlackKg is how far muscle + bone mass may exceed weight.
	ComponentMassSlackKg float64
}

func DefaultRules() Rules {
	return Rules{
		BMITolerance:         1.0,
		BodyFatToleranceKg:   1.0,
		ComponentMassSlackKg: 1.0,
	}
}

type Engine struct {
	rules Rules
}

// NewEngine returns an Engine using rules. Negative tolerances fall back to
// the defaults.
func NewEngine(rules Rules) *Engine {
	def := DefaultRules()
	if rules.BMITolerance < 0 {
		rules.BMITolerance = def.BMITolerance
	}
	if rules.BodyFatToleranceKg < 0 {
		rules.BodyFatToleranceKg = def.BodyFatToleranceKg
	}
	if rules.ComponentMassSlackKg < 0 {
		rules.ComponentMassSlackKg = def.ComponentMassSlackKg
	}
	return &Engine{rules: rules}
}

func (e *Engine) Rules() Rules { return e.rules }

type rangeRule struct {
	field    string
	min, max float64
	value    func(r *domain.HealthRecord) (float64, bool)
}

func floatOf(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func intOf(p *int) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return float64(*p), true
}

var rangeRules = []rangeRule{
	{domain.FieldWeight, 20, 300, func(r *domain.HealthRecord) (float64, bool) { return floatOf(r.WeightKg) }},
	{domain.FieldHeight, 100, 250, func(r *domain.HealthRecord) (float64, bool) { return floatOf(r.HeightCm) }},
	{domain.FieldAge, 1, 150, func(r *domain.HealthRecord) (float64, bool) { return intOf(r.AgeYears) }},
	{domain.FieldBodyFatPercentage, 1, 50, func(r *domain.HealthRecord) (float64, bool) { return floatOf(r.BodyFatPercent) }},
	{domain.FieldMuscleMass, 0, 100, func(r *domain.HealthRecord) (float64, bool) { return floatOf(r.MuscleMassKg) }},
	{domain.FieldBoneMass, 0, 10, func(r *domain.HealthRecord) (float64, bool) { return floatOf(r.BoneMassKg) }},
	{domain.FieldBMI, 10, 60, func(r *domain.HealthRecord) (float64, bool) { return floatOf(r.BMI) }},
	{domain.FieldKcal, 500, 10000, func(r *domain.HealthRecord) (float64, bool) { return intOf(r.Kcal) }},
	{domain.FieldMetabolicAge, 10, 100, func(r *domain.HealthRecord) (float64, bool) { return intOf(r.MetabolicAgeYears) }},
	{domain.FieldWaterPercentage, 30, 80, func(r *domain.HealthRecord) (float64, bool) { return floatOf(r.WaterPercent) }},
	{domain.FieldVisceralFat, 1, 30, func(r *domain.HealthRecord) (float64, bool) { return intOf(r.VisceralFat) }},
	{domain.FieldFatRightArm, 0, 50, func(r *domain.HealthRecord) (float64, bool) { return floatOf(r.FatRightArm) }},
	{domain.FieldFatLeftArm, 0, 50, func(r *domain.HealthRecord) (float64, bool) { return floatOf(r.FatLeftArm) }},
	{domain.FieldFatRightLeg, 0, 50, func(r *domain.HealthRecord) (float64, bool) { return floatOf(r.FatRightLeg) }},
	{domain.FieldFatLeftLeg, 0, 50, func(r *domain.HealthRecord) (float64, bool) { return floatOf(r.FatLeftLeg) }},
	{domain.FieldFatTrunk, 0, 50, func(r *domain.HealthRecord) (float64, bool) { return floatOf(r.FatTrunk) }},
}

// Check returns every rule candidate breaks, in check order. existing holds
// the owner's records that could collide with candidate's date.
func (e *Engine) Check(candidate *domain.HealthRecord, mode Mode, existing []*domain.HealthRecord) []*domain.ValidationError {
	var errs []*domain.ValidationError

	if mode == ModeCreate {
		errs = append(errs, checkRequired(candidate)...)
	}

	for _, rr := range rangeRules {
		v, ok := rr.value(candidate)
		if ok && (v < rr.min || v > rr.max) {
			errs = append(errs, domain.OutOfRange(rr.field, v, rr.min, rr.max))
		}
	}

	if err := e.checkBMI(candidate); err != nil {
		errs = append(errs, err)
	}
	if err := e.checkBodyFat(candidate); err != nil {
		errs = append(errs, err)
	}
	if err := e.checkComponentMass(candidate); err != nil {
		errs = append(errs, err)
	}
	if err := checkUniqueDate(candidate, mode, existing); err != nil {
		errs = append(errs, err)
	}

	return errs
}

// Validate returns nil when candidate passes, or a *domain.ValidationFailure
// whose first entry is the first rule broken.
func (e *Engine) Validate(candidate *domain.HealthRecord, mode Mode, existing []*domain.HealthRecord) error {
	errs := e.Check(candidate, mode, existing)
	if len(errs) == 0 {
		return nil
	}
	return &domain.ValidationFailure{Errors: errs}
}

func checkRequired(r *domain.HealthRecord) []*domain.ValidationError {
	var errs []*domain.ValidationError
	if r.Date.IsZero() {
		errs = append(errs, domain.MissingField(domain.FieldDate))
	}
	if r.WeightKg == nil {
		errs = append(errs, domain.MissingField(domain.FieldWeight))
	}
	if r.HeightCm == nil {
		errs = append(errs, domain.MissingField(domain.FieldHeight))
	}
	if r.AgeYears == nil {
		errs = append(errs, domain.MissingField(domain.FieldAge))
	}
	return errs
}

func (e *Engine) checkBMI(r *domain.HealthRecord) *domain.ValidationError {
	if r.WeightKg == nil || r.HeightCm == nil || r.BMI == nil || *r.HeightCm <= 0 {
		return nil
	}
	m := *r.HeightCm / 100
	expected := *r.WeightKg / (m * m)
	if math.Abs(*r.BMI-expected) > e.rules.BMITolerance {
		return domain.InconsistentBMI(*r.BMI, expected)
	}
	return nil
}

func (e *Engine) checkBodyFat(r *domain.HealthRecord) *domain.ValidationError {
	if r.WeightKg == nil || r.BodyFatPercent == nil || r.BodyFatKg == nil {
		return nil
	}
	expected := *r.WeightKg * *r.BodyFatPercent / 100
	if math.Abs(*r.BodyFatKg-expected) > e.rules.BodyFatToleranceKg {
		return domain.InconsistentBodyFat(*r.BodyFatKg, expected)
	}
	return nil
}

func (e *Engine) checkComponentMass(r *domain.HealthRecord) *domain.ValidationError {
	if r.WeightKg == nil || r.MuscleMassKg == nil || r.BoneMassKg == nil {
		return nil
	}
	sum := *r.MuscleMassKg + *r.BoneMassKg
	if sum > *r.WeightKg+e.rules.ComponentMassSlackKg {
		return domain.ComponentMassExceedsWeight(sum, *r.WeightKg)
	}
	return nil
}

func checkUniqueDate(r *domain.HealthRecord, mode Mode, existing []*domain.HealthRecord) *domain.ValidationError {
	if r.Date.IsZero() {
		return nil
	}
	for _, other := range existing {
		if other == nil || !other.Date.Equal(r.Date) {
			continue
		}
		if mode == ModeUpdate && other.ID == r.ID {
			continue
		}
		return domain.DuplicateDateForUser(r.Date)
	}
	return nil
}
