package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

type fieldKind int

const (
	kindFloat fieldKind = iota
	kindInt
	kindDate
	kindText
)

var fieldKinds = map[string]fieldKind{
	domain.FieldDate:              kindDate,
	domain.FieldWeight:            kindFloat,
	domain.FieldHeight:            kindFloat,
	domain.FieldAge:               kindInt,
	domain.FieldBodyFatPercentage: kindFloat,
	domain.FieldBodyFatKg:         kindFloat,
	domain.FieldMuscleMass:        kindFloat,
	domain.FieldBoneMass:          kindFloat,
	domain.FieldBMI:               kindFloat,
	domain.FieldKcal:              kindInt,
	domain.FieldMetabolicAge:      kindInt,
	domain.FieldWaterPercentage:   kindFloat,
	domain.FieldVisceralFat:       kindInt,
	domain.FieldFatRightArm:       kindFloat,
	domain.FieldFatLeftArm:        kindFloat,
	domain.FieldFatRightLeg:       kindFloat,
	domain.FieldFatLeftLeg:        kindFloat,
	domain.FieldFatTrunk:          kindFloat,
	domain.FieldNotes:             kindText,
}

// camelAliases maps the camelCase spellings clients send to canonical keys.
var camelAliases = map[string]string{
	"bodyFatPercentage": domain.FieldBodyFatPercentage,
	"bodyFatKg":         domain.FieldBodyFatKg,
	"muscleMass":        domain.FieldMuscleMass,
	"boneMass":          domain.FieldBoneMass,
	"metabolicAge":      domain.FieldMetabolicAge,
	"waterPercentage":   domain.FieldWaterPercentage,
	"visceralFat":       domain.FieldVisceralFat,
	"fatRightArm":       domain.FieldFatRightArm,
	"fatLeftArm":        domain.FieldFatLeftArm,
	"fatRightLeg":       domain.FieldFatRightLeg,
	"fatLeftLeg":        domain.FieldFatLeftLeg,
	"fatTrunk":          domain.FieldFatTrunk,
}

// CanonicalKey maps a submitted key to its canonical record field.
func CanonicalKey(key string) (string, bool) {
	if _, ok := fieldKinds[key]; ok {
		return key, true
	}
	c, ok := camelAliases[key]
	return c, ok
}

// Normalize turns a raw request payload into a RecordInput. Keys may be
// snake_case or camelCase; unknown keys are ignored. Numbers may arrive as
// JSON numbers or numeric strings. A null or blank value counts as absent.
func Normalize(payload map[string]any) (domain.RecordInput, error) {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parsed := make(map[string]any, len(keys))
	for _, k := range keys {
		field, ok := CanonicalKey(k)
		if !ok {
			continue
		}
		v, present, err := parseValue(field, payload[k])
		if err != nil {
			return domain.RecordInput{}, err
		}
		if !present {
			continue
		}
		if prev, seen := parsed[field]; seen {
			if !sameValue(prev, v) {
				return domain.RecordInput{}, domain.InvalidValue(field, "conflicting values for the same field")
			}
			continue
		}
		parsed[field] = v
	}

	var in domain.RecordInput
	for field, v := range parsed {
		assign(&in, field, v)
	}
	return in, nil
}

func parseValue(field string, raw any) (any, bool, error) {
	if raw == nil {
		return nil, false, nil
	}
	kind := fieldKinds[field]
	if s, ok := raw.(string); ok && kind != kindText && strings.TrimSpace(s) == "" {
		return nil, false, nil
	}

	switch kind {
	case kindText:
		s, ok := raw.(string)
		if !ok {
			return nil, false, domain.InvalidValue(field, "must be a string")
		}
		return s, true, nil
	case kindDate:
		switch v := raw.(type) {
		case string:
			d, err := domain.ParseDate(v)
			if err != nil {
				return nil, false, domain.InvalidValue(field, "must be a date in YYYY-MM-DD format")
			}
			return d, true, nil
		case time.Time:
			return domain.NewDate(v), true, nil
		case domain.Date:
			return v, true, nil
		default:
			return nil, false, domain.InvalidValue(field, "must be a date in YYYY-MM-DD format")
		}
	case kindInt:
		f, err := toFloat(raw)
		if err != nil {
			return nil, false, domain.InvalidValue(field, "must be a number")
		}
		if f != math.Trunc(f) {
			return nil, false, domain.InvalidValue(field, "must be a whole number")
		}
		return int(f), true, nil
	default:
		f, err := toFloat(raw)
		if err != nil {
			return nil, false, domain.InvalidValue(field, "must be a number")
		}
		return f, true, nil
	}
}

func toFloat(raw any) (float64, error) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, err
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return f, nil
}

func sameValue(a, b any) bool {
	if da, ok := a.(domain.Date); ok {
		db, ok := b.(domain.Date)
		return ok && da.Equal(db)
	}
	return a == b
}

func assign(in *domain.RecordInput, field string, v any) {
	switch field {
	case domain.FieldDate:
		d := v.(domain.Date)
		in.Date = &d
	case domain.FieldNotes:
		s := v.(string)
		in.Notes = &s
	case domain.FieldAge:
		in.AgeYears = domain.Int(v.(int))
	case domain.FieldKcal:
		in.Kcal = domain.Int(v.(int))
	case domain.FieldMetabolicAge:
		in.MetabolicAgeYears = domain.Int(v.(int))
	case domain.FieldVisceralFat:
		in.VisceralFat = domain.Int(v.(int))
	case domain.FieldWeight:
		in.WeightKg = domain.Float(v.(float64))
	case domain.FieldHeight:
		in.HeightCm = domain.Float(v.(float64))
	case domain.FieldBodyFatPercentage:
		in.BodyFatPercent = domain.Float(v.(float64))
	case domain.FieldBodyFatKg:
		in.BodyFatKg = domain.Float(v.(float64))
	case domain.FieldMuscleMass:
		in.MuscleMassKg = domain.Float(v.(float64))
	case domain.FieldBoneMass:
		in.BoneMassKg = domain.Float(v.(float64))
	case domain.FieldBMI:
		in.BMI = domain.Float(v.(float64))
	case domain.FieldWaterPercentage:
		in.WaterPercent = domain.Float(v.(float64))
	case domain.FieldFatRightArm:
		in.FatRightArm = domain.Float(v.(float64))
	case domain.FieldFatLeftArm:
		in.FatLeftArm = domain.Float(v.(float64))
	case domain.FieldFatRightLeg:
		in.FatRightLeg = domain.Float(v.(float64))
	case domain.FieldFatLeftLeg:
		in.FatLeftLeg = domain.Float(v.(float64))
	case domain.FieldFatTrunk:
		in.FatTrunk = domain.Float(v.(float64))
	}
}
