package domain

import "time"

// Canonical field names of a health record. Every layer past the HTTP
// boundary speaks these keys only.
const (
	FieldDate              = "date"
	FieldWeight            = "weight"
	FieldHeight            = "height"
	FieldAge               = "age"
	FieldBodyFatPercentage = "body_fat_percentage"
	FieldBodyFatKg         = "body_fat_kg"
	FieldMuscleMass        = "muscle_mass"
	FieldBoneMass          = "bone_mass"
	FieldBMI               = "bmi"
	FieldKcal              = "kcal"
	FieldMetabolicAge      = "metabolic_age"
	FieldWaterPercentage   = "water_percentage"
	FieldVisceralFat       = "visceral_fat"
	FieldFatRightArm       = "fat_right_arm"
	FieldFatLeftArm        = "fat_left_arm"
	FieldFatRightLeg       = "fat_right_leg"
	FieldFatLeftLeg        = "fat_left_leg"
	FieldFatTrunk          = "fat_trunk"
	FieldNotes             = "notes"
)

// HealthRecord is one biometric snapshot. At most one record exists per
// (OwnerUserID, Date).
type HealthRecord struct {
	ID                string    `json:"id"`
	OwnerUserID       string    `json:"user_id"`
	Date              Date      `json:"date"`
	WeightKg          *float64  `json:"weight,omitempty"`
	HeightCm          *float64  `json:"height,omitempty"`
	AgeYears          *int      `json:"age,omitempty"`
	BodyFatPercent    *float64  `json:"body_fat_percentage,omitempty"`
	BodyFatKg         *float64  `json:"body_fat_kg,omitempty"`
	MuscleMassKg      *float64  `json:"muscle_mass,omitempty"`
	BoneMassKg        *float64  `json:"bone_mass,omitempty"`
	BMI               *float64  `json:"bmi,omitempty"`
	Kcal              *int      `json:"kcal,omitempty"`
	MetabolicAgeYears *int      `json:"metabolic_age,omitempty"`
	WaterPercent      *float64  `json:"water_percentage,omitempty"`
	VisceralFat       *int      `json:"visceral_fat,omitempty"`
	FatRightArm       *float64  `json:"fat_right_arm,omitempty"`
	FatLeftArm        *float64  `json:"fat_left_arm,omitempty"`
	FatRightLeg       *float64  `json:"fat_right_leg,omitempty"`
	FatLeftLeg        *float64  `json:"fat_left_leg,omitempty"`
	FatTrunk          *float64  `json:"fat_trunk,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// OwnedRecord is a record listed together with its owner's identity.
type OwnedRecord struct {
	HealthRecord
	OwnerName  string `json:"user_name"`
	OwnerEmail string `json:"user_email"`
}

// RecordInput is a normalized, possibly partial record payload. Only fields
// that were present in the request are non-nil.
type RecordInput struct {
	Date              *Date
	WeightKg          *float64
	HeightCm          *float64
	AgeYears          *int
	BodyFatPercent    *float64
	BodyFatKg         *float64
	MuscleMassKg      *float64
	BoneMassKg        *float64
	BMI               *float64
	Kcal              *int
	MetabolicAgeYears *int
	WaterPercent      *float64
	VisceralFat       *int
	FatRightArm       *float64
	FatLeftArm        *float64
	FatRightLeg       *float64
	FatLeftLeg        *float64
	FatTrunk          *float64
	Notes             *string
}

// ApplyTo overlays every present field of in onto rec.
func (in RecordInput) ApplyTo(rec *HealthRecord) {
	if in.Date != nil {
		rec.Date = *in.Date
	}
	setFloat(&rec.WeightKg, in.WeightKg)
	setFloat(&rec.HeightCm, in.HeightCm)
	setInt(&rec.AgeYears, in.AgeYears)
	setFloat(&rec.BodyFatPercent, in.BodyFatPercent)
	setFloat(&rec.BodyFatKg, in.BodyFatKg)
	setFloat(&rec.MuscleMassKg, in.MuscleMassKg)
	setFloat(&rec.BoneMassKg, in.BoneMassKg)
	setFloat(&rec.BMI, in.BMI)
	setInt(&rec.Kcal, in.Kcal)
	setInt(&rec.MetabolicAgeYears, in.MetabolicAgeYears)
	setFloat(&rec.WaterPercent, in.WaterPercent)
	setInt(&rec.VisceralFat, in.VisceralFat)
	setFloat(&rec.FatRightArm, in.FatRightArm)
	setFloat(&rec.FatLeftArm, in.FatLeftArm)
	setFloat(&rec.FatRightLeg, in.FatRightLeg)
	setFloat(&rec.FatLeftLeg, in.FatLeftLeg)
	setFloat(&rec.FatTrunk, in.FatTrunk)
	if in.Notes != nil {
		rec.Notes = *in.Notes
	}
}

func setFloat(dst **float64, src *float64) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func setInt(dst **int, src *int) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// RecordStats summarises one user's history.
type RecordStats struct {
	TotalRecords    int64    `json:"total_records"`
	FirstRecordDate *Date    `json:"first_record_date,omitempty"`
	LastRecordDate  *Date    `json:"last_record_date,omitempty"`
	AvgWeight       *float64 `json:"avg_weight,omitempty"`
	MinWeight       *float64 `json:"min_weight,omitempty"`
	MaxWeight       *float64 `json:"max_weight,omitempty"`
	AvgBodyFat      *float64 `json:"avg_body_fat,omitempty"`
	AvgMuscleMass   *float64 `json:"avg_muscle_mass,omitempty"`
	AvgBMI          *float64 `json:"avg_bmi,omitempty"`
}

// Float returns a pointer to v. Handy for building records in code.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
