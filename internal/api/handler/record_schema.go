package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
	"github.com/vitaltrack/health-tracker/internal/core/validation"
)

// recordRequest documents the record payload for swagger. Handlers decode a
// generic map instead so camelCase spellings are accepted too.
type recordRequest struct {
	Date              string   `json:"date" example:"2024-01-15"`
	Weight            *float64 `json:"weight" example:"80"`
	Height            *float64 `json:"height" example:"180"`
	Age               *int     `json:"age" example:"34"`
	BodyFatPercentage *float64 `json:"body_fat_percentage"`
	BodyFatKg         *float64 `json:"body_fat_kg"`
	MuscleMass        *float64 `json:"muscle_mass"`
	BoneMass          *float64 `json:"bone_mass"`
	BMI               *float64 `json:"bmi"`
	Kcal              *int     `json:"kcal"`
	MetabolicAge      *int     `json:"metabolic_age"`
	WaterPercentage   *float64 `json:"water_percentage"`
	VisceralFat       *int     `json:"visceral_fat"`
	FatRightArm       *float64 `json:"fat_right_arm"`
	FatLeftArm        *float64 `json:"fat_left_arm"`
	FatRightLeg       *float64 `json:"fat_right_leg"`
	FatLeftLeg        *float64 `json:"fat_left_leg"`
	FatTrunk          *float64 `json:"fat_trunk"`
	Notes             *string  `json:"notes"`
}

type recordListResponse struct {
	Records []*domain.HealthRecord `json:"records"`
	Count   int                    `json:"count"`
}

// bindRecordInput decodes the JSON body into a RecordInput. Only the body is
// read; path and query parameters never leak into the record.
func bindRecordInput(c echo.Context) (domain.RecordInput, error) {
	payload := map[string]any{}
	if err := c.Echo().JSONSerializer.Deserialize(c, &payload); err != nil {
		return domain.RecordInput{}, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return validation.Normalize(payload)
}

// bindDateRange reads the optional from/to query parameters.
func bindDateRange(c echo.Context) (ports.ListRecordsFilter, error) {
	var f ports.ListRecordsFilter
	if raw := c.QueryParam("from"); raw != "" {
		d, err := domain.ParseDate(raw)
		if err != nil {
			return f, domain.InvalidValue("from", "must be a date in YYYY-MM-DD format")
		}
		f.From = d
	}
	if raw := c.QueryParam("to"); raw != "" {
		d, err := domain.ParseDate(raw)
		if err != nil {
			return f, domain.InvalidValue("to", "must be a date in YYYY-MM-DD format")
		}
		f.To = d
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, domain.InvalidValue("to", "must not be before from")
	}
	return f, nil
}

func newRecordList(records []*domain.HealthRecord) recordListResponse {
	if records == nil {
		records = []*domain.HealthRecord{}
	}
	return recordListResponse{Records: records, Count: len(records)}
}
