package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
)

// measurementColumns are the nullable biometric columns, in scan order.
const measurementColumns = `weight, height, age, body_fat_percentage, body_fat_kg, muscle_mass, bone_mass, bmi,
	kcal, metabolic_age, water_percentage, visceral_fat,
	fat_right_arm, fat_left_arm, fat_right_leg, fat_left_leg, fat_trunk`

const recordColumns = `id, user_id, date, ` + measurementColumns + `, notes, created_at, updated_at`

type RecordRepository struct {
	pool *pgxpool.Pool
}

func NewRecordRepository(pool *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{pool: pool}
}

func (r *RecordRepository) Create(ctx context.Context, ownerUserID string, rec *domain.HealthRecord) (*domain.HealthRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	args := append([]any{rec.ID, ownerUserID, rec.Date.Time()}, measurementArgs(rec)...)
	args = append(args, rec.Notes, rec.CreatedAt, rec.UpdatedAt)

	row := r.pool.QueryRow(ctx, `
		INSERT INTO health_records (`+recordColumns+`)
		VALUES (`+placeholders(1, len(args))+`)
		RETURNING `+recordColumns, args...)

	created, err := scanRecord(row)
	if err != nil {
		switch {
		case isUniqueViolation(err, constraintRecordDate):
			return nil, domain.DuplicateDateForUser(rec.Date)
		case isForeignKeyViolation(err, constraintRecordUser):
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.NewStorageError("insert health record", err)
	}
	return created, nil
}

func (r *RecordRepository) Update(ctx context.Context, recordID, ownerUserID string, rec *domain.HealthRecord) (*domain.HealthRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	// $1 id, $2 owner, $3 date, then measurements, notes and updated_at.
	args := append([]any{recordID, ownerUserID, rec.Date.Time()}, measurementArgs(rec)...)
	args = append(args, rec.Notes, rec.UpdatedAt)

	cols := strings.Split(measurementColumns, ",")
	set := make([]string, 0, len(cols)+3)
	set = append(set, "date = $3")
	for i, col := range cols {
		set = append(set, strings.TrimSpace(col)+" = $"+strconv.Itoa(i+4))
	}
	next := len(cols) + 4
	set = append(set, "notes = $"+strconv.Itoa(next), "updated_at = $"+strconv.Itoa(next+1))

	row := r.pool.QueryRow(ctx, `
		UPDATE health_records SET `+strings.Join(set, ", ")+`
		WHERE id = $1 AND user_id = $2
		RETURNING `+recordColumns, args...)

	updated, err := scanRecord(row)
	if err != nil {
		switch {
		case isNoRows(err):
			return nil, domain.ErrRecordNotFound
		case isUniqueViolation(err, constraintRecordDate):
			return nil, domain.DuplicateDateForUser(rec.Date)
		}
		return nil, domain.NewStorageError("update health record", err)
	}
	return updated, nil
}

func (r *RecordRepository) Delete(ctx context.Context, recordID, ownerUserID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM health_records WHERE id = $1 AND user_id = $2`, recordID, ownerUserID)
	if err != nil {
		return domain.NewStorageError("delete health record", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (r *RecordRepository) FindByID(ctx context.Context, recordID string) (*domain.HealthRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rec, err := scanRecord(r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM health_records WHERE id = $1`, recordID))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, domain.NewStorageError("find health record", err)
	}
	return rec, nil
}

func (r *RecordRepository) FindByOwnerAndDate(ctx context.Context, ownerUserID string, date domain.Date) (*domain.HealthRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rec, err := scanRecord(r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM health_records WHERE user_id = $1 AND date = $2`,
		ownerUserID, date.Time()))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, domain.NewStorageError("find health record by date", err)
	}
	return rec, nil
}

func (r *RecordRepository) ListByOwner(ctx context.Context, ownerUserID string, f ports.ListRecordsFilter) ([]*domain.HealthRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `SELECT ` + recordColumns + ` FROM health_records WHERE user_id = $1`
	args := []any{ownerUserID}
	if !f.From.IsZero() {
		args = append(args, f.From.Time())
		query += ` AND date >= $` + strconv.Itoa(len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To.Time())
		query += ` AND date <= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY date DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStorageError("list health records", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.HealthRecord, error) {
		return scanRecord(row)
	})
	if err != nil {
		return nil, domain.NewStorageError("list health records", err)
	}
	return records, nil
}

func (r *RecordRepository) Stats(ctx context.Context, ownerUserID string) (*domain.RecordStats, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var (
		s           domain.RecordStats
		first, last *time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT count(*), min(date), max(date),
		       avg(weight), min(weight), max(weight),
		       avg(body_fat_percentage), avg(muscle_mass), avg(bmi)
		FROM health_records WHERE user_id = $1`, ownerUserID).
		Scan(&s.TotalRecords, &first, &last,
			&s.AvgWeight, &s.MinWeight, &s.MaxWeight,
			&s.AvgBodyFat, &s.AvgMuscleMass, &s.AvgBMI)
	if err != nil {
		return nil, domain.NewStorageError("health record stats", err)
	}
	s.FirstRecordDate = datePtr(first)
	s.LastRecordDate = datePtr(last)
	return &s, nil
}

func (r *RecordRepository) ListAll(ctx context.Context, f ports.ListAllRecordsFilter) ([]*domain.OwnedRecord, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	where := ` WHERE true`
	var args []any
	if !f.From.IsZero() {
		args = append(args, f.From.Time())
		where += ` AND hr.date >= $` + strconv.Itoa(len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To.Time())
		where += ` AND hr.date <= $` + strconv.Itoa(len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM health_records hr`+where, args...).Scan(&total); err != nil {
		return nil, 0, domain.NewStorageError("count health records", err)
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	query := `SELECT ` + qualify("hr", recordColumns) + `, u.name, u.email
		FROM health_records hr JOIN users u ON u.id = hr.user_id` + where + `
		ORDER BY hr.created_at DESC
		LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, domain.NewStorageError("list all health records", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.OwnedRecord, error) {
		var (
			o    domain.OwnedRecord
			date time.Time
		)
		dest := append(recordDest(&o.HealthRecord, &date), &o.OwnerName, &o.OwnerEmail)
		if err := row.Scan(dest...); err != nil {
			return nil, err
		}
		o.Date = domain.NewDate(date)
		return &o, nil
	})
	if err != nil {
		return nil, 0, domain.NewStorageError("list all health records", err)
	}
	return records, total, nil
}

func measurementArgs(rec *domain.HealthRecord) []any {
	return []any{
		rec.WeightKg, rec.HeightCm, rec.AgeYears, rec.BodyFatPercent, rec.BodyFatKg,
		rec.MuscleMassKg, rec.BoneMassKg, rec.BMI,
		rec.Kcal, rec.MetabolicAgeYears, rec.WaterPercent, rec.VisceralFat,
		rec.FatRightArm, rec.FatLeftArm, rec.FatRightLeg, rec.FatLeftLeg, rec.FatTrunk,
	}
}

func scanRecord(row pgx.Row) (*domain.HealthRecord, error) {
	var (
		rec  domain.HealthRecord
		date time.Time
	)
	if err := row.Scan(recordDest(&rec, &date)...); err != nil {
		return nil, err
	}
	rec.Date = domain.NewDate(date)
	return &rec, nil
}

// recordDest lists scan targets in recordColumns order. The date is scanned
// into date and converted by the caller.
func recordDest(rec *domain.HealthRecord, date *time.Time) []any {
	return []any{&rec.ID, &rec.OwnerUserID, date,
		&rec.WeightKg, &rec.HeightCm, &rec.AgeYears, &rec.BodyFatPercent, &rec.BodyFatKg,
		&rec.MuscleMassKg, &rec.BoneMassKg, &rec.BMI,
		&rec.Kcal, &rec.MetabolicAgeYears, &rec.WaterPercent, &rec.VisceralFat,
		&rec.FatRightArm, &rec.FatLeftArm, &rec.FatRightLeg, &rec.FatLeftLeg, &rec.FatTrunk,
		&rec.Notes, &rec.CreatedAt, &rec.UpdatedAt}
}

// qualify prefixes every column in a comma-separated list with alias.
func qualify(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func datePtr(t *time.Time) *domain.Date {
	if t == nil {
		return nil
	}
	d := domain.NewDate(*t)
	return &d
}

// placeholders renders "$from, ..., $(from+n-1)".
func placeholders(from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = "$" + strconv.Itoa(from+i)
	}
	return strings.Join(ps, ", ")
}
