package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
)

type RecordRepository struct {
	col *mongo.Collection
}

func NewRecordRepository(db *mongo.Database) *RecordRepository {
	return &RecordRepository{col: db.Collection(collectionRecords)}
}

// mongoRecord stores the date as YYYY-MM-DD so that string order is
// calendar order and the unique index compares calendar days.
type mongoRecord struct {
	ID                string    `bson:"_id"`
	OwnerUserID       string    `bson:"user_id"`
	Date              string    `bson:"date"`
	WeightKg          *float64  `bson:"weight,omitempty"`
	HeightCm          *float64  `bson:"height,omitempty"`
	AgeYears          *int      `bson:"age,omitempty"`
	BodyFatPercent    *float64  `bson:"body_fat_percentage,omitempty"`
	BodyFatKg         *float64  `bson:"body_fat_kg,omitempty"`
	MuscleMassKg      *float64  `bson:"muscle_mass,omitempty"`
	BoneMassKg        *float64  `bson:"bone_mass,omitempty"`
	BMI               *float64  `bson:"bmi,omitempty"`
	Kcal              *int      `bson:"kcal,omitempty"`
	MetabolicAgeYears *int      `bson:"metabolic_age,omitempty"`
	WaterPercent      *float64  `bson:"water_percentage,omitempty"`
	VisceralFat       *int      `bson:"visceral_fat,omitempty"`
	FatRightArm       *float64  `bson:"fat_right_arm,omitempty"`
	FatLeftArm        *float64  `bson:"fat_left_arm,omitempty"`
	FatRightLeg       *float64  `bson:"fat_right_leg,omitempty"`
	FatLeftLeg        *float64  `bson:"fat_left_leg,omitempty"`
	FatTrunk          *float64  `bson:"fat_trunk,omitempty"`
	Notes             string    `bson:"notes,omitempty"`
	CreatedAt         time.Time `bson:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at"`
}

func toMongoRecord(id, owner string, r *domain.HealthRecord) mongoRecord {
	return mongoRecord{
		ID:                id,
		OwnerUserID:       owner,
		Date:              r.Date.String(),
		WeightKg:          r.WeightKg,
		HeightCm:          r.HeightCm,
		AgeYears:          r.AgeYears,
		BodyFatPercent:    r.BodyFatPercent,
		BodyFatKg:         r.BodyFatKg,
		MuscleMassKg:      r.MuscleMassKg,
		BoneMassKg:        r.BoneMassKg,
		BMI:               r.BMI,
		Kcal:              r.Kcal,
		MetabolicAgeYears: r.MetabolicAgeYears,
		WaterPercent:      r.WaterPercent,
		VisceralFat:       r.VisceralFat,
		FatRightArm:       r.FatRightArm,
		FatLeftArm:        r.FatLeftArm,
		FatRightLeg:       r.FatRightLeg,
		FatLeftLeg:        r.FatLeftLeg,
		FatTrunk:          r.FatTrunk,
		Notes:             r.Notes,
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
}

func (m mongoRecord) toDomain() *domain.HealthRecord {
	date, _ := domain.ParseDate(m.Date)
	return &domain.HealthRecord{
		ID:                m.ID,
		OwnerUserID:       m.OwnerUserID,
		Date:              date,
		WeightKg:          m.WeightKg,
		HeightCm:          m.HeightCm,
		AgeYears:          m.AgeYears,
		BodyFatPercent:    m.BodyFatPercent,
		BodyFatKg:         m.BodyFatKg,
		MuscleMassKg:      m.MuscleMassKg,
		BoneMassKg:        m.BoneMassKg,
		BMI:               m.BMI,
		Kcal:              m.Kcal,
		MetabolicAgeYears: m.MetabolicAgeYears,
		WaterPercent:      m.WaterPercent,
		VisceralFat:       m.VisceralFat,
		FatRightArm:       m.FatRightArm,
		FatLeftArm:        m.FatLeftArm,
		FatRightLeg:       m.FatRightLeg,
		FatLeftLeg:        m.FatLeftLeg,
		FatTrunk:          m.FatTrunk,
		Notes:             m.Notes,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func (r *RecordRepository) Create(ctx context.Context, ownerUserID string, rec *domain.HealthRecord) (*domain.HealthRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoRecord(rec.ID, ownerUserID, rec)
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.DuplicateDateForUser(rec.Date)
		}
		return nil, domain.NewStorageError("insert health record", err)
	}
	return doc.toDomain(), nil
}

// Update replaces the whole document, so fields cleared in rec are removed.
func (r *RecordRepository) Update(ctx context.Context, recordID, ownerUserID string, rec *domain.HealthRecord) (*domain.HealthRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoRecord(recordID, ownerUserID, rec)
	var out mongoRecord
	err := r.col.FindOneAndReplace(ctx, bson.M{"_id": recordID, "user_id": ownerUserID}, doc,
		options.FindOneAndReplace().SetReturnDocument(options.After)).Decode(&out)
	if err != nil {
		switch {
		case isNoDocuments(err):
			return nil, domain.ErrRecordNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, domain.DuplicateDateForUser(rec.Date)
		}
		return nil, domain.NewStorageError("update health record", err)
	}
	return out.toDomain(), nil
}

func (r *RecordRepository) Delete(ctx context.Context, recordID, ownerUserID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": recordID, "user_id": ownerUserID})
	if err != nil {
		return domain.NewStorageError("delete health record", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (r *RecordRepository) FindByID(ctx context.Context, recordID string) (*domain.HealthRecord, error) {
	rec, err := r.findOne(ctx, bson.M{"_id": recordID})
	if err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, domain.NewStorageError("find health record", err)
	}
	return rec, nil
}

func (r *RecordRepository) FindByOwnerAndDate(ctx context.Context, ownerUserID string, date domain.Date) (*domain.HealthRecord, error) {
	rec, err := r.findOne(ctx, bson.M{"user_id": ownerUserID, "date": date.String()})
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, domain.NewStorageError("find health record by date", err)
	}
	return rec, nil
}

func (r *RecordRepository) findOne(ctx context.Context, filter bson.M) (*domain.HealthRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoRecord
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *RecordRepository) ListByOwner(ctx context.Context, ownerUserID string, f ports.ListRecordsFilter) ([]*domain.HealthRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := dateWindow(f.From, f.To)
	filter["user_id"] = ownerUserID

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
	if err != nil {
		return nil, domain.NewStorageError("list health records", err)
	}
	var docs []mongoRecord
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.NewStorageError("list health records", err)
	}

	records := make([]*domain.HealthRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.toDomain())
	}
	return records, nil
}

func (r *RecordRepository) Stats(ctx context.Context, ownerUserID string) (*domain.RecordStats, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": ownerUserID}}},
		{{Key: "$group", Value: bson.M{
			"_id":             nil,
			"total":           bson.M{"$sum": 1},
			"first":           bson.M{"$min": "$date"},
			"last":            bson.M{"$max": "$date"},
			"avg_weight":      bson.M{"$avg": "$weight"},
			"min_weight":      bson.M{"$min": "$weight"},
			"max_weight":      bson.M{"$max": "$weight"},
			"avg_body_fat":    bson.M{"$avg": "$body_fat_percentage"},
			"avg_muscle_mass": bson.M{"$avg": "$muscle_mass"},
			"avg_bmi":         bson.M{"$avg": "$bmi"},
		}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.NewStorageError("health record stats", err)
	}
	var rows []struct {
		Total         int64    `bson:"total"`
		First         string   `bson:"first"`
		Last          string   `bson:"last"`
		AvgWeight     *float64 `bson:"avg_weight"`
		MinWeight     *float64 `bson:"min_weight"`
		MaxWeight     *float64 `bson:"max_weight"`
		AvgBodyFat    *float64 `bson:"avg_body_fat"`
		AvgMuscleMass *float64 `bson:"avg_muscle_mass"`
		AvgBMI        *float64 `bson:"avg_bmi"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, domain.NewStorageError("health record stats", err)
	}

	// No records means no group at all.
	if len(rows) == 0 {
		return &domain.RecordStats{}, nil
	}
	row := rows[0]
	return &domain.RecordStats{
		TotalRecords:    row.Total,
		FirstRecordDate: parseDatePtr(row.First),
		LastRecordDate:  parseDatePtr(row.Last),
		AvgWeight:       row.AvgWeight,
		MinWeight:       row.MinWeight,
		MaxWeight:       row.MaxWeight,
		AvgBodyFat:      row.AvgBodyFat,
		AvgMuscleMass:   row.AvgMuscleMass,
		AvgBMI:          row.AvgBMI,
	}, nil
}

// mongoOwnedRecord is a record joined with its owner by listAllPipeline.
type mongoOwnedRecord struct {
	Record mongoRecord `bson:",inline"`
	Owner  struct {
		Name  string `bson:"name"`
		Email string `bson:"email"`
	} `bson:"owner"`
}

func (r *RecordRepository) ListAll(ctx context.Context, f ports.ListAllRecordsFilter) ([]*domain.OwnedRecord, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	match := dateWindow(f.From, f.To)
	total, err := r.col.CountDocuments(ctx, match)
	if err != nil {
		return nil, 0, domain.NewStorageError("count health records", err)
	}

	cur, err := r.col.Aggregate(ctx, listAllPipeline(match, f.Page, f.Limit))
	if err != nil {
		return nil, 0, domain.NewStorageError("list all health records", err)
	}
	var docs []mongoOwnedRecord
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, domain.NewStorageError("list all health records", err)
	}

	records := make([]*domain.OwnedRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, &domain.OwnedRecord{
			HealthRecord: *d.Record.toDomain(),
			OwnerName:    d.Owner.Name,
			OwnerEmail:   d.Owner.Email,
		})
	}
	return records, total, nil
}

// listAllPipeline pages before joining so the lookup only runs for the rows
// returned.
func listAllPipeline(match bson.M, page, limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		{{Key: "$skip", Value: int64((page - 1) * limit)}},
		{{Key: "$limit", Value: int64(limit)}},
		{{Key: "$lookup", Value: bson.M{
			"from":         collectionUsers,
			"localField":   "user_id",
			"foreignField": "_id",
			"as":           "owner",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$owner", "preserveNullAndEmptyArrays": true}}},
	}
}

// dateWindow filters on the stored YYYY-MM-DD string; zero bounds are open.
func dateWindow(from, to domain.Date) bson.M {
	filter := bson.M{}
	window := bson.M{}
	if !from.IsZero() {
		window["$gte"] = from.String()
	}
	if !to.IsZero() {
		window["$lte"] = to.String()
	}
	if len(window) > 0 {
		filter["date"] = window
	}
	return filter
}

func parseDatePtr(s string) *domain.Date {
	d, err := domain.ParseDate(s)
	if err != nil || d.IsZero() {
		return nil
	}
	return &d
}
