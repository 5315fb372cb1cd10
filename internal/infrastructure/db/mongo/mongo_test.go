package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

func TestRecordDocumentStoresCalendarDate(t *testing.T) {
	rec := &domain.HealthRecord{
		Date:     domain.MustParseDate("2024-01-15"),
		WeightKg: domain.Float(80),
	}

	raw, err := bson.Marshal(toMongoRecord("rec-1", "user-1", rec))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if doc["date"] != "2024-01-15" {
		t.Fatalf("expected date string, got %#v", doc["date"])
	}
	if doc["user_id"] != "user-1" || doc["_id"] != "rec-1" {
		t.Fatalf("unexpected identity fields %v", doc)
	}
	if _, ok := doc["bmi"]; ok {
		t.Fatal("absent measurements must not be stored")
	}
}

func TestUserDocumentKeepsOptionalProfile(t *testing.T) {
	birthday := domain.MustParseDate("1990-05-01")
	u := &domain.User{
		ID:        "user-1",
		Email:     "ann@example.com",
		Role:      domain.RoleAdmin,
		Birthday:  &birthday,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	back := toMongoUser(u).toDomain()
	if back.Birthday == nil || !back.Birthday.Equal(birthday) {
		t.Fatalf("birthday lost: %v", back.Birthday)
	}
	if back.Role != domain.RoleAdmin {
		t.Fatalf("role lost: %s", back.Role)
	}

	u.Birthday = nil
	if toMongoUser(u).toDomain().Birthday != nil {
		t.Fatal("expected no birthday")
	}
}

func TestBSONKeysPreserveOrder(t *testing.T) {
	keys := bsonKeys("user_id", "date")
	if len(keys) != 2 || keys[0].Key != "user_id" || keys[1].Key != "date" || keys[1].Value != 1 {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestParseDatePtr(t *testing.T) {
	if parseDatePtr("") != nil {
		t.Fatal("empty string has no date")
	}
	if d := parseDatePtr("2024-02-29"); d == nil || d.String() != "2024-02-29" {
		t.Fatalf("unexpected date %v", d)
	}
}

func TestDateWindow(t *testing.T) {
	if f := dateWindow(domain.Date{}, domain.Date{}); len(f) != 0 {
		t.Fatalf("expected an open window, got %v", f)
	}
	f := dateWindow(domain.MustParseDate("2024-01-01"), domain.MustParseDate("2024-01-31"))
	window, ok := f["date"].(bson.M)
	if !ok || window["$gte"] != "2024-01-01" || window["$lte"] != "2024-01-31" {
		t.Fatalf("unexpected window %v", f)
	}
}

func TestListAllPipelinePagesBeforeJoin(t *testing.T) {
	p := listAllPipeline(bson.M{}, 3, 20)

	var ops []string
	for _, stage := range p {
		ops = append(ops, stage[0].Key)
	}
	want := []string{"$match", "$sort", "$skip", "$limit", "$lookup", "$unwind"}
	if len(ops) != len(want) {
		t.Fatalf("unexpected stages %v", ops)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("stage %d: got %s, want %s", i, ops[i], want[i])
		}
	}
	if skip := p[2][0].Value.(int64); skip != 40 {
		t.Fatalf("expected skip 40, got %d", skip)
	}
}

func TestOwnedRecordDecodesJoinedOwner(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"_id":     "r-1",
		"user_id": "user-1",
		"date":    "2024-01-15",
		"weight":  80.5,
		"owner":   bson.M{"_id": "user-1", "name": "Ann", "email": "ann@example.com"},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var doc mongoOwnedRecord
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	rec := doc.Record.toDomain()
	if rec.ID != "r-1" || rec.Date.String() != "2024-01-15" || rec.WeightKg == nil || *rec.WeightKg != 80.5 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if doc.Owner.Name != "Ann" || doc.Owner.Email != "ann@example.com" {
		t.Fatalf("unexpected owner %+v", doc.Owner)
	}
}
