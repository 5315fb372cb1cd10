package mongo

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
)

type UserRepository struct {
	coll    *mongo.Collection
	records *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		coll:    db.Collection(collectionUsers),
		records: db.Collection(collectionRecords),
	}
}

type mongoUser struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	PasswordHash string    `bson:"password_hash"`
	Role         string    `bson:"role"`
	HeightCm     *float64  `bson:"height_cm,omitempty"`
	Birthday     string    `bson:"birthday,omitempty"`
	Phone        string    `bson:"phone,omitempty"`
	TaxID        string    `bson:"tax_id,omitempty"`
	Address      string    `bson:"address,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toMongoUser(u *domain.User) mongoUser {
	doc := mongoUser{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		HeightCm:     u.HeightCm,
		Phone:        u.Phone,
		TaxID:        u.TaxID,
		Address:      u.Address,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
	if u.Birthday != nil {
		doc.Birthday = u.Birthday.String()
	}
	return doc
}

func (m mongoUser) toDomain() *domain.User {
	u := &domain.User{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		Role:         domain.ParseRole(m.Role),
		HeightCm:     m.HeightCm,
		Phone:        m.Phone,
		TaxID:        m.TaxID,
		Address:      m.Address,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if d, err := domain.ParseDate(m.Birthday); err == nil && !d.IsZero() {
		u.Birthday = &d
	}
	return u
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoUser(user)
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrEmailExists
		}
		return nil, domain.NewStorageError("insert user", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "find user by id", bson.M{"_id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "find user by email", bson.M{"email": email})
}

func (r *UserRepository) findOne(ctx context.Context, op string, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.NewStorageError(op, err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoUser(user)
	set := bson.M{
		"email":      doc.Email,
		"name":       doc.Name,
		"phone":      doc.Phone,
		"tax_id":     doc.TaxID,
		"address":    doc.Address,
		"updated_at": doc.UpdatedAt,
	}
	unset := bson.M{}
	if doc.HeightCm != nil {
		set["height_cm"] = *doc.HeightCm
	} else {
		unset["height_cm"] = ""
	}
	if doc.Birthday != "" {
		set["birthday"] = doc.Birthday
	} else {
		unset["birthday"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var mu mongoUser
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": user.ID}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&mu)
	if err != nil {
		switch {
		case isNoDocuments(err):
			return nil, domain.ErrUserNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, domain.ErrEmailExists
		}
		return nil, domain.NewStorageError("update user", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.updateFields(ctx, "update password", id, bson.M{"password_hash": passwordHash})
}

func (r *UserRepository) SetRole(ctx context.Context, id string, role domain.Role) error {
	return r.updateFields(ctx, "set role", id, bson.M{"role": string(role)})
}

func (r *UserRepository) updateFields(ctx context.Context, op, id string, set bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set["updated_at"] = time.Now().UTC()
	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return domain.NewStorageError(op, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Delete removes the account and then its records; MongoDB has no cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return domain.NewStorageError("delete user", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	if _, err := r.records.DeleteMany(ctx, bson.M{"user_id": id}); err != nil {
		return domain.NewStorageError("delete user records", err)
	}
	return nil
}

func (r *UserRepository) RoleOf(ctx context.Context, id string) (domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc struct {
		Role string `bson:"role"`
	}
	err := r.coll.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"role": 1})).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return "", domain.ErrUserNotFound
		}
		return "", domain.NewStorageError("read role", err)
	}
	return domain.ParseRole(doc.Role), nil
}

func (r *UserRepository) List(ctx context.Context, f ports.ListUsersFilter) ([]*domain.User, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
		filter["$or"] = bson.A{bson.M{"email": pattern}, bson.M{"name": pattern}}
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, domain.NewStorageError("count users", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, domain.NewStorageError("list users", err)
	}
	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, domain.NewStorageError("list users", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toDomain())
	}
	return users, total, nil
}
