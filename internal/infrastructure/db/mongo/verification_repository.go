package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/signatech/account-service/internal/core/domain"
	"github.com/signatech/account-service/internal/core/ports"
)

const codesCollection = "verification_codes"

// VerificationCodeRepository is the append-only code ledger.
type VerificationCodeRepository struct {
	coll *mongo.Collection
}

func NewVerificationCodeRepository(db *mongo.Database) *VerificationCodeRepository {
	return &VerificationCodeRepository{coll: db.Collection(codesCollection)}
}

var _ ports.VerificationCodeRepository = (*VerificationCodeRepository)(nil)

type mongoCode struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Email      string             `bson:"email"`
	Purpose    string             `bson:"purpose"`
	CodeHash   string             `bson:"code_hash"`
	IssuedAt   time.Time          `bson:"issued_at"`
	ExpiresAt  time.Time          `bson:"expires_at"`
	Consumed   bool               `bson:"consumed"`
	ConsumedAt *time.Time         `bson:"consumed_at,omitempty"`
}

func (m mongoCode) toDomain() *domain.VerificationCode {
	return &domain.VerificationCode{
		ID:         m.ID.Hex(),
		Email:      m.Email,
		Purpose:    domain.CodePurpose(m.Purpose),
		CodeHash:   m.CodeHash,
		IssuedAt:   m.IssuedAt.UTC(),
		ExpiresAt:  m.ExpiresAt.UTC(),
		Consumed:   m.Consumed,
		ConsumedAt: m.ConsumedAt,
	}
}

func (r *VerificationCodeRepository) Insert(ctx context.Context, code *domain.VerificationCode) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoCode{
		Email:     domain.NormalizeEmail(code.Email),
		Purpose:   string(code.Purpose),
		CodeHash:  code.CodeHash,
		IssuedAt:  code.IssuedAt.UTC(),
		ExpiresAt: code.ExpiresAt.UTC(),
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert code: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		code.ID = oid.Hex()
	}
	return nil
}

// Latest sorts on issued_at and breaks millisecond ties with the ObjectID,
// which grows monotonically per process.
func (r *VerificationCodeRepository) Latest(ctx context.Context, email string, purpose domain.CodePurpose) (*domain.VerificationCode, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"email": domain.NormalizeEmail(email), "purpose": string(purpose)}
	opts := options.FindOne().SetSort(bson.D{{Key: "issued_at", Value: -1}, {Key: "_id", Value: -1}})

	var doc mongoCode
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, fmt.Errorf("find code: %w", err)
	}
	return doc.toDomain(), nil
}

// MarkConsumed is a conditional update on consumed=false, so at most one
// caller ever matches.
func (r *VerificationCodeRepository) MarkConsumed(ctx context.Context, id string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrCodeNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "consumed": false},
		bson.M{"$set": bson.M{"consumed": true, "consumed_at": at.UTC()}},
	)
	if err != nil {
		return fmt.Errorf("consume code: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrCodeAlreadyConsumed
	}
	return nil
}

func (r *VerificationCodeRepository) DeleteByEmail(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll.DeleteMany(ctx, bson.M{"email": domain.NormalizeEmail(email)}); err != nil {
		return fmt.Errorf("delete codes: %w", err)
	}
	return nil
}
