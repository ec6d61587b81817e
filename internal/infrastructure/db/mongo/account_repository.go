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

const accountsCollection = "accounts"

// AccountRepository implements ports.AccountRepository using MongoDB.
type AccountRepository struct {
	coll *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(accountsCollection)}
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

type mongoAccount struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Name               string             `bson:"name"`
	Email              string             `bson:"email"`
	PasswordHash       string             `bson:"password_hash,omitempty"`
	Company            string             `bson:"company,omitempty"`
	Phone              string             `bson:"phone,omitempty"`
	Role               string             `bson:"role"`
	OAuthProvider      string             `bson:"oauth_provider,omitempty"`
	EmailVerified      bool               `bson:"email_verified"`
	EmailNotifications bool               `bson:"email_notifications"`
	CreatedAt          time.Time          `bson:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at"`
}

func toMongoAccount(a *domain.Account) mongoAccount {
	return mongoAccount{
		Name:               a.Name,
		Email:              domain.NormalizeEmail(a.Email),
		PasswordHash:       a.PasswordHash,
		Company:            a.Company,
		Phone:              a.Phone,
		Role:               a.Role,
		OAuthProvider:      a.OAuthProvider,
		EmailVerified:      a.EmailVerified,
		EmailNotifications: a.EmailNotifications,
		CreatedAt:          a.CreatedAt.UTC(),
		UpdatedAt:          a.UpdatedAt.UTC(),
	}
}

func (m mongoAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:                 m.ID.Hex(),
		Name:               m.Name,
		Email:              m.Email,
		PasswordHash:       m.PasswordHash,
		Company:            m.Company,
		Phone:              m.Phone,
		Role:               m.Role,
		OAuthProvider:      m.OAuthProvider,
		EmailVerified:      m.EmailVerified,
		EmailNotifications: m.EmailNotifications,
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoAccount
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain(), nil
}

// Create relies on the unique email index to reject duplicates.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoAccount(account)
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrAccountExists
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"email": domain.NormalizeEmail(email)},
		bson.M{"$set": bson.M{"password_hash": hash, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) LinkProvider(ctx context.Context, email, provider string) (*domain.Account, error) {
	set := bson.M{
		"oauth_provider": provider,
		"email_verified": true,
		"updated_at":     time.Now().UTC(),
	}
	return r.findAndSet(ctx, bson.M{"email": domain.NormalizeEmail(email)}, set)
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	set := profileSet(update)
	set["updated_at"] = time.Now().UTC()
	return r.findAndSet(ctx, bson.M{"_id": oid}, set)
}

func (r *AccountRepository) findAndSet(ctx context.Context, filter, set bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc mongoAccount
	if err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("update account: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// profileSet builds the $set document for the non-nil fields of update.
func profileSet(update domain.ProfileUpdate) bson.M {
	set := bson.M{}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Company != nil {
		set["company"] = *update.Company
	}
	if update.Phone != nil {
		set["phone"] = *update.Phone
	}
	if update.EmailNotifications != nil {
		set["email_notifications"] = *update.EmailNotifications
	}
	return set
}
