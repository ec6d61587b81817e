package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/signatech/account-service/internal/core/domain"
	"github.com/signatech/account-service/internal/core/ports"
)

const submissionsCollection = "contact_submissions"

// SubmissionRepository owns the contact_submissions collection. The account
// service only ever purges it.
type SubmissionRepository struct {
	coll *mongo.Collection
}

func NewSubmissionRepository(db *mongo.Database) *SubmissionRepository {
	return &SubmissionRepository{coll: db.Collection(submissionsCollection)}
}

var _ ports.SubmissionPurger = (*SubmissionRepository)(nil)

func (r *SubmissionRepository) PurgeByEmail(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll.DeleteMany(ctx, bson.M{"email": domain.NormalizeEmail(email)}); err != nil {
		return fmt.Errorf("purge submissions: %w", err)
	}
	return nil
}
