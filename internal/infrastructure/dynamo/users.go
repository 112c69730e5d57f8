package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/go-shop-nosql/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
// The partition key is the case-folded email.
type UserRepo struct {
	store     *Store
	tableName string
}

func NewUserRepo(store *Store, tableName string) *UserRepo {
	return &UserRepo{store: store, tableName: tableName}
}

// Create writes u only if no user with the same id exists.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	cond := expression.AttributeNotExists(expression.Name(fieldUserID))
	err := r.store.Put(ctx, r.tableName, u, &cond)
	if errors.Is(err, ErrConditionFailed) {
		return fmt.Errorf("user %s: %w", u.UserID, domain.ErrConflict)
	}
	return err
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	found, err := r.store.Get(ctx, r.tableName, strKey(fieldUserID, userID), &u)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	return &u, nil
}
