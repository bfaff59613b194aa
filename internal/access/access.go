// Package access resolves callers from bearer tokens and decides what they may
// see or change. Callers that may not see a record must get the same answer as
// for a record that does not exist.
package access

import (
	"context"
	"errors"

	"github.com/PaulBabatuyi/files-manager/internal/common"
	"github.com/PaulBabatuyi/files-manager/internal/models"
	"github.com/PaulBabatuyi/files-manager/internal/tokens"
)

// Identity is the caller of an operation. The zero value is an anonymous caller.
type Identity struct {
	UserID string
}

func Anonymous() Identity { return Identity{} }

func User(id string) Identity { return Identity{UserID: id} }

func (i Identity) IsAnonymous() bool { return i.UserID == "" }

type Resolver struct {
	tokens tokens.Store
}

func NewResolver(store tokens.Store) *Resolver {
	return &Resolver{tokens: store}
}

// ResolveIdentity returns the user behind token, or common.ErrUnauthorized when
// the token is empty, unknown or expired. Store failures are returned wrapped.
func (r *Resolver) ResolveIdentity(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Anonymous(), common.ErrUnauthorized
	}
	userID, err := r.tokens.Resolve(ctx, token)
	if errors.Is(err, tokens.ErrUnknownToken) {
		return Anonymous(), common.ErrUnauthorized
	}
	if err != nil {
		return Anonymous(), err
	}
	if userID == "" {
		return Anonymous(), common.ErrUnauthorized
	}
	return User(userID), nil
}

// CanView: public records are visible to everyone, private ones only to their owner.
func CanView(id Identity, rec *models.FileRecord) bool {
	if rec == nil {
		return false
	}
	if rec.IsPublic {
		return true
	}
	return !id.IsAnonymous() && rec.OwnedBy(id.UserID)
}

// CanMutate is true only for the owner.
func CanMutate(id Identity, rec *models.FileRecord) bool {
	if rec == nil || id.IsAnonymous() {
		return false
	}
	return rec.OwnedBy(id.UserID)
}
