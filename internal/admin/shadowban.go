package admin

import (
	"context"

	"github.com/brinehollow/placewall/internal/model"
	"github.com/brinehollow/placewall/internal/plerrors"
)

// userStore is the subset of *users.Registry the admin plane needs,
// expressed as an interface so tests can substitute a fake instead of
// standing up a real store.
type userStore interface {
	Load(ctx context.Context, uuid string) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
}

func toggleShadowban(ctx context.Context, users userStore, uuid string) error {
	u, err := users.Load(ctx, uuid)
	if err != nil {
		return err
	}
	if u == nil {
		return plerrors.ClientError(plerrors.KindValidation, "unknown user", nil)
	}
	u.IsShadowBanned = !u.IsShadowBanned
	return users.Update(ctx, u)
}
