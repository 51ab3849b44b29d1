package messaging

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/access"
	"github.com/trezcool/campus/core/user"
)

type UserQuerier interface {
	GetByID(ctx context.Context, id int) (user.User, error)
	Query(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error)
}

// Resolver turns an actor's messaging scope into concrete users.
type Resolver struct {
	policy *access.Evaluator
	users  UserQuerier
}

func NewResolver(policy *access.Evaluator, users UserQuerier) *Resolver {
	return &Resolver{policy: policy, users: users}
}

// AllowedCounterparts lists the users `actor` may message, sorted by name.
// A non-empty `search` narrows the list like user.QueryFilter.Search; `limit` > 0 caps it.
func (r *Resolver) AllowedCounterparts(ctx context.Context, actor user.User, search string, limit int) ([]user.User, error) {
	scope, err := r.policy.Scope(ctx, actor)
	if err != nil {
		return nil, errors.Wrap(err, "resolving messaging scope")
	}
	if scope.IsEmpty() {
		return []user.User{}, nil
	}

	seen := map[int]bool{}
	out := make([]user.User, 0)
	for _, filter := range scope.Filters() {
		filter := filter
		filter.Search = search
		users, err := r.users.Query(ctx, &filter, nil)
		if err != nil {
			return nil, errors.Wrap(err, "querying users")
		}
		for _, u := range users {
			if seen[u.ID] || !scope.Contains(u) {
				continue
			}
			seen[u.ID] = true
			out = append(out, u)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CanMessage agrees with AllowedCounterparts membership.
func (r *Resolver) CanMessage(ctx context.Context, actor, target user.User) (bool, error) {
	return r.policy.CanMessage(ctx, actor, target)
}
