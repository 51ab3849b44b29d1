package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(_ context.Context, email, studentCode string, excludedID int) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var codeTaken bool
	for _, usr := range repo.db.users {
		if usr.ID == excludedID {
			continue
		}
		if usr.Email == email {
			return user.ErrEmailExists
		}
		if studentCode != "" && usr.StudentCode == studentCode {
			codeTaken = true
		}
	}
	if codeTaken {
		return user.ErrStudentCodeExists
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr.ID = repo.db.nextID("users")
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id int) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range values(repo.db.users) {
		if filter == nil || filter.Match(usr) {
			users = append(users, usr)
		}
	}
	sortUsers(users, ordering)
	if filter != nil && filter.Limit > 0 && len(users) > filter.Limit {
		users = users[:filter.Limit]
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...int) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.users[id]; ok {
			delete(repo.db.users, id)
			n++
		}
	}
	return n, nil
}

// compareUsers compares a and b on one field: -1, 0 or 1.
func compareUsers(a, b user.User, field string) int {
	switch field {
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "role":
		return strings.Compare(a.Role, b.Role)
	case "created_at":
		return compareTimes(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	case "last_login":
		return compareTimes(a.LastLogin.UnixNano(), b.LastLogin.UnixNano())
	default:
		return strings.Compare(a.Name, b.Name)
	}
}

func compareTimes(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func sortUsers(users []user.User, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareUsers(users[i], users[j], ord.Field)
			if !ord.Ascending {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return users[i].ID < users[j].ID
	})
}
