package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const userColumns = `id, name, email, phone, role, is_active, group_id, faculty_id, student_code, enrollment_year,
	department, position, password_hash, created_at, updated_at, last_login`

var userOrderings = map[string]string{
	"name":       "name",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
	"last_login": "last_login",
}

type userRow struct {
	ID             int         `db:"id"`
	Name           string      `db:"name"`
	Email          string      `db:"email"`
	Phone          string      `db:"phone"`
	Role           string      `db:"role"`
	IsActive       bool        `db:"is_active"`
	GroupID        null.Int    `db:"group_id"`
	FacultyID      null.Int    `db:"faculty_id"`
	StudentCode    null.String `db:"student_code"`
	EnrollmentYear null.Int    `db:"enrollment_year"`
	Department     string      `db:"department"`
	Position       string      `db:"position"`
	PasswordHash   []byte      `db:"password_hash"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
	LastLogin      null.Time   `db:"last_login"`
}

func toUserRow(u user.User) userRow {
	return userRow{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Phone:          u.Phone,
		Role:           u.Role,
		IsActive:       u.IsActive,
		GroupID:        nullInt(u.GroupID),
		FacultyID:      nullInt(u.FacultyID),
		StudentCode:    nullString(u.StudentCode),
		EnrollmentYear: nullInt(u.EnrollmentYear),
		Department:     u.Department,
		Position:       u.Position,
		PasswordHash:   u.PasswordHash,
		CreatedAt:      u.CreatedAt.UTC(),
		UpdatedAt:      u.UpdatedAt.UTC(),
		LastLogin:      null.NewTime(u.LastLogin.UTC(), !u.LastLogin.IsZero()),
	}
}

func (r userRow) user() user.User {
	return user.User{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		Phone:          r.Phone,
		Role:           r.Role,
		IsActive:       r.IsActive,
		GroupID:        r.GroupID.Int,
		FacultyID:      r.FacultyID.Int,
		StudentCode:    r.StudentCode.String,
		EnrollmentYear: r.EnrollmentYear.Int,
		Department:     r.Department,
		Position:       r.Position,
		PasswordHash:   r.PasswordHash,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		LastLogin:      r.LastLogin.Time,
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, email, studentCode string, excludedID int) error {
	var rows []struct {
		Email       string      `db:"email"`
		StudentCode null.String `db:"student_code"`
	}
	q := `SELECT email, student_code FROM users WHERE (email = $1 OR ($2 <> '' AND student_code = $2)) AND id <> $3`
	if err := repo.db.SelectContext(ctx, &rows, q, email, studentCode, excludedID); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, r := range rows {
		if r.Email == email {
			return user.ErrEmailExists
		}
	}
	if len(rows) > 0 {
		return user.ErrStudentCodeExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO users (name, email, phone, role, is_active, group_id, faculty_id, student_code, enrollment_year,
		department, position, password_hash, created_at, updated_at, last_login)
		VALUES (:name, :email, :phone, :role, :is_active, :group_id, :faculty_id, :student_code, :enrollment_year,
		:department, :position, :password_hash, :created_at, :updated_at, :last_login) RETURNING id`
	id, err := insert(ctx, repo.db, q, toUserRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	usr.ID = id
	return usr, nil
}

func (repo *userRepository) get(ctx context.Context, cond string, arg interface{}) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE `+cond, arg); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "selecting user")
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	return repo.get(ctx, "id = $1", id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.get(ctx, "email = $1", email)
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var w where
	limit := 0
	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("(name ILIKE ? OR email ILIKE ? OR COALESCE(student_code, '') ILIKE ?)", val, val, val)
		}
		if len(filter.Roles) > 0 {
			w.add("role = ANY(?)", pq.Array(filter.Roles))
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
		if filter.GroupIDs != nil {
			w.add("group_id = ANY(?)", pq.Array(filter.GroupIDs))
		}
		if filter.FacultyIDs != nil {
			w.add("faculty_id = ANY(?)", pq.Array(filter.FacultyIDs))
		}
		if filter.IDs != nil {
			w.add("id = ANY(?)", pq.Array(filter.IDs))
		}
		limit = filter.Limit
	}

	q := `SELECT ` + userColumns + ` FROM users` + w.String() +
		` ORDER BY ` + core.OrderBy(ordering, userOrderings, "name ASC") + `, id ASC`
	if limit > 0 {
		q += ` LIMIT ?`
		w.args = append(w.args, limit)
	}

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, len(rows))
	for i, r := range rows {
		users[i] = r.user()
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE users SET name = :name, email = :email, phone = :phone, role = :role, is_active = :is_active,
		group_id = :group_id, faculty_id = :faculty_id, student_code = :student_code,
		enrollment_year = :enrollment_year, department = :department, position = :position,
		password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := namedExec(ctx, repo.db, q, toUserRow(usr))
	if err = checkAffected(res, err, user.ErrNotFound, "updating user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...int) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "deleting users")
}
