package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/campus/core"
)

// Roles
const (
	RoleAdmin      = "admin"
	RoleDean       = "dean"
	RoleTeacher    = "teacher"
	RoleStudent    = "student"
	RoleAccounting = "accounting"
)

var (
	AllRoles = []string{RoleAdmin, RoleDean, RoleTeacher, RoleStudent, RoleAccounting}

	// roles allowed to reset their password by email
	passwordResetRoles = []string{RoleDean, RoleTeacher, RoleStudent}

	Roles = []Role{
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Dean", Value: RoleDean},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Student", Value: RoleStudent},
		{Name: "Accounting", Value: RoleAccounting},
	}
)

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	GroupID        int       `json:"group_id,omitempty"`   // students
	FacultyID      int       `json:"faculty_id,omitempty"` // deans
	StudentCode    string    `json:"student_code,omitempty"`
	EnrollmentYear int       `json:"enrollment_year,omitempty"`
	Department     string    `json:"department,omitempty"`
	Position       string    `json:"position,omitempty"`
	PasswordHash   []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
	LastLogin      time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool      { return u.Role == RoleAdmin }
func (u User) IsDean() bool       { return u.Role == RoleDean }
func (u User) IsTeacher() bool    { return u.Role == RoleTeacher }
func (u User) IsStudent() bool    { return u.Role == RoleStudent }
func (u User) IsAccounting() bool { return u.Role == RoleAccounting }

func (u User) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

func (u User) CanResetPassword() bool {
	return u.HasAnyRole(passwordResetRoles...)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required,max=200"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"omitempty,max=30"`
	Role            string `json:"role" validate:"required,role"`
	GroupID         int    `json:"group_id" validate:"omitempty,min=1"`
	FacultyID       int    `json:"faculty_id" validate:"omitempty,min=1"`
	StudentCode     string `json:"student_code" validate:"omitempty,max=50"`
	EnrollmentYear  int    `json:"enrollment_year" validate:"omitempty,min=1990,max=2100"`
	Department      string `json:"department" validate:"omitempty,max=200"`
	Position        string `json:"position" validate:"omitempty,max=200"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.StudentCode = core.CleanString(nu.StudentCode)
	nu.Department = core.CleanString(nu.Department)
	nu.Position = core.CleanString(nu.Position)
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Clean()
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string  `json:"name" validate:"omitempty,max=200"`
	Email           string  `json:"email" validate:"omitempty,email"`
	Phone           *string `json:"phone" validate:"omitempty,max=30"`
	Role            string  `json:"role" validate:"omitempty,role"`
	IsActive        *bool   `json:"is_active"`
	GroupID         *int    `json:"group_id" validate:"omitempty,min=0"`
	FacultyID       *int    `json:"faculty_id" validate:"omitempty,min=0"`
	StudentCode     *string `json:"student_code" validate:"omitempty,max=50"`
	Department      *string `json:"department" validate:"omitempty,max=200"`
	Position        *string `json:"position" validate:"omitempty,max=200"`
	Password        string  `json:"password" validate:"omitempty"`
	PasswordConfirm string  `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	uu.Name = core.CleanString(uu.Name)
	uu.Email = core.CleanString(uu.Email, true /* lower */)
	uu.Role = core.CleanString(uu.Role, true /* lower */)
	if err := validate.Struct(uu); err != nil {
		return err
	}
	if uu.Password != "" {
		return validatePasswordStandalone(validate, uu.Password, origUsr)
	}
	return nil
}

// apply merges the update into a copy of usr.
func (uu UpdateUser) apply(usr User) User {
	if uu.Name != "" {
		usr.Name = uu.Name
	}
	if uu.Email != "" {
		usr.Email = uu.Email
	}
	if uu.Role != "" {
		usr.Role = uu.Role
	}
	if uu.Phone != nil {
		usr.Phone = core.CleanString(*uu.Phone)
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.GroupID != nil {
		usr.GroupID = *uu.GroupID
	}
	if uu.FacultyID != nil {
		usr.FacultyID = *uu.FacultyID
	}
	if uu.StudentCode != nil {
		usr.StudentCode = core.CleanString(*uu.StudentCode)
	}
	if uu.Department != nil {
		usr.Department = core.CleanString(*uu.Department)
	}
	if uu.Position != nil {
		usr.Position = core.CleanString(*uu.Position)
	}
	return usr
}

// Registration is the self sign-up form; it always creates a student.
type Registration struct {
	Name            string `json:"name" validate:"required,max=200"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"omitempty,max=30"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (r *Registration) Validate(validate *validator.Validate) error {
	r.Name = core.CleanString(r.Name)
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.Phone = core.CleanString(r.Phone)
	return validate.Struct(r)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search     string   `query:"search"`
	Roles      []string `query:"role"`
	IsActive   *bool    `query:"is_active"`
	GroupIDs   []int    `query:"group_id"`
	FacultyIDs []int    `query:"faculty_id"`
	IDs        []int    `query:"-"`
	Limit      int      `query:"-"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.GroupIDs == nil &&
		qf.FacultyIDs == nil && qf.IDs == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// Match applies the filter to a single user; repositories without a query engine rely on it.
func (qf QueryFilter) Match(u User) bool {
	if qf.Search != "" && !containsFold(u.Name, qf.Search) && !containsFold(u.Email, qf.Search) &&
		!containsFold(u.StudentCode, qf.Search) {
		return false
	}
	if len(qf.Roles) > 0 && !u.HasAnyRole(qf.Roles...) {
		return false
	}
	if qf.IsActive != nil && u.IsActive != *qf.IsActive {
		return false
	}
	if qf.GroupIDs != nil && !core.ContainsInt(qf.GroupIDs, u.GroupID) {
		return false
	}
	if qf.FacultyIDs != nil && !core.ContainsInt(qf.FacultyIDs, u.FacultyID) {
		return false
	}
	if qf.IDs != nil && !core.ContainsInt(qf.IDs, u.ID) {
		return false
	}
	return true
}

// StudentRow is one spreadsheet row of a students import.
type StudentRow struct {
	Row            int
	Name           string
	Email          string
	Phone          string
	StudentCode    string
	GroupName      string
	EnrollmentYear int
	Password       string
}
