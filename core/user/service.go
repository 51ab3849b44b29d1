package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

var (
	// errors
	ErrNotFound                = core.NewNotFoundError("user not found")
	ErrEmailExists             = errors.New("a user with this email already exists")
	ErrStudentCodeExists       = errors.New("a user with this student code already exists")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrAccountDeactivated      = core.NewPermissionError("account deactivated")
	ErrPasswordResetNotAllowed = core.NewPermissionError("password reset by email is not available for this account; contact an administrator")
	ErrSelfAction              = core.NewPermissionError("you cannot perform this action on your own account")
	ErrInvalidResetLink        = core.NewValidationError(errors.New("the password reset link is invalid or has expired"))

	importPwdMinLen = 6
)

type (
	Repository interface {
		// CheckUniqueness returns ErrEmailExists or ErrStudentCodeExists when another user (not excludedID) holds them.
		CheckUniqueness(ctx context.Context, email, studentCode string, excludedID int) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Email or User.StudentCode.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...int) (int, error)
	}

	// GroupLookup resolves the academic references of a user.
	GroupLookup interface {
		GroupFaculty(ctx context.Context, groupID int) (int, error)
		GroupIDByName(ctx context.Context, facultyID int, name string) (int, error)
		FacultyExists(ctx context.Context, facultyID int) (bool, error)
	}

	Service struct {
		repo     Repository
		groups   GroupLookup
		mailSvc  core.EmailService
		tokens   tokenGenerator
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	groups GroupLookup,
	mailSvc core.EmailService,
	validate *validator.Validate,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		groups:   groups,
		mailSvc:  mailSvc,
		tokens:   newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
		validate: validate,
		logger:   logger,
	}
}

func (svc *Service) checkUniqueness(ctx context.Context, email, studentCode string, excludedID int) error {
	if err := svc.repo.CheckUniqueness(ctx, email, studentCode, excludedID); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrEmailExists:
			field = "email"
		case ErrStudentCodeExists:
			field = "student_code"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// checkReferences makes sure group and faculty references fit the role.
func (svc *Service) checkReferences(ctx context.Context, usr User) error {
	if usr.GroupID != 0 {
		if !usr.IsStudent() {
			return core.NewFieldError("group_id", "only students can belong to a group")
		}
		if _, err := svc.groups.GroupFaculty(ctx, usr.GroupID); err != nil {
			if core.IsNotFound(err) {
				return core.NewFieldError("group_id", "group not found")
			}
			return errors.Wrap(err, "finding group")
		}
	}
	if usr.FacultyID != 0 {
		if !usr.IsDean() {
			return core.NewFieldError("faculty_id", "only deans are attached to a faculty")
		}
		ok, err := svc.groups.FacultyExists(ctx, usr.FacultyID)
		if err != nil {
			return errors.Wrap(err, "finding faculty")
		}
		if !ok {
			return core.NewFieldError("faculty_id", "faculty not found")
		}
	}
	return nil
}

// Create adds a user. Admins may create any role; deans may only create students of their own faculty.
func (svc *Service) Create(ctx context.Context, actor User, nu NewUser) (User, error) {
	switch {
	case actor.IsAdmin():
	case actor.IsDean():
		if nu.Role != RoleStudent || nu.GroupID == 0 {
			return User{}, core.ErrPermissionDenied
		}
		facultyID, err := svc.groups.GroupFaculty(ctx, nu.GroupID)
		if err != nil && !core.IsNotFound(err) {
			return User{}, errors.Wrap(err, "finding group")
		}
		if facultyID == 0 || facultyID != actor.FacultyID {
			return User{}, core.ErrPermissionDenied
		}
	default:
		return User{}, core.ErrPermissionDenied
	}

	now := time.Now().UTC()
	usr := User{
		Name:           nu.Name,
		Email:          nu.Email,
		Phone:          nu.Phone,
		Role:           nu.Role,
		IsActive:       true,
		GroupID:        nu.GroupID,
		FacultyID:      nu.FacultyID,
		StudentCode:    nu.StudentCode,
		EnrollmentYear: nu.EnrollmentYear,
		Department:     nu.Department,
		Position:       nu.Position,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.create(ctx, usr, nu.Password)
}

func (svc *Service) create(ctx context.Context, usr User, pwd string) (User, error) {
	if err := svc.checkUniqueness(ctx, usr.Email, usr.StudentCode, 0); err != nil {
		return User{}, err
	}
	if err := svc.checkReferences(ctx, usr); err != nil {
		return User{}, err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	return usr, errors.Wrap(err, "creating user")
}

// Register is the public sign-up: it always creates an active student.
func (svc *Service) Register(ctx context.Context, reg Registration) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      reg.Name,
		Email:     reg.Email,
		Phone:     reg.Phone,
		Role:      RoleStudent,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.create(ctx, usr, reg.Password)
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// GetByStudentCode finds the student holding exactly `code`.
func (svc *Service) GetByStudentCode(ctx context.Context, code string) (User, error) {
	code = core.CleanString(code)
	if code == "" {
		return User{}, ErrNotFound
	}
	users, err := svc.repo.QueryUsers(ctx, &QueryFilter{Search: code, Roles: []string{RoleStudent}}, nil)
	if err != nil {
		return User{}, errors.Wrap(err, "querying users")
	}
	for _, u := range users {
		if u.StudentCode == code {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

// Students lists the students of the given groups.
func (svc *Service) Students(ctx context.Context, groupIDs []int, search string) ([]User, error) {
	filter := &QueryFilter{Search: search, Roles: []string{RoleStudent}, GroupIDs: groupIDs}
	if groupIDs == nil {
		filter.GroupIDs = []int{}
	}
	return svc.repo.QueryUsers(ctx, filter, []core.DBOrdering{{Field: "name", Ascending: true}})
}

func (svc *Service) Update(ctx context.Context, id int, uu UpdateUser) (User, error) {
	orig, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr := uu.apply(orig)
	if usr.Email != orig.Email || usr.StudentCode != orig.StudentCode {
		if err = svc.checkUniqueness(ctx, usr.Email, usr.StudentCode, usr.ID); err != nil {
			return User{}, err
		}
	}
	// references are dropped when the role no longer carries them
	if !usr.IsStudent() {
		usr.GroupID = 0
	}
	if !usr.IsDean() {
		usr.FacultyID = 0
	}
	if err = svc.checkReferences(ctx, usr); err != nil {
		return User{}, err
	}
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

// ToggleActive flips the active flag of a user other than the actor.
func (svc *Service) ToggleActive(ctx context.Context, actor User, id int) (User, error) {
	if actor.ID == id {
		return User{}, ErrSelfAction
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.IsActive = !usr.IsActive
	usr.UpdatedAt = time.Now().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "toggling user")
}

// Delete removes users; the actor cannot delete themselves.
func (svc *Service) Delete(ctx context.Context, actor User, ids ...int) error {
	if core.ContainsInt(ids, actor.ID) {
		return ErrSelfAction
	}
	_, err := svc.repo.DeleteUsersByID(ctx, ids...)
	return errors.Wrap(err, "deleting users")
}

// Authenticate checks credentials and stamps the last login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	usr.LastLogin = time.Now().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting last login")
}

// RequestPasswordReset emails a reset link to an active user allowed to reset by email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrAccountDeactivated
	}
	if !usr.CanResetPassword() {
		return ErrPasswordResetNotAllowed
	}
	token, err := svc.tokens.MakeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":   usr.Name,
			"UID":    EncodeUID(usr),
			"Token":  token,
			"Expiry": svc.tokens.timeout.String(),
		},
	})
	return nil
}

func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	id, err := decodeUID(data.UID)
	if err != nil {
		return ErrInvalidResetLink
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return ErrInvalidResetLink
		}
		return err
	}
	if err = svc.tokens.verifyToken(usr, data.Token); err != nil {
		return ErrInvalidResetLink
	}
	if err = validatePasswordStandalone(svc.validate, data.Password, usr); err != nil {
		return err
	}
	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "resetting password")
}

// SetPassword force-sets a password; used by the admin CLI.
func (svc *Service) SetPassword(ctx context.Context, email, pwd string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "setting password")
}

// ImportStudents creates one student per valid row in groups of the given faculty.
// Invalid rows are reported and skipped.
func (svc *Service) ImportStudents(ctx context.Context, facultyID int, rows []StudentRow) (core.ImportResult, error) {
	res := core.NewImportResult()
	for _, row := range rows {
		usr, pwd, msg, err := svc.studentFromRow(ctx, facultyID, row)
		if err != nil {
			return res, err
		}
		if msg != "" {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %s", row.Row, msg))
			continue
		}
		if _, err = svc.create(ctx, usr, pwd); err != nil {
			var vErr *core.ValidationError
			if errors.As(err, &vErr) {
				res.Errors = append(res.Errors, fmt.Sprintf("row %d: %s", row.Row, vErr.Error()))
				continue
			}
			return res, err
		}
		res.ImportedCount++
	}
	res.Success = res.ImportedCount > 0 || len(res.Errors) == 0
	return res, nil
}

func (svc *Service) studentFromRow(ctx context.Context, facultyID int, row StudentRow) (User, string, string, error) {
	name := core.CleanString(row.Name)
	email := core.CleanString(row.Email, true /* lower */)
	code := core.CleanString(row.StudentCode)
	if name == "" || email == "" {
		return User{}, "", "name and email are required", nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, "", "invalid email", nil
	}

	var groupID int
	if groupName := core.CleanString(row.GroupName); groupName != "" {
		id, err := svc.groups.GroupIDByName(ctx, facultyID, groupName)
		if err != nil {
			if core.IsNotFound(err) {
				return User{}, "", fmt.Sprintf("group %q not found", groupName), nil
			}
			return User{}, "", "", errors.Wrap(err, "finding group")
		}
		groupID = id
	}

	pwd := row.Password
	if pwd == "" {
		pwd = code
	}
	if len([]rune(pwd)) < importPwdMinLen {
		return User{}, "", fmt.Sprintf("password must contain at least %d characters", importPwdMinLen), nil
	}

	now := time.Now().UTC()
	return User{
		Name:           name,
		Email:          email,
		Phone:          core.CleanString(row.Phone),
		Role:           RoleStudent,
		IsActive:       true,
		GroupID:        groupID,
		StudentCode:    code,
		EnrollmentYear: row.EnrollmentYear,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, pwd, "", nil
}
