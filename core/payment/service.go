package payment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academics"
	"github.com/trezcool/campus/core/user"
)

var ErrNoFaculty = core.NewPermissionError("no faculty is attached to your account")

type (
	Repository interface {
		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		// QueryPayments returns payments newest first.
		QueryPayments(ctx context.Context, filter QueryFilter) ([]Payment, error)
	}

	Users interface {
		GetByID(ctx context.Context, id int) (user.User, error)
		GetByStudentCode(ctx context.Context, code string) (user.User, error)
		Query(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error)
	}

	Groups interface {
		GetGroup(ctx context.Context, id int) (academics.Group, error)
		QueryGroups(ctx context.Context, filter academics.GroupFilter) ([]academics.Group, error)
	}

	Service struct {
		repo     Repository
		users    Users
		groups   Groups
		validate *validator.Validate
		now      func() time.Time
	}
)

func NewService(repo Repository, users Users, groups Groups, validate *validator.Validate) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		groups:   groups,
		validate: validate,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func canRecord(actor user.User) bool {
	return actor.IsAccounting() || actor.IsAdmin()
}

// scopeGroups returns the groups whose students' payments the actor may see, after applying `f`.
func (svc *Service) scopeGroups(ctx context.Context, actor user.User, f ListFilter) (map[int]academics.Group, error) {
	var gf academics.GroupFilter
	switch {
	case actor.IsAccounting(), actor.IsAdmin():
		gf.FacultyID = f.FacultyID
	case actor.IsDean():
		if actor.FacultyID == 0 {
			return nil, ErrNoFaculty
		}
		gf.FacultyID = actor.FacultyID
	default:
		return nil, core.ErrPermissionDenied
	}

	groups, err := svc.groups.QueryGroups(ctx, gf)
	if err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	byID := make(map[int]academics.Group, len(groups))
	for _, g := range groups {
		if (f.GroupID != 0 && g.ID != f.GroupID) || (f.CourseYear != 0 && g.CourseYear != f.CourseYear) {
			continue
		}
		byID[g.ID] = g
	}
	return byID, nil
}

// rows joins payments with their students and groups.
func (svc *Service) rows(ctx context.Context, students []user.User, groups map[int]academics.Group) ([]Row, error) {
	byID := make(map[int]user.User, len(students))
	ids := make([]int, 0, len(students))
	for _, s := range students {
		byID[s.ID] = s
		ids = append(ids, s.ID)
	}
	payments, err := svc.repo.QueryPayments(ctx, QueryFilter{StudentIDs: ids})
	if err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}

	rows := make([]Row, 0, len(payments))
	for _, p := range payments {
		st := byID[p.StudentID]
		g := groups[st.GroupID]
		rows = append(rows, Row{
			Payment:     p,
			StudentName: st.Name,
			StudentCode: st.StudentCode,
			GroupID:     g.ID,
			GroupName:   g.Name,
			CourseYear:  g.CourseYear,
			Percent:     p.Percentage(),
		})
	}
	return rows, nil
}

// List returns the payments visible to the actor: every student's for accounting and admins,
// their faculty's for deans, their own for students.
func (svc *Service) List(ctx context.Context, actor user.User, f ListFilter) ([]Row, error) {
	f.Search = core.CleanString(f.Search)
	if actor.IsStudent() {
		var groups map[int]academics.Group
		if actor.GroupID != 0 {
			g, err := svc.groups.GetGroup(ctx, actor.GroupID)
			if err != nil && !core.IsNotFound(err) {
				return nil, errors.Wrap(err, "finding group")
			}
			groups = map[int]academics.Group{g.ID: g}
		}
		return svc.rows(ctx, []user.User{actor}, groups)
	}

	groups, err := svc.scopeGroups(ctx, actor, f)
	if err != nil {
		return nil, err
	}
	groupIDs := make([]int, 0, len(groups))
	for id := range groups {
		groupIDs = append(groupIDs, id)
	}
	students, err := svc.users.Query(ctx, &user.QueryFilter{
		Search:   f.Search,
		Roles:    []string{user.RoleStudent},
		GroupIDs: groupIDs,
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return svc.rows(ctx, students, groups)
}

// Stats sums contracts and payments and counts payments per course year and completion bucket.
func (svc *Service) Stats(ctx context.Context, actor user.User) (Stats, error) {
	if actor.IsStudent() {
		return Stats{}, core.ErrPermissionDenied
	}
	rows, err := svc.List(ctx, actor, ListFilter{})
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(rows), nil
}

// ComputeStats aggregates payment rows. Rows of students without a group are left out of the course buckets.
func ComputeStats(rows []Row) Stats {
	var st Stats
	byCourse := map[int]*CourseStats{}
	for _, r := range rows {
		st.TotalContract += r.ContractAmount
		st.TotalPaid += r.PaidAmount
		if r.GroupID == 0 {
			continue
		}
		cs, ok := byCourse[r.CourseYear]
		if !ok {
			cs = newCourseStats(r.CourseYear)
			byCourse[r.CourseYear] = cs
		}
		cs.Buckets[BucketOf(r.Percent)]++
		cs.Total++
	}

	st.ByCourse = make([]CourseStats, 0, len(byCourse))
	for _, cs := range byCourse {
		st.ByCourse = append(st.ByCourse, *cs)
	}
	sort.Slice(st.ByCourse, func(i, j int) bool { return st.ByCourse[i].CourseYear < st.ByCourse[j].CourseYear })
	return st
}

// canSeeStudent applies the role rules of per-student records.
func (svc *Service) canSeeStudent(ctx context.Context, actor, student user.User) (bool, error) {
	switch {
	case actor.IsAccounting(), actor.IsAdmin():
		return true, nil
	case actor.IsStudent():
		return actor.ID == student.ID, nil
	case actor.IsDean():
		if actor.FacultyID == 0 || student.GroupID == 0 {
			return false, nil
		}
		g, err := svc.groups.GetGroup(ctx, student.GroupID)
		if err != nil {
			if core.IsNotFound(err) {
				return false, nil
			}
			return false, errors.Wrap(err, "finding group")
		}
		return g.FacultyID == actor.FacultyID, nil
	}
	return false, nil
}

// StudentSummary returns a student's payments. The contract is the latest payment's; paid sums them all.
func (svc *Service) StudentSummary(ctx context.Context, actor user.User, studentID int) (StudentSummary, error) {
	student, err := svc.users.GetByID(ctx, studentID)
	if err != nil {
		return StudentSummary{}, err
	}
	ok, err := svc.canSeeStudent(ctx, actor, student)
	if err != nil {
		return StudentSummary{}, err
	}
	if !ok {
		return StudentSummary{}, core.ErrPermissionDenied
	}

	payments, err := svc.repo.QueryPayments(ctx, QueryFilter{StudentIDs: []int{student.ID}})
	if err != nil {
		return StudentSummary{}, errors.Wrap(err, "querying payments")
	}
	sum := StudentSummary{
		StudentID:   student.ID,
		StudentName: student.Name,
		StudentCode: student.StudentCode,
		Payments:    payments,
	}
	if len(payments) > 0 {
		sum.TotalContract = payments[0].ContractAmount
		for _, p := range payments {
			sum.TotalPaid += p.PaidAmount
		}
	}
	sum.Remaining = sum.TotalContract - sum.TotalPaid
	sum.Percentage = percentage(sum.TotalPaid, sum.TotalContract)
	return sum, nil
}

func (svc *Service) parseDate(s string) (time.Time, error) {
	if s == "" {
		return svc.now().Truncate(24 * time.Hour), nil
	}
	return time.Parse(dateLayout, s)
}

// Create records a payment; accounting and admins only.
func (svc *Service) Create(ctx context.Context, actor user.User, form Form) (Payment, error) {
	if !canRecord(actor) {
		return Payment{}, core.ErrPermissionDenied
	}
	if err := form.Validate(svc.validate); err != nil {
		return Payment{}, err
	}
	student, err := svc.users.GetByID(ctx, form.StudentID)
	if err != nil {
		if core.IsNotFound(err) {
			return Payment{}, core.NewFieldError("student_id", "student not found")
		}
		return Payment{}, err
	}
	if !student.IsStudent() {
		return Payment{}, core.NewFieldError("student_id", "payments can only be recorded for students")
	}
	date, err := svc.parseDate(form.PaymentDate)
	if err != nil {
		return Payment{}, core.NewFieldError("payment_date", "payment_date must be formatted as YYYY-MM-DD")
	}

	p, err := svc.repo.CreatePayment(ctx, Payment{
		StudentID:      student.ID,
		ContractAmount: form.ContractAmount,
		PaidAmount:     form.PaidAmount,
		PaymentDate:    date,
		AcademicYear:   form.AcademicYear,
		Note:           form.Note,
		CreatedAt:      svc.now(),
	})
	return p, errors.Wrap(err, "creating payment")
}

// Import records one payment per valid row; students are matched by student code.
// Invalid rows are reported and skipped.
func (svc *Service) Import(ctx context.Context, actor user.User, rows []ImportRow) (core.ImportResult, error) {
	res := core.NewImportResult()
	if !canRecord(actor) {
		return res, core.ErrPermissionDenied
	}
	for _, row := range rows {
		form := Form{
			ContractAmount: row.ContractAmount,
			PaidAmount:     row.PaidAmount,
			PaymentDate:    row.PaymentDate,
			AcademicYear:   row.AcademicYear,
			Note:           row.Note,
		}
		student, err := svc.users.GetByStudentCode(ctx, row.StudentCode)
		if err != nil {
			if core.IsNotFound(err) {
				res.Errors = append(res.Errors, fmt.Sprintf("row %d: student with code %q not found", row.Row, row.StudentCode))
				continue
			}
			return res, err
		}
		form.StudentID = student.ID

		if _, err = svc.Create(ctx, actor, form); err != nil {
			var vErr validator.ValidationErrors
			var cErr *core.ValidationError
			switch {
			case errors.As(err, &vErr):
				res.Errors = append(res.Errors, fmt.Sprintf("row %d: invalid %s", row.Row, vErr[0].Field()))
				continue
			case errors.As(err, &cErr):
				res.Errors = append(res.Errors, fmt.Sprintf("row %d: %s", row.Row, cErr.Error()))
				continue
			}
			return res, err
		}
		res.ImportedCount++
	}
	res.Success = res.ImportedCount > 0 || len(res.Errors) == 0
	return res, nil
}
