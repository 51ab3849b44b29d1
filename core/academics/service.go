package academics

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

var (
	// errors
	ErrFacultyNotFound    = core.NewNotFoundError("faculty not found")
	ErrGroupNotFound      = core.NewNotFoundError("group not found")
	ErrSubjectNotFound    = core.NewNotFoundError("subject not found")
	ErrAssignmentNotFound = core.NewNotFoundError("teacher assignment not found")
	ErrScheduleNotFound   = core.NewNotFoundError("schedule entry not found")
)

type (
	Repository interface {
		CreateFaculty(ctx context.Context, f Faculty) (Faculty, error)
		UpdateFaculty(ctx context.Context, f Faculty) (Faculty, error)
		DeleteFaculty(ctx context.Context, id int) error
		GetFaculty(ctx context.Context, id int) (Faculty, error)
		QueryFaculties(ctx context.Context) ([]Faculty, error)

		CreateGroup(ctx context.Context, g Group) (Group, error)
		UpdateGroup(ctx context.Context, g Group) (Group, error)
		DeleteGroup(ctx context.Context, id int) error
		GetGroup(ctx context.Context, id int) (Group, error)
		QueryGroups(ctx context.Context, filter GroupFilter) ([]Group, error)

		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		UpdateSubject(ctx context.Context, s Subject) (Subject, error)
		DeleteSubject(ctx context.Context, id int) error
		GetSubject(ctx context.Context, id int) (Subject, error)
		QuerySubjects(ctx context.Context, filter SubjectFilter) ([]Subject, error)

		CreateTeacherAssignment(ctx context.Context, ta TeacherAssignment) (TeacherAssignment, error)
		DeleteTeacherAssignment(ctx context.Context, id int) error
		GetTeacherAssignment(ctx context.Context, id int) (TeacherAssignment, error)
		QueryTeacherAssignments(ctx context.Context, filter AssignmentFilter) ([]TeacherAssignment, error)

		CreateScheduleEntry(ctx context.Context, se ScheduleEntry) (ScheduleEntry, error)
		DeleteScheduleEntry(ctx context.Context, id int) error
		GetScheduleEntry(ctx context.Context, id int) (ScheduleEntry, error)
		QuerySchedule(ctx context.Context, filter ScheduleFilter) ([]ScheduleEntry, error)
	}

	// UserFinder is the part of user.Service academics needs.
	UserFinder interface {
		GetByID(ctx context.Context, id int) (user.User, error)
	}

	Service struct {
		repo  Repository
		users UserFinder
	}
)

func NewService(repo Repository, users UserFinder) *Service {
	return &Service{repo: repo, users: users}
}

// SetUserFinder breaks the construction cycle with user.Service, which looks groups up through this Service.
func (svc *Service) SetUserFinder(users UserFinder) {
	svc.users = users
}

// canManageFaculty: admins manage every faculty, deans only their own.
func canManageFaculty(actor user.User, facultyID int) bool {
	return actor.IsAdmin() || (actor.IsDean() && actor.FacultyID != 0 && actor.FacultyID == facultyID)
}

// Faculties

func (svc *Service) CreateFaculty(ctx context.Context, actor user.User, form FacultyForm) (Faculty, error) {
	if !actor.IsAdmin() {
		return Faculty{}, core.ErrPermissionDenied
	}
	if err := svc.checkFacultyCode(ctx, form.Code, 0); err != nil {
		return Faculty{}, err
	}
	f, err := svc.repo.CreateFaculty(ctx, Faculty{
		Name:        form.Name,
		Code:        form.Code,
		Description: form.Description,
		CreatedAt:   time.Now().UTC(),
	})
	return f, errors.Wrap(err, "creating faculty")
}

func (svc *Service) UpdateFaculty(ctx context.Context, actor user.User, id int, form FacultyForm) (Faculty, error) {
	if !actor.IsAdmin() {
		return Faculty{}, core.ErrPermissionDenied
	}
	f, err := svc.repo.GetFaculty(ctx, id)
	if err != nil {
		return Faculty{}, err
	}
	if err = svc.checkFacultyCode(ctx, form.Code, id); err != nil {
		return Faculty{}, err
	}
	f.Name, f.Code, f.Description = form.Name, form.Code, form.Description
	f, err = svc.repo.UpdateFaculty(ctx, f)
	return f, errors.Wrap(err, "updating faculty")
}

func (svc *Service) checkFacultyCode(ctx context.Context, code string, excludedID int) error {
	faculties, err := svc.repo.QueryFaculties(ctx)
	if err != nil {
		return errors.Wrap(err, "querying faculties")
	}
	for _, f := range faculties {
		if f.Code == code && f.ID != excludedID {
			return core.NewFieldError("code", "a faculty with this code already exists")
		}
	}
	return nil
}

func (svc *Service) DeleteFaculty(ctx context.Context, actor user.User, id int) error {
	if !actor.IsAdmin() {
		return core.ErrPermissionDenied
	}
	if _, err := svc.repo.GetFaculty(ctx, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteFaculty(ctx, id), "deleting faculty")
}

func (svc *Service) GetFaculty(ctx context.Context, id int) (Faculty, error) {
	return svc.repo.GetFaculty(ctx, id)
}

func (svc *Service) Faculties(ctx context.Context) ([]Faculty, error) {
	return svc.repo.QueryFaculties(ctx)
}

// FacultyExists implements user.GroupLookup.
func (svc *Service) FacultyExists(ctx context.Context, id int) (bool, error) {
	if _, err := svc.repo.GetFaculty(ctx, id); err != nil {
		if core.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Groups

func (svc *Service) CreateGroup(ctx context.Context, actor user.User, form GroupForm) (Group, error) {
	if actor.IsDean() {
		form.FacultyID = actor.FacultyID
	}
	if !canManageFaculty(actor, form.FacultyID) {
		return Group{}, core.ErrPermissionDenied
	}
	if form.FacultyID == 0 {
		return Group{}, core.NewFieldError("faculty_id", "this field is required")
	}
	if _, err := svc.repo.GetFaculty(ctx, form.FacultyID); err != nil {
		return Group{}, err
	}
	if err := svc.checkGroupName(ctx, form.FacultyID, form.Name, 0); err != nil {
		return Group{}, err
	}
	g, err := svc.repo.CreateGroup(ctx, Group{
		Name:          form.Name,
		FacultyID:     form.FacultyID,
		CourseYear:    form.CourseYear,
		EducationType: form.EducationType,
		CreatedAt:     time.Now().UTC(),
	})
	return g, errors.Wrap(err, "creating group")
}

func (svc *Service) UpdateGroup(ctx context.Context, actor user.User, id int, form GroupForm) (Group, error) {
	g, err := svc.repo.GetGroup(ctx, id)
	if err != nil {
		return Group{}, err
	}
	if !canManageFaculty(actor, g.FacultyID) {
		return Group{}, core.ErrPermissionDenied
	}
	if err = svc.checkGroupName(ctx, g.FacultyID, form.Name, g.ID); err != nil {
		return Group{}, err
	}
	g.Name, g.CourseYear, g.EducationType = form.Name, form.CourseYear, form.EducationType
	g, err = svc.repo.UpdateGroup(ctx, g)
	return g, errors.Wrap(err, "updating group")
}

func (svc *Service) checkGroupName(ctx context.Context, facultyID int, name string, excludedID int) error {
	groups, err := svc.repo.QueryGroups(ctx, GroupFilter{FacultyID: facultyID, Name: name})
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	for _, g := range groups {
		if g.ID != excludedID {
			return core.NewFieldError("name", "a group with this name already exists in the faculty")
		}
	}
	return nil
}

func (svc *Service) DeleteGroup(ctx context.Context, actor user.User, id int) error {
	g, err := svc.repo.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if !canManageFaculty(actor, g.FacultyID) {
		return core.ErrPermissionDenied
	}
	return errors.Wrap(svc.repo.DeleteGroup(ctx, id), "deleting group")
}

func (svc *Service) GetGroup(ctx context.Context, id int) (Group, error) {
	return svc.repo.GetGroup(ctx, id)
}

func (svc *Service) QueryGroups(ctx context.Context, filter GroupFilter) ([]Group, error) {
	return svc.repo.QueryGroups(ctx, filter)
}

// GroupsFor lists the groups visible to the actor.
func (svc *Service) GroupsFor(ctx context.Context, actor user.User) ([]Group, error) {
	switch {
	case actor.IsAdmin(), actor.IsAccounting():
		return svc.repo.QueryGroups(ctx, GroupFilter{})
	case actor.IsDean():
		if actor.FacultyID == 0 {
			return []Group{}, nil
		}
		return svc.repo.QueryGroups(ctx, GroupFilter{FacultyID: actor.FacultyID})
	case actor.IsTeacher():
		ids, err := svc.TaughtGroupIDs(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		return svc.repo.QueryGroups(ctx, GroupFilter{IDs: ids})
	case actor.IsStudent():
		if actor.GroupID == 0 {
			return []Group{}, nil
		}
		return svc.repo.QueryGroups(ctx, GroupFilter{IDs: []int{actor.GroupID}})
	}
	return []Group{}, nil
}

// FacultyGroupIDs returns the IDs of the groups of a faculty.
func (svc *Service) FacultyGroupIDs(ctx context.Context, facultyID int) ([]int, error) {
	if facultyID == 0 {
		return []int{}, nil
	}
	groups, err := svc.repo.QueryGroups(ctx, GroupFilter{FacultyID: facultyID})
	if err != nil {
		return nil, errors.Wrap(err, "querying faculty groups")
	}
	ids := make([]int, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	return ids, nil
}

// GroupFaculty implements user.GroupLookup.
func (svc *Service) GroupFaculty(ctx context.Context, groupID int) (int, error) {
	g, err := svc.repo.GetGroup(ctx, groupID)
	if err != nil {
		return 0, err
	}
	return g.FacultyID, nil
}

// GroupIDByName implements user.GroupLookup.
func (svc *Service) GroupIDByName(ctx context.Context, facultyID int, name string) (int, error) {
	groups, err := svc.repo.QueryGroups(ctx, GroupFilter{FacultyID: facultyID, Name: upper.String(core.CleanString(name))})
	if err != nil {
		return 0, errors.Wrap(err, "querying groups")
	}
	if len(groups) == 0 {
		return 0, ErrGroupNotFound
	}
	return groups[0].ID, nil
}

// Subjects

func (svc *Service) CreateSubject(ctx context.Context, actor user.User, form SubjectForm) (Subject, error) {
	if !actor.IsAdmin() {
		return Subject{}, core.ErrPermissionDenied
	}
	if _, err := svc.repo.GetFaculty(ctx, form.FacultyID); err != nil {
		return Subject{}, err
	}
	if err := svc.checkSubjectCode(ctx, form.Code, 0); err != nil {
		return Subject{}, err
	}
	s, err := svc.repo.CreateSubject(ctx, Subject{
		Name:        form.Name,
		Code:        form.Code,
		FacultyID:   form.FacultyID,
		Credits:     form.Credits,
		Description: form.Description,
		CreatedAt:   time.Now().UTC(),
	})
	return s, errors.Wrap(err, "creating subject")
}

func (svc *Service) UpdateSubject(ctx context.Context, actor user.User, id int, form SubjectForm) (Subject, error) {
	if !actor.IsAdmin() {
		return Subject{}, core.ErrPermissionDenied
	}
	s, err := svc.repo.GetSubject(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	if _, err = svc.repo.GetFaculty(ctx, form.FacultyID); err != nil {
		return Subject{}, err
	}
	if err = svc.checkSubjectCode(ctx, form.Code, id); err != nil {
		return Subject{}, err
	}
	s.Name, s.Code, s.FacultyID, s.Credits, s.Description = form.Name, form.Code, form.FacultyID, form.Credits, form.Description
	s, err = svc.repo.UpdateSubject(ctx, s)
	return s, errors.Wrap(err, "updating subject")
}

func (svc *Service) checkSubjectCode(ctx context.Context, code string, excludedID int) error {
	subjects, err := svc.repo.QuerySubjects(ctx, SubjectFilter{Code: code})
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	for _, s := range subjects {
		if s.ID != excludedID {
			return core.NewFieldError("code", "a subject with this code already exists")
		}
	}
	return nil
}

func (svc *Service) DeleteSubject(ctx context.Context, actor user.User, id int) error {
	if !actor.IsAdmin() {
		return core.ErrPermissionDenied
	}
	if _, err := svc.repo.GetSubject(ctx, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteSubject(ctx, id), "deleting subject")
}

func (svc *Service) GetSubject(ctx context.Context, id int) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

// SubjectsFor lists the subjects the actor takes part in.
func (svc *Service) SubjectsFor(ctx context.Context, actor user.User) ([]Subject, error) {
	var filter AssignmentFilter
	switch {
	case actor.IsAdmin(), actor.IsAccounting():
		return svc.repo.QuerySubjects(ctx, SubjectFilter{})
	case actor.IsDean():
		if actor.FacultyID == 0 {
			return []Subject{}, nil
		}
		return svc.repo.QuerySubjects(ctx, SubjectFilter{FacultyID: actor.FacultyID})
	case actor.IsTeacher():
		filter.TeacherID = actor.ID
	case actor.IsStudent():
		if actor.GroupID == 0 {
			return []Subject{}, nil
		}
		filter.GroupID = actor.GroupID
	default:
		return []Subject{}, nil
	}

	tas, err := svc.repo.QueryTeacherAssignments(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying teacher assignments")
	}
	ids := make([]int, 0, len(tas))
	for _, ta := range tas {
		ids = append(ids, ta.SubjectID)
	}
	return svc.repo.QuerySubjects(ctx, SubjectFilter{IDs: core.UniqueInts(ids)})
}

// Teacher assignments

func (svc *Service) AssignTeacher(ctx context.Context, actor user.User, form TeacherAssignmentForm) (TeacherAssignment, error) {
	if !(actor.IsAdmin() || actor.IsDean()) {
		return TeacherAssignment{}, core.ErrPermissionDenied
	}
	subject, err := svc.repo.GetSubject(ctx, form.SubjectID)
	if err != nil {
		return TeacherAssignment{}, err
	}
	group, err := svc.repo.GetGroup(ctx, form.GroupID)
	if err != nil {
		return TeacherAssignment{}, err
	}
	if !canManageFaculty(actor, subject.FacultyID) || !canManageFaculty(actor, group.FacultyID) {
		return TeacherAssignment{}, core.ErrPermissionDenied
	}
	teacher, err := svc.users.GetByID(ctx, form.TeacherID)
	if err != nil {
		if core.IsNotFound(err) {
			return TeacherAssignment{}, core.NewFieldError("teacher_id", "teacher not found")
		}
		return TeacherAssignment{}, errors.Wrap(err, "finding teacher")
	}
	if !teacher.IsTeacher() {
		return TeacherAssignment{}, core.NewFieldError("teacher_id", "user is not a teacher")
	}

	existing, err := svc.repo.QueryTeacherAssignments(ctx, AssignmentFilter{
		SubjectID:    form.SubjectID,
		GroupID:      form.GroupID,
		LessonType:   form.LessonType,
		AcademicYear: form.AcademicYear,
		Semester:     form.Semester,
	})
	if err != nil {
		return TeacherAssignment{}, errors.Wrap(err, "querying teacher assignments")
	}
	if len(existing) > 0 {
		return TeacherAssignment{}, core.NewValidationError(
			errors.New("a teacher is already assigned to this subject, group and lesson type for the term"))
	}

	ta, err := svc.repo.CreateTeacherAssignment(ctx, TeacherAssignment{
		TeacherID:    form.TeacherID,
		SubjectID:    form.SubjectID,
		GroupID:      form.GroupID,
		LessonType:   form.LessonType,
		AcademicYear: form.AcademicYear,
		Semester:     form.Semester,
		AssignedBy:   actor.ID,
		CreatedAt:    time.Now().UTC(),
	})
	return ta, errors.Wrap(err, "creating teacher assignment")
}

func (svc *Service) UnassignTeacher(ctx context.Context, actor user.User, id int) error {
	ta, err := svc.repo.GetTeacherAssignment(ctx, id)
	if err != nil {
		return err
	}
	group, err := svc.repo.GetGroup(ctx, ta.GroupID)
	if err != nil {
		return err
	}
	if !canManageFaculty(actor, group.FacultyID) {
		return core.ErrPermissionDenied
	}
	return errors.Wrap(svc.repo.DeleteTeacherAssignment(ctx, id), "deleting teacher assignment")
}

// TeacherAssignments lists bindings visible to the actor, narrowed by filter.
func (svc *Service) TeacherAssignments(ctx context.Context, actor user.User, filter AssignmentFilter) ([]TeacherAssignment, error) {
	switch {
	case actor.IsAdmin():
	case actor.IsDean():
		ids, err := svc.FacultyGroupIDs(ctx, actor.FacultyID)
		if err != nil {
			return nil, err
		}
		filter.GroupIDs = ids
	case actor.IsTeacher():
		filter.TeacherID = actor.ID
	default:
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.QueryTeacherAssignments(ctx, filter)
}

// QueryTeacherAssignments runs an unscoped query; it backs the access policies.
func (svc *Service) QueryTeacherAssignments(ctx context.Context, filter AssignmentFilter) ([]TeacherAssignment, error) {
	return svc.repo.QueryTeacherAssignments(ctx, filter)
}

// TaughtGroupIDs returns the groups a teacher is bound to.
func (svc *Service) TaughtGroupIDs(ctx context.Context, teacherID int) ([]int, error) {
	tas, err := svc.repo.QueryTeacherAssignments(ctx, AssignmentFilter{TeacherID: teacherID})
	if err != nil {
		return nil, errors.Wrap(err, "querying teacher assignments")
	}
	ids := make([]int, 0, len(tas))
	for _, ta := range tas {
		ids = append(ids, ta.GroupID)
	}
	return core.UniqueInts(ids), nil
}

// Schedule

func (svc *Service) CreateScheduleEntry(ctx context.Context, actor user.User, form ScheduleForm) (ScheduleEntry, error) {
	if form.EndTime <= form.StartTime {
		return ScheduleEntry{}, core.NewFieldError("end_time", "end time must be after start time")
	}
	group, err := svc.repo.GetGroup(ctx, form.GroupID)
	if err != nil {
		return ScheduleEntry{}, err
	}
	if !canManageFaculty(actor, group.FacultyID) {
		return ScheduleEntry{}, core.ErrPermissionDenied
	}
	if _, err = svc.repo.GetSubject(ctx, form.SubjectID); err != nil {
		return ScheduleEntry{}, err
	}
	if form.TeacherID != 0 {
		teacher, err := svc.users.GetByID(ctx, form.TeacherID)
		if err != nil || !teacher.IsTeacher() {
			return ScheduleEntry{}, core.NewFieldError("teacher_id", "teacher not found")
		}
	}
	se, err := svc.repo.CreateScheduleEntry(ctx, ScheduleEntry{
		SubjectID:  form.SubjectID,
		GroupID:    form.GroupID,
		TeacherID:  form.TeacherID,
		DayOfWeek:  form.DayOfWeek,
		StartTime:  form.StartTime,
		EndTime:    form.EndTime,
		LessonType: form.LessonType,
		Room:       form.Room,
		Link:       form.Link,
		CreatedAt:  time.Now().UTC(),
	})
	return se, errors.Wrap(err, "creating schedule entry")
}

func (svc *Service) DeleteScheduleEntry(ctx context.Context, actor user.User, id int) error {
	se, err := svc.repo.GetScheduleEntry(ctx, id)
	if err != nil {
		return err
	}
	group, err := svc.repo.GetGroup(ctx, se.GroupID)
	if err != nil {
		return err
	}
	if !canManageFaculty(actor, group.FacultyID) {
		return core.ErrPermissionDenied
	}
	return errors.Wrap(svc.repo.DeleteScheduleEntry(ctx, id), "deleting schedule entry")
}

// ScheduleFor lists the timetable relevant to the actor.
func (svc *Service) ScheduleFor(ctx context.Context, actor user.User) ([]ScheduleEntry, error) {
	var filter ScheduleFilter
	switch {
	case actor.IsAdmin():
	case actor.IsDean():
		ids, err := svc.FacultyGroupIDs(ctx, actor.FacultyID)
		if err != nil {
			return nil, err
		}
		filter.GroupIDs = ids
	case actor.IsTeacher():
		filter.TeacherID = actor.ID
	case actor.IsStudent():
		filter.GroupIDs = []int{actor.GroupID}
	default:
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.QuerySchedule(ctx, filter)
}
