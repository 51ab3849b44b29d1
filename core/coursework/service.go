package coursework

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academics"
	"github.com/trezcool/campus/core/access"
	"github.com/trezcool/campus/core/user"
)

var (
	// errors
	ErrAssignmentNotFound = core.NewNotFoundError("assignment not found")
	ErrSubmissionNotFound = core.NewNotFoundError("submission not found")
	ErrNotInGroup         = core.NewPermissionError("this assignment is not for your group")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignment(ctx context.Context, id int) (Assignment, error)
		QueryAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error)

		GetSubmission(ctx context.Context, id int) (Submission, error)
		GetStudentSubmission(ctx context.Context, assignmentID, studentID int) (Submission, error)
		GetSubmissionByFile(ctx context.Context, fileName string) (Submission, error)
		QuerySubmissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error)
		// SaveSubmission inserts or replaces the submission of (AssignmentID, StudentID)
		// and returns it with the previously stored file name, if any.
		SaveSubmission(ctx context.Context, s Submission) (Submission, string, error)
		// UpdateSubmission runs fn on the locked submission row and saves the result, atomically.
		UpdateSubmission(ctx context.Context, id int, fn func(s *Submission) error) (Submission, error)
	}

	// Academics is the part of academics.Service coursework needs.
	Academics interface {
		GetSubject(ctx context.Context, id int) (academics.Subject, error)
		GetGroup(ctx context.Context, id int) (academics.Group, error)
		QueryTeacherAssignments(ctx context.Context, filter academics.AssignmentFilter) ([]academics.TeacherAssignment, error)
		SubjectsFor(ctx context.Context, actor user.User) ([]academics.Subject, error)
	}

	Students interface {
		Students(ctx context.Context, groupIDs []int, search string) ([]user.User, error)
	}

	Service struct {
		repo     Repository
		acad     Academics
		students Students
		policy   *access.Evaluator
		files    core.FileStorage
		uploads  core.UploadsConfig
		markers  []string
		validate *validator.Validate
		now      func() time.Time
	}
)

func NewService(
	repo Repository,
	acad Academics,
	students Students,
	policy *access.Evaluator,
	files core.FileStorage,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	return &Service{
		repo:     repo,
		acad:     acad,
		students: students,
		policy:   policy,
		files:    files,
		uploads:  conf.Uploads,
		markers:  conf.Grades.PracticeTitleMarkers,
		validate: validate,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// resourceOf locates an assignment for access checks.
func (svc *Service) resourceOf(ctx context.Context, a Assignment) (access.Resource, error) {
	subject, err := svc.acad.GetSubject(ctx, a.SubjectID)
	if err != nil {
		return access.Resource{}, errors.Wrap(err, "finding subject")
	}
	return access.GroupResource(subject, a.GroupID), nil
}

// Assignments

func (svc *Service) CreateAssignment(ctx context.Context, actor user.User, subjectID int, form AssignmentForm) (Assignment, error) {
	if err := form.Validate(svc.validate); err != nil {
		return Assignment{}, err
	}
	subject, err := svc.acad.GetSubject(ctx, subjectID)
	if err != nil {
		return Assignment{}, err
	}
	if _, err = svc.acad.GetGroup(ctx, form.GroupID); err != nil {
		return Assignment{}, err
	}
	if err = access.Require(svc.policy.CanEdit(ctx, actor, access.GroupResource(subject, form.GroupID))); err != nil {
		return Assignment{}, err
	}

	a, err := svc.repo.CreateAssignment(ctx, Assignment{
		SubjectID:    subject.ID,
		GroupID:      form.GroupID,
		Title:        form.Title,
		Description:  form.Description,
		MaxScore:     form.MaxScore,
		DueDate:      form.DueDate,
		FileRequired: form.FileRequired,
		CreatedBy:    actor.ID,
		CreatedAt:    svc.now(),
	})
	return a, errors.Wrap(err, "creating assignment")
}

// SubjectAssignments lists a subject's assignments visible to the actor; students only see their group's.
func (svc *Service) SubjectAssignments(ctx context.Context, actor user.User, subject academics.Subject) ([]Assignment, error) {
	if err := access.Require(svc.policy.CanView(ctx, actor, access.SubjectResource(subject))); err != nil {
		return nil, err
	}
	filter := AssignmentFilter{SubjectID: subject.ID}
	if actor.IsStudent() {
		filter.GroupID = actor.GroupID
	}
	return svc.repo.QueryAssignments(ctx, filter)
}

// AssignmentDetail returns an assignment with the acting student's submission, or every submission for graders.
func (svc *Service) AssignmentDetail(ctx context.Context, actor user.User, id int) (AssignmentDetail, error) {
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return AssignmentDetail{}, err
	}
	res, err := svc.resourceOf(ctx, a)
	if err != nil {
		return AssignmentDetail{}, err
	}
	if err = access.Require(svc.policy.CanView(ctx, actor, res)); err != nil {
		return AssignmentDetail{}, err
	}

	detail := AssignmentDetail{Assignment: a}
	if actor.IsStudent() {
		s, err := svc.repo.GetStudentSubmission(ctx, a.ID, actor.ID)
		switch {
		case err == nil:
			detail.Submission = &s
		case !core.IsNotFound(err):
			return AssignmentDetail{}, errors.Wrap(err, "finding submission")
		}
		return detail, nil
	}

	if detail.CanGrade, err = svc.policy.CanGrade(ctx, actor, res); err != nil {
		return AssignmentDetail{}, errors.Wrap(err, "evaluating access policy")
	}
	if detail.Submissions, err = svc.repo.QuerySubmissions(ctx, SubmissionFilter{AssignmentIDs: []int{a.ID}}); err != nil {
		return AssignmentDetail{}, errors.Wrap(err, "querying submissions")
	}
	return detail, nil
}

// Submissions

func (svc *Service) checkSubmissionFile(up core.Upload) error {
	if svc.uploads.MaxSubmissionSize > 0 && up.Size > svc.uploads.MaxSubmissionSize {
		return core.NewFieldError("file", "the file is too large")
	}
	if !core.HasExt(up.Filename, svc.uploads.SubmissionExts) {
		return core.NewFieldError("file", "allowed file types: "+strings.Join(svc.uploads.SubmissionExts, ", "))
	}
	return nil
}

// Submit stores (or replaces) the acting student's work on an assignment of their group.
// A replaced file is removed after the new submission is saved.
func (svc *Service) Submit(ctx context.Context, actor user.User, assignmentID int, form SubmissionForm) (Submission, error) {
	if !actor.IsStudent() {
		return Submission{}, core.ErrPermissionDenied
	}
	a, err := svc.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return Submission{}, err
	}
	if actor.GroupID == 0 || actor.GroupID != a.GroupID {
		return Submission{}, ErrNotInGroup
	}

	form.Content = core.CleanString(form.Content)
	switch {
	case form.File == nil && a.FileRequired:
		return Submission{}, core.NewFieldError("file", "a file is required for this assignment")
	case form.File == nil && form.Content == "":
		return Submission{}, core.NewFieldError("content", "provide an answer or a file")
	case form.File != nil:
		if err = svc.checkSubmissionFile(*form.File); err != nil {
			return Submission{}, err
		}
	}

	s := Submission{
		AssignmentID: a.ID,
		StudentID:    actor.ID,
		Content:      form.Content,
		SubmittedAt:  svc.now(),
	}
	if form.File != nil {
		if s.FileName, err = svc.files.Save(core.DirSubmissions, *form.File); err != nil {
			return Submission{}, errors.Wrap(err, "saving submission file")
		}
	}

	fileName := s.FileName
	s, stale, err := svc.repo.SaveSubmission(ctx, s)
	if err != nil {
		if fileName != "" {
			svc.files.Remove(core.DirSubmissions, fileName)
		}
		return Submission{}, errors.Wrap(err, "saving submission")
	}
	if stale != "" && stale != fileName {
		svc.files.Remove(core.DirSubmissions, stale)
	}
	return s, nil
}

// Grade scores a submission; the score must lie within 0..max_score of its assignment.
func (svc *Service) Grade(ctx context.Context, actor user.User, submissionID int, form GradeForm) (Submission, error) {
	if err := svc.validate.Struct(form); err != nil {
		return Submission{}, err
	}
	s, err := svc.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	a, err := svc.repo.GetAssignment(ctx, s.AssignmentID)
	if err != nil {
		return Submission{}, err
	}
	res, err := svc.resourceOf(ctx, a)
	if err != nil {
		return Submission{}, err
	}
	if err = access.Require(svc.policy.CanGrade(ctx, actor, res)); err != nil {
		return Submission{}, err
	}
	if score := *form.Score; score < 0 || score > a.MaxScore {
		return Submission{}, core.NewFieldError("score", "score must be between 0 and the assignment's max score")
	}

	return svc.repo.UpdateSubmission(ctx, s.ID, func(s *Submission) error {
		now := svc.now()
		score := *form.Score
		s.Score = &score
		s.Feedback = core.CleanString(form.Feedback)
		s.GradedAt = &now
		s.GradedBy = actor.ID
		return nil
	})
}

// CanAccessSubmissionFile allows the owner of a submitted file and whoever may view its assignment's group (but students).
func (svc *Service) CanAccessSubmissionFile(ctx context.Context, actor user.User, fileName string) (bool, error) {
	s, err := svc.repo.GetSubmissionByFile(ctx, fileName)
	if err != nil {
		if core.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if s.StudentID == actor.ID {
		return true, nil
	}
	if actor.IsStudent() {
		return false, nil
	}
	a, err := svc.repo.GetAssignment(ctx, s.AssignmentID)
	if err != nil {
		return false, err
	}
	res, err := svc.resourceOf(ctx, a)
	if err != nil {
		return false, err
	}
	return svc.policy.CanView(ctx, actor, res)
}

// Grades

// groupSheet aggregates the grades of `studentIDs` in one (subject, group).
func (svc *Service) groupSheet(ctx context.Context, subjectID, groupID int, studentIDs []int) (Classifier, []Assignment, map[int]map[int]Submission, error) {
	tas, err := svc.acad.QueryTeacherAssignments(ctx, academics.AssignmentFilter{SubjectID: subjectID, GroupID: groupID})
	if err != nil {
		return Classifier{}, nil, nil, errors.Wrap(err, "querying teacher assignments")
	}
	assignments, err := svc.repo.QueryAssignments(ctx, AssignmentFilter{SubjectID: subjectID, GroupID: groupID})
	if err != nil {
		return Classifier{}, nil, nil, errors.Wrap(err, "querying assignments")
	}

	ids := make([]int, len(assignments))
	for i, a := range assignments {
		ids[i] = a.ID
	}
	subs, err := svc.repo.QuerySubmissions(ctx, SubmissionFilter{AssignmentIDs: ids, StudentIDs: studentIDs})
	if err != nil {
		return Classifier{}, nil, nil, errors.Wrap(err, "querying submissions")
	}
	byStudent := make(map[int]map[int]Submission, len(studentIDs))
	for _, s := range subs {
		if byStudent[s.StudentID] == nil {
			byStudent[s.StudentID] = map[int]Submission{}
		}
		byStudent[s.StudentID][s.AssignmentID] = s
	}
	return NewClassifier(tas, svc.markers), assignments, byStudent, nil
}

func (svc *Service) subjectGrades(ctx context.Context, subject academics.Subject, student user.User) (SubjectGrades, error) {
	c, assignments, subs, err := svc.groupSheet(ctx, subject.ID, student.GroupID, []int{student.ID})
	if err != nil {
		return SubjectGrades{}, err
	}
	own := subs[student.ID]
	sg := SubjectGrades{
		Subject:     subject,
		Grades:      Aggregate(c, assignments, own),
		Assignments: make([]GradedWork, len(assignments)),
	}
	for i, a := range assignments {
		gw := GradedWork{Assignment: a, Category: c.Classify(a)}
		if s, ok := own[a.ID]; ok {
			gw.Submission = &s
		}
		sg.Assignments[i] = gw
	}
	return sg, nil
}

// SubjectGrades returns the acting student's grades in a subject.
func (svc *Service) SubjectGrades(ctx context.Context, actor user.User, subjectID int) (SubjectGrades, error) {
	if !actor.IsStudent() {
		return SubjectGrades{}, core.ErrPermissionDenied
	}
	subject, err := svc.acad.GetSubject(ctx, subjectID)
	if err != nil {
		return SubjectGrades{}, err
	}
	if err = access.Require(svc.policy.CanView(ctx, actor, access.GroupResource(subject, actor.GroupID))); err != nil {
		return SubjectGrades{}, err
	}
	return svc.subjectGrades(ctx, subject, actor)
}

// GradeBook returns the acting student's grades in every subject of their group.
func (svc *Service) GradeBook(ctx context.Context, actor user.User) ([]SubjectGrades, error) {
	if !actor.IsStudent() {
		return nil, core.ErrPermissionDenied
	}
	subjects, err := svc.acad.SubjectsFor(ctx, actor)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	book := make([]SubjectGrades, 0, len(subjects))
	for _, subject := range subjects {
		sg, err := svc.subjectGrades(ctx, subject, actor)
		if err != nil {
			return nil, err
		}
		book = append(book, sg)
	}
	return book, nil
}

// GroupGrades returns the grade sheet of every student of a group in a subject.
func (svc *Service) GroupGrades(ctx context.Context, actor user.User, subjectID, groupID int) ([]StudentGrades, error) {
	if actor.IsStudent() {
		return nil, core.ErrPermissionDenied
	}
	subject, err := svc.acad.GetSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if _, err = svc.acad.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	if err = access.Require(svc.policy.CanView(ctx, actor, access.GroupResource(subject, groupID))); err != nil {
		return nil, err
	}

	students, err := svc.students.Students(ctx, []int{groupID}, "")
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	ids := make([]int, len(students))
	for i, st := range students {
		ids[i] = st.ID
	}
	c, assignments, subs, err := svc.groupSheet(ctx, subject.ID, groupID, ids)
	if err != nil {
		return nil, err
	}

	sheet := make([]StudentGrades, len(students))
	for i, st := range students {
		sheet[i] = StudentGrades{
			StudentID:   st.ID,
			Name:        st.Name,
			StudentCode: st.StudentCode,
			Grades:      Aggregate(c, assignments, subs[st.ID]),
		}
	}
	return sheet, nil
}
