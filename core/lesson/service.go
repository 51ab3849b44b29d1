package lesson

import (
	"context"
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
	ErrNotFound     = core.NewNotFoundError("lesson not found")
	ErrViewNotFound = core.NewNotFoundError("lesson has not been opened yet")
	ErrLocked       = core.NewPermissionError("this lesson is locked: complete the previous video lessons first")
	ErrNoVideo      = core.NewValidationError(errors.New("this lesson has no video"))
)

type (
	Repository interface {
		CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
		UpdateLesson(ctx context.Context, l Lesson) (Lesson, error)
		GetLesson(ctx context.Context, id int) (Lesson, error)
		// GetLessonByFile finds the lesson storing `name` as its video or lesson file.
		GetLessonByFile(ctx context.Context, name string) (Lesson, error)
		// QueryLessons returns lessons ordered by Lesson.Order, then ID.
		QueryLessons(ctx context.Context, filter QueryFilter) ([]Lesson, error)

		GetView(ctx context.Context, lessonID, studentID int) (View, error)
		// CreateView returns the existing view of (lessonID, studentID) if there is one.
		CreateView(ctx context.Context, v View) (View, error)
		QueryViews(ctx context.Context, studentID int, lessonIDs []int) ([]View, error)
		// UpdateView runs fn on the locked view row and saves the result, atomically.
		// ErrViewNotFound is returned when there is no such view.
		UpdateView(ctx context.Context, lessonID, studentID int, fn func(v *View) error) (View, error)
	}

	SubjectFinder interface {
		GetSubject(ctx context.Context, id int) (academics.Subject, error)
	}

	Service struct {
		repo     Repository
		subjects SubjectFinder
		policy   *access.Evaluator
		files    core.FileStorage
		uploads  core.UploadsConfig
		validate *validator.Validate
		logger   core.Logger
		now      func() time.Time
	}
)

func NewService(
	repo Repository,
	subjects SubjectFinder,
	policy *access.Evaluator,
	files core.FileStorage,
	validate *validator.Validate,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		subjects: subjects,
		policy:   policy,
		files:    files,
		uploads:  conf.Uploads,
		validate: validate,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// IsLocked applies the lock rule to `l` given the other lessons of its subject and the student's views.
// A video lesson is locked unless every preceding video lesson of the same subject and type is completed.
func IsLocked(l Lesson, lessons []Lesson, views map[int]View) bool {
	if !l.HasVideo() {
		return false
	}
	for _, prev := range lessons {
		if !prev.HasVideo() || !prev.precedes(l) {
			continue
		}
		if v, ok := views[prev.ID]; !ok || !v.IsCompleted {
			return true
		}
	}
	return false
}

func (svc *Service) subjectOf(ctx context.Context, l Lesson) (academics.Subject, error) {
	s, err := svc.subjects.GetSubject(ctx, l.SubjectID)
	return s, errors.Wrap(err, "finding subject")
}

func (svc *Service) checkUploads(form LessonForm) error {
	if form.Video != nil && !core.HasExt(form.Video.Filename, svc.uploads.VideoExts) {
		return core.NewFieldError("video", "unsupported video format")
	}
	if form.File != nil && !core.HasExt(form.File.Filename, svc.uploads.LessonFileExts) {
		return core.NewFieldError("file", "unsupported file format")
	}
	return nil
}

// Create adds a lesson at the end of the subject's sequence for its type. A lesson file is mandatory.
func (svc *Service) Create(ctx context.Context, actor user.User, subjectID int, form LessonForm) (Lesson, error) {
	if err := form.Validate(svc.validate); err != nil {
		return Lesson{}, err
	}
	subject, err := svc.subjects.GetSubject(ctx, subjectID)
	if err != nil {
		return Lesson{}, err
	}
	if err = access.Require(svc.policy.CanEdit(ctx, actor, access.SubjectResource(subject))); err != nil {
		return Lesson{}, err
	}
	if form.File == nil {
		return Lesson{}, core.NewFieldError("file", "a lesson file is required")
	}
	if err = svc.checkUploads(form); err != nil {
		return Lesson{}, err
	}

	siblings, err := svc.repo.QueryLessons(ctx, QueryFilter{SubjectID: subject.ID, LessonType: form.LessonType})
	if err != nil {
		return Lesson{}, errors.Wrap(err, "querying lessons")
	}

	now := svc.now()
	l := Lesson{
		SubjectID:  subject.ID,
		LessonType: form.LessonType,
		Order:      len(siblings) + 1,
		Title:      form.Title,
		Content:    form.Content,
		VideoURL:   form.VideoURL,
		Duration:   form.Duration,
		CreatedBy:  actor.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if l.LessonFile, err = svc.files.Save(core.DirLessonFiles, *form.File); err != nil {
		return Lesson{}, errors.Wrap(err, "saving lesson file")
	}
	if form.Video != nil {
		if l.VideoFile, err = svc.files.Save(core.DirVideos, *form.Video); err != nil {
			svc.files.Remove(core.DirLessonFiles, l.LessonFile)
			return Lesson{}, errors.Wrap(err, "saving video")
		}
	}

	l, err = svc.repo.CreateLesson(ctx, l)
	return l, errors.Wrap(err, "creating lesson")
}

// Update edits a lesson; new uploads replace the stored files.
func (svc *Service) Update(ctx context.Context, actor user.User, id int, form LessonForm) (Lesson, error) {
	if err := form.Validate(svc.validate); err != nil {
		return Lesson{}, err
	}
	l, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	subject, err := svc.subjectOf(ctx, l)
	if err != nil {
		return Lesson{}, err
	}
	if err = access.Require(svc.policy.CanEdit(ctx, actor, access.SubjectResource(subject))); err != nil {
		return Lesson{}, err
	}
	if err = svc.checkUploads(form); err != nil {
		return Lesson{}, err
	}

	var staleVideo, staleFile string
	if form.Video != nil {
		name, err := svc.files.Save(core.DirVideos, *form.Video)
		if err != nil {
			return Lesson{}, errors.Wrap(err, "saving video")
		}
		staleVideo, l.VideoFile = l.VideoFile, name
	}
	if form.File != nil {
		name, err := svc.files.Save(core.DirLessonFiles, *form.File)
		if err != nil {
			return Lesson{}, errors.Wrap(err, "saving lesson file")
		}
		staleFile, l.LessonFile = l.LessonFile, name
	}

	l.Title, l.Content, l.Duration = form.Title, form.Content, form.Duration
	if form.VideoURL != "" {
		l.VideoURL = form.VideoURL
	}
	l.UpdatedAt = svc.now()
	if l, err = svc.repo.UpdateLesson(ctx, l); err != nil {
		return Lesson{}, errors.Wrap(err, "updating lesson")
	}

	if staleVideo != "" {
		svc.files.Remove(core.DirVideos, staleVideo)
	}
	if staleFile != "" {
		svc.files.Remove(core.DirLessonFiles, staleFile)
	}
	return l, nil
}

// sequence returns the lessons sharing l's subject and type.
func (svc *Service) sequence(ctx context.Context, l Lesson) ([]Lesson, error) {
	lessons, err := svc.repo.QueryLessons(ctx, QueryFilter{SubjectID: l.SubjectID, LessonType: l.LessonType})
	return lessons, errors.Wrap(err, "querying lessons")
}

func (svc *Service) viewsOf(ctx context.Context, studentID int, lessons []Lesson) (map[int]View, error) {
	ids := make([]int, len(lessons))
	for i, l := range lessons {
		ids[i] = l.ID
	}
	views, err := svc.repo.QueryViews(ctx, studentID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying lesson views")
	}
	byLesson := make(map[int]View, len(views))
	for _, v := range views {
		byLesson[v.LessonID] = v
	}
	return byLesson, nil
}

// nextVideoLesson is the first video lesson after l in its sequence.
func nextVideoLesson(l Lesson, lessons []Lesson) *Lesson {
	var next *Lesson
	for i := range lessons {
		cand := lessons[i]
		if !cand.HasVideo() || !l.precedes(cand) {
			continue
		}
		if next == nil || cand.Order < next.Order || (cand.Order == next.Order && cand.ID < next.ID) {
			next = &lessons[i]
		}
	}
	return next
}

func statusOf(l Lesson, lessons []Lesson, views map[int]View) Status {
	st := Status{Lesson: l, State: NotStarted, IsLocked: IsLocked(l, lessons, views)}
	if v, ok := views[l.ID]; ok {
		st.View = &v
		st.State = v.State()
	}
	return st
}

// Detail returns a lesson visible to the actor; students also get their progress and lock state.
// CanAccessFile allows downloading a stored video or lesson file to whoever may view its subject.
func (svc *Service) CanAccessFile(ctx context.Context, actor user.User, fileName string) (bool, error) {
	l, err := svc.repo.GetLessonByFile(ctx, fileName)
	if err != nil {
		if core.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	subject, err := svc.subjectOf(ctx, l)
	if err != nil {
		return false, err
	}
	return svc.policy.CanView(ctx, actor, access.SubjectResource(subject))
}

func (svc *Service) Detail(ctx context.Context, actor user.User, id int) (Status, error) {
	l, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return Status{}, err
	}
	subject, err := svc.subjectOf(ctx, l)
	if err != nil {
		return Status{}, err
	}
	if err = access.Require(svc.policy.CanView(ctx, actor, access.SubjectResource(subject))); err != nil {
		return Status{}, err
	}
	if !actor.IsStudent() {
		return Status{Lesson: l, State: NotStarted}, nil
	}

	lessons, err := svc.sequence(ctx, l)
	if err != nil {
		return Status{}, err
	}
	views, err := svc.viewsOf(ctx, actor.ID, lessons)
	if err != nil {
		return Status{}, err
	}
	return statusOf(l, lessons, views), nil
}

// SubjectLessons lists the lessons of a subject in sequence order, with lock states for students.
func (svc *Service) SubjectLessons(ctx context.Context, actor user.User, subject academics.Subject) ([]Status, error) {
	if err := access.Require(svc.policy.CanView(ctx, actor, access.SubjectResource(subject))); err != nil {
		return nil, err
	}
	lessons, err := svc.repo.QueryLessons(ctx, QueryFilter{SubjectID: subject.ID})
	if err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}

	views := map[int]View{}
	if actor.IsStudent() {
		if views, err = svc.viewsOf(ctx, actor.ID, lessons); err != nil {
			return nil, err
		}
	}
	statuses := make([]Status, len(lessons))
	for i, l := range lessons {
		statuses[i] = statusOf(l, lessons, views)
	}
	return statuses, nil
}

// Open starts (or resumes) watching a video lesson. Students are refused locked lessons;
// their first opening creates the view record.
func (svc *Service) Open(ctx context.Context, actor user.User, id int) (WatchSession, error) {
	l, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return WatchSession{}, err
	}
	if !l.HasVideo() {
		return WatchSession{}, ErrNoVideo
	}
	subject, err := svc.subjectOf(ctx, l)
	if err != nil {
		return WatchSession{}, err
	}
	if err = access.Require(svc.policy.CanView(ctx, actor, access.SubjectResource(subject))); err != nil {
		return WatchSession{}, err
	}

	lessons, err := svc.sequence(ctx, l)
	if err != nil {
		return WatchSession{}, err
	}
	session := WatchSession{Lesson: l, NextLesson: summarize(nextVideoLesson(l, lessons))}
	if !actor.IsStudent() {
		return session, nil
	}

	views, err := svc.viewsOf(ctx, actor.ID, lessons)
	if err != nil {
		return WatchSession{}, err
	}
	if IsLocked(l, lessons, views) {
		return WatchSession{}, ErrLocked
	}

	now := svc.now()
	v, err := svc.repo.CreateView(ctx, View{LessonID: l.ID, StudentID: actor.ID, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		return WatchSession{}, errors.Wrap(err, "creating lesson view")
	}
	session.View = &v
	return session, nil
}

// AttentionCheck counts a passed attention check. When it completes the lesson,
// the next video lesson of the sequence is returned with the result.
func (svc *Service) AttentionCheck(ctx context.Context, actor user.User, id int) (AttentionResult, error) {
	if !actor.IsStudent() {
		return AttentionResult{}, core.ErrPermissionDenied
	}
	l, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return AttentionResult{}, err
	}

	var justCompleted bool
	v, err := svc.repo.UpdateView(ctx, l.ID, actor.ID, func(v *View) error {
		justCompleted = v.PassAttentionCheck(svc.now())
		return nil
	})
	if err != nil {
		return AttentionResult{}, err
	}

	res := AttentionResult{AttentionChecksPassed: v.AttentionChecksPassed, IsCompleted: v.IsCompleted}
	if justCompleted {
		lessons, err := svc.sequence(ctx, l)
		if err != nil {
			return AttentionResult{}, err
		}
		res.NextLesson = summarize(nextVideoLesson(l, lessons))
		svc.logger.Info("lesson completed", actor, map[string]interface{}{"lesson_id": l.ID})
	}
	return res, nil
}

// UpdateWatchTime records the reported watch duration; the stored value never decreases.
func (svc *Service) UpdateWatchTime(ctx context.Context, actor user.User, id, seconds int) (WatchTimeResult, error) {
	if !actor.IsStudent() {
		return WatchTimeResult{}, core.ErrPermissionDenied
	}
	if seconds < 0 {
		return WatchTimeResult{}, core.NewFieldError("watch_duration", "watch_duration must be 0 or greater")
	}
	l, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return WatchTimeResult{}, err
	}
	v, err := svc.repo.UpdateView(ctx, l.ID, actor.ID, func(v *View) error {
		v.RecordWatchTime(seconds, svc.now())
		return nil
	})
	if err != nil {
		return WatchTimeResult{}, err
	}
	return WatchTimeResult{WatchDuration: v.WatchDuration, IsCompleted: v.IsCompleted}, nil
}
