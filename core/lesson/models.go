package lesson

import (
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academics"
)

// RequiredAttentionChecks is the number of passed attention checks that completes a lesson.
const RequiredAttentionChecks = 3

// State of a student's progress on a lesson.
type State string

const (
	NotStarted State = "not_started"
	InProgress State = "in_progress"
	Completed  State = "completed"
)

var youtubeRegex = regexp.MustCompile(`^(https?://)?(www\.|m\.)?(youtube\.com/(watch\?v=|embed/|shorts/)|youtu\.be/)[\w-]{6,}`)

type Lesson struct {
	ID         int                  `json:"id"`
	SubjectID  int                  `json:"subject_id"`
	LessonType academics.LessonType `json:"lesson_type"`
	Order      int                  `json:"order"`
	Title      string               `json:"title"`
	Content    string               `json:"content"`
	VideoFile  string               `json:"video_file,omitempty"`
	VideoURL   string               `json:"video_url,omitempty"`
	LessonFile string               `json:"lesson_file,omitempty"`
	Duration   int                  `json:"duration"` // minutes
	CreatedBy  int                  `json:"created_by,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

func (l Lesson) HasVideo() bool {
	return l.VideoFile != "" || l.VideoURL != ""
}

// precedes reports whether l comes before other in the same subject and lesson type sequence.
func (l Lesson) precedes(other Lesson) bool {
	return l.SubjectID == other.SubjectID && l.LessonType == other.LessonType && l.Order < other.Order
}

// View is a student's progress on a lesson.
type View struct {
	LessonID              int        `json:"lesson_id"`
	StudentID             int        `json:"student_id"`
	AttentionChecksPassed int        `json:"attention_checks_passed"`
	IsCompleted           bool       `json:"is_completed"`
	CompletedAt           *time.Time `json:"completed_at"`
	WatchDuration         int        `json:"watch_duration"` // seconds
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (v *View) State() State {
	switch {
	case v == nil:
		return NotStarted
	case v.IsCompleted:
		return Completed
	default:
		return InProgress
	}
}

// PassAttentionCheck counts one more passed check and reports whether it completed the lesson.
// Counting goes on after completion; completion itself happens once.
func (v *View) PassAttentionCheck(now time.Time) bool {
	v.AttentionChecksPassed++
	v.UpdatedAt = now
	if v.IsCompleted || v.AttentionChecksPassed < RequiredAttentionChecks {
		return false
	}
	v.IsCompleted = true
	v.CompletedAt = &now
	return true
}

// RecordWatchTime keeps the longest reported watch duration.
func (v *View) RecordWatchTime(seconds int, now time.Time) {
	if seconds > v.WatchDuration {
		v.WatchDuration = seconds
	}
	v.UpdatedAt = now
}

// Forms

type LessonForm struct {
	Title      string               `json:"title" form:"title" validate:"required,max=200"`
	Content    string               `json:"content" form:"content"`
	LessonType academics.LessonType `json:"lesson_type" form:"lesson_type" validate:"required,lessontype"`
	VideoURL   string               `json:"video_url" form:"video_url" validate:"omitempty,youtube"`
	Duration   int                  `json:"duration" form:"duration" validate:"omitempty,min=0,max=600"`

	Video *core.Upload `json:"-" form:"-"`
	File  *core.Upload `json:"-" form:"-"`
}

func (f *LessonForm) Validate(validate *validator.Validate) error {
	f.Title = core.CleanString(f.Title)
	f.Content = core.CleanString(f.Content)
	f.VideoURL = core.CleanString(f.VideoURL)
	if f.LessonType == "" {
		f.LessonType = academics.Lecture
	}
	return validate.Struct(f)
}

type QueryFilter struct {
	SubjectID  int
	LessonType academics.LessonType
}

func (f QueryFilter) Match(l Lesson) bool {
	return (f.SubjectID == 0 || l.SubjectID == f.SubjectID) &&
		(f.LessonType == "" || l.LessonType == f.LessonType)
}

// Results

// Summary is a lesson link as returned to clients.
type Summary struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

func summarize(l *Lesson) *Summary {
	if l == nil {
		return nil
	}
	return &Summary{ID: l.ID, Title: l.Title, URL: "/api/lessons/" + strconv.Itoa(l.ID)}
}

// Status is a lesson as seen by one student.
type Status struct {
	Lesson
	State    State `json:"state"`
	IsLocked bool  `json:"is_locked"`
	View     *View `json:"view,omitempty"`
}

type AttentionResult struct {
	AttentionChecksPassed int      `json:"attention_checks_passed"`
	IsCompleted           bool     `json:"is_completed"`
	NextLesson            *Summary `json:"next_lesson"`
}

type WatchTimeResult struct {
	WatchDuration int  `json:"watch_duration"`
	IsCompleted   bool `json:"is_completed"`
}

// WatchSession is returned when a student opens a video lesson.
type WatchSession struct {
	Lesson     Lesson   `json:"lesson"`
	View       *View    `json:"view,omitempty"`
	NextLesson *Summary `json:"next_lesson"`
}
