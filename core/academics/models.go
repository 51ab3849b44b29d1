package academics

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/trezcool/campus/core"
)

// LessonType classifies lessons, teacher bindings and assignments.
type LessonType string

const (
	Lecture  LessonType = "lecture"
	Practice LessonType = "practice"
)

var LessonTypes = []LessonType{Lecture, Practice}

func (lt LessonType) IsValid() bool { return lt == Lecture || lt == Practice }

// Education types
const (
	FullTime = "full_time"
	PartTime = "part_time"
	Evening  = "evening"
)

var (
	EducationTypes = []string{FullTime, PartTime, Evening}

	// Weekdays indexed by ScheduleEntry.DayOfWeek.
	Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

	upper = cases.Upper(language.Und)
)

type Faculty struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Code        string    `json:"code" db:"code"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Group struct {
	ID            int       `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	FacultyID     int       `json:"faculty_id" db:"faculty_id"`
	CourseYear    int       `json:"course_year" db:"course_year"`
	EducationType string    `json:"education_type" db:"education_type"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type Subject struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Code        string    `json:"code" db:"code"`
	FacultyID   int       `json:"faculty_id" db:"faculty_id"`
	Credits     int       `json:"credits" db:"credits"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// TeacherAssignment binds a teacher to a subject taught to a group.
type TeacherAssignment struct {
	ID           int        `json:"id"`
	TeacherID    int        `json:"teacher_id"`
	SubjectID    int        `json:"subject_id"`
	GroupID      int        `json:"group_id"`
	LessonType   LessonType `json:"lesson_type"`
	AcademicYear string     `json:"academic_year"`
	Semester     int        `json:"semester"`
	AssignedBy   int        `json:"assigned_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type ScheduleEntry struct {
	ID         int        `json:"id"`
	SubjectID  int        `json:"subject_id"`
	GroupID    int        `json:"group_id"`
	TeacherID  int        `json:"teacher_id,omitempty"`
	DayOfWeek  int        `json:"day_of_week"` // 0 = Monday
	StartTime  string     `json:"start_time"`  // HH:MM
	EndTime    string     `json:"end_time"`    // HH:MM
	LessonType LessonType `json:"lesson_type"`
	Room       string     `json:"room"`
	Link       string     `json:"link"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (se ScheduleEntry) Weekday() string {
	if se.DayOfWeek >= 0 && se.DayOfWeek < len(Weekdays) {
		return Weekdays[se.DayOfWeek]
	}
	return ""
}

// Forms

type FacultyForm struct {
	Name        string `json:"name" validate:"required,max=200"`
	Code        string `json:"code" validate:"required,max=20,code"`
	Description string `json:"description"`
}

func (f *FacultyForm) Validate(validate *validator.Validate) error {
	f.Name = core.CleanString(f.Name)
	f.Code = upper.String(core.CleanString(f.Code))
	f.Description = core.CleanString(f.Description)
	return validate.Struct(f)
}

type GroupForm struct {
	Name          string `json:"name" validate:"required,max=50"`
	FacultyID     int    `json:"faculty_id" validate:"omitempty,min=1"` // deans: own faculty
	CourseYear    int    `json:"course_year" validate:"required,min=1,max=6"`
	EducationType string `json:"education_type" validate:"required,edutype"`
}

func (f *GroupForm) Validate(validate *validator.Validate) error {
	f.Name = upper.String(core.CleanString(f.Name))
	f.EducationType = core.CleanString(f.EducationType, true /* lower */)
	if f.EducationType == "" {
		f.EducationType = FullTime
	}
	return validate.Struct(f)
}

type SubjectForm struct {
	Name        string `json:"name" validate:"required,max=200"`
	Code        string `json:"code" validate:"required,max=20,code"`
	FacultyID   int    `json:"faculty_id" validate:"required,min=1"`
	Credits     int    `json:"credits" validate:"omitempty,min=1,max=30"`
	Description string `json:"description"`
}

func (f *SubjectForm) Validate(validate *validator.Validate) error {
	f.Name = core.CleanString(f.Name)
	f.Code = upper.String(core.CleanString(f.Code))
	f.Description = core.CleanString(f.Description)
	if f.Credits == 0 {
		f.Credits = 3
	}
	return validate.Struct(f)
}

type TeacherAssignmentForm struct {
	TeacherID    int        `json:"teacher_id" validate:"required,min=1"`
	SubjectID    int        `json:"subject_id" validate:"required,min=1"`
	GroupID      int        `json:"group_id" validate:"required,min=1"`
	LessonType   LessonType `json:"lesson_type" validate:"required,lessontype"`
	AcademicYear string     `json:"academic_year" validate:"required,acadyear"`
	Semester     int        `json:"semester" validate:"required,min=1,max=2"`
}

func (f *TeacherAssignmentForm) Validate(validate *validator.Validate) error {
	f.AcademicYear = core.CleanString(f.AcademicYear)
	return validate.Struct(f)
}

type ScheduleForm struct {
	SubjectID  int        `json:"subject_id" validate:"required,min=1"`
	GroupID    int        `json:"group_id" validate:"required,min=1"`
	TeacherID  int        `json:"teacher_id" validate:"omitempty,min=1"`
	DayOfWeek  int        `json:"day_of_week" validate:"min=0,max=5"`
	StartTime  string     `json:"start_time" validate:"required,clock"`
	EndTime    string     `json:"end_time" validate:"required,clock"`
	LessonType LessonType `json:"lesson_type" validate:"required,lessontype"`
	Room       string     `json:"room" validate:"omitempty,max=50"`
	Link       string     `json:"link" validate:"omitempty,url"`
}

func (f *ScheduleForm) Validate(validate *validator.Validate) error {
	f.StartTime = core.CleanString(f.StartTime)
	f.EndTime = core.CleanString(f.EndTime)
	f.Room = core.CleanString(f.Room)
	f.Link = core.CleanString(f.Link)
	return validate.Struct(f)
}

// Filters

type GroupFilter struct {
	FacultyID int    `query:"faculty_id"`
	IDs       []int  `query:"-"`
	Name      string `query:"-"` // exact, upper-cased
}

func (f GroupFilter) Match(g Group) bool {
	return (f.FacultyID == 0 || g.FacultyID == f.FacultyID) &&
		(f.IDs == nil || core.ContainsInt(f.IDs, g.ID)) &&
		(f.Name == "" || g.Name == f.Name)
}

type SubjectFilter struct {
	FacultyID int    `query:"faculty_id"`
	IDs       []int  `query:"-"`
	Code      string `query:"-"`
}

func (f SubjectFilter) Match(s Subject) bool {
	return (f.FacultyID == 0 || s.FacultyID == f.FacultyID) &&
		(f.IDs == nil || core.ContainsInt(f.IDs, s.ID)) &&
		(f.Code == "" || s.Code == f.Code)
}

type AssignmentFilter struct {
	TeacherID    int        `query:"teacher_id"`
	SubjectID    int        `query:"subject_id"`
	GroupID      int        `query:"group_id"`
	GroupIDs     []int      `query:"-"`
	LessonType   LessonType `query:"lesson_type"`
	AcademicYear string     `query:"academic_year"`
	Semester     int        `query:"semester"`
}

func (f AssignmentFilter) Match(ta TeacherAssignment) bool {
	return (f.TeacherID == 0 || ta.TeacherID == f.TeacherID) &&
		(f.SubjectID == 0 || ta.SubjectID == f.SubjectID) &&
		(f.GroupID == 0 || ta.GroupID == f.GroupID) &&
		(f.GroupIDs == nil || core.ContainsInt(f.GroupIDs, ta.GroupID)) &&
		(f.LessonType == "" || ta.LessonType == f.LessonType) &&
		(f.AcademicYear == "" || ta.AcademicYear == f.AcademicYear) &&
		(f.Semester == 0 || ta.Semester == f.Semester)
}

type ScheduleFilter struct {
	GroupIDs  []int `query:"-"`
	TeacherID int   `query:"-"`
}

func (f ScheduleFilter) Match(se ScheduleEntry) bool {
	return (f.GroupIDs == nil || core.ContainsInt(f.GroupIDs, se.GroupID)) &&
		(f.TeacherID == 0 || se.TeacherID == f.TeacherID)
}
