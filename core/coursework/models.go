package coursework

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

type Assignment struct {
	ID           int        `json:"id"`
	SubjectID    int        `json:"subject_id"`
	GroupID      int        `json:"group_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	MaxScore     int        `json:"max_score"`
	DueDate      *time.Time `json:"due_date"`
	FileRequired bool       `json:"file_required"`
	CreatedBy    int        `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Submission struct {
	ID           int        `json:"id"`
	AssignmentID int        `json:"assignment_id"`
	StudentID    int        `json:"student_id"`
	Content      string     `json:"content"`
	FileName     string     `json:"file_name,omitempty"`
	Score        *int       `json:"score"` // nil until graded
	Feedback     string     `json:"feedback"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	GradedAt     *time.Time `json:"graded_at"`
	GradedBy     int        `json:"graded_by,omitempty"`
}

func (s Submission) IsGraded() bool { return s.Score != nil }

// Forms

type AssignmentForm struct {
	Title        string     `json:"title" form:"title" validate:"required,max=200"`
	Description  string     `json:"description" form:"description"`
	GroupID      int        `json:"group_id" form:"group_id" validate:"required,min=1"`
	MaxScore     int        `json:"max_score" form:"max_score" validate:"omitempty,min=1,max=1000"`
	DueDate      *time.Time `json:"due_date" form:"-"`
	FileRequired bool       `json:"file_required" form:"file_required"`
}

func (f *AssignmentForm) Validate(validate *validator.Validate) error {
	f.Title = core.CleanString(f.Title)
	f.Description = core.CleanString(f.Description)
	if f.MaxScore == 0 {
		f.MaxScore = 100
	}
	return validate.Struct(f)
}

type SubmissionForm struct {
	Content string       `json:"content" form:"content"`
	File    *core.Upload `json:"-" form:"-"`
}

type GradeForm struct {
	Score    *int   `json:"score" validate:"required"`
	Feedback string `json:"feedback"`
}

type AssignmentFilter struct {
	SubjectID int
	GroupID   int
	IDs       []int
}

func (f AssignmentFilter) Match(a Assignment) bool {
	return (f.SubjectID == 0 || a.SubjectID == f.SubjectID) &&
		(f.GroupID == 0 || a.GroupID == f.GroupID) &&
		(f.IDs == nil || core.ContainsInt(f.IDs, a.ID))
}

type SubmissionFilter struct {
	AssignmentIDs []int
	StudentIDs    []int
}

func (f SubmissionFilter) Match(s Submission) bool {
	return (f.AssignmentIDs == nil || core.ContainsInt(f.AssignmentIDs, s.AssignmentID)) &&
		(f.StudentIDs == nil || core.ContainsInt(f.StudentIDs, s.StudentID))
}

// Results

type AssignmentDetail struct {
	Assignment  Assignment   `json:"assignment"`
	Submission  *Submission  `json:"submission,omitempty"`  // the acting student's
	Submissions []Submission `json:"submissions,omitempty"` // staff only
	CanGrade    bool         `json:"can_grade"`
}
