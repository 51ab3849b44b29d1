package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core/coursework"
)

const (
	assignmentColumns = `id, title, description, subject_id, group_id, max_score, due_date, file_required, created_by,
		created_at`
	submissionColumns = `id, student_id, assignment_id, content, file_name, score, feedback, submitted_at, graded_at,
		graded_by`
)

type assignmentRow struct {
	ID           int       `db:"id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	SubjectID    int       `db:"subject_id"`
	GroupID      int       `db:"group_id"`
	MaxScore     int       `db:"max_score"`
	DueDate      null.Time `db:"due_date"`
	FileRequired bool      `db:"file_required"`
	CreatedBy    null.Int  `db:"created_by"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r assignmentRow) assignment() coursework.Assignment {
	return coursework.Assignment{
		ID:           r.ID,
		SubjectID:    r.SubjectID,
		GroupID:      r.GroupID,
		Title:        r.Title,
		Description:  r.Description,
		MaxScore:     r.MaxScore,
		DueDate:      r.DueDate.Ptr(),
		FileRequired: r.FileRequired,
		CreatedBy:    r.CreatedBy.Int,
		CreatedAt:    r.CreatedAt,
	}
}

type submissionRow struct {
	ID           int       `db:"id"`
	StudentID    int       `db:"student_id"`
	AssignmentID int       `db:"assignment_id"`
	Content      string    `db:"content"`
	FileName     string    `db:"file_name"`
	Score        null.Int  `db:"score"`
	Feedback     string    `db:"feedback"`
	SubmittedAt  time.Time `db:"submitted_at"`
	GradedAt     null.Time `db:"graded_at"`
	GradedBy     null.Int  `db:"graded_by"`
}

func toSubmissionRow(s coursework.Submission) submissionRow {
	return submissionRow{
		ID:           s.ID,
		StudentID:    s.StudentID,
		AssignmentID: s.AssignmentID,
		Content:      s.Content,
		FileName:     s.FileName,
		Score:        null.IntFromPtr(s.Score),
		Feedback:     s.Feedback,
		SubmittedAt:  s.SubmittedAt,
		GradedAt:     null.TimeFromPtr(s.GradedAt),
		GradedBy:     nullInt(s.GradedBy),
	}
}

func (r submissionRow) submission() coursework.Submission {
	return coursework.Submission{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		StudentID:    r.StudentID,
		Content:      r.Content,
		FileName:     r.FileName,
		Score:        r.Score.Ptr(),
		Feedback:     r.Feedback,
		SubmittedAt:  r.SubmittedAt,
		GradedAt:     r.GradedAt.Ptr(),
		GradedBy:     r.GradedBy.Int,
	}
}

type courseworkRepository struct {
	db *sqlx.DB
}

var _ coursework.Repository = (*courseworkRepository)(nil) // interface compliance check

func NewCourseworkRepository(db *sqlx.DB) *courseworkRepository {
	return &courseworkRepository{db: db}
}

func (repo *courseworkRepository) CreateAssignment(ctx context.Context, a coursework.Assignment) (coursework.Assignment, error) {
	row := assignmentRow{
		Title:        a.Title,
		Description:  a.Description,
		SubjectID:    a.SubjectID,
		GroupID:      a.GroupID,
		MaxScore:     a.MaxScore,
		DueDate:      null.TimeFromPtr(a.DueDate),
		FileRequired: a.FileRequired,
		CreatedBy:    nullInt(a.CreatedBy),
		CreatedAt:    a.CreatedAt,
	}
	id, err := insert(ctx, repo.db, `INSERT INTO assignments (title, description, subject_id, group_id, max_score,
		due_date, file_required, created_by, created_at) VALUES (:title, :description, :subject_id, :group_id,
		:max_score, :due_date, :file_required, :created_by, :created_at) RETURNING id`, row)
	if err != nil {
		return coursework.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	a.ID = id
	return a, nil
}

func (repo *courseworkRepository) GetAssignment(ctx context.Context, id int) (coursework.Assignment, error) {
	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id); err != nil {
		return coursework.Assignment{}, trapNoRowsErr(err, coursework.ErrAssignmentNotFound, "selecting assignment")
	}
	return row.assignment(), nil
}

func (repo *courseworkRepository) QueryAssignments(ctx context.Context, filter coursework.AssignmentFilter) ([]coursework.Assignment, error) {
	var w where
	if filter.SubjectID != 0 {
		w.add("subject_id = ?", filter.SubjectID)
	}
	if filter.GroupID != 0 {
		w.add("group_id = ?", filter.GroupID)
	}
	if filter.IDs != nil {
		w.add("id = ANY(?)", pq.Array(filter.IDs))
	}

	var rows []assignmentRow
	q := repo.db.Rebind(`SELECT ` + assignmentColumns + ` FROM assignments` + w.String() + ` ORDER BY created_at, id`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting assignments")
	}
	assignments := make([]coursework.Assignment, len(rows))
	for i, r := range rows {
		assignments[i] = r.assignment()
	}
	return assignments, nil
}

func (repo *courseworkRepository) getSubmission(ctx context.Context, q sqlx.QueryerContext, cond string, args ...interface{}) (coursework.Submission, error) {
	var row submissionRow
	if err := sqlx.GetContext(ctx, q, &row, `SELECT `+submissionColumns+` FROM submissions WHERE `+cond, args...); err != nil {
		return coursework.Submission{}, trapNoRowsErr(err, coursework.ErrSubmissionNotFound, "selecting submission")
	}
	return row.submission(), nil
}

func (repo *courseworkRepository) GetSubmission(ctx context.Context, id int) (coursework.Submission, error) {
	return repo.getSubmission(ctx, repo.db, "id = $1", id)
}

func (repo *courseworkRepository) GetStudentSubmission(ctx context.Context, assignmentID, studentID int) (coursework.Submission, error) {
	return repo.getSubmission(ctx, repo.db, "assignment_id = $1 AND student_id = $2", assignmentID, studentID)
}

func (repo *courseworkRepository) GetSubmissionByFile(ctx context.Context, fileName string) (coursework.Submission, error) {
	if fileName == "" {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	return repo.getSubmission(ctx, repo.db, "file_name = $1", fileName)
}

func (repo *courseworkRepository) QuerySubmissions(ctx context.Context, filter coursework.SubmissionFilter) ([]coursework.Submission, error) {
	var w where
	if filter.AssignmentIDs != nil {
		w.add("assignment_id = ANY(?)", pq.Array(filter.AssignmentIDs))
	}
	if filter.StudentIDs != nil {
		w.add("student_id = ANY(?)", pq.Array(filter.StudentIDs))
	}

	var rows []submissionRow
	q := repo.db.Rebind(`SELECT ` + submissionColumns + ` FROM submissions` + w.String() + ` ORDER BY submitted_at, id`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting submissions")
	}
	subs := make([]coursework.Submission, len(rows))
	for i, r := range rows {
		subs[i] = r.submission()
	}
	return subs, nil
}

func (repo *courseworkRepository) SaveSubmission(ctx context.Context, s coursework.Submission) (coursework.Submission, string, error) {
	var stale string
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		prev, err := repo.getSubmission(ctx, tx, "assignment_id = $1 AND student_id = $2 FOR UPDATE", s.AssignmentID, s.StudentID)
		switch {
		case err == nil:
			stale = prev.FileName
		case errors.Is(err, coursework.ErrSubmissionNotFound):
		default:
			return err
		}

		id, err := insert(ctx, tx, `INSERT INTO submissions (student_id, assignment_id, content, file_name, score,
			feedback, submitted_at, graded_at, graded_by) VALUES (:student_id, :assignment_id, :content, :file_name,
			:score, :feedback, :submitted_at, :graded_at, :graded_by)
			ON CONFLICT (student_id, assignment_id) DO UPDATE SET content = EXCLUDED.content,
			file_name = EXCLUDED.file_name, submitted_at = EXCLUDED.submitted_at RETURNING id`, toSubmissionRow(s))
		if err != nil {
			return errors.Wrap(err, "upserting submission")
		}
		s, err = repo.getSubmission(ctx, tx, "id = $1", id)
		return err
	})
	if err != nil {
		return coursework.Submission{}, "", err
	}
	return s, stale, nil
}

func (repo *courseworkRepository) UpdateSubmission(ctx context.Context, id int, fn func(s *coursework.Submission) error) (coursework.Submission, error) {
	var s coursework.Submission
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var err error
		if s, err = repo.getSubmission(ctx, tx, "id = $1 FOR UPDATE", id); err != nil {
			return err
		}
		if err = fn(&s); err != nil {
			return err
		}
		_, err = namedExec(ctx, tx, `UPDATE submissions SET content = :content, file_name = :file_name, score = :score,
			feedback = :feedback, graded_at = :graded_at, graded_by = :graded_by WHERE id = :id`, toSubmissionRow(s))
		return errors.Wrap(err, "updating submission")
	})
	if err != nil {
		return coursework.Submission{}, err
	}
	return s, nil
}
