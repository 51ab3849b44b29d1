package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core/academics"
	"github.com/trezcool/campus/core/lesson"
)

const (
	lessonColumns = `id, subject_id, lesson_type, position, title, content, video_file, video_url, lesson_file,
		duration, created_by, created_at, updated_at`
	viewColumns = `lesson_id, student_id, attention_checks_passed, is_completed, completed_at, watch_duration,
		created_at, updated_at`
)

type lessonRow struct {
	ID         int       `db:"id"`
	SubjectID  int       `db:"subject_id"`
	LessonType string    `db:"lesson_type"`
	Position   int       `db:"position"`
	Title      string    `db:"title"`
	Content    string    `db:"content"`
	VideoFile  string    `db:"video_file"`
	VideoURL   string    `db:"video_url"`
	LessonFile string    `db:"lesson_file"`
	Duration   int       `db:"duration"`
	CreatedBy  null.Int  `db:"created_by"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func toLessonRow(l lesson.Lesson) lessonRow {
	return lessonRow{
		ID:         l.ID,
		SubjectID:  l.SubjectID,
		LessonType: string(l.LessonType),
		Position:   l.Order,
		Title:      l.Title,
		Content:    l.Content,
		VideoFile:  l.VideoFile,
		VideoURL:   l.VideoURL,
		LessonFile: l.LessonFile,
		Duration:   l.Duration,
		CreatedBy:  nullInt(l.CreatedBy),
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
	}
}

func (r lessonRow) lesson() lesson.Lesson {
	return lesson.Lesson{
		ID:         r.ID,
		SubjectID:  r.SubjectID,
		LessonType: academics.LessonType(r.LessonType),
		Order:      r.Position,
		Title:      r.Title,
		Content:    r.Content,
		VideoFile:  r.VideoFile,
		VideoURL:   r.VideoURL,
		LessonFile: r.LessonFile,
		Duration:   r.Duration,
		CreatedBy:  r.CreatedBy.Int,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type viewRow struct {
	LessonID              int       `db:"lesson_id"`
	StudentID             int       `db:"student_id"`
	AttentionChecksPassed int       `db:"attention_checks_passed"`
	IsCompleted           bool      `db:"is_completed"`
	CompletedAt           null.Time `db:"completed_at"`
	WatchDuration         int       `db:"watch_duration"`
	CreatedAt             time.Time `db:"created_at"`
	UpdatedAt             time.Time `db:"updated_at"`
}

func toViewRow(v lesson.View) viewRow {
	return viewRow{
		LessonID:              v.LessonID,
		StudentID:             v.StudentID,
		AttentionChecksPassed: v.AttentionChecksPassed,
		IsCompleted:           v.IsCompleted,
		CompletedAt:           null.TimeFromPtr(v.CompletedAt),
		WatchDuration:         v.WatchDuration,
		CreatedAt:             v.CreatedAt,
		UpdatedAt:             v.UpdatedAt,
	}
}

func (r viewRow) view() lesson.View {
	return lesson.View{
		LessonID:              r.LessonID,
		StudentID:             r.StudentID,
		AttentionChecksPassed: r.AttentionChecksPassed,
		IsCompleted:           r.IsCompleted,
		CompletedAt:           r.CompletedAt.Ptr(),
		WatchDuration:         r.WatchDuration,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

type lessonRepository struct {
	db *sqlx.DB
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *sqlx.DB) *lessonRepository {
	return &lessonRepository{db: db}
}

func (repo *lessonRepository) CreateLesson(ctx context.Context, l lesson.Lesson) (lesson.Lesson, error) {
	id, err := insert(ctx, repo.db, `INSERT INTO lessons (subject_id, lesson_type, position, title, content, video_file,
		video_url, lesson_file, duration, created_by, created_at, updated_at)
		VALUES (:subject_id, :lesson_type, :position, :title, :content, :video_file, :video_url, :lesson_file, :duration,
		:created_by, :created_at, :updated_at) RETURNING id`, toLessonRow(l))
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	l.ID = id
	return l, nil
}

func (repo *lessonRepository) UpdateLesson(ctx context.Context, l lesson.Lesson) (lesson.Lesson, error) {
	res, err := namedExec(ctx, repo.db, `UPDATE lessons SET title = :title, content = :content, video_file = :video_file,
		video_url = :video_url, lesson_file = :lesson_file, duration = :duration, updated_at = :updated_at
		WHERE id = :id`, toLessonRow(l))
	return l, checkAffected(res, err, lesson.ErrNotFound, "updating lesson")
}

func (repo *lessonRepository) GetLesson(ctx context.Context, id int) (lesson.Lesson, error) {
	var row lessonRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id); err != nil {
		return lesson.Lesson{}, trapNoRowsErr(err, lesson.ErrNotFound, "selecting lesson")
	}
	return row.lesson(), nil
}

func (repo *lessonRepository) GetLessonByFile(ctx context.Context, name string) (lesson.Lesson, error) {
	if name == "" {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	var row lessonRow
	q := `SELECT ` + lessonColumns + ` FROM lessons WHERE video_file = $1 OR lesson_file = $1 LIMIT 1`
	if err := repo.db.GetContext(ctx, &row, q, name); err != nil {
		return lesson.Lesson{}, trapNoRowsErr(err, lesson.ErrNotFound, "selecting lesson")
	}
	return row.lesson(), nil
}

func (repo *lessonRepository) QueryLessons(ctx context.Context, filter lesson.QueryFilter) ([]lesson.Lesson, error) {
	var w where
	if filter.SubjectID != 0 {
		w.add("subject_id = ?", filter.SubjectID)
	}
	if filter.LessonType != "" {
		w.add("lesson_type = ?", string(filter.LessonType))
	}

	var rows []lessonRow
	q := repo.db.Rebind(`SELECT ` + lessonColumns + ` FROM lessons` + w.String() + ` ORDER BY position, id`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting lessons")
	}
	lessons := make([]lesson.Lesson, len(rows))
	for i, r := range rows {
		lessons[i] = r.lesson()
	}
	return lessons, nil
}

func (repo *lessonRepository) GetView(ctx context.Context, lessonID, studentID int) (lesson.View, error) {
	var row viewRow
	q := `SELECT ` + viewColumns + ` FROM lesson_views WHERE lesson_id = $1 AND student_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, lessonID, studentID); err != nil {
		return lesson.View{}, trapNoRowsErr(err, lesson.ErrViewNotFound, "selecting lesson view")
	}
	return row.view(), nil
}

func (repo *lessonRepository) CreateView(ctx context.Context, v lesson.View) (lesson.View, error) {
	_, err := namedExec(ctx, repo.db, `INSERT INTO lesson_views (`+viewColumns+`)
		VALUES (:lesson_id, :student_id, :attention_checks_passed, :is_completed, :completed_at, :watch_duration,
		:created_at, :updated_at) ON CONFLICT (lesson_id, student_id) DO NOTHING`, toViewRow(v))
	if err != nil {
		return lesson.View{}, errors.Wrap(err, "inserting lesson view")
	}
	return repo.GetView(ctx, v.LessonID, v.StudentID)
}

func (repo *lessonRepository) QueryViews(ctx context.Context, studentID int, lessonIDs []int) ([]lesson.View, error) {
	var rows []viewRow
	q := `SELECT ` + viewColumns + ` FROM lesson_views WHERE student_id = $1 AND lesson_id = ANY($2)`
	if err := repo.db.SelectContext(ctx, &rows, q, studentID, pq.Array(lessonIDs)); err != nil {
		return nil, errors.Wrap(err, "selecting lesson views")
	}
	views := make([]lesson.View, len(rows))
	for i, r := range rows {
		views[i] = r.view()
	}
	return views, nil
}

func (repo *lessonRepository) UpdateView(ctx context.Context, lessonID, studentID int, fn func(v *lesson.View) error) (lesson.View, error) {
	var v lesson.View
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var row viewRow
		q := `SELECT ` + viewColumns + ` FROM lesson_views WHERE lesson_id = $1 AND student_id = $2 FOR UPDATE`
		if err := tx.GetContext(ctx, &row, q, lessonID, studentID); err != nil {
			return trapNoRowsErr(err, lesson.ErrViewNotFound, "selecting lesson view")
		}
		v = row.view()
		if err := fn(&v); err != nil {
			return err
		}
		_, err := namedExec(ctx, tx, `UPDATE lesson_views SET attention_checks_passed = :attention_checks_passed,
			is_completed = :is_completed, completed_at = :completed_at, watch_duration = :watch_duration,
			updated_at = :updated_at WHERE lesson_id = :lesson_id AND student_id = :student_id`, toViewRow(v))
		return errors.Wrap(err, "updating lesson view")
	})
	if err != nil {
		return lesson.View{}, err
	}
	return v, nil
}
