package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core/announcement"
)

const announcementColumns = `id, title, content, is_important, target_roles, author_id, faculty_id, created_at`

type announcementRow struct {
	ID          int            `db:"id"`
	Title       string         `db:"title"`
	Content     string         `db:"content"`
	IsImportant bool           `db:"is_important"`
	TargetRoles pq.StringArray `db:"target_roles"`
	AuthorID    null.Int       `db:"author_id"`
	FacultyID   null.Int       `db:"faculty_id"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r announcementRow) announcement() announcement.Announcement {
	roles := []string(r.TargetRoles)
	if roles == nil {
		roles = []string{}
	}
	return announcement.Announcement{
		ID:          r.ID,
		Title:       r.Title,
		Content:     r.Content,
		IsImportant: r.IsImportant,
		TargetRoles: roles,
		AuthorID:    r.AuthorID.Int,
		FacultyID:   r.FacultyID.Int,
		CreatedAt:   r.CreatedAt,
	}
}

type announcementRepository struct {
	db *sqlx.DB
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *sqlx.DB) *announcementRepository {
	return &announcementRepository{db: db}
}

func (repo *announcementRepository) CreateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	row := announcementRow{
		Title:       a.Title,
		Content:     a.Content,
		IsImportant: a.IsImportant,
		TargetRoles: pq.StringArray(a.TargetRoles),
		AuthorID:    nullInt(a.AuthorID),
		FacultyID:   nullInt(a.FacultyID),
		CreatedAt:   a.CreatedAt,
	}
	id, err := insert(ctx, repo.db, `INSERT INTO announcements (title, content, is_important, target_roles, author_id,
		faculty_id, created_at) VALUES (:title, :content, :is_important, :target_roles, :author_id, :faculty_id,
		:created_at) RETURNING id`, row)
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	a.ID = id
	return a, nil
}

func (repo *announcementRepository) GetAnnouncement(ctx context.Context, id int) (announcement.Announcement, error) {
	var row announcementRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+announcementColumns+` FROM announcements WHERE id = $1`, id); err != nil {
		return announcement.Announcement{}, trapNoRowsErr(err, announcement.ErrNotFound, "selecting announcement")
	}
	return row.announcement(), nil
}

func (repo *announcementRepository) DeleteAnnouncement(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	return checkAffected(res, err, announcement.ErrNotFound, "deleting announcement")
}

func (repo *announcementRepository) QueryAnnouncements(ctx context.Context, role string) ([]announcement.Announcement, error) {
	var w where
	if role != "" {
		w.add("(cardinality(target_roles) = 0 OR ? = ANY(target_roles))", role)
	}
	var rows []announcementRow
	q := repo.db.Rebind(`SELECT ` + announcementColumns + ` FROM announcements` + w.String() +
		` ORDER BY is_important DESC, created_at DESC, id DESC`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting announcements")
	}
	list := make([]announcement.Announcement, len(rows))
	for i, r := range rows {
		list[i] = r.announcement()
	}
	return list, nil
}
