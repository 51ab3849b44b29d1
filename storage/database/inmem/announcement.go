package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/campus/core/announcement"
)

type announcementRepository struct {
	db *DB
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *DB) *announcementRepository {
	return &announcementRepository{db: db}
}

func (repo *announcementRepository) CreateAnnouncement(_ context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	a.ID = repo.db.nextID("announcements")
	repo.db.announcements[a.ID] = a
	return a, nil
}

func (repo *announcementRepository) GetAnnouncement(_ context.Context, id int) (announcement.Announcement, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if a, ok := repo.db.announcements[id]; ok {
		return a, nil
	}
	return announcement.Announcement{}, announcement.ErrNotFound
}

func (repo *announcementRepository) DeleteAnnouncement(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.announcements[id]; !ok {
		return announcement.ErrNotFound
	}
	delete(repo.db.announcements, id)
	return nil
}

func (repo *announcementRepository) QueryAnnouncements(_ context.Context, role string) ([]announcement.Announcement, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	list := make([]announcement.Announcement, 0)
	for _, a := range values(repo.db.announcements) {
		if role == "" || a.VisibleTo(role) {
			list = append(list, a)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.IsImportant != b.IsImportant {
			return a.IsImportant
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return list, nil
}
