package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/lesson"
)

type lessonRepository struct {
	db *DB
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *DB) *lessonRepository {
	return &lessonRepository{db: db}
}

func (repo *lessonRepository) CreateLesson(_ context.Context, l lesson.Lesson) (lesson.Lesson, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	l.ID = repo.db.nextID("lessons")
	repo.db.lessons[l.ID] = l
	return l, nil
}

func (repo *lessonRepository) UpdateLesson(_ context.Context, l lesson.Lesson) (lesson.Lesson, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.lessons[l.ID]; !ok {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	repo.db.lessons[l.ID] = l
	return l, nil
}

func (repo *lessonRepository) GetLesson(_ context.Context, id int) (lesson.Lesson, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if l, ok := repo.db.lessons[id]; ok {
		return l, nil
	}
	return lesson.Lesson{}, lesson.ErrNotFound
}

func (repo *lessonRepository) GetLessonByFile(_ context.Context, name string) (lesson.Lesson, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if name != "" {
		for _, l := range repo.db.lessons {
			if l.VideoFile == name || l.LessonFile == name {
				return l, nil
			}
		}
	}
	return lesson.Lesson{}, lesson.ErrNotFound
}

func (repo *lessonRepository) QueryLessons(_ context.Context, filter lesson.QueryFilter) ([]lesson.Lesson, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	lessons := make([]lesson.Lesson, 0)
	for _, l := range values(repo.db.lessons) {
		if filter.Match(l) {
			lessons = append(lessons, l)
		}
	}
	sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].Order < lessons[j].Order })
	return lessons, nil
}

func (repo *lessonRepository) GetView(_ context.Context, lessonID, studentID int) (lesson.View, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if v, ok := repo.db.views[viewKey{lessonID, studentID}]; ok {
		return v, nil
	}
	return lesson.View{}, lesson.ErrViewNotFound
}

func (repo *lessonRepository) CreateView(_ context.Context, v lesson.View) (lesson.View, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := viewKey{v.LessonID, v.StudentID}
	if existing, ok := repo.db.views[key]; ok {
		return existing, nil
	}
	repo.db.views[key] = v
	return v, nil
}

func (repo *lessonRepository) QueryViews(_ context.Context, studentID int, lessonIDs []int) ([]lesson.View, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	views := make([]lesson.View, 0)
	for key, v := range repo.db.views {
		if key.studentID == studentID && core.ContainsInt(lessonIDs, key.lessonID) {
			views = append(views, v)
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].LessonID < views[j].LessonID })
	return views, nil
}

func (repo *lessonRepository) UpdateView(_ context.Context, lessonID, studentID int, fn func(v *lesson.View) error) (lesson.View, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := viewKey{lessonID, studentID}
	v, ok := repo.db.views[key]
	if !ok {
		return lesson.View{}, lesson.ErrViewNotFound
	}
	if err := fn(&v); err != nil {
		return lesson.View{}, err
	}
	repo.db.views[key] = v
	return v, nil
}
