package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/campus/core/coursework"
)

type courseworkRepository struct {
	db *DB
}

var _ coursework.Repository = (*courseworkRepository)(nil) // interface compliance check

func NewCourseworkRepository(db *DB) *courseworkRepository {
	return &courseworkRepository{db: db}
}

func (repo *courseworkRepository) CreateAssignment(_ context.Context, a coursework.Assignment) (coursework.Assignment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	a.ID = repo.db.nextID("assignments")
	repo.db.assignments[a.ID] = a
	return a, nil
}

func (repo *courseworkRepository) GetAssignment(_ context.Context, id int) (coursework.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		return a, nil
	}
	return coursework.Assignment{}, coursework.ErrAssignmentNotFound
}

func (repo *courseworkRepository) QueryAssignments(_ context.Context, filter coursework.AssignmentFilter) ([]coursework.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	assignments := make([]coursework.Assignment, 0)
	for _, a := range values(repo.db.assignments) {
		if filter.Match(a) {
			assignments = append(assignments, a)
		}
	}
	sort.SliceStable(assignments, func(i, j int) bool {
		return assignments[i].CreatedAt.Before(assignments[j].CreatedAt)
	})
	return assignments, nil
}

// findSubmission must be called with the lock held.
func (repo *courseworkRepository) findSubmission(match func(s coursework.Submission) bool) (coursework.Submission, bool) {
	for _, s := range values(repo.db.submissions) {
		if match(s) {
			return s, true
		}
	}
	return coursework.Submission{}, false
}

func (repo *courseworkRepository) GetSubmission(_ context.Context, id int) (coursework.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.submissions[id]; ok {
		return s, nil
	}
	return coursework.Submission{}, coursework.ErrSubmissionNotFound
}

func (repo *courseworkRepository) GetStudentSubmission(_ context.Context, assignmentID, studentID int) (coursework.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	s, ok := repo.findSubmission(func(s coursework.Submission) bool {
		return s.AssignmentID == assignmentID && s.StudentID == studentID
	})
	if !ok {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	return s, nil
}

func (repo *courseworkRepository) GetSubmissionByFile(_ context.Context, fileName string) (coursework.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	s, ok := repo.findSubmission(func(s coursework.Submission) bool {
		return fileName != "" && s.FileName == fileName
	})
	if !ok {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	return s, nil
}

func (repo *courseworkRepository) QuerySubmissions(_ context.Context, filter coursework.SubmissionFilter) ([]coursework.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subs := make([]coursework.Submission, 0)
	for _, s := range values(repo.db.submissions) {
		if filter.Match(s) {
			subs = append(subs, s)
		}
	}
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].SubmittedAt.Before(subs[j].SubmittedAt) })
	return subs, nil
}

func (repo *courseworkRepository) SaveSubmission(_ context.Context, s coursework.Submission) (coursework.Submission, string, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	prev, ok := repo.findSubmission(func(p coursework.Submission) bool {
		return p.AssignmentID == s.AssignmentID && p.StudentID == s.StudentID
	})
	if !ok {
		s.ID = repo.db.nextID("submissions")
		repo.db.submissions[s.ID] = s
		return s, "", nil
	}

	stale := prev.FileName
	prev.Content = s.Content
	prev.FileName = s.FileName
	prev.SubmittedAt = s.SubmittedAt
	repo.db.submissions[prev.ID] = prev
	return prev, stale, nil
}

func (repo *courseworkRepository) UpdateSubmission(_ context.Context, id int, fn func(s *coursework.Submission) error) (coursework.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s, ok := repo.db.submissions[id]
	if !ok {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	if err := fn(&s); err != nil {
		return coursework.Submission{}, err
	}
	repo.db.submissions[id] = s
	return s, nil
}
