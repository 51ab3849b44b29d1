package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/campus/core/academics"
)

type academicsRepository struct {
	db *DB
}

var _ academics.Repository = (*academicsRepository)(nil) // interface compliance check

func NewAcademicsRepository(db *DB) *academicsRepository {
	return &academicsRepository{db: db}
}

// Faculties

func (repo *academicsRepository) CreateFaculty(_ context.Context, f academics.Faculty) (academics.Faculty, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	f.ID = repo.db.nextID("faculties")
	repo.db.faculties[f.ID] = f
	return f, nil
}

func (repo *academicsRepository) UpdateFaculty(_ context.Context, f academics.Faculty) (academics.Faculty, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.faculties[f.ID]; !ok {
		return academics.Faculty{}, academics.ErrFacultyNotFound
	}
	repo.db.faculties[f.ID] = f
	return f, nil
}

func (repo *academicsRepository) DeleteFaculty(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.faculties[id]; !ok {
		return academics.ErrFacultyNotFound
	}
	delete(repo.db.faculties, id)
	for _, g := range repo.db.groups {
		if g.FacultyID == id {
			repo.deleteGroup(g.ID)
		}
	}
	for _, s := range repo.db.subjects {
		if s.FacultyID == id {
			repo.deleteSubject(s.ID)
		}
	}
	for uid, u := range repo.db.users {
		if u.FacultyID == id {
			u.FacultyID = 0
			repo.db.users[uid] = u
		}
	}
	return nil
}

func (repo *academicsRepository) GetFaculty(_ context.Context, id int) (academics.Faculty, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if f, ok := repo.db.faculties[id]; ok {
		return f, nil
	}
	return academics.Faculty{}, academics.ErrFacultyNotFound
}

func (repo *academicsRepository) QueryFaculties(_ context.Context) ([]academics.Faculty, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	faculties := values(repo.db.faculties)
	sort.SliceStable(faculties, func(i, j int) bool { return faculties[i].Name < faculties[j].Name })
	return faculties, nil
}

// Groups

func (repo *academicsRepository) CreateGroup(_ context.Context, g academics.Group) (academics.Group, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	g.ID = repo.db.nextID("groups")
	repo.db.groups[g.ID] = g
	return g, nil
}

func (repo *academicsRepository) UpdateGroup(_ context.Context, g academics.Group) (academics.Group, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.groups[g.ID]; !ok {
		return academics.Group{}, academics.ErrGroupNotFound
	}
	repo.db.groups[g.ID] = g
	return g, nil
}

func (repo *academicsRepository) DeleteGroup(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.groups[id]; !ok {
		return academics.ErrGroupNotFound
	}
	repo.deleteGroup(id)
	return nil
}

// deleteGroup must be called with the write lock held.
func (repo *academicsRepository) deleteGroup(id int) {
	delete(repo.db.groups, id)
	for taID, ta := range repo.db.tas {
		if ta.GroupID == id {
			delete(repo.db.tas, taID)
		}
	}
	for seID, se := range repo.db.schedule {
		if se.GroupID == id {
			delete(repo.db.schedule, seID)
		}
	}
	for uid, u := range repo.db.users {
		if u.GroupID == id {
			u.GroupID = 0
			repo.db.users[uid] = u
		}
	}
}

func (repo *academicsRepository) GetGroup(_ context.Context, id int) (academics.Group, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if g, ok := repo.db.groups[id]; ok {
		return g, nil
	}
	return academics.Group{}, academics.ErrGroupNotFound
}

func (repo *academicsRepository) QueryGroups(_ context.Context, filter academics.GroupFilter) ([]academics.Group, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	groups := make([]academics.Group, 0)
	for _, g := range values(repo.db.groups) {
		if filter.Match(g) {
			groups = append(groups, g)
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].CourseYear != groups[j].CourseYear {
			return groups[i].CourseYear < groups[j].CourseYear
		}
		return groups[i].Name < groups[j].Name
	})
	return groups, nil
}

// Subjects

func (repo *academicsRepository) CreateSubject(_ context.Context, s academics.Subject) (academics.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s.ID = repo.db.nextID("subjects")
	repo.db.subjects[s.ID] = s
	return s, nil
}

func (repo *academicsRepository) UpdateSubject(_ context.Context, s academics.Subject) (academics.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.subjects[s.ID]; !ok {
		return academics.Subject{}, academics.ErrSubjectNotFound
	}
	repo.db.subjects[s.ID] = s
	return s, nil
}

func (repo *academicsRepository) DeleteSubject(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.subjects[id]; !ok {
		return academics.ErrSubjectNotFound
	}
	repo.deleteSubject(id)
	return nil
}

// deleteSubject must be called with the write lock held.
func (repo *academicsRepository) deleteSubject(id int) {
	delete(repo.db.subjects, id)
	for taID, ta := range repo.db.tas {
		if ta.SubjectID == id {
			delete(repo.db.tas, taID)
		}
	}
	for seID, se := range repo.db.schedule {
		if se.SubjectID == id {
			delete(repo.db.schedule, seID)
		}
	}
	for lid, l := range repo.db.lessons {
		if l.SubjectID == id {
			delete(repo.db.lessons, lid)
		}
	}
	for aid, a := range repo.db.assignments {
		if a.SubjectID == id {
			delete(repo.db.assignments, aid)
		}
	}
}

func (repo *academicsRepository) GetSubject(_ context.Context, id int) (academics.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.subjects[id]; ok {
		return s, nil
	}
	return academics.Subject{}, academics.ErrSubjectNotFound
}

func (repo *academicsRepository) QuerySubjects(_ context.Context, filter academics.SubjectFilter) ([]academics.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subjects := make([]academics.Subject, 0)
	for _, s := range values(repo.db.subjects) {
		if filter.Match(s) {
			subjects = append(subjects, s)
		}
	}
	sort.SliceStable(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

// Teacher assignments

func (repo *academicsRepository) CreateTeacherAssignment(_ context.Context, ta academics.TeacherAssignment) (academics.TeacherAssignment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	ta.ID = repo.db.nextID("teacher_assignments")
	repo.db.tas[ta.ID] = ta
	return ta, nil
}

func (repo *academicsRepository) DeleteTeacherAssignment(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.tas[id]; !ok {
		return academics.ErrAssignmentNotFound
	}
	delete(repo.db.tas, id)
	return nil
}

func (repo *academicsRepository) GetTeacherAssignment(_ context.Context, id int) (academics.TeacherAssignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if ta, ok := repo.db.tas[id]; ok {
		return ta, nil
	}
	return academics.TeacherAssignment{}, academics.ErrAssignmentNotFound
}

func (repo *academicsRepository) QueryTeacherAssignments(_ context.Context, filter academics.AssignmentFilter) ([]academics.TeacherAssignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	tas := make([]academics.TeacherAssignment, 0)
	for _, ta := range values(repo.db.tas) {
		if filter.Match(ta) {
			tas = append(tas, ta)
		}
	}
	return tas, nil
}

// Schedule

func (repo *academicsRepository) CreateScheduleEntry(_ context.Context, se academics.ScheduleEntry) (academics.ScheduleEntry, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	se.ID = repo.db.nextID("schedule_entries")
	repo.db.schedule[se.ID] = se
	return se, nil
}

func (repo *academicsRepository) DeleteScheduleEntry(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.schedule[id]; !ok {
		return academics.ErrScheduleNotFound
	}
	delete(repo.db.schedule, id)
	return nil
}

func (repo *academicsRepository) GetScheduleEntry(_ context.Context, id int) (academics.ScheduleEntry, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if se, ok := repo.db.schedule[id]; ok {
		return se, nil
	}
	return academics.ScheduleEntry{}, academics.ErrScheduleNotFound
}

func (repo *academicsRepository) QuerySchedule(_ context.Context, filter academics.ScheduleFilter) ([]academics.ScheduleEntry, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	entries := make([]academics.ScheduleEntry, 0)
	for _, se := range values(repo.db.schedule) {
		if filter.Match(se) {
			entries = append(entries, se)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].DayOfWeek != entries[j].DayOfWeek {
			return entries[i].DayOfWeek < entries[j].DayOfWeek
		}
		return entries[i].StartTime < entries[j].StartTime
	})
	return entries, nil
}
