package academics

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
)

func newValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

func TestTeacherAssignmentForm_Validate(t *testing.T) {
	validate := newValidator()
	valid := TeacherAssignmentForm{TeacherID: 1, SubjectID: 2, GroupID: 3, LessonType: Lecture, AcademicYear: " 2024-2025 ", Semester: 1}

	tests := []struct {
		name    string
		modify  func(f *TeacherAssignmentForm)
		wantErr string // failing field
	}{
		{name: "valid", modify: func(f *TeacherAssignmentForm) {}},
		{name: "years not consecutive", modify: func(f *TeacherAssignmentForm) { f.AcademicYear = "2024-2026" }, wantErr: "academic_year"},
		{name: "bad year format", modify: func(f *TeacherAssignmentForm) { f.AcademicYear = "24-25" }, wantErr: "academic_year"},
		{name: "bad lesson type", modify: func(f *TeacherAssignmentForm) { f.LessonType = "lab" }, wantErr: "lesson_type"},
		{name: "bad semester", modify: func(f *TeacherAssignmentForm) { f.Semester = 3 }, wantErr: "semester"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := valid
			tt.modify(&form)
			err := form.Validate(validate)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "2024-2025", form.AcademicYear)
				return
			}
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.wantErr, verrs[0].Field())
		})
	}
}

func TestGroupForm_Validate(t *testing.T) {
	validate := newValidator()

	form := GroupForm{Name: " cs-101 ", CourseYear: 1}
	require.NoError(t, form.Validate(validate))
	assert.Equal(t, "CS-101", form.Name)
	assert.Equal(t, FullTime, form.EducationType)

	form = GroupForm{Name: "cs-101", CourseYear: 1, EducationType: "Remote"}
	assert.Error(t, form.Validate(validate))

	form = GroupForm{Name: "cs-101", CourseYear: 7, EducationType: "EVENING"}
	assert.Error(t, form.Validate(validate))
}

func TestScheduleForm_Validate(t *testing.T) {
	validate := newValidator()
	valid := ScheduleForm{SubjectID: 1, GroupID: 1, DayOfWeek: 0, StartTime: "09:00", EndTime: "10:20", LessonType: Practice}

	form := valid
	require.NoError(t, form.Validate(validate))

	form = valid
	form.StartTime = "9am"
	assert.Error(t, form.Validate(validate))

	form = valid
	form.DayOfWeek = 6
	assert.Error(t, form.Validate(validate), "no classes on sunday")
}

func TestScheduleEntry_Weekday(t *testing.T) {
	assert.Equal(t, "Monday", ScheduleEntry{DayOfWeek: 0}.Weekday())
	assert.Equal(t, "Saturday", ScheduleEntry{DayOfWeek: 5}.Weekday())
	assert.Empty(t, ScheduleEntry{DayOfWeek: 6}.Weekday())
}

func TestAssignmentFilter_Match(t *testing.T) {
	ta := TeacherAssignment{TeacherID: 1, SubjectID: 2, GroupID: 3, LessonType: Lecture, AcademicYear: "2024-2025", Semester: 1}

	assert.True(t, AssignmentFilter{}.Match(ta))
	assert.True(t, AssignmentFilter{TeacherID: 1, SubjectID: 2, GroupIDs: []int{3, 4}}.Match(ta))
	assert.False(t, AssignmentFilter{GroupIDs: []int{}}.Match(ta))
	assert.False(t, AssignmentFilter{LessonType: Practice}.Match(ta))
	assert.False(t, AssignmentFilter{Semester: 2}.Match(ta))
}
