package announcement

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

func TestAnnouncement_VisibleTo(t *testing.T) {
	everyone := Announcement{}
	staff := Announcement{TargetRoles: []string{user.RoleTeacher, user.RoleDean}}

	assert.True(t, everyone.VisibleTo(user.RoleStudent))
	assert.True(t, staff.VisibleTo(user.RoleDean))
	assert.False(t, staff.VisibleTo(user.RoleStudent))
}

func TestForm_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	form := Form{Title: " Exams ", Content: " Week 12 ", TargetRoles: []string{" Student "}}
	require.NoError(t, form.Validate(validate))
	assert.Equal(t, "Exams", form.Title)
	assert.Equal(t, []string{user.RoleStudent}, form.TargetRoles)

	form = Form{Title: "Exams", Content: "Week 12", TargetRoles: []string{"janitor"}}
	assert.Error(t, form.Validate(validate))

	form = Form{Title: "Exams", Content: "   "}
	assert.Error(t, form.Validate(validate))
}
