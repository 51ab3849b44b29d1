package academics

import (
	"regexp"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

var (
	lessonTypeTag  = "lessontype"
	lessonTypeText = "{0} must be one of: lecture, practice"

	eduTypeTag  = "edutype"
	eduTypeText = "{0} must be one of: full_time, part_time, evening"

	acadYearTag   = "acadyear"
	acadYearText  = "{0} must be formatted as YYYY-YYYY with consecutive years"
	acadYearRegex = regexp.MustCompile(`^(\d{4})-(\d{4})$`)
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(lessonTypeTag, lessonTypeValidation)
	core.RegisterCustomTranslation(validate, translator, lessonTypeTag, lessonTypeText)

	_ = validate.RegisterValidation(eduTypeTag, eduTypeValidation)
	core.RegisterCustomTranslation(validate, translator, eduTypeTag, eduTypeText)

	_ = validate.RegisterValidation(acadYearTag, acadYearValidation)
	core.RegisterCustomTranslation(validate, translator, acadYearTag, acadYearText)
}

func lessonTypeValidation(fl validator.FieldLevel) bool {
	return LessonType(fl.Field().String()).IsValid()
}

func eduTypeValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, et := range EducationTypes {
		if et == val {
			return true
		}
	}
	return false
}

// acadYearValidation accepts "2024-2025".
func acadYearValidation(fl validator.FieldLevel) bool {
	m := acadYearRegex.FindStringSubmatch(fl.Field().String())
	if m == nil {
		return false
	}
	from, _ := strconv.Atoi(m[1])
	to, _ := strconv.Atoi(m[2])
	return to == from+1
}
