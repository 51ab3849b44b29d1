package user

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/campus/core"
)

var (
	roleTag  = "role"
	roleText = "invalid role"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"

	pwdTexts = map[string]string{
		pwdMinLenTag:    pwdMinLenText,
		pwdNoSpaceTag:   pwdNoSpaceText,
		pwdNotAllNumTag: pwdNotAllNumText,
		pwdAttrSimTag:   pwdAttrSimText,
	}
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)

	validate.RegisterStructValidation(userStructValidation, NewUser{}, Registration{})
	for tag, text := range pwdTexts {
		core.RegisterCustomTranslation(validate, translator, tag, text)
	}
}

// Custom Validators

// roleValidation checks that the provided role is one of AllRoles.
func roleValidation(fl validator.FieldLevel) bool {
	return IsValidRole(fl.Field().String())
}

// userStructValidation applies the password policy on NewUser and Registration structs.
func userStructValidation(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		if tag := checkPassword(usr.Password, usr.Name, usr.Email, usr.StudentCode); tag != "" {
			sl.ReportError(usr.Password, "password", "Password", tag, "")
		}
	case Registration:
		if tag := checkPassword(usr.Password, usr.Name, usr.Email); tag != "" {
			sl.ReportError(usr.Password, "password", "Password", tag, "")
		}
	}
}

// validatePasswordStandalone applies the password policy outside of struct validation.
func validatePasswordStandalone(_ *validator.Validate, pwd string, usr User) error {
	if tag := checkPassword(pwd, usr.Name, usr.Email, usr.StudentCode); tag != "" {
		return core.NewFieldError("password", pwdTexts[tag])
	}
	return nil
}

// checkPassword applies the password policy and returns the failing rule tag, if any:
// - minLen: 8
// - no whitespace
// - no all numeric
// - no user attrs similarity
func checkPassword(pwd string, attrs ...string) string {
	runes := []rune(pwd)
	if len(runes) < pwdMinLen {
		return pwdMinLenTag
	}

	var digitCount int
	for _, char := range runes {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == len(runes) {
		return pwdNotAllNumTag
	}

	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		ratio := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(strings.ToLower(attr), "")).QuickRatio()
		if ratio >= pwdMaxSim {
			return pwdAttrSimTag
		}
	}
	return ""
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
