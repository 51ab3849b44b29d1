package lesson

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

var (
	youtubeTag  = "youtube"
	youtubeText = "{0} must be a YouTube video link"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(youtubeTag, youtubeValidation)
	core.RegisterCustomTranslation(validate, translator, youtubeTag, youtubeText)
}

func youtubeValidation(fl validator.FieldLevel) bool {
	return youtubeRegex.MatchString(fl.Field().String())
}
