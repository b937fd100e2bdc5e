package locale

import "strings"

const Default = "en"

var names = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"hi": "Hindi",
	"ar": "Arabic",
	"zh": "Chinese",
	"ja": "Japanese",
	"ta": "Tamil",
}

func IsSupported(code string) bool {
	_, ok := names[strings.ToLower(strings.TrimSpace(code))]
	return ok
}

// Normalize lower-cases code and maps anything unsupported to Default.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if _, ok := names[code]; ok {
		return code
	}
	return Default
}

// Name returns the English name of the language, defaulting to English.
func Name(code string) string {
	return names[Normalize(code)]
}
