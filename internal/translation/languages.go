package translation

import (
	"sort"
	"strings"
)

var translationLanguageLabels = map[string]string{
	"ar": "Arabic",
	"de": "German",
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"id": "Indonesian",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"pl": "Polish",
	"pt": "Portuguese",
	"ru": "Russian",
	"th": "Thai",
	"tr": "Turkish",
	"vi": "Vietnamese",
	"zh": "Chinese",
}

func SupportedTranslationLanguageCodes() []string {
	codes := make([]string, 0, len(translationLanguageLabels))
	for code := range translationLanguageLabels {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// languageLabel resolves a code to the English language name used in
// translation prompts. Unknown codes fall back to the upper-cased code so
// the prompt still reads sensibly.
func languageLabel(code string) string {
	normalized := normalizeLangCode(code)
	if label, ok := translationLanguageLabels[normalized]; ok {
		return label
	}
	if normalized == "" {
		return "English"
	}
	return strings.ToUpper(normalized)
}

func normalizeLangCode(raw string) string {
	code := strings.ToLower(strings.TrimSpace(raw))
	if idx := strings.IndexAny(code, "-_"); idx > 0 {
		code = code[:idx]
	}
	return code
}
