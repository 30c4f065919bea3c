package appshelf

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// Language is a two-letter target language code accepted by the translation backend.
type Language string

// Supported target languages.
const (
	LangBG Language = "BG"
	LangCS Language = "CS"
	LangDA Language = "DA"
	LangDE Language = "DE"
	LangEL Language = "EL"
	LangEN Language = "EN"
	LangES Language = "ES"
	LangET Language = "ET"
	LangFI Language = "FI"
	LangFR Language = "FR"
	LangHU Language = "HU"
	LangID Language = "ID"
	LangIT Language = "IT"
	LangJA Language = "JA"
	LangKO Language = "KO"
	LangLT Language = "LT"
	LangLV Language = "LV"
	LangNB Language = "NB"
	LangNL Language = "NL"
	LangPL Language = "PL"
	LangPT Language = "PT"
	LangRO Language = "RO"
	LangRU Language = "RU"
	LangSK Language = "SK"
	LangSL Language = "SL"
	LangSV Language = "SV"
	LangTR Language = "TR"
	LangUK Language = "UK"
	LangZH Language = "ZH"
)

// DefaultLanguage is used for locales outside the supported set.
const DefaultLanguage = LangEN

// LanguageNames maps supported codes to human-readable names.
var LanguageNames = map[Language]string{
	LangBG: "Bulgarian",
	LangCS: "Czech",
	LangDA: "Danish",
	LangDE: "German",
	LangEL: "Greek",
	LangEN: "English",
	LangES: "Spanish",
	LangET: "Estonian",
	LangFI: "Finnish",
	LangFR: "French",
	LangHU: "Hungarian",
	LangID: "Indonesian",
	LangIT: "Italian",
	LangJA: "Japanese",
	LangKO: "Korean",
	LangLT: "Lithuanian",
	LangLV: "Latvian",
	LangNB: "Norwegian Bokmål",
	LangNL: "Dutch",
	LangPL: "Polish",
	LangPT: "Portuguese",
	LangRO: "Romanian",
	LangRU: "Russian",
	LangSK: "Slovak",
	LangSL: "Slovenian",
	LangSV: "Swedish",
	LangTR: "Turkish",
	LangUK: "Ukrainian",
	LangZH: "Chinese",
}

// primaryAliases maps primary subtags that differ from the backend code.
var primaryAliases = map[string]Language{
	"NO": LangNB,
	"NN": LangNB,
	"GR": LangEL,
}

// IsSupported reports whether the language is in the supported set.
func (l Language) IsSupported() bool {
	_, ok := LanguageNames[l]
	return ok
}

// Name returns the human-readable name, or the code itself when unknown.
func (l Language) Name() string {
	if name, ok := LanguageNames[l]; ok {
		return name
	}
	return string(l)
}

// ParseLanguage validates a two-letter language code (case-insensitive).
func ParseLanguage(code string) (Language, error) {
	lang := Language(strings.ToUpper(strings.TrimSpace(code)))
	if lang.IsSupported() {
		return lang, nil
	}
	return "", fmt.Errorf("unsupported language code %q", code)
}

// LanguageFromLocale maps a locale tag such as "es-MX" or "pt_BR" to a
// supported language. Unknown tags map to DefaultLanguage.
func LanguageFromLocale(locale string) Language {
	primary := PrimarySubtag(locale)
	if primary == "" {
		return DefaultLanguage
	}
	if alias, ok := primaryAliases[primary]; ok {
		return alias
	}
	lang := Language(primary)
	if lang.IsSupported() {
		return lang
	}
	return DefaultLanguage
}

// PrimarySubtag returns the uppercased primary subtag of a locale tag.
func PrimarySubtag(locale string) string {
	trimmed := strings.TrimSpace(locale)
	if i := strings.IndexAny(trimmed, "-_"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return strings.ToUpper(trimmed)
}

// LanguageFromAcceptLanguage picks the highest-weighted supported language
// from an Accept-Language header. Ranges with q=0 are never chosen, and
// ranges that do not parse are skipped. With no supported range the result
// is DefaultLanguage.
func LanguageFromAcceptLanguage(header string) Language {
	type candidate struct {
		lang Language
		q    float32
	}

	var candidates []candidate
	for _, part := range strings.Split(header, ",") {
		// One range at a time: x/text rejects the whole list on an unknown tag.
		tags, weights, err := language.ParseAcceptLanguage(part)
		if err != nil || len(tags) == 0 || weights[0] <= 0 {
			continue
		}
		base, _ := tags[0].Base()
		if lang, ok := supportedPrimary(strings.ToUpper(base.String())); ok {
			candidates = append(candidates, candidate{lang, weights[0]})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].q > candidates[j].q })
	if len(candidates) == 0 {
		return DefaultLanguage
	}
	return candidates[0].lang
}

func supportedPrimary(primary string) (Language, bool) {
	if alias, ok := primaryAliases[primary]; ok {
		return alias, true
	}
	lang := Language(primary)
	return lang, lang.IsSupported()
}

// ToHTMLLang converts a language code to HTML lang attribute format ("ES" → "es").
func ToHTMLLang(lang Language) string {
	return strings.ToLower(string(lang))
}

// SupportedLanguages returns the supported codes in no particular order.
func SupportedLanguages() []Language {
	out := make([]Language, 0, len(LanguageNames))
	for l := range LanguageNames {
		out = append(out, l)
	}
	return out
}
