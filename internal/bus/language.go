package bus

import "golang.org/x/text/language"

// NormalizeLanguage canonicalizes a component's language tag to its
// ISO 639-3 three-letter form (e.g. "deu", not the 639-2/B "ger")
// where recognized, leaving the input
// untouched otherwise (many MPEG-TS sources already carry a bare
// three-letter code that parses as its own canonical form).
func NormalizeLanguage(tag string) string {
	if tag == "" {
		return tag
	}
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	base, conf := t.Base()
	if conf == language.No {
		return tag
	}
	return base.ISO3()
}
