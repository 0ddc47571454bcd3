package classifier

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	bracketPattern = regexp.MustCompile(`\[[^\]]*\]|\{[^}]*\}`)

	// Technical markers. The earliest match in a name ends the title.
	resolutionPattern = regexp.MustCompile(`(?i)\b(2160p|1440p|1080p|1080i|720p|576p|480p|4K|UHD)\b`)
	qualityPattern    = regexp.MustCompile(`(?i)\b(Blu-?Ray|BDRip|BRRip|WEB-?DL|WEBRip|HDRip|DVDRip|DVDScr|HDTV|REMUX|HDCAM)\b`)
	codecPattern      = regexp.MustCompile(`(?i)\b(x264|x265|H\.?264|H\.?265|HEVC|XviD|DivX|AVC|10bit)\b`)
	audioPattern      = regexp.MustCompile(`(?i)\b(AAC|AC3|DTS|DD5\.1|DDP5\.1|TrueHD|Atmos|DTS-HD)\b`)
	extraInfoPattern  = regexp.MustCompile(`(?i)\b(EXTENDED|UNRATED|DIRECTOR.?S.?CUT|REMASTERED|THEATRICAL|IMAX|HDR|HDR10|PROPER|REPACK)\b`)
	groupPattern      = regexp.MustCompile(`(?i)\b(RARBG|YTS|YIFY|EVO|FGT|CMRG|ION10)\b`)

	technicalPatterns = []*regexp.Regexp{
		resolutionPattern, qualityPattern, codecPattern, audioPattern, extraInfoPattern, groupPattern,
	}

	extrasPattern = regexp.MustCompile(`(?i)(^|[^[:alnum:]])(sample|trailer|featurettes?|behind[ ._\-]the[ ._\-]scenes|deleted[ ._\-]scenes?)([^[:alnum:]]|$)`)
)

// NormalizeTitle turns the raw text before a year or episode token into a
// display title: bracketed groups are dropped, everything from the first
// technical marker on is cut, and the remaining words are joined with
// single spaces.
func NormalizeTitle(raw string) string {
	name := bracketPattern.ReplaceAllString(raw, " ")
	// \b treats '_' as a word character
	name = strings.ReplaceAll(name, "_", " ")

	cut := len(name)
	for _, re := range technicalPatterns {
		if loc := re.FindStringIndex(name); loc != nil && loc[0] < cut {
			cut = loc[0]
		}
	}
	name = name[:cut]

	words := strings.FieldsFunc(name, func(r rune) bool {
		switch r {
		case '.', '-', '(', ')':
			return true
		}
		return unicode.IsSpace(r)
	})
	return norm.NFC.String(strings.Join(words, " "))
}

// Resolution returns the lower-cased resolution marker in name, if any.
func Resolution(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToLower(resolutionPattern.FindString(name))
}

// IsExtra reports whether name looks like a sample, trailer or other bonus
// clip rather than a feature.
func IsExtra(name string) bool {
	return extrasPattern.MatchString(name)
}
