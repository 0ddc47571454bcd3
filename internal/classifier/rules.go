package classifier

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/marco/mediaVault/internal/media"
)

// Input is the part of a scanned file the rules look at.
type Input struct {
	Base string // file name without extension, NFC
	Ext  string // lower-case, with dot
	Dir  string // parent directory
}

// Rule pairs a predicate with an attribute extractor. Rules are evaluated
// in order by [Classifier.Classify]; first match wins.
type Rule struct {
	Name     string
	Category media.Category
	Match    func(c *Classifier, in Input) (media.Attributes, bool)
}

// Season/episode tokens. Group 1 is the leading boundary, 2 the season and
// 3 the episode.
var (
	reSxxExx = regexp.MustCompile(
		`(?i)(^|[^[:alnum:]])s([0-9]{1,2})[ ._\-]?e([0-9]{1,3})(?:-?e[0-9]{1,3})*(?:v[0-9]+)?([^[:alnum:]]|$)`)

	re1x01 = regexp.MustCompile(
		`(?i)(^|[^[:alnum:]])([0-9]{1,2})x([0-9]{2,3})([^[:alnum:]]|$)`)

	reSeasonEpisode = regexp.MustCompile(
		`(?i)(^|[^[:alnum:]])season[ ._\-]*([0-9]{1,2})[ ._\-]*episode[ ._\-]*([0-9]{1,3})([^[:alnum:]]|$)`)

	reSeasonDir = regexp.MustCompile(`(?i)^(season[ ._\-]*[0-9]{1,2}|s[0-9]{1,2}|specials?)$`)
)

// Rules is the classification precedence table. A season/episode token
// outranks a year, and both outrank the extension fallbacks. Files matching
// nothing are Unsorted.
var Rules = []Rule{
	tvRule("tv-sxxexx", reSxxExx),
	tvRule("tv-nxnn", re1x01),
	tvRule("tv-season-episode", reSeasonEpisode),
	{Name: "movie-year", Category: media.Movie, Match: matchMovie},
	{Name: "photo-extension", Category: media.Photo, Match: func(c *Classifier, in Input) (media.Attributes, bool) {
		return media.Attributes{}, c.photo[in.Ext]
	}},
	{Name: "audio-extension", Category: media.Music, Match: func(c *Classifier, in Input) (media.Attributes, bool) {
		return media.Attributes{}, c.audio[in.Ext]
	}},
}

// DefaultRule names the fallthrough when no rule matches.
const DefaultRule = "default"

func tvRule(name string, re *regexp.Regexp) Rule {
	return Rule{
		Name:     name,
		Category: media.TVEpisode,
		Match: func(c *Classifier, in Input) (media.Attributes, bool) {
			if !c.video[in.Ext] {
				return media.Attributes{}, false
			}
			loc := re.FindStringSubmatchIndex(in.Base)
			if loc == nil {
				return media.Attributes{}, false
			}

			show := NormalizeTitle(in.Base[:loc[3]])
			if show == "" {
				show = showFromDir(in.Dir)
			}
			if show == "" {
				return media.Attributes{}, false
			}

			return media.Attributes{
				ShowName: show,
				Season:   atoi(in.Base[loc[4]:loc[5]]),
				Episode:  atoi(in.Base[loc[6]:loc[7]]),
			}, true
		},
	}
}

// showFromDir derives a show name from the parent directory, skipping a
// season or specials folder.
func showFromDir(dir string) string {
	name := filepath.Base(dir)
	if reSeasonDir.MatchString(name) {
		name = filepath.Base(filepath.Dir(dir))
	}
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return NormalizeTitle(name)
}

func matchMovie(c *Classifier, in Input) (media.Attributes, bool) {
	if !c.video[in.Ext] || IsExtra(in.Base) {
		return media.Attributes{}, false
	}

	maxYear := c.now().Year() + 1
	var (
		title string
		year  int
	)
	for _, cand := range yearCandidates(in.Base) {
		if cand.year < 1900 || cand.year > maxYear {
			continue
		}
		if t := NormalizeTitle(in.Base[:cand.start]); t != "" {
			title, year = t, cand.year
		}
	}
	if year == 0 {
		return media.Attributes{}, false
	}
	return media.Attributes{Title: title, Year: year}, true
}

type yearCandidate struct {
	start int
	year  int
}

// yearCandidates returns every maximal run of exactly four digits whose
// neighbours are separators or the ends of the name.
func yearCandidates(base string) []yearCandidate {
	var out []yearCandidate
	for i := 0; i < len(base); {
		if !isDigit(base[i]) {
			i++
			continue
		}
		j := i
		for j < len(base) && isDigit(base[j]) {
			j++
		}
		if j-i == 4 && (i == 0 || isYearBoundary(base[i-1])) && (j == len(base) || isYearBoundary(base[j])) {
			out = append(out, yearCandidate{start: i, year: atoi(base[i:j])})
		}
		i = j
	}
	return out
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isYearBoundary(b byte) bool {
	switch b {
	case '.', '_', '-', '(', ')', '[', ']', '{', '}':
		return true
	}
	return unicode.IsSpace(rune(b))
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
