package duplicates

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Quality markers parsed from a file name. They are shown next to each
// copy; keeper choice is by size and time only.
var (
	resolutionExtractPattern = regexp.MustCompile(`(?i)\b(2160p|1080p|1080i|720p|720i|480p|4K)\b`)
	sourceExtractPattern     = regexp.MustCompile(`(?i)\b(BluRay|BRRip|BDRip|WEB-DL|WEBRip|HDRip|DVDRip|HDTV|WEB|CAM|TS|TC|DVDSCR|R5|SCREENER)\b`)
)

// Resolution quality ranking (higher is better)
var resolutionRank = map[string]int{
	"2160p": 4,
	"1080p": 3,
	"1080i": 2,
	"720p":  2,
	"720i":  1,
	"480p":  1,
}

// Source quality ranking (higher is better)
var sourceRank = map[string]int{
	"bluray":   8,
	"bdrip":    7,
	"brrip":    7,
	"web-dl":   6,
	"webrip":   5,
	"hdrip":    4,
	"hdtv":     4,
	"web":      4,
	"dvdrip":   3,
	"dvdscr":   2,
	"screener": 2,
	"r5":       2,
	"ts":       1,
	"tc":       1,
	"cam":      0,
}

// Quality describes the release markers found in a file name.
type Quality struct {
	Resolution string `json:"resolution,omitempty"` // e.g. "1080p"
	Source     string `json:"source,omitempty"`     // e.g. "BluRay"
	Score      int    `json:"score"`
}

// ParseQuality extracts resolution and source markers from path's base name.
func ParseQuality(path string) Quality {
	name := strings.ReplaceAll(filepath.Base(path), "_", " ")

	var q Quality
	if match := resolutionExtractPattern.FindString(name); match != "" {
		q.Resolution = strings.ToLower(match)
		if q.Resolution == "4k" {
			q.Resolution = "2160p"
		}
	}
	if match := sourceExtractPattern.FindString(name); match != "" {
		q.Source = match
	}

	// resolution outweighs source: 2160p WEB-DL (46) > 1080p BluRay (38)
	q.Score = resolutionRank[q.Resolution]*10 + sourceRank[strings.ToLower(q.Source)]
	return q
}

// String renders the markers for display.
func (q Quality) String() string {
	var parts []string
	if q.Resolution != "" {
		parts = append(parts, strings.ToUpper(q.Resolution))
	}
	if q.Source != "" {
		parts = append(parts, q.Source)
	}
	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, " ")
}
