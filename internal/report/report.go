package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/marco/mediaVault/internal/duplicates"
	"github.com/marco/mediaVault/internal/media"
	"github.com/marco/mediaVault/internal/organizer"
	"github.com/marco/mediaVault/internal/scanner"
)

func humanBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// Scan writes category counts and skipped paths.
func Scan(w io.Writer, r *scanner.Report) {
	rows := make([][]string, 0, len(media.Categories)+1)
	for _, c := range media.Categories {
		rows = append(rows, []string{c.String(), strconv.Itoa(r.ByCategory[c])})
	}
	rows = append(rows, []string{"total", strconv.Itoa(r.Files)})
	fmt.Fprintln(w, renderTable([]string{"Category", "Files"}, rows, []columnAlignment{alignLeft, alignRight}))
	fmt.Fprintf(w, "Scanned %d root(s), %s in %d file(s)\n", len(r.Roots), humanBytes(r.Bytes), r.Files)

	if len(r.Skipped) == 0 {
		return
	}
	skipped := make([][]string, 0, len(r.Skipped))
	for _, s := range r.Skipped {
		skipped = append(skipped, []string{s.Path, s.Reason})
	}
	fmt.Fprintf(w, "\nSkipped %d unreadable path(s):\n", len(r.Skipped))
	fmt.Fprintln(w, renderTable([]string{"Path", "Reason"}, skipped, nil))
}

// Info writes one row per classified file.
func Info(w io.Writer, files []*media.File, layout organizer.Layout) {
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		rows = append(rows, []string{
			f.Path,
			f.Category.String(),
			describe(f),
			f.Attrs.Resolution,
			humanBytes(f.Size),
			layout.Destination(f),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"File", "Category", "Parsed", "Resolution", "Size", "Destination"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func describe(f *media.File) string {
	switch f.Category {
	case media.Movie:
		return fmt.Sprintf("%s (%d)", f.Attrs.Title, f.Attrs.Year)
	case media.TVEpisode:
		return fmt.Sprintf("%s S%02dE%02d", f.Attrs.ShowName, f.Attrs.Season, f.Attrs.Episode)
	default:
		return ""
	}
}

// Duplicates writes every group with its keeper first.
func Duplicates(w io.Writer, r *duplicates.Report) {
	for _, herr := range r.HashFailed {
		fmt.Fprintf(w, "Warning: could not hash %s: %v\n", herr.Path, herr.Err)
	}
	if len(r.Groups) == 0 {
		fmt.Fprintln(w, "No duplicates found.")
		return
	}

	fmt.Fprintf(w, "Found %d duplicate set(s), %s reclaimable (keep: %s):\n\n",
		len(r.Groups), humanBytes(r.Reclaimable()), r.Criteria)

	for i, g := range r.Groups {
		fmt.Fprintf(w, "━━━ Duplicate Set %d ━━━\n", i+1)
		fmt.Fprintf(w, "Digest: %s  Size: %s  Copies: %d\n", short(g.Digest), humanBytes(g.Size), len(g.Candidates)+1)

		rows := make([][]string, 0, len(g.Candidates)+1)
		for j, m := range g.Members() {
			marker := ""
			if j == 0 {
				marker = "★ KEEP"
			}
			rows = append(rows, []string{
				strconv.Itoa(j + 1),
				m.Path,
				duplicates.ParseQuality(m.Path).String(),
				m.ModTime.Format("2006-01-02 15:04"),
				marker,
			})
		}
		fmt.Fprintln(w, renderTable(
			[]string{"#", "Path", "Quality", "Modified", ""},
			rows,
			[]columnAlignment{alignRight},
		))
		fmt.Fprintln(w)
	}
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

// Removal writes the outcome of a duplicate removal.
func Removal(w io.Writer, r *duplicates.RemovalReport) {
	verb := "Removed"
	if r.DryRun {
		verb = "Would remove"
	}
	fmt.Fprintf(w, "%s %d file(s), %s reclaimed; %d failed\n", verb, len(r.Removed), humanBytes(r.BytesReclaimed), len(r.Failed))
	if len(r.Failed) == 0 {
		return
	}
	rows := make([][]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		rows = append(rows, []string{f.Path, f.Reason})
	}
	fmt.Fprintln(w, renderTable([]string{"Path", "Reason"}, rows, nil))
}

// Plan writes one row per primary and sidecar entry.
func Plan(w io.Writer, p *organizer.Plan) {
	rows := make([][]string, 0, len(p.Entries))
	for _, e := range p.Entries {
		rows = append(rows, []string{string(e.Action), e.Source, e.Destination, e.Error})
		for _, sc := range e.Sidecars {
			rows = append(rows, []string{"  " + string(sc.Action), sc.Source, sc.Destination, sc.Error})
		}
	}
	fmt.Fprintln(w, renderTable([]string{"Action", "Source", "Destination", "Error"}, rows, nil))

	counts := p.Counts()
	fmt.Fprintf(w, "Plan %s: %d move, %d renamed, %d already organized, %d failed\n",
		p.RunID,
		counts[organizer.ActionMove],
		counts[organizer.ActionRenamed],
		counts[organizer.ActionSkip],
		counts[organizer.ActionFailed],
	)
}

// Execution writes the outcome of running a plan. Successful moves are only
// counted; skips and failures are listed.
func Execution(w io.Writer, r *organizer.ExecutionReport) {
	var rows [][]string
	for _, res := range r.Results {
		if res.Status == organizer.StatusFailed {
			rows = append(rows, []string{string(res.Status), res.Source, res.Error})
		}
	}
	if len(rows) > 0 {
		fmt.Fprintln(w, renderTable([]string{"Status", "Source", "Reason"}, rows, nil))
	}

	verb := "Moved"
	if r.DryRun {
		verb = "Would move"
	}
	fmt.Fprintf(w, "%s %d, skipped %d, failed %d\n", verb, r.Moved, r.Skipped, r.Failed)
}
