// Package reconcile checks a scanned artifact index for completeness and
// consistency: empty files, duplicate artifacts, suspicious filename
// patterns, cross-kind missing artifacts, and level sequence gaps.
//
// Every check runs to completion over the whole index before the verdict is
// computed; a defect in one kind never hides defects in another.
package reconcile

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"vidaudit/internal/dataset"
	"vidaudit/internal/identity"
)

// Status is the overall verdict of a reconciliation run.
type Status string

const (
	StatusPass   Status = "PASS"
	StatusIssues Status = "ISSUES_FOUND"
)

// smallFileThreshold marks files worth a second look. Small files are
// reported for information only and never affect the verdict.
const smallFileThreshold = 1024

// duplicatePatterns are filename suffixes left behind by copy tools and
// manual dedup attempts. Matched against the stem, case-insensitively.
var duplicatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\([0-9]+\)`),
	regexp.MustCompile(`(?i)_copy`),
	regexp.MustCompile(`(?i)_duplicate`),
	regexp.MustCompile(`(?i)_backup`),
	regexp.MustCompile(`(?i)_old`),
	regexp.MustCompile(`(?i)_new`),
	regexp.MustCompile(`(?i)_v[0-9]+`),
}

// canonicalStem exempts well-formed artifact names from the pattern check;
// the `_V001` segment of a canonical name would otherwise trip `_v[0-9]+`.
var canonicalStem = regexp.MustCompile(`^L\d+_V\d+(_\d+)?$`)

// Options selects which checks run.
type Options struct {
	// CrossDirectory enables the missing-artifact check across kinds. The
	// single-directory validation mode leaves it off because a video absent
	// from one tree is only meaningful when all trees are compared.
	CrossDirectory bool
}

// Report is the full reconciliation result. List fields are sorted so the
// report is stable across runs regardless of filesystem iteration order.
type Report struct {
	Root            string                    `json:"root"`
	FileCounts      map[dataset.Kind]int      `json:"file_counts"`
	EmptyFiles      map[dataset.Kind][]string `json:"empty_files"`
	SmallFiles      map[dataset.Kind][]string `json:"small_files"`
	PatternFiles    map[dataset.Kind][]string `json:"duplicate_pattern_files"`
	ExtraArtifacts  map[dataset.Kind][]string `json:"duplicate_artifacts"`
	MissingFiles    map[dataset.Kind][]string `json:"missing_files"`
	LevelGaps       map[string][]int          `json:"level_gaps"`
	StructureIssues []string                  `json:"structure_issues"`
	Summary         Summary                   `json:"summary"`
}

// Summary carries the aggregate counts the verdict is computed from.
type Summary struct {
	Videos          int    `json:"videos"`
	EmptyFiles      int    `json:"empty_files"`
	Duplicates      int    `json:"duplicates"`
	MissingFiles    int    `json:"missing_files"`
	StructureIssues int    `json:"structure_issues"`
	LevelGaps       int    `json:"level_gaps"`
	OverallStatus   Status `json:"overall_status"`
}

// Run reconciles the index. The returned report is complete: no check
// short-circuits on the first defect.
func Run(idx *dataset.Index, opts Options) *Report {
	report := &Report{
		Root:            idx.Root,
		FileCounts:      make(map[dataset.Kind]int),
		EmptyFiles:      make(map[dataset.Kind][]string),
		SmallFiles:      make(map[dataset.Kind][]string),
		PatternFiles:    make(map[dataset.Kind][]string),
		ExtraArtifacts:  make(map[dataset.Kind][]string),
		MissingFiles:    make(map[dataset.Kind][]string),
		LevelGaps:       make(map[string][]int),
		StructureIssues: append([]string(nil), idx.StructureIssues...),
	}

	for _, kind := range dataset.Kinds() {
		report.FileCounts[kind] = len(idx.Unresolved[kind])
	}

	videos := idx.Videos()
	for _, id := range videos {
		for kind, entries := range idx.Files[id] {
			report.FileCounts[kind] += len(entries)
			for _, entry := range entries {
				checkFile(report, kind, entry)
			}
			if !kind.Multiple() && len(entries) > 1 {
				report.ExtraArtifacts[kind] = append(report.ExtraArtifacts[kind], string(id))
			}
		}
	}

	// Unresolved files still get the per-file checks; they just cannot
	// participate in per-video checks.
	for kind, entries := range idx.Unresolved {
		for _, entry := range entries {
			checkFile(report, kind, entry)
		}
	}

	if opts.CrossDirectory {
		checkMissing(report, idx, videos)
	}
	checkGaps(report, videos)

	sortReport(report)
	report.Summary = summarize(report, len(videos), opts)
	return report
}

func checkFile(report *Report, kind dataset.Kind, entry dataset.Entry) {
	switch {
	case entry.Size == 0:
		report.EmptyFiles[kind] = append(report.EmptyFiles[kind], entry.Path)
	case entry.Size < smallFileThreshold:
		report.SmallFiles[kind] = append(report.SmallFiles[kind], entry.Path)
	}
	checkPattern(report, kind, entry.Path)
}

func checkPattern(report *Report, kind dataset.Kind, path string) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if canonicalStem.MatchString(stem) {
		return
	}
	for _, pattern := range duplicatePatterns {
		if pattern.MatchString(stem) {
			report.PatternFiles[kind] = append(report.PatternFiles[kind], path)
			return
		}
	}
}

func checkMissing(report *Report, idx *dataset.Index, videos []identity.ID) {
	for _, id := range videos {
		for _, kind := range dataset.Kinds() {
			if len(idx.Files[id][kind]) == 0 {
				report.MissingFiles[kind] = append(report.MissingFiles[kind], string(id))
			}
		}
	}
}

func checkGaps(report *Report, videos []identity.ID) {
	seen := make(map[int]map[int]bool)
	for _, id := range videos {
		level, number, ok := id.Components()
		if !ok {
			continue
		}
		if seen[level] == nil {
			seen[level] = make(map[int]bool)
		}
		seen[level][number] = true
	}

	for level, numbers := range seen {
		maxNumber := 0
		for n := range numbers {
			if n > maxNumber {
				maxNumber = n
			}
		}
		var gaps []int
		for n := 1; n <= maxNumber; n++ {
			if !numbers[n] {
				gaps = append(gaps, n)
			}
		}
		if len(gaps) > 0 {
			report.LevelGaps[strconv.Itoa(level)] = gaps
		}
	}
}

func sortReport(report *Report) {
	for _, lists := range []map[dataset.Kind][]string{
		report.EmptyFiles, report.SmallFiles, report.PatternFiles,
		report.ExtraArtifacts, report.MissingFiles,
	} {
		for kind := range lists {
			sort.Strings(lists[kind])
		}
	}
	for level := range report.LevelGaps {
		sort.Ints(report.LevelGaps[level])
	}
	sort.Strings(report.StructureIssues)
}

func summarize(report *Report, videos int, opts Options) Summary {
	s := Summary{
		Videos:          videos,
		StructureIssues: len(report.StructureIssues),
		LevelGaps:       len(report.LevelGaps),
	}
	for _, paths := range report.EmptyFiles {
		s.EmptyFiles += len(paths)
	}
	for _, paths := range report.PatternFiles {
		s.Duplicates += len(paths)
	}
	for _, ids := range report.ExtraArtifacts {
		s.Duplicates += len(ids)
	}
	if opts.CrossDirectory {
		for _, ids := range report.MissingFiles {
			s.MissingFiles += len(ids)
		}
	}

	s.OverallStatus = StatusPass
	if s.EmptyFiles > 0 || s.Duplicates > 0 || s.MissingFiles > 0 || s.StructureIssues > 0 {
		s.OverallStatus = StatusIssues
	}
	return s
}

// Issues renders the report's defects as human-readable lines, one per
// defect, for table output and log records.
func (r *Report) Issues() []string {
	var lines []string
	appendKindList := func(label string, lists map[dataset.Kind][]string) {
		for _, kind := range dataset.Kinds() {
			for _, item := range lists[kind] {
				lines = append(lines, fmt.Sprintf("%s [%s]: %s", label, kind, item))
			}
		}
	}
	appendKindList("empty file", r.EmptyFiles)
	appendKindList("duplicate pattern", r.PatternFiles)
	appendKindList("duplicate artifact", r.ExtraArtifacts)
	appendKindList("missing", r.MissingFiles)
	for _, issue := range r.StructureIssues {
		lines = append(lines, "structure: "+issue)
	}
	return lines
}
