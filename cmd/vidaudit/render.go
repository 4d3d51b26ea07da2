package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vidaudit/internal/dataset"
	"vidaudit/internal/reconcile"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

var titleCaser = cases.Title(language.Und)

// renderTable builds a rounded table. Columns named in numeric (zero-based)
// are right-aligned count columns; everything else stays left-aligned.
func renderTable(headers []string, rows [][]string, numeric ...int) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(numeric))
	for _, col := range numeric {
		configs = append(configs, table.ColumnConfig{
			Number:      col + 1,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// kindLabel renders an artifact kind for humans: "media_info" -> "Media Info".
func kindLabel(kind dataset.Kind) string {
	return titleCaser.String(strings.ReplaceAll(string(kind), "_", " "))
}

// printReport writes the reconciliation report as tables plus a verdict line.
func printReport(out io.Writer, report *reconcile.Report) {
	rows := make([][]string, 0, len(dataset.Kinds()))
	for _, kind := range dataset.Kinds() {
		rows = append(rows, []string{
			kindLabel(kind),
			strconv.Itoa(report.FileCounts[kind]),
			strconv.Itoa(len(report.EmptyFiles[kind])),
			strconv.Itoa(len(report.MissingFiles[kind])),
			strconv.Itoa(len(report.PatternFiles[kind]) + len(report.ExtraArtifacts[kind])),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Artifact", "Files", "Empty", "Missing", "Duplicates"},
		rows, 1, 2, 3, 4))

	if len(report.LevelGaps) > 0 {
		gapRows := make([][]string, 0, len(report.LevelGaps))
		for level, numbers := range report.LevelGaps {
			parts := make([]string, len(numbers))
			for i, n := range numbers {
				parts[i] = strconv.Itoa(n)
			}
			gapRows = append(gapRows, []string{"L" + level, strings.Join(parts, ", ")})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Level", "Missing Numbers"},
			gapRows))
	}

	for _, issue := range report.Issues() {
		fmt.Fprintf(out, "  %s\n", issue)
	}

	fmt.Fprintf(out, "Videos: %d\n", report.Summary.Videos)
	fmt.Fprintln(out, verdictLine(out, report.Summary.OverallStatus))
}

// verdictLine colors the status line green or red when out is a terminal.
func verdictLine(out io.Writer, status reconcile.Status) string {
	line := "Status: " + string(status)
	file, ok := out.(*os.File)
	if !ok || !(isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())) {
		return line
	}
	if status == reconcile.StatusPass {
		return ansiGreen + line + ansiReset
	}
	return ansiRed + line + ansiReset
}
