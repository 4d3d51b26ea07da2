// Package framemap parses per-video keyframe-to-timestamp CSV maps and
// resolves keyframe numbers against them.
//
// Keyframe extraction tools in this ecosystem number frames inconsistently:
// some producers are 1-based, some 0-based, and some only agree with the
// map's frame_idx column. Lookup therefore walks an ordered fallback chain
// instead of assuming one convention.
package framemap

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Row is one timestamp record from a map CSV. Nil fields were absent or
// unparseable in the source; Defects names the columns whose non-empty
// values failed numeric conversion.
type Row struct {
	N        *int
	FrameIdx *int
	FPS      *float64
	PTSTime  *float64
	Defects  []string
}

// Table holds one video's map rows with both lookup keys. Rows reachable by
// neither key are still retained in Rows.
type Table struct {
	Rows       []*Row
	ByN        map[int]*Row
	ByFrameIdx map[int]*Row
}

// ParseCSV reads a map-keyframes CSV. Cell-level failures degrade to absent
// fields; only an unreadable file or missing header is an error.
func ParseCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read map csv header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}

	table := &Table{
		ByN:        make(map[int]*Row),
		ByFrameIdx: make(map[int]*Row),
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed CSV line; skip it and keep whatever else parses.
			continue
		}

		row := &Row{}
		row.N = parseIntCell(record, columns, "n", row)
		row.FrameIdx = parseIntCell(record, columns, "frame_idx", row)
		row.FPS = parseFloatCell(record, columns, "fps", row)
		row.PTSTime = parseFloatCell(record, columns, "pts_time", row)

		table.Rows = append(table.Rows, row)
		if row.N != nil {
			table.ByN[*row.N] = row
		}
		if row.FrameIdx != nil {
			table.ByFrameIdx[*row.FrameIdx] = row
		}
	}

	return table, nil
}

func cellValue(record []string, columns map[string]int, name string) (string, bool) {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return "", false
	}
	value := strings.TrimSpace(record[idx])
	if value == "" {
		return "", false
	}
	return value, true
}

func parseIntCell(record []string, columns map[string]int, name string, row *Row) *int {
	value, ok := cellValue(record, columns, name)
	if !ok {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		// Some producers emit floats for integer columns.
		f, ferr := strconv.ParseFloat(value, 64)
		if ferr != nil {
			row.Defects = append(row.Defects, name)
			return nil
		}
		parsed = int(f)
	}
	return &parsed
}

func parseFloatCell(record []string, columns map[string]int, name string, row *Row) *float64 {
	value, ok := cellValue(record, columns, name)
	if !ok {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		row.Defects = append(row.Defects, name)
		return nil
	}
	return &parsed
}

// Match is one lookup outcome. MatchByN is set only on the exact by-n hit;
// the zero-based by-n fallback leaves both flags false, so the record shows
// a row was found without vouching for the video's indexing convention.
// MatchByFrameIdx is set for either frame_idx candidate.
type Match struct {
	Row             *Row
	MatchByN        bool
	MatchByFrameIdx bool
}

// Lookup resolves nFromName through the ordered fallback chain:
// by-n exact, by-n zero-based, by-frame_idx exact, by-frame_idx zero-based.
// ok is false when no row matches.
func (t *Table) Lookup(nFromName int) (Match, bool) {
	if t == nil {
		return Match{}, false
	}
	for _, candidate := range []int{nFromName, nFromName - 1} {
		if row, ok := t.ByN[candidate]; ok {
			return Match{Row: row, MatchByN: candidate == nFromName}, true
		}
	}
	for _, candidate := range []int{nFromName, nFromName - 1} {
		if row, ok := t.ByFrameIdx[candidate]; ok {
			return Match{Row: row, MatchByFrameIdx: true}, true
		}
	}
	return Match{}, false
}

// DisplayFrame returns the frame number to show for this keyframe: the
// matched row's frame_idx when present, otherwise the filename-derived
// number.
func (m Match) DisplayFrame(nFromName int) int {
	if m.Row != nil && m.Row.FrameIdx != nil {
		return *m.Row.FrameIdx
	}
	return nFromName
}

// DisplayTime returns the timestamp to show: pts_time when present,
// otherwise frame_idx/fps when both are present, otherwise absent.
func (m Match) DisplayTime() (float64, bool) {
	if m.Row == nil {
		return 0, false
	}
	if m.Row.PTSTime != nil {
		return *m.Row.PTSTime, true
	}
	if m.Row.FrameIdx != nil && m.Row.FPS != nil && *m.Row.FPS != 0 {
		return float64(*m.Row.FrameIdx) / *m.Row.FPS, true
	}
	return 0, false
}

// FPS returns the matched row's fps when present.
func (m Match) FPS() (float64, bool) {
	if m.Row == nil || m.Row.FPS == nil {
		return 0, false
	}
	return *m.Row.FPS, true
}

// PTSTime returns the matched row's pts_time when present.
func (m Match) PTSTime() (float64, bool) {
	if m.Row == nil || m.Row.PTSTime == nil {
		return 0, false
	}
	return *m.Row.PTSTime, true
}
