// Package dataset describes the fixed on-disk layout of a video dataset and
// builds the per-video artifact index used by reconciliation.
//
// A dataset root contains six artifact trees. Four are flat directories of
// per-video files (video, clip-features-32, map-keyframes, media-info); two
// are nested, holding one subdirectory per video with numbered files inside
// (keyframes, objects). The indexer walks each tree with the traversal rule
// that matches its shape and groups every file under the video identity
// derived from its path.
package dataset

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"vidaudit/internal/identity"
)

// Kind names one of the six artifact categories produced per video.
type Kind string

const (
	KindVideos    Kind = "videos"
	KindKeyframes Kind = "keyframes"
	KindFeatures  Kind = "features"
	KindMaps      Kind = "maps"
	KindMediaInfo Kind = "media_info"
	KindObjects   Kind = "objects"
)

// Kinds returns all artifact kinds in reporting order.
func Kinds() []Kind {
	return []Kind{KindVideos, KindKeyframes, KindFeatures, KindMaps, KindMediaInfo, KindObjects}
}

type layout struct {
	dir    string
	ext    string
	nested bool
}

var layouts = map[Kind]layout{
	KindVideos:    {dir: "video", ext: ".mp4"},
	KindKeyframes: {dir: "keyframes", ext: ".jpg", nested: true},
	KindFeatures:  {dir: "clip-features-32", ext: ".npy"},
	KindMaps:      {dir: "map-keyframes", ext: ".csv"},
	KindMediaInfo: {dir: "media-info", ext: ".json"},
	KindObjects:   {dir: "objects", ext: ".json", nested: true},
}

// Dir returns the kind's top-level directory under the dataset root.
func (k Kind) Dir(root string) string {
	return filepath.Join(root, layouts[k].dir)
}

// Ext returns the file extension scanned for this kind.
func (k Kind) Ext() string {
	return layouts[k].ext
}

// Multiple reports whether more than one file per video is expected and
// normal for this kind. For all other kinds a second file is a defect.
func (k Kind) Multiple() bool {
	return layouts[k].nested
}

// Entry is one indexed artifact file.
type Entry struct {
	Path string
	Size int64
}

// Index groups every scanned artifact file by video identity and kind.
// Built fresh on each scan; never updated incrementally.
type Index struct {
	Root string

	// Files maps video identity -> kind -> paths, sorted per kind.
	Files map[identity.ID]map[Kind][]Entry

	// Unresolved lists files whose identity could not be derived, per kind.
	// Each such file is also recorded as a structure issue.
	Unresolved map[Kind][]Entry

	// StructureIssues records missing top-level directories and walk errors.
	StructureIssues []string
}

// Videos returns all observed identities in sorted order.
func (ix *Index) Videos() []identity.ID {
	ids := make([]identity.ID, 0, len(ix.Files))
	for id := range ix.Files {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Count returns the total number of indexed files for a kind.
func (ix *Index) Count(kind Kind) int {
	total := 0
	for _, byKind := range ix.Files {
		total += len(byKind[kind])
	}
	return total + len(ix.Unresolved[kind])
}

// Scan walks all six artifact trees under root and builds the index.
// A missing tree is recorded as a structure issue and scanning continues
// with the remaining kinds.
func Scan(root string) *Index {
	ix := &Index{
		Root:       root,
		Files:      make(map[identity.ID]map[Kind][]Entry),
		Unresolved: make(map[Kind][]Entry),
	}

	for _, kind := range Kinds() {
		for _, entry := range scanKind(ix, kind) {
			id, ok := identity.FromPath(entry.Path)
			if !ok {
				ix.Unresolved[kind] = append(ix.Unresolved[kind], entry)
				ix.StructureIssues = append(ix.StructureIssues, "unrecognized name: "+entry.Path)
				continue
			}
			byKind, ok := ix.Files[id]
			if !ok {
				byKind = make(map[Kind][]Entry)
				ix.Files[id] = byKind
			}
			byKind[kind] = append(byKind[kind], entry)
		}
	}

	for _, byKind := range ix.Files {
		for kind := range byKind {
			entries := byKind[kind]
			sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
		}
	}

	return ix
}

func scanKind(ix *Index, kind Kind) []Entry {
	dir := kind.Dir(ix.Root)
	if !dirExists(dir) {
		ix.StructureIssues = append(ix.StructureIssues, "directory not found: "+dir)
		return nil
	}

	if layouts[kind].nested {
		return scanNested(ix, kind, dir)
	}
	return scanFlat(ix, kind, dir)
}

// scanNested walks one per-video subdirectory at a time. Stray files at the
// top level of a nested tree are ignored; only subdirectory contents count.
func scanNested(ix *Index, kind Kind, dir string) []Entry {
	subdirs, err := os.ReadDir(dir)
	if err != nil {
		ix.StructureIssues = append(ix.StructureIssues, "read "+dir+": "+err.Error())
		return nil
	}

	var entries []Entry
	for _, sub := range subdirs {
		if !sub.IsDir() {
			continue
		}
		entries = append(entries, walkFiles(ix, kind, filepath.Join(dir, sub.Name()))...)
	}
	return entries
}

func scanFlat(ix *Index, kind Kind, dir string) []Entry {
	return walkFiles(ix, kind, dir)
}

func walkFiles(ix *Index, kind Kind, dir string) []Entry {
	ext := layouts[kind].ext
	var entries []Entry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			ix.StructureIssues = append(ix.StructureIssues, "walk "+path+": "+err.Error())
			return nil
		}
		if d.IsDir() || filepath.Ext(d.Name()) != ext {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			ix.StructureIssues = append(ix.StructureIssues, "stat "+path+": "+err.Error())
			return nil
		}
		entries = append(entries, Entry{Path: path, Size: info.Size()})
		return nil
	})
	if err != nil {
		ix.StructureIssues = append(ix.StructureIssues, "walk "+dir+": "+err.Error())
	}
	return entries
}

// SubdirsByVideo lists the per-video subdirectories of a nested kind, keyed
// by the identity parsed from the directory name. Used by the evaluator to
// pair keyframe and detection directories without a full index.
func SubdirsByVideo(root string, kind Kind) map[identity.ID]string {
	out := make(map[identity.ID]string)
	dir := kind.Dir(root)
	subdirs, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, sub := range subdirs {
		if !sub.IsDir() {
			continue
		}
		if id := identity.ID(sub.Name()); isCanonical(id) {
			out[id] = filepath.Join(dir, sub.Name())
		}
	}
	return out
}

// FilesByVideo lists a flat kind's files keyed by the identity in the
// filename stem (map CSVs, media-info JSONs).
func FilesByVideo(root string, kind Kind) map[identity.ID]string {
	out := make(map[identity.ID]string)
	dir := kind.Dir(root)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	ext := layouts[kind].ext
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		stem := e.Name()[:len(e.Name())-len(ext)]
		if id := identity.ID(stem); isCanonical(id) {
			out[id] = filepath.Join(dir, e.Name())
		}
	}
	return out
}

func isCanonical(id identity.ID) bool {
	_, _, ok := id.Components()
	return ok
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
