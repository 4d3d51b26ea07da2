// Package evaluate runs the frame alignment and overlay pass: it samples
// keyframes per video, aligns each against its timestamp map and detection
// file, validates media-info metadata, and materializes a bounded set of
// annotated overlay images with a manifest.
package evaluate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"vidaudit/internal/config"
	"vidaudit/internal/dataset"
	"vidaudit/internal/detect"
	"vidaudit/internal/framemap"
	"vidaudit/internal/fsutil"
	"vidaudit/internal/identity"
	"vidaudit/internal/overlay"
)

// mediaInfoFields are the metadata keys every media-info JSON must carry.
// "leght" is the upstream scraper's spelling of the duration field; the
// files contain it verbatim.
var mediaInfoFields = []string{
	"title", "publish_date", "watch_url", "leght",
	"description", "author", "thumbnail_url",
}

const (
	summaryFileName  = "evaluation_summary.json"
	manifestFileName = "visual_annotation_results.json"
)

// FrameResult is the alignment record for one evaluated keyframe.
type FrameResult struct {
	Keyframe        string   `json:"keyframe"`
	DetectionFile   string   `json:"detection_file,omitempty"`
	MapRowFound     bool     `json:"map_row_found"`
	MatchByN        bool     `json:"match_by_n"`
	MatchByFrameIdx bool     `json:"match_by_frame_idx"`
	FPS             *float64 `json:"fps,omitempty"`
	PTSTime         *float64 `json:"pts_time,omitempty"`
	Frame           int      `json:"frame"`
	TimeSec         *float64 `json:"time_sec,omitempty"`
	NumBoxes        int      `json:"num_boxes"`
	OverlayPath     string   `json:"overlay_path,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// MatchCounts aggregates how sampled frames resolved against the map.
type MatchCounts struct {
	ByN        int `json:"by_n"`
	ByFrameIdx int `json:"by_frame_idx"`
	Unmatched  int `json:"unmatched"`
}

// VideoResult is the per-video evaluation outcome.
type VideoResult struct {
	ProcessedFrames int           `json:"processed_frames"`
	FrameResults    []FrameResult `json:"frame_results"`
	Matches         MatchCounts   `json:"matches"`
	AnnotatedSaved  int           `json:"annotated_keyframes_saved"`
	Errors          []string      `json:"errors,omitempty"`
}

func (v *VideoResult) addError(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// MediaInfoCheck reports required-field coverage across media-info files.
type MediaInfoCheck struct {
	Checked       int                 `json:"checked"`
	MissingFields map[string][]string `json:"missing_fields"`
	Errors        []string            `json:"errors,omitempty"`
}

// ManifestEntry describes one saved random overlay. Field names match the
// manifest format existing tooling consumes.
type ManifestEntry struct {
	OutputFile string   `json:"output_file"`
	VideoName  string   `json:"video_name"`
	Keyframe   string   `json:"keyframe"`
	Frame      int      `json:"frame"`
	TimeSec    *float64 `json:"time_sec"`
	NumBoxes   int      `json:"num_boxes"`
}

// Summary is the full evaluation result, also written as JSON.
type Summary struct {
	DataPath       string                  `json:"data_path"`
	MediaInfoCheck MediaInfoCheck          `json:"media_info_check"`
	Videos         map[string]*VideoResult `json:"videos"`
	OverlaysSaved  int                     `json:"overlays_saved"`
}

// Evaluator holds one run's configuration and random source. Randomness is
// per run; repeated audits intentionally sample different frames.
type Evaluator struct {
	cfg    *config.Config
	logger *slog.Logger
	rng    *rand.Rand
}

// New returns an evaluator for the given configuration.
func New(cfg *config.Config, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		cfg:    cfg,
		logger: logger.With("component", "evaluate"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// candidate is a frame eligible for the dataset-wide random sample: it has
// at least one retained detection or a resolved timestamp.
type candidate struct {
	videoID identity.ID
	result  FrameResult
}

// Run evaluates the dataset rooted at the configured data directory. The
// only fatal condition is a missing root; everything else is recorded on
// the summary and processing continues.
func (e *Evaluator) Run() (*Summary, error) {
	root := e.cfg.Paths.DataDir
	if !fsutil.DirExists(root) {
		return nil, fmt.Errorf("dataset root does not exist: %s", root)
	}

	if e.cfg.Evaluate.CleanupOutputs {
		if err := os.RemoveAll(e.cfg.EvaluationDir()); err != nil {
			e.logger.Warn("failed to clean evaluation outputs", "error", err)
		}
	}
	if err := fsutil.EnsureDir(e.cfg.OverlayDir()); err != nil {
		return nil, fmt.Errorf("create overlay directory: %w", err)
	}

	summary := &Summary{
		DataPath: root,
		Videos:   make(map[string]*VideoResult),
	}
	summary.MediaInfoCheck = e.checkMediaInfo(root)

	keyframeDirs := dataset.SubdirsByVideo(root, dataset.KindKeyframes)
	objectDirs := dataset.SubdirsByVideo(root, dataset.KindObjects)
	mapFiles := dataset.FilesByVideo(root, dataset.KindMaps)

	ids := make([]identity.ID, 0, len(keyframeDirs))
	for id := range keyframeDirs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var pool []candidate
	for _, id := range ids {
		result, candidates := e.evaluateVideo(id, keyframeDirs[id], objectDirs[id], mapFiles[id])
		summary.Videos[string(id)] = result
		pool = append(pool, candidates...)
	}

	manifest := e.saveRandomOverlays(pool, summary)
	summary.OverlaysSaved = len(manifest)

	if err := fsutil.WriteJSONFile(filepath.Join(e.cfg.EvaluationDir(), manifestFileName), manifest); err != nil {
		e.logger.Warn("failed to write overlay manifest", "error", err)
	}
	if err := fsutil.WriteJSONFile(filepath.Join(e.cfg.EvaluationDir(), summaryFileName), summary); err != nil {
		e.logger.Warn("failed to write evaluation summary", "error", err)
	}

	e.logger.Info("evaluation complete",
		"videos", len(summary.Videos),
		"overlays_saved", summary.OverlaysSaved)
	return summary, nil
}

// evaluateVideo samples and aligns frames for one video and collects its
// annotation candidates.
func (e *Evaluator) evaluateVideo(id identity.ID, keyframeDir, objectDir, mapFile string) (*VideoResult, []candidate) {
	result := &VideoResult{}

	keyframes := listKeyframes(keyframeDir)
	if len(keyframes) == 0 {
		result.addError("no keyframes found in %s", keyframeDir)
		return result, nil
	}

	var table *framemap.Table
	if mapFile != "" {
		parsed, err := framemap.ParseCSV(mapFile)
		if err != nil {
			result.addError("map CSV unreadable: %v", err)
		} else {
			table = parsed
		}
	} else {
		result.addError("no map CSV for %s", id)
	}

	sampled := e.sampleFrames(keyframes, objectDir)
	for _, keyframe := range sampled {
		fr := e.alignFrame(keyframe, objectDir, table)
		result.FrameResults = append(result.FrameResults, fr)
		result.ProcessedFrames++
		switch {
		case fr.MatchByN:
			result.Matches.ByN++
		case fr.MatchByFrameIdx:
			result.Matches.ByFrameIdx++
		case !fr.MapRowFound:
			result.Matches.Unmatched++
		default:
			// zero-based by-n fallback: row found, neither exact flag set
			result.Matches.ByN++
		}
	}

	candidates := e.collectCandidates(id, keyframes, objectDir, table)
	if e.cfg.Evaluate.SavePerVideoPreviews {
		result.AnnotatedSaved = e.savePreviews(id, candidates, result)
	}

	e.logger.Debug("video evaluated",
		"video", string(id),
		"frames", result.ProcessedFrames,
		"candidates", len(candidates))
	return result, candidates
}

// alignFrame resolves one keyframe against its detection file and map row.
// Failures never propagate; they are recorded on the result.
func (e *Evaluator) alignFrame(keyframe, objectDir string, table *framemap.Table) FrameResult {
	fr := FrameResult{Keyframe: keyframe}
	nFromName, nOK := sequenceFromName(keyframe)

	var dets []detect.Detection
	detFile := detectionFileFor(keyframe, objectDir)
	if detFile != "" {
		fr.DetectionFile = detFile
		var err error
		dets, err = detect.ParseFile(detFile, keyframeSize(keyframe), e.cfg.Evaluate.ScoreThreshold)
		if err != nil {
			fr.Error = fmt.Sprintf("detections unreadable: %v", err)
		}
	}
	fr.NumBoxes = len(dets)

	if !nOK {
		if fr.Error == "" {
			fr.Error = "keyframe name has no sequence number"
		}
		return fr
	}
	fr.Frame = nFromName

	match, found := table.Lookup(nFromName)
	fr.MapRowFound = found
	if found {
		fr.MatchByN = match.MatchByN
		fr.MatchByFrameIdx = match.MatchByFrameIdx
		if fps, ok := match.FPS(); ok {
			fr.FPS = &fps
		}
		if pts, ok := match.PTSTime(); ok {
			fr.PTSTime = &pts
		}
		fr.Frame = match.DisplayFrame(nFromName)
		if t, ok := match.DisplayTime(); ok {
			fr.TimeSec = &t
		}
	}
	return fr
}

// detectionsFor re-parses a frame's detection file for rendering; the
// alignment pass keeps only the count, not the boxes.
func (e *Evaluator) detectionsFor(fr FrameResult) ([]detect.Detection, error) {
	if fr.DetectionFile == "" {
		return nil, nil
	}
	return detect.ParseFile(fr.DetectionFile, keyframeSize(fr.Keyframe), e.cfg.Evaluate.ScoreThreshold)
}

// keyframeSize defers reading the keyframe's dimensions until a detection
// file actually needs them for denormalization.
func keyframeSize(path string) detect.ImageSize {
	return func() (int, int, error) {
		return overlay.DecodeConfig(path)
	}
}

// checkMediaInfo validates the required metadata fields in every media-info
// file. A missing or unreadable file is an error entry, not a failure.
func (e *Evaluator) checkMediaInfo(root string) MediaInfoCheck {
	check := MediaInfoCheck{MissingFields: make(map[string][]string)}

	files := dataset.FilesByVideo(root, dataset.KindMediaInfo)
	ids := make([]identity.ID, 0, len(files))
	for id := range files {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		data, err := os.ReadFile(files[id])
		if err != nil {
			check.Errors = append(check.Errors, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		var info map[string]any
		if err := json.Unmarshal(data, &info); err != nil {
			check.Errors = append(check.Errors, fmt.Sprintf("%s: invalid JSON: %v", id, err))
			continue
		}
		check.Checked++

		var missing []string
		for _, field := range mediaInfoFields {
			if isBlank(info[field]) {
				missing = append(missing, field)
			}
		}
		if len(missing) > 0 {
			check.MissingFields[string(id)] = missing
		}
	}
	return check
}

func isBlank(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(value) == ""
	default:
		return false
	}
}

// listKeyframes returns the sorted keyframe images in a video directory.
func listKeyframes(dir string) []string {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths
}

// detectionFileFor returns the detection JSON matching the keyframe's stem,
// or empty when none exists.
func detectionFileFor(keyframe, objectDir string) string {
	if objectDir == "" {
		return ""
	}
	path := filepath.Join(objectDir, stemOf(keyframe)+".json")
	if fsutil.FileExists(path) {
		return path
	}
	return ""
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// sequenceFromName derives the keyframe's sequence number from the trailing
// digit run of its stem ("005" and "L21_V001_005" both yield 5).
func sequenceFromName(path string) (int, bool) {
	stem := stemOf(path)
	end := len(stem)
	start := end
	for start > 0 && stem[start-1] >= '0' && stem[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, false
	}
	n, err := strconv.Atoi(stem[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
