package evaluate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"vidaudit/internal/testsupport"
)

func TestRunFailsOnMissingRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDataDir("/nonexistent/dataset"))
	ev := New(cfg, testsupport.Logger(t))

	if _, err := ev.Run(); err == nil {
		t.Fatal("expected an error for a missing dataset root")
	}
}

func TestRunAlignsSampledFrames(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := cfg.Paths.DataDir

	testsupport.WriteJPEG(t, filepath.Join(root, "keyframes", "L1_V001", "005.jpg"), 100, 100)
	testsupport.WriteMapCSV(t, filepath.Join(root, "map-keyframes", "L1_V001.csv"), []testsupport.MapRowSpec{
		{N: "5", FrameIdx: "4", FPS: "25", PTSTime: "0.16"},
	})
	testsupport.WriteDetectionArrays(t, filepath.Join(root, "objects", "L1_V001", "005.json"),
		[][]float64{{0.1, 0.1, 0.2, 0.2}}, []string{"person"}, []float64{0.5})

	ev := New(cfg, testsupport.Logger(t))
	summary, err := ev.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	video := summary.Videos["L1_V001"]
	if video == nil {
		t.Fatalf("expected a result for L1_V001, got %v", summary.Videos)
	}
	if video.ProcessedFrames != 1 || len(video.FrameResults) != 1 {
		t.Fatalf("expected 1 processed frame, got %d (%d results)", video.ProcessedFrames, len(video.FrameResults))
	}

	fr := video.FrameResults[0]
	if !fr.MapRowFound || !fr.MatchByN {
		t.Fatalf("expected an exact by-n match, got %+v", fr)
	}
	if fr.Frame != 4 {
		t.Fatalf("display frame = %d, want 4 (frame_idx)", fr.Frame)
	}
	if fr.TimeSec == nil || *fr.TimeSec != 0.16 {
		t.Fatalf("display time = %v, want 0.16", fr.TimeSec)
	}
	if fr.NumBoxes != 1 {
		t.Fatalf("retained boxes = %d, want 1", fr.NumBoxes)
	}
	if video.Matches.ByN != 1 || video.Matches.Unmatched != 0 {
		t.Fatalf("unexpected match counters: %+v", video.Matches)
	}
}

func TestRunCountsUnmatchedFrames(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := cfg.Paths.DataDir

	testsupport.WriteJPEG(t, filepath.Join(root, "keyframes", "L1_V001", "009.jpg"), 64, 64)
	testsupport.WriteMapCSV(t, filepath.Join(root, "map-keyframes", "L1_V001.csv"), []testsupport.MapRowSpec{
		{N: "1", FrameIdx: "0", FPS: "25", PTSTime: "0.0"},
	})

	ev := New(cfg, testsupport.Logger(t))
	summary, err := ev.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	video := summary.Videos["L1_V001"]
	if video.Matches.Unmatched != 1 {
		t.Fatalf("expected 1 unmatched frame, got %+v", video.Matches)
	}
}

func TestCorruptKeyframeStillReportsPixelSpaceBoxes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := cfg.Paths.DataDir

	// The keyframe is not decodable, but the detection file carries pixel
	// coordinates and needs no image dimensions.
	testsupport.WriteText(t, filepath.Join(root, "keyframes", "L1_V001", "003.jpg"), "not a jpeg")
	testsupport.WriteDetectionObjects(t, filepath.Join(root, "objects", "L1_V001", "003.json"),
		"objects", []map[string]any{
			{"x": 5.0, "y": 5.0, "w": 20.0, "h": 20.0, "label": "car"},
		})
	testsupport.WriteMapCSV(t, filepath.Join(root, "map-keyframes", "L1_V001.csv"), []testsupport.MapRowSpec{
		{N: "3", FrameIdx: "50", FPS: "25", PTSTime: "2.0"},
	})

	ev := New(cfg, testsupport.Logger(t))
	summary, err := ev.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	video := summary.Videos["L1_V001"]
	if video == nil || len(video.FrameResults) != 1 {
		t.Fatalf("expected 1 frame result, got %+v", video)
	}
	fr := video.FrameResults[0]
	if fr.NumBoxes != 1 {
		t.Fatalf("retained boxes = %d, want 1 despite unreadable image (%+v)", fr.NumBoxes, fr)
	}
	if fr.Error != "" {
		t.Fatalf("alignment error = %q, want none", fr.Error)
	}
	if !fr.MapRowFound || !fr.MatchByN {
		t.Fatalf("expected by-n match, got %+v", fr)
	}
}

func TestRandomSavesBoundedByPool(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRandomSaves(5))
	root := cfg.Paths.DataDir

	for _, name := range []string{"001", "002", "003"} {
		testsupport.WriteJPEG(t, filepath.Join(root, "keyframes", "L1_V001", name+".jpg"), 100, 100)
		testsupport.WriteDetectionObjects(t, filepath.Join(root, "objects", "L1_V001", name+".json"),
			"objects", []map[string]any{
				{"bbox": []any{10.0, 10.0, 30.0, 30.0}, "label": "person"},
			})
	}
	testsupport.WriteMapCSV(t, filepath.Join(root, "map-keyframes", "L1_V001.csv"), []testsupport.MapRowSpec{
		{N: "1", FrameIdx: "0", FPS: "25", PTSTime: "0.0"},
		{N: "2", FrameIdx: "25", FPS: "25", PTSTime: "1.0"},
		{N: "3", FrameIdx: "50", FPS: "25", PTSTime: "2.0"},
	})

	ev := New(cfg, testsupport.Logger(t))
	summary, err := ev.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The pool has only 3 qualifying frames; asking for 5 yields all 3,
	// each exactly once.
	if summary.OverlaysSaved != 3 {
		t.Fatalf("overlays saved = %d, want 3", summary.OverlaysSaved)
	}

	data, err := os.ReadFile(filepath.Join(cfg.EvaluationDir(), "visual_annotation_results.json"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var manifest []ManifestEntry
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	if len(manifest) != 3 {
		t.Fatalf("manifest has %d entries, want 3", len(manifest))
	}

	seen := make(map[string]bool)
	for i, entry := range manifest {
		if seen[entry.Keyframe] {
			t.Fatalf("keyframe sampled twice: %s", entry.Keyframe)
		}
		seen[entry.Keyframe] = true
		if entry.VideoName != "L1_V001" {
			t.Fatalf("entry %d has video %q", i, entry.VideoName)
		}
		if _, err := os.Stat(entry.OutputFile); err != nil {
			t.Fatalf("manifest points at a missing overlay: %v", err)
		}
	}
}

func TestPreferObjectFramesSampling(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Evaluate.MaxFramesPerVideo = 2
	root := cfg.Paths.DataDir

	for _, name := range []string{"001", "002", "003", "004", "005"} {
		testsupport.WriteJPEG(t, filepath.Join(root, "keyframes", "L1_V001", name+".jpg"), 64, 64)
	}
	for _, name := range []string{"002", "004"} {
		testsupport.WriteDetectionObjects(t, filepath.Join(root, "objects", "L1_V001", name+".json"),
			"objects", []map[string]any{
				{"x": 5.0, "y": 5.0, "w": 20.0, "h": 20.0, "label": "car"},
			})
	}

	ev := New(cfg, testsupport.Logger(t))
	summary, err := ev.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	video := summary.Videos["L1_V001"]
	if video.ProcessedFrames != 2 {
		t.Fatalf("processed %d frames, want 2", video.ProcessedFrames)
	}
	for _, fr := range video.FrameResults {
		if fr.DetectionFile == "" {
			t.Fatalf("preference on: sampled a frame without detections: %s", fr.Keyframe)
		}
	}
}

func TestMediaInfoFieldCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := cfg.Paths.DataDir

	complete := `{"title":"a","publish_date":"b","watch_url":"c","leght":"d",` +
		`"description":"e","author":"f","thumbnail_url":"g"}`
	incomplete := `{"title":"a","publish_date":"b","watch_url":"c","leght":"d",` +
		`"description":"e","author":"","thumbnail_url":"g"}`
	testsupport.WriteText(t, filepath.Join(root, "media-info", "L1_V001.json"), complete)
	testsupport.WriteText(t, filepath.Join(root, "media-info", "L1_V002.json"), incomplete)
	testsupport.WriteText(t, filepath.Join(root, "media-info", "L1_V003.json"), "{not json")
	testsupport.WriteJPEG(t, filepath.Join(root, "keyframes", "L1_V001", "001.jpg"), 64, 64)

	ev := New(cfg, testsupport.Logger(t))
	summary, err := ev.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	check := summary.MediaInfoCheck
	if check.Checked != 2 {
		t.Fatalf("checked = %d, want 2 parseable files", check.Checked)
	}
	if got := check.MissingFields["L1_V002"]; !reflect.DeepEqual(got, []string{"author"}) {
		t.Fatalf("missing fields for L1_V002 = %v, want [author]", got)
	}
	if len(check.Errors) != 1 {
		t.Fatalf("expected 1 parse error, got %v", check.Errors)
	}
}

func TestRunWritesSummaryFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := cfg.Paths.DataDir
	testsupport.WriteJPEG(t, filepath.Join(root, "keyframes", "L1_V001", "001.jpg"), 64, 64)

	ev := New(cfg, testsupport.Logger(t))
	if _, err := ev.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.EvaluationDir(), "evaluation_summary.json"))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("parse summary: %v", err)
	}
	if decoded["data_path"] != root {
		t.Fatalf("summary data_path = %v, want %s", decoded["data_path"], root)
	}
	if _, ok := decoded["videos"].(map[string]any); !ok {
		t.Fatal("summary missing videos section")
	}
}
