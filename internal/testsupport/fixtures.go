package testsupport

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

// WriteJPEG encodes a solid-color image of the given dimensions to path.
// Evaluation tests need real decodable keyframes, not placeholder bytes.
func WriteJPEG(t testing.TB, path string, width, height int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fill := color.RGBA{R: 40, G: 60, B: 80, A: 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// MapRowSpec is one CSV row for WriteMapCSV. Empty strings become empty
// cells, exercising the defensive parser.
type MapRowSpec struct {
	N        string
	FrameIdx string
	FPS      string
	PTSTime  string
}

// WriteMapCSV writes a map-keyframes CSV with the standard header.
func WriteMapCSV(t testing.TB, path string, rows []MapRowSpec) {
	t.Helper()

	content := "n,pts_time,fps,frame_idx\n"
	for _, r := range rows {
		content += fmt.Sprintf("%s,%s,%s,%s\n", r.N, r.PTSTime, r.FPS, r.FrameIdx)
	}
	WriteText(t, path, content)
}

// WriteDetectionArrays writes a parallel-array detection file
// (normalized boxes ymin,xmin,ymax,xmax plus entities and scores).
func WriteDetectionArrays(t testing.TB, path string, boxes [][]float64, labels []string, scores []float64) {
	t.Helper()

	payload := map[string]any{
		"detection_boxes":          boxes,
		"detection_class_entities": labels,
		"detection_scores":         scores,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal detections: %v", err)
	}
	WriteText(t, path, string(data))
}

// WriteDetectionObjects writes a generic list-of-objects detection file
// under the given container key ("objects", "detections", ...).
func WriteDetectionObjects(t testing.TB, path, containerKey string, items []map[string]any) {
	t.Helper()

	data, err := json.Marshal(map[string]any{containerKey: items})
	if err != nil {
		t.Fatalf("marshal detections: %v", err)
	}
	WriteText(t, path, string(data))
}
