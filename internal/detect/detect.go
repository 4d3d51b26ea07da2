// Package detect parses per-frame object detection JSON files into uniform
// pixel-space boxes.
//
// Two schema families appear in the wild. Detector exports use parallel
// arrays of normalized [ymin, xmin, ymax, xmax] boxes with class entities
// and confidence scores; various annotation tools emit a list of objects
// with one of several bounding-box key conventions. Both are handled; a
// malformed entry is skipped, never fatal to the file.
package detect

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Detection is one retained detection in pixel space.
type Detection struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"w"`
	Height int    `json:"h"`
	Label  string `json:"label"`
}

// containerKeys are checked in order when the top-level object is not the
// parallel-array schema.
var containerKeys = []string{"objects", "detections", "items", "annotations", "labels"}

// ImageSize supplies the keyframe dimensions used to denormalize the
// parallel-array schema. It is invoked only when that schema is dispatched;
// object-list files carry pixel coordinates and never need the image.
type ImageSize func() (width, height int, err error)

// FixedSize returns an ImageSize for known dimensions.
func FixedSize(width, height int) ImageSize {
	return func() (int, int, error) { return width, height, nil }
}

// ParseFile reads a detection JSON file. threshold filters the parallel-array
// schema's scores (the object-list schema carries no scores and is
// unfiltered).
func ParseFile(path string, size ImageSize, threshold float64) ([]Detection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read detections: %w", err)
	}
	return Parse(data, size, threshold)
}

// Parse decodes detection JSON from memory. See ParseFile.
func Parse(data []byte, size ImageSize, threshold float64) ([]Detection, error) {
	var top any
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("parse detections: %w", err)
	}

	switch v := top.(type) {
	case map[string]any:
		if hasParallelArrays(v) {
			width, height, err := size()
			if err != nil {
				return nil, fmt.Errorf("image size for denormalization: %w", err)
			}
			return parseParallelArrays(v, width, height, threshold), nil
		}
		for _, key := range containerKeys {
			if list, ok := v[key].([]any); ok {
				return parseObjectList(list), nil
			}
		}
		return nil, nil
	case []any:
		return parseObjectList(v), nil
	default:
		return nil, nil
	}
}

func hasParallelArrays(top map[string]any) bool {
	for _, key := range []string{"detection_boxes", "detection_class_entities", "detection_scores"} {
		if _, ok := top[key]; !ok {
			return false
		}
	}
	return true
}

func parseParallelArrays(top map[string]any, width, height int, threshold float64) []Detection {
	boxes, _ := top["detection_boxes"].([]any)
	classes, _ := top["detection_class_entities"].([]any)
	scores, _ := top["detection_scores"].([]any)

	n := len(boxes)
	if len(classes) < n {
		n = len(classes)
	}
	if len(scores) < n {
		n = len(scores)
	}

	var out []Detection
	for i := 0; i < n; i++ {
		score, ok := asFloat(scores[i])
		if !ok || score < threshold {
			continue
		}
		box, ok := boxes[i].([]any)
		if !ok || len(box) != 4 {
			continue
		}
		yMin, ok1 := asFloat(box[0])
		xMin, ok2 := asFloat(box[1])
		yMax, ok3 := asFloat(box[2])
		xMax, ok4 := asFloat(box[3])
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}

		x1 := clamp(round(xMin*float64(width)), 0, width-1)
		y1 := clamp(round(yMin*float64(height)), 0, height-1)
		x2 := clamp(round(xMax*float64(width)), 0, width-1)
		y2 := clamp(round(yMax*float64(height)), 0, height-1)

		w := x2 - x1
		h := y2 - y1
		if w <= 1 || h <= 1 {
			continue
		}
		out = append(out, Detection{
			X:      x1,
			Y:      y1,
			Width:  w,
			Height: h,
			Label:  fmt.Sprint(classes[i]),
		})
	}
	return out
}

func parseObjectList(list []any) []Detection {
	var out []Detection
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		det, ok := parseObject(obj)
		if !ok {
			continue
		}
		out = append(out, det)
	}
	return out
}

// parseObject tries the four known bounding-box key conventions in order.
func parseObject(obj map[string]any) (Detection, bool) {
	label := labelOf(obj)

	if bbox, ok := obj["bbox"].([]any); ok && len(bbox) == 4 {
		x, ok1 := asFloat(bbox[0])
		y, ok2 := asFloat(bbox[1])
		w, ok3 := asFloat(bbox[2])
		h, ok4 := asFloat(bbox[3])
		if ok1 && ok2 && ok3 && ok4 {
			return Detection{X: round(x), Y: round(y), Width: round(w), Height: round(h), Label: label}, true
		}
		return Detection{}, false
	}

	if x, y, w, h, ok := numericQuad(obj, "x", "y", "w", "h"); ok {
		return Detection{X: x, Y: y, Width: w, Height: h, Label: label}, true
	}
	if x, y, w, h, ok := numericQuad(obj, "left", "top", "width", "height"); ok {
		return Detection{X: x, Y: y, Width: w, Height: h, Label: label}, true
	}
	if x1, y1, x2, y2, ok := numericQuad(obj, "x1", "y1", "x2", "y2"); ok {
		w := x2 - x1
		h := y2 - y1
		if w < 0 {
			w = 0
		}
		if h < 0 {
			h = 0
		}
		return Detection{X: x1, Y: y1, Width: w, Height: h, Label: label}, true
	}

	return Detection{}, false
}

func numericQuad(obj map[string]any, keys ...string) (a, b, c, d int, ok bool) {
	vals := make([]int, 0, 4)
	for _, key := range keys {
		raw, present := obj[key]
		if !present {
			return 0, 0, 0, 0, false
		}
		f, isNum := asFloat(raw)
		if !isNum {
			return 0, 0, 0, 0, false
		}
		vals = append(vals, round(f))
	}
	return vals[0], vals[1], vals[2], vals[3], true
}

func labelOf(obj map[string]any) string {
	if v, ok := obj["label"]; ok && v != nil {
		if s := fmt.Sprint(v); s != "" {
			return s
		}
	}
	if v, ok := obj["class"]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		var f float64
		if _, err := fmt.Sscanf(n, "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

func round(f float64) int {
	return int(math.Round(f))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
