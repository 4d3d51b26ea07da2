package evaluate

import (
	"fmt"
	"path/filepath"

	"vidaudit/internal/framemap"
	"vidaudit/internal/identity"
	"vidaudit/internal/overlay"
)

// sampleFrames picks up to max_frames_per_video keyframes. With the
// preference flag on, frames that have a detection file are drawn first,
// topped up from the remainder when the preferred pool runs short.
func (e *Evaluator) sampleFrames(keyframes []string, objectDir string) []string {
	limit := e.cfg.Evaluate.MaxFramesPerVideo
	if limit <= 0 || limit >= len(keyframes) {
		limit = len(keyframes)
	}

	if !e.cfg.Evaluate.PreferObjectFrames {
		return e.pick(keyframes, limit)
	}

	var preferred, rest []string
	for _, kf := range keyframes {
		if detectionFileFor(kf, objectDir) != "" {
			preferred = append(preferred, kf)
		} else {
			rest = append(rest, kf)
		}
	}

	sampled := e.pick(preferred, limit)
	if len(sampled) < limit {
		sampled = append(sampled, e.pick(rest, limit-len(sampled))...)
	}
	return sampled
}

// pick samples n items without replacement. Requesting more than available
// returns everything.
func (e *Evaluator) pick(items []string, n int) []string {
	if n >= len(items) {
		return append([]string(nil), items...)
	}
	shuffled := append([]string(nil), items...)
	e.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}

// collectCandidates scans up to max_scan_frames keyframes for frames worth
// annotating, stopping early once min_annotated_per_video qualify. A frame
// qualifies if it has at least one retained detection or a resolved
// timestamp, so the dataset-wide random sample never draws a blank overlay.
func (e *Evaluator) collectCandidates(id identity.ID, keyframes []string, objectDir string, table *framemap.Table) []candidate {
	scanLimit := e.cfg.Evaluate.MaxScanFrames
	if scanLimit <= 0 || scanLimit > len(keyframes) {
		scanLimit = len(keyframes)
	}
	wanted := e.cfg.Evaluate.MinAnnotatedPerVideo

	var candidates []candidate
	for _, keyframe := range keyframes[:scanLimit] {
		if wanted > 0 && len(candidates) >= wanted {
			break
		}
		fr := e.alignFrame(keyframe, objectDir, table)
		if fr.NumBoxes > 0 || fr.FPS != nil || fr.PTSTime != nil {
			candidates = append(candidates, candidate{videoID: id, result: fr})
		}
	}
	return candidates
}

// savePreviews renders per-video annotated keyframes into the annotated
// directory. This is the one path that draws the "no objects/map row" note
// instead of a blank banner.
func (e *Evaluator) savePreviews(id identity.ID, candidates []candidate, result *VideoResult) int {
	saved := 0
	for _, c := range candidates {
		out := filepath.Join(e.cfg.AnnotatedDir(), fmt.Sprintf("%s_%s.jpg", id, stemOf(c.result.Keyframe)))
		if err := e.renderOverlay(c, out, true); err != nil {
			result.addError("preview render failed for %s: %v", c.result.Keyframe, err)
			continue
		}
		saved++
	}
	return saved
}

// saveRandomOverlays draws the dataset-wide random sample from the pooled
// candidates and writes sequentially numbered overlay images. A pool
// smaller than the requested count yields the whole pool, never an error.
func (e *Evaluator) saveRandomOverlays(pool []candidate, summary *Summary) []ManifestEntry {
	count := e.cfg.Evaluate.NumRandomSaves
	if count > len(pool) {
		count = len(pool)
	}
	if count <= 0 {
		return []ManifestEntry{}
	}

	shuffled := append([]candidate(nil), pool...)
	e.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	manifest := make([]ManifestEntry, 0, count)
	for _, c := range shuffled {
		if len(manifest) >= count {
			break
		}
		out := filepath.Join(e.cfg.OverlayDir(), fmt.Sprintf("random%d.jpg", len(manifest)+1))
		if err := e.renderOverlay(c, out, false); err != nil {
			e.logger.Warn("overlay render failed",
				"video", string(c.videoID),
				"keyframe", c.result.Keyframe,
				"error", err)
			if vr := summary.Videos[string(c.videoID)]; vr != nil {
				vr.addError("overlay render failed for %s: %v", c.result.Keyframe, err)
			}
			continue
		}
		manifest = append(manifest, ManifestEntry{
			OutputFile: out,
			VideoName:  string(c.videoID),
			Keyframe:   c.result.Keyframe,
			Frame:      c.result.Frame,
			TimeSec:    c.result.TimeSec,
			NumBoxes:   c.result.NumBoxes,
		})
	}
	return manifest
}

// renderOverlay re-parses the candidate's detections and writes the
// composited image to out.
func (e *Evaluator) renderOverlay(c candidate, out string, noteIfEmpty bool) error {
	dets, err := e.detectionsFor(c.result)
	if err != nil {
		return err
	}

	frame := c.result.Frame
	banner := overlay.Banner{
		VideoName: c.videoID.Display(),
		Frame:     &frame,
		TimeSec:   c.result.TimeSec,
	}
	img, err := overlay.Render(c.result.Keyframe, dets, banner, noteIfEmpty)
	if err != nil {
		return err
	}
	return overlay.Save(img, out)
}
