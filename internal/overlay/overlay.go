// Package overlay composites human-verifiable annotation images: a keyframe
// with its detection boxes, per-box label tags, and a banner identifying the
// video, frame number, and timestamp.
//
// Rendering is best-effort by design. A corrupt source image or a failed
// write degrades to an error the caller records on the alignment record;
// nothing here aborts a dataset run.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"vidaudit/internal/detect"
)

// Banner carries the identifying text drawn in the top-left corner.
// Nil fields are omitted from the banner line.
type Banner struct {
	VideoName string
	Frame     *int
	TimeSec   *float64
}

// palette is the fixed box color set. A label always maps to the same color
// within a run via its character-code sum.
var palette = []color.RGBA{
	{255, 0, 0, 255},
	{0, 200, 0, 255},
	{0, 128, 255, 255},
	{255, 165, 0, 255},
	{186, 85, 211, 255},
	{255, 105, 180, 255},
	{50, 205, 50, 255},
	{255, 215, 0, 255},
	{70, 130, 180, 255},
	{255, 69, 0, 255},
}

const boxBorder = 3

// ColorFor returns the stable color for a label. Unlabeled boxes cycle the
// palette by position instead.
func ColorFor(label string, index int) color.RGBA {
	if label != "" {
		sum := 0
		for _, r := range label {
			sum += int(r)
		}
		return palette[sum%len(palette)]
	}
	return palette[index%len(palette)]
}

// DecodeConfig returns the pixel dimensions of an image file without
// decoding its pixels. Detection denormalization needs only the bounds.
func DecodeConfig(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Render decodes the keyframe and draws detection boxes, label tags, and the
// banner. When noteIfEmpty is set and there is nothing at all to draw, the
// banner reads "no objects/map row" so a preview is never silently blank.
func Render(imagePath string, dets []detect.Detection, banner Banner, noteIfEmpty bool) (image.Image, error) {
	src, err := decode(imagePath)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, src, bounds.Min, draw.Src)

	for i, det := range dets {
		col := ColorFor(det.Label, i)
		drawBoxOutline(canvas, det, col)
		if det.Label != "" {
			drawLabelTag(canvas, det, col)
		}
	}

	line := bannerLine(banner)
	if line == "" && noteIfEmpty && len(dets) == 0 {
		line = "no objects/map row"
	}
	if line != "" {
		drawBanner(canvas, line)
	}

	return canvas, nil
}

// Save writes the rendered image, creating parent directories. The encoder
// follows the output extension; anything that is not .png is written as JPEG,
// matching the keyframe sources.
func Save(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create overlay directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create overlay: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".png") {
		if err := png.Encode(f, img); err != nil {
			return fmt.Errorf("encode overlay: %w", err)
		}
	} else {
		if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
			return fmt.Errorf("encode overlay: %w", err)
		}
	}
	return f.Close()
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func bannerLine(b Banner) string {
	var parts []string
	if b.VideoName != "" {
		parts = append(parts, b.VideoName)
	}
	if b.Frame != nil {
		parts = append(parts, fmt.Sprintf("frame: %d", *b.Frame))
	}
	if b.TimeSec != nil {
		parts = append(parts, fmt.Sprintf("time: %.3fs", *b.TimeSec))
	}
	return strings.Join(parts, " | ")
}

func drawBoxOutline(canvas *image.RGBA, det detect.Detection, col color.RGBA) {
	x0, y0 := det.X, det.Y
	x1 := det.X + max(det.Width, 0)
	y1 := det.Y + max(det.Height, 0)

	fillRect(canvas, x0, y0, x1, y0+boxBorder, col) // top
	fillRect(canvas, x0, y1-boxBorder, x1, y1, col) // bottom
	fillRect(canvas, x0, y0, x0+boxBorder, y1, col) // left
	fillRect(canvas, x1-boxBorder, y0, x1, y1, col) // right
}

func drawLabelTag(canvas *image.RGBA, det detect.Detection, col color.RGBA) {
	const tagHeight = 20
	width := textWidth(det.Label) + 10

	top := det.Y - tagHeight
	if top < 0 {
		top = 0
	}
	fillRect(canvas, det.X, top, det.X+width, det.Y, col)
	drawText(canvas, det.X+4, top+14, det.Label, color.RGBA{255, 255, 255, 255})
}

func drawBanner(canvas *image.RGBA, line string) {
	width := textWidth(line) + 15
	fillRect(canvas, 5, 5, 5+width, 35, color.RGBA{0, 0, 0, 255})
	drawText(canvas, 10, 23, line, color.RGBA{255, 255, 255, 255})
}

func fillRect(canvas *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	rect := image.Rect(x0, y0, x1, y1).Intersect(canvas.Bounds())
	draw.Draw(canvas, rect, &image.Uniform{C: col}, image.Point{}, draw.Src)
}

func textWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}

// drawText renders s with the basic 7x13 face; (x, y) is the baseline.
func drawText(canvas *image.RGBA, x, y int, s string, col color.RGBA) {
	drawer := font.Drawer{
		Dst:  canvas,
		Src:  &image.Uniform{C: col},
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(s)
}
