// Package visual compares screenshots against stored baselines.
package visual

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

var ErrMismatch = errors.New("screenshot differs from baseline")

// pixelTolerance absorbs JPEG noise: channels closer than this count as equal.
const pixelTolerance = 24

type Result struct {
	// Ratio is the share of pixels that differ, in [0, 1].
	Ratio        float64
	BaselineMade bool
	DiffPath     string
}

// Diff returns the share of differing pixels between two images. The
// candidate is resized to the baseline's dimensions first.
func Diff(baseline, candidate image.Image) float64 {
	bb := baseline.Bounds()
	if bb.Dx() == 0 || bb.Dy() == 0 {
		return 1
	}
	if candidate.Bounds().Dx() != bb.Dx() || candidate.Bounds().Dy() != bb.Dy() {
		candidate = imaging.Resize(candidate, bb.Dx(), bb.Dy(), imaging.Linear)
	}

	a := imaging.Clone(baseline)
	b := imaging.Clone(candidate)

	var differing int
	for y := 0; y < a.Bounds().Dy(); y++ {
		for x := 0; x < a.Bounds().Dx(); x++ {
			if !similar(a.NRGBAAt(x, y), b.NRGBAAt(x, y)) {
				differing++
			}
		}
	}
	return float64(differing) / float64(bb.Dx()*bb.Dy())
}

func similar(p, q color.NRGBA) bool {
	return absDiff(p.R, q.R) <= pixelTolerance &&
		absDiff(p.G, q.G) <= pixelTolerance &&
		absDiff(p.B, q.B) <= pixelTolerance
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// Compare checks data against the baseline at baselinePath. A missing
// baseline is created from data and the comparison passes. When the
// difference exceeds threshold a highlighted diff image is written next to
// diffDir (if set) and ErrMismatch is returned.
func Compare(baselinePath string, data []byte, threshold float64, diffDir string) (Result, error) {
	candidate, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("decode screenshot: %w", err)
	}

	baseline, err := imaging.Open(baselinePath)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(baselinePath), 0o755); err != nil {
			return Result{}, fmt.Errorf("create baseline dir: %w", err)
		}
		if err := imaging.Save(candidate, baselinePath); err != nil {
			return Result{}, fmt.Errorf("save baseline: %w", err)
		}
		return Result{BaselineMade: true}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("open baseline: %w", err)
	}

	res := Result{Ratio: Diff(baseline, candidate)}
	if res.Ratio <= threshold {
		return res, nil
	}

	if diffDir != "" {
		name := filepath.Base(baselinePath)
		ext := filepath.Ext(name)
		res.DiffPath = filepath.Join(diffDir, name[:len(name)-len(ext)]+"_diff.png")
		if err := saveDiff(baseline, candidate, res.DiffPath); err != nil {
			return res, fmt.Errorf("%w (%.2f%% > %.2f%%); write diff: %v", ErrMismatch, res.Ratio*100, threshold*100, err)
		}
	}
	return res, fmt.Errorf("%w: %.2f%% of pixels differ, threshold %.2f%%", ErrMismatch, res.Ratio*100, threshold*100)
}

// saveDiff writes the baseline dimmed to grayscale with differing pixels
// painted red.
func saveDiff(baseline, candidate image.Image, path string) error {
	bb := baseline.Bounds()
	candidate = imaging.Resize(candidate, bb.Dx(), bb.Dy(), imaging.Linear)
	a := imaging.Clone(baseline)
	b := imaging.Clone(candidate)
	out := imaging.AdjustBrightness(imaging.Grayscale(a), 30)

	red := color.NRGBA{R: 255, A: 255}
	for y := 0; y < bb.Dy(); y++ {
		for x := 0; x < bb.Dx(); x++ {
			if !similar(a.NRGBAAt(x, y), b.NRGBAAt(x, y)) {
				out.SetNRGBA(x, y, red)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return imaging.Save(out, path)
}
