package render

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/inodb/peppi/internal/dataset"
	"github.com/inodb/peppi/internal/window"
)

// Supported image formats.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

// Stats counts the outcome of an export.
type Stats struct {
	Binding     int
	NonBinding  int
	Skipped     int // windows with a missing value
	ShortChains int // tables shorter than window.MinLength
}

// Written returns the number of images written.
func (s Stats) Written() int {
	return s.Binding + s.NonBinding
}

// Exporter writes one image per residue window.
type Exporter struct {
	BindingDir    string
	NonbindingDir string
	Format        string

	logger *zap.Logger
}

// NewExporter creates an exporter writing into the two directories.
func NewExporter(bindingDir, nonbindingDir, format string) *Exporter {
	return &Exporter{
		BindingDir:    bindingDir,
		NonbindingDir: nonbindingDir,
		Format:        format,
		logger:        zap.NewNop(),
	}
}

// SetLogger sets the logger for progress messages.
func (e *Exporter) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Export windows every table and writes each window without missing values
// as {n}.png or {n}.jpg, numbered from 1 across all tables. Windows
// centred on a binding residue go to BindingDir, the others to
// NonbindingDir.
func (e *Exporter) Export(tables []*dataset.Table) (Stats, error) {
	var stats Stats

	ext, encode, err := encoder(e.Format)
	if err != nil {
		return stats, err
	}
	for _, dir := range []string{e.BindingDir, e.NonbindingDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return stats, fmt.Errorf("create image directory: %w", err)
		}
	}

	n := 0
	for _, t := range tables {
		windows, err := window.Make(t.Features)
		if errors.Is(err, window.ErrShortChain) {
			stats.ShortChains++
			e.logger.Debug("chain too short for windows",
				zap.String("complex", t.Complex),
				zap.Stringer("molecule", t.Molecule),
				zap.Int("length", t.Len()))
			continue
		}
		if err != nil {
			return stats, err
		}

		for i, w := range windows {
			img, err := Render(w)
			if errors.Is(err, ErrNullValue) {
				stats.Skipped++
				continue
			}
			if err != nil {
				return stats, err
			}

			n++
			dir := e.NonbindingDir
			if t.Binding[i] == 1 {
				dir = e.BindingDir
			}
			if err := writeImage(filepath.Join(dir, strconv.Itoa(n)+ext), img, encode); err != nil {
				return stats, err
			}
			if t.Binding[i] == 1 {
				stats.Binding++
			} else {
				stats.NonBinding++
			}
		}
	}

	e.logger.Info("images written",
		zap.Int("binding", stats.Binding),
		zap.Int("nonbinding", stats.NonBinding),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

type encodeFunc func(io.Writer, image.Image) error

func encoder(format string) (string, encodeFunc, error) {
	switch format {
	case FormatPNG, "":
		return ".png", png.Encode, nil
	case FormatJPEG, "jpg":
		return ".jpg", func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: 100})
		}, nil
	default:
		return "", nil, fmt.Errorf("unsupported image format %q", format)
	}
}

func writeImage(path string, img image.Image, encode encodeFunc) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	if err := encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode image %s: %w", path, err)
	}
	return f.Close()
}
