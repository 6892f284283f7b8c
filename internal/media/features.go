package media

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strings"

	// Register decoders for the formats we caption.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/safetycheck/safetycheck/internal/logger"
	"github.com/safetycheck/safetycheck/internal/schema"
)

const (
	// minOCRTextLen filters out OCR noise; shorter output is discarded.
	minOCRTextLen = 10

	tesseractBinary = "tesseract"
)

// FeatureExtractor derives a caption and OCR text from a cached image.
// Everything it does is best-effort: extraction failures degrade to a
// minimal caption, never an error, so enrichment can never abort the
// pipeline.
type FeatureExtractor struct {
	ocrPath string // empty when tesseract is not installed
	logger  logger.Logger
}

// NewFeatureExtractor probes for the OCR engine once at startup. A missing
// engine disables OCR; it does not fail construction.
func NewFeatureExtractor(log logger.Logger) *FeatureExtractor {
	path, err := exec.LookPath(tesseractBinary)
	if err != nil {
		log.Warn("tesseract not found, OCR disabled")
		path = ""
	}
	return &FeatureExtractor{ocrPath: path, logger: log}
}

// OCRAvailable reports whether the OCR engine was found at startup.
func (f *FeatureExtractor) OCRAvailable() bool { return f.ocrPath != "" }

// Extract derives features from the image at path. It always returns a
// usable MediaFeatures value.
func (f *FeatureExtractor) Extract(ctx context.Context, path string) *schema.MediaFeatures {
	cfg, format, err := decodeConfig(path)
	if err != nil {
		f.logger.Warn("image decode failed", logger.String("path", path), logger.Error(err))
		return &schema.MediaFeatures{Caption: "Image processing failed"}
	}

	ocrText := f.runOCR(ctx, path)
	return &schema.MediaFeatures{
		Caption: buildCaption(cfg.Width, cfg.Height, format, ocrText != ""),
		OCRText: ocrText,
	}
}

// decodeConfig reads just the image header for dimensions and format.
func decodeConfig(path string) (image.Config, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer file.Close()
	return image.DecodeConfig(file)
}

// runOCR shells out to tesseract. Any failure degrades to empty output.
func (f *FeatureExtractor) runOCR(ctx context.Context, path string) string {
	if f.ocrPath == "" {
		return ""
	}

	out, err := exec.CommandContext(ctx, f.ocrPath, path, "stdout").Output()
	if err != nil {
		f.logger.Warn("ocr failed", logger.String("path", path), logger.Error(err))
		return ""
	}

	text := strings.TrimSpace(string(out))
	if len(text) < minOCRTextLen {
		return ""
	}
	if len(text) > schema.MaxOCRTextLen {
		text = text[:schema.MaxOCRTextLen] + "..."
	}
	return text
}

// buildCaption produces the rule-based caption: dimensions and format,
// whether text was found, and aspect-ratio heuristics for screenshots.
func buildCaption(width, height int, format string, hasText bool) string {
	if format == "" {
		format = "unknown"
	}
	parts := []string{fmt.Sprintf("Image (%dx%d, %s)", width, height, strings.ToUpper(format))}

	if hasText {
		parts = append(parts, "contains text")
	}

	if height > 0 {
		aspect := float64(width) / float64(height)
		switch {
		case aspect > 1.5 && width > 800:
			parts = append(parts, "appears to be a screenshot")
		case aspect < 0.7 && height > 800:
			parts = append(parts, "appears to be a portrait/mobile screenshot")
		}
	}

	return strings.Join(parts, ", ")
}
