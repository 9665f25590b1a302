// local_ocr.go - Offline OCR engine used when every vision provider is unavailable

package processor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"github.com/bosocmputer/expense_ai_gateway/internal/models"
)

const (
	// Confidence ceilings for offline results
	localOCRMaxConfidence   = 0.5
	localOCREmptyConfidence = 0.1
	localOCRBadConfidence   = 0.05

	defaultLocalOCRTimeout = 20 * time.Second
)

// LocalOCR runs a local tesseract binary when one is configured. Without it,
// Analyze still answers with an empty low-confidence record.
type LocalOCR struct {
	tesseractPath string
	languages     string
	timeout       time.Duration
	now           func() time.Time
}

// NewLocalOCR creates the offline engine. An empty path disables recognition.
func NewLocalOCR(tesseractPath string, timeout time.Duration) *LocalOCR {
	if timeout <= 0 {
		timeout = defaultLocalOCRTimeout
	}
	return &LocalOCR{
		tesseractPath: strings.TrimSpace(tesseractPath),
		languages:     "fra+eng",
		timeout:       timeout,
		now:           time.Now,
	}
}

// Available reports whether a recognition binary is configured.
func (l *LocalOCR) Available() bool {
	return l.tesseractPath != ""
}

// Analyze never fails; degraded inputs produce low-confidence results.
func (l *LocalOCR) Analyze(ctx context.Context, data []byte, mimeType string) models.OCRData {
	if !l.Available() {
		return l.empty(localOCREmptyConfidence)
	}

	img, err := DecodeImage(data)
	if err != nil {
		log.Warn().Err(err).Str("mime_type", mimeType).Msg("local OCR could not decode image")
		return l.empty(localOCRBadConfidence)
	}

	quality := ImageQuality(img)
	prepared := PrepareForOCR(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, prepared, imaging.PNG); err != nil {
		log.Warn().Err(err).Msg("local OCR could not encode preprocessed image")
		return l.empty(localOCRBadConfidence)
	}

	text, err := l.recognize(ctx, buf.Bytes())
	if err != nil {
		log.Warn().Err(err).Msg("local OCR recognition failed")
		return l.empty(localOCRBadConfidence)
	}
	if strings.TrimSpace(text) == "" {
		return l.empty(localOCREmptyConfidence)
	}

	result := parseReceiptText(text, l.now())
	_, dateFound := findDate(text)
	score := CalculateReceiptConfidence(result, quality, MatchMerchant(text), dateFound)
	result.Confidence = scaleConfidence(score.OverallScore)
	log.Debug().
		Float64("score", score.OverallScore).
		Str("level", score.OverallLevel).
		Msg("local OCR confidence")
	return result
}

// recognize pipes a PNG into tesseract and returns the recognized text.
func (l *LocalOCR) recognize(ctx context.Context, png []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, l.tesseractPath, "stdin", "stdout", "-l", l.languages)
	cmd.Stdin = bytes.NewReader(png)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("tesseract aborted: %w", ctx.Err())
		}
		return "", fmt.Errorf("tesseract failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func (l *LocalOCR) empty(confidence float64) models.OCRData {
	return models.OCRData{
		Date:       l.now().Format("2006-01-02"),
		Items:      []models.LineItem{},
		Confidence: confidence,
	}
}

// scaleConfidence maps a weighted score (0-100) to [0.15, 0.5].
func scaleConfidence(score float64) float64 {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return 0.15 + (localOCRMaxConfidence-0.15)*score/100
}
