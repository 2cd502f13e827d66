// Package omr exposes the sheet-processing engine: one synchronous,
// stateless pipeline run per sheet, from raw scan to scored answers and
// audit artifacts.
package omr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"go-omr-engine/internal/classifier"
	"go-omr-engine/internal/detector"
	"go-omr-engine/internal/document"
	omrerrors "go-omr-engine/internal/errors"
	"go-omr-engine/internal/logger"
	"go-omr-engine/internal/mapper"
	"go-omr-engine/internal/normalizer"
	"go-omr-engine/internal/observer"
	"go-omr-engine/internal/overlay"
	"go-omr-engine/internal/scorer"
	"go-omr-engine/pkg/keys"
	"go-omr-engine/pkg/models"
	"go-omr-engine/pkg/storage"
	"go-omr-engine/pkg/validation"
)

// lowConfidenceCutoff feeds the confidence summary, matching the review
// threshold the surrounding system reports on.
const lowConfidenceCutoff = 0.7

// Sheet is one processing request. Exactly one of Image, Data or Source
// should be set; Source may be a file path or an http(s) URL, and ".pdf"
// sources have their first page rasterized.
type Sheet struct {
	Source          string
	Data            []byte
	Image           image.Image
	DeclaredVersion string
	StudentID       string
}

// Config assembles an Engine. Only Options is mandatory in spirit; nil
// collaborators fall back to safe defaults (no artifacts, fixed version
// "A", empty key table).
type Config struct {
	Options         models.ProcessingOptions
	Keys            keys.Provider
	Sink            storage.ArtifactSink
	Fetcher         storage.SheetFetcher
	VersionDetector VersionDetector
	NormalizerCfg   *normalizer.Config
	// Observers receive lifecycle events per sheet run.
	Observers []observer.Observer
}

// Engine runs the recognition pipeline. It holds an immutable
// configuration snapshot, so concurrent Process calls never race; swap
// the whole Engine to reconfigure.
type Engine struct {
	opts     models.ProcessingOptions
	keys     keys.Provider
	sink     storage.ArtifactSink
	fetcher  storage.SheetFetcher
	version  VersionDetector
	norm     *normalizer.Normalizer
	detect   *detector.Detector
	classify *classifier.Classifier
	mapping  *mapper.Mapper
	score    *scorer.Scorer
	render   *overlay.Renderer
	quality  *validation.ScanValidator
	urls     *validation.URLValidator
	events   *observer.EventPublisher
}

// New creates an Engine from the configuration snapshot.
func New(cfg Config) *Engine {
	opts := cfg.Options.Normalized()

	keysProvider := cfg.Keys
	if keysProvider == nil {
		keysProvider = keys.NewStaticProvider(nil)
	}
	versionDetector := cfg.VersionDetector
	if versionDetector == nil {
		versionDetector = FixedVersion{Version: "A"}
	}
	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = storage.NewHTTPSheetFetcher()
	}

	var norm *normalizer.Normalizer
	if cfg.NormalizerCfg != nil {
		norm = normalizer.NewWithConfig(*cfg.NormalizerCfg)
	} else {
		norm = normalizer.New()
	}

	events := observer.NewEventPublisher()
	for _, obs := range cfg.Observers {
		events.Subscribe(obs)
	}

	return &Engine{
		opts:     opts,
		keys:     keysProvider,
		sink:     cfg.Sink,
		fetcher:  fetcher,
		version:  versionDetector,
		norm:     norm,
		detect:   detector.New(opts.Detection, opts.OptionsPerQuestion),
		classify: classifier.New(opts.FillThreshold),
		mapping:  mapper.New(opts.OptionsPerQuestion, opts.ConfidenceThreshold),
		score:    scorer.New(opts.Subjects, opts.QuestionsPerSubject, opts.SubjectMaxScore),
		render:   overlay.New(opts.OptionsPerQuestion),
		quality:  validation.NewScanValidator(),
		urls:     validation.NewURLValidator(),
		events:   events,
	}
}

// Options returns the engine's configuration snapshot.
func (e *Engine) Options() models.ProcessingOptions {
	return e.opts
}

// Process runs the full pipeline for one sheet. All failures are folded
// into the returned result; Process never returns an error, so a batch
// can treat every sheet uniformly.
func (e *Engine) Process(ctx context.Context, sheet Sheet) (result models.ProcessingResult) {
	started := time.Now()
	result = models.ProcessingResult{
		ID:            uuid.NewString(),
		StudentID:     sheet.StudentID,
		SheetVersion:  sheet.DeclaredVersion,
		Timestamp:     started.UTC(),
		ArtifactPaths: map[string]string{},
	}
	if sheet.Source != "" {
		result.ArtifactPaths["original"] = sheet.Source
	}
	log := logger.ForSheet(sheet.Source)

	e.events.NotifyObservers(ctx, observer.ProcessingEvent{
		EventType: observer.SheetStarted,
		Timestamp: started.UTC(),
		SheetID:   result.ID,
		Source:    sheet.Source,
	})
	defer func() {
		e.events.NotifyObservers(ctx, observer.FromResult(result, sheet.Source, time.Since(started)))
	}()

	src, err := e.resolveImage(ctx, sheet)
	if err != nil {
		return e.fail(result, err, omrerrors.StageNormalize)
	}

	norm, err := e.norm.Normalize(src)
	if err != nil {
		return e.fail(result, err, omrerrors.StageNormalize)
	}
	result.ProcessingInfo = norm.Info
	for _, issue := range e.quality.Validate(norm.Gray, norm.Info) {
		result.Warnings = append(result.Warnings, issue.Message)
	}
	e.storeArtifact(ctx, &result, "processed", norm.Gray)

	if e.opts.AutoDetectVersion && sheet.DeclaredVersion == "" {
		version, vErr := e.version.DetectVersion(src)
		if vErr != nil {
			log.WithError(vErr).Warn("sheet version detection failed")
		} else {
			result.SheetVersion = version
		}
	}

	grid := e.detect.DetectGrid(norm)
	result.Grid = grid
	if grid.Empty() {
		return e.fail(result, omrerrors.NewNoBubblesDetectedError("no bubbles detected in the image"), omrerrors.StageDetect)
	}
	if grid.Degraded() || grid.Diagnostics.RepairedRows > 0 {
		gridErr := omrerrors.NewMalformedGridError(
			fmt.Sprintf("%d degraded rows, %d repaired rows", len(grid.Diagnostics.DegradedRows), grid.Diagnostics.RepairedRows),
			e.opts.StrictGrid && grid.Degraded(),
		)
		if gridErr.Terminal {
			return e.fail(result, gridErr, omrerrors.StageDetect)
		}
		result.Warnings = append(result.Warnings, gridErr.Error())
		log.Warn(gridErr.Error())
	}

	classification := e.classify.Classify(norm, grid)
	result.Classification = classification
	result.ConfidenceMetrics = confidenceMetrics(classification)

	answers, flagged := e.mapping.Map(grid, classification)
	result.Answers = answers
	result.FlaggedQuestions = flagged

	if key, ok := e.keys.AnswerKey(result.SheetVersion); ok {
		result.Scores = e.score.Score(answers, key)
	} else {
		keyErr := omrerrors.NewMissingAnswerKeyError(result.SheetVersion)
		result.ScoreError = keyErr.Error()
		result.Error = toProcessingError(keyErr)
		log.Warn(keyErr.Error())
	}

	annotated := e.render.Render(src, grid, classification)
	e.storeArtifact(ctx, &result, "overlay", annotated)

	result.Success = true
	return result
}

// ProcessFile is a convenience wrapper for path-based callers.
func (e *Engine) ProcessFile(ctx context.Context, path, declaredVersion string) models.ProcessingResult {
	return e.Process(ctx, Sheet{Source: path, DeclaredVersion: declaredVersion})
}

// resolveImage turns whichever request form was given into a decoded image.
func (e *Engine) resolveImage(ctx context.Context, sheet Sheet) (image.Image, error) {
	if sheet.Image != nil {
		return sheet.Image, nil
	}

	data := sheet.Data
	isPDF := false
	if data == nil {
		if sheet.Source == "" {
			return nil, omrerrors.NewUnreadableImageError("no image, data or source given", nil)
		}
		var err error
		if strings.HasPrefix(sheet.Source, "http://") || strings.HasPrefix(sheet.Source, "https://") {
			if err := e.urls.ValidateSheetURL(sheet.Source); err != nil {
				return nil, err
			}
			data, err = e.fetcher.FetchSheet(ctx, sheet.Source)
			if err != nil {
				return nil, omrerrors.NewUnreadableImageError("failed to fetch sheet", err)
			}
		} else {
			data, err = os.ReadFile(sheet.Source)
			if err != nil {
				return nil, omrerrors.NewUnreadableImageError("failed to read sheet file", err)
			}
		}
		isPDF = strings.EqualFold(filepath.Ext(sheet.Source), ".pdf")
	}

	if isPDF || bytes.HasPrefix(data, []byte("%PDF")) {
		return document.ExtractPageImage(bytes.NewReader(data))
	}

	img, _, err := normalizer.DecodeBytes(data)
	return img, err
}

// storeArtifact hands an image to the sink. Sink failures are logged and
// ignored: the audit trail must never decide a sheet's fate.
func (e *Engine) storeArtifact(ctx context.Context, result *models.ProcessingResult, name string, img image.Image) {
	if e.sink == nil {
		return
	}
	locator, err := e.sink.Store(ctx, result.ID, name, img)
	if err != nil {
		logger.WithError(err).WithField("artifact", name).Warn("failed to store artifact")
		return
	}
	result.ArtifactPaths[name] = locator
}

func (e *Engine) fail(result models.ProcessingResult, err error, stage omrerrors.Stage) models.ProcessingResult {
	pErr := omrerrors.AsPipelineError(err, stage)
	result.Success = false
	result.Error = toProcessingError(pErr)
	result.ErrorMessage = pErr.Error()
	logger.WithError(pErr).Error("sheet processing failed")
	return result
}

func toProcessingError(pErr *omrerrors.PipelineError) *models.ProcessingError {
	return &models.ProcessingError{
		Kind:     string(pErr.Kind),
		Stage:    string(pErr.Stage),
		Message:  pErr.Message,
		Terminal: pErr.Terminal,
	}
}

// confidenceMetrics summarises the per-bubble confidence distribution.
func confidenceMetrics(c *models.Classification) *models.ConfidenceMetrics {
	if c.Len() == 0 {
		return nil
	}
	low := 0
	for _, conf := range c.Confidence {
		if conf < lowConfidenceCutoff {
			low++
		}
	}
	return &models.ConfidenceMetrics{
		Average:            stat.Mean(c.Confidence, nil),
		Min:                floats.Min(c.Confidence),
		Max:                floats.Max(c.Confidence),
		LowConfidenceCount: low,
	}
}
