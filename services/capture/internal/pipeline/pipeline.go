package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"jobsnap/common/telemetry"
	"jobsnap/services/capture/internal/errors"
	"jobsnap/services/capture/internal/messaging"
	"jobsnap/services/capture/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("jobsnap/capture/pipeline")

// recoveryDelay is how long the agent gets to come up after a late injection.
const recoveryDelay = 100 * time.Millisecond

var missingSettingMessages = map[string]string{
	models.SettingsKeyAPIKey:     "Gemini API key not configured. Please go to settings.",
	models.SettingsKeyWebhookURL: "Google Apps Script webhook URL not configured. Please go to settings.",
}

type SettingsReader interface {
	Load(ctx context.Context) (models.Settings, error)
}

type PageExtractor interface {
	RequestExtraction(ctx context.Context, tabID string) (*models.PageDocument, error)
}

type Injector interface {
	Inject(ctx context.Context, tabID string) error
}

type Classifier interface {
	Classify(ctx context.Context, doc *models.PageDocument, apiKey string) (*models.JobRecord, error)
}

type Appender interface {
	Append(ctx context.Context, webhookURL string, row models.SheetRow) error
}

type Ledger interface {
	Record(ctx context.Context, captureID string, row models.SheetRow) error
}

type Notifier interface {
	Captured(ctx context.Context, reply models.CaptureReply) error
}

// Pipeline turns a page into a spreadsheet row: extract, classify, persist.
type Pipeline struct {
	settings   SettingsReader
	extractor  PageExtractor
	injector   Injector
	classifier Classifier
	appender   Appender
	ledger     Ledger
	notifier   Notifier
	logger     *zap.Logger

	now        func() time.Time
	retryDelay time.Duration
}

func New(
	settings SettingsReader,
	extractor PageExtractor,
	injector Injector,
	classifier Classifier,
	appender Appender,
	ledger Ledger,
	notifier Notifier,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		settings:   settings,
		extractor:  extractor,
		injector:   injector,
		classifier: classifier,
		appender:   appender,
		ledger:     ledger,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
		retryDelay: recoveryDelay,
	}
}

// Capture runs the full pipeline for an open tab. Cancelling ctx does not
// stop a run that has started.
func (p *Pipeline) Capture(ctx context.Context, tabID string) *Result {
	return p.capture(context.WithoutCancel(ctx), uuid.NewString(), tabID)
}

// Process runs the pipeline for a document that was extracted elsewhere.
func (p *Pipeline) Process(ctx context.Context, doc *models.PageDocument) *Result {
	ctx = context.WithoutCancel(ctx)
	res := &Result{CaptureID: uuid.NewString(), State: StateIdle}
	logger := p.logger.With(zap.String("capture_id", res.CaptureID))

	ctx, span := tracer.Start(ctx, "Process")
	defer span.End()
	span.SetAttributes(telemetry.String("capture.id", res.CaptureID))

	defer p.finish(ctx, res, logger)

	if doc == nil {
		return res.fail(errors.InvalidInput("no page data", nil))
	}

	settings, err := p.loadSettings(ctx)
	if err != nil {
		return res.fail(err)
	}

	return p.classifyAndPersist(ctx, res, settings, doc, logger)
}

func (p *Pipeline) capture(ctx context.Context, captureID, tabID string) *Result {
	res := &Result{CaptureID: captureID, State: StateIdle}
	logger := p.logger.With(zap.String("capture_id", captureID), zap.String("tab_id", tabID))

	ctx, span := tracer.Start(ctx, "Capture")
	defer span.End()
	span.SetAttributes(
		telemetry.String("capture.id", captureID),
		telemetry.String("tab.id", tabID),
	)

	defer p.finish(ctx, res, logger)

	settings, err := p.loadSettings(ctx)
	if err != nil {
		return res.fail(err)
	}

	res.advance(StateExtracting)
	doc, err := p.extract(ctx, tabID, logger)
	if err != nil {
		span.RecordError(err)
		return res.fail(err)
	}

	return p.classifyAndPersist(ctx, res, settings, doc, logger)
}

func (p *Pipeline) loadSettings(ctx context.Context) (models.Settings, error) {
	settings, err := p.settings.Load(ctx)
	if err != nil {
		return models.Settings{}, err
	}
	settings = settings.Normalize()
	if err := CheckSettings(settings); err != nil {
		return models.Settings{}, err
	}
	return settings, nil
}

// CheckSettings returns the configuration error a capture with these
// settings fails with, or nil when both are set.
func CheckSettings(settings models.Settings) error {
	if missing := settings.Normalize().MissingField(); missing != "" {
		return errors.Configuration(missingSettingMessages[missing], nil)
	}
	return nil
}

// extract asks the tab's agent for the page. If nothing answers, the agent
// is injected and the request retried exactly once.
func (p *Pipeline) extract(ctx context.Context, tabID string, logger *zap.Logger) (*models.PageDocument, error) {
	doc, err := p.extractor.RequestExtraction(ctx, tabID)
	if err == nil {
		return doc, nil
	}
	if !stderrors.Is(err, messaging.ErrNoResponder) {
		return nil, asExtraction(err)
	}

	logger.Info("no extractor loaded, injecting")
	if err := p.injector.Inject(ctx, tabID); err != nil {
		return nil, asExtraction(err)
	}

	time.Sleep(p.retryDelay)

	doc, err = p.extractor.RequestExtraction(ctx, tabID)
	if err != nil {
		return nil, asExtraction(err)
	}
	return doc, nil
}

func asExtraction(err error) error {
	if errors.TypeOf(err) != "" {
		return err
	}
	return errors.Extraction(fmt.Sprintf("Could not read the page: %v", err), err)
}

func (p *Pipeline) classifyAndPersist(ctx context.Context, res *Result, settings models.Settings, doc *models.PageDocument, logger *zap.Logger) *Result {
	res.advance(StateClassifying)
	record, err := p.classifier.Classify(ctx, doc, settings.APIKey)
	if err != nil {
		return res.fail(err)
	}
	record.URL = doc.URL
	res.Record = record

	res.advance(StatePersisting)
	row, err := models.NewSheetRow(record, p.now())
	if err != nil {
		return res.fail(errors.Persistence(err.Error(), err))
	}
	res.Row = &row

	if err := p.appender.Append(ctx, settings.WebhookURL, row); err != nil {
		return res.fail(err)
	}
	res.advance(StateSucceeded)

	if err := p.ledger.Record(ctx, res.CaptureID, row); err != nil {
		logger.Warn("failed to record application in ledger", zap.Error(err))
	}

	return res
}

func (p *Pipeline) finish(ctx context.Context, res *Result, logger *zap.Logger) {
	if res.Success() {
		logger.Info("capture succeeded",
			zap.String("state", string(res.State)),
			zap.String("company", res.Row.Company),
			zap.String("job_title", res.Row.JobTitle))
	} else {
		logger.Error("capture failed",
			zap.String("state", string(res.State)),
			zap.String("error_type", string(errors.TypeOf(res.Err))),
			zap.Error(res.Err))
	}

	if err := p.notifier.Captured(ctx, res.Reply()); err != nil {
		logger.Warn("failed to publish capture outcome", zap.Error(err))
	}
}
