package ledger

import (
	"context"
	"fmt"
	"time"

	"jobsnap/common/telemetry"
	"jobsnap/services/capture/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("jobsnap/capture/ledger")

const insertApplication = `
	INSERT INTO applications (
		id, capture_id, date_applied, company, job_title, position_type,
		location, salary, schedule, experience_level, url, status,
		description, captured_at
	) VALUES (
		?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
	)
`

// Execer is the part of clickhouse.Conn the ledger uses.
type Execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// ClickHouse mirrors appended rows into the applications table.
type ClickHouse struct {
	db     Execer
	logger *zap.Logger
	now    func() time.Time
}

func NewClickHouse(db Execer, logger *zap.Logger) *ClickHouse {
	return &ClickHouse{db: db, logger: logger, now: time.Now}
}

// ApplicationID is stable for a given posting URL, so recapturing a posting
// replaces the earlier row once ReplacingMergeTree merges.
func ApplicationID(url string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url))
}

func (l *ClickHouse) Record(ctx context.Context, captureID string, row models.SheetRow) error {
	ctx, span := tracer.Start(ctx, "Record")
	defer span.End()

	captureUUID, err := uuid.Parse(captureID)
	if err != nil {
		return fmt.Errorf("parse capture id: %w", err)
	}

	id := ApplicationID(row.URL)
	if err := l.db.Exec(ctx, insertApplication,
		id,
		captureUUID,
		row.DateApplied,
		row.Company,
		row.JobTitle,
		row.PositionType,
		row.Location,
		row.Salary,
		row.Schedule,
		row.ExperienceLevel,
		row.URL,
		row.Status,
		row.Description,
		l.now().UTC(),
	); err != nil {
		span.RecordError(err)
		return fmt.Errorf("insert application: %w", err)
	}

	l.logger.Debug("recorded application",
		zap.String("id", id.String()),
		zap.String("capture_id", captureID))
	return nil
}

// Noop is used when the ledger is disabled.
type Noop struct{}

func (Noop) Record(ctx context.Context, captureID string, row models.SheetRow) error {
	return nil
}
