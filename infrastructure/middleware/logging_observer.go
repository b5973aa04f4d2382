package middleware

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

var _ StageObserver = (*LoggingObserver)(nil)

// LoggingObserver writes one structured log entry per stage.
type LoggingObserver struct {
	logger logrus.FieldLogger
}

// NewLoggingObserver creates an observer that logs to logger.
func NewLoggingObserver(logger logrus.FieldLogger) *LoggingObserver {
	return &LoggingObserver{logger: logger}
}

// BeforeStage implements StageObserver.
func (l *LoggingObserver) BeforeStage(ctx context.Context, _ StageInfo) context.Context { return ctx }

// AfterStage implements StageObserver. Successful stages log at debug
// level; failures at info, since the run itself reports the error.
func (l *LoggingObserver) AfterStage(_ context.Context, info StageInfo, elapsed time.Duration, err error) {
	entry := l.logger.WithFields(logrus.Fields{
		"unit":         info.Unit,
		"execution_id": info.ExecutionID,
		"duration":     elapsed,
	})
	if err != nil {
		entry.WithError(err).Info("stage failed")
		return
	}
	entry.Debug("stage finished")
}
