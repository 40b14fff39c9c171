package analysis

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/pkg/utils"
)

// ResultLog stores successful per-keyword results.
type ResultLog interface {
	SaveResult(ctx context.Context, keyword string, data *models.KeywordData) (string, error)
}

// RecordingAnalyzer saves every successful keyword result to a ResultLog.
// Log failures are logged and do not affect the returned result.
type RecordingAnalyzer struct {
	next   Analyzer
	log    ResultLog
	logger *zap.Logger
}

// NewRecordingAnalyzer wraps next so successful results are written to log.
func NewRecordingAnalyzer(next Analyzer, log ResultLog, logger *zap.Logger) *RecordingAnalyzer {
	return &RecordingAnalyzer{next: next, log: log, logger: utils.OrNop(logger)}
}

func (r *RecordingAnalyzer) Analyze(ctx context.Context, keywords []string) (*models.ResultSet, error) {
	rs, err := r.next.Analyze(ctx, keywords)
	if err != nil {
		return nil, err
	}
	for _, res := range rs.Results() {
		data, ok := res.OK()
		if !ok {
			continue
		}
		if _, err := r.log.SaveResult(ctx, res.Keyword, data); err != nil {
			r.logger.Warn("failed to save result", zap.String("keyword", res.Keyword), zap.Error(err))
		}
	}
	return rs, nil
}
