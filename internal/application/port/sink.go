package port

import (
	"time"

	"mdrisk/internal/domain/model"
)

type Sink interface {
	// WriteLive overwrites the current line.
	WriteLive(line string) error
	// WriteSnapshot appends a timestamped line and leaves an empty line for live updates.
	WriteSnapshot(ts time.Time, line string) error
	NewLine() error
}

// ReportWriter 风险报告输出
type ReportWriter interface {
	WriteRiskReport(r model.RiskReport) error
}
