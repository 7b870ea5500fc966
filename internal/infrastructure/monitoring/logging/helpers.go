package logging

import "time"

// Canonical field keys shared across packages.
const (
	FieldKeggID    = "kegg_id"
	FieldRunID     = "run_id"
	FieldRequestID = "request_id"
	FieldPipeline  = "pipeline"
)

// SlowOperationThreshold is the duration above which LogOperationDuration
// escalates to WARN.
const SlowOperationThreshold = 5 * time.Second

// LogOperationDuration logs the elapsed time since start for op.
func LogOperationDuration(l Logger, op string, start time.Time, fields ...Field) {
	elapsed := time.Since(start)
	fields = append(fields,
		String("operation", op),
		Int64("duration_ms", elapsed.Milliseconds()),
	)
	if elapsed > SlowOperationThreshold {
		l.Warn("slow operation", fields...)
		return
	}
	l.Info("operation completed", fields...)
}

// LogRemoteCall records one HTTP exchange with an upstream service.
func LogRemoteCall(l Logger, method, url string, status int, elapsed time.Duration, err error) {
	fields := []Field{
		String("method", method),
		String("url", url),
		Int("status", status),
		Duration("elapsed", elapsed),
	}
	if err != nil {
		l.Warn("remote call failed", append(fields, Err(err))...)
		return
	}
	l.Debug("remote call completed", fields...)
}
