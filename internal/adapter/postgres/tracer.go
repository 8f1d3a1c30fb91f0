package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/adapter/metrics"
	"github.com/jackc/pgx/v5"
)

// QueryTracer records query durations and failures by statement kind.
type QueryTracer struct {
	metrics *metrics.DBMetrics
}

var (
	_ pgx.QueryTracer    = (*QueryTracer)(nil)
	_ pgx.CopyFromTracer = (*QueryTracer)(nil)
)

func NewQueryTracer(m *metrics.DBMetrics) *QueryTracer {
	return &QueryTracer{metrics: m}
}

type traceKey struct{}

type traceStart struct {
	at    time.Time
	query string
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceKey{}, traceStart{at: time.Now(), query: queryKind(data.SQL)})
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	t.finish(ctx, data.Err)
}

func (t *QueryTracer) TraceCopyFromStart(ctx context.Context, _ *pgx.Conn, _ pgx.TraceCopyFromStartData) context.Context {
	return context.WithValue(ctx, traceKey{}, traceStart{at: time.Now(), query: "COPY"})
}

func (t *QueryTracer) TraceCopyFromEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceCopyFromEndData) {
	t.finish(ctx, data.Err)
}

func (t *QueryTracer) finish(ctx context.Context, err error) {
	start, ok := ctx.Value(traceKey{}).(traceStart)
	if !ok {
		return
	}

	t.metrics.QueryDuration.WithLabelValues(start.query).Observe(time.Since(start.at).Seconds())
	if err != nil {
		t.metrics.ErrorsTotal.WithLabelValues(start.query).Inc()
	}
}

// queryKind reduces SQL to its leading keyword to keep label cardinality low.
func queryKind(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToUpper(fields[0])
}
