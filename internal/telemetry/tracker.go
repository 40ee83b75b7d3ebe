package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/copylog/copylog/internal/tracker"
	"github.com/copylog/copylog/internal/types"
)

const trackerScopeName = "github.com/copylog/copylog/tracker"

// InstrumentedTracker wraps tracker.IssueTracker with OTel tracing and
// metrics. Every call gets a span and is counted in copylog.tracker.*
// metrics. Use WrapTracker to create one; it returns the original tracker
// unchanged when telemetry is disabled.
type InstrumentedTracker struct {
	inner  tracker.IssueTracker
	role   string
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

var _ tracker.IssueTracker = (*InstrumentedTracker)(nil)

// WrapTracker returns t decorated with OTel instrumentation. role names the
// side of the copy ("source" or "target") and is attached to every span.
// When telemetry is disabled, t is returned as-is.
func WrapTracker(t tracker.IssueTracker, role string) tracker.IssueTracker {
	if !Enabled() {
		return t
	}
	return newInstrumentedTracker(t, role)
}

func newInstrumentedTracker(t tracker.IssueTracker, role string) *InstrumentedTracker {
	m := Meter(trackerScopeName)
	ops, _ := m.Int64Counter("copylog.tracker.operations",
		metric.WithDescription("Total tracker operations executed"),
	)
	dur, _ := m.Float64Histogram("copylog.tracker.operation.duration",
		metric.WithDescription("Tracker operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("copylog.tracker.errors",
		metric.WithDescription("Total tracker operation errors"),
	)
	return &InstrumentedTracker{
		inner:  t,
		role:   role,
		tracer: Tracer(trackerScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

// op starts a span and records a metric for the named tracker operation.
func (s *InstrumentedTracker) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time, []attribute.KeyValue) {
	all := append([]attribute.KeyValue{
		attribute.String("copylog.operation", name),
		attribute.String("copylog.role", s.role),
		attribute.String("copylog.tracker", s.inner.Name()),
	}, attrs...)
	ctx, span := s.tracer.Start(ctx, "tracker."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	s.ops.Add(ctx, 1, metric.WithAttributes(all[:3]...))
	return ctx, span, time.Now(), all[:3]
}

// done ends the span, records duration and optional error.
func (s *InstrumentedTracker) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs []attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	s.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

func (s *InstrumentedTracker) Name() string    { return s.inner.Name() }
func (s *InstrumentedTracker) BaseURL() string { return s.inner.BaseURL() }

func (s *InstrumentedTracker) Init(ctx context.Context, ep tracker.Endpoint) error {
	ctx, span, t, m := s.op(ctx, "Init", attribute.String("url.full", ep.URL))
	err := s.inner.Init(ctx, ep)
	s.done(ctx, span, t, err, m)
	return err
}

func (s *InstrumentedTracker) VerifyCredentials(ctx context.Context, username string) error {
	ctx, span, t, m := s.op(ctx, "VerifyCredentials", attribute.String("copylog.user", username))
	err := s.inner.VerifyCredentials(ctx, username)
	s.done(ctx, span, t, err, m)
	return err
}

func (s *InstrumentedTracker) Search(ctx context.Context, query string, limit int) ([]types.Issue, error) {
	ctx, span, t, m := s.op(ctx, "Search",
		attribute.String("copylog.query", query),
		attribute.Int("copylog.limit", limit),
	)
	issues, err := s.inner.Search(ctx, query, limit)
	if err == nil {
		span.SetAttributes(attribute.Int("copylog.result.count", len(issues)))
	}
	s.done(ctx, span, t, err, m)
	return issues, err
}

func (s *InstrumentedTracker) SearchAll(ctx context.Context, query string) ([]types.Issue, error) {
	ctx, span, t, m := s.op(ctx, "SearchAll", attribute.String("copylog.query", query))
	issues, err := s.inner.SearchAll(ctx, query)
	if err == nil {
		span.SetAttributes(attribute.Int("copylog.result.count", len(issues)))
	}
	s.done(ctx, span, t, err, m)
	return issues, err
}

func (s *InstrumentedTracker) GetIssue(ctx context.Context, key string) (*types.Issue, error) {
	ctx, span, t, m := s.op(ctx, "GetIssue", attribute.String("copylog.issue.key", key))
	v, err := s.inner.GetIssue(ctx, key)
	s.done(ctx, span, t, err, m)
	return v, err
}

func (s *InstrumentedTracker) GetFullWorklog(ctx context.Context, issueKey string) ([]types.Worklog, error) {
	ctx, span, t, m := s.op(ctx, "GetFullWorklog", attribute.String("copylog.issue.key", issueKey))
	logs, err := s.inner.GetFullWorklog(ctx, issueKey)
	if err == nil {
		span.SetAttributes(attribute.Int("copylog.result.count", len(logs)))
	}
	s.done(ctx, span, t, err, m)
	return logs, err
}

func (s *InstrumentedTracker) GetProject(ctx context.Context, key string) (*types.Project, error) {
	ctx, span, t, m := s.op(ctx, "GetProject", attribute.String("copylog.project", key))
	v, err := s.inner.GetProject(ctx, key)
	s.done(ctx, span, t, err, m)
	return v, err
}

func (s *InstrumentedTracker) GetProjectVersions(ctx context.Context, key string) ([]types.Version, error) {
	ctx, span, t, m := s.op(ctx, "GetProjectVersions", attribute.String("copylog.project", key))
	v, err := s.inner.GetProjectVersions(ctx, key)
	s.done(ctx, span, t, err, m)
	return v, err
}

func (s *InstrumentedTracker) CreateIssue(ctx context.Context, in types.IssueInput) (*types.Issue, error) {
	ctx, span, t, m := s.op(ctx, "CreateIssue",
		attribute.String("copylog.project.id", in.ProjectID),
		attribute.String("copylog.issue.summary", in.Summary),
	)
	issue, err := s.inner.CreateIssue(ctx, in)
	if err == nil && issue != nil {
		span.SetAttributes(attribute.String("copylog.issue.key", issue.Key))
	}
	s.done(ctx, span, t, err, m)
	return issue, err
}

func (s *InstrumentedTracker) CreateWorklog(ctx context.Context, issueKey string, in types.WorklogInput, adj *types.EstimateAdjustment) (*types.Worklog, error) {
	ctx, span, t, m := s.op(ctx, "CreateWorklog",
		attribute.String("copylog.issue.key", issueKey),
		attribute.Int("copylog.worklog.seconds", in.TimeSpentSeconds),
	)
	wl, err := s.inner.CreateWorklog(ctx, issueKey, in, adj)
	s.done(ctx, span, t, err, m)
	return wl, err
}
