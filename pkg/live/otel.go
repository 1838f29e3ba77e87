package live

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "reflow"

// TracerConfig configures frame tracing.
type TracerConfig struct {
	// TracerName is the name of the tracer (default: "reflow").
	TracerName string

	// Filter determines which frames to trace. Return true to trace the
	// frame, false to skip. If nil, all frames are traced.
	Filter func(f Frame) bool

	// AttributeExtractor extracts custom attributes per frame.
	AttributeExtractor func(f Frame) []attribute.KeyValue
}

// TracerOption configures frame tracing.
type TracerOption func(*TracerConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracerOption {
	return func(c *TracerConfig) {
		c.TracerName = name
	}
}

// WithFrameFilter sets a filter function for frames.
func WithFrameFilter(filter func(f Frame) bool) TracerOption {
	return func(c *TracerConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(f Frame) []attribute.KeyValue) TracerOption {
	return func(c *TracerConfig) {
		c.AttributeExtractor = extractor
	}
}

// Tracer creates one span per inbound frame, named after the frame type,
// carrying the channel and peer as attributes.
//
// The tracer resolves from the global OpenTelemetry provider; configure it
// in main() before starting the server:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
//	hub := live.NewHub(live.WithTracer(live.NewTracer()))
type Tracer struct {
	config TracerConfig
	tracer trace.Tracer
}

// NewTracer creates a frame tracer from the global provider.
func NewTracer(opts ...TracerOption) *Tracer {
	config := TracerConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	return &Tracer{
		config: config,
		tracer: otel.Tracer(config.TracerName),
	}
}

// frameSpan wraps a span so call sites need no nil checks; a nil *Tracer
// produces an inert span.
type frameSpan struct {
	span trace.Span
}

func (s frameSpan) End() {
	if s.span != nil {
		s.span.End()
	}
}

func (s frameSpan) recordError(err error) {
	if s.span == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// start opens a span for one inbound frame. Safe on a nil receiver.
func (t *Tracer) start(ctx context.Context, p *Peer, f Frame) (context.Context, frameSpan) {
	if t == nil {
		return ctx, frameSpan{}
	}
	if t.config.Filter != nil && !t.config.Filter(f) {
		return ctx, frameSpan{}
	}

	attrs := []attribute.KeyValue{
		attribute.String("reflow.frame_type", string(f.Type)),
		attribute.String("reflow.channel", f.Channel),
		attribute.String("reflow.peer", p.ID()),
	}
	if t.config.AttributeExtractor != nil {
		attrs = append(attrs, t.config.AttributeExtractor(f)...)
	}

	spanCtx, span := t.tracer.Start(
		ctx,
		"reflow.frame."+string(f.Type),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
	return spanCtx, frameSpan{span: span}
}
