package preprint

import (
	"context"
	"errors"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) PreprintSubmitted(ctx context.Context, p *Preprint) error {
	return nil
}

func (n *NoopEventSink) DOIMinted(ctx context.Context, p *Preprint) error {
	return nil
}

// LoggingEventSink writes lifecycle events to a slog logger
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates an event sink logging at info level
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) PreprintSubmitted(ctx context.Context, p *Preprint) error {
	l.logger.InfoContext(ctx, "Preprint submitted",
		"preprint_id", p.ID,
		"category", p.Category,
		"pdf_file", p.FileLocator,
	)
	return nil
}

func (l *LoggingEventSink) DOIMinted(ctx context.Context, p *Preprint) error {
	var doi string
	if p.DOI != nil {
		doi = *p.DOI
	}
	l.logger.InfoContext(ctx, "DOI minted", "preprint_id", p.ID, "doi", doi)
	return nil
}

// MultiEventSink fans events out to several sinks
type MultiEventSink []EventSink

func (m MultiEventSink) PreprintSubmitted(ctx context.Context, p *Preprint) error {
	var errs []error
	for _, s := range m {
		if err := s.PreprintSubmitted(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiEventSink) DOIMinted(ctx context.Context, p *Preprint) error {
	var errs []error
	for _, s := range m {
		if err := s.DOIMinted(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
