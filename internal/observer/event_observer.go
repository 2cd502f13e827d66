package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-omr-engine/internal/logger"
	"go-omr-engine/pkg/models"
)

// ProcessingEvent describes one lifecycle moment of a sheet run.
type ProcessingEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	SheetID        string                 `json:"sheet_id"`
	Source         string                 `json:"source,omitempty"`
	SheetVersion   string                 `json:"sheet_version,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	FlaggedCount   int                    `json:"flagged_count"`
	TotalScore     float64                `json:"total_score"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of processing event
type EventType string

const (
	// SheetStarted when a sheet enters the pipeline
	SheetStarted EventType = "sheet_started"
	// SheetCompleted when a sheet finishes successfully
	SheetCompleted EventType = "sheet_completed"
	// SheetFailed when a sheet fails terminally
	SheetFailed EventType = "sheet_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event ProcessingEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event ProcessingEvent)
}

// LoggingObserver logs processing events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(log *logrus.Logger) Observer {
	if log == nil {
		log = logger.Logger
	}
	return &LoggingObserver{logger: log}
}

// OnEvent handles processing events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event ProcessingEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"sheet_id":        event.SheetID,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.Source != "" {
		fields["source"] = event.Source
	}
	if event.SheetVersion != "" {
		fields["sheet_version"] = event.SheetVersion
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	switch event.EventType {
	case SheetStarted:
		o.logger.WithFields(fields).Debug("Sheet processing started")
	case SheetCompleted:
		o.logger.WithFields(fields).Info("Sheet processing completed")
	case SheetFailed:
		o.logger.WithFields(fields).Error("Sheet processing failed")
	default:
		o.logger.WithFields(fields).Info("Processing event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects counters from processing events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalSheets         int64
	successfulSheets    int64
	failedSheets        int64
	flaggedQuestions    int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles processing events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event ProcessingEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case SheetStarted:
		o.totalSheets++
	case SheetCompleted:
		o.successfulSheets++
		o.flaggedQuestions += int64(event.FlaggedCount)
		o.totalProcessingTime += event.ProcessingTime
	case SheetFailed:
		o.failedSheets++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current counters
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.successfulSheets > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.successfulSheets)
	}

	return map[string]interface{}{
		"total_sheets":          o.totalSheets,
		"successful_sheets":     o.successfulSheets,
		"failed_sheets":         o.failedSheets,
		"flagged_questions":     o.flaggedQuestions,
		"total_processing_time": o.totalProcessingTime,
		"avg_processing_time":   avgProcessingTime,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{observers: make([]Observer, 0)}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers an event to every observer synchronously, so a
// completed batch has no trailing notifications in flight. A panicking
// observer is contained and logged.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event ProcessingEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, obs := range observers {
		func(obs Observer) {
			defer func() {
				if r := recover(); r != nil {
					logger.WithFields(logrus.Fields{
						"observer": obs.GetObserverName(),
						"panic":    r,
					}).Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(obs)
	}
}

// FromResult builds a completion or failure event from a pipeline result.
func FromResult(result models.ProcessingResult, source string, elapsed time.Duration) ProcessingEvent {
	event := ProcessingEvent{
		Timestamp:      time.Now().UTC(),
		SheetID:        result.ID,
		Source:         source,
		SheetVersion:   result.SheetVersion,
		ProcessingTime: elapsed,
		Success:        result.Success,
		FlaggedCount:   len(result.FlaggedQuestions),
		ErrorMessage:   result.ErrorMessage,
	}
	if result.Success {
		event.EventType = SheetCompleted
		if result.Scores != nil {
			event.TotalScore = result.Scores.TotalScore
		}
	} else {
		event.EventType = SheetFailed
	}
	return event
}
