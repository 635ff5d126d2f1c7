package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/smart-pantry/internal/core/domain"
	"github.com/rl1809/smart-pantry/internal/core/interpreter"
	"github.com/rl1809/smart-pantry/internal/logger"
	"github.com/rl1809/smart-pantry/internal/metrics"
	"github.com/rl1809/smart-pantry/internal/port"
)

var (
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrItemNotFound     = errors.New("item not found")
	ErrInvalidItem      = errors.New("invalid item")
)

const tracerName = "github.com/rl1809/smart-pantry/internal/core/service"

type Options struct {
	QueueSize     int
	SnapshotLimit int
}

type PantryService struct {
	repo          port.PantryRepository
	cache         port.CacheRepository
	interp        *interpreter.Interpreter
	log           logger.Logger
	tracer        trace.Tracer
	eventQueue    chan domain.PantryEvent
	snapshotLimit int
	closeOnce     sync.Once
}

// CommandResult is what a natural-language command did: the item that was
// added or the item that was removed.
type CommandResult struct {
	Intent interpreter.Intent
	Item   domain.PantryItem
}

func NewPantryService(repo port.PantryRepository, cache port.CacheRepository, interp *interpreter.Interpreter, log logger.Logger, opts Options) *PantryService {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1000
	}
	if opts.SnapshotLimit <= 0 {
		opts.SnapshotLimit = 500
	}
	return &PantryService{
		repo:          repo,
		cache:         cache,
		interp:        interp,
		log:           log,
		tracer:        otel.Tracer(tracerName),
		eventQueue:    make(chan domain.PantryEvent, opts.QueueSize),
		snapshotLimit: opts.SnapshotLimit,
	}
}

// Today is the calendar day the interpreter resolves relative dates against.
func (s *PantryService) Today() time.Time {
	return s.interp.Today()
}

func (s *PantryService) ShelfLifeDays() int {
	return s.interp.ShelfLifeDays()
}

// ReserveRequest claims an idempotency key. It returns ErrDuplicateRequest
// when the key was already claimed. An empty key is always accepted.
func (s *PantryService) ReserveRequest(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	ok, err := s.cache.SetIdempotency(ctx, key)
	if err != nil {
		return fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return ErrDuplicateRequest
	}
	return nil
}

// ReleaseRequest frees a claimed key after the request failed, so a retry
// with the same key is processed instead of reported as a duplicate.
func (s *PantryService) ReleaseRequest(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.cache.ReleaseIdempotency(context.WithoutCancel(ctx), key); err != nil {
		s.log.Warn("idempotency release failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func (s *PantryService) AddItem(ctx context.Context, cmd domain.AddCommand, source domain.EventSource) (domain.PantryItem, error) {
	ctx, span := s.tracer.Start(ctx, "PantryService.AddItem",
		trace.WithAttributes(attribute.String("pantry.source", string(source))))
	defer span.End()

	item, err := s.addItem(ctx, cmd, source, "")
	if err != nil {
		recordSpanError(span, err)
	}
	return item, err
}

func (s *PantryService) addItem(ctx context.Context, cmd domain.AddCommand, source domain.EventSource, utterance string) (domain.PantryItem, error) {
	cmd.Name = strings.TrimSpace(cmd.Name)
	cmd.Location = strings.TrimSpace(cmd.Location)
	if cmd.Name == "" {
		return domain.PantryItem{}, fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if _, err := domain.ParseDate(cmd.ExpirationDate); err != nil {
		return domain.PantryItem{}, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	if cmd.Quantity <= 0 {
		cmd.Quantity = domain.DefaultQuantity
	}

	item := domain.PantryItem{
		ID:             uuid.NewString(),
		Name:           cmd.Name,
		Quantity:       cmd.Quantity,
		ExpirationDate: cmd.ExpirationDate,
		Location:       cmd.Location,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return domain.PantryItem{}, fmt.Errorf("create item: %w", err)
	}

	s.invalidate(ctx)
	metrics.ItemsAdded.WithLabelValues(string(source)).Inc()
	s.emit(ctx, domain.EventItemAdded, item, source, utterance)

	s.log.Info("item added", map[string]interface{}{
		"item_id":         item.ID,
		"name":            item.Name,
		"quantity":        item.Quantity,
		"expiration_date": item.ExpirationDate,
		"source":          source,
	})
	return item, nil
}

func (s *PantryService) ListItems(ctx context.Context, filter domain.ListFilter) ([]domain.PantryItem, error) {
	ctx, span := s.tracer.Start(ctx, "PantryService.ListItems")
	defer span.End()

	items, err := s.repo.ListItems(ctx, filter, domain.FormatDate(s.Today()))
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// Snapshot returns the whole inventory in expiration order, served from the
// cache when possible. Cache failures fall back to the repository.
func (s *PantryService) Snapshot(ctx context.Context) ([]domain.PantryItem, error) {
	items, ok, err := s.cache.GetSnapshot(ctx)
	if err != nil {
		s.log.Warn("snapshot cache read failed", map[string]interface{}{"error": err.Error()})
	}
	if ok {
		return items, nil
	}

	items, err = s.repo.ListItems(ctx, domain.ListFilter{Limit: s.snapshotLimit}, domain.FormatDate(s.Today()))
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	if err := s.cache.SetSnapshot(ctx, items); err != nil {
		s.log.Warn("snapshot cache write failed", map[string]interface{}{"error": err.Error()})
	}
	return items, nil
}

func (s *PantryService) DeleteItem(ctx context.Context, id string, source domain.EventSource) (domain.PantryItem, error) {
	ctx, span := s.tracer.Start(ctx, "PantryService.DeleteItem",
		trace.WithAttributes(attribute.String("pantry.item_id", id)))
	defer span.End()

	item, err := s.deleteItem(ctx, id, source, "")
	if err != nil {
		recordSpanError(span, err)
	}
	return item, err
}

func (s *PantryService) deleteItem(ctx context.Context, id string, source domain.EventSource, utterance string) (domain.PantryItem, error) {
	existing, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return domain.PantryItem{}, fmt.Errorf("get item: %w", err)
	}
	if existing == nil {
		return domain.PantryItem{}, ErrItemNotFound
	}

	deleted, err := s.repo.DeleteItem(ctx, id)
	if err != nil {
		return domain.PantryItem{}, fmt.Errorf("delete item: %w", err)
	}
	if !deleted {
		return domain.PantryItem{}, ErrItemNotFound
	}

	s.invalidate(ctx)
	metrics.ItemsRemoved.WithLabelValues(string(source)).Inc()
	s.emit(ctx, domain.EventItemRemoved, *existing, source, utterance)

	s.log.Info("item removed", map[string]interface{}{
		"item_id": existing.ID,
		"name":    existing.Name,
		"source":  source,
	})
	return *existing, nil
}

// ExecuteCommand interprets a free-form sentence and applies it. A non-empty
// requestID makes the call idempotent.
func (s *PantryService) ExecuteCommand(ctx context.Context, text, requestID string) (CommandResult, error) {
	ctx, span := s.tracer.Start(ctx, "PantryService.ExecuteCommand")
	defer span.End()

	res, err := s.executeCommand(ctx, text, requestID)
	span.SetAttributes(attribute.String("pantry.intent", string(res.Intent)))

	outcome := "ok"
	switch {
	case isClarification(err):
		outcome = "clarify"
	case errors.Is(err, ErrDuplicateRequest):
		outcome = "duplicate"
	case err != nil:
		outcome = "error"
	}
	metrics.CommandsTotal.WithLabelValues(string(res.Intent), outcome).Inc()

	if err != nil {
		recordSpanError(span, err)
		s.log.Info("command not applied", map[string]interface{}{
			"intent":  res.Intent,
			"outcome": outcome,
			"error":   err.Error(),
		})
	}
	return res, err
}

func (s *PantryService) executeCommand(ctx context.Context, text, requestID string) (res CommandResult, err error) {
	intent := interpreter.Classify(text)
	res = CommandResult{Intent: intent}

	key := commandKey(requestID)
	if err := s.ReserveRequest(ctx, key); err != nil {
		return res, err
	}
	defer func() {
		if err != nil {
			s.ReleaseRequest(ctx, key)
		}
	}()

	var snapshot []domain.PantryItem
	if intent == interpreter.IntentDelete {
		var err error
		snapshot, err = s.Snapshot(ctx)
		if err != nil {
			return res, err
		}
	}

	parsed, err := s.interp.Interpret(text, snapshot)
	if err != nil {
		return res, err
	}

	if parsed.Intent == interpreter.IntentDelete {
		item, err := s.deleteItem(ctx, parsed.TargetID, domain.SourceText, text)
		if err != nil {
			return res, err
		}
		res.Item = item
		return res, nil
	}

	item, err := s.addItem(ctx, *parsed.Add, domain.SourceText, text)
	if err != nil {
		return res, err
	}
	res.Item = item
	return res, nil
}

// RemoveByName deletes the item best matching name, using the same candidate
// search and earliest-expiry rule as a typed delete command.
func (s *PantryService) RemoveByName(ctx context.Context, name string, source domain.EventSource) (domain.PantryItem, error) {
	ctx, span := s.tracer.Start(ctx, "PantryService.RemoveByName")
	defer span.End()

	item, err := s.removeByName(ctx, name, source)
	if err != nil {
		recordSpanError(span, err)
	}
	return item, err
}

func (s *PantryService) removeByName(ctx context.Context, name string, source domain.EventSource) (domain.PantryItem, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return domain.PantryItem{}, err
	}

	id, err := interpreter.ResolveTarget(domain.DeleteQuery{Phrase: name}, snapshot)
	if err != nil {
		return domain.PantryItem{}, err
	}
	return s.deleteItem(ctx, id, source, "")
}

func (s *PantryService) Events() <-chan domain.PantryEvent {
	return s.eventQueue
}

func (s *PantryService) Close() {
	s.closeOnce.Do(func() { close(s.eventQueue) })
}

func (s *PantryService) emit(ctx context.Context, kind domain.EventKind, item domain.PantryItem, source domain.EventSource, utterance string) {
	event := domain.PantryEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		ItemID:    item.ID,
		ItemName:  item.Name,
		Source:    source,
		Utterance: utterance,
		CreatedAt: time.Now().UTC(),
	}

	select {
	case s.eventQueue <- event:
		metrics.EventQueueDepth.Set(float64(len(s.eventQueue)))
	case <-ctx.Done():
		s.log.Warn("event dropped", map[string]interface{}{
			"kind":    kind,
			"item_id": item.ID,
			"error":   ctx.Err().Error(),
		})
	}
}

func (s *PantryService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateSnapshot(ctx); err != nil {
		s.log.Warn("snapshot invalidation failed", map[string]interface{}{"error": err.Error()})
	}
}

func commandKey(requestID string) string {
	if requestID == "" {
		return ""
	}
	return "command:" + requestID
}

// isClarification reports whether err asks the user to rephrase rather than
// signalling a failure.
func isClarification(err error) bool {
	return errors.Is(err, interpreter.ErrAmbiguousExpiry) ||
		errors.Is(err, interpreter.ErrEmptyUtterance) ||
		errors.Is(err, interpreter.ErrEmptyDeletePhrase) ||
		errors.Is(err, interpreter.ErrDeleteNotFound)
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
