package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/channel-pass-bot/internal/events"
	"github.com/Spok95/channel-pass-bot/internal/infra/metrics"
)

type Handler func(ctx context.Context, e events.Event) error

type subscription struct {
	name    string
	handler Handler
}

// Bus — внутрипроцессная шина событий. Каждый обработчик выполняется
// в отдельной горутине со своим таймаутом; ошибка или паника одного
// обработчика не мешает остальным и не видна публикующему.
type Bus struct {
	log     *slog.Logger
	timeout time.Duration
	sem     chan struct{}
	m       *metrics.Metrics

	mu   sync.RWMutex
	subs map[string][]subscription

	wg     sync.WaitGroup
	closed chan struct{}
}

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxInflight = 32
)

func New(log *slog.Logger, timeout time.Duration, maxInflight int, m *metrics.Metrics) *Bus {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxInflight <= 0 {
		maxInflight = defaultMaxInflight
	}
	return &Bus{
		log:     log,
		timeout: timeout,
		sem:     make(chan struct{}, maxInflight),
		m:       m,
		subs:    make(map[string][]subscription),
		closed:  make(chan struct{}),
	}
}

// Subscribe регистрирует обработчик на конкретный тип события.
// name нужен только для логов и метрик.
func (b *Bus) Subscribe(eventType, name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventType] = append(b.subs[eventType], subscription{name: name, handler: h})
}

// Publish раздаёт событие всем подписчикам его типа и сразу возвращается.
// Публикация без подписчиков — no-op.
func (b *Bus) Publish(e events.Event) {
	b.mu.RLock()
	subs := b.subs[e.EventType()]
	b.mu.RUnlock()
	if len(subs) == 0 {
		return
	}

	deliveryID := uuid.NewString()
	for _, s := range subs {
		b.wg.Add(1)
		go b.deliver(deliveryID, s, e)
	}
}

func (b *Bus) deliver(deliveryID string, s subscription, e events.Event) {
	defer b.wg.Done()

	select {
	case b.sem <- struct{}{}:
		defer func() { <-b.sem }()
	case <-b.closed:
		b.log.Warn("event dropped on shutdown",
			"delivery_id", deliveryID, "event", e.EventType(), "subscriber", s.name)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.m.BusDeliveryInc(s.name, "panic")
			b.log.Error("event handler panicked",
				"delivery_id", deliveryID, "event", e.EventType(),
				"subscriber", s.name, "panic", r)
		}
	}()

	if err := s.handler(ctx, e); err != nil {
		b.m.BusDeliveryInc(s.name, "error")
		b.log.Error("event handler failed",
			"delivery_id", deliveryID, "event", e.EventType(),
			"subscriber", s.name, "err", err)
		return
	}
	b.m.BusDeliveryInc(s.name, "ok")
}

// Close дожидается обработчиков в полёте; новые доставки после
// закрытия отбрасываются.
func (b *Bus) Close(ctx context.Context) error {
	close(b.closed)
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
