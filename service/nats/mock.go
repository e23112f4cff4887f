package nats

import (
	"context"
	"sync"

	"github.com/brojonat/dustwatch/service/inspector"
)

// MockPublisher is an in-memory Publisher for tests.
type MockPublisher struct {
	mu              sync.RWMutex
	publishedEvents []*ReportEvent
	publishError    error
	closed          bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{publishedEvents: make([]*ReportEvent, 0)}
}

// PublishReport records the event and returns any configured error.
func (m *MockPublisher) PublishReport(ctx context.Context, report *inspector.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}
	m.publishedEvents = append(m.publishedEvents, FromReport(report))
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetPublishedEvents returns a copy of all published events.
func (m *MockPublisher) GetPublishedEvents() []*ReportEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*ReportEvent, len(m.publishedEvents))
	copy(events, m.publishedEvents)
	return events
}

// GetPublishedEventsForSigner returns events published for signer.
func (m *MockPublisher) GetPublishedEventsForSigner(signer string) []*ReportEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*ReportEvent, 0)
	for _, event := range m.publishedEvents {
		if event.Signer == signer {
			events = append(events, event)
		}
	}
	return events
}

// SetPublishError configures the mock to fail PublishReport.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// MockSubscriber fans events passed to Emit out to matching subscriptions.
type MockSubscriber struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]mockSubscription
	err    error
}

type mockSubscription struct {
	signer string
	fn     func(*ReportEvent)
}

// NewMockSubscriber creates a new mock subscriber for testing.
func NewMockSubscriber() *MockSubscriber {
	return &MockSubscriber{subs: make(map[int]mockSubscription)}
}

// Subscribe implements Subscriber.
func (m *MockSubscriber) Subscribe(ctx context.Context, signer string, fn func(*ReportEvent)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	id := m.nextID
	m.nextID++
	m.subs[id] = mockSubscription{signer: signer, fn: fn}

	stop := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
	go func() {
		<-ctx.Done()
		stop()
	}()
	return stop, nil
}

// Emit delivers event to every subscription whose signer filter matches.
func (m *MockSubscriber) Emit(event *ReportEvent) {
	m.mu.Lock()
	fns := make([]func(*ReportEvent), 0, len(m.subs))
	for _, sub := range m.subs {
		if sub.signer == "" || sub.signer == event.Signer {
			fns = append(fns, sub.fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}

// Subscriptions returns the number of active subscriptions.
func (m *MockSubscriber) Subscriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// SetSubscribeError configures the mock to fail Subscribe.
func (m *MockSubscriber) SetSubscribeError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
