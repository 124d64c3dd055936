package discuss

import (
	"sync"
)

type EventType string

const (
	EventCreated   EventType = "created"
	EventUpdated   EventType = "updated"
	EventDeleted   EventType = "deleted"
	EventModerated EventType = "moderated"
)

type Event struct {
	Type    EventType
	Comment *Comment
}

const subscriberBuffer = 16

// Broker fans comment events out to per-article subscribers. Publishing
// never blocks: a subscriber whose buffer is full misses the event.
type Broker struct {
	mu          sync.RWMutex
	nextID      int
	subscribers map[string]map[int]chan Event
}

func NewBroker() *Broker {
	return &Broker{subscribers: make(map[string]map[int]chan Event)}
}

// Subscribe returns the event channel for articleID and a function that
// unsubscribes and closes it.
func (b *Broker) Subscribe(articleID string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan Event, subscriberBuffer)

	if b.subscribers[articleID] == nil {
		b.subscribers[articleID] = make(map[int]chan Event)
	}

	b.subscribers[articleID][id] = ch

	var once sync.Once

	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			delete(b.subscribers[articleID], id)

			if len(b.subscribers[articleID]) == 0 {
				delete(b.subscribers, articleID)
			}

			close(ch)
		})
	}

	return ch, cancel
}

func (b *Broker) Publish(eventType EventType, comment *Comment) {
	if b == nil || comment == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	snapshot := *comment

	for _, ch := range b.subscribers[comment.ArticleID] {
		select {
		case ch <- Event{Type: eventType, Comment: &snapshot}:
		default:
		}
	}
}

func (b *Broker) Subscribers(articleID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers[articleID])
}
