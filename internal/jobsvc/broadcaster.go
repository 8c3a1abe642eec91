// Package jobsvc exposes the chunked correlator as an HTTP+websocket job
// service: POST /jobs enqueues a correlation run, GET /jobs/{id} polls its
// status, and GET /jobs/{id}/events streams progress over a websocket.
// Adapted from the teacher project's session manager / broadcaster /
// websocket trio.
package jobsvc

import "sync"

// EventType names one kind of job progress event.
type EventType string

const (
	EventSegmentMatched EventType = "segment_matched"
	EventMergeDone      EventType = "merge_done"
	EventSelectDone     EventType = "select_done"
	EventJobComplete    EventType = "job_complete"
)

// Event is a single progress event broadcast to a job's websocket
// subscribers.
type Event struct {
	Type  EventType              `json:"type"`
	JobID string                 `json:"jobId"`
	Data  map[string]interface{} `json:"data"`
}

// subscription is one client's event channel, optionally filtered to a
// single job.
type subscription struct {
	jobID   string
	channel chan Event
}

// Broadcaster fans out job progress events to subscribed websocket
// clients using a register/unregister/broadcast goroutine, mirroring the
// teacher project's api.Broadcaster.
type Broadcaster struct {
	mu            sync.RWMutex
	subscriptions map[*subscription]bool
	broadcast     chan Event
	register      chan *subscription
	unregister    chan *subscription
	done          chan struct{}
}

// NewBroadcaster creates and starts a new event broadcaster.
func NewBroadcaster() *Broadcaster {
	b := &Broadcaster{
		subscriptions: make(map[*subscription]bool),
		broadcast:     make(chan Event, 256),
		register:      make(chan *subscription),
		unregister:    make(chan *subscription),
		done:          make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broadcaster) run() {
	for {
		select {
		case sub := <-b.register:
			b.mu.Lock()
			b.subscriptions[sub] = true
			b.mu.Unlock()

		case sub := <-b.unregister:
			b.mu.Lock()
			if b.subscriptions[sub] {
				delete(b.subscriptions, sub)
				close(sub.channel)
			}
			b.mu.Unlock()

		case event := <-b.broadcast:
			b.mu.RLock()
			for sub := range b.subscriptions {
				if sub.jobID != "" && sub.jobID != event.JobID {
					continue
				}
				select {
				case sub.channel <- event:
				default:
					// Slow client; drop the event rather than block the
					// broadcaster.
				}
			}
			b.mu.RUnlock()

		case <-b.done:
			b.mu.Lock()
			for sub := range b.subscriptions {
				close(sub.channel)
			}
			b.subscriptions = make(map[*subscription]bool)
			b.mu.Unlock()
			return
		}
	}
}

// Subscribe returns a channel of events for jobID (or every job, if
// jobID is empty).
func (b *Broadcaster) Subscribe(jobID string) (<-chan Event, func()) {
	sub := &subscription{jobID: jobID, channel: make(chan Event, 64)}
	b.register <- sub
	return sub.channel, func() { b.unregister <- sub }
}

// Publish sends event to all matching subscribers without blocking.
func (b *Broadcaster) Publish(event Event) {
	select {
	case b.broadcast <- event:
	default:
	}
}

// Close shuts down the broadcaster and closes all subscriptions.
func (b *Broadcaster) Close() {
	close(b.done)
}
