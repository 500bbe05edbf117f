package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// How long stored events stay replayable.
const retention = 7 * 24 * time.Hour

type Event struct {
	ID   int64       `json:"id"`
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type subscriber struct {
	ch chan Event
}

// Hub fans out in-app notification events per user. Events are appended to a
// redis list so a reconnecting client can replay from its Last-Event-ID.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uint][]*subscriber // userID -> subscribers
	rdb         *redis.Client
}

func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		subscribers: make(map[uint][]*subscriber),
		rdb:         rdb,
	}
}

func (h *Hub) Subscribe(userID uint) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &subscriber{ch: make(chan Event, 256)}
	h.subscribers[userID] = append(h.subscribers[userID], sub)

	unsub := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subscribers[userID]
		for i, s := range subs {
			if s == sub {
				h.subscribers[userID] = append(subs[:i], subs[i+1:]...)
				close(sub.ch)
				break
			}
		}
		if len(h.subscribers[userID]) == 0 {
			delete(h.subscribers, userID)
		}
	}
	return sub.ch, unsub
}

// Broadcast stamps the event with the next id from a per-user counter, stores
// it for replay, and fans it out to live subscribers. The stamped id is what
// clients send back as Last-Event-ID.
func (h *Hub) Broadcast(userID uint, event Event) {
	ctx := context.Background()
	key := streamKey(userID)

	if id, err := h.rdb.Incr(ctx, key+":id").Result(); err == nil {
		event.ID = id
	}
	data, _ := json.Marshal(event)
	h.rdb.RPush(ctx, key, string(data))
	h.rdb.Expire(ctx, key, retention)
	h.rdb.Expire(ctx, key+":id", retention)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers[userID] {
		select {
		case sub.ch <- event:
		default:
			// drop if full
		}
	}
}

// ReplayFrom returns the stored events with id greater than fromID, in order.
// Events carry their ids in the stored payload, so replay stays correct even
// when the list has been trimmed or expired.
func (h *Hub) ReplayFrom(userID uint, fromID int64) ([]Event, error) {
	ctx := context.Background()

	items, err := h.rdb.LRange(ctx, streamKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(items))
	for _, item := range items {
		var ev Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			continue
		}
		if ev.ID > fromID {
			events = append(events, ev)
		}
	}
	return events, nil
}

func streamKey(userID uint) string {
	return fmt.Sprintf("notify:stream:%d", userID)
}

func ParseLastEventID(header string) int64 {
	if header == "" {
		return 0
	}
	id, _ := strconv.ParseInt(header, 10, 64)
	return id
}
