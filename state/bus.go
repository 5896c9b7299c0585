package state

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Vector maps destinations to costs. A missing destination costs INF.
type Vector map[NodeId]Cost

func (v Vector) Get(dest NodeId) Cost {
	cost, ok := v[dest]
	if !ok {
		return INF
	}
	return cost
}

func (v Vector) Clone() Vector {
	return maps.Clone(v)
}

func (v Vector) String() string {
	sb := strings.Builder{}
	sb.WriteString("[")
	for i, dest := range slices.Sorted(maps.Keys(v)) {
		if i != 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(fmt.Sprintf("%s:%s", dest, v[dest]))
	}
	sb.WriteString("]")
	return sb.String()
}

type Message struct {
	From      NodeId
	To        NodeId
	Timestamp uint64
	Vector    Vector
	Poisoned  bool
}

func (m Message) String() string {
	kind := "vector"
	if m.Poisoned {
		kind = "poisoned"
	}
	return fmt.Sprintf("(%s %s->%s t=%d %s)", kind, m.From, m.To, m.Timestamp, m.Vector)
}

// MessageBus holds the vectors in flight between nodes. Send and Drain are serialised, so a
// drain is an atomic snapshot of everything queued for a recipient.
type MessageBus struct {
	mu    sync.Mutex
	queue []Message
	clock uint64
	limit int
}

// NewMessageBus creates a bus holding at most limit undelivered messages, 0 means unbounded.
func NewMessageBus(limit int) *MessageBus {
	return &MessageBus{
		queue: make([]Message, 0),
		limit: limit,
	}
}

// Send enqueues a copy of vec for to, stamped with a fresh logical timestamp.
func (b *MessageBus) Send(vec Vector, from, to NodeId, poisoned bool) (Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit > 0 && len(b.queue) >= b.limit {
		return Message{}, fmt.Errorf("%w: %d messages pending", ErrBusOverflow, len(b.queue))
	}
	b.clock++
	msg := Message{
		From:      from,
		To:        to,
		Timestamp: b.clock,
		Vector:    vec.Clone(),
		Poisoned:  poisoned,
	}
	b.queue = append(b.queue, msg)
	return msg, nil
}

// Drain removes and returns every message destined for to, in enqueue order.
func (b *MessageBus) Drain(to NodeId) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, 0)
	x := 0
	for _, msg := range b.queue {
		if msg.To == to {
			out = append(out, msg)
		} else {
			b.queue[x] = msg
			x++
		}
	}
	clear(b.queue[x:])
	b.queue = b.queue[:x]
	return out
}

// Purge drops every message addressed to node and returns how many were dropped.
func (b *MessageBus) Purge(node NodeId) int {
	return len(b.Drain(node))
}

func (b *MessageBus) Pending(to NodeId) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, msg := range b.queue {
		if msg.To == to {
			n++
		}
	}
	return n
}

func (b *MessageBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Reset drops every queued message. The logical clock keeps counting.
func (b *MessageBus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = make([]Message, 0)
}

// Deduplicate keeps only the latest message of every sender, ordered by timestamp.
func Deduplicate(msgs []Message) []Message {
	latest := make(map[NodeId]Message)
	for _, msg := range msgs {
		if cur, ok := latest[msg.From]; !ok || msg.Timestamp > cur.Timestamp {
			latest[msg.From] = msg
		}
	}
	out := slices.Collect(maps.Values(latest))
	slices.SortFunc(out, func(a, b Message) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	return out
}
