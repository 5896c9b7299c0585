package state

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// LinkChange records a change of the cost of a directed link. Each edge mutation yields one
// record per direction.
type LinkChange struct {
	From    NodeId
	To      NodeId
	OldCost Cost
	NewCost Cost
}

func (l LinkChange) String() string {
	return fmt.Sprintf("%s->%s %s=>%s", l.From, l.To, l.OldCost, l.NewCost)
}

// LinkChanges holds the link-change records that have not been consumed yet, keyed by
// directed pair.
type LinkChanges struct {
	cache *ttlcache.Cache[Pair[NodeId, NodeId], LinkChange]
}

func NewLinkChanges(ttl time.Duration) *LinkChanges {
	return &LinkChanges{
		cache: ttlcache.New[Pair[NodeId, NodeId], LinkChange](
			ttlcache.WithTTL[Pair[NodeId, NodeId], LinkChange](ttl),
			ttlcache.WithDisableTouchOnHit[Pair[NodeId, NodeId], LinkChange](),
		),
	}
}

// Record stores the records. If a record for the same direction is still pending, the pending
// old cost is kept so the record describes the whole unobserved change.
func (l *LinkChanges) Record(changes ...LinkChange) {
	for _, change := range changes {
		key := Pair[NodeId, NodeId]{change.From, change.To}
		if old := l.cache.Get(key); old != nil {
			change.OldCost = old.Value().OldCost
		}
		l.cache.Set(key, change, ttlcache.DefaultTTL)
	}
}

func (l *LinkChanges) Pending(from, to NodeId) (LinkChange, bool) {
	item := l.cache.Get(Pair[NodeId, NodeId]{from, to})
	if item == nil {
		return LinkChange{}, false
	}
	return item.Value(), true
}

// Consume removes and returns the record for the directed pair.
func (l *LinkChanges) Consume(from, to NodeId) (LinkChange, bool) {
	item, ok := l.cache.GetAndDelete(Pair[NodeId, NodeId]{from, to})
	if !ok || item == nil {
		return LinkChange{}, false
	}
	return item.Value(), true
}

// ConsumeFrom removes and returns every record whose link starts at from, sorted by target.
func (l *LinkChanges) ConsumeFrom(from NodeId) []LinkChange {
	l.cache.DeleteExpired()
	keys := make([]Pair[NodeId, NodeId], 0)
	for _, key := range l.cache.Keys() {
		if key.V1 == from {
			keys = append(keys, key)
		}
	}
	SortPairs(keys)
	changes := make([]LinkChange, 0, len(keys))
	for _, key := range keys {
		if change, ok := l.Consume(key.V1, key.V2); ok {
			changes = append(changes, change)
		}
	}
	return changes
}

func (l *LinkChanges) All() []LinkChange {
	l.cache.DeleteExpired()
	changes := make([]LinkChange, 0)
	for _, item := range l.cache.Items() {
		changes = append(changes, item.Value())
	}
	slices.SortFunc(changes, func(a, b LinkChange) int {
		return cmp.Or(cmp.Compare(a.From, b.From), cmp.Compare(a.To, b.To))
	})
	return changes
}

func (l *LinkChanges) Len() int {
	l.cache.DeleteExpired()
	return l.cache.Len()
}

func (l *LinkChanges) Reset() {
	l.cache.DeleteAll()
}
