package adder

import (
	"github.com/llxisdsh/pb"
)

// Group is a set of Adders keyed by K, for families of hot counters
// (per-endpoint hit counts, per-bucket histogram totals, and so on).
// Adders are created on first use and live until Forget or the group
// itself is dropped.
//
// All methods are safe for concurrent use, with the same contracts as
// the underlying Adder: weakly consistent sums, quiescent-only resets.
// The zero value is ready to use.
type Group[K comparable] struct {
	m pb.MapOf[K, *Adder]
}

// Get returns the adder for key, creating it on first use.
func (g *Group[K]) Get(key K) *Adder {
	a, _ := g.m.ProcessEntry(
		key,
		func(l *pb.EntryOf[K, *Adder]) (*pb.EntryOf[K, *Adder], *Adder, bool) {
			if l != nil {
				return l, l.Value, true
			}
			a := new(Adder)
			return &pb.EntryOf[K, *Adder]{Value: a}, a, false
		},
	)
	return a
}

// Add adds x to the adder for key, creating it on first use.
func (g *Group[K]) Add(key K, x int64) {
	g.Get(key).Add(x)
}

// Sum returns the current sum for key, or 0 if the key has never been
// used.
func (g *Group[K]) Sum(key K) int64 {
	if a, ok := g.m.Load(key); ok {
		return a.Sum()
	}
	return 0
}

// SumAll returns the total across every adder in the group.
func (g *Group[K]) SumAll() int64 {
	var total int64
	g.m.Range(func(_ K, a *Adder) bool {
		total += a.Sum()
		return true
	})
	return total
}

// Range calls yield for each key with its current sum until yield
// returns false. Sums observed during a Range are weakly consistent,
// each adder being read at the moment it is visited.
func (g *Group[K]) Range(yield func(key K, sum int64) bool) {
	g.m.Range(func(k K, a *Adder) bool {
		return yield(k, a.Sum())
	})
}

// ResetAll resets every adder in the group to zero. Quiescent-only,
// like Adder.Reset.
func (g *Group[K]) ResetAll() {
	g.m.Range(func(_ K, a *Adder) bool {
		a.Reset()
		return true
	})
}

// Forget drops the adder for key; a later Get creates a fresh one.
func (g *Group[K]) Forget(key K) {
	g.m.Delete(key)
}
