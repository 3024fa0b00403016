package adder

import (
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/llxisdsh/adder/internal/opt"
)

// This file implements the dynamic striping scheme behind Adder,
// FloatAdder and FloatAccumulator, following the design of
// java.util.concurrent's Striped64.
//
// The accumulated total is held as one base word plus a lazily
// allocated, power-of-two table of cache-line-padded cells. While the
// table does not exist, an update is a single CAS on the base word.
// The first contended CAS failure allocates a small table; from then
// on each goroutine CASes the cell its probe maps to, rehashing the
// probe on collision and doubling the table under sustained contention
// up to roughly the number of schedulable CPUs.
//
// All values are raw uint64 bit patterns. Integer sums use the word
// directly; float variants convert with math.Float64bits around each
// attempt, so the CAS always compares raw bits (there is no hardware
// CAS for floating-point values).

// applyFunc combines the current word with an update, both as raw bits.
type applyFunc func(old, x uint64) uint64

// cell is a single striped slot. The padding tail keeps every cell on
// its own cache line; without it, CAS traffic on neighboring cells
// turns into cache-line ping-pong and striping performs worse than a
// single contended word.
type cell struct {
	_ [(opt.CacheLineSize_ - unsafe.Sizeof(struct {
		v uint64
	}{})%opt.CacheLineSize_) % opt.CacheLineSize_ * opt.PaddingMult_]byte
	v uint64 // accumulated word, accessed atomically
}

func newCell(v uint64) *cell {
	c := new(cell)
	c.v = v // not yet published
	return c
}

// cellTable is a power-of-two array of slots. A slot is nil until a
// cell is installed into it. The table is replaced, never resized in
// place: growth builds a new table and publishes it with one atomic
// store, so readers observe either the old or the new table whole.
type cellTable []unsafe.Pointer

//go:nosplit
func (t cellTable) at(i int) *cell {
	return (*cell)(atomic.LoadPointer(&t[i]))
}

const minCells = 2

// maxCells bounds table growth. Striping beyond the number of
// schedulable CPUs cannot reduce contention further, it only wastes
// memory, so past this point collisions are tolerated instead.
var maxCells = sync.OnceValue(func() int {
	return nextPowOf2(runtime.GOMAXPROCS(0))
})

// probe is a per-goroutine slot selector, the moral equivalent of a
// per-thread hash. Tokens live in a sync.Pool: while held, a token is
// exclusively owned by the updating goroutine, so h needs no
// synchronization. The padding keeps pooled tokens from sharing lines.
type probe struct {
	h uint32
	_ [(opt.CacheLineSize_ - unsafe.Sizeof(struct {
		h uint32
	}{})%opt.CacheLineSize_) % opt.CacheLineSize_ * opt.PaddingMult_]byte
}

var probePool = sync.Pool{
	New: func() any {
		h := rand.Uint32()
		if h == 0 {
			h = 1 // zero is reserved for "unseeded"
		}
		return &probe{h: h}
	},
}

// advance rehashes the probe after an observed CAS failure so the
// goroutine moves to a different slot (xorshift).
//
//go:nosplit
func (p *probe) advance() uint32 {
	h := p.h
	h ^= h << 13
	h ^= h >> 17
	h ^= h << 5
	p.h = h
	return h
}

// striped is the accumulation engine shared by the public types.
//
// base is the only storage until contention is observed; it is also
// the fallback target while the busy flag is held by another
// goroutine, so updates never block. busy serializes table creation,
// growth and cell installation; it is never held across an update CAS.
//
// The zero value accumulates over identity 0 (both int64 addition and
// the bit pattern of float64 +0), so Adder and FloatAdder need no
// constructor. FloatAccumulator seeds ident and base explicitly.
type striped struct {
	table atomic.Pointer[cellTable]
	base  atomic.Uint64
	busy  atomic.Uint32
	ident uint64
}

//go:nosplit
func (s *striped) lockBusy() bool { return s.busy.CompareAndSwap(0, 1) }

//go:nosplit
func (s *striped) unlockBusy() { s.busy.Store(0) }

// update applies fn(current, x) to the logical total. It cannot fail:
// contention costs retries, never a lost or duplicated update. Every
// successful call is reflected in exactly one slot before it returns.
func (s *striped) update(x uint64, fn applyFunc) {
	t := s.table.Load()
	if t == nil {
		// Common case: no contention ever observed, one CAS and done.
		b := s.base.Load()
		if s.base.CompareAndSwap(b, fn(b, x)) {
			return
		}
	}
	p := probePool.Get().(*probe)
	uncontended := true
	if t != nil {
		if c := t.at(int(p.h) & (len(*t) - 1)); c != nil {
			v := atomic.LoadUint64(&c.v)
			if atomic.CompareAndSwapUint64(&c.v, v, fn(v, x)) {
				probePool.Put(p)
				return
			}
			uncontended = false
		}
	}
	s.accumulate(x, fn, p, uncontended)
	probePool.Put(p)
}

// accumulate is the slow path: it retries until the update lands,
// escalating through probe rehash, cell installation and table growth.
// CAS failure is the only contention signal. The loop is lock-free: a
// goroutine that cannot take the busy flag falls through to CAS the
// base word instead of waiting.
func (s *striped) accumulate(x uint64, fn applyFunc, p *probe, wasUncontended bool) {
	var collide bool // last slot was nonempty
	for {
		t := s.table.Load()
		if t != nil {
			n := len(*t)
			i := int(p.h) & (n - 1)
			if c := t.at(i); c == nil {
				// Empty slot: try to install a cell seeded with
				// fn(identity, x).
				if s.busy.Load() == 0 {
					r := newCell(fn(s.ident, x))
					if s.busy.Load() == 0 && s.lockBusy() {
						if t2 := s.table.Load(); t2 == t && t2.at(i) == nil {
							atomic.StorePointer(&(*t2)[i], unsafe.Pointer(r))
							s.unlockBusy()
							return
						}
						s.unlockBusy()
						continue // slot taken or table replaced, recheck
					}
				}
				collide = false
			} else if !wasUncontended {
				wasUncontended = true // rehash before retrying this cell
			} else {
				v := atomic.LoadUint64(&c.v)
				if atomic.CompareAndSwapUint64(&c.v, v, fn(v, x)) {
					return
				}
				if n >= maxCells() || s.table.Load() != t {
					collide = false // at capacity or table is stale
				} else if !collide {
					collide = true
				} else if s.busy.Load() == 0 && s.lockBusy() {
					// Two failed CASes on distinct slots: grow.
					if s.table.Load() == t {
						nt := make(cellTable, n<<1)
						// Same-index copy: the new mask extends the old
						// one, so every installed cell keeps a
						// consistent slot and no in-flight value is
						// dropped.
						copy(nt, *t)
						s.table.Store(&nt)
					}
					s.unlockBusy()
					collide = false
					continue
				}
			}
			p.advance()
		} else if s.busy.Load() == 0 && s.table.Load() == nil && s.lockBusy() {
			// First contention: allocate the initial table with the
			// updating cell already in place.
			if s.table.Load() == nil {
				nt := make(cellTable, minCells)
				nt[int(p.h)&(minCells-1)] = unsafe.Pointer(newCell(fn(s.ident, x)))
				s.table.Store(&nt)
				s.unlockBusy()
				return
			}
			s.unlockBusy()
		} else {
			// Another goroutine holds busy; land on the base instead.
			b := s.base.Load()
			if s.base.CompareAndSwap(b, fn(b, x)) {
				return
			}
		}
	}
}

// fold reads the base word and every installed cell in index order and
// combines them with fn. This is not an atomic snapshot: updates that
// race with the traversal may or may not be included.
func (s *striped) fold(fn applyFunc) uint64 {
	v := s.base.Load()
	if t := s.table.Load(); t != nil {
		for i := range *t {
			if c := t.at(i); c != nil {
				v = fn(v, atomic.LoadUint64(&c.v))
			}
		}
	}
	return v
}

// reset stores the identity into the base word and every installed
// cell. Callers must be quiescent: an update racing the reset may be
// overwritten by the identity store and lost.
func (s *striped) reset() {
	s.base.Store(s.ident)
	if t := s.table.Load(); t != nil {
		for i := range *t {
			if c := t.at(i); c != nil {
				atomic.StoreUint64(&c.v, s.ident)
			}
		}
	}
}

// foldThenReset folds as fold does while swapping each slot back to
// the identity. Each slot's value lands in exactly one generation;
// the quiescence caveat of reset applies to the composite as a whole.
func (s *striped) foldThenReset(fn applyFunc) uint64 {
	v := s.base.Swap(s.ident)
	if t := s.table.Load(); t != nil {
		for i := range *t {
			if c := t.at(i); c != nil {
				v = fn(v, atomic.SwapUint64(&c.v, s.ident))
			}
		}
	}
	return v
}
