package adder

import (
	"math/bits"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"
)

func TestCellPadding(t *testing.T) {
	var c cell
	size := unsafe.Sizeof(c)
	if size%cacheLineSize != 0 {
		t.Errorf("cell size = %d, not a multiple of cache line size %d", size, cacheLineSize)
	}
	if off := unsafe.Offsetof(c.v); off%8 != 0 {
		t.Errorf("cell word offset = %d, not 8-byte aligned", off)
	}
	var p probe
	if size := unsafe.Sizeof(p); size%cacheLineSize != 0 {
		t.Errorf("probe size = %d, not a multiple of cache line size %d", size, cacheLineSize)
	}
}

func TestProbeAdvance(t *testing.T) {
	p := probePool.Get().(*probe)
	defer probePool.Put(p)
	if p.h == 0 {
		t.Fatal("pooled probe not seeded")
	}
	seen := make(map[uint32]bool)
	for range 1000 {
		h := p.advance()
		if h == 0 {
			t.Fatal("probe advanced to zero")
		}
		if seen[h] {
			t.Fatalf("probe sequence cycled within 1000 steps at %#x", h)
		}
		seen[h] = true
	}
}

func TestMaxCells(t *testing.T) {
	n := maxCells()
	if n&(n-1) != 0 || n == 0 {
		t.Errorf("maxCells = %d, not a power of two", n)
	}
	if n < runtime.GOMAXPROCS(0) {
		t.Errorf("maxCells = %d < GOMAXPROCS %d", n, runtime.GOMAXPROCS(0))
	}
}

func TestStripedLazyTable(t *testing.T) {
	var s striped
	for i := range uint64(100) {
		s.update(i, addOp)
	}
	if s.table.Load() != nil {
		t.Error("table allocated without contention")
	}
	if got := s.fold(addOp); got != 4950 {
		t.Errorf("fold = %d, want 4950", got)
	}
}

func TestStripedTableCreate(t *testing.T) {
	var s striped
	p := probePool.Get().(*probe)
	defer probePool.Put(p)

	// Drive the slow path directly: the first pass allocates the
	// initial table with the updating cell installed.
	s.accumulate(7, addOp, p, true)
	tab := s.table.Load()
	if tab == nil {
		t.Fatal("accumulate did not allocate the table")
	}
	if len(*tab) != minCells {
		t.Fatalf("initial table length = %d, want %d", len(*tab), minCells)
	}
	if got := s.fold(addOp); got != 7 {
		t.Errorf("fold = %d, want 7", got)
	}

	// A second slow-path pass for a probe mapping to the empty slot
	// installs a second cell rather than growing.
	p.h ^= 1
	s.accumulate(3, addOp, p, true)
	if tab2 := s.table.Load(); tab2 != tab {
		t.Error("table replaced during a plain cell install")
	}
	if got := s.fold(addOp); got != 10 {
		t.Errorf("fold = %d, want 10", got)
	}
}

func TestTableGrowthMonotonic(t *testing.T) {
	var s striped
	var stop atomic.Bool
	var wg sync.WaitGroup

	workers := runtime.GOMAXPROCS(0) * 4
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for !stop.Load() {
				s.update(1, addOp)
			}
		}()
	}

	// Sample the table from one observer: its length must be a power
	// of two at every observation and must never shrink.
	prev := 0
	for range 10000 {
		if tab := s.table.Load(); tab != nil {
			n := len(*tab)
			if bits.OnesCount(uint(n)) != 1 {
				t.Errorf("table length %d is not a power of two", n)
				break
			}
			if n < prev {
				t.Errorf("table shrank from %d to %d", prev, n)
				break
			}
			if n > max(maxCells(), minCells) {
				t.Errorf("table length %d exceeds cap %d", n, maxCells())
				break
			}
			prev = n
		}
	}
	stop.Store(true)
	wg.Wait()
}
