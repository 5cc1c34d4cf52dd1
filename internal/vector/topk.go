package vector

import (
	"container/heap"
	"runtime"
	"sort"
	"sync"
)

// parallelThreshold is the entry count below which scoring stays on the
// calling goroutine. Spawning workers for small indexes costs more than
// the scan.
const parallelThreshold = 4096

// candidate is one scored entry during top-k selection. pos is the
// entry's position in the entries slice, which is its insertion order.
type candidate struct {
	pos   int
	score float64
}

// candidateHeap is a bounded min-heap of candidates: the weakest
// candidate (lowest score, latest insertion on ties) sits at the root
// so it can be evicted when a better one arrives.
type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	return h[i].pos > h[j].pos
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// offer adds c to the heap, evicting the current weakest candidate when
// the heap is full and c beats it.
func (h *candidateHeap) offer(c candidate, k int) {
	if h.Len() < k {
		heap.Push(h, c)
		return
	}
	top := (*h)[0]
	if c.score > top.score || (c.score == top.score && c.pos < top.pos) {
		(*h)[0] = c
		heap.Fix(h, 0)
	}
}

// scoreRange scores entries[lo:hi] against the query and keeps the
// chunk-local top k in h. Pure function of the chunk plus the query;
// no shared mutable state.
func scoreRange(entries []Entry, lo, hi int, query []float32, queryNorm float64, k int, h *candidateHeap) {
	for i := lo; i < hi; i++ {
		dot := Dot(query, entries[i].Vector)
		score := cosineWithNorms(dot, queryNorm, entries[i].norm)
		h.offer(candidate{pos: i, score: score}, k)
	}
}

// searchTopK returns the k best candidates over all entries, sorted by
// descending score with insertion-order tie-break. For large entry sets
// the scan is partitioned across workers, each keeping a bounded heap,
// and the chunk winners are merged; cost is O(N*d + N*log k).
func searchTopK(entries []Entry, query []float32, queryNorm float64, k int) []candidate {
	n := len(entries)
	workers := runtime.GOMAXPROCS(0)
	if n < parallelThreshold || workers < 2 {
		h := make(candidateHeap, 0, k)
		scoreRange(entries, 0, n, query, queryNorm, k, &h)
		return sortCandidates(h)
	}

	chunk := (n + workers - 1) / workers
	heaps := make([]candidateHeap, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if lo >= n {
			break
		}
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			h := make(candidateHeap, 0, k)
			scoreRange(entries, lo, hi, query, queryNorm, k, &h)
			heaps[w] = h
		}(w, lo, hi)
	}
	wg.Wait()

	merged := make(candidateHeap, 0, k)
	for _, h := range heaps {
		for _, c := range h {
			merged.offer(c, k)
		}
	}
	return sortCandidates(merged)
}

// sortCandidates orders heap contents into final rank order: score
// descending, insertion order ascending on ties.
func sortCandidates(h candidateHeap) []candidate {
	out := make([]candidate, len(h))
	copy(out, h)
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].pos < out[j].pos
	})
	return out
}
