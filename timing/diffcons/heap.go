package diffcons

import "container/heap"

type heapItem struct {
	v    int
	dist float64
}

// distHeap is a min-heap of tentative distances. Entries are never updated in
// place; stale entries are skipped when popped.
type distHeap []heapItem

func (h distHeap) Len() int           { return len(h) }
func (h distHeap) Less(i, j int) bool { return h[i].dist < h[j].dist }
func (h distHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *distHeap) Push(x any) {
	*h = append(*h, x.(heapItem))
}

func (h *distHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (h *distHeap) push(v int, dist float64) {
	heap.Push(h, heapItem{v: v, dist: dist})
}

func (h *distHeap) pop() heapItem {
	return heap.Pop(h).(heapItem)
}
