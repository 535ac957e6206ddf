package queue

import (
	"container/heap"

	"github.com/sirupsen/logrus"
)

// Item is one listing page waiting to be crawled
type Item struct {
	URL   string
	Depth int // Pagination hops from the blog index
}

// --- Priority Queue Implementation ---

// pqItem wraps an Item with its heap bookkeeping
type pqItem struct {
	item  Item
	seq   uint64 // Insertion order; breaks ties so equal depths pop FIFO
	index int    // The index of the item in the heap (required by heap interface)
}

// priorityQueue implements heap.Interface
type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].item.Depth != pq[j].item.Depth {
		return pq[i].item.Depth < pq[j].item.Depth
	}
	return pq[i].seq < pq[j].seq
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

// Push adds an element to the heap
func (pq *priorityQueue) Push(x any) {
	n := len(*pq)
	it := x.(*pqItem)
	it.index = n
	*pq = append(*pq, it)
}

// Pop removes and returns the minimum element from the heap
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	it := old[n-1]
	old[n-1] = nil // avoid memory leak
	it.index = -1
	*pq = old[0 : n-1]
	return it
}

// Frontier is a breadth-first queue: shallower pages pop first, and pages at
// the same depth pop in the order they were added. It is not safe for
// concurrent use; the listing crawl is sequential.
type Frontier struct {
	pq     priorityQueue
	next   uint64
	closed bool
	log    *logrus.Entry
}

// NewFrontier creates an empty Frontier
func NewFrontier(logger *logrus.Entry) *Frontier {
	f := &Frontier{log: logger}
	heap.Init(&f.pq)
	return f
}

// Add queues a page. Adding to a closed frontier is ignored.
func (f *Frontier) Add(item Item) {
	if f.closed {
		f.log.Warnf("Attempted to add item to closed frontier: %s", item.URL)
		return
	}
	heap.Push(&f.pq, &pqItem{item: item, seq: f.next})
	f.next++
}

// Pop removes the next page. Returns false when the frontier is empty or closed.
func (f *Frontier) Pop() (Item, bool) {
	if f.closed || len(f.pq) == 0 {
		return Item{}, false
	}
	return heap.Pop(&f.pq).(*pqItem).item, true
}

// Close stops the frontier; queued pages are discarded
func (f *Frontier) Close() {
	f.closed = true
	f.pq = nil
}

// Len returns the number of queued pages
func (f *Frontier) Len() int {
	return len(f.pq)
}
