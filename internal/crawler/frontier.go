package crawler

import "sync"

// visitedSet tracks canonical URLs already claimed by the traversal. All
// mutation goes through the mutex so concurrent fan-out branches never fetch
// the same page twice.
type visitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newVisitedSet() *visitedSet {
	return &visitedSet{seen: make(map[string]struct{})}
}

// MarkIfNew claims url for the caller. It returns true exactly once per URL;
// subsequent calls for the same URL return false.
func (v *visitedSet) MarkIfNew(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.seen[url]; ok {
		return false
	}
	v.seen[url] = struct{}{}
	return true
}

// Len reports how many URLs have been claimed.
func (v *visitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}

// frontierItem carries a claimed URL plus its discovery depth so a depth
// ceiling can be layered on without touching the traversal itself.
type frontierItem struct {
	url   string
	depth int
}

// frontier is the FIFO work queue for the breadth-first traversal. URLs are
// claimed in the visited set before enqueue, so a dequeued item is always
// ready to process.
type frontier struct {
	queue []frontierItem
}

func newFrontier() *frontier {
	return &frontier{}
}

func (f *frontier) Push(item frontierItem) {
	f.queue = append(f.queue, item)
}

func (f *frontier) Pop() (frontierItem, bool) {
	if len(f.queue) == 0 {
		return frontierItem{}, false
	}
	item := f.queue[0]
	f.queue = f.queue[1:]
	return item, true
}

func (f *frontier) Len() int {
	return len(f.queue)
}
