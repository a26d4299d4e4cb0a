package frontier

// Entry is a pending frontier item.
type Entry struct {
	URL   string // Canonical URL
	Depth int    // Distance from the seed that discovered it
}

// Queue is a FIFO of frontier entries. Strict FIFO order gives
// layer-by-layer (breadth-first) visitation.
type Queue struct {
	items []Entry
	head  int
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends an entry to the back of the queue.
func (q *Queue) Push(e Entry) {
	q.items = append(q.items, e)
}

// Pop removes and returns the entry at the front of the queue.
// ok is false when the queue is empty.
func (q *Queue) Pop() (e Entry, ok bool) {
	if q.head >= len(q.items) {
		return Entry{}, false
	}
	e = q.items[q.head]
	q.items[q.head] = Entry{}
	q.head++

	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head > 64 && q.head*2 >= len(q.items) {
		q.items = append([]Entry(nil), q.items[q.head:]...)
		q.head = 0
	}
	return e, true
}

// Len returns the number of pending entries.
func (q *Queue) Len() int {
	return len(q.items) - q.head
}

// VisitedSet records canonical URLs that were enqueued or fetched during one
// run. Entries are never removed.
type VisitedSet struct {
	seen map[string]struct{}
}

// NewVisitedSet creates an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// Add inserts url and reports whether it was not already present.
func (v *VisitedSet) Add(url string) bool {
	if _, ok := v.seen[url]; ok {
		return false
	}
	v.seen[url] = struct{}{}
	return true
}

// Contains reports whether url has been recorded.
func (v *VisitedSet) Contains(url string) bool {
	_, ok := v.seen[url]
	return ok
}

// Len returns the number of recorded URLs.
func (v *VisitedSet) Len() int {
	return len(v.seen)
}
