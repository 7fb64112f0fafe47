package pyramid

// List is an intrusive doubly linked list of tiles, head = most recently
// used. It is a direct port of amspath/libisyntax's isyntax_tile_list_t /
// tile_list_remove / tile_list_insert_first / tile_list_insert_list_first:
// the list never owns the tiles it holds (they belong to the Pyramid's
// per-level Tiles slices), it only threads them together.
type List struct {
	Name       string
	head, tail *Tile
	count      int
}

// Len returns the number of tiles currently linked into the list.
func (l *List) Len() int { return l.count }

// Head returns the most-recently-used tile, or nil if the list is empty.
func (l *List) Head() *Tile { return l.head }

// Tail returns the least-recently-used tile, or nil if the list is empty.
func (l *List) Tail() *Tile { return l.tail }

// Each calls fn for every tile from head to tail. fn must not mutate the
// list being iterated.
func (l *List) Each(fn func(*Tile)) {
	for t := l.head; t != nil; t = t.next {
		fn(t)
	}
}

// Remove unlinks t from whichever list it currently belongs to. It is a
// no-op if t is not linked into any list. O(1): the list is found via the
// tile's own inList pointer rather than by scanning.
func Remove(t *Tile) {
	l := t.inList
	if l == nil {
		return
	}
	if l.head == t {
		l.head = t.next
	}
	if l.tail == t {
		l.tail = t.prev
	}
	if t.prev != nil {
		t.prev.next = t.next
	}
	if t.next != nil {
		t.next.prev = t.prev
	}
	t.prev, t.next, t.inList = nil, nil, nil
	l.count--
}

// InsertFront removes t from whatever list it is on (if any) and inserts it
// at the head of l.
func InsertFront(l *List, t *Tile) {
	Remove(t)
	if l.head == nil {
		l.head, l.tail = t, t
	} else {
		l.head.prev = t
		t.next = l.head
		l.head = t
	}
	t.inList = l
	l.count++
}

// SpliceFront moves every tile in src to the front of dst, preserving src's
// internal order, and empties src. Used by the tile-execution bookkeeping
// phase (spec.md §4.5) to fold the children/coeff/idwt closure lists back
// into the cache LRU in one call each. The cost is linear in src's length,
// since every moved tile's list pointer is updated.
func SpliceFront(dst, src *List) {
	if src.head == nil {
		return
	}
	for t := src.head; t != nil; t = t.next {
		t.inList = dst
	}
	src.tail.next = dst.head
	if dst.head != nil {
		dst.head.prev = src.tail
	}
	dst.head = src.head
	if dst.tail == nil {
		dst.tail = src.tail
	}
	dst.count += src.count
	src.head, src.tail, src.count = nil, nil, 0
}
