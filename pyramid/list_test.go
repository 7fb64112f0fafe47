package pyramid

import "testing"

func namesOf(l *List) []string {
	var out []string
	l.Each(func(t *Tile) { out = append(out, tileKey(t)) })
	return out
}

func tileKey(t *Tile) string {
	return string(rune('A' + t.X))
}

func TestListInsertFrontOrder(t *testing.T) {
	l := &List{Name: "lru"}
	a := &Tile{X: 0}
	b := &Tile{X: 1}
	c := &Tile{X: 2}
	InsertFront(l, a)
	InsertFront(l, b)
	InsertFront(l, c)

	if got, want := namesOf(l), []string{"C", "B", "A"}; !equalStrings(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if l.Len() != 3 {
		t.Fatalf("len = %d, want 3", l.Len())
	}
}

func TestListRemoveHeadTailMiddle(t *testing.T) {
	l := &List{}
	a, b, c := &Tile{X: 0}, &Tile{X: 1}, &Tile{X: 2}
	InsertFront(l, c)
	InsertFront(l, b)
	InsertFront(l, a) // order: a b c

	Remove(b) // middle
	if got, want := namesOf(l), []string{"A", "C"}; !equalStrings(got, want) {
		t.Fatalf("after middle remove = %v, want %v", got, want)
	}
	Remove(a) // head
	if got, want := namesOf(l), []string{"C"}; !equalStrings(got, want) {
		t.Fatalf("after head remove = %v, want %v", got, want)
	}
	Remove(c) // tail / only element
	if l.Len() != 0 || l.Head() != nil || l.Tail() != nil {
		t.Fatal("list should be empty")
	}
	Remove(c) // double remove is a no-op
}

func TestListMoveToFrontReinsertsElsewhere(t *testing.T) {
	l := &List{}
	a, b := &Tile{X: 0}, &Tile{X: 1}
	InsertFront(l, a)
	InsertFront(l, b) // order: b a
	InsertFront(l, a) // moves a back to front: a b
	if got, want := namesOf(l), []string{"A", "B"}; !equalStrings(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestSpliceFrontPreservesOrderAndEmptiesSource(t *testing.T) {
	dst := &List{}
	d0, d1 := &Tile{X: 0}, &Tile{X: 1}
	InsertFront(dst, d1)
	InsertFront(dst, d0) // dst: d0 d1

	src := &List{}
	s0, s1 := &Tile{X: 2}, &Tile{X: 3}
	InsertFront(src, s1)
	InsertFront(src, s0) // src: s0 s1

	SpliceFront(dst, src)

	if src.Len() != 0 || src.Head() != nil {
		t.Fatal("source list must be emptied")
	}
	want := []string{"C", "D", "A", "B"}
	if got := namesOf(dst); !equalStrings(got, want) {
		t.Fatalf("spliced order = %v, want %v", got, want)
	}
	if dst.Len() != 4 {
		t.Fatalf("len = %d, want 4", dst.Len())
	}
}

func TestSpliceFrontEmptySourceIsNoop(t *testing.T) {
	dst := &List{}
	InsertFront(dst, &Tile{X: 0})
	src := &List{}
	SpliceFront(dst, src)
	if dst.Len() != 1 {
		t.Fatalf("len = %d, want 1", dst.Len())
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
