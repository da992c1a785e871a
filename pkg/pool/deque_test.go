package pool

import (
	"sync"
	"testing"
)

func TestDequeFIFOFromFront(t *testing.T) {
	t.Parallel()
	d := NewDeque[int](4)
	for i := 0; i < 100; i++ {
		d.PushBack(i)
	}
	if d.Len() != 100 {
		t.Fatalf("Len = %d, want 100", d.Len())
	}
	for i := 0; i < 100; i++ {
		v, ok := d.PopFront()
		if !ok || v != i {
			t.Fatalf("PopFront = %d, %v, want %d, true", v, ok, i)
		}
	}
	if _, ok := d.PopFront(); ok {
		t.Fatal("PopFront on empty deque returned ok")
	}
}

func TestDequeLIFOFromBack(t *testing.T) {
	t.Parallel()
	d := NewDeque[int](4)
	for i := 0; i < 50; i++ {
		d.PushBack(i)
	}
	for i := 49; i >= 0; i-- {
		v, ok := d.PopBack()
		if !ok || v != i {
			t.Fatalf("PopBack = %d, %v, want %d, true", v, ok, i)
		}
	}
	if _, ok := d.PopBack(); ok {
		t.Fatal("PopBack on empty deque returned ok")
	}
}

func TestDequePushFront(t *testing.T) {
	t.Parallel()
	d := NewDeque[string](2)
	d.PushBack("b")
	d.PushFront("a")
	d.PushBack("c")

	want := []string{"a", "b", "c"}
	for _, w := range want {
		v, ok := d.PopFront()
		if !ok || v != w {
			t.Fatalf("PopFront = %q, %v, want %q, true", v, ok, w)
		}
	}
}

func TestDequeRotateFrontToBack(t *testing.T) {
	t.Parallel()
	d := NewDeque[int](4)
	for i := 0; i < 5; i++ {
		d.PushBack(i)
	}

	seen := make(map[int]int)
	for i := 0; i < 10; i++ {
		v, ok := d.RotateFrontToBack()
		if !ok {
			t.Fatalf("rotate %d failed on non-empty deque", i)
		}
		seen[v]++
	}
	if d.Len() != 5 {
		t.Fatalf("Len = %d after rotations, want 5", d.Len())
	}
	for i := 0; i < 5; i++ {
		if seen[i] != 2 {
			t.Fatalf("element %d rotated %d times, want 2", i, seen[i])
		}
	}

	empty := NewDeque[int](4)
	if _, ok := empty.RotateFrontToBack(); ok {
		t.Fatal("rotate on empty deque returned ok")
	}
}

func TestDequeGrowAcrossWrap(t *testing.T) {
	t.Parallel()
	d := NewDeque[int](16)
	// Force head away from zero so growth must re-linearize.
	for i := 0; i < 10; i++ {
		d.PushBack(i)
	}
	for i := 0; i < 10; i++ {
		d.PopFront()
	}
	for i := 0; i < 200; i++ {
		d.PushBack(i)
	}
	for i := 0; i < 200; i++ {
		v, ok := d.PopFront()
		if !ok || v != i {
			t.Fatalf("after grow PopFront = %d, %v, want %d, true", v, ok, i)
		}
	}
}

func TestDequeConcurrentBothEnds(t *testing.T) {
	t.Parallel()
	const total = 10000
	d := NewDeque[int](16)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			d.PushBack(i)
		}
	}()

	var mu sync.Mutex
	seen := make(map[int]bool, total)
	take := func(pop func() (int, bool)) {
		defer wg.Done()
		for {
			v, ok := pop()
			if !ok {
				mu.Lock()
				done := len(seen) == total
				mu.Unlock()
				if done {
					return
				}
				continue
			}
			mu.Lock()
			if seen[v] {
				mu.Unlock()
				t.Errorf("element %d popped twice", v)
				return
			}
			seen[v] = true
			mu.Unlock()
		}
	}
	wg.Add(2)
	go take(d.PopFront)
	go take(d.PopBack)
	wg.Wait()

	if len(seen) != total {
		t.Fatalf("popped %d distinct elements, want %d", len(seen), total)
	}
}
