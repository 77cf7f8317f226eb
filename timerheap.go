package threadmaster

import (
	"container/heap"
	"time"
)

// timerHeap is a min-heap of *Task ordered by deadline, implementing
// container/heap.Interface. Per §4.4, every swap during sift up/down must
// update the moved record's heapIndex field so that invariant 4 (§3) holds
// and cancellation can heap-remove at a stored index in O(log n). Two
// independent instances exist on a Master: one for ClassTimer
// (foreground), one for ClassBackground.
type timerHeap []*Task

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Task)
	t.heapIndex = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.heapIndex = -1
	*h = old[:n-1]
	return t
}

// enqueue inserts t into the heap, maintaining the heap invariant.
func (h *timerHeap) enqueue(t *Task) {
	heap.Push(h, t)
}

// dequeue removes and returns the minimum-deadline task, or nil if empty.
func (h *timerHeap) dequeue() *Task {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(*Task)
}

// peek returns the minimum-deadline task without removing it, or nil.
func (h *timerHeap) peek() *Task {
	if h.Len() == 0 {
		return nil
	}
	return (*h)[0]
}

// removeAt heap-removes the task stored at heapIndex i in O(log n), used
// by Cancel (§4.8).
func (h *timerHeap) removeAt(i int) *Task {
	return heap.Remove(h, i).(*Task)
}

// earliestDeadline returns the minimum of the two heaps' head deadlines,
// and whether either heap is non-empty, per fetch step 4 (§4.7).
func earliestDeadline(timers, background *timerHeap) (time.Time, bool) {
	tt := timers.peek()
	bt := background.peek()
	switch {
	case tt == nil && bt == nil:
		return time.Time{}, false
	case tt == nil:
		return bt.deadline, true
	case bt == nil:
		return tt.deadline, true
	case tt.deadline.Before(bt.deadline):
		return tt.deadline, true
	default:
		return bt.deadline, true
	}
}
