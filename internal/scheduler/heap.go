package scheduler

import "container/heap"

// cohortHeap implements container/heap.Interface for Cohort,
// sorted by Target, earliest first.
type cohortHeap []Cohort

func (h cohortHeap) Len() int           { return len(h) }
func (h cohortHeap) Less(i, j int) bool { return h[i].Target.Before(h[j].Target) }
func (h cohortHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *cohortHeap) Push(x any) {
	*h = append(*h, x.(Cohort))
}

func (h *cohortHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// heapPush adds a Cohort to the heap, keeping heap order.
func heapPush(h *cohortHeap, c Cohort) {
	heap.Push(h, c)
}

// heapPop removes and returns the Cohort with the earliest Target.
// Panics if the heap is empty.
func heapPop(h *cohortHeap) Cohort {
	return heap.Pop(h).(Cohort)
}
