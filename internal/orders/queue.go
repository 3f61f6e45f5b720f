package orders

import "sort"

// SortQueue orders by OrderTime, then OrderID so equal timestamps stay deterministic.
func SortQueue(list []Order) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.OrderTime.Equal(b.OrderTime) {
			return a.OrderTime.Before(b.OrderTime)
		}
		return a.OrderID < b.OrderID
	})
}

// ActiveQueue returns the PLACED and PREPARING orders in queue order.
func ActiveQueue(all []Order) []Order {
	active := make([]Order, 0, len(all))
	for _, o := range all {
		if o.Status.Active() {
			active = append(active, o)
		}
	}
	SortQueue(active)
	return active
}

// WaitMinutes sums the prep minutes of every order in queue up to and including
// targetID. queue must already be sorted. A target outside the queue waits 0.
func WaitMinutes(queue []Order, targetID string) int {
	total := 0
	for _, o := range queue {
		total += o.PrepMinutes()
		if o.OrderID == targetID {
			return total
		}
	}
	return 0
}

// WithTarget returns queue with target in its place, adding it when the
// snapshot missed it.
func WithTarget(queue []Order, target Order) []Order {
	for _, o := range queue {
		if o.OrderID == target.OrderID {
			return queue
		}
	}
	out := append(append(make([]Order, 0, len(queue)+1), queue...), target)
	SortQueue(out)
	return out
}

// TailWaitMinutes is the wait of the last order in queue, i.e. the prep sum of
// the whole queue.
func TailWaitMinutes(queue []Order) int {
	total := 0
	for _, o := range queue {
		total += o.PrepMinutes()
	}
	return total
}
