package borrowcheck

// lastUses computes, for every accessor in the trace, the index of its
// final use. Uses are Use events, derivations through it, and an explicit
// destruction, which pins the window open until that point. A derived
// accessor extends the window of the accessor it was derived through,
// transitively, since the parent has to stay valid for as long as anything
// derived from it is usable. Accessors that are never used expire right
// after creation.
func lastUses(events []Event) map[AccessorID]int {
	last := make(map[AccessorID]int)
	parent := make(map[AccessorID]AccessorID)
	var order []AccessorID // creation order

	for i, ev := range events {
		switch ev.Kind {
		case CreateShared, CreateExclusive:
			if _, ok := last[ev.Accessor]; !ok {
				order = append(order, ev.Accessor)
			}
			last[ev.Accessor] = i
		case DeriveShared, DeriveExclusive:
			if _, ok := last[ev.Accessor]; !ok {
				order = append(order, ev.Accessor)
			}
			last[ev.Accessor] = i
			parent[ev.Accessor] = ev.Parent
			if v, ok := last[ev.Parent]; ok && i > v {
				last[ev.Parent] = i
			}
		case Use, DestroyAccessor:
			if v, ok := last[ev.Accessor]; ok && i > v {
				last[ev.Accessor] = i
			}
		}
	}

	// Children are created after their parents, so a reverse-creation-order
	// sweep sees every accessor after all of its descendants.
	for i := len(order) - 1; i >= 0; i-- {
		a := order[i]
		p, ok := parent[a]
		if !ok {
			continue
		}
		if last[a] > last[p] {
			last[p] = last[a]
		}
	}
	return last
}

// expiryBuckets inverts a last-use table into per-index retirement lists:
// bucket[i] holds the accessors whose windows end right after event i.
func expiryBuckets(last map[AccessorID]int) map[int][]AccessorID {
	buckets := make(map[int][]AccessorID, len(last))
	for a, i := range last {
		buckets[i] = append(buckets[i], a)
	}
	return buckets
}
