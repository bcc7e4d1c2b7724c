package dataset

import (
	"math/rand"
	"sort"
)

/*
StratifiedSample takes a random source, a slice of active sample
indices and a target size and returns a class-proportional draw of at
most target indices. Each class contributes a share proportional to
its presence among the given indices; classes with fewer members than
their share contribute all of them. When the active set is not larger
than the target the indices are returned as they are.

The draw only touches copies of the per-class index lists, so the
caller keeps ownership of the input slice.
*/
func (ds *Dataset) StratifiedSample(r *rand.Rand, indices []int, target int) []int {
	if len(indices) <= target {
		return indices
	}
	byClass := make([][]int, ds.NumClasses())
	for _, i := range indices {
		id := ds.ClassIDs[i]
		byClass[id] = append(byClass[id], i)
	}
	shares := proportionalShares(byClass, len(indices), target)
	sample := make([]int, 0, target)
	for id, members := range byClass {
		share := shares[id]
		if share >= len(members) {
			sample = append(sample, members...)
			continue
		}
		// Partial Fisher-Yates over a copy of the class members.
		members = append([]int(nil), members...)
		j := len(members) - 1
		for drawn := 0; drawn < share; drawn++ {
			k := r.Intn(j + 1)
			members[k], members[j] = members[j], members[k]
			sample = append(sample, members[j])
			j--
		}
	}
	return sample
}

// proportionalShares apportions target among the classes by the
// largest-remainder method, breaking remainder ties by lower class
// id so draws are reproducible.
func proportionalShares(byClass [][]int, total, target int) []int {
	shares := make([]int, len(byClass))
	type remainder struct {
		id   int
		frac float64
	}
	remainders := make([]remainder, 0, len(byClass))
	assigned := 0
	for id, members := range byClass {
		exact := float64(target) * float64(len(members)) / float64(total)
		shares[id] = int(exact)
		assigned += shares[id]
		remainders = append(remainders, remainder{id: id, frac: exact - float64(shares[id])})
	}
	sort.Slice(remainders, func(i, j int) bool {
		if remainders[i].frac != remainders[j].frac {
			return remainders[i].frac > remainders[j].frac
		}
		return remainders[i].id < remainders[j].id
	})
	for i := 0; assigned < target && i < len(remainders); i++ {
		id := remainders[i].id
		if shares[id] < len(byClass[id]) {
			shares[id]++
			assigned++
		}
	}
	return shares
}
