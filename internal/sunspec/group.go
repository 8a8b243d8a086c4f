package sunspec

import "sort"

const (
	// MaxReadLength is the most registers one Modbus read holding
	// registers request may ask for.
	MaxReadLength = 125
	// DefaultMaxReadLength keeps one read under MaxReadLength.
	DefaultMaxReadLength = 120
)

// Group partitions regs into contiguous read requests. A register joins the
// current group only when it starts where the previous one ends, shares its
// data type and word order, and keeps the group within maxLength words.
// maxLength <= 0 selects DefaultMaxReadLength.
func Group(regs []Register, maxLength int) [][]Register {
	if maxLength <= 0 {
		maxLength = DefaultMaxReadLength
	}
	groups := [][]Register{}
	if len(regs) == 0 {
		return groups
	}

	sorted := make([]Register, len(regs))
	copy(sorted, regs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Address < sorted[j].Address })

	current := []Register{sorted[0]}
	currentLength := int(sorted[0].Length)

	for _, next := range sorted[1:] {
		last := current[len(current)-1]

		adjacent := last.End() == int(next.Address)
		sameType := last.Type == next.Type
		sameOrder := last.Order == next.Order
		fits := currentLength+int(next.Length) <= maxLength

		if adjacent && sameType && sameOrder && fits {
			current = append(current, next)
			currentLength += int(next.Length)
			continue
		}

		groups = append(groups, current)
		current = []Register{next}
		currentLength = int(next.Length)
	}

	return append(groups, current)
}

// Span returns the start address and total word count of a group.
func Span(group []Register) (uint16, uint16) {
	if len(group) == 0 {
		return 0, 0
	}
	var count int
	for _, r := range group {
		count += int(r.Length)
	}
	return group[0].Address, uint16(count)
}
