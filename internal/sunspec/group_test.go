package sunspec

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adjacent(n int, start uint16, typ DataType) []Register {
	regs := make([]Register, n)
	for i := range regs {
		regs[i] = Register{
			Key:     fmt.Sprintf("reg_%d", i),
			Address: start + uint16(i),
			Length:  1,
			Type:    typ,
		}
	}
	return regs
}

func sizes(groups [][]Register) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = len(g)
	}
	return out
}

func TestGroupEmpty(t *testing.T) {
	groups := Group(nil, 0)
	require.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestGroupSingle(t *testing.T) {
	groups := Group(adjacent(1, 0x100, INT16), 0)
	assert.Equal(t, []int{1}, sizes(groups))
}

func TestGroupMaxLength(t *testing.T) {
	regs := adjacent(5, 0x100, UINT16)

	assert.Equal(t, []int{2, 2, 1}, sizes(Group(regs, 2)))
	assert.Equal(t, []int{5}, sizes(Group(regs, 5)))
}

func TestGroupDefaultLength(t *testing.T) {
	groups := Group(adjacent(150, 0x100, INT16), 0)
	assert.Equal(t, []int{120, 30}, sizes(groups))
}

func TestGroupSplits(t *testing.T) {
	tests := []struct {
		name string
		regs []Register
		want []int
	}{
		{
			name: "gap",
			regs: []Register{
				{Key: "a", Address: 0x100, Length: 1, Type: INT16},
				{Key: "b", Address: 0x105, Length: 1, Type: INT16},
			},
			want: []int{1, 1},
		},
		{
			name: "data type",
			regs: []Register{
				{Key: "a", Address: 0x100, Length: 1, Type: INT16},
				{Key: "b", Address: 0x101, Length: 2, Type: INT32},
			},
			want: []int{1, 1},
		},
		{
			name: "word order",
			regs: []Register{
				{Key: "a", Address: 0x100, Length: 1, Type: INT16},
				{Key: "b", Address: 0x101, Length: 1, Type: INT16, Order: LittleEndian},
			},
			want: []int{1, 1},
		},
		{
			name: "contiguous multi word",
			regs: []Register{
				{Key: "a", Address: 0x100, Length: 2, Type: UINT32},
				{Key: "b", Address: 0x102, Length: 2, Type: UINT32},
				{Key: "c", Address: 0x104, Length: 2, Type: UINT32},
			},
			want: []int{3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sizes(Group(tt.regs, 0)))
		})
	}
}

func TestGroupMixedLengthsLimit(t *testing.T) {
	regs := []Register{
		{Key: "r1", Address: 0x200, Length: 1, Type: UINT16},
		{Key: "r2", Address: 0x201, Length: 2, Type: FLOAT32},
	}
	groups := Group(regs, 2)
	require.Len(t, groups, 2)
	assert.Equal(t, "r1", groups[0][0].Key)
	assert.Equal(t, "r2", groups[1][0].Key)
}

func TestGroupSortsByAddress(t *testing.T) {
	regs := []Register{
		{Key: "c", Address: 0x102, Length: 1, Type: INT16},
		{Key: "a", Address: 0x100, Length: 1, Type: INT16},
		{Key: "b", Address: 0x101, Length: 1, Type: INT16},
	}
	groups := Group(regs, 0)
	require.Len(t, groups, 1)
	assert.Equal(t, "a", groups[0][0].Key)
	assert.Equal(t, "c", groups[0][2].Key)
	assert.Equal(t, "c", regs[0].Key, "input must not be reordered")
}

func TestGroupPartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	types := []DataType{INT16, UINT16, UINT32, FLOAT32}

	for round := 0; round < 50; round++ {
		var regs []Register
		addr := 0
		for i := 0; i < 80; i++ {
			typ := types[rng.Intn(len(types))]
			length := typ.Words()
			regs = append(regs, Register{
				Key:     fmt.Sprintf("r%d", i),
				Address: uint16(addr),
				Length:  uint16(length),
				Type:    typ,
				Order:   ByteOrder(rng.Intn(2)),
			})
			addr += length + rng.Intn(2)
		}
		rng.Shuffle(len(regs), func(i, j int) { regs[i], regs[j] = regs[j], regs[i] })
		maxLength := 1 + rng.Intn(20)

		groups := Group(regs, maxLength)

		seen := map[string]int{}
		lastAddr := -1
		for _, g := range groups {
			require.NotEmpty(t, g)
			start, count := Span(g)
			assert.Greater(t, int(start), lastAddr)
			if len(g) > 1 {
				assert.LessOrEqual(t, int(count), maxLength)
			}
			for i, r := range g {
				seen[r.Key]++
				if i > 0 {
					prev := g[i-1]
					assert.Equal(t, prev.End(), int(r.Address))
					assert.Equal(t, prev.Type, r.Type)
					assert.Equal(t, prev.Order, r.Order)
				}
			}
			lastAddr = int(g[len(g)-1].Address)
		}
		assert.Len(t, seen, len(regs))
		for key, n := range seen {
			assert.Equal(t, 1, n, key)
		}

		assert.Equal(t, groups, Group(regs, maxLength), "grouping must be deterministic")
	}
}
