package worker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	ranges := Partition(1, 10, 3)
	require.Len(t, ranges, 3)
	require.Equal(t, Range{Start: 1, End: 4}, ranges[0])
	require.Equal(t, Range{Start: 5, End: 7}, ranges[1])
	require.Equal(t, Range{Start: 8, End: 10}, ranges[2])
	require.Equal(t, int64(4), ranges[0].Size())
	require.Equal(t, int64(3), ranges[1].Size())
	require.Equal(t, int64(3), ranges[2].Size())
}

func TestPartitionCoversEveryId(t *testing.T) {
	for _, workers := range []int{1, 2, 3, 7, 10, 13} {
		ranges := Partition(100, 200, workers)
		require.Len(t, ranges, workers)

		seen := map[int64]int{}
		for _, r := range ranges {
			for id := r.Start; id <= r.End; id++ {
				seen[id]++
			}
		}
		for id := int64(100); id <= 200; id++ {
			require.Equal(t, 1, seen[id], "id %d with %d workers", id, workers)
		}
		require.Len(t, seen, 101)
	}
}

func TestPartitionMoreWorkersThanIds(t *testing.T) {
	ranges := Partition(1, 2, 4)
	require.Len(t, ranges, 4)
	require.Equal(t, int64(1), ranges[0].Size())
	require.Equal(t, int64(1), ranges[1].Size())
	require.True(t, ranges[2].Empty())
	require.True(t, ranges[3].Empty())
}

func TestPartitionEmptySpan(t *testing.T) {
	ranges := Partition(10, 5, 3)
	require.Len(t, ranges, 3)
	for _, r := range ranges {
		require.True(t, r.Empty())
	}
}
