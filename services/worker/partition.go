package worker

// Range is an inclusive span of shop ids. Empty when Start > End.
type Range struct {
	Start int64
	End   int64
}

func (r Range) Empty() bool {
	return r.Start > r.End
}

func (r Range) Size() int64 {
	if r.Empty() {
		return 0
	}
	return r.End - r.Start + 1
}

// Partition splits [minID, maxID] into workers contiguous ranges.
// Every id lands in exactly one range, sizes differ by at most one and
// the larger ranges come first. When there are fewer ids than workers
// the trailing workers receive empty ranges.
func Partition(minID, maxID int64, workers int) []Range {
	if workers <= 0 {
		return nil
	}

	total := maxID - minID + 1
	if total < 0 {
		total = 0
	}
	base := total / int64(workers)
	remainder := total % int64(workers)

	ranges := make([]Range, workers)
	next := minID
	for i := range ranges {
		size := base
		if int64(i) < remainder {
			size++
		}
		if size == 0 {
			ranges[i] = Range{Start: 1, End: 0}
			continue
		}
		ranges[i] = Range{Start: next, End: next + size - 1}
		next += size
	}
	return ranges
}
