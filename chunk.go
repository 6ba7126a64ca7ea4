package parmap

// chunk is a contiguous half-open range [start, end) of input indices
// assigned as one unit of work to one worker.
type chunk struct {
	id    int
	start int
	end   int
}

func (c chunk) size() int { return c.end - c.start }

// planChunks partitions [0, n) into ordered, non-overlapping chunks.
// The chunks tile the index range exactly once each. Chunk count never
// exceeds min(n, workers*chunksPerWorker).
func planChunks(n int, cfg config) []chunk {
	if n == 0 {
		return nil
	}

	count := cfg.workers * cfg.chunksPerWorker
	if count > n {
		count = n
	}

	if cfg.strategy == WeightedChunks && len(cfg.weights) == n {
		return planWeighted(n, count, cfg.weights)
	}
	return planEven(n, count)
}

// planEven divides n indices as evenly as possible across count chunks:
// every chunk holds ceil(n/count) indices except the last, which absorbs
// the remainder.
func planEven(n, count int) []chunk {
	size := (n + count - 1) / count
	chunks := make([]chunk, 0, count)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		chunks = append(chunks, chunk{id: len(chunks), start: start, end: end})
	}
	return chunks
}

// planWeighted chooses chunk boundaries so that cumulative element
// weight, not raw count, is balanced across chunks. A single element
// heavier than a chunk's share gets a chunk of its own.
func planWeighted(n, count int, weights []float64) []chunk {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return planEven(n, count)
	}

	chunks := make([]chunk, 0, count)
	start := 0
	var cum float64
	for i := 0; i < n; i++ {
		cum += weights[i]
		closed := len(chunks)
		if closed == count-1 {
			break
		}
		// Close once this chunk's share of the total weight is met, or
		// when exactly one element per remaining chunk is left.
		boundary := total * float64(closed+1) / float64(count)
		mustClose := n-(i+1) == count-closed-1
		if (cum >= boundary || mustClose) && i+1 > start {
			chunks = append(chunks, chunk{id: closed, start: start, end: i + 1})
			start = i + 1
		}
	}
	chunks = append(chunks, chunk{id: len(chunks), start: start, end: n})
	return chunks
}
