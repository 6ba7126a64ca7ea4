package parmap

import "context"

type seedKey struct{}

// ChunkSeed returns the reproducible sub-seed assigned to the chunk the
// current element belongs to. It reports false when the call was not
// configured with [WithSeed] or ctx did not come from an evaluation
// function.
func ChunkSeed(ctx context.Context) (uint64, bool) {
	v, ok := ctx.Value(seedKey{}).(uint64)
	return v, ok
}

func withChunkSeed(ctx context.Context, seed uint64) context.Context {
	return context.WithValue(ctx, seedKey{}, seed)
}

// deriveSeed mixes the call's base seed with a chunk identifier through
// the splitmix64 finalizer. Each chunk gets an independent stream that
// depends only on the base seed and chunk geometry, never on worker
// scheduling, so seeded calls are repeatable.
func deriveSeed(base uint64, chunkID int) uint64 {
	z := base + (uint64(chunkID)+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
