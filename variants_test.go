package parmap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	t.Run("ordering is preserved", func(t *testing.T) {
		got, err := Map(context.Background(), []int{1, 2, 3, 4}, func(ctx context.Context, x int) (int, error) {
			return x * 10, nil
		}, WithWorkers(2))
		require.NoError(t, err)
		assert.Equal(t, []int{10, 20, 30, 40}, got)
	})

	t.Run("empty input", func(t *testing.T) {
		got, err := Map(context.Background(), []int{}, func(ctx context.Context, x int) (int, error) {
			t.Error("fn must not be called for empty input")
			return 0, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{}, got)
	})

	t.Run("sequential and parallel agree", func(t *testing.T) {
		items := make([]int, 50)
		for i := range items {
			items[i] = i
		}
		fn := func(ctx context.Context, x int) (int, error) { return x*x + 1, nil }

		seq, err := Map(context.Background(), items, fn, WithWorkers(1))
		require.NoError(t, err)
		for _, w := range []int{2, 4, 8} {
			par, err := Map(context.Background(), items, fn, WithWorkers(w), WithChunksPerWorker(3))
			require.NoError(t, err)
			assert.Equal(t, seq, par, "workers=%d", w)
		}
	})

	t.Run("type change across map", func(t *testing.T) {
		got, err := Map(context.Background(), []int{1, 2, 3}, func(ctx context.Context, x int) (string, error) {
			return fmt.Sprintf("#%d", x), nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"#1", "#2", "#3"}, got)
	})
}

func TestMapIndexed(t *testing.T) {
	got, err := MapIndexed(context.Background(), []string{"a", "b", "c"}, func(ctx context.Context, s string, i int) (string, error) {
		return fmt.Sprintf("%s%d", s, i), nil
	}, WithWorkers(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"a0", "b1", "c2"}, got)
}

func TestMap2(t *testing.T) {
	t.Run("pairwise", func(t *testing.T) {
		got, err := Map2(context.Background(), []int{1, 2, 3}, []int{10, 20, 30}, func(ctx context.Context, x, y int) (int, error) {
			return x + y, nil
		}, WithWorkers(2))
		require.NoError(t, err)
		assert.Equal(t, []int{11, 22, 33}, got)
	})

	t.Run("length mismatch fails before evaluation", func(t *testing.T) {
		var calls atomic.Int32
		_, err := Map2(context.Background(), []int{1, 2, 3}, []int{10, 20}, func(ctx context.Context, x, y int) (int, error) {
			calls.Add(1)
			return 0, nil
		})
		var lme *LengthMismatchError
		require.ErrorAs(t, err, &lme)
		assert.Equal(t, 1, lme.Arg)
		assert.Equal(t, 3, lme.Want)
		assert.Equal(t, 2, lme.Got)
		assert.Zero(t, calls.Load(), "no element may be evaluated on mismatch")
	})

	t.Run("length-1 broadcasts", func(t *testing.T) {
		got, err := Map2(context.Background(), []int{1, 2, 3}, []int{100}, func(ctx context.Context, x, y int) (int, error) {
			return x + y, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{101, 102, 103}, got)
	})
}

func TestMapN(t *testing.T) {
	t.Run("three sequences", func(t *testing.T) {
		got, err := MapN(context.Background(),
			[][]any{{1, 2, 3}, {10, 20, 30}, {100}},
			func(ctx context.Context, args []any) (any, error) {
				return args[0].(int) + args[1].(int) + args[2].(int), nil
			}, WithWorkers(2))
		require.NoError(t, err)
		assert.Equal(t, []any{111, 122, 133}, got)
	})

	t.Run("no sequences", func(t *testing.T) {
		got, err := MapN(context.Background(), nil, func(ctx context.Context, args []any) (any, error) {
			return nil, nil
		})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("mismatch names the sequence", func(t *testing.T) {
		_, err := MapN(context.Background(),
			[][]any{{1, 2, 3}, {10, 20, 30}, {1, 2}},
			func(ctx context.Context, args []any) (any, error) { return nil, nil })
		var lme *LengthMismatchError
		require.ErrorAs(t, err, &lme)
		assert.Equal(t, 2, lme.Arg)
	})
}

func TestMapFloat64(t *testing.T) {
	t.Run("numeric values coerce", func(t *testing.T) {
		got, err := MapFloat64(context.Background(), []int{1, 2, 3}, func(ctx context.Context, x int) (any, error) {
			if x == 2 {
				return x, nil // int scalar still fits NumericVector
			}
			return float64(x) / 2, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []float64{0.5, 2, 1.5}, got)
	})

	t.Run("wrong type names the index", func(t *testing.T) {
		_, err := MapFloat64(context.Background(), []int{0, 1, 2, 3}, func(ctx context.Context, x int) (any, error) {
			if x == 1 {
				return "oops", nil
			}
			return float64(x), nil
		}, WithWorkers(2))

		var agg *AggregateError
		require.ErrorAs(t, err, &agg)
		require.Len(t, agg.Errors, 1, "only the misbehaving element fails")
		assert.Equal(t, 1, agg.Errors[0].Index)

		var tme *TypeMismatchError
		require.ErrorAs(t, err, &tme)
		assert.Equal(t, 1, tme.Index)
		assert.Equal(t, NumericVector, tme.Spec)
		assert.Equal(t, "oops", tme.Value)
	})
}

func TestMapInt(t *testing.T) {
	got, err := MapInt(context.Background(), []float64{1, 2, 3}, func(ctx context.Context, x float64) (any, error) {
		return x * 2, nil // integral floats are lossless
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 6}, got)

	_, err = MapInt(context.Background(), []float64{1, 2.5}, func(ctx context.Context, x float64) (any, error) {
		return x, nil
	})
	var tme *TypeMismatchError
	require.ErrorAs(t, err, &tme)
	assert.Equal(t, 1, tme.Index)
	assert.Equal(t, IntegerVector, tme.Spec)
}

func TestMapStringAndBool(t *testing.T) {
	got, err := MapString(context.Background(), []int{1, 2}, func(ctx context.Context, x int) (any, error) {
		return strings.Repeat("x", x), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "xx"}, got)

	_, err = MapString(context.Background(), []int{1}, func(ctx context.Context, x int) (any, error) {
		return x, nil
	})
	assert.Error(t, err, "ints must not silently stringify")

	flags, err := MapBool(context.Background(), []int{1, 2, 3}, func(ctx context.Context, x int) (any, error) {
		return x%2 == 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, false}, flags)
}

func TestMapAt(t *testing.T) {
	t.Run("only listed positions change", func(t *testing.T) {
		items := []int{1, 2, 3, 4, 5}
		got, err := MapAt(context.Background(), items, []int{1, 3, 3}, func(ctx context.Context, x int) (int, error) {
			return -x, nil
		}, WithWorkers(2))
		require.NoError(t, err)
		assert.Equal(t, []int{1, -2, 3, -4, 5}, got)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, items, "input must not be mutated")
	})

	t.Run("out of range position", func(t *testing.T) {
		_, err := MapAt(context.Background(), []int{1, 2}, []int{5}, func(ctx context.Context, x int) (int, error) {
			return x, nil
		})
		assert.Error(t, err)
	})

	t.Run("no positions", func(t *testing.T) {
		got, err := MapAt(context.Background(), []int{1, 2}, nil, func(ctx context.Context, x int) (int, error) {
			t.Error("fn must not be called with an empty selection")
			return 0, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, got)
	})
}

func TestModifyIf(t *testing.T) {
	t.Run("unselected elements are untouched", func(t *testing.T) {
		items := []string{"keep", "flip", "keep", "flip"}
		got, err := ModifyIf(context.Background(), items,
			func(s string, i int) bool { return s == "flip" },
			func(ctx context.Context, s string) (string, error) {
				return strings.ToUpper(s), nil
			}, WithWorkers(2))
		require.NoError(t, err)
		assert.Equal(t, []string{"keep", "FLIP", "keep", "FLIP"}, got)
	})

	t.Run("failure carries the original index", func(t *testing.T) {
		items := []int{0, 1, 2, 3, 4, 5}
		_, err := ModifyIf(context.Background(), items,
			func(x, i int) bool { return x%2 == 1 },
			func(ctx context.Context, x int) (int, error) {
				if x == 5 {
					return 0, errors.New("boom")
				}
				return -x, nil
			})
		var agg *AggregateError
		require.ErrorAs(t, err, &agg)
		require.Len(t, agg.Errors, 1)
		assert.Equal(t, 5, agg.Errors[0].Index, "index must refer to the original container")
	})
}

func TestModifyAny(t *testing.T) {
	t.Run("same dynamic type passes", func(t *testing.T) {
		got, err := ModifyAny(context.Background(), []any{1, "two", 3.0},
			func(v any, i int) bool { _, ok := v.(int); return ok },
			func(ctx context.Context, v any) (any, error) {
				return v.(int) * 10, nil
			})
		require.NoError(t, err)
		assert.Equal(t, []any{10, "two", 3.0}, got)
	})

	t.Run("type change fails the element", func(t *testing.T) {
		_, err := ModifyAny(context.Background(), []any{1, 2, 3}, nil,
			func(ctx context.Context, v any) (any, error) {
				if v.(int) == 2 {
					return "two", nil
				}
				return v, nil
			})
		var tme *TypeMismatchError
		require.ErrorAs(t, err, &tme)
		assert.Equal(t, 1, tme.Index)
		assert.Equal(t, MirroredContainer, tme.Spec)
	})
}

func TestForEach(t *testing.T) {
	var sum atomic.Int64
	err := ForEach(context.Background(), []int{1, 2, 3, 4}, func(ctx context.Context, x int) error {
		sum.Add(int64(x))
		return nil
	}, WithWorkers(4))
	require.NoError(t, err)
	assert.Equal(t, int64(10), sum.Load())

	err = ForEach(context.Background(), []int{1, 2, 3}, func(ctx context.Context, x int) error {
		if x == 2 {
			return errors.New("boom")
		}
		return nil
	})
	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Errors, 1)
	assert.Equal(t, 1, agg.Errors[0].Index)
}
