package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCryptoTicketSampler(t *testing.T) {
	sampler := NewCryptoTicketSampler()

	t.Run("distinct and in range", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			offsets, err := sampler.Sample(5, 3)
			require.NoError(t, err)
			require.Len(t, offsets, 3)
			seen := map[int64]bool{}
			for _, o := range offsets {
				assert.GreaterOrEqual(t, o, int64(0))
				assert.Less(t, o, int64(5))
				assert.False(t, seen[o], "duplicate offset %d", o)
				seen[o] = true
			}
		}
	})

	t.Run("caps at population size", func(t *testing.T) {
		offsets, err := sampler.Sample(2, 3)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{0, 1}, offsets)
	})

	t.Run("empty population", func(t *testing.T) {
		offsets, err := sampler.Sample(0, 3)
		require.NoError(t, err)
		assert.Empty(t, offsets)
	})

	t.Run("roughly uniform", func(t *testing.T) {
		counts := make([]int, 4)
		const rounds = 4000
		for i := 0; i < rounds; i++ {
			offsets, err := sampler.Sample(4, 1)
			require.NoError(t, err)
			counts[offsets[0]]++
		}
		for offset, c := range counts {
			assert.InDelta(t, rounds/4, c, rounds/8, "offset %d drawn %d times", offset, c)
		}
	})
}
