package services

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"raffle/domain/interfaces"
)

type cryptoTicketSampler struct{}

// NewCryptoTicketSampler returns a sampler backed by crypto/rand
func NewCryptoTicketSampler() interfaces.TicketSampler {
	return cryptoTicketSampler{}
}

// Sample draws min(k, n) distinct offsets in [0, n). Selection order is preserved
// because it decides rank. k is small, so duplicates are simply redrawn.
func (cryptoTicketSampler) Sample(n int64, k int) ([]int64, error) {
	if n <= 0 || k <= 0 {
		return nil, nil
	}
	if int64(k) > n {
		k = int(n)
	}

	picked := make([]int64, 0, k)
	seen := make(map[int64]struct{}, k)
	max := big.NewInt(n)
	for len(picked) < k {
		r, err := rand.Int(rand.Reader, max)
		if err != nil {
			return nil, fmt.Errorf("failed to generate random offset: %w", err)
		}
		offset := r.Int64()
		if _, dup := seen[offset]; dup {
			continue
		}
		seen[offset] = struct{}{}
		picked = append(picked, offset)
	}
	return picked, nil
}
