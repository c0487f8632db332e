package contract

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
)

// maxDrawAttempts bounds the retries spent looking for a topic not yet drawn.
const maxDrawAttempts = 64

// Entropy turns a per-draw seed into an index in [0, space).
type Entropy interface {
	Index(seed []byte, space int) int
}

// ledgerEntropy hashes the seed. Every endorsing peer computes the same
// seed from the transaction, so every peer draws the same index.
type ledgerEntropy struct{}

func (ledgerEntropy) Index(seed []byte, space int) int {
	sum := sha256.Sum256(seed)
	return int(binary.BigEndian.Uint64(sum[:8]) % uint64(space))
}

// seededEntropy ignores the seed and draws from a fixed-seed PRNG.
type seededEntropy struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSeededEntropy returns an Entropy whose sequence depends only on seed.
// It is not deterministic across endorsing peers and suits local runs only.
func NewSeededEntropy(seed int64) Entropy {
	return &seededEntropy{rnd: rand.New(rand.NewSource(seed))}
}

func (e *seededEntropy) Index(_ []byte, space int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rnd.Intn(space)
}

// drawSeed builds the seed for one draw from the transaction, the subject
// identity and the running nonce.
func (s *txSession) drawSeed(subject string, nonce uint64) []byte {
	return []byte(s.txID + "|" + strconv.FormatInt(s.now.UnixNano(), 10) + "|" + subject + "|" + strconv.FormatUint(nonce, 10))
}

// drawTopics returns count distinct topics in [0, space).
func (s *txSession) drawTopics(subject string, count, space int) ([]int, error) {
	if count > space {
		return nil, fmt.Errorf("cannot draw %d distinct topics from %d", count, space)
	}
	topics := make([]int, 0, count)
	seen := make(map[int]bool, count)
	for attempt := 0; len(topics) < count; attempt++ {
		if attempt >= maxDrawAttempts*count {
			return nil, fmt.Errorf("failed to draw %d distinct topics after %d attempts", count, attempt)
		}
		nonce, err := s.nextNonce()
		if err != nil {
			return nil, err
		}
		t := s.entropy.Index(s.drawSeed(subject, nonce), space)
		if t < 0 || t >= space || seen[t] {
			continue
		}
		seen[t] = true
		topics = append(topics, t)
	}
	return topics, nil
}
