package idgen

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/big"
	mrand "math/rand"
	"net"
	"strconv"
	"sync"
	"time"

	coreport "github.com/lunapay/payment-orchestrator/internal/domain/port/core"
)

const (
	// customEpochMillis is 2025-07-01T00:00:00Z. Ids stay within 18 decimal
	// digits for roughly three decades from this epoch.
	customEpochMillis int64 = 1751328000000

	nodeIDBits   = 10
	sequenceBits = 10
	nodeIDMask   = (1 << nodeIDBits) - 1
	sequenceMask = (1 << sequenceBits) - 1

	timestampShift = nodeIDBits + sequenceBits

	// paymentIDLength is the fixed length of the externally visible payment id
	paymentIDLength = 18
)

const alphanumerics = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generator produces process-wide strictly increasing transaction ids.
// Layout: timestamp(ms since custom epoch) << 20 | nodeID << 10 | sequence.
// The per-millisecond sequence is folded into the low bits so ids issued
// within the same millisecond remain unique and ordered; on sequence
// exhaustion the generator busy-waits until the clock advances.
type Generator struct {
	mu            sync.Mutex
	nodeID        int64
	lastTimestamp int64
	sequence      int64
	now           func() time.Time
}

var _ coreport.IDGenerator = (*Generator)(nil)

// NewGenerator derives the node id once from the host's network interfaces
func NewGenerator() *Generator {
	return &Generator{
		nodeID:        deriveNodeID(),
		lastTimestamp: -1,
		now:           time.Now,
	}
}

// deriveNodeID hashes the MAC addresses of all interfaces into 10 bits,
// falling back to a cryptographically random value when no interface is
// available
func deriveNodeID() int64 {
	ifaces, err := net.Interfaces()
	if err == nil {
		h := fnv.New64a()
		hashed := false
		for _, iface := range ifaces {
			if len(iface.HardwareAddr) == 0 {
				continue
			}
			_, _ = h.Write(iface.HardwareAddr)
			hashed = true
		}
		if hashed {
			return int64(h.Sum64() & nodeIDMask)
		}
	}

	n, err := rand.Int(rand.Reader, big.NewInt(nodeIDMask+1))
	if err != nil {
		// Last resort: a time-seeded value is still better than a constant.
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(time.Now().UnixNano()))
		h := fnv.New64a()
		_, _ = h.Write(b[:])
		return int64(h.Sum64() & nodeIDMask)
	}
	return n.Int64()
}

// NextID returns the next id. Clock regression is a fatal condition for this
// call only; the generator recovers once the clock catches up.
func (g *Generator) NextID() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.now().UnixMilli() - customEpochMillis
	if ts < g.lastTimestamp {
		return 0, fmt.Errorf("clock moved backwards: refusing to generate id for %d ms",
			g.lastTimestamp-ts)
	}

	if ts == g.lastTimestamp {
		g.sequence = (g.sequence + 1) & sequenceMask
		if g.sequence == 0 {
			// Sequence exhausted within this millisecond.
			for ts <= g.lastTimestamp {
				ts = g.now().UnixMilli() - customEpochMillis
			}
			g.lastTimestamp = ts
		}
	} else {
		g.sequence = 0
		g.lastTimestamp = ts
	}

	return g.lastTimestamp<<timestampShift | g.nodeID<<nodeIDBits | g.sequence, nil
}

// GenerateUniqueID converts the next numeric id to decimal digits and
// interleaves randomly chosen alphanumerics at random positions until the
// string reaches the fixed length. The original digits stay a subsequence of
// the output; this is obfuscation, not a security control.
func (g *Generator) GenerateUniqueID() (string, error) {
	id, err := g.NextID()
	if err != nil {
		return "", err
	}

	out := []byte(strconv.FormatInt(id, 10))
	for len(out) < paymentIDLength {
		pos := mrand.Intn(len(out) + 1)
		ch := alphanumerics[mrand.Intn(len(alphanumerics))]
		out = append(out[:pos], append([]byte{ch}, out[pos:]...)...)
	}
	return string(out), nil
}
