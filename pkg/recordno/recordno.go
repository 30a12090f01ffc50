// Package recordno generates human-readable record numbers of the form
// PREFIX + two-digit year + zero-padded numeric suffix, e.g. ADM260001,
// TR260417, MAR2600042.
//
// The generator makes no uniqueness guarantee on its own; callers rely on
// a unique constraint at the storage boundary and retry on collision.
package recordno

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"
)

// Format describes one record-number series.
type Format struct {
	Prefix string
	Digits int
}

// Well-known series used by the workflow engines.
var (
	Admission      = Format{Prefix: "ADM", Digits: 4}
	Triage         = Format{Prefix: "TR", Digits: 4}
	Administration = Format{Prefix: "MAR", Digits: 5}
)

// Generator produces record numbers for a given format.
type Generator interface {
	Next(f Format, now time.Time) string
}

// Random returns a Generator whose suffix is uniformly random within the
// format's digit width. This matches the historical numbering scheme;
// collisions are possible and must be caught by the database.
func Random() Generator { return randomGen{} }

type randomGen struct{}

func (randomGen) Next(f Format, now time.Time) string {
	max := pow10(f.Digits)
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		// crypto/rand only fails if the OS entropy source is broken;
		// fall back to a time-derived suffix rather than panicking.
		n = big.NewInt(now.UnixNano() % max)
	}
	return format(f, now, n.Int64())
}

// Counter returns a Generator whose suffix is a monotonic in-process
// counter, wrapping at the digit width. Deterministic and collision-free
// within one process; cross-process uniqueness still comes from the
// database constraint.
func Counter(start int64) Generator {
	g := &counterGen{}
	g.n.Store(start)
	return g
}

type counterGen struct {
	n atomic.Int64
}

func (g *counterGen) Next(f Format, now time.Time) string {
	n := g.n.Add(1)
	return format(f, now, n%pow10(f.Digits))
}

func format(f Format, now time.Time, suffix int64) string {
	return fmt.Sprintf("%s%02d%0*d", f.Prefix, now.Year()%100, f.Digits, suffix)
}

func pow10(digits int) int64 {
	n := int64(1)
	for i := 0; i < digits; i++ {
		n *= 10
	}
	return n
}
