package coupons

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// Alphabet leaves out 0/O, 1/I and other glyphs that read alike.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const suffixLen = 6

// Generator produces the random suffix of a coupon code.
type Generator interface {
	Suffix() (string, error)
}

// RandGenerator draws from a reader, crypto/rand by default.
type RandGenerator struct {
	r io.Reader
}

// NewRandGenerator returns a generator over crypto/rand.
func NewRandGenerator() *RandGenerator { return &RandGenerator{r: rand.Reader} }

// NewReaderGenerator draws from r. Tests pass a seeded reader for repeatable codes.
func NewReaderGenerator(r io.Reader) *RandGenerator { return &RandGenerator{r: r} }

func (g *RandGenerator) Suffix() (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	var b strings.Builder
	b.Grow(suffixLen)
	for i := 0; i < suffixLen; i++ {
		n, err := rand.Int(g.r, max)
		if err != nil {
			return "", fmt.Errorf("coupon suffix: %w", err)
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}

// FormatCode builds PREFIX-<orderId>-<suffix>, upper-cased.
func FormatCode(prefix, orderID, suffix string) string {
	return strings.ToUpper(prefix + "-" + orderID + "-" + suffix)
}
