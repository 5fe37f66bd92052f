package order

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"storefront/internal/pkg/clock"
)

const numberPrefix = "ORD"

// NumberGenerator produces human-facing order numbers of the form
// ORD-<yyyymmddHHMMSS>-<8 hex chars>.
type NumberGenerator interface {
	Next() string
}

type timeRandomNumberGenerator struct {
	clock clock.Clock
}

func NewNumberGenerator(clk clock.Clock) NumberGenerator {
	return &timeRandomNumberGenerator{clock: clk}
}

func (g *timeRandomNumberGenerator) Next() string {
	now := g.clock.Now()
	timestamp := now.UTC().Format("20060102150405")

	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Sprintf("%s-%s-%08X", numberPrefix, timestamp, now.UnixNano()%0xffffffff)
	}
	return fmt.Sprintf("%s-%s-%s", numberPrefix, timestamp, strings.ToUpper(hex.EncodeToString(randomBytes)))
}
