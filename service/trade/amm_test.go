package trade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAMMNameForAddress(t *testing.T) {
	assert.Equal(t, "Whirlpool", AMMNameForAddress(whirlpoolStr))
	assert.Equal(t, "Jupiter Aggregator V6", AMMNameForAddress("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"))

	// Unrecognized but valid program.
	assert.Equal(t, "Unknown", AMMNameForAddress(solMintStr))
	// Malformed address.
	assert.Equal(t, "Unknown", AMMNameForAddress("not-an-address"))
}

func TestAMMName_OutOfRange(t *testing.T) {
	assert.Equal(t, "Unknown", AMM(999).Name())
	assert.Equal(t, "Orca", AMMOrca.Name())
}
