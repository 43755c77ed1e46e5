package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChargeableWeightKg(t *testing.T) {
	assert.Equal(t, 1, ChargeableWeightKg(0))
	assert.Equal(t, 1, ChargeableWeightKg(1))
	assert.Equal(t, 1, ChargeableWeightKg(1000))
	assert.Equal(t, 2, ChargeableWeightKg(1001))
	assert.Equal(t, 2, ChargeableWeightKg(1400))
	assert.Equal(t, 3, ChargeableWeightKg(2500))
}

func TestVariant_EffectiveWeightGrams(t *testing.T) {
	assert.Equal(t, 200, (&Variant{WeightGrams: 200}).EffectiveWeightGrams())
	assert.Equal(t, DefaultItemWeightGrams, (&Variant{}).EffectiveWeightGrams())
}
