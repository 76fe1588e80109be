package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestResolveVariant(t *testing.T) {
	p := &Product{
		ID:    "oat-milk",
		Name:  "Oat Milk",
		Price: dec("4.99"),
		Variants: []Variant{
			{Key: "case6", Label: "case of 6", UnitCount: 6, Price: dec("26.99"), Enabled: true},
			{Key: "case12", Label: "case of 12", UnitCount: 12, Enabled: false},
		},
	}

	v := p.ResolveVariant("case6")
	assert.Equal(t, "case6", v.Key)
	assert.Equal(t, 6, v.UnitCount)

	// empty, unknown and disabled keys all fall back to the single unit
	for _, key := range []string{"", "single", "case12", "bogus"} {
		v := p.ResolveVariant(key)
		assert.Equal(t, VariantKeySingle, v.Key, "key=%q", key)
		assert.Equal(t, 1, v.UnitCount)
		assert.True(t, v.Enabled)
	}
}

func TestLinePrice(t *testing.T) {
	p := &Product{Price: dec("4.99")}

	withOverride := Variant{Key: "case6", UnitCount: 6, Price: dec("26.99")}
	assert.True(t, dec("26.99").Equal(p.LinePrice(withOverride)))

	noOverride := Variant{Key: "case12", UnitCount: 12}
	assert.True(t, dec("4.99").Equal(p.LinePrice(noOverride)))
}
