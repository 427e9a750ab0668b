package match

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCaseInsensitive(t *testing.T) {
	list := NewList([]string{"Kementerian ABC", "Kementerian XYZ", "Kab. Lampung Barat"})

	for _, entry := range list.Entries() {
		for _, variant := range []string{entry, strings.ToUpper(entry), strings.ToLower(entry)} {
			m, err := Resolve(variant, list, PartialRatio, ThresholdInstitution)
			require.NoError(t, err, "variant %q", variant)
			assert.Equal(t, entry, m.Canonical)
			assert.GreaterOrEqual(t, m.Score, ThresholdInstitution)
		}
	}
}

func TestResolveExactMatchScenario(t *testing.T) {
	list := NewList([]string{"Kementerian ABC", "Kementerian XYZ"})
	m, err := Resolve("Kementerian ABC", list, PartialRatio, 70)
	require.NoError(t, err)
	assert.Equal(t, "Kementerian ABC", m.Canonical)
	assert.Equal(t, 100, m.Score)
}

func TestResolveBelowThreshold(t *testing.T) {
	list := NewList([]string{"Kementerian ABC"})
	_, err := Resolve("zzqq", list, PartialRatio, ThresholdInstitution)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolvePicksHighestScore(t *testing.T) {
	list := NewList([]string{"alpha", "beta", "gamma"})
	scorer := func(_, cand string) int {
		switch cand {
		case "beta":
			return 90
		case "gamma":
			return 75
		default:
			return 10
		}
	}
	m, err := Resolve("whatever", list, scorer, 70)
	require.NoError(t, err)
	assert.Equal(t, "beta", m.Canonical)
	assert.Equal(t, 90, m.Score)
}

func TestResolveEmptyInput(t *testing.T) {
	list := NewList([]string{"Kementerian ABC"})

	_, err := Resolve("", list, PartialRatio, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Resolve("   ", list, PartialRatio, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Resolve("Kementerian ABC", NewList(nil), PartialRatio, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseList(t *testing.T) {
	l := ParseList("Kementerian ABC; Kementerian XYZ ;;Kab. Lampung Barat")
	assert.Equal(t, []string{"Kementerian ABC", "Kementerian XYZ", "Kab. Lampung Barat"}, l.Entries())
	assert.Equal(t, 3, l.Len())
}
