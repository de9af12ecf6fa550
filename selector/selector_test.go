package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/config"
	"github.com/clipforge/clipforge/errors"
	"github.com/clipforge/clipforge/fuse"
)

func baseConfig() Config {
	return Config{
		DurationClass: config.DurationClassAny,
		ClipMin:       9,
		ClipMax:       50,
		MinClipsFloor: 2,
		MaxClips:      5,
		MinViral:      0.08,
	}
}

func candidate(start, end, viral float64) fuse.Candidate {
	return fuse.Candidate{
		Start:      start,
		End:        end,
		ViralScore: viral,
		Scores:     map[string]float64{"hook": viral},
	}
}

func TestSelectGreedyNonOverlappingTopK(t *testing.T) {
	candidates := []fuse.Candidate{
		candidate(0, 10, 0.9),
		candidate(5, 15, 0.8), // overlaps the first
		candidate(20, 30, 0.5),
	}

	picked, err := Select(candidates, baseConfig(), 120)
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, 0.0, picked[0].Start)
	assert.Equal(t, 20.0, picked[1].Start)
}

func TestSelectStopsAtMinViral(t *testing.T) {
	candidates := []fuse.Candidate{
		candidate(0, 10, 0.5),
		candidate(20, 30, 0.01),
		candidate(40, 50, 0.02),
		candidate(60, 70, 0.03),
	}
	cfg := baseConfig()
	cfg.MinClipsFloor = 1

	picked, err := Select(candidates, cfg, 120)
	require.NoError(t, err)
	require.Len(t, picked, 1)
}

func TestSelectFallsBackToMinViralZeroWhenFloorUnmet(t *testing.T) {
	candidates := []fuse.Candidate{
		candidate(0, 10, 0.5),
		candidate(20, 30, 0.01),
	}
	cfg := baseConfig()
	cfg.MinClipsFloor = 2

	picked, err := Select(candidates, cfg, 120)
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.True(t, picked[1].Fallback)
}

func TestSelectFabricatesTilesWhenStillBelowFloor(t *testing.T) {
	candidates := []fuse.Candidate{
		candidate(0, 10, 0.5),
	}
	cfg := baseConfig()
	cfg.MinClipsFloor = 3

	picked, err := Select(candidates, cfg, 120)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(picked), 3)

	foundTile := false
	for _, c := range picked {
		if c.Rationale == "coverage fallback" {
			foundTile = true
			assert.True(t, c.Fallback)
			assert.False(t, c.ContextComplete)
			assert.Equal(t, 0.0, c.ViralScore)
		}
	}
	assert.True(t, foundTile)
}

func TestSelectInsufficientMaterialWhenSourceTooShort(t *testing.T) {
	cfg := baseConfig()
	cfg.MinClipsFloor = 5

	_, err := Select(nil, cfg, 15)
	require.Error(t, err)
	assert.Equal(t, errors.KindInsufficientMaterial, errors.AsKind(err))
}

func TestSelectShortSourceYieldsSingleFallbackClip(t *testing.T) {
	candidates := []fuse.Candidate{
		candidate(0, 9, 0.0),
	}
	cfg := baseConfig()
	cfg.MinClipsFloor = 5

	picked, err := Select(candidates, cfg, 9)
	require.NoError(t, err)
	require.Len(t, picked, 1)
	assert.True(t, picked[0].Fallback)
}

func TestSelectNeverPicksOutOfRangeDurations(t *testing.T) {
	candidates := []fuse.Candidate{
		candidate(0, 5, 0.99),  // below ClipMin
		candidate(10, 70, 0.9), // above ClipMax
		candidate(80, 95, 0.5),
	}
	cfg := baseConfig()
	cfg.MinClipsFloor = 1

	picked, err := Select(candidates, cfg, 120)
	require.NoError(t, err)
	for _, c := range picked {
		assert.GreaterOrEqual(t, c.Duration(), cfg.ClipMin)
		assert.LessOrEqual(t, c.Duration(), cfg.ClipMax)
	}
}

func TestSelectOutputIsTimeSorted(t *testing.T) {
	candidates := []fuse.Candidate{
		candidate(40, 50, 0.9),
		candidate(0, 10, 0.8),
		candidate(20, 30, 0.7),
	}
	cfg := baseConfig()
	cfg.MinClipsFloor = 1

	picked, err := Select(candidates, cfg, 120)
	require.NoError(t, err)
	for i := 1; i < len(picked); i++ {
		assert.Less(t, picked[i-1].Start, picked[i].Start)
	}
}

func TestDurationFilterWidensToAnyWhenTooFewSurvive(t *testing.T) {
	candidates := []fuse.Candidate{
		candidate(0, 10, 0.9),  // too short for "medium" (18-22 +-10%)
		candidate(20, 32, 0.8), // also too short for "medium"
	}
	cfg := baseConfig()
	cfg.DurationClass = config.DurationClassMedium
	cfg.MinClipsFloor = 2

	picked, err := Select(candidates, cfg, 120)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(picked), 2)
	assert.Equal(t, 0.0, picked[0].Start)
	assert.Equal(t, 20.0, picked[1].Start)
}
