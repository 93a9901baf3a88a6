package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqbase/seqsearch/internal/domain/model"
)

func sampleMatches() []model.Match {
	return []model.Match{
		{TargetID: "NC_000913.3", Description: "E. coli K-12", Score: 92.4, Identity: 0.98},
		{TargetID: "NC_002695.2", Description: "E. coli O157:H7", Score: 61.0, Identity: 0.87},
		{TargetID: "NC_003197.2", Description: "S. enterica", Score: 18.3, Identity: 0.44},
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(""))
	assert.NoError(t, Validate("   "))
	assert.NoError(t, Validate("[?score > `30`]"))
	assert.Error(t, Validate("[?score >"))
}

func TestApply_EmptyExpressionPassesThrough(t *testing.T) {
	matches := sampleMatches()
	filtered, err := Apply("", matches)
	require.NoError(t, err)
	assert.Equal(t, matches, filtered)
}

func TestApply_SelectsMatchingEntries(t *testing.T) {
	filtered, err := Apply("[?score > `30`]", sampleMatches())
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, "NC_000913.3", filtered[0].TargetID)
	assert.Equal(t, "NC_002695.2", filtered[1].TargetID)
}

func TestApply_FilterDroppingEverythingReturnsEmptySlice(t *testing.T) {
	filtered, err := Apply("[?score > `1000`]", sampleMatches())
	require.NoError(t, err)
	require.NotNil(t, filtered)
	assert.Empty(t, filtered)
}

func TestApply_NonListResultFails(t *testing.T) {
	_, err := Apply("[0].score", sampleMatches())
	require.ErrorIs(t, err, ErrFilterResultShape)
}

func TestApply_ProjectionKeepsMatchShape(t *testing.T) {
	filtered, err := Apply("[?identity >= `0.8`]", sampleMatches())
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.InDelta(t, 0.98, filtered[0].Identity, 0.0001)
}
