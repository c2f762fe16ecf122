package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archive-tools/easydb-exporter/internal/model"
)

func TestLookupKnownType(t *testing.T) {
	desc, ok := model.Lookup(model.ObjectTypePerson)
	require.True(t, ok)
	assert.Equal(t, []string{"act_grpm_0103"}, desc.ObjectTypes)
	assert.Equal(t, []int64{85, 108}, desc.PoolIDs)
}

func TestLookupUnknownType(t *testing.T) {
	_, ok := model.Lookup("newspaper")
	assert.False(t, ok)
}

func TestPoolsSampleScoping(t *testing.T) {
	desc, ok := model.Lookup(model.ObjectTypeGroup)
	require.True(t, ok)
	assert.Equal(t, desc.PoolIDs, desc.Pools(false))
	assert.Equal(t, desc.SamplePoolIDs, desc.Pools(true))
}

func TestPlaceHasNoProductionPools(t *testing.T) {
	desc, ok := model.Lookup(model.ObjectTypePlace)
	require.True(t, ok)
	assert.Empty(t, desc.Pools(false))
	assert.NotEmpty(t, desc.Pools(true))
}

func TestExportStateTerminal(t *testing.T) {
	assert.True(t, model.ExportStateDone.Terminal())
	assert.True(t, model.ExportStateFailed.Terminal())
	assert.False(t, model.ExportStateProcessing.Terminal())
	assert.False(t, model.ExportStateCreated.Terminal())
	assert.False(t, model.ExportStateStarted.Terminal())
}
