package fixtures

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/handlers/availability"
	"stagerent/internal/app/handlers/catalog"
	domaincatalog "stagerent/internal/domain/catalog"
)

const sample = `
products:
  - id: hanbok-red
    title: Red hanbok
    category: costume
    daily_rate: 30000
    buffer_days: 2
    assets:
      - id: hanbok-red-1
        code: HR-1
        condition: A
        blocks:
          - start: "2025-05-01"
            end: "2025-05-03"
            reason: maintenance
      - id: hanbok-red-2
        code: HR-2
`

type recordingBus struct {
	cmds  []commands.Command
	taken map[string]bool
}

func (b *recordingBus) Dispatch(_ context.Context, cmd commands.Command) (any, error) {
	if a, ok := cmd.(catalog.RegisterAssetCommand); ok && b.taken[a.Code] {
		return nil, domaincatalog.ErrAssetCodeTaken
	}
	b.cmds = append(b.cmds, cmd)
	return nil, nil
}

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, c.Products, 1)
	p := c.Products[0]
	assert.Equal(t, int64(30000), p.DailyRate)
	require.NotNil(t, p.BufferDays)
	assert.Equal(t, 2, *p.BufferDays)
	require.Len(t, p.Assets, 2)
	assert.Len(t, p.Assets[0].Blocks, 1)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("products:\n  - id: x\n    colour: red\n"))
	require.Error(t, err)
}

func TestSeedDispatchesInOrderAndSkipsTakenCodes(t *testing.T) {
	c, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	bus := &recordingBus{taken: map[string]bool{"HR-2": true}}

	n, err := Seed(context.Background(), bus, c)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, bus.cmds, 3)
	assert.IsType(t, catalog.RegisterProductCommand{}, bus.cmds[0])
	assert.IsType(t, catalog.RegisterAssetCommand{}, bus.cmds[1])
	block, ok := bus.cmds[2].(availability.BlockPeriodCommand)
	require.True(t, ok)
	assert.Equal(t, "hanbok-red-1", block.AssetID)
	assert.Equal(t, 3, block.Range.Days())
}
