package locks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"stagerent/internal/domain/catalog"
)

func TestProductKeys_SortedAndUnique(t *testing.T) {
	keys := ProductKeys("p2", "p1", "p2", "")
	assert.Equal(t, []string{"product:p1", "product:p2"}, keys)
}

func TestCovered(t *testing.T) {
	assert.NoError(t, Covered(context.Background(), "p1"))

	ctx := WithScope(context.Background(), ProductKeys("p1"))
	assert.NoError(t, Covered(ctx, catalog.ProductID("p1")))
	assert.ErrorIs(t, Covered(ctx, "p1", "p3"), ErrScopeChanged)
}
