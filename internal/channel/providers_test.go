package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderSet(t *testing.T) {
	set := NewProviderSet("p2", "p1", "p2", "")

	assert.Equal(t, 2, set.Len())
	assert.ElementsMatch(t, []string{"p1", "p2"}, set.IDs())
	assert.Equal(t, []string{"p1", "p2"}, set.IDs(), "IDs are sorted")
	assert.True(t, set.Allows("p1"))
	assert.False(t, set.Allows("p3"))
}

func TestProviderSet_EmptyAllowsAll(t *testing.T) {
	set := NewProviderSet()

	assert.Equal(t, 0, set.Len())
	assert.Empty(t, set.IDs())
	assert.True(t, set.Allows("anything"))

	var zero ProviderSet
	assert.True(t, zero.Allows("anything"))
	assert.NotNil(t, zero.IDs())
}

func TestProviderSet_IDsReturnsCopy(t *testing.T) {
	set := NewProviderSet("p1")
	ids := set.IDs()
	ids[0] = "tampered"

	assert.Equal(t, []string{"p1"}, set.IDs())
}
