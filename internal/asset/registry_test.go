package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/turn-coordinator/internal/sprite"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	b, err := sprite.NewBitmap(1, 1, []sprite.Pixel{sprite.Red}, sprite.NoKey)
	require.NoError(t, err)

	require.NoError(t, reg.Register(Dial, b))
	require.NoError(t, reg.Register(Ball, b))
	assert.Error(t, reg.Register("", b))
	assert.Error(t, reg.Register(Needle, nil))

	got, ok := reg.Get(Dial)
	assert.True(t, ok)
	assert.Same(t, b, got)

	_, err = reg.Lookup(Needle)
	assert.ErrorIs(t, err, ErrMissing)

	err = reg.Require(Dial, Needle, APDot)
	assert.ErrorIs(t, err, ErrMissing)
	assert.Contains(t, err.Error(), Needle)
	assert.Contains(t, err.Error(), APDot)
	assert.NoError(t, reg.Require(Dial, Ball))

	assert.Equal(t, []string{Ball, Dial}, reg.List())
}
