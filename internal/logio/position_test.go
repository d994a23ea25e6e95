package logio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionOrdering(t *testing.T) {
	a := NewPosition(5)
	b := NewPosition(9)

	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.True(t, b.After(a))
	assert.False(t, a.After(b))
	assert.True(t, a.Equal(NewPosition(5)))
	assert.False(t, a.Equal(b))
}

func TestPositionNext(t *testing.T) {
	p := NewPosition(5)
	assert.Equal(t, NewPosition(6), p.Next())
}

func TestPositionDistance(t *testing.T) {
	assert.Equal(t, int64(4), NewPosition(9).Distance(NewPosition(5)))
	assert.Equal(t, int64(-4), NewPosition(5).Distance(NewPosition(9)))
	assert.Equal(t, int64(0), NewPosition(5).Distance(NewPosition(5)))
}

func TestPositionString(t *testing.T) {
	assert.Equal(t, "Position(42)", NewPosition(42).String())
}
