package models

import (
	"testing"
	"time"

	"github.com/aukilabs/broadphase/quadtree"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestParseBodyKind(t *testing.T) {
	tests := []struct {
		input    string
		expected BodyKind
	}{
		{input: "static", expected: BodyKindStatic},
		{input: "dynamic", expected: BodyKindDynamic},
		{input: "detector", expected: BodyKindDetector},
		{input: "", expected: BodyKindDynamic},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			kind, err := ParseBodyKind(test.input)
			require.NoError(t, err)
			require.Equal(t, test.expected, kind)
		})
	}

	t.Run("unknown kind", func(t *testing.T) {
		_, err := ParseBodyKind("ghost")
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidBodyKind))
	})
}

func TestBodyGeometry(t *testing.T) {
	var b Body

	b.SetPosition(quadtree.Vector2{X: 1, Y: 2})
	b.SetVelocity(quadtree.Vector2{X: 3, Y: 4})
	b.SetRadius(5)

	require.Equal(t, quadtree.Vector2{X: 1, Y: 2}, b.Position())
	require.Equal(t, quadtree.Vector2{X: 3, Y: 4}, b.Velocity())
	require.Equal(t, float32(5), b.Radius())
}

func TestBodyIntegrate(t *testing.T) {
	t.Run("dynamic body moves", func(t *testing.T) {
		b := Body{Kind: BodyKindDynamic}
		b.SetPosition(quadtree.Vector2{X: 1, Y: 1})
		b.SetVelocity(quadtree.Vector2{X: 2, Y: -4})
		b.SetRadius(3)

		b.integrate(time.Second / 2)
		require.Equal(t, quadtree.Vector2{X: 2, Y: -1}, b.Position())
		require.Equal(t, quadtree.Vector2{X: 2, Y: -1}, b.entry.Position)
		require.Equal(t, float32(3), b.entry.Radius)
	})

	t.Run("static body ignores velocity", func(t *testing.T) {
		b := Body{Kind: BodyKindStatic}
		b.SetPosition(quadtree.Vector2{X: 1, Y: 1})
		b.SetVelocity(quadtree.Vector2{X: 2, Y: -4})

		b.integrate(time.Second)
		require.Equal(t, quadtree.Vector2{X: 1, Y: 1}, b.Position())
		require.Equal(t, quadtree.Vector2{X: 1, Y: 1}, b.entry.Position)
	})
}

func TestBodyStates(t *testing.T) {
	b := &Body{ID: 3, Kind: BodyKindDetector}
	b.SetPosition(quadtree.Vector2{X: 1, Y: 2})
	b.SetRadius(4)

	require.Equal(t, []BodyState{{
		ID:       3,
		Kind:     BodyKindDetector,
		Position: quadtree.Vector2{X: 1, Y: 2},
		Radius:   4,
	}}, BodyStates([]*Body{b}))
}
