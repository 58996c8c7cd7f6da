package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aukilabs/broadphase/models"
	"github.com/aukilabs/broadphase/quadtree"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

const collisionScenario = `
bounds:
  x: 0
  y: 0
  width: 100
  height: 100
split_threshold: 3
min_side_length: 1
bodies:
  - kind: static
    x: 10
    y: 10
    radius: 3
  - kind: dynamic
    x: 15
    y: 10
    radius: 3
    vx: 2.5
  - x: 12
    y: 14
    radius: 2
  - kind: detector
    x: 12
    y: 11
    radius: 6
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(collisionScenario), 0o644))

	s, err := Load(path)
	require.NoError(t, err)

	require.True(t, s.HasBounds())
	require.Equal(t, quadtree.NewRegion(0, 0, 100, 100), s.Region())
	require.Equal(t, 3, s.SplitThreshold)
	require.Len(t, s.Bodies, 4)
	require.Equal(t, "static", s.Bodies[0].Kind)
	require.Equal(t, float32(2.5), s.Bodies[1].VX)
	require.Empty(t, s.Bodies[2].Kind)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeInvalidScenario))
}

func TestRead(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		invalid bool
	}{
		{
			name: "collision scenario",
			yaml: collisionScenario,
		},
		{
			name: "no bounds",
			yaml: "bodies:\n  - x: 1\n    y: 1\n    radius: 1\n",
		},
		{
			name:    "negative bounds",
			yaml:    "bounds:\n  width: -1\n  height: 10\n",
			invalid: true,
		},
		{
			name:    "unknown kind",
			yaml:    "bodies:\n  - kind: ghost\n    radius: 1\n",
			invalid: true,
		},
		{
			name:    "negative radius",
			yaml:    "bodies:\n  - radius: -2\n",
			invalid: true,
		},
		{
			name:    "negative split threshold",
			yaml:    "split_threshold: -4\n",
			invalid: true,
		},
		{
			name:    "malformed yaml",
			yaml:    "bodies: [",
			invalid: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(test.yaml))
			if test.invalid {
				require.Error(t, err)
				require.True(t, errors.IsType(err, ErrTypeInvalidScenario))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestScenarioOptions(t *testing.T) {
	defaults := quadtree.Options{
		SplitThreshold: 10,
		MergeThreshold: 5,
		MinSideLength:  10,
	}

	s := Scenario{SplitThreshold: 3, MinSideLength: 1}
	require.Equal(t, quadtree.Options{
		SplitThreshold: 3,
		MergeThreshold: 5,
		MinSideLength:  1,
	}, s.Options(defaults))

	require.Equal(t, defaults, Scenario{}.Options(defaults))
}

func TestScenarioApply(t *testing.T) {
	s, err := Read(strings.NewReader(collisionScenario))
	require.NoError(t, err)

	world := models.NewWorld(1, time.Second, s.Region(), s.Options(quadtree.Options{}))
	defer world.Close()

	bodies, err := s.Apply(world)
	require.NoError(t, err)
	require.Len(t, bodies, 4)
	require.Equal(t, 4, world.BodyCount())

	require.Equal(t, models.BodyKindStatic, bodies[0].Kind)
	require.Equal(t, models.BodyKindDynamic, bodies[2].Kind)
	require.Equal(t, models.BodyKindDetector, bodies[3].Kind)

	require.Len(t, world.QueryFor(bodies[3].ID), 3)
}
