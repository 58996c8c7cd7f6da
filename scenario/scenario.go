// Package scenario loads world descriptions from YAML files.
package scenario

import (
	"io"

	"github.com/aukilabs/broadphase/models"
	"github.com/aukilabs/broadphase/quadtree"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/spf13/viper"
)

const (
	ErrTypeInvalidScenario = "invalid_scenario"
)

// Scenario describes the initial state of a world.
type Scenario struct {
	// The initial root region. Zero bounds keep the world's own bounds.
	Bounds Bounds `mapstructure:"bounds"`

	SplitThreshold int     `mapstructure:"split_threshold"`
	MergeThreshold int     `mapstructure:"merge_threshold"`
	MinSideLength  float32 `mapstructure:"min_side_length"`
	MaxGrowth      int     `mapstructure:"max_growth"`

	Bodies []Body `mapstructure:"bodies"`
}

type Bounds struct {
	X      float32 `mapstructure:"x"`
	Y      float32 `mapstructure:"y"`
	Width  float32 `mapstructure:"width"`
	Height float32 `mapstructure:"height"`
}

type Body struct {
	Kind   string  `mapstructure:"kind"`
	X      float32 `mapstructure:"x"`
	Y      float32 `mapstructure:"y"`
	Radius float32 `mapstructure:"radius"`
	VX     float32 `mapstructure:"vx"`
	VY     float32 `mapstructure:"vy"`
}

// Load reads the scenario file at path. The format is picked from the file
// extension.
func Load(path string) (Scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Scenario{}, errors.New("reading scenario file failed").
			WithType(ErrTypeInvalidScenario).
			WithTag("path", path).
			Wrap(err)
	}
	return decode(v)
}

// Read reads a YAML scenario from r.
func Read(r io.Reader) (Scenario, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(r); err != nil {
		return Scenario{}, errors.New("reading scenario failed").
			WithType(ErrTypeInvalidScenario).
			Wrap(err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (Scenario, error) {
	var s Scenario
	if err := v.Unmarshal(&s); err != nil {
		return Scenario{}, errors.New("decoding scenario failed").
			WithType(ErrTypeInvalidScenario).
			Wrap(err)
	}

	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

// Validate reports the first problem found in s.
func (s Scenario) Validate() error {
	if s.Bounds.Width < 0 || s.Bounds.Height < 0 {
		return errors.New("scenario bounds have a negative size").
			WithType(ErrTypeInvalidScenario).
			WithTag("bounds", s.Bounds)
	}

	if s.SplitThreshold < 0 || s.MergeThreshold < 0 || s.MinSideLength < 0 || s.MaxGrowth < 0 {
		return errors.New("scenario tree options must not be negative").
			WithType(ErrTypeInvalidScenario).
			WithTag("split_threshold", s.SplitThreshold).
			WithTag("merge_threshold", s.MergeThreshold).
			WithTag("min_side_length", s.MinSideLength).
			WithTag("max_growth", s.MaxGrowth)
	}

	for i, b := range s.Bodies {
		if _, err := models.ParseBodyKind(b.Kind); err != nil {
			return errors.New("scenario body has an unknown kind").
				WithType(ErrTypeInvalidScenario).
				WithTag("body", i).
				Wrap(err)
		}

		if b.Radius < 0 {
			return errors.New("scenario body has a negative radius").
				WithType(ErrTypeInvalidScenario).
				WithTag("body", i).
				WithTag("radius", b.Radius)
		}
	}
	return nil
}

// HasBounds reports whether the scenario sets the initial root region.
func (s Scenario) HasBounds() bool {
	return s.Bounds.Width > 0 || s.Bounds.Height > 0
}

func (s Scenario) Region() quadtree.Region {
	return quadtree.NewRegion(s.Bounds.X, s.Bounds.Y, s.Bounds.Width, s.Bounds.Height)
}

// Options returns the tree options of the scenario on top of defaults.
func (s Scenario) Options(defaults quadtree.Options) quadtree.Options {
	opts := defaults
	if s.SplitThreshold != 0 {
		opts.SplitThreshold = s.SplitThreshold
	}
	if s.MergeThreshold != 0 {
		opts.MergeThreshold = s.MergeThreshold
	}
	if s.MinSideLength != 0 {
		opts.MinSideLength = s.MinSideLength
	}
	if s.MaxGrowth != 0 {
		opts.MaxGrowth = s.MaxGrowth
	}
	return opts
}

// Apply adds the scenario bodies to w.
func (s Scenario) Apply(w *models.World) ([]*models.Body, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	bodies := make([]*models.Body, 0, len(s.Bodies))
	for i, b := range s.Bodies {
		kind, _ := models.ParseBodyKind(b.Kind)

		body, err := w.AddBody(kind,
			quadtree.Vector2{X: b.X, Y: b.Y},
			b.Radius,
			quadtree.Vector2{X: b.VX, Y: b.VY},
		)
		if err != nil {
			return bodies, errors.New("adding scenario body failed").
				WithType(ErrTypeInvalidScenario).
				WithTag("body", i).
				Wrap(err)
		}
		bodies = append(bodies, body)
	}

	logs.WithTag("world", w.UUID).
		WithTag("bodies", len(bodies)).
		Info("scenario applied")
	return bodies, nil
}
