// Package smoketest runs quadtree self checks on fresh trees, so a deployed
// server can prove its index behaves before taking traffic.
package smoketest

import (
	"net/http"
	"sort"
	"time"

	"github.com/aukilabs/broadphase/quadtree"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
)

// Result is the outcome of one check.
type Result struct {
	Name     string             `json:"name"`
	OK       bool               `json:"ok"`
	Error    string             `json:"error,omitempty"`
	Duration time.Duration      `json:"duration"`
	Tree     quadtree.DebugInfo `json:"tree"`
}

// Report gathers the results of a run.
type Report struct {
	OK       bool          `json:"ok"`
	Duration time.Duration `json:"duration"`
	Results  []Result      `json:"results"`
}

type check struct {
	name string
	run  func() (*quadtree.Quadtree, error)
}

var checks = []check{
	{name: "collision_scenario", run: collisionScenario},
	{name: "grow_remove_merge", run: growRemoveMerge},
	{name: "update_reposition", run: updateReposition},
}

// Run runs every check.
func Run() Report {
	start := time.Now()
	report := Report{OK: true}

	for _, c := range checks {
		res := runCheck(c)
		if !res.OK {
			report.OK = false
		}
		report.Results = append(report.Results, res)
	}

	report.Duration = time.Since(start)
	return report
}

func runCheck(c check) (res Result) {
	res.Name = c.name
	start := time.Now()

	defer func() {
		res.Duration = time.Since(start)

		if r := recover(); r != nil {
			res.OK = false
			res.Error = errors.Newf("check panicked: %v", r).Error()
		}
	}()

	tree, err := c.run()
	if tree != nil {
		res.Tree = tree.DebugInfo()
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.OK = true
	return res
}

// HandleSmokeTest runs the checks and writes the report as JSON.
func HandleSmokeTest(w http.ResponseWriter, r *http.Request) {
	report := Run()

	status := http.StatusOK
	if !report.OK {
		status = http.StatusInternalServerError
		logs.WithTag("results", report.Results).
			Warn("smoke test failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(report); err != nil {
		logs.Warn(errors.New("writing smoke test report failed").Wrap(err))
	}
}

// collisionScenario indexes four points with a split threshold of 3 and
// checks that circle queries return 1, 2, 2 and 4 of them.
func collisionScenario() (*quadtree.Quadtree, error) {
	tree := quadtree.New(quadtree.NewRegion(0, 0, 10, 10), 3, 1, 1)

	positions := []quadtree.Vector2{{X: 0, Y: 0}, {X: 0, Y: 5}, {X: 2.5, Y: 5}, {X: 5, Y: 10}}
	for i, p := range positions {
		if err := tree.Insert(&quadtree.Entry{Handle: quadtree.Handle(i), Position: p}); err != nil {
			return tree, err
		}
	}

	queries := []struct {
		center   quadtree.Vector2
		radius   float32
		expected int
	}{
		{center: quadtree.Vector2{X: 0, Y: 0}, radius: 1, expected: 1},
		{center: quadtree.Vector2{X: 0, Y: 2.5}, radius: 2.5, expected: 2},
		{center: quadtree.Vector2{X: 2.5, Y: 5}, radius: 5, expected: 2},
		{center: quadtree.Vector2{X: 2.5, Y: 5}, radius: 10, expected: 4},
	}

	for _, q := range queries {
		if n := len(tree.Query(q.center, q.radius)); n != q.expected {
			return tree, errors.New("unexpected query result count").
				WithTag("center", q.center).
				WithTag("radius", q.radius).
				WithTag("expected", q.expected).
				WithTag("count", n)
		}
	}
	return tree, nil
}

// growRemoveMerge fills a tree until it splits, grows it with a far entry,
// then removes everything and expects a single empty leaf back.
func growRemoveMerge() (*quadtree.Quadtree, error) {
	tree := quadtree.New(quadtree.NewRegion(0, 0, 10, 10), 4, 2, 1)

	var handle quadtree.Handle
	for x := float32(0.5); x < 10; x += 2 {
		for y := float32(0.5); y < 10; y += 2 {
			handle++
			if err := tree.Insert(&quadtree.Entry{Handle: handle, Position: quadtree.Vector2{X: x, Y: y}, Radius: 0.5}); err != nil {
				return tree, err
			}
		}
	}

	far := quadtree.Vector2{X: 100, Y: -60}
	handle++
	if err := tree.Insert(&quadtree.Entry{Handle: handle, Position: far, Radius: 1}); err != nil {
		return tree, err
	}

	info := tree.DebugInfo()
	if info.Splits == 0 || info.Growths == 0 || !tree.Bounds().Contains(far) {
		return tree, errors.New("tree did not split and grow").
			WithTag("splits", info.Splits).
			WithTag("growths", info.Growths).
			WithTag("bounds", tree.Bounds())
	}

	if found := tree.Query(far, 0); len(found) != 1 || found[0] != handle {
		return tree, errors.New("far entry not found after growth").
			WithTag("found", found)
	}

	for h := quadtree.Handle(1); h <= handle; h++ {
		if !tree.Remove(h) {
			return tree, errors.New("entry not removed").WithTag("handle", h)
		}
	}

	info = tree.DebugInfo()
	if tree.Len() != 0 || info.NodeCount != 1 || info.Merges == 0 {
		return tree, errors.New("tree did not merge back to a single leaf").
			WithTag("len", tree.Len()).
			WithTag("node_count", info.NodeCount).
			WithTag("merges", info.Merges)
	}
	return tree, nil
}

// updateReposition moves entries across quadrants and checks that queries
// see them at their new positions after an update.
func updateReposition() (*quadtree.Quadtree, error) {
	tree := quadtree.New(quadtree.NewRegion(0, 0, 16, 16), 2, 1, 1)

	entries := []*quadtree.Entry{
		{Handle: 1, Position: quadtree.Vector2{X: 2, Y: 2}, Radius: 1},
		{Handle: 2, Position: quadtree.Vector2{X: 14, Y: 2}, Radius: 1},
		{Handle: 3, Position: quadtree.Vector2{X: 2, Y: 14}, Radius: 1},
		{Handle: 4, Position: quadtree.Vector2{X: 14, Y: 14}, Radius: 1},
	}
	for _, e := range entries {
		if err := tree.Insert(e); err != nil {
			return tree, err
		}
	}

	// Rotate every entry to the next corner.
	first := entries[0].Position
	for i := 0; i < len(entries)-1; i++ {
		entries[i].Position = entries[i+1].Position
	}
	entries[len(entries)-1].Position = first
	tree.Update()

	for _, e := range entries {
		found := tree.Query(e.Position, 0)
		sort.Slice(found, func(i, j int) bool { return found[i] < found[j] })

		if len(found) != 1 || found[0] != e.Handle {
			return tree, errors.New("entry not found at its new position").
				WithTag("handle", e.Handle).
				WithTag("position", e.Position).
				WithTag("found", found)
		}
	}
	return tree, nil
}
