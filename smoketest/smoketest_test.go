package smoketest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aukilabs/broadphase/quadtree"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	report := Run()
	require.True(t, report.OK, "%+v", report.Results)
	require.Len(t, report.Results, len(checks))

	for _, res := range report.Results {
		t.Run(res.Name, func(t *testing.T) {
			require.True(t, res.OK, res.Error)
			require.Empty(t, res.Error)
		})
	}
}

func TestRunCheck(t *testing.T) {
	t.Run("failing check", func(t *testing.T) {
		res := runCheck(check{
			name: "failing",
			run: func() (*quadtree.Quadtree, error) {
				return nil, errors.New("boom")
			},
		})
		require.False(t, res.OK)
		require.Contains(t, res.Error, "boom")
	})

	t.Run("panicking check", func(t *testing.T) {
		res := runCheck(check{
			name: "panicking",
			run: func() (*quadtree.Quadtree, error) {
				panic("boom")
			},
		})
		require.False(t, res.OK)
		require.Contains(t, res.Error, "boom")
	})
}

func TestHandleSmokeTest(t *testing.T) {
	w := httptest.NewRecorder()
	HandleSmokeTest(w, httptest.NewRequest(http.MethodGet, "/smoke-test", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var report Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.True(t, report.OK)
	require.Len(t, report.Results, len(checks))
}
