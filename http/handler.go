package http

import (
	"net/http"
	"runtime"

	"github.com/aukilabs/broadphase/models"
)

func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyStatus is the body of a readiness check.
type ReadyStatus struct {
	Ready  bool          `json:"ready"`
	Worlds []WorldStatus `json:"worlds"`
}

type WorldStatus struct {
	ID    string `json:"id"`
	Frame uint64 `json:"frame"`
}

// HandleReadyCheck reports the service as ready once it serves at least one
// world and every world has been stepped.
func HandleReadyCheck(store *models.WorldStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		worlds := store.List()

		status := ReadyStatus{
			Ready:  len(worlds) != 0,
			Worlds: make([]WorldStatus, 0, len(worlds)),
		}
		for _, world := range worlds {
			frame := world.Frame()
			if frame == 0 {
				status.Ready = false
			}

			status.Worlds = append(status.Worlds, WorldStatus{
				ID:    store.GlobalWorldID(world.ID),
				Frame: frame,
			})
		}

		code := http.StatusOK
		if !status.Ready {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	}
}

type VersionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
}

func HandleVersion(version string) http.HandlerFunc {
	info := VersionInfo{
		Version:   version,
		GoVersion: runtime.Version(),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, info)
	}
}
