// Package featureflag turns off parts of the service from configuration.
package featureflag

import (
	"sort"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/logs"
)

// FeatureFlag is a lookup map of the features disabled on a server.
type FeatureFlag map[Flag]struct{}

// New returns the feature flags named in flags. Names are trimmed and empty
// ones are skipped. Unknown flags are kept and reported with a warning.
func New(flags []string) FeatureFlag {
	featureFlag := make(FeatureFlag, len(flags))
	for _, name := range flags {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		f := Flag(name)
		if !IsKnown(f) {
			logs.WithTag("flag", name).Warn("unknown feature flag")
		}
		featureFlag[f] = struct{}{}
	}
	return featureFlag
}

// IfSet runs do when flag is set.
func (f FeatureFlag) IfSet(flag Flag, do func()) {
	if _, ok := f[flag]; !ok {
		return
	}
	do()
}

// IfNotSet runs do when flag is not set.
func (f FeatureFlag) IfNotSet(flag Flag, do func()) {
	if _, ok := f[flag]; ok {
		return
	}
	do()
}

// List returns the set flags in lexical order.
func (f FeatureFlag) List() []Flag {
	flags := make([]Flag, 0, len(f))
	for flag := range f {
		flags = append(flags, flag)
	}

	sort.Slice(flags, func(i, j int) bool {
		return flags[i] < flags[j]
	})
	return flags
}
