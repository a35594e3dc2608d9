package featureflag

import (
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	ErrTypeUnknownFlag = "unknown_feature_flag"
)

// FeatureFlag is a lookup map for features that is enabled or disabled
type FeatureFlag map[Flag]struct{}

// New return a new feature flags initialized with list of flags. Flags are
// case insensitive and blank entries are ignored.
func New(flags []string) FeatureFlag {
	featureFlag := make(FeatureFlag)
	for _, f := range flags {
		f = strings.ToUpper(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		featureFlag[Flag(f)] = struct{}{}
	}
	return featureFlag
}

// IsSet reports whether flag is set in the feature flags
func (f FeatureFlag) IsSet(flag Flag) bool {
	_, ok := f[flag]
	return ok
}

// IfSet runs function `do ` if flag is set in the feature flags
func (f FeatureFlag) IfSet(flag Flag, do func()) {
	if !f.IsSet(flag) {
		return
	}
	do()
}

// IfNotSet runs function `do` if flag is not set in the feature flags
func (f FeatureFlag) IfNotSet(flag Flag, do func()) {
	if f.IsSet(flag) {
		return
	}
	do()
}

// Validate returns an error when a set flag is not one of the known flags.
func (f FeatureFlag) Validate() error {
	known := make(map[Flag]struct{}, len(Flags()))
	for _, flag := range Flags() {
		known[flag] = struct{}{}
	}

	for flag := range f {
		if _, ok := known[flag]; !ok {
			return errors.New("unknown feature flag").
				WithType(ErrTypeUnknownFlag).
				WithTag("flag", flag)
		}
	}
	return nil
}
