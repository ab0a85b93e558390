package gate

import (
	"context"
	"net/http"
	"net/url"

	"github.com/alkitu/gatekeeper/internal/access"
	"github.com/alkitu/gatekeeper/internal/flags"
	"github.com/alkitu/gatekeeper/internal/locale"
	apperrors "github.com/alkitu/gatekeeper/pkg/errors"
)

// FeatureDisabledPath is where requests for disabled features land
const FeatureDisabledPath = "/feature-disabled"

// FlagStage blocks routes whose feature flag is not enabled
type FlagStage struct {
	table   *access.FlagTable
	checker flags.Checker
	locales *locale.Resolver
}

// NewFlagStage creates a feature flag stage
func NewFlagStage(table *access.FlagTable, checker flags.Checker, locales *locale.Resolver) *FlagStage {
	return &FlagStage{table: table, checker: checker, locales: locales}
}

// Name implements Stage
func (s *FlagStage) Name() string {
	return "feature_flag"
}

// Handle implements Stage
func (s *FlagStage) Handle(ctx context.Context, rc *RequestContext) Result {
	rc.ensureLocale(s.locales)

	key, gated := s.table.FlagFor(rc.CleanPath)
	if !gated {
		return Continue()
	}

	if s.checker.Enabled(ctx, key) {
		return Continue()
	}

	q := url.Values{
		"feature":  {key},
		"redirect": {rc.Path},
	}
	location := "/" + rc.Locale + FeatureDisabledPath + "?" + q.Encode()
	return ShortCircuit(Redirect(http.StatusTemporaryRedirect, location, apperrors.ErrFeatureDisabled.Code))
}
