package insightvm

import "go.uber.org/fx"

// Module provides the InsightVM client for fx injection.
var Module = fx.Module("insightvm",
	fx.Provide(NewClient),
)
