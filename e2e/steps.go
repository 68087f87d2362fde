package e2e

import (
	"github.com/cucumber/godog"

	"sealproof/e2e/steps/common"
	"sealproof/e2e/steps/connector"
	"sealproof/e2e/steps/imagetoken"
)

// RegisterSteps registers all step definitions from modular packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Common steps: identity, generic requests, response assertions.
	common.RegisterSteps(ctx, tc)

	// Image token lifecycle steps.
	imagetoken.RegisterSteps(ctx, tc)

	// Connector credential steps.
	connector.RegisterSteps(ctx, tc)
}
