package connector

import (
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext defines the methods the connector credential steps need from
// the scenario context.
type TestContext interface {
	POST(path string, body interface{}) error
	GetResponseField(field string) (interface{}, error)
	Save(key, value string)
	SavedValue(key string) (string, error)
}

// RegisterSteps registers connector credential steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &connectorSteps{tc: tc}

	ctx.Step(`^I request a connector credential for subject "([^"]*)" with roles "([^"]*)"$`, steps.requestCredential)
	ctx.Step(`^I validate the credential for path "([^"]*)"$`, steps.validateCredential)
}

type connectorSteps struct {
	tc TestContext
}

func (s *connectorSteps) requestCredential(subject, roles string) error {
	if err := s.tc.POST("/connector/credentials", map[string]interface{}{
		"subject": subject,
		"tenant":  "tenant-e2e",
		"roles":   strings.Split(roles, ","),
	}); err != nil {
		return err
	}

	credential, err := s.tc.GetResponseField("credential")
	if err != nil {
		return fmt.Errorf("issue did not return a credential: %w", err)
	}
	s.tc.Save("connector_credential", fmt.Sprintf("%v", credential))
	return nil
}

func (s *connectorSteps) validateCredential(path string) error {
	credential, err := s.tc.SavedValue("connector_credential")
	if err != nil {
		return err
	}
	return s.tc.POST("/connector/credentials/validate", map[string]interface{}{
		"credential":     credential,
		"requested_path": path,
	})
}
