package common

import (
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

// TestContext defines the methods the common steps need from the scenario
// context.
type TestContext interface {
	SetIdentity(userID, tenantID string)
	POST(path string, body interface{}) error
	GET(path string) error
	LastStatusCode() int
	GetResponseField(field string) (interface{}, error)
	ResponseContains(field string) bool
}

// RegisterSteps registers identity, request, and assertion steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I am an authenticated reviewer$`, steps.authenticatedReviewer)
	ctx.Step(`^I am not authenticated$`, steps.notAuthenticated)
	ctx.Step(`^I send a GET to "([^"]*)"$`, steps.sendGET)
	ctx.Step(`^I send a POST to "([^"]*)" with body:$`, steps.sendPOSTWithBody)

	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
	ctx.Step(`^the response error should be "([^"]*)"$`, steps.responseErrorShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) authenticatedReviewer() error {
	s.tc.SetIdentity(uuid.NewString(), uuid.NewString())
	return nil
}

func (s *commonSteps) notAuthenticated() error {
	s.tc.SetIdentity("", "")
	return nil
}

func (s *commonSteps) sendGET(path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) sendPOSTWithBody(path string, body *godog.DocString) error {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(body.Content), &parsed); err != nil {
		return fmt.Errorf("step body is not valid JSON: %w", err)
	}
	return s.tc.POST(path, parsed)
}

func (s *commonSteps) responseStatusShouldBe(expected int) error {
	if s.tc.LastStatusCode() != expected {
		return fmt.Errorf("expected status %d, got %d", expected, s.tc.LastStatusCode())
	}
	return nil
}

func (s *commonSteps) responseShouldContain(field string) error {
	if !s.tc.ResponseContains(field) {
		return fmt.Errorf("response does not contain field %q", field)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldEqual(field, expected string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprintf("%v", value) != expected {
		return fmt.Errorf("expected %q to equal %q, got %v", field, expected, value)
	}
	return nil
}

func (s *commonSteps) responseErrorShouldBe(code string) error {
	return s.responseFieldShouldEqual("error", code)
}
