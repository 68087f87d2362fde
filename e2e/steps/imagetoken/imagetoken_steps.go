package imagetoken

import (
	"fmt"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

// TestContext defines the methods the image token steps need from the
// scenario context.
type TestContext interface {
	POST(path string, body interface{}) error
	GetResponseField(field string) (interface{}, error)
	Save(key, value string)
	SavedValue(key string) (string, error)
}

// RegisterSteps registers image token lifecycle steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &imageTokenSteps{tc: tc}

	ctx.Step(`^I mint an image token for side "([^"]*)"$`, steps.mintToken)
	ctx.Step(`^I consume the minted image token$`, steps.consumeToken)
}

type imageTokenSteps struct {
	tc TestContext
}

func (s *imageTokenSteps) mintToken(side string) error {
	if err := s.tc.POST("/images/tokens", map[string]interface{}{
		"check_item_id": uuid.NewString(),
		"side":          side,
	}); err != nil {
		return err
	}

	token, err := s.tc.GetResponseField("token")
	if err != nil {
		return fmt.Errorf("mint did not return a token: %w", err)
	}
	s.tc.Save("image_token", fmt.Sprintf("%v", token))
	return nil
}

func (s *imageTokenSteps) consumeToken() error {
	token, err := s.tc.SavedValue("image_token")
	if err != nil {
		return err
	}
	return s.tc.POST("/images/tokens/consume", map[string]interface{}{
		"token": token,
	})
}
