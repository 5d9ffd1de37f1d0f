package remote

import (
	"encoding/json"

	"github.com/onboardhr/onboarding/internal/onboarding/model"
	"github.com/onboardhr/onboarding/internal/onboarding/stepdata"
)

// ParseStepData decodes the data field of a backend step. It accepts a raw JSON
// value, a JSON string containing JSON, or a legacy key=value string. When the
// data cannot be decoded the raw string is returned with a warning.
func ParseStepData(stepID model.StepID, raw json.RawMessage) (any, *model.DataParseWarning) {
	value, err := stepdata.Decode(raw)
	if err != nil {
		text, _ := value.(string)
		return text, &model.DataParseWarning{StepID: stepID, Raw: text, Err: err}
	}
	return value, nil
}
