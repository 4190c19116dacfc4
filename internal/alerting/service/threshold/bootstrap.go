package threshold

import (
	"fmt"
	"os"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
	"gopkg.in/yaml.v3"
)

// LoadDefaultsFile reads a YAML threshold file and merges it over the
// built-in defaults, so a deployment can ship partial overrides. The
// merged result must still satisfy the ordering invariant.
func LoadDefaultsFile(path string) (model.ThresholdSet, error) {
	base := model.DefaultThresholds()
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read threshold defaults %s: %w", path, err)
	}
	var file model.ThresholdSet
	if err := yaml.Unmarshal(data, &file); err != nil {
		return base, fmt.Errorf("parse threshold defaults %s: %w", path, err)
	}
	merged := model.MergeThresholds(base, file)
	if err := merged.Validate(); err != nil {
		return base, fmt.Errorf("threshold defaults %s: %w", path, err)
	}
	return merged, nil
}
