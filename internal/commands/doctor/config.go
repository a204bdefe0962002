package doctor

import (
	"context"
	"errors"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/msgscope/internal/core/config"
)

// ConfigCheck runs deep validation on the loaded configuration.
type ConfigCheck struct {
	config     *config.Config
	configPath string
}

// NewConfigCheck creates a new configuration check.
func NewConfigCheck(cfg *config.Config, configPath string) *ConfigCheck {
	return &ConfigCheck{config: cfg, configPath: configPath}
}

func (c *ConfigCheck) Name() string {
	return "Configuration"
}

func (c *ConfigCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	if c.config == nil {
		result.Items = append(result.Items, Fail("Config loaded", "configuration not loaded"))
		return result
	}

	result.Items = append(result.Items, validationItems(c.config.ValidateDeep(c.configPath))...)

	for _, w := range c.config.Warnings() {
		label := w.Category
		if w.Item != "" {
			label += " (" + w.Item + ")"
		}
		result.Items = append(result.Items, Warn(label, w.Message))
	}

	if len(result.Items) == 0 {
		result.Items = append(result.Items, Pass("Config valid", c.config.API.BaseURL))
	}

	return result
}

// validationItems turns a validation error into one failed item per field.
func validationItems(err error) []Item {
	if err == nil {
		return nil
	}

	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return []Item{Fail("validation", err.Error())}
	}

	items := make([]Item, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		label := fe.Field
		if label == "" {
			label = "validation"
		}
		items = append(items, Fail(label, fe.Err.Error()))
	}
	return items
}
