package training

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var validate = validator.New()

// Hyperparameters is the flat configuration consumed once per training run.
// Field names match both the config file keys and the sweep service
// parameter names.
type Hyperparameters struct {
	BatchSize int     `mapstructure:"batch-size" json:"batch-size" validate:"required,gt=0"`
	LearnRate float64 `mapstructure:"learn-rate" json:"learn-rate" validate:"required,gt=0,lt=1"`
	Dropout   float64 `mapstructure:"dropout" json:"dropout" validate:"gte=0,lt=1"`
	L2        float64 `mapstructure:"l2" json:"l2" validate:"gte=0"`
	GradClip  float64 `mapstructure:"grad-clip" json:"grad-clip" validate:"gte=0"`
	Epochs    int     `mapstructure:"epochs" json:"epochs" validate:"required,gt=0"`
}

// Defaults mirrors the baseline spaCy config shipped under configs/.
func Defaults() Hyperparameters {
	return Hyperparameters{
		BatchSize: 128,
		LearnRate: 5e-5,
		Dropout:   0.1,
		L2:        0.01,
		GradClip:  1.0,
		Epochs:    20,
	}
}

// Validate checks the configuration against the allowed ranges.
func (h *Hyperparameters) Validate() error {
	if err := validate.Struct(h); err != nil {
		return fmt.Errorf("invalid hyperparameters: %w", err)
	}
	return nil
}

// Overrides maps the configuration onto spaCy dotted config keys, the form
// the external trainer accepts on its command line.
func (h *Hyperparameters) Overrides() map[string]string {
	return map[string]string{
		"training.batcher.size":         strconv.Itoa(h.BatchSize),
		"training.optimizer.learn_rate": formatFloat(h.LearnRate),
		"training.dropout":              formatFloat(h.Dropout),
		"training.optimizer.L2":         formatFloat(h.L2),
		"training.optimizer.grad_clip":  formatFloat(h.GradClip),
		"training.max_epochs":           strconv.Itoa(h.Epochs),
	}
}

// Map returns the configuration as a generic map for the experiment tracker.
func (h *Hyperparameters) Map() map[string]any {
	return map[string]any{
		"batch-size": h.BatchSize,
		"learn-rate": h.LearnRate,
		"dropout":    h.Dropout,
		"l2":         h.L2,
		"grad-clip":  h.GradClip,
		"epochs":     h.Epochs,
	}
}

// Merge overlays the sweep-suggested params onto base and validates the
// result. Unknown parameter names are an error so a misconfigured sweep
// space fails loudly instead of silently training on defaults.
func Merge(base Hyperparameters, params map[string]any) (Hyperparameters, error) {
	merged := base

	// JSON numbers arrive as float64, so decode weakly.
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &merged,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Hyperparameters{}, err
	}

	if err := decoder.Decode(params); err != nil {
		return Hyperparameters{}, fmt.Errorf("decoding sweep params: %w", err)
	}

	if err := merged.Validate(); err != nil {
		return Hyperparameters{}, err
	}

	return merged, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
