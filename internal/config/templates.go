package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultTemplates returns the built-in template codes.
func DefaultTemplates() TemplateConfig {
	return TemplateConfig{
		Payment:           "PIXAUTO_PAGAMENTO",
		Change:            "PIXAUTO_ALTERACAO",
		Charge:            "PIXAUTO_COBRANCA",
		SchedulingFailure: "PIXAUTO_FALHA_AGENDAMENTO",
		AdhesionIncentive: "PIXAUTO_INCENTIVO_ADESAO",
	}
}

// loadTemplatesFile overlays the template codes found in a YAML file on base.
// Keys missing from the file keep their base value.
func loadTemplatesFile(path string, base TemplateConfig) (TemplateConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("TEMPLATES_FILE: read %s: %w", path, err)
	}

	var fromFile TemplateConfig
	if err := yaml.Unmarshal(raw, &fromFile); err != nil {
		return base, fmt.Errorf("TEMPLATES_FILE: parse %s: %w", path, err)
	}

	out := base
	if fromFile.Payment != "" {
		out.Payment = fromFile.Payment
	}
	if fromFile.Change != "" {
		out.Change = fromFile.Change
	}
	if fromFile.Charge != "" {
		out.Charge = fromFile.Charge
	}
	if fromFile.SchedulingFailure != "" {
		out.SchedulingFailure = fromFile.SchedulingFailure
	}
	if fromFile.AdhesionIncentive != "" {
		out.AdhesionIncentive = fromFile.AdhesionIncentive
	}
	return out, nil
}
