package driver

import (
	"encoding/json"
	"fmt"

	"bindforge/internal/diag"
	"bindforge/internal/observ"
)

type timingPayload struct {
	Kind    string               `json:"kind"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.SpanReport `json:"phases"`
}

// appendTimingDiagnostic records the stage timings as an info diagnostic
// whose note is the JSON report.
func appendTimingDiagnostic(bag *diag.Bag, report observ.Report) {
	if bag == nil {
		return
	}
	payload := timingPayload{Kind: "pipeline", TotalMS: report.TotalMS, Phases: report.Phases}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	bag.Add(diag.New(diag.SevInfo, diag.DrvInfo, diag.Location{},
		fmt.Sprintf("timings (%s): total %.2f ms", payload.Kind, payload.TotalMS)).
		WithNote(diag.Location{}, string(data)))
}
