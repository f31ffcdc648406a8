package ai

import (
	"errors"
	"fmt"
)

// ErrUnsupportedModel is returned for model ids outside the allow-list.
var ErrUnsupportedModel = errors.New("unsupported model")

// ModelInfo describes one selectable model.
type ModelInfo struct {
	ID            string  `json:"id"`
	DisplayName   string  `json:"display_name"`
	ContextWindow int64   `json:"context_window"`
	InputPerMTok  float64 `json:"input_per_mtok"`
	OutputPerMTok float64 `json:"output_per_mtok"`
}

var models = []ModelInfo{
	{ID: "claude-sonnet-4-5-20250929", DisplayName: "Claude Sonnet 4.5", ContextWindow: 200_000, InputPerMTok: 3, OutputPerMTok: 15},
	{ID: "claude-opus-4-1-20250805", DisplayName: "Claude Opus 4.1", ContextWindow: 200_000, InputPerMTok: 15, OutputPerMTok: 75},
	{ID: "claude-haiku-4-5-20251001", DisplayName: "Claude Haiku 4.5", ContextWindow: 200_000, InputPerMTok: 1, OutputPerMTok: 5},
	{ID: "claude-sonnet-4-20250514", DisplayName: "Claude Sonnet 4", ContextWindow: 200_000, InputPerMTok: 3, OutputPerMTok: 15},
}

// Models returns the allow-list of supported models.
func Models() []ModelInfo {
	out := make([]ModelInfo, len(models))
	copy(out, models)
	return out
}

// LookupModel returns the catalog entry for id.
func LookupModel(id string) (ModelInfo, error) {
	for _, m := range models {
		if m.ID == id {
			return m, nil
		}
	}
	return ModelInfo{}, fmt.Errorf("%w: %q", ErrUnsupportedModel, id)
}

// EstimateCost returns the USD cost of the given token counts.
func (m ModelInfo) EstimateCost(input, output int64) float64 {
	return float64(input)/1e6*m.InputPerMTok + float64(output)/1e6*m.OutputPerMTok
}

// ContextPercent returns how full the context window is after a call that
// consumed lastInput tokens.
func (m ModelInfo) ContextPercent(lastInput int64) float64 {
	if m.ContextWindow <= 0 {
		return 0
	}
	return float64(lastInput) / float64(m.ContextWindow) * 100
}
