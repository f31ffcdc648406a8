package types

import (
	"github.com/nexus-app/nexus/internal/agent/ai"
	"github.com/nexus-app/nexus/internal/agent/session"
	"github.com/nexus-app/nexus/internal/config"
	"github.com/nexus-app/nexus/internal/db"
	"github.com/nexus-app/nexus/internal/machine"
	"github.com/nexus-app/nexus/internal/remote"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	// Ready is false when no API key is configured.
	Ready bool `json:"ready"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

type SendMessageResponse struct {
	Answer         string             `json:"answer"`
	AnswerHTML     string             `json:"answer_html,omitempty"`
	State          string             `json:"state"`
	TokenStats     session.TokenStats `json:"token_stats"`
	ToolExecutions []remote.Result    `json:"tool_executions"`
}

type StreamMessageResponse struct {
	RequestID string `json:"request_id"`
}

type TokenStatsResponse struct {
	session.TokenStats
	Model            string  `json:"model"`
	ContextWindow    int64   `json:"context_window"`
	ContextPercent   float64 `json:"context_percent"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

type ClearHistoryResponse struct {
	Cleared    bool               `json:"cleared"`
	TokenStats session.TokenStats `json:"token_stats"`
}

type GetModelResponse struct {
	Current string         `json:"current"`
	Models  []ai.ModelInfo `json:"models"`
}

type SetModelRequest struct {
	Model string `json:"model"`
}

type SetModelResponse struct {
	Model ai.ModelInfo `json:"model"`
}

type MachineStatusResponse struct {
	Machines []remote.Status `json:"machines"`
}

type ExecRequest struct {
	Machine string `json:"machine"`
	Command string `json:"command"`
}

type ExecResponse struct {
	remote.Result
	OutputHTML string `json:"output_html,omitempty"`
}

type SSHConfigResponse struct {
	SSH      config.SSHConfig     `json:"ssh"`
	Machines []machine.Descriptor `json:"machines"`
}

type UpdateSSHConfigRequest struct {
	Machine string  `path:"machine" json:"-"`
	Host    *string `json:"host,omitempty"`
	Enabled *bool   `json:"enabled,omitempty"`
}

type UpdateSSHConfigResponse struct {
	Machine machine.Descriptor `json:"machine"`
	Saved   bool               `json:"saved"`
}

type ListExecutionsRequest struct {
	Limit int `json:"limit"`
}

type ListExecutionsResponse struct {
	Executions []db.Execution `json:"executions"`
}
