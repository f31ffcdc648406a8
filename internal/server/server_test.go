package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-app/nexus/internal/agent/ai"
	"github.com/nexus-app/nexus/internal/agent/tools"
	"github.com/nexus-app/nexus/internal/config"
	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/machine"
	"github.com/nexus-app/nexus/internal/realtime"
	"github.com/nexus-app/nexus/internal/remote"
	"github.com/nexus-app/nexus/internal/svc"
	"github.com/nexus-app/nexus/internal/types"
)

type fakeModel struct {
	mu      sync.Mutex
	replies []*ai.StreamResult
}

func (f *fakeModel) Stream(_ context.Context, _ *ai.ChatRequest, onText func(string)) (*ai.StreamResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &ai.StreamResult{Text: "nothing to do", StopReason: ai.StopEndTurn, Started: true}
	if len(f.replies) > 0 {
		r = f.replies[0]
		f.replies = f.replies[1:]
	}
	if r.Text != "" {
		onText(r.Text)
	}
	return r, nil
}

type fakeSSH struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeSSH) Execute(_ context.Context, m machine.Descriptor, command string) remote.Result {
	if err := remote.CheckTarget(m); err != nil {
		return remote.Result{MachineName: m.Name, Command: command, ExitCode: -1, Stderr: err.Error()}
	}
	f.mu.Lock()
	f.calls = append(f.calls, m.Name+":"+command)
	f.mu.Unlock()
	return remote.Result{MachineName: m.Name, Command: command, Stdout: "/dev/sda1 45%\n", Success: true}
}

func (f *fakeSSH) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type testEnv struct {
	svcCtx *svc.ServiceContext
	server *httptest.Server
	ssh    *fakeSSH
	model  *fakeModel
}

func newTestEnv(t *testing.T, model *fakeModel) *testEnv {
	t.Helper()
	logging.Disable()
	t.Cleanup(logging.Enable)

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.Path = filepath.Join(dir, "config.yaml")
	cfg.Machines = []machine.Descriptor{
		{Name: "OMEN", Host: "localhost", Role: machine.RoleCommander, Enabled: true},
		{Name: "Host-A", Host: "host-a.lan", Role: machine.RoleRemote, Enabled: true},
		{Name: "Precision", Host: "precision.lan", Role: machine.RoleRemote, Enabled: false},
	}

	ssh := &fakeSSH{}
	opts := svc.Options{
		Version:  "test",
		Executor: ssh,
		ProbeAll: func(_ context.Context, ms []machine.Descriptor) []remote.Status {
			out := make([]remote.Status, len(ms))
			for i, m := range ms {
				out[i] = remote.Status{Name: m.Name, Role: m.Role, Enabled: m.Enabled, Online: m.IsCommander() || m.Enabled}
			}
			return out
		},
	}
	if model != nil {
		opts.Client = model
	} else {
		t.Setenv("ANTHROPIC_API_KEY", "")
		t.Setenv("NEXUS_KEYRING_DISABLED", "1")
	}

	svcCtx, err := svc.NewServiceContext(cfg, opts)
	require.NoError(t, err)
	t.Cleanup(svcCtx.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	svcCtx.SetLifetime(ctx)
	go svcCtx.Hub.Run(ctx)

	srv := httptest.NewServer(NewRouter(svcCtx, ServerOptions{Quiet: true}))
	t.Cleanup(srv.Close)
	return &testEnv{svcCtx: svcCtx, server: srv, ssh: ssh, model: model}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func diskReply() []*ai.StreamResult {
	input, _ := json.Marshal(tools.RemoteExecInput{MachineName: "Host-A", Command: "df -h"})
	return []*ai.StreamResult{
		{
			ToolCalls:  []ai.ToolCall{{ID: "toolu_1", Name: tools.RemoteExecName, Input: input}},
			StopReason: ai.StopToolUse,
			Usage:      ai.Usage{InputTokens: 100, OutputTokens: 20},
			Started:    true,
		},
		{
			Text:       "Host-A is at **45%** disk usage.",
			StopReason: ai.StopEndTurn,
			Usage:      ai.Usage{InputTokens: 130, OutputTokens: 15},
			Started:    true,
		},
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, &fakeModel{})
	var resp types.HealthResponse
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil, &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.True(t, resp.Ready)
}

func TestSendMessageRunsTools(t *testing.T) {
	env := newTestEnv(t, &fakeModel{replies: diskReply()})

	var resp types.SendMessageResponse
	code := env.do(t, http.MethodPost, "/api/v1/chat/send", types.SendMessageRequest{Text: "check disk space on Host-A"}, &resp)
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, "done", resp.State)
	assert.NotEmpty(t, resp.Answer)
	assert.Contains(t, resp.AnswerHTML, "<strong>45%</strong>")
	require.Len(t, resp.ToolExecutions, 1)
	assert.True(t, resp.ToolExecutions[0].Success)
	assert.Equal(t, int64(230), resp.TokenStats.TotalInput)
	assert.Equal(t, int64(130), resp.TokenStats.LastInput)

	var execs types.ListExecutionsResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/executions?limit=5", nil, &execs))
	require.Len(t, execs.Executions, 1)
	assert.Equal(t, remote.SourceTool, execs.Executions[0].Source)
}

func TestSendMessageWithoutKey(t *testing.T) {
	env := newTestEnv(t, nil)

	var health types.HealthResponse
	env.do(t, http.MethodGet, "/health", nil, &health)
	assert.False(t, health.Ready)

	var errResp map[string]any
	code := env.do(t, http.MethodPost, "/api/v1/chat/send", types.SendMessageRequest{Text: "hi"}, &errResp)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, errResp["message"], "ANTHROPIC_API_KEY")

	code = env.do(t, http.MethodPost, "/api/v1/chat/stream", types.SendMessageRequest{Text: "hi"}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Empty(t, env.svcCtx.Session.History())
}

func TestStatsClearAndReset(t *testing.T) {
	env := newTestEnv(t, &fakeModel{replies: diskReply()})
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/chat/send", types.SendMessageRequest{Text: "disk?"}, nil))

	var stats types.TokenStatsResponse
	env.do(t, http.MethodGet, "/api/v1/stats", nil, &stats)
	assert.Equal(t, int64(1), stats.RequestCount)
	assert.Greater(t, stats.EstimatedCostUSD, 0.0)
	assert.Greater(t, stats.ContextPercent, 0.0)

	var cleared types.ClearHistoryResponse
	env.do(t, http.MethodPost, "/api/v1/chat/clear", nil, &cleared)
	assert.True(t, cleared.Cleared)
	assert.Zero(t, cleared.TokenStats.LastInput)
	assert.Equal(t, int64(230), cleared.TokenStats.TotalInput)
	assert.Empty(t, env.svcCtx.Session.History())

	env.do(t, http.MethodPost, "/api/v1/stats/reset", nil, &stats)
	assert.Zero(t, stats.TotalInput)
	assert.Zero(t, stats.RequestCount)
}

func TestSetModel(t *testing.T) {
	env := newTestEnv(t, &fakeModel{})

	code := env.do(t, http.MethodPut, "/api/v1/model", types.SetModelRequest{Model: "gpt-4"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	var resp types.SetModelResponse
	code = env.do(t, http.MethodPut, "/api/v1/model", types.SetModelRequest{Model: "claude-haiku-4-5-20251001"}, &resp)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "claude-haiku-4-5-20251001", env.svcCtx.Session.Model())

	var models types.GetModelResponse
	env.do(t, http.MethodGet, "/api/v1/model", nil, &models)
	assert.Equal(t, "claude-haiku-4-5-20251001", models.Current)
	assert.NotEmpty(t, models.Models)

	saved, err := config.LoadFrom(env.svcCtx.Config.Path)
	require.NoError(t, err)
	assert.Equal(t, "claude-haiku-4-5-20251001", saved.Model)
}

func TestExecRemoteCommand(t *testing.T) {
	env := newTestEnv(t, &fakeModel{})

	var resp types.ExecResponse
	code := env.do(t, http.MethodPost, "/api/v1/machines/exec", types.ExecRequest{Machine: "Host-A", Command: "df -h"}, &resp)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Stdout, "45%")
	assert.NotEmpty(t, resp.OutputHTML)

	var execs types.ListExecutionsResponse
	env.do(t, http.MethodGet, "/api/v1/executions", nil, &execs)
	require.Len(t, execs.Executions, 1)
	assert.Equal(t, remote.SourceDirect, execs.Executions[0].Source)

	env.do(t, http.MethodPost, "/api/v1/machines/exec", types.ExecRequest{Machine: "Host-A", Command: "uptime"}, nil)
	execs = types.ListExecutionsResponse{}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/executions?limit=1", nil, &execs))
	require.Len(t, execs.Executions, 1)
	assert.Equal(t, "uptime", execs.Executions[0].Command)

	execs = types.ListExecutionsResponse{}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/executions?limit=abc", nil, &execs))
	assert.Len(t, execs.Executions, 2)
}

func TestExecRejectsCommander(t *testing.T) {
	env := newTestEnv(t, &fakeModel{})

	var errResp map[string]any
	code := env.do(t, http.MethodPost, "/api/v1/machines/exec", types.ExecRequest{Machine: "OMEN", Command: "dir"}, &errResp)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, errResp["message"], "not supported for this role")
	assert.Zero(t, env.ssh.count())

	code = env.do(t, http.MethodPost, "/api/v1/machines/exec", types.ExecRequest{Machine: "GHOST", Command: "ls"}, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code = env.do(t, http.MethodPost, "/api/v1/machines/exec", types.ExecRequest{Machine: "Precision", Command: "ls"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Zero(t, env.ssh.count())
}

func TestMachineStatus(t *testing.T) {
	env := newTestEnv(t, &fakeModel{})
	var resp types.MachineStatusResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/machines/status", nil, &resp))
	require.Len(t, resp.Machines, 3)
	assert.True(t, resp.Machines[0].Online)
	assert.Equal(t, machine.RoleCommander, resp.Machines[0].Role)
	assert.False(t, resp.Machines[2].Online)
}

func TestUpdateSSHConfig(t *testing.T) {
	env := newTestEnv(t, &fakeModel{})

	var cfg types.SSHConfigResponse
	env.do(t, http.MethodGet, "/api/v1/ssh-config", nil, &cfg)
	assert.Equal(t, 30, cfg.SSH.CommandTimeoutSeconds)
	require.Len(t, cfg.Machines, 3)

	enabled := true
	host := "10.0.0.7"
	var resp types.UpdateSSHConfigResponse
	code := env.do(t, http.MethodPut, "/api/v1/ssh-config/precision", map[string]any{"host": host, "enabled": enabled}, &resp)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Saved)
	assert.Equal(t, "Precision", resp.Machine.Name)
	assert.Equal(t, host, resp.Machine.Host)

	def := tools.BuildDefinition(env.svcCtx.Machines)
	require.NotNil(t, def)
	assert.Contains(t, string(def.InputSchema), "Precision")

	data, err := os.ReadFile(env.svcCtx.Config.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "10.0.0.7")

	code = env.do(t, http.MethodPut, "/api/v1/ssh-config/ghost", map[string]any{"enabled": true}, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code = env.do(t, http.MethodPut, "/api/v1/ssh-config/SIGMA", map[string]any{}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code = env.do(t, http.MethodPut, "/api/v1/ssh-config/Host-A", map[string]any{"host": "-oProxyCommand=touch /tmp/x"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	m, _ := env.svcCtx.Machines.Get("Host-A")
	assert.Equal(t, "host-a.lan", m.Host)
}

func TestConcurrentSSHConfigUpdatesPersistLatestTable(t *testing.T) {
	env := newTestEnv(t, &fakeModel{})

	var wg sync.WaitGroup
	for _, name := range []string{"Host-A", "Precision"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				body := strings.NewReader(`{"enabled":` + strconv.FormatBool(i%2 == 0) + `}`)
				req, err := http.NewRequest(http.MethodPut, env.server.URL+"/api/v1/ssh-config/"+name, body)
				if !assert.NoError(t, err) {
					return
				}
				req.Header.Set("Content-Type", "application/json")
				resp, err := http.DefaultClient.Do(req)
				if !assert.NoError(t, err) {
					return
				}
				resp.Body.Close()
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	saved, err := config.LoadFrom(env.svcCtx.Config.Path)
	require.NoError(t, err)
	assert.Equal(t, env.svcCtx.Machines.List(), saved.Machines)
}

func TestStreamMessageOverWebSocket(t *testing.T) {
	env := newTestEnv(t, &fakeModel{replies: diskReply()})

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.svcCtx.Hub.ClientCount() == 0 {
		require.True(t, time.Now().Before(deadline), "client never registered")
		time.Sleep(5 * time.Millisecond)
	}

	var started types.StreamMessageResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/chat/stream", types.SendMessageRequest{Text: "check disk space on Host-A"}, &started))
	require.NotEmpty(t, started.RequestID)

	var seen []string
	for {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var msg realtime.Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Data["request_id"] != started.RequestID {
			continue
		}
		seen = append(seen, msg.Type)
		if msg.Type == "stream-end" {
			execs, _ := msg.Data["tool_executions"].([]any)
			assert.Len(t, execs, 1)
			break
		}
	}

	assert.Equal(t, []string{
		"stream-start",
		"tool-executing",
		"tool-completed",
		"stream-tool-continue",
		"stream-delta",
		"stream-end",
	}, seen)
}
