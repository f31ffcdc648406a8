package ai

import (
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sse(lines ...string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	return b.String()
}

const (
	evMessageStart = `data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-sonnet-4-5-20250929","stop_reason":null,"usage":{"input_tokens":100,"output_tokens":1}}}`
	evTextStart    = `data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`
	evStopEnd      = `data: {"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":20}}`
	evStopTool     = `data: {"type":"message_delta","delta":{"stop_reason":"tool_use","stop_sequence":null},"usage":{"output_tokens":20}}`
)

func textDelta(index int, text string) string {
	b, _ := json.Marshal(text)
	return `data: {"type":"content_block_delta","index":` + itoa(index) + `,"delta":{"type":"text_delta","text":` + string(b) + `}}`
}

func toolStart(index int, id, name string) string {
	return `data: {"type":"content_block_start","index":` + itoa(index) + `,"content_block":{"type":"tool_use","id":"` + id + `","name":"` + name + `","input":{}}}`
}

func jsonDelta(index int, partial string) string {
	b, _ := json.Marshal(partial)
	return `data: {"type":"content_block_delta","index":` + itoa(index) + `,"delta":{"type":"input_json_delta","partial_json":` + string(b) + `}}`
}

func itoa(i int) string {
	b, _ := json.Marshal(i)
	return string(b)
}

func TestParseTextStream(t *testing.T) {
	stream := sse(
		"event: message_start",
		evMessageStart,
		"",
		evTextStart,
		textDelta(0, "Disk usage "),
		textDelta(0, "looks fine."),
		`data: {"type":"content_block_stop","index":0}`,
		evStopEnd,
		`data: {"type":"message_stop"}`,
		"data: [DONE]",
	)

	var live []string
	res, err := ParseStream(strings.NewReader(stream), func(s string) { live = append(live, s) })
	require.NoError(t, err)

	assert.True(t, res.Started)
	assert.Equal(t, "Disk usage looks fine.", res.Text)
	assert.Equal(t, []string{"Disk usage ", "looks fine."}, live)
	assert.Equal(t, StopEndTurn, res.StopReason)
	assert.Equal(t, Usage{InputTokens: 100, OutputTokens: 20}, res.Usage)
	assert.Empty(t, res.ToolCalls)
	require.Len(t, res.Content, 1)
	assert.Equal(t, BlockText, res.Content[0].Kind)
	assert.False(t, res.PendingTools())
}

func TestParseToolUseAssemblesArguments(t *testing.T) {
	stream := sse(
		evMessageStart,
		evTextStart,
		textDelta(0, "Checking."),
		toolStart(1, "toolu_1", "execute_command"),
		jsonDelta(1, `{"machine_na`),
		jsonDelta(1, `me":"SIGMA","comm`),
		jsonDelta(1, `and":"df -h"}`),
		evStopTool,
	)

	res, err := ParseStream(strings.NewReader(stream), nil)
	require.NoError(t, err)

	require.Len(t, res.ToolCalls, 1)
	call := res.ToolCalls[0]
	assert.Equal(t, "toolu_1", call.ID)
	assert.Equal(t, "execute_command", call.Name)
	assert.Equal(t, int64(1), call.Index)
	assert.NoError(t, call.InputErr)
	assert.JSONEq(t, `{"machine_name":"SIGMA","command":"df -h"}`, string(call.Input))
	assert.True(t, res.PendingTools())

	require.Len(t, res.Content, 2)
	assert.Equal(t, BlockText, res.Content[0].Kind)
	assert.Equal(t, BlockToolUse, res.Content[1].Kind)
}

func TestParseKeepsInvocationOrder(t *testing.T) {
	stream := sse(
		evMessageStart,
		toolStart(2, "toolu_c", "execute_command"),
		toolStart(0, "toolu_a", "execute_command"),
		toolStart(1, "toolu_b", "execute_command"),
		jsonDelta(1, `{"command":"b"}`),
		jsonDelta(0, `{"command":"a"}`),
		jsonDelta(2, `{"command":"c"}`),
		evStopTool,
	)

	res, err := ParseStream(strings.NewReader(stream), nil)
	require.NoError(t, err)

	require.Len(t, res.ToolCalls, 3)
	var order []int64
	var ids []string
	for _, c := range res.ToolCalls {
		order = append(order, c.Index)
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []int64{2, 0, 1}, order)
	assert.Equal(t, []string{"toolu_c", "toolu_a", "toolu_b"}, ids)
	assert.JSONEq(t, `{"command":"c"}`, string(res.ToolCalls[0].Input))
}

func TestParseSkipsMalformedLines(t *testing.T) {
	stream := sse(
		evMessageStart,
		evTextStart,
		textDelta(0, "one "),
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"trunc`,
		`data: not json at all`,
		`: keep-alive comment`,
		textDelta(0, "two"),
		evStopEnd,
	)

	res, err := ParseStream(strings.NewReader(stream), nil)
	require.NoError(t, err)
	assert.Equal(t, "one two", res.Text)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, StopEndTurn, res.StopReason)
}

func TestParseToleratesArbitraryFragmentation(t *testing.T) {
	stream := sse(
		evMessageStart,
		evTextStart,
		textDelta(0, "héllo "),
		textDelta(0, "wörld"),
		toolStart(1, "toolu_1", "execute_command"),
		jsonDelta(1, `{"machine_name":"SIGMA",`),
		jsonDelta(1, `"command":"uptime"}`),
		evStopTool,
	)

	whole, err := ParseStream(strings.NewReader(stream), nil)
	require.NoError(t, err)

	for _, size := range []int{1, 2, 3, 7, 64} {
		p := NewStreamParser(nil)
		data := []byte(stream)
		for len(data) > 0 {
			n := size
			if n > len(data) {
				n = len(data)
			}
			p.Write(data[:n])
			data = data[n:]
		}
		res := p.Finish()
		assert.Equal(t, whole.Text, res.Text, "chunk size %d", size)
		assert.Equal(t, whole.Usage, res.Usage, "chunk size %d", size)
		require.Len(t, res.ToolCalls, 1, "chunk size %d", size)
		assert.JSONEq(t, string(whole.ToolCalls[0].Input), string(res.ToolCalls[0].Input))
	}
}

// oneByteReader returns at most one byte per Read, like a slow network.
type oneByteReader struct{ r io.Reader }

func (o oneByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return o.r.Read(p[:1])
}

func TestParseStreamOneByteReads(t *testing.T) {
	stream := sse(evMessageStart, evTextStart, textDelta(0, "ok"), evStopEnd)
	res, err := ParseStream(oneByteReader{strings.NewReader(stream)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
}

func TestParseCRLFAndUnterminatedLastLine(t *testing.T) {
	stream := evMessageStart + "\r\n" + evTextStart + "\r\n" + textDelta(0, "done") + "\r\n" + evStopEnd
	res, err := ParseStream(strings.NewReader(stream), nil)
	require.NoError(t, err)
	assert.Equal(t, "done", res.Text)
	assert.Equal(t, StopEndTurn, res.StopReason)
}

func TestParseEmptyArgumentsBecomeEmptyObject(t *testing.T) {
	stream := sse(evMessageStart, toolStart(0, "toolu_1", "execute_command"), evStopTool)
	res, err := ParseStream(strings.NewReader(stream), nil)
	require.NoError(t, err)
	require.Len(t, res.ToolCalls, 1)
	assert.Equal(t, "{}", string(res.ToolCalls[0].Input))
	assert.NoError(t, res.ToolCalls[0].InputErr)
}

func TestParseFlagsMalformedArguments(t *testing.T) {
	stream := sse(
		evMessageStart,
		toolStart(0, "toolu_1", "execute_command"),
		jsonDelta(0, `{"machine_name":"SIG`),
		evStopTool,
	)
	res, err := ParseStream(strings.NewReader(stream), nil)
	require.NoError(t, err)
	require.Len(t, res.ToolCalls, 1)
	assert.Error(t, res.ToolCalls[0].InputErr)
	assert.Equal(t, `{"machine_name":"SIG`, string(res.ToolCalls[0].Input))
}

func TestParseErrorEvent(t *testing.T) {
	stream := sse(
		evMessageStart,
		evTextStart,
		textDelta(0, "partial"),
		`data: {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
	)
	res, err := ParseStream(strings.NewReader(stream), nil)
	require.Error(t, err)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindOverloaded, pe.Kind)
	assert.Equal(t, "Overloaded", pe.Message)
	assert.Equal(t, "partial", res.Text)
}

func TestParseIgnoresThinkingBlocks(t *testing.T) {
	stream := sse(
		evMessageStart,
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"thinking","thinking":"","signature":""}}`,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"hmm"}}`,
		`data: {"type":"content_block_start","index":1,"content_block":{"type":"text","text":""}}`,
		textDelta(1, "answer"),
		evStopEnd,
	)
	res, err := ParseStream(strings.NewReader(stream), nil)
	require.NoError(t, err)
	assert.Equal(t, "answer", res.Text)
	require.Len(t, res.Content, 1)
}

type failingReader struct{ sent bool }

func (f *failingReader) Read(p []byte) (int, error) {
	if !f.sent {
		f.sent = true
		return copy(p, evMessageStart+"\n"), nil
	}
	return 0, io.ErrUnexpectedEOF
}

func TestParseStreamReadFailure(t *testing.T) {
	_, err := ParseStream(&failingReader{}, nil)
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindTransport, pe.Kind)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
