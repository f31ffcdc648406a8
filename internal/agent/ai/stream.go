package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/nexus-app/nexus/internal/logging"
)

// blockState accumulates one content block while it streams.
type blockState struct {
	index int64
	kind  BlockKind
	text  strings.Builder
	id    string
	name  string
	args  strings.Builder
}

// StreamParser reduces server-sent message events to a StreamResult. Feed
// it raw network chunks with Write in arrival order; lines may span chunks.
// A StreamParser is used for one call only and is not safe for concurrent
// use.
type StreamParser struct {
	buf    []byte
	onText func(string)

	text    strings.Builder
	blocks  []*blockState
	byIndex map[int64]*blockState

	stopReason string
	usage      Usage
	started    bool
	skipped    int
	err        error
}

// NewStreamParser returns a parser that forwards text deltas to onText,
// which may be nil.
func NewStreamParser(onText func(string)) *StreamParser {
	return &StreamParser{
		onText:  onText,
		byIndex: make(map[int64]*blockState),
	}
}

// Write consumes a chunk of the stream. Complete lines are processed
// immediately; a trailing partial line is kept until its newline arrives.
func (p *StreamParser) Write(chunk []byte) (int, error) {
	p.buf = append(p.buf, chunk...)
	for {
		i := bytes.IndexByte(p.buf, '\n')
		if i < 0 {
			break
		}
		p.processLine(p.buf[:i])
		p.buf = p.buf[i+1:]
	}
	// Reclaim the consumed prefix.
	if len(p.buf) == 0 {
		p.buf = nil
	}
	return len(chunk), nil
}

// Err returns the first error event carried by the stream, if any.
func (p *StreamParser) Err() error {
	return p.err
}

// Finish processes any unterminated final line and returns the result.
// Tool calls are returned in the order their blocks were opened.
func (p *StreamParser) Finish() *StreamResult {
	if len(p.buf) > 0 {
		p.processLine(p.buf)
		p.buf = nil
	}

	res := &StreamResult{
		Text:       p.text.String(),
		StopReason: p.stopReason,
		Usage:      p.usage,
		Started:    p.started,
		Skipped:    p.skipped,
	}
	for _, b := range p.blocks {
		switch b.kind {
		case BlockText:
			res.Content = append(res.Content, ContentBlock{Kind: BlockText, Text: b.text.String()})
		case BlockToolUse:
			call := finalizeCall(b)
			res.ToolCalls = append(res.ToolCalls, call)
			res.Content = append(res.Content, ContentBlock{Kind: BlockToolUse, ToolUse: &call})
		}
	}
	return res
}

// finalizeCall parses the accumulated argument text. An empty buffer means
// no arguments; malformed JSON is kept and flagged rather than replaced.
func finalizeCall(b *blockState) ToolCall {
	call := ToolCall{ID: b.id, Name: b.name, Index: b.index}
	raw := strings.TrimSpace(b.args.String())
	if raw == "" {
		call.Input = json.RawMessage("{}")
		return call
	}
	call.Input = json.RawMessage(raw)
	var obj map[string]any
	if err := json.Unmarshal(call.Input, &obj); err != nil {
		call.InputErr = fmt.Errorf("malformed tool arguments: %w", err)
	}
	return call
}

func (p *StreamParser) processLine(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if !bytes.HasPrefix(line, []byte("data:")) {
		// event:, id:, comments and blank separators carry nothing we need
		return
	}
	payload := bytes.TrimSpace(line[len("data:"):])
	if len(payload) == 0 || bytes.Equal(payload, []byte("[DONE]")) {
		return
	}

	var event anthropic.MessageStreamEventUnion
	if err := json.Unmarshal(payload, &event); err != nil {
		p.skipped++
		logging.Debugf("[Stream] skipping malformed event: %v", err)
		return
	}

	switch event.Type {
	case "message_start":
		p.started = true
		p.usage.InputTokens += event.AsMessageStart().Message.Usage.InputTokens

	case "content_block_start":
		p.startBlock(event.AsContentBlockStart())

	case "content_block_delta":
		delta := event.AsContentBlockDelta()
		switch d := delta.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			p.appendText(delta.Index, d.Text)
		case anthropic.InputJSONDelta:
			if b, ok := p.byIndex[delta.Index]; ok && b.kind == BlockToolUse {
				b.args.WriteString(d.PartialJSON)
			}
		}

	case "message_delta":
		md := event.AsMessageDelta()
		if md.Delta.StopReason != "" {
			p.stopReason = string(md.Delta.StopReason)
		}
		p.usage.OutputTokens += md.Usage.OutputTokens

	case "error":
		if p.err == nil {
			p.err = parseStreamError(payload)
		}
	}
}

func (p *StreamParser) startBlock(cb anthropic.ContentBlockStartEvent) {
	if _, dup := p.byIndex[cb.Index]; dup {
		logging.Debugf("[Stream] duplicate content_block_start for index %d", cb.Index)
		return
	}
	var b *blockState
	switch block := cb.ContentBlock.AsAny().(type) {
	case anthropic.ToolUseBlock:
		b = &blockState{index: cb.Index, kind: BlockToolUse, id: block.ID, name: block.Name}
	case anthropic.TextBlock:
		b = &blockState{index: cb.Index, kind: BlockText}
		if block.Text != "" {
			p.blocks = append(p.blocks, b)
			p.byIndex[cb.Index] = b
			p.appendText(cb.Index, block.Text)
			return
		}
	default:
		// thinking and server-side blocks are not part of the answer
		return
	}
	p.blocks = append(p.blocks, b)
	p.byIndex[cb.Index] = b
}

func (p *StreamParser) appendText(index int64, text string) {
	if text == "" {
		return
	}
	b, ok := p.byIndex[index]
	if !ok {
		b = &blockState{index: index, kind: BlockText}
		p.blocks = append(p.blocks, b)
		p.byIndex[index] = b
	}
	if b.kind != BlockText {
		return
	}
	b.text.WriteString(text)
	p.text.WriteString(text)
	if p.onText != nil {
		p.onText(text)
	}
}

func parseStreamError(payload []byte) error {
	var body struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || body.Error.Message == "" {
		return &ProviderError{Kind: KindOther, Message: "stream error: " + string(payload)}
	}
	return &ProviderError{
		Kind:    classifyErrorType(body.Error.Type),
		Type:    body.Error.Type,
		Message: body.Error.Message,
	}
}

// ParseStream reads r to the end in raw chunks, feeding a StreamParser.
// A read failure or an error event is returned together with whatever was
// parsed up to that point.
func ParseStream(r io.Reader, onText func(string)) (*StreamResult, error) {
	p := NewStreamParser(onText)
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			p.Write(chunk[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return p.Finish(), &ProviderError{Kind: KindTransport, Message: "read stream: " + err.Error(), cause: err}
		}
	}
	res := p.Finish()
	return res, p.Err()
}
