// Package markdown renders assistant answers to HTML for the web client.
package markdown

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/nexus-app/nexus/internal/remote"
)

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM, // tables, strikethrough, autolinks, task lists
		highlighting.NewHighlighting(
			highlighting.WithStyle("monokai"),
			highlighting.WithGuessLanguage(true),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		// raw HTML stays escaped: answers quote command output verbatim
	),
)

// Render converts an answer to HTML with GFM, syntax highlighting and
// external links opened in a new tab. It returns "" on failure so the
// client can fall back to plain text.
func Render(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return ""
	}
	return processExternalLinks(buf.String())
}

// RenderExecution renders a command result as a highlighted shell
// transcript.
func RenderExecution(res remote.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** `%s` (exit %d)\n\n", res.MachineName, inlineCode(res.Command), res.ExitCode)
	out := strings.TrimRight(res.Stdout, "\n")
	if res.Stderr != "" {
		if out != "" {
			out += "\n"
		}
		out += strings.TrimRight(res.Stderr, "\n")
	}
	fence := codeFence(out)
	fmt.Fprintf(&b, "%sconsole\n%s\n%s\n", fence, out, fence)
	return Render(b.String())
}

// codeFence returns a backtick fence longer than any run inside s.
func codeFence(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	if longest < 3 {
		return "```"
	}
	return strings.Repeat("`", longest+1)
}

func inlineCode(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}

var linkRe = regexp.MustCompile(`<a href="(https?://[^"]*)"`)

// processExternalLinks adds target="_blank" rel="noopener noreferrer" to external links.
func processExternalLinks(s string) string {
	return linkRe.ReplaceAllStringFunc(s, func(match string) string {
		return match + ` target="_blank" rel="noopener noreferrer"`
	})
}
