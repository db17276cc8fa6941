// Package chat consumes the assistant's event-stream responses.
package chat

import (
	"encoding/json"
	"strings"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

type frame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Parser splits decoded stream text into lines and extracts content deltas.
// It is not safe for concurrent use.
type Parser struct {
	buf strings.Builder
	// held is a data line that failed to parse and was pushed back.
	held string
}

// Feed appends text to the pending buffer and processes every complete line.
// It returns the content deltas in order and whether the [DONE] frame was seen.
// Text after an incomplete final line stays buffered for the next call.
func (p *Parser) Feed(text string) (deltas []string, done bool) {
	p.buf.WriteString(text)
	pending := p.buf.String()
	p.buf.Reset()

	for {
		idx := strings.IndexByte(pending, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimSuffix(pending[:idx], "\r")
		rest := pending[idx+1:]

		if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, dataPrefix) {
			pending = rest
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		if payload == doneSentinel {
			p.held = ""
			pending = rest
			done = true
			break
		}

		var f frame
		if err := json.Unmarshal([]byte(payload), &f); err != nil {
			// A line that still fails after a retry with more input behind it is dropped.
			if p.held == line && strings.IndexByte(rest, '\n') >= 0 {
				p.held = ""
				pending = rest
				continue
			}
			p.held = line
			break
		}

		p.held = ""
		pending = rest
		if len(f.Choices) > 0 && f.Choices[0].Delta.Content != "" {
			deltas = append(deltas, f.Choices[0].Delta.Content)
		}
	}

	p.buf.WriteString(pending)
	return deltas, done
}

// Pending returns the unprocessed buffer.
func (p *Parser) Pending() string {
	return p.buf.String()
}
