// Package script provides paced input sources for a captured program.
package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"go.yaml.in/yaml/v3"
)

// ErrInvalid reports a malformed script.
var ErrInvalid = errors.New("script: invalid")

// Script is a list of input steps, typically loaded from YAML:
//
//	char_delay: 20ms
//	steps:
//	  - line: ls --color=always
//	  - delay: 1s
//	    text: "q"
type Script struct {
	// CharDelay paces text one character at a time when set.
	CharDelay time.Duration `yaml:"char_delay,omitempty"`
	Steps     []Step        `yaml:"steps"`
}

// Step sends Text, then Line followed by a carriage return, after waiting
// Delay.
type Step struct {
	Delay time.Duration `yaml:"delay,omitempty"`
	Text  string        `yaml:"text,omitempty"`
	Line  string        `yaml:"line,omitempty"`
}

// Payload returns the bytes the step sends.
func (s Step) Payload() []byte {
	out := []byte(s.Text)
	if s.Line != "" {
		out = append(out, s.Line...)
		out = append(out, '\r')
	}
	return out
}

// Parse decodes a YAML script.
func Parse(data []byte) (Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return Script{}, nil
		}
		return Script{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := s.Validate(); err != nil {
		return Script{}, err
	}
	return s, nil
}

// Load reads and parses the script at path.
func Load(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	s, err := Parse(data)
	if err != nil {
		return Script{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks delays.
func (s Script) Validate() error {
	if s.CharDelay < 0 {
		return fmt.Errorf("%w: negative char_delay", ErrInvalid)
	}
	for i, step := range s.Steps {
		if step.Delay < 0 {
			return fmt.Errorf("%w: step %d: negative delay", ErrInvalid, i+1)
		}
	}
	return nil
}

// Reader plays a Script as an io.Reader. Each Read blocks for the pacing
// of the chunk it returns.
type Reader struct {
	ctx    context.Context
	script Script
	next   int
	chunks [][]byte
}

// NewReader returns a reader over s. Pending delays are cut short when ctx
// is done.
func NewReader(ctx context.Context, s Script) *Reader {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Reader{ctx: ctx, script: s}
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(r.chunks) == 0 {
		if r.next >= len(r.script.Steps) {
			return 0, io.EOF
		}
		step := r.script.Steps[r.next]
		r.next++
		if err := r.sleep(step.Delay); err != nil {
			return 0, err
		}
		r.chunks = r.split(step.Payload())
		if len(r.chunks) > 0 {
			// The step delay replaces the first character delay.
			return r.emit(p), nil
		}
	}
	if err := r.sleep(r.script.CharDelay); err != nil {
		return 0, err
	}
	return r.emit(p), nil
}

func (r *Reader) emit(p []byte) int {
	chunk := r.chunks[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		r.chunks[0] = chunk[n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n
}

func (r *Reader) split(payload []byte) [][]byte {
	if len(payload) == 0 {
		return nil
	}
	if r.script.CharDelay <= 0 {
		return [][]byte{payload}
	}
	var out [][]byte
	for len(payload) > 0 {
		_, size := utf8.DecodeRune(payload)
		out = append(out, payload[:size])
		payload = payload[size:]
	}
	return out
}

func (r *Reader) sleep(d time.Duration) error {
	if d <= 0 {
		return r.ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-r.ctx.Done():
		return r.ctx.Err()
	}
}
