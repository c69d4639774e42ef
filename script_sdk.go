package termsnap

import (
	"context"
	"io"

	"pkt.systems/termsnap/internal/script"
)

// Script is a paced sequence of input steps.
type Script = script.Script

// ScriptStep is one step of a Script.
type ScriptStep = script.Step

// ParseScript decodes a YAML input script.
func ParseScript(data []byte) (Script, error) {
	return script.Parse(data)
}

// OpenScript loads the YAML script at path and returns a reader that plays
// it with its delays. The reader stops early when ctx is done.
func OpenScript(ctx context.Context, path string) (io.Reader, error) {
	s, err := script.Load(path)
	if err != nil {
		return nil, err
	}
	return script.NewReader(ctx, s), nil
}
