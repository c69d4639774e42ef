package emu

import (
	"strconv"
	"strings"
)

const (
	stateGround = iota
	stateEscape
	stateCSI
	stateOSC
	stateString
	stateCharset
)

// maxParam bounds numeric parameters so hostile input cannot overflow.
const maxParam = 1 << 16

type parserState struct {
	state int

	prefix       byte
	intermediate bool
	params       []int
	sub          []bool
	paramSeen    bool
	current      int
	hasParam     bool
	nextIsSub    bool

	oscBuf []byte
	oscEsc bool

	utf8Buf       []byte
	charsetTarget int
}

// csiParams is a finalized parameter list. sub[i] is true when params[i] was
// introduced by ':' and therefore belongs to the preceding parameter.
type csiParams struct {
	values []int
	sub    []bool
}

func (p *parserState) resetCSI() {
	p.prefix = 0
	p.intermediate = false
	p.params = p.params[:0]
	p.sub = p.sub[:0]
	p.paramSeen = false
	p.current = 0
	p.hasParam = false
	p.nextIsSub = false
}

func (p *parserState) addDigit(d int) {
	p.paramSeen = true
	if !p.hasParam {
		p.current = 0
		p.hasParam = true
	}
	if p.current < maxParam {
		p.current = p.current*10 + d
	}
	if p.current > maxParam {
		p.current = maxParam
	}
}

func (p *parserState) nextParam(colon bool) {
	p.paramSeen = true
	if p.hasParam {
		p.params = append(p.params, p.current)
	} else {
		p.params = append(p.params, -1)
	}
	p.sub = append(p.sub, p.nextIsSub)
	p.nextIsSub = colon
	p.hasParam = false
	p.current = 0
}

func (p *parserState) finalizeParams() csiParams {
	if p.hasParam || p.nextIsSub {
		p.nextParam(false)
	} else if len(p.params) == 0 {
		p.params = append(p.params, -1)
		p.sub = append(p.sub, false)
	} else if p.paramSeen {
		// Trailing separator: "1;" carries an empty final parameter.
		p.params = append(p.params, -1)
		p.sub = append(p.sub, false)
	}
	out := csiParams{
		values: make([]int, len(p.params)),
		sub:    make([]bool, len(p.sub)),
	}
	copy(out.values, p.params)
	copy(out.sub, p.sub)
	p.resetCSI()
	return out
}

func (p *parserState) resetOSC() {
	p.oscBuf = p.oscBuf[:0]
	p.oscEsc = false
}

func (p *parserState) resetString() {
	p.oscEsc = false
}

func parseOSC(buf []byte) (int, string) {
	if len(buf) == 0 {
		return -1, ""
	}
	parts := strings.SplitN(string(buf), ";", 2)
	code, err := strconv.Atoi(parts[0])
	if err != nil {
		return -1, ""
	}
	if len(parts) == 1 {
		return code, ""
	}
	return code, parts[1]
}

func param(params csiParams, idx, def int) int {
	if idx >= len(params.values) {
		return def
	}
	if params.values[idx] <= 0 {
		return def
	}
	return params.values[idx]
}
