package main

import (
	"fmt"
	"io"

	"github.com/go-faster/jx"
)

// tracer logs every register write applied during playback, one json object
// per line.
type tracer struct {
	w   io.Writer
	enc jx.Encoder
}

func newTracer(w io.Writer) *tracer {
	return &tracer{w: w}
}

func (t *tracer) record(cycle uint64, addr uint16, val uint8) error {
	t.enc.Reset()
	t.enc.Obj(func(e *jx.Encoder) {
		e.Field("cycle", func(e *jx.Encoder) { e.UInt64(cycle) })
		e.Field("addr", func(e *jx.Encoder) { e.Str(fmt.Sprintf("$%04X", addr)) })
		e.Field("value", func(e *jx.Encoder) { e.Str(fmt.Sprintf("$%02X", val)) })
	})

	if _, err := t.w.Write(t.enc.Bytes()); err != nil {
		return err
	}
	_, err := t.w.Write([]byte{'\n'})
	return err
}
