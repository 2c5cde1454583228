// Package pipeline pulls frames from a source, lets a processor inspect
// them, and hands every frame to a sink, whatever the processor did.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/jamesainslie/multifocus/pkg/multifocus/frames"
	"github.com/jamesainslie/multifocus/pkg/multifocus/logging"
)

// Processor inspects a frame. *engine.Engine satisfies it.
type Processor interface {
	Process(f frames.Frame)
}

// Sink receives every frame after processing.
type Sink interface {
	Consume(f frames.Frame) error
}

// Stats counts frames through an element.
type Stats struct {
	In        uint64 `json:"in"`
	Forwarded uint64 `json:"forwarded"`
	Panics    uint64 `json:"panics"`
	SinkErrs  uint64 `json:"sink_errors"`
}

// Element connects a source, a processor and a sink.
type Element struct {
	src  frames.Source
	proc Processor
	sink Sink

	in        atomic.Uint64
	forwarded atomic.Uint64
	panics    atomic.Uint64
	sinkErrs  atomic.Uint64
}

// New builds an element. A nil sink discards frames.
func New(src frames.Source, proc Processor, sink Sink) *Element {
	if sink == nil {
		sink = DiscardSink{}
	}
	return &Element{src: src, proc: proc, sink: sink}
}

// Run moves frames until the source is exhausted, which is not an error,
// or ctx is cancelled. Processor panics are recovered and counted; the
// frame is still forwarded.
func (e *Element) Run(ctx context.Context) error {
	log := logging.Get("pipeline")
	log.Info("pipeline started")
	defer func() {
		s := e.Stats()
		log.Info("pipeline stopped", "frames", s.In, "forwarded", s.Forwarded, "panics", s.Panics)
	}()

	for {
		f, err := e.src.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading frame: %w", err)
		}

		e.in.Add(1)
		e.process(f)

		if err := e.sink.Consume(f); err != nil {
			e.sinkErrs.Add(1)
			log.Warn("sink rejected frame", "index", f.Index, "error", err)
			continue
		}
		e.forwarded.Add(1)
	}
}

func (e *Element) process(f frames.Frame) {
	defer func() {
		if r := recover(); r != nil {
			e.panics.Add(1)
			logging.Get("pipeline").Error("processor panic", "index", f.Index, "panic", r)
		}
	}()
	e.proc.Process(f)
}

// Stats returns the counters. Safe to call while Run is active.
func (e *Element) Stats() Stats {
	return Stats{
		In:        e.in.Load(),
		Forwarded: e.forwarded.Load(),
		Panics:    e.panics.Load(),
		SinkErrs:  e.sinkErrs.Load(),
	}
}

// DiscardSink drops frames.
type DiscardSink struct{}

func (DiscardSink) Consume(frames.Frame) error { return nil }

// CountingSink counts frames and remembers the last index.
type CountingSink struct {
	count atomic.Uint64
	last  atomic.Uint64
}

func (s *CountingSink) Consume(f frames.Frame) error {
	s.count.Add(1)
	s.last.Store(f.Index)
	return nil
}

// Count returns the number of frames received.
func (s *CountingSink) Count() uint64 { return s.count.Load() }

// Last returns the index of the most recent frame.
func (s *CountingSink) Last() uint64 { return s.last.Load() }

// FuncSink adapts a function to Sink.
type FuncSink func(frames.Frame) error

func (fn FuncSink) Consume(f frames.Frame) error { return fn(f) }
