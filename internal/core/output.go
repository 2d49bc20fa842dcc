package core

import (
	"time"

	"gocv.io/x/gocv"
)

// Output is one transformed frame handed to the sinks.
type Output struct {
	Frame    gocv.Mat
	Mode     Mode
	Strategy string
	Captured time.Time
	Seq      uint64
}

// Sink consumes pipeline output. The frame belongs to the pipeline and is
// released after all sinks return: implementations must clone anything they
// keep.
type Sink interface {
	Put(out Output) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(out Output) error

func (f SinkFunc) Put(out Output) error {
	return f(out)
}
