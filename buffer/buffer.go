// Package buffer implements shared, versioned data blocks that back vertex
// and index attributes of 2D geometry.
//
// A Buffer owns a flat byte payload plus the GPU usage flags it will be
// created with. It does not talk to the GPU itself; the gpu package realizes
// buffers on a device and uses the version counter to skip re-uploads.
//
// Change propagation is explicit: interested parties implement [Observer]
// and attach themselves with [Buffer.Attach]. All notifications run
// synchronously inside the mutating call, so an observer sees the change
// before the mutator returns.
//
// Buffers are not synchronized. Like the geometry layer they belong to the
// single render goroutine; see the gpu package for the concurrent pieces.
package buffer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// Buffer errors.
var (
	// ErrDestroyed is returned when operating on a destroyed buffer.
	ErrDestroyed = errors.New("buffer: buffer has been destroyed")

	// ErrNilObserver is returned when attaching a nil observer.
	ErrNilObserver = errors.New("buffer: observer is nil")
)

// Observer receives change notifications from a Buffer.
//
// The buffer invokes observers synchronously, in attachment order, while
// the mutating call is still on the stack. Observers must not mutate the
// buffer they are observing from inside a callback.
type Observer interface {
	// BufferUpdated is called after the buffer contents changed without
	// changing length.
	BufferUpdated(b *Buffer)

	// BufferResized is called after the buffer payload changed length.
	BufferResized(b *Buffer)

	// BufferDestroyed is called once, immediately before the buffer
	// releases its payload.
	BufferDestroyed(b *Buffer)
}

// nextID generates unique buffer IDs across the process.
var nextID atomic.Uint64

// Buffer is a shared block of renderer data with versioned contents.
//
// Multiple geometries may reference the same buffer; the buffer itself
// performs no reference counting. Whoever calls [Buffer.Destroy] must know
// it holds the last reference.
type Buffer struct {
	id    uint64
	label string
	usage gputypes.BufferUsage

	data    []byte
	version uint64

	observers []Observer
	destroyed bool
}

// New creates a buffer owning data. The slice is retained, not copied.
func New(data []byte, usage gputypes.BufferUsage, label string) *Buffer {
	return &Buffer{
		id:    nextID.Add(1),
		label: label,
		usage: usage,
		data:  data,
	}
}

// NewFloat32 creates a buffer from float32 values encoded little-endian,
// the byte order GPU APIs expect.
func NewFloat32(values []float32, usage gputypes.BufferUsage, label string) *Buffer {
	return New(encodeFloat32(values), usage, label)
}

// NewUint32 creates a buffer from uint32 values encoded little-endian.
func NewUint32(values []uint32, usage gputypes.BufferUsage, label string) *Buffer {
	return New(encodeUint32(values), usage, label)
}

// ID returns the process-unique buffer ID.
func (b *Buffer) ID() uint64 { return b.id }

// Label returns the debug label given at construction.
func (b *Buffer) Label() string { return b.label }

// Usage returns the GPU usage flags the buffer will be created with.
func (b *Buffer) Usage() gputypes.BufferUsage { return b.usage }

// Len returns the payload length in bytes. A destroyed buffer reports 0.
func (b *Buffer) Len() int { return len(b.data) }

// Version returns the content version. It starts at 0 and increments on
// every SetData/Update call, never on reads.
func (b *Buffer) Version() uint64 { return b.version }

// Destroyed reports whether Destroy has been called.
func (b *Buffer) Destroyed() bool { return b.destroyed }

// Bytes returns the live payload. Callers that mutate it in place must
// follow up with [Buffer.Update] so observers and the uploader notice.
func (b *Buffer) Bytes() []byte { return b.data }

// Float32Len returns the number of float32 elements in the payload.
func (b *Buffer) Float32Len() int { return len(b.data) / 4 }

// Float32At returns the i-th float32 element of the payload.
func (b *Buffer) Float32At(i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b.data[i*4:]))
}

// Float32Data decodes the payload into a fresh []float32.
func (b *Buffer) Float32Data() []float32 {
	out := make([]float32, b.Float32Len())
	for i := range out {
		out[i] = b.Float32At(i)
	}
	return out
}

// Uint32Data decodes the payload into a fresh []uint32.
func (b *Buffer) Uint32Data() []uint32 {
	out := make([]uint32, len(b.data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b.data[i*4:])
	}
	return out
}

// SetData replaces the payload and bumps the version. Observers get
// BufferResized when the length changed, BufferUpdated otherwise.
func (b *Buffer) SetData(data []byte) error {
	if b.destroyed {
		return ErrDestroyed
	}
	resized := len(data) != len(b.data)
	b.data = data
	b.version++
	if resized {
		b.notifyResized()
	} else {
		b.notifyUpdated()
	}
	return nil
}

// SetFloat32Data replaces the payload with encoded float32 values.
func (b *Buffer) SetFloat32Data(values []float32) error {
	return b.SetData(encodeFloat32(values))
}

// SetUint32Data replaces the payload with encoded uint32 values.
func (b *Buffer) SetUint32Data(values []uint32) error {
	return b.SetData(encodeUint32(values))
}

// Update marks an in-place mutation of [Buffer.Bytes]: it bumps the version
// and notifies observers of an update without touching the payload.
func (b *Buffer) Update() error {
	if b.destroyed {
		return ErrDestroyed
	}
	b.version++
	b.notifyUpdated()
	return nil
}

// Attach registers an observer. Attaching the same observer twice is a
// no-op (identity comparison).
func (b *Buffer) Attach(o Observer) error {
	if o == nil {
		return ErrNilObserver
	}
	if b.destroyed {
		return ErrDestroyed
	}
	for _, existing := range b.observers {
		if existing == o {
			return nil
		}
	}
	b.observers = append(b.observers, o)
	return nil
}

// Detach removes a previously attached observer (identity comparison).
// Detaching an unknown observer is a no-op.
func (b *Buffer) Detach(o Observer) {
	for i, existing := range b.observers {
		if existing == o {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			return
		}
	}
}

// Destroy notifies observers, releases the payload, and makes the buffer
// terminal: every subsequent mutation fails with [ErrDestroyed].
func (b *Buffer) Destroy() error {
	if b.destroyed {
		return fmt.Errorf("%w (id %d)", ErrDestroyed, b.id)
	}
	b.destroyed = true
	for _, o := range b.observers {
		o.BufferDestroyed(b)
	}
	b.observers = nil
	b.data = nil
	return nil
}

func (b *Buffer) notifyUpdated() {
	for _, o := range b.observers {
		o.BufferUpdated(b)
	}
}

func (b *Buffer) notifyResized() {
	for _, o := range b.observers {
		o.BufferResized(b)
	}
}

func encodeFloat32(values []float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func encodeUint32(values []uint32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}
