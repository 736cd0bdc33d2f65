// Package gpu realizes renderer buffers on a wgpu HAL device.
//
// The Uploader keeps one HAL buffer per live [buffer.Buffer] and uses the
// buffer's version counter to decide whether an upload actually has to
// touch the GPU: unchanged buffers are returned as cached handles, content
// changes are rewritten in place, and resizes recreate the HAL buffer.
//
// Unlike the description layer, the uploader is safe for concurrent use;
// render workers on different goroutines may share one instance.
package gpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/render2d"
	"github.com/gogpu/render2d/buffer"
	"github.com/gogpu/render2d/geometry"
)

// Uploader errors.
var (
	// ErrNilDevice is returned when constructing an uploader without a device.
	ErrNilDevice = errors.New("gpu: device is nil")

	// ErrNilQueue is returned when constructing an uploader without a queue.
	ErrNilQueue = errors.New("gpu: queue is nil")

	// ErrClosed is returned when operating on a closed uploader.
	ErrClosed = errors.New("gpu: uploader is closed")

	// ErrSourceDestroyed is returned when uploading a destroyed buffer.
	ErrSourceDestroyed = errors.New("gpu: source buffer has been destroyed")
)

// minBufferSize pads empty payloads; zero-sized GPU buffers are rejected by
// some drivers.
const minBufferSize = 4

// Device is the slice of hal.Device the uploader needs.
type Device interface {
	CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error)
	DestroyBuffer(buf hal.Buffer)
}

// Queue is the slice of hal.Queue the uploader needs.
type Queue interface {
	WriteBuffer(buf hal.Buffer, offset uint64, data []byte)
}

// entry tracks the HAL realization of one source buffer.
type entry struct {
	handle  hal.Buffer
	size    uint64 // allocated byte size
	version uint64 // source version last written
	written bool   // false until the first WriteBuffer
}

// GeometryBuffers is the HAL realization of a geometry: one handle per
// distinct source buffer in the geometry's buffer order, plus the index
// handle (nil when the geometry has no index buffer). The index handle
// also appears in Vertex since index buffers share the buffer list.
type GeometryBuffers struct {
	Vertex []hal.Buffer
	Index  hal.Buffer
}

// Uploader realizes source buffers as HAL buffers, version-tracked.
type Uploader struct {
	mu      sync.Mutex
	device  Device
	queue   Queue
	entries map[*buffer.Buffer]*entry
	closed  bool
}

// NewUploader creates an uploader over a HAL device and queue.
func NewUploader(device Device, queue Queue) (*Uploader, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if queue == nil {
		return nil, ErrNilQueue
	}
	return &Uploader{
		device:  device,
		queue:   queue,
		entries: make(map[*buffer.Buffer]*entry),
	}, nil
}

// Upload returns the HAL buffer for b, creating or refreshing it as needed.
// The decision is driven by b.Version(): an unchanged buffer returns the
// cached handle without touching the queue.
func (u *Uploader) Upload(b *buffer.Buffer) (hal.Buffer, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return nil, ErrClosed
	}
	if b == nil || b.Destroyed() {
		return nil, ErrSourceDestroyed
	}

	size := uint64(b.Len())
	alloc := size
	if alloc < minBufferSize {
		alloc = minBufferSize
	}

	e := u.entries[b]
	if e != nil && e.size != alloc {
		// Resize: the HAL buffer cannot grow in place.
		u.device.DestroyBuffer(e.handle)
		delete(u.entries, b)
		e = nil
	}

	if e == nil {
		handle, err := u.device.CreateBuffer(&hal.BufferDescriptor{
			Label: b.Label(),
			Size:  alloc,
			Usage: b.Usage() | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("gpu: create buffer %q: %w", b.Label(), err)
		}
		e = &entry{handle: handle, size: alloc}
		u.entries[b] = e
		slogger().Debug("gpu: buffer created",
			"label", b.Label(), "bytes", alloc)
	}

	if !e.written || e.version != b.Version() {
		if size > 0 {
			u.queue.WriteBuffer(e.handle, 0, b.Bytes())
		}
		e.version = b.Version()
		e.written = true
	}
	return e.handle, nil
}

// UploadGeometry uploads every buffer a geometry references and returns the
// handles in the geometry's buffer order, plus the index handle.
func (u *Uploader) UploadGeometry(g *geometry.Geometry) (*GeometryBuffers, error) {
	bufs, err := g.Buffers()
	if err != nil {
		return nil, fmt.Errorf("gpu: upload geometry: %w", err)
	}

	out := &GeometryBuffers{Vertex: make([]hal.Buffer, len(bufs))}
	for i, b := range bufs {
		handle, err := u.Upload(b)
		if err != nil {
			return nil, err
		}
		out.Vertex[i] = handle
	}

	idx, err := g.Index()
	switch {
	case err == nil:
		handle, err := u.Upload(idx)
		if err != nil {
			return nil, err
		}
		out.Index = handle
	case errors.Is(err, geometry.ErrNoIndexBuffer):
		// Non-indexed geometry.
	default:
		return nil, fmt.Errorf("gpu: upload geometry: %w", err)
	}
	return out, nil
}

// Release destroys the HAL buffer realized for b, if any.
func (u *Uploader) Release(b *buffer.Buffer) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if e, ok := u.entries[b]; ok {
		u.device.DestroyBuffer(e.handle)
		delete(u.entries, b)
	}
}

// Len returns the number of live HAL buffers.
func (u *Uploader) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.entries)
}

// Close destroys all HAL buffers and makes the uploader terminal.
func (u *Uploader) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return ErrClosed
	}
	for b, e := range u.entries {
		u.device.DestroyBuffer(e.handle)
		delete(u.entries, b)
	}
	u.closed = true
	return nil
}

// slogger returns the shared render2d logger.
func slogger() *slog.Logger { return render2d.Logger() }
