package geometry

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/render2d/buffer"
)

// Attribute is a named slice of a buffer interpreted as one field of
// per-vertex data. It references the buffer, it does not own it.
type Attribute struct {
	// Buffer holds the backing data block.
	Buffer *buffer.Buffer

	// Format is the GPU vertex format of one element.
	Format gputypes.VertexFormat

	// Stride is the distance in bytes between consecutive vertices,
	// 0 for tightly packed data.
	Stride uint32

	// Offset is the byte offset of the first element inside the buffer.
	Offset uint32

	// Instanced marks per-instance rather than per-vertex stepping.
	Instanced bool

	// Size is the number of float32 elements per vertex (2 for an xy
	// position, 4 for an rgba color).
	Size uint32

	// Start is the vertex index the attribute begins at.
	Start uint32

	// Divisor is the instance step divisor, meaningful when Instanced.
	Divisor uint32
}

// AttributeSpec describes the input to [Geometry.AddAttribute] before
// normalization. Exactly one of Data or Buffer must be set; Data is wrapped
// into a new vertex buffer, Buffer is referenced as-is (and de-duplicated
// against buffers other attributes already use).
type AttributeSpec struct {
	Data   []float32
	Buffer *buffer.Buffer

	Format    gputypes.VertexFormat
	Stride    uint32
	Offset    uint32
	Instanced bool
	Size      uint32
	Start     uint32
	Divisor   uint32
}

// Data builds the common case of a spec: a tightly packed float32 array
// with size elements per vertex.
func Data(values []float32, size uint32) AttributeSpec {
	return AttributeSpec{Data: values, Size: size}
}

// FromBuffer builds a spec referencing an existing buffer with size
// elements per vertex.
func FromBuffer(b *buffer.Buffer, size uint32) AttributeSpec {
	return AttributeSpec{Buffer: b, Size: size}
}

// IndexSpec describes the input to [Geometry.AddIndex]. Exactly one of
// Data or Buffer must be set; Data is wrapped into a new index buffer.
type IndexSpec struct {
	Data   []uint32
	Buffer *buffer.Buffer
}

// IndexData builds an index spec from raw indices.
func IndexData(values []uint32) IndexSpec {
	return IndexSpec{Data: values}
}
