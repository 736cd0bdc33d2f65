// Package geometry implements the geometry description layer of the 2D
// renderer: the mapping from named vertex attributes to shared buffers, the
// optional index buffer, and the derived bounds and layout-key caches.
//
// A Geometry does not own its buffers. The same buffer may back several
// attributes of one geometry (de-duplicated by identity) or be shared
// across geometries. Per-buffer reference counts track how many attribute
// slots of a geometry use a buffer, so replacing an attribute releases a
// buffer only when no other slot still needs it.
//
// Geometries are mutated during a setup phase (AddAttribute/AddIndex) and
// treated as structurally immutable afterwards; only buffer contents keep
// changing. They follow the single render goroutine and are not
// synchronized.
package geometry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/render2d"
	"github.com/gogpu/render2d/buffer"
)

// PositionAttribute is the conventional attribute name bounds are derived
// from. Callers that want spatial bounds must register their vertex
// positions under this name.
const PositionAttribute = "aPosition"

// Geometry errors.
var (
	// ErrDestroyed is returned by every operation on a destroyed geometry.
	ErrDestroyed = errors.New("geometry: geometry has been destroyed")

	// ErrInvalidAttributeSpec is returned when a spec carries neither data
	// nor a buffer.
	ErrInvalidAttributeSpec = errors.New("geometry: attribute spec resolves to no buffer")

	// ErrUnknownAttribute is returned when looking up an attribute name
	// that was never added.
	ErrUnknownAttribute = errors.New("geometry: unknown attribute")

	// ErrNoIndexBuffer is returned by Index when no index buffer was added.
	ErrNoIndexBuffer = errors.New("geometry: no index buffer")
)

// Topology describes how vertices are assembled into primitives.
// The zero value is TriangleList, the default for 2D meshes.
type Topology uint8

// Topology kinds.
const (
	TriangleList Topology = iota
	TriangleStrip
	LineList
	LineStrip
	PointList
)

// String returns the WebGPU-style name of the topology.
func (t Topology) String() string {
	switch t {
	case TriangleList:
		return "triangle-list"
	case TriangleStrip:
		return "triangle-strip"
	case LineList:
		return "line-list"
	case LineStrip:
		return "line-strip"
	case PointList:
		return "point-list"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// Primitive maps the topology onto the gputypes enum used when building
// render pipelines.
func (t Topology) Primitive() gputypes.PrimitiveTopology {
	switch t {
	case TriangleStrip:
		return gputypes.PrimitiveTopologyTriangleStrip
	case LineList:
		return gputypes.PrimitiveTopologyLineList
	case LineStrip:
		return gputypes.PrimitiveTopologyLineStrip
	case PointList:
		return gputypes.PrimitiveTopologyPointList
	default:
		return gputypes.PrimitiveTopologyTriangleList
	}
}

// Observer receives geometry-level notifications.
//
// GeometryUpdated fires synchronously whenever a buffer referenced by an
// attribute reports changed or resized contents. GeometryDestroyed fires
// once, immediately before teardown.
type Observer interface {
	GeometryUpdated(g *Geometry)
	GeometryDestroyed(g *Geometry)
}

// NamedAttribute pairs an attribute name with its spec for ordered
// construction via Options.
type NamedAttribute struct {
	Name string
	Spec AttributeSpec
}

// Options configures a new Geometry. The zero value is valid: an empty
// triangle-list geometry with instance count 1.
type Options struct {
	// Label is a debug name carried into wrapped buffer labels.
	Label string

	// Topology defaults to TriangleList.
	Topology Topology

	// Attributes are added in slice order; order matters for Size().
	Attributes []NamedAttribute

	// Index optionally supplies the index buffer.
	Index *IndexSpec

	// InstanceCount defaults to 1 when 0.
	InstanceCount uint32
}

// bufferRef tracks one distinct buffer and the number of attribute slots
// (attributes plus the index slot) referencing it.
type bufferRef struct {
	buf  *buffer.Buffer
	refs int
}

// nextID generates unique geometry IDs across the process.
var nextID atomic.Uint64

// Geometry maps named attributes onto shared buffers.
type Geometry struct {
	id    uint64
	label string

	topology      Topology
	attributes    map[string]Attribute
	order         []string // attribute names in insertion order
	refs          []bufferRef
	index         *buffer.Buffer
	instanceCount uint32

	bounds      Bounds
	boundsDirty bool
	calc        BoundsCalculator

	layoutKey   uint64
	layoutDirty bool

	observers []Observer
	destroyed bool
}

// New creates a geometry from opts, adding attributes in slice order.
func New(opts Options) (*Geometry, error) {
	instances := opts.InstanceCount
	if instances == 0 {
		instances = 1
	}
	g := &Geometry{
		id:            nextID.Add(1),
		label:         opts.Label,
		topology:      opts.Topology,
		attributes:    make(map[string]Attribute),
		instanceCount: instances,
		boundsDirty:   true,
		layoutDirty:   true,
		calc:          PositionBounds{},
	}
	for _, na := range opts.Attributes {
		if err := g.AddAttribute(na.Name, na.Spec); err != nil {
			return nil, fmt.Errorf("attribute %q: %w", na.Name, err)
		}
	}
	if opts.Index != nil {
		if err := g.AddIndex(*opts.Index); err != nil {
			return nil, fmt.Errorf("index: %w", err)
		}
	}
	return g, nil
}

// ID returns the process-unique geometry ID.
func (g *Geometry) ID() uint64 { return g.id }

// Label returns the debug label given at construction.
func (g *Geometry) Label() string { return g.label }

// Topology returns the primitive topology.
func (g *Geometry) Topology() Topology { return g.topology }

// Destroyed reports whether Destroy has been called.
func (g *Geometry) Destroyed() bool { return g.destroyed }

// AddAttribute normalizes spec into an attribute stored under name,
// replacing any previous attribute with that name. The backing buffer is
// de-duplicated by identity against buffers already referenced; a newly
// referenced buffer gets the geometry attached as its change observer.
//
// Replacing an attribute releases the old attribute's buffer if no other
// attribute (or the index slot) still references it.
func (g *Geometry) AddAttribute(name string, spec AttributeSpec) error {
	if g.destroyed {
		return ErrDestroyed
	}

	attr, err := g.resolveAttribute(name, spec)
	if err != nil {
		return err
	}

	// Retain before release so replacing an attribute with one backed by
	// the same buffer never drops the buffer to zero in between.
	g.retain(attr.Buffer)
	if old, ok := g.attributes[name]; ok {
		g.release(old.Buffer)
	} else {
		g.order = append(g.order, name)
	}
	g.attributes[name] = attr

	g.boundsDirty = true
	g.layoutDirty = true
	return nil
}

// AddIndex normalizes spec into the index buffer, replacing any previous
// one. Index data wrapped from raw values always gets index usage; the
// buffer joins the geometry's buffer list like attribute buffers do.
func (g *Geometry) AddIndex(spec IndexSpec) error {
	if g.destroyed {
		return ErrDestroyed
	}

	var buf *buffer.Buffer
	switch {
	case spec.Buffer != nil:
		buf = spec.Buffer
	case spec.Data != nil:
		usage := gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst
		buf = buffer.NewUint32(spec.Data, usage, g.bufferLabel("index"))
	default:
		return fmt.Errorf("%w: index spec has neither data nor buffer", ErrInvalidAttributeSpec)
	}

	g.retain(buf)
	if g.index != nil {
		g.release(g.index)
	}
	g.index = buf
	return nil
}

// Attribute returns the attribute stored under name.
func (g *Geometry) Attribute(name string) (Attribute, error) {
	if g.destroyed {
		return Attribute{}, ErrDestroyed
	}
	attr, ok := g.attributes[name]
	if !ok {
		return Attribute{}, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
	return attr, nil
}

// AttributeNames returns the attribute names in insertion order.
func (g *Geometry) AttributeNames() ([]string, error) {
	if g.destroyed {
		return nil, ErrDestroyed
	}
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out, nil
}

// Index returns the index buffer, or ErrNoIndexBuffer when none was added.
func (g *Geometry) Index() (*buffer.Buffer, error) {
	if g.destroyed {
		return nil, ErrDestroyed
	}
	if g.index == nil {
		return nil, ErrNoIndexBuffer
	}
	return g.index, nil
}

// Buffers returns the distinct referenced buffers in first-reference order.
// Each buffer appears exactly once no matter how many attributes use it.
func (g *Geometry) Buffers() ([]*buffer.Buffer, error) {
	if g.destroyed {
		return nil, ErrDestroyed
	}
	out := make([]*buffer.Buffer, len(g.refs))
	for i, r := range g.refs {
		out[i] = r.buf
	}
	return out, nil
}

// Size returns the vertex count, inferred from the first attribute in
// insertion order: the buffer's float32 element count divided by the
// attribute's per-vertex element count (Size, or Stride/4 when Size is 0).
//
// The inference is deliberately simple: it is only correct when the
// first-inserted attribute holds exactly one entry per vertex. 0 is
// returned when there are no attributes.
func (g *Geometry) Size() (uint32, error) {
	if g.destroyed {
		return 0, ErrDestroyed
	}
	if len(g.order) == 0 {
		return 0, nil
	}
	attr := g.attributes[g.order[0]]
	per := attr.Size
	if per == 0 && attr.Stride >= 4 {
		per = attr.Stride / 4
	}
	if per == 0 {
		return 0, nil
	}
	return uint32(attr.Buffer.Float32Len()) / per, nil
}

// InstanceCount returns the number of instances to draw.
func (g *Geometry) InstanceCount() uint32 { return g.instanceCount }

// SetInstanceCount sets the number of instances to draw.
func (g *Geometry) SetInstanceCount(n uint32) error {
	if g.destroyed {
		return ErrDestroyed
	}
	g.instanceCount = n
	return nil
}

// LayoutKey returns a cache key summarizing the vertex layout: attribute
// names, formats, strides, offsets and stepping, plus the topology. Two
// geometries with equal keys can share a render pipeline. The key is
// cached and recomputed only after attribute changes.
func (g *Geometry) LayoutKey() (uint64, error) {
	if g.destroyed {
		return 0, ErrDestroyed
	}
	if g.layoutDirty {
		g.layoutKey = g.computeLayoutKey()
		g.layoutDirty = false
	}
	return g.layoutKey, nil
}

// SetBoundsCalculator replaces the bounds calculator and invalidates the
// bounds cache. Passing nil restores the default PositionBounds.
func (g *Geometry) SetBoundsCalculator(c BoundsCalculator) error {
	if g.destroyed {
		return ErrDestroyed
	}
	if c == nil {
		c = PositionBounds{}
	}
	g.calc = c
	g.boundsDirty = true
	return nil
}

// Bounds returns the axis-aligned bounds of the PositionAttribute data.
//
// The result is computed lazily: a clean cache is returned as-is (the same
// object, safe to alias for read-only use), a dirty cache is recomputed in
// place by the bounds calculator first. The cache starts dirty and is
// re-dirtied whenever a referenced buffer changes.
func (g *Geometry) Bounds() (*Bounds, error) {
	if g.destroyed {
		return nil, ErrDestroyed
	}
	if g.boundsDirty {
		if err := g.calc.ComputeBounds(g, PositionAttribute, &g.bounds); err != nil {
			return nil, fmt.Errorf("geometry: compute bounds: %w", err)
		}
		g.boundsDirty = false
	}
	return &g.bounds, nil
}

// AttachObserver registers a geometry observer. Attaching the same
// observer twice is a no-op (identity comparison).
func (g *Geometry) AttachObserver(o Observer) error {
	if g.destroyed {
		return ErrDestroyed
	}
	if o == nil {
		return errors.New("geometry: observer is nil")
	}
	for _, existing := range g.observers {
		if existing == o {
			return nil
		}
	}
	g.observers = append(g.observers, o)
	return nil
}

// DetachObserver removes a previously attached observer.
func (g *Geometry) DetachObserver(o Observer) {
	for i, existing := range g.observers {
		if existing == o {
			g.observers = append(g.observers[:i], g.observers[i+1:]...)
			return
		}
	}
}

// Destroy emits the destroy notification, detaches the geometry from all
// referenced buffers, and makes the geometry terminal: every subsequent
// operation fails with ErrDestroyed.
//
// When destroyBuffers is true every referenced buffer is destroyed too.
// Buffers may be shared across geometries and no reference counting spans
// geometry instances, so the caller must know it holds the last reference
// before asking for buffer destruction.
func (g *Geometry) Destroy(destroyBuffers bool) error {
	if g.destroyed {
		return ErrDestroyed
	}

	for _, o := range g.observers {
		o.GeometryDestroyed(g)
	}

	for _, r := range g.refs {
		r.buf.Detach(g)
		if destroyBuffers && !r.buf.Destroyed() {
			if err := r.buf.Destroy(); err != nil {
				slogger().Warn("geometry: destroy buffer",
					"geometry", g.id, "buffer", r.buf.ID(), "err", err)
			}
		}
	}

	g.destroyed = true
	g.observers = nil
	g.attributes = nil
	g.order = nil
	g.refs = nil
	g.index = nil
	g.calc = nil
	return nil
}

// BufferUpdated implements buffer.Observer: a content change in any
// referenced buffer invalidates the bounds cache and re-emits a
// geometry-level update, synchronously.
func (g *Geometry) BufferUpdated(*buffer.Buffer) {
	g.invalidate()
}

// BufferResized implements buffer.Observer.
func (g *Geometry) BufferResized(*buffer.Buffer) {
	g.invalidate()
}

// BufferDestroyed implements buffer.Observer. A buffer destroyed behind
// the geometry's back leaves dangling attributes; treat it like a content
// change so stale bounds are not served, and leave the rest to the caller
// who violated the sharing contract.
func (g *Geometry) BufferDestroyed(b *buffer.Buffer) {
	slogger().Warn("geometry: referenced buffer destroyed externally",
		"geometry", g.id, "buffer", b.ID())
	g.invalidate()
}

func (g *Geometry) invalidate() {
	if g.destroyed {
		return
	}
	g.boundsDirty = true
	for _, o := range g.observers {
		o.GeometryUpdated(g)
	}
}

// resolveAttribute normalizes a spec into a canonical Attribute, wrapping
// raw data into a new vertex-usage buffer.
func (g *Geometry) resolveAttribute(name string, spec AttributeSpec) (Attribute, error) {
	attr := Attribute{
		Format:    spec.Format,
		Stride:    spec.Stride,
		Offset:    spec.Offset,
		Instanced: spec.Instanced,
		Size:      spec.Size,
		Start:     spec.Start,
		Divisor:   spec.Divisor,
	}
	switch {
	case spec.Buffer != nil:
		attr.Buffer = spec.Buffer
	case spec.Data != nil:
		usage := gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst
		attr.Buffer = buffer.NewFloat32(spec.Data, usage, g.bufferLabel(name))
	default:
		return Attribute{}, fmt.Errorf("%w: %q has neither data nor buffer", ErrInvalidAttributeSpec, name)
	}
	return attr, nil
}

// retain bumps the reference count for buf, adding it to the buffer list
// and attaching the geometry as observer on first reference.
func (g *Geometry) retain(buf *buffer.Buffer) {
	for i := range g.refs {
		if g.refs[i].buf == buf {
			g.refs[i].refs++
			return
		}
	}
	g.refs = append(g.refs, bufferRef{buf: buf, refs: 1})
	if err := buf.Attach(g); err != nil {
		slogger().Warn("geometry: attach to buffer",
			"geometry", g.id, "buffer", buf.ID(), "err", err)
	}
}

// release drops one reference to buf, removing it from the buffer list and
// detaching the observer when no attribute slot references it anymore.
func (g *Geometry) release(buf *buffer.Buffer) {
	for i := range g.refs {
		if g.refs[i].buf != buf {
			continue
		}
		g.refs[i].refs--
		if g.refs[i].refs <= 0 {
			buf.Detach(g)
			g.refs = append(g.refs[:i], g.refs[i+1:]...)
		}
		return
	}
}

// refCount returns the number of attribute slots referencing buf.
func (g *Geometry) refCount(buf *buffer.Buffer) int {
	for _, r := range g.refs {
		if r.buf == buf {
			return r.refs
		}
	}
	return 0
}

func (g *Geometry) computeLayoutKey() uint64 {
	h := fnv.New64a()
	var scratch [4]byte

	writeU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(scratch[:], v)
		_, _ = h.Write(scratch[:]) // fnv.Write never returns an error
	}

	writeU32(uint32(g.topology))
	for _, name := range g.order {
		attr := g.attributes[name]
		_, _ = h.Write([]byte(name))
		writeU32(uint32(attr.Format))
		writeU32(attr.Stride)
		writeU32(attr.Offset)
		writeU32(attr.Size)
		writeU32(attr.Divisor)
		if attr.Instanced {
			writeU32(1)
		} else {
			writeU32(0)
		}
	}
	return h.Sum64()
}

func (g *Geometry) bufferLabel(suffix string) string {
	if g.label == "" {
		return suffix
	}
	return g.label + "/" + suffix
}

// slogger returns the shared render2d logger.
func slogger() *slog.Logger { return render2d.Logger() }
