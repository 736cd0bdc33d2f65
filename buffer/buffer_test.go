package buffer

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
)

// recordingObserver counts notifications for assertions.
type recordingObserver struct {
	updated   int
	resized   int
	destroyed int
}

func (o *recordingObserver) BufferUpdated(*Buffer)   { o.updated++ }
func (o *recordingObserver) BufferResized(*Buffer)   { o.resized++ }
func (o *recordingObserver) BufferDestroyed(*Buffer) { o.destroyed++ }

func TestNewFloat32RoundTrip(t *testing.T) {
	values := []float32{0, 0, 0, 100, 100, 100, 100, 0}
	b := NewFloat32(values, gputypes.BufferUsageVertex, "positions")

	if b.Len() != len(values)*4 {
		t.Fatalf("expected %d bytes, got %d", len(values)*4, b.Len())
	}
	if b.Float32Len() != len(values) {
		t.Fatalf("expected %d elements, got %d", len(values), b.Float32Len())
	}
	got := b.Float32Data()
	for i, v := range values {
		if got[i] != v {
			t.Errorf("element %d: expected %v, got %v", i, v, got[i])
		}
	}
}

func TestNewUint32RoundTrip(t *testing.T) {
	values := []uint32{0, 1, 2, 0, 2, 3}
	b := NewUint32(values, gputypes.BufferUsageIndex, "indices")

	got := b.Uint32Data()
	if len(got) != len(values) {
		t.Fatalf("expected %d elements, got %d", len(values), len(got))
	}
	for i, v := range values {
		if got[i] != v {
			t.Errorf("element %d: expected %d, got %d", i, v, got[i])
		}
	}
}

func TestUniqueIDs(t *testing.T) {
	a := New(nil, gputypes.BufferUsageVertex, "a")
	b := New(nil, gputypes.BufferUsageVertex, "b")
	if a.ID() == b.ID() {
		t.Errorf("expected distinct IDs, both are %d", a.ID())
	}
}

func TestVersionStartsAtZero(t *testing.T) {
	b := NewFloat32([]float32{1, 2}, gputypes.BufferUsageVertex, "")
	if b.Version() != 0 {
		t.Errorf("expected version 0, got %d", b.Version())
	}
}

func TestSetDataNotifiesUpdated(t *testing.T) {
	b := NewFloat32([]float32{1, 2}, gputypes.BufferUsageVertex, "")
	obs := &recordingObserver{}
	if err := b.Attach(obs); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	// Same length: update, not resize.
	if err := b.SetFloat32Data([]float32{3, 4}); err != nil {
		t.Fatalf("SetFloat32Data failed: %v", err)
	}
	if obs.updated != 1 || obs.resized != 0 {
		t.Errorf("expected 1 update / 0 resizes, got %d / %d", obs.updated, obs.resized)
	}
	if b.Version() != 1 {
		t.Errorf("expected version 1, got %d", b.Version())
	}
}

func TestSetDataNotifiesResized(t *testing.T) {
	b := NewFloat32([]float32{1, 2}, gputypes.BufferUsageVertex, "")
	obs := &recordingObserver{}
	if err := b.Attach(obs); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	if err := b.SetFloat32Data([]float32{1, 2, 3}); err != nil {
		t.Fatalf("SetFloat32Data failed: %v", err)
	}
	if obs.resized != 1 || obs.updated != 0 {
		t.Errorf("expected 1 resize / 0 updates, got %d / %d", obs.resized, obs.updated)
	}
}

func TestUpdateBumpsVersionInPlace(t *testing.T) {
	b := NewFloat32([]float32{1, 2}, gputypes.BufferUsageVertex, "")
	obs := &recordingObserver{}
	if err := b.Attach(obs); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	b.Bytes()[0] = 0xFF
	if err := b.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if b.Version() != 1 {
		t.Errorf("expected version 1, got %d", b.Version())
	}
	if obs.updated != 1 {
		t.Errorf("expected 1 update, got %d", obs.updated)
	}
}

func TestAttachIsIdempotent(t *testing.T) {
	b := NewFloat32([]float32{1}, gputypes.BufferUsageVertex, "")
	obs := &recordingObserver{}
	if err := b.Attach(obs); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if err := b.Attach(obs); err != nil {
		t.Fatalf("second Attach failed: %v", err)
	}

	if err := b.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if obs.updated != 1 {
		t.Errorf("expected single notification after double attach, got %d", obs.updated)
	}
}

func TestAttachNil(t *testing.T) {
	b := New(nil, gputypes.BufferUsageVertex, "")
	if err := b.Attach(nil); !errors.Is(err, ErrNilObserver) {
		t.Errorf("expected ErrNilObserver, got %v", err)
	}
}

func TestDetach(t *testing.T) {
	b := NewFloat32([]float32{1}, gputypes.BufferUsageVertex, "")
	obs := &recordingObserver{}
	if err := b.Attach(obs); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	b.Detach(obs)

	if err := b.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if obs.updated != 0 {
		t.Errorf("expected no notifications after Detach, got %d", obs.updated)
	}

	// Detaching again is a no-op.
	b.Detach(obs)
}

func TestDestroy(t *testing.T) {
	b := NewFloat32([]float32{1, 2}, gputypes.BufferUsageVertex, "")
	obs := &recordingObserver{}
	if err := b.Attach(obs); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	if err := b.Destroy(); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if obs.destroyed != 1 {
		t.Errorf("expected 1 destroy notification, got %d", obs.destroyed)
	}
	if !b.Destroyed() {
		t.Error("expected Destroyed() == true")
	}
	if b.Len() != 0 {
		t.Errorf("expected empty payload after destroy, got %d bytes", b.Len())
	}
}

func TestDestroyTerminal(t *testing.T) {
	b := NewFloat32([]float32{1}, gputypes.BufferUsageVertex, "")
	if err := b.Destroy(); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}

	if err := b.Destroy(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("second Destroy: expected ErrDestroyed, got %v", err)
	}
	if err := b.SetData([]byte{1}); !errors.Is(err, ErrDestroyed) {
		t.Errorf("SetData: expected ErrDestroyed, got %v", err)
	}
	if err := b.Update(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Update: expected ErrDestroyed, got %v", err)
	}
	if err := b.Attach(&recordingObserver{}); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Attach: expected ErrDestroyed, got %v", err)
	}
}

func TestFloat32SpecialValues(t *testing.T) {
	values := []float32{float32(math.Inf(1)), float32(math.NaN()), -0}
	b := NewFloat32(values, gputypes.BufferUsageVertex, "")
	got := b.Float32Data()

	if !math.IsInf(float64(got[0]), 1) {
		t.Errorf("expected +Inf, got %v", got[0])
	}
	if !math.IsNaN(float64(got[1])) {
		t.Errorf("expected NaN, got %v", got[1])
	}
}
