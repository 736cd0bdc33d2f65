// Package render2d provides the resource-description layer of a 2D GPU
// renderer: geometry objects that map named vertex attributes onto shared
// data buffers, and blend-mode shader contracts that supply equivalent
// compositing math for both the GL and the GPU shading backends.
//
// The package tree is organized by concern:
//
//   - buffer: shared, versioned data blocks with explicit change observers
//   - geometry: attribute/index bookkeeping, lazy bounds, layout keys
//   - blend: per-mode shader fragments for program assembly
//   - gpu: version-tracked realization of buffers on a wgpu HAL device
//
// render2d itself only carries the shared logger configuration; see
// [SetLogger].
package render2d
