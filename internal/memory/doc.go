// Package memory configures the Go soft memory limit from container
// metadata so the runtime leaves headroom for libvips and decoded
// image buffers, which allocate outside the Go heap.
package memory
