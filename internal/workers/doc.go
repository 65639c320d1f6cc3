// Package workers calculates worker counts for parallel operations
// based on available CPU resources, with environment overrides.
package workers
