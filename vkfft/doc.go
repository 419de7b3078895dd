// Package vkfft exposes the native VkFFT shim to Go.
//
// Apart from this file and the tests, the Go sources are generated by
// vkfftgen. bindings.go holds the type aliases and the Unchecked call
// surface, consts.go the resolved MaxFFTDimensions and link.go the linker
// flags for libvkfft.a. Regenerate with go generate or mage generate.
package vkfft

//go:generate go run ../cmd/vkfftgen -src native -out .
