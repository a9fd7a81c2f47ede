// Package native3d backs backend.Backend with the system's OpenAL
// implementation, giving the engine real hardware-accelerated 3D panning
// and distance attenuation instead of the software approximation in
// backend/softwaremixer. It is grounded on other_examples/toy80-audio__openal.go
// (cgo bindings, source/buffer-queue lifecycle, AL_BUFFERS_PROCESSED polling)
// and on original_source/paulscode/sound/SourceOpenAL.java and
// LibraryOpenAL.java for the property mapping (AL_GAIN, AL_POSITION,
// AL_ROLLOFF_FACTOR, listener orientation).
//
// Two files implement Backend, chosen by the cgo build tag alone:
// native3d_cgo.go when built with cgo (the package then needs the OpenAL
// headers and library to compile), and native3d_nocgo.go when built without
// cgo. The latter always reports IsSupported() == false, so backend.Select
// falls through to softwaremixer or null, matching spec.md §4.3's selection
// rule.
package native3d
