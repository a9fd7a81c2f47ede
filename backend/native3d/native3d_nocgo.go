//go:build !cgo

package native3d

import (
	"log/slog"

	"github.com/fieldaudio/soundfield/backend"
	"github.com/fieldaudio/soundfield/clip"
	"github.com/fieldaudio/soundfield/geometry"
)

// Backend is the degraded stand-in used whenever this binary was built
// without cgo. It always reports IsSupported() == false so backend.Select
// skips it in favor of softwaremixer or null. Logger is accepted for
// field-compatibility with the cgo variant but unused.
type Backend struct {
	Logger *slog.Logger
}

func New() *Backend { return &Backend{} }

func (b *Backend) Name() string      { return "native3d (unavailable: built without cgo)" }
func (b *Backend) IsSupported() bool { return false }

func (b *Backend) Open() error  { return backend.NewError(backend.ErrUnsupported, "native3d requires cgo") }
func (b *Backend) Close() error { return nil }

func (b *Backend) CreateVoice(kind backend.VoiceKind) (*backend.Voice, bool) { return nil, false }
func (b *Backend) AttachOneshot(v *backend.Voice, c *clip.Clip) error {
	return backend.NewError(backend.ErrUnsupported, "native3d requires cgo")
}
func (b *Backend) ResetStream(v *backend.Voice, format clip.Format) error {
	return backend.NewError(backend.ErrUnsupported, "native3d requires cgo")
}
func (b *Backend) Preload(v *backend.Voice, chunks [][]byte) error {
	return backend.NewError(backend.ErrUnsupported, "native3d requires cgo")
}
func (b *Backend) Queue(v *backend.Voice, chunk []byte) error {
	return backend.NewError(backend.ErrUnsupported, "native3d requires cgo")
}
func (b *Backend) BuffersProcessed(v *backend.Voice) (int, error) { return 0, nil }
func (b *Backend) Play(v *backend.Voice)                         {}
func (b *Backend) Pause(v *backend.Voice)                        {}
func (b *Backend) Stop(v *backend.Voice)                         {}
func (b *Backend) Rewind(v *backend.Voice)                       {}
func (b *Backend) Flush(v *backend.Voice)                        {}
func (b *Backend) CloseVoice(v *backend.Voice)                   {}
func (b *Backend) IsPlaying(v *backend.Voice) bool               { return false }
func (b *Backend) SetGain(v *backend.Voice, gain float32)        {}
func (b *Backend) SetPan(v *backend.Voice, pan float32)          {}
func (b *Backend) Set3D(v *backend.Voice, pos geometry.Vec3, rolloff float32, looping bool) {}
func (b *Backend) SetListener(pos, look, up geometry.Vec3)                                  {}
func (b *Backend) SetMasterGain(gain float32)                                                {}

var _ backend.Backend = (*Backend)(nil)
