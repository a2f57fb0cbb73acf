package codec_test

import (
	"errors"
	"io/fs"
	"testing"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sys/unix"

	"github.com/stealthrocket/brillcodec/internal/assert"
	"github.com/stealthrocket/brillcodec/internal/codec"
	"github.com/stealthrocket/brillcodec/internal/device/devicetest"
	"github.com/stealthrocket/brillcodec/internal/wire"
)

const testMemorySize = 1 << 20

func openSession(t *testing.T, d *devicetest.Device, opts ...codec.Option) *codec.Session {
	t.Helper()
	s, err := codec.OpenDevice(d, opts...)
	assert.OK(t, err)
	return s
}

func sortedNames[T any](tests map[string]T) []string {
	names := maps.Keys(tests)
	slices.Sort(names)
	return names
}

type sessionTestSuite map[string]func(*testing.T, *codec.Session, *devicetest.Device)

func (tests sessionTestSuite) run(t *testing.T) {
	names := sortedNames(tests)

	for _, version := range []int32{2, 3} {
		version := version
		t.Run(codec.Protocol(version).String(), func(t *testing.T) {
			for _, name := range names {
				test := tests[name]
				t.Run(name, func(t *testing.T) {
					d := devicetest.New(version)
					s := openSession(t, d, codec.WithMemorySize(testMemorySize))
					test(t, s, d)
					devicetest.Check(t, d)
				})
			}
		})
	}
}

func TestOpen(t *testing.T) {
	for _, test := range []struct {
		version  int32
		protocol codec.Protocol
		memory   int
	}{
		{version: 0, protocol: codec.V2, memory: 4096},
		{version: 2, protocol: codec.V2, memory: 4096},
		{version: 3, protocol: codec.V3, memory: 32 << 20},
	} {
		t.Run(test.protocol.String(), func(t *testing.T) {
			d := devicetest.New(test.version)
			s := openSession(t, d)

			assert.Equal(t, s.Version(), test.version)
			assert.Equal(t, s.Protocol(), test.protocol)
			assert.Equal(t, s.MemorySize(), test.memory)
			assert.True(t, d.Mapped())
			assert.EqualAll(t, d.Commands(), []wire.Command{wire.GetVersion})

			assert.OK(t, s.Close())
			assert.OK(t, s.Close())
			assert.True(t, d.Closed())
		})
	}
}

func TestOpenIncompatibleVersion(t *testing.T) {
	for _, version := range []int32{-1, 4, 5} {
		d := devicetest.New(version)
		_, err := codec.OpenDevice(d)
		assert.Error(t, err, codec.ErrIncompatibleVersion)
		assert.False(t, d.Mapped())
		assert.True(t, d.Closed())
		assert.EqualAll(t, d.Commands(), []wire.Command{wire.GetVersion})
	}
}

func TestOpenMmapFailure(t *testing.T) {
	d := devicetest.New(3)
	d.FailMmap = errors.New("ENOMEM")

	_, err := codec.OpenDevice(d)
	assert.Error(t, err, codec.ErrDeviceUnavailable)
	assert.Error(t, err, d.FailMmap)
	assert.True(t, d.Closed())
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := codec.Open("/dev/brillcodec-does-not-exist")
	assert.Error(t, err, codec.ErrDeviceUnavailable)
	assert.Error(t, err, fs.ErrNotExist)
}

func TestNonBlockingSession(t *testing.T) {
	for _, version := range []int32{2, 3} {
		p := codec.Protocol(version)
		t.Run(p.String(), func(t *testing.T) {
			secure, trySecure := wire.V2SecureBuffer, wire.V2TrySecureBuffer
			if p == codec.V3 {
				secure, trySecure = wire.V3SecureBuffer, wire.V3TrySecureBuffer
			}

			d := devicetest.New(version)
			s := openSession(t, d, codec.WithMemorySize(testMemorySize), codec.WithNonBlocking(true))
			defer s.Close()

			_, err := s.Catalog()
			assert.OK(t, err)
			blocking := d.Count(secure)

			c := openVideoDecoder(t, s, smallVideo)
			_, picture, err := c.DecodeVideoPicture(0, 0, []byte("frame"))
			assert.OK(t, err)
			assert.OK(t, picture.Release())

			n := d.Count(trySecure)
			assert.True(t, n > 0)

			d.FailSecure = unix.ENOMEM
			_, _, err = c.DecodeVideoPicture(1, 5, []byte("frame"))
			assert.True(t, errors.Is(err, codec.ErrBufferUnavailable))
			assert.Equal(t, d.Count(trySecure), n+1)
			d.FailSecure = nil

			assert.OK(t, c.Deinit())
			assert.Equal(t, d.Count(secure), blocking)
			devicetest.Check(t, d)
		})
	}
}

func TestSession(t *testing.T) {
	sessionTestSuite{
		"the catalog is read from the device once": func(t *testing.T, s *codec.Session, d *devicetest.Device) {
			elements, err := s.Elements()
			assert.OK(t, err)
			assert.DeepEqual(t, elements, devicetest.DefaultElements())

			n := len(d.Calls())
			catalog, err := s.Catalog()
			assert.OK(t, err)
			assert.Equal(t, catalog.Len(), len(elements))
			assert.Equal(t, len(d.Calls()), n)
		},

		"an empty catalog has no elements": func(t *testing.T, s *codec.Session, d *devicetest.Device) {
			d.Elements = nil
			elements, err := s.Elements()
			assert.OK(t, err)
			assert.Equal(t, len(elements), 0)
		},

		"the profile status is only supported by the third generation": func(t *testing.T, s *codec.Session, d *devicetest.Device) {
			d.ProfileStatus = 7
			status, err := s.ProfileStatus()
			if s.Protocol() == codec.V2 {
				assert.Error(t, err, errors.ErrUnsupported)
				return
			}
			assert.OK(t, err)
			assert.Equal(t, status, 7)
		},

		"contexts get distinct indexes": func(t *testing.T, s *codec.Session, d *devicetest.Device) {
			c1, err := s.NewContext()
			assert.OK(t, err)
			c2, err := s.NewContext()
			assert.OK(t, err)

			assert.True(t, c1.Index() != c2.Index())
			assert.Equal(t, c1.State(), codec.StateInitializing)
			assert.Equal(t, s.Contexts(), 2)

			assert.OK(t, c1.Deinit())
			assert.OK(t, c2.Deinit())
			assert.Equal(t, s.Contexts(), 0)
		},

		"a context which was never initialized gives its index back": func(t *testing.T, s *codec.Session, d *devicetest.Device) {
			c, err := s.NewContext()
			assert.OK(t, err)
			assert.Equal(t, c.State(), codec.StateInitializing)
			assert.Equal(t, d.Contexts(), 1)

			assert.OK(t, c.Deinit())
			assert.Equal(t, c.State(), codec.StateClosed)
			assert.Equal(t, d.Invocations(wire.Deinit), 1)
			assert.Equal(t, d.Contexts(), 0)
			assert.Equal(t, s.Contexts(), 0)
		},

		"a failed init gives the index back on deinit": func(t *testing.T, s *codec.Session, d *devicetest.Device) {
			c, err := s.NewContext()
			assert.OK(t, err)

			unknown := wire.CodecElement{CodecType: wire.Decoder, MediaType: wire.Video, Name: "vp9"}
			assert.Error(t, c.Init(unknown, codec.Params{Video: smallVideo}), codec.ErrDeviceCallFailed)
			assert.Equal(t, d.Contexts(), 1)

			assert.OK(t, c.Deinit())
			assert.Equal(t, d.Invocations(wire.Deinit), 1)
			assert.Equal(t, d.Contexts(), 0)
		},

		"a context index already in use fails the allocation": func(t *testing.T, s *codec.Session, d *devicetest.Device) {
			d.DuplicateContextIndex = true
			c, err := s.NewContext()
			assert.OK(t, err)
			defer c.Deinit()

			_, err = s.NewContext()
			assert.Error(t, err, codec.ErrContextAllocationFailed)
			assert.Equal(t, s.Contexts(), 1)
		},

		"a device failure fails the context allocation": func(t *testing.T, s *codec.Session, d *devicetest.Device) {
			d.FailContextIndex = errors.New("EBUSY")
			_, err := s.NewContext()
			assert.Error(t, err, codec.ErrContextAllocationFailed)
			assert.Error(t, err, codec.ErrDeviceCallFailed)
			assert.Error(t, err, d.FailContextIndex)
		},

		"the session cannot close while contexts are open": func(t *testing.T, s *codec.Session, d *devicetest.Device) {
			c := openVideoDecoder(t, s, smallVideo)
			assert.Error(t, s.Close(), codec.ErrContextsOpen)
			assert.False(t, d.Closed())

			assert.OK(t, c.Deinit())
			assert.OK(t, s.Close())
			assert.True(t, d.Closed())

			_, err := s.NewContext()
			assert.Error(t, err, codec.ErrSessionClosed)
		},

		"the session cannot close while pictures are held": func(t *testing.T, s *codec.Session, d *devicetest.Device) {
			c := openVideoDecoder(t, s, smallVideo)
			_, picture, err := c.DecodeVideoPicture(0, 0, []byte("frame"))
			assert.OK(t, err)
			assert.True(t, picture.ZeroCopy())
			assert.OK(t, c.Deinit())

			assert.Error(t, s.Close(), codec.ErrPicturesOutstanding)
			assert.OK(t, picture.Release())
			assert.OK(t, s.Close())
		},

		"only commands of the negotiated protocol are sent": func(t *testing.T, s *codec.Session, d *devicetest.Device) {
			_, err := s.Elements()
			assert.OK(t, err)

			c := openVideoDecoder(t, s, smallVideo)
			_, picture, err := c.DecodeVideoPicture(0, 0, []byte("frame"))
			assert.OK(t, err)
			assert.OK(t, picture.Release())
			assert.OK(t, c.Flush())
			assert.OK(t, c.Deinit())

			for _, cmd := range d.Commands() {
				if v := cmd.Version(); v != 0 && v != int(s.Protocol()) {
					t.Errorf("%s sent to a %s device", cmd, s.Protocol())
				}
			}
		},
	}.run(t)
}
