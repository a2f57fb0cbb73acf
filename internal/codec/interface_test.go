package codec_test

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/stealthrocket/brillcodec/internal/arena"
	"github.com/stealthrocket/brillcodec/internal/assert"
	"github.com/stealthrocket/brillcodec/internal/codec"
	"github.com/stealthrocket/brillcodec/internal/device/devicetest"
	"github.com/stealthrocket/brillcodec/internal/wire"
)

func TestProtocolOf(t *testing.T) {
	for _, test := range []struct {
		version  int32
		protocol codec.Protocol
	}{
		{0, codec.V2},
		{1, codec.V2},
		{2, codec.V2},
		{3, codec.V3},
	} {
		p, err := codec.ProtocolOf(test.version)
		assert.OK(t, err)
		assert.Equal(t, p, test.protocol)
	}

	for _, version := range []int32{-2, -1, 4, 1 << 30} {
		_, err := codec.ProtocolOf(version)
		assert.Error(t, err, codec.ErrIncompatibleVersion)
	}
}

func newInterface(t *testing.T, version int32) (codec.Interface, *arena.Arena, *devicetest.Device) {
	t.Helper()
	d := devicetest.New(version)
	p, err := codec.ProtocolOf(version)
	assert.OK(t, err)
	memory, err := d.Mmap(testMemorySize)
	assert.OK(t, err)
	iface := codec.NewInterface(p, d)
	return iface, arena.New(iface, memory, wire.SmallBufferSize), d
}

type interfaceTestSuite map[string]func(*testing.T, codec.Interface, *arena.Arena, *devicetest.Device)

func (tests interfaceTestSuite) run(t *testing.T) {
	for _, version := range []int32{2, 3} {
		version := version
		t.Run(codec.Protocol(version).String(), func(t *testing.T) {
			for _, name := range sortedNames(tests) {
				test := tests[name]
				t.Run(name, func(t *testing.T) {
					iface, a, d := newInterface(t, version)
					test(t, iface, a, d)
					devicetest.Check(t, d)
				})
			}
		})
	}
}

func TestInterface(t *testing.T) {
	interfaceTestSuite{
		"buffers are secured and released with the commands of the protocol": func(t *testing.T, iface codec.Interface, a *arena.Arena, d *devicetest.Device) {
			slot, err := a.Secure(0, 100)
			assert.OK(t, err)
			assert.Equal(t, slot.Size(), 100)
			assert.OK(t, slot.Release())

			secure, release := wire.V2SecureBuffer, wire.V2ReleaseBuffer
			if iface.Protocol() == codec.V3 {
				secure, release = wire.V3SecureBuffer, wire.V3ReleaseBuffer
			}
			assert.EqualAll(t, d.Commands(), []wire.Command{secure, release})
		},

		"a refused reservation is not a device call failure": func(t *testing.T, iface codec.Interface, a *arena.Arena, d *devicetest.Device) {
			d.FailSecure = unix.ENOMEM

			_, err := a.Secure(1, 100)
			assert.True(t, errors.Is(err, codec.ErrBufferUnavailable))
			assert.True(t, errors.Is(err, unix.ENOMEM))
			assert.False(t, errors.Is(err, codec.ErrDeviceCallFailed))

			_, err = a.TrySecure(1, 100)
			assert.True(t, errors.Is(err, codec.ErrBufferUnavailable))
			assert.False(t, errors.Is(err, codec.ErrDeviceCallFailed))
			assert.Equal(t, a.Stats().Outstanding, 0)
		},

		"a buffer of zero bytes is a small buffer": func(t *testing.T, iface codec.Interface, a *arena.Arena, d *devicetest.Device) {
			s1, err := a.TrySecure(1, 0)
			assert.OK(t, err)
			defer s1.Release()
			s2, err := a.TrySecure(1, 0)
			assert.OK(t, err)
			defer s2.Release()

			assert.Equal(t, s1.Size(), wire.SmallBufferSize)
			assert.Equal(t, s2.Offset(), s1.Offset()+wire.SmallBufferSize)
		},

		"context indexes are assigned by the device": func(t *testing.T, iface codec.Interface, a *arena.Arena, d *devicetest.Device) {
			i1, err := iface.ContextIndex()
			assert.OK(t, err)
			i2, err := iface.ContextIndex()
			assert.OK(t, err)
			assert.Equal(t, i1, 1)
			assert.Equal(t, i2, 2)
		},

		"the catalog blob holds whole elements": func(t *testing.T, iface codec.Interface, a *arena.Arena, d *devicetest.Device) {
			blob, err := iface.Elements(a)
			assert.OK(t, err)
			assert.Equal(t, len(blob), len(d.Elements)*wire.ElementSize)
			assert.Equal(t, a.Stats().Outstanding, 0)

			elements, err := wire.ParseElements(blob)
			assert.OK(t, err)
			assert.DeepEqual(t, elements, d.Elements)
		},

		"a request is consumed by a successful invoke": func(t *testing.T, iface codec.Interface, a *arena.Arena, d *devicetest.Device) {
			ctx, err := iface.ContextIndex()
			assert.OK(t, err)

			c := iface.Codec()
			req := wire.InitRequest{CodecType: wire.Decoder, MediaType: wire.Video, Name: "mpeg4", Video: smallVideo}
			slot, err := a.Secure(ctx, uint32(c.InitRequestSize(&req)))
			assert.OK(t, err)
			c.EncodeInitRequest(slot.Bytes()[:0], &req)

			offset, last, err := iface.Invoke(wire.Init, ctx, slot, 0, true)
			assert.OK(t, err)
			assert.False(t, last)
			assert.False(t, slot.Owned())

			res, err := a.Adopt(offset)
			assert.OK(t, err)
			ack, err := c.DecodeInitResponse(res.Bytes(), wire.Video)
			assert.OK(t, err)
			assert.OK(t, res.Release())
			assert.Equal(t, ack.Status, 0)
			assert.Equal(t, ack.Index, ctx)

			stats := a.Stats()
			assert.Equal(t, stats.Forgotten, 1)
			assert.Equal(t, stats.Released, 1)

			_, _, err = iface.Invoke(wire.Deinit, ctx, nil, 0, false)
			assert.OK(t, err)
		},

		"a request stays owned when the invoke fails": func(t *testing.T, iface codec.Interface, a *arena.Arena, d *devicetest.Device) {
			d.FailInvoke[wire.EncodeAudio] = unix.EIO
			slot, err := a.Secure(1, 64)
			assert.OK(t, err)

			_, _, err = iface.Invoke(wire.EncodeAudio, 1, slot, 0, true)
			assert.Error(t, err, codec.ErrDeviceCallFailed)
			assert.Error(t, err, unix.EIO)
			assert.True(t, slot.Owned())

			var call *codec.CallError
			assert.True(t, errors.As(err, &call))
			assert.Equal(t, call.API, wire.EncodeAudio)
			assert.OK(t, slot.Release())
		},
	}.run(t)
}
