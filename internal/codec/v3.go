package codec

import (
	"github.com/stealthrocket/brillcodec/internal/arena"
	"github.com/stealthrocket/brillcodec/internal/device"
	"github.com/stealthrocket/brillcodec/internal/wire"
)

// v3 is the third generation of the protocol. Every call carries the same
// packed argument, requests are prefixed with their size, and the device
// answers a codec function in the same call that invokes it.
type v3 struct {
	dev device.Device
}

func (*v3) Protocol() Protocol { return V3 }

func (*v3) Codec() wire.Codec { return wire.V3 }

func (i *v3) call(cmd wire.Command, data *wire.IoctlData) (int, error) {
	var arg [wire.IoctlDataSize]byte
	data.Marshal(arg[:])
	api := noAPI
	if cmd == wire.V3InvokeAPIAndGetData {
		api = data.APIIndex
	}
	ret, err := ioctl(i.dev, cmd, api, arg[:])
	if err != nil {
		return ret, err
	}
	data.Unmarshal(arg[:])
	return ret, nil
}

func (i *v3) SecureBuffer(ctxIndex int32, size uint32) (uint32, error) {
	return i.secure(wire.V3SecureBuffer, ctxIndex, size)
}

func (i *v3) TrySecureBuffer(ctxIndex int32, size uint32) (uint32, error) {
	return i.secure(wire.V3TrySecureBuffer, ctxIndex, size)
}

func (i *v3) secure(cmd wire.Command, ctxIndex int32, size uint32) (uint32, error) {
	data := wire.IoctlData{CtxIndex: ctxIndex, MemOffset: wire.NoOffset, BufferSize: int32(size)}
	if _, err := i.call(cmd, &data); err != nil {
		return 0, secureError(err)
	}
	offset, err := checkOffset(cmd, noAPI, data.MemOffset)
	return offset, secureError(err)
}

func (i *v3) ReleaseBuffer(offset uint32) error {
	data := wire.IoctlData{MemOffset: int32(offset)}
	_, err := i.call(wire.V3ReleaseBuffer, &data)
	return err
}

func (i *v3) ContextIndex() (int32, error) {
	data := wire.IoctlData{CtxIndex: -1, MemOffset: wire.NoOffset}
	if _, err := i.call(wire.V3GetContextIndex, &data); err != nil {
		return -1, err
	}
	return data.CtxIndex, nil
}

// Elements has the device write the catalog in a buffer of the arena, from
// where it is copied out.
func (i *v3) Elements(a *arena.Arena) (blob []byte, err error) {
	data := wire.IoctlData{MemOffset: wire.NoOffset}
	if _, err := i.call(wire.V3GetElementsSize, &data); err != nil {
		return nil, err
	}
	size := data.BufferSize
	if size <= 0 {
		return nil, nil
	}

	slot, err := a.Secure(0, uint32(size))
	if err != nil {
		return nil, err
	}
	defer release(slot, &err)

	data = wire.IoctlData{MemOffset: int32(slot.Offset()), BufferSize: size}
	if _, err := i.call(wire.V3GetElements, &data); err != nil {
		return nil, err
	}
	return append([]byte(nil), slot.Bytes()[:size]...), nil
}

func (i *v3) ProfileStatus() (int32, error) {
	data := wire.IoctlData{MemOffset: wire.NoOffset}
	if _, err := i.call(wire.V3GetProfileStatus, &data); err != nil {
		return 0, err
	}
	return data.BufferSize, nil
}

func (i *v3) Invoke(api wire.API, ctx int32, req *arena.Slot, hint int32, response bool) (uint32, bool, error) {
	data := wire.IoctlData{APIIndex: api, CtxIndex: ctx, MemOffset: wire.NoOffset, BufferSize: hint}
	if req != nil {
		data.MemOffset = int32(req.Offset())
	}
	ret, err := i.call(wire.V3InvokeAPIAndGetData, &data)
	if err != nil {
		return 0, false, err
	}
	req.Forget()
	if !response {
		return 0, false, nil
	}
	offset, err := checkOffset(wire.V3InvokeAPIAndGetData, api, data.BufferSize)
	return offset, ret == 1, err
}

var _ Interface = (*v3)(nil)
