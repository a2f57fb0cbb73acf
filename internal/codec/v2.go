package codec

import (
	"encoding/binary"

	"github.com/stealthrocket/brillcodec/internal/arena"
	"github.com/stealthrocket/brillcodec/internal/device"
	"github.com/stealthrocket/brillcodec/internal/wire"
)

// v2 is the second generation of the protocol. Each call has its own
// argument layout, the device releases the request buffer when a codec
// function is invoked, and the response is fetched with a separate call.
type v2 struct {
	dev device.Device
}

func (*v2) Protocol() Protocol { return V2 }

func (*v2) Codec() wire.Codec { return wire.V2 }

func (i *v2) SecureBuffer(ctxIndex int32, size uint32) (uint32, error) {
	return i.secure(wire.V2SecureBuffer, ctxIndex, size)
}

func (i *v2) TrySecureBuffer(ctxIndex int32, size uint32) (uint32, error) {
	return i.secure(wire.V2TrySecureBuffer, ctxIndex, size)
}

func (i *v2) secure(cmd wire.Command, ctxIndex int32, size uint32) (uint32, error) {
	var arg [wire.BufferIDSize]byte
	id := wire.BufferID{Index: ctxIndex, Size: int32(size)}
	id.Marshal(arg[:])
	if _, err := ioctl(i.dev, cmd, noAPI, arg[:]); err != nil {
		return 0, secureError(err)
	}
	id.Unmarshal(arg[:])
	offset, err := checkOffset(cmd, noAPI, id.Size)
	return offset, secureError(err)
}

func (i *v2) ReleaseBuffer(offset uint32) error {
	var arg [4]byte
	binary.LittleEndian.PutUint32(arg[:], offset)
	_, err := ioctl(i.dev, wire.V2ReleaseBuffer, noAPI, arg[:])
	return err
}

func (i *v2) ContextIndex() (int32, error) {
	var arg [4]byte
	if _, err := ioctl(i.dev, wire.V2GetContextIndex, noAPI, arg[:]); err != nil {
		return -1, err
	}
	return int32(binary.LittleEndian.Uint32(arg[:])), nil
}

// Elements copies the catalog straight into memory of the process; the
// second generation does not go through the arena.
func (i *v2) Elements(*arena.Arena) ([]byte, error) {
	var arg [4]byte
	if _, err := ioctl(i.dev, wire.V2GetElement, noAPI, arg[:]); err != nil {
		return nil, err
	}
	size := int32(binary.LittleEndian.Uint32(arg[:]))
	if size <= 0 {
		return nil, nil
	}
	// The request code advertises an int argument, the device writes the
	// whole catalog.
	blob := make([]byte, max(int(size), 4))
	if _, err := ioctl(i.dev, wire.V2GetElementData, noAPI, blob); err != nil {
		return nil, err
	}
	return blob[:size], nil
}

func (*v2) ProfileStatus() (int32, error) {
	return 0, errProfileStatus
}

func (i *v2) Invoke(api wire.API, ctx int32, req *arena.Slot, hint int32, response bool) (uint32, bool, error) {
	var arg [wire.InvokeDataSize]byte
	data := wire.InvokeData{APIIndex: api, CtxIndex: ctx, MemOffset: wire.NoOffset}
	if req != nil {
		data.MemOffset = int32(req.Offset())
	}
	data.Marshal(arg[:])
	if _, err := ioctl(i.dev, wire.V2InvokeAPIAndReleaseBuffer, api, arg[:]); err != nil {
		return 0, false, err
	}
	req.Forget()
	if !response {
		return 0, false, nil
	}

	var put [wire.BufferIDSize]byte
	id := wire.BufferID{Index: ctx, Size: hint}
	id.Marshal(put[:])
	ret, err := ioctl(i.dev, wire.V2PutDataIntoBuffer, api, put[:])
	if err != nil {
		return 0, false, err
	}
	id.Unmarshal(put[:])
	offset, err := checkOffset(wire.V2PutDataIntoBuffer, api, id.Size)
	return offset, ret == 1, err
}

var _ Interface = (*v2)(nil)
