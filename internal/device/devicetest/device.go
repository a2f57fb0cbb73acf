// Package devicetest provides an in-memory codec device for tests.
//
// The device speaks the second or the third generation of the protocol
// depending on the version it reports, keeps the shared memory region in a
// byte slice, and runs a fake codec backend which produces deterministic
// output for every codec function. It records every call it receives and
// flags protocol violations (commands of the wrong generation, releases of
// buffers that were never granted) so tests can verify how the client drives
// it.
package devicetest

import (
	"encoding/binary"
	"fmt"
	"sync"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sys/unix"

	"github.com/stealthrocket/brillcodec/internal/device"
	"github.com/stealthrocket/brillcodec/internal/wire"
)

// Call is the record of one ioctl received by the device.
type Call struct {
	Command wire.Command
	API     wire.API
	Ctx     int32
	Ret     int
	Err     error
}

// Stats are counters of the device activity.
type Stats struct {
	// Buffers secured on request of the client.
	Secured int
	// Buffers released on request of the client.
	Released int
	// Response buffers reserved by the device on behalf of the client.
	Granted int
	// Request buffers freed by the device when invoking a codec function.
	Consumed int
	// Codec functions invoked.
	Invoked int
}

// Device is an in-memory implementation of device.Device.
//
// The exported fields configure the behavior of the device and must be set
// before the device is handed to the code under test.
type Device struct {
	// Version is the value reported by GET_VERSION.
	Version int32
	// Elements is the capability catalog of the device.
	Elements []wire.CodecElement
	// ProfileStatus is the value reported by GET_PROFILE_STATUS.
	ProfileStatus int32
	// InitStatus is the status answered to init requests for known codecs.
	InitStatus int32
	// LastBuffer makes every response buffer the last available one.
	LastBuffer bool
	// DuplicateContextIndex makes GET_CONTEXT_INDEX answer the previously
	// assigned index.
	DuplicateContextIndex bool

	// Fault injection: a non-nil error fails the matching calls.
	FailMmap         error
	FailSecure       error
	FailContextIndex error
	FailInvoke       map[wire.API]error

	mutex      sync.Mutex
	memory     []byte
	blocks     map[uint32]uint32
	indices    map[int32]bool
	streams    map[int32]*stream
	pending    map[int32][]byte
	lastIndex  int32
	closed     bool
	calls      []Call
	stats      Stats
	violations []string
}

// New constructs a device reporting the given version with the default
// catalog.
func New(version int32) *Device {
	return &Device{
		Version:    version,
		Elements:   DefaultElements(),
		FailInvoke: make(map[wire.API]error),
		blocks:     make(map[uint32]uint32),
		indices:    make(map[int32]bool),
		streams:    make(map[int32]*stream),
		pending:    make(map[int32][]byte),
	}
}

// DefaultElements returns the catalog of devices created by New.
func DefaultElements() []wire.CodecElement {
	none := int32(-1)
	return []wire.CodecElement{
		{
			CodecType: wire.Decoder,
			MediaType: wire.Video,
			Name:      "h264",
			LongName:  "H.264 / AVC / MPEG-4 AVC / MPEG-4 part 10",
			Formats:   [4]int32{wire.PixFmtYUV420P, none, none, none},
		},
		{
			CodecType: wire.Decoder,
			MediaType: wire.Video,
			Name:      "mpeg4",
			LongName:  "MPEG-4 part 2",
			Formats:   [4]int32{wire.PixFmtYUV420P, none, none, none},
		},
		{
			CodecType: wire.Decoder,
			MediaType: wire.Audio,
			Name:      "aac",
			LongName:  "AAC (Advanced Audio Coding)",
			Formats:   [4]int32{wire.SampleFmtFltP, none, none, none},
		},
		{
			CodecType: wire.Decoder,
			MediaType: wire.Audio,
			Name:      "mp3",
			LongName:  "MP3 (MPEG audio layer 3)",
			Formats:   [4]int32{wire.SampleFmtS16P, none, none, none},
		},
		{
			CodecType: wire.Encoder,
			MediaType: wire.Video,
			Name:      "h263",
			LongName:  "H.263 / H.263-1996",
			Formats:   [4]int32{wire.PixFmtYUV420P, none, none, none},
		},
		{
			CodecType: wire.Encoder,
			MediaType: wire.Audio,
			Name:      "ac3",
			LongName:  "ATSC A/52A (AC-3)",
			Formats:   [4]int32{wire.SampleFmtFltP, none, none, none},
		},
	}
}

// Protocol returns the generation of the protocol spoken by the device.
func (d *Device) Protocol() int {
	if d.Version >= 3 {
		return 3
	}
	return 2
}

func (d *Device) Mmap(size int) ([]byte, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	switch {
	case d.closed:
		return nil, device.ErrClosed
	case d.memory != nil:
		return nil, device.ErrMapped
	case d.FailMmap != nil:
		return nil, &device.Error{Op: "mmap", Path: "devicetest", Err: d.FailMmap}
	}
	d.memory = make([]byte, size)
	return d.memory, nil
}

func (d *Device) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.closed = true
	return nil
}

func (d *Device) Ioctl(req uint32, arg []byte) (int, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	call := Call{Command: wire.Command(req)}
	call.Ret, call.Err = d.ioctl(call.Command, arg, &call)
	d.calls = append(d.calls, call)
	return call.Ret, call.Err
}

func (d *Device) ioctl(cmd wire.Command, arg []byte, call *Call) (int, error) {
	if d.closed {
		return -1, device.ErrClosed
	}
	switch v := cmd.Version(); {
	case v < 0:
		d.violationf("unknown command %s", cmd)
		return -1, unix.ENOTTY
	case v > 0 && v != d.Protocol():
		d.violationf("%s sent to a v%d device", cmd, d.Protocol())
		return -1, unix.ENOTTY
	}
	if len(arg) < cmd.Size() {
		d.violationf("%s with a %d bytes argument", cmd, len(arg))
		return -1, unix.EFAULT
	}
	if cmd == wire.GetVersion {
		binary.LittleEndian.PutUint32(arg, uint32(d.Version))
		return 0, nil
	}
	if d.Protocol() == 2 {
		return d.ioctlV2(cmd, arg, call)
	}
	return d.ioctlV3(cmd, arg, call)
}

func (d *Device) ioctlV2(cmd wire.Command, arg []byte, call *Call) (int, error) {
	switch cmd {
	case wire.V2GetElement:
		binary.LittleEndian.PutUint32(arg, uint32(len(d.catalog())))
		return 0, nil

	case wire.V2GetElementData:
		blob := d.catalog()
		if len(arg) < len(blob) {
			return -1, unix.EFAULT
		}
		copy(arg, blob)
		return 0, nil

	case wire.V2GetContextIndex:
		index, err := d.newIndex()
		if err != nil {
			return -1, err
		}
		call.Ctx = index
		binary.LittleEndian.PutUint32(arg, uint32(index))
		return 0, nil

	case wire.V2SecureBuffer, wire.V2TrySecureBuffer:
		var id wire.BufferID
		id.Unmarshal(arg)
		call.Ctx = id.Index
		if id.Size < 0 {
			return -1, unix.EINVAL
		}
		offset, err := d.secure(uint32(id.Size))
		if err != nil {
			return -1, err
		}
		id.Size = int32(offset)
		id.Marshal(arg)
		return 0, nil

	case wire.V2ReleaseBuffer:
		return d.release(binary.LittleEndian.Uint32(arg))

	case wire.V2InvokeAPIAndReleaseBuffer:
		var data wire.InvokeData
		data.Unmarshal(arg)
		call.API, call.Ctx = data.APIIndex, data.CtxIndex
		res, err := d.invoke(data.APIIndex, data.CtxIndex, data.MemOffset, 0)
		if err != nil {
			return -1, err
		}
		if res != nil {
			d.pending[data.CtxIndex] = res
		}
		return 0, nil

	case wire.V2PutDataIntoBuffer:
		var id wire.BufferID
		id.Unmarshal(arg)
		call.Ctx = id.Index
		res, ok := d.pending[id.Index]
		if !ok {
			return -1, unix.ENODATA
		}
		delete(d.pending, id.Index)
		offset, err := d.grant(res)
		if err != nil {
			return -1, err
		}
		id.Size = int32(offset)
		id.Marshal(arg)
		return d.last(), nil
	}
	return -1, unix.ENOTTY
}

func (d *Device) ioctlV3(cmd wire.Command, arg []byte, call *Call) (int, error) {
	var data wire.IoctlData
	data.Unmarshal(arg)
	call.Ctx = data.CtxIndex
	ret := 0

	switch cmd {
	case wire.V3GetElementsSize:
		data.BufferSize = int32(len(d.catalog()))

	case wire.V3GetElements:
		blob := d.catalog()
		block, ok := d.block(data.MemOffset)
		if !ok || len(block) < len(blob) || int(data.BufferSize) < len(blob) {
			d.violationf("%s into buffer at offset %d which cannot hold %d bytes", cmd, data.MemOffset, len(blob))
			return -1, unix.EFAULT
		}
		copy(block, blob)

	case wire.V3GetContextIndex:
		index, err := d.newIndex()
		if err != nil {
			return -1, err
		}
		data.CtxIndex, call.Ctx = index, index

	case wire.V3SecureBuffer, wire.V3TrySecureBuffer:
		if data.BufferSize < 0 {
			return -1, unix.EINVAL
		}
		offset, err := d.secure(uint32(data.BufferSize))
		if err != nil {
			return -1, err
		}
		data.MemOffset = int32(offset)

	case wire.V3ReleaseBuffer:
		return d.release(uint32(data.MemOffset))

	case wire.V3InvokeAPIAndGetData:
		call.API = data.APIIndex
		res, err := d.invoke(data.APIIndex, data.CtxIndex, data.MemOffset, data.BufferSize)
		if err != nil {
			return -1, err
		}
		if res != nil {
			offset, err := d.grant(res)
			if err != nil {
				return -1, err
			}
			data.BufferSize = int32(offset)
			ret = d.last()
		}

	case wire.V3GetProfileStatus:
		data.BufferSize = d.ProfileStatus

	default:
		return -1, unix.ENOTTY
	}

	data.Marshal(arg)
	return ret, nil
}

func (d *Device) catalog() []byte {
	var blob []byte
	for i := range d.Elements {
		blob = wire.AppendElement(blob, &d.Elements[i])
	}
	return blob
}

func (d *Device) newIndex() (int32, error) {
	if d.FailContextIndex != nil {
		return -1, d.FailContextIndex
	}
	if !d.DuplicateContextIndex || d.lastIndex == 0 {
		d.lastIndex++
	}
	d.indices[d.lastIndex] = true
	return d.lastIndex, nil
}

func (d *Device) last() int {
	if d.LastBuffer {
		return 1
	}
	return 0
}

// secure reserves size bytes at the lowest offset where they fit.
func (d *Device) secure(size uint32) (uint32, error) {
	if d.FailSecure != nil {
		return 0, d.FailSecure
	}
	offset, err := d.reserve(size)
	if err != nil {
		return 0, err
	}
	d.stats.Secured++
	return offset, nil
}

func (d *Device) grant(b []byte) (uint32, error) {
	offset, err := d.reserve(uint32(len(b)))
	if err != nil {
		return 0, err
	}
	copy(d.memory[offset:], b)
	d.stats.Granted++
	return offset, nil
}

func (d *Device) reserve(size uint32) (uint32, error) {
	if size == 0 {
		size = wire.SmallBufferSize
	}
	offsets := maps.Keys(d.blocks)
	slices.Sort(offsets)

	next := uint32(0)
	for _, offset := range offsets {
		if offset-next >= size {
			break
		}
		next = offset + d.blocks[offset]
	}
	if uint64(next)+uint64(size) > uint64(len(d.memory)) {
		return 0, unix.ENOMEM
	}
	d.blocks[next] = size
	return next, nil
}

func (d *Device) release(offset uint32) (int, error) {
	if _, ok := d.blocks[offset]; !ok {
		d.violationf("release of buffer at offset %d which is not reserved", offset)
		return -1, unix.EINVAL
	}
	delete(d.blocks, offset)
	d.stats.Released++
	return 0, nil
}

func (d *Device) block(offset int32) ([]byte, bool) {
	if offset < 0 {
		return nil, false
	}
	size, ok := d.blocks[uint32(offset)]
	if !ok {
		return nil, false
	}
	return d.memory[offset : uint32(offset)+size], true
}

func (d *Device) violationf(msg string, args ...any) {
	d.violations = append(d.violations, fmt.Sprintf(msg, args...))
}

// Calls returns the log of calls received by the device.
func (d *Device) Calls() []Call {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return slices.Clone(d.calls)
}

// Commands returns the request codes of the calls received by the device.
func (d *Device) Commands() []wire.Command {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	commands := make([]wire.Command, len(d.calls))
	for i, call := range d.calls {
		commands[i] = call.Command
	}
	return commands
}

// Count returns the number of calls received with the given request code.
func (d *Device) Count(cmd wire.Command) int {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	n := 0
	for _, call := range d.calls {
		if call.Command == cmd {
			n++
		}
	}
	return n
}

// Invocations returns the number of times the codec function was invoked,
// including the failed invocations.
func (d *Device) Invocations(api wire.API) int {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	n := 0
	for _, call := range d.calls {
		if isInvoke(call.Command) && call.API == api {
			n++
		}
	}
	return n
}

func isInvoke(cmd wire.Command) bool {
	return cmd == wire.V2InvokeAPIAndReleaseBuffer || cmd == wire.V3InvokeAPIAndGetData
}

// Contexts returns the number of context indexes assigned by the device
// which were not given back with a deinit.
func (d *Device) Contexts() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.indices)
}

func (d *Device) Stats() Stats {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.stats
}

// Outstanding returns the number of buffers currently reserved.
func (d *Device) Outstanding() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.blocks)
}

func (d *Device) Violations() []string {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return slices.Clone(d.violations)
}

// Mapped reports whether the shared memory region was mapped.
func (d *Device) Mapped() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.memory != nil
}

// Fill overwrites the whole shared memory with b, as the device does when it
// reuses buffers for other contexts.
func (d *Device) Fill(b byte) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	for i := range d.memory {
		d.memory[i] = b
	}
}

func (d *Device) Closed() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.closed
}

// Dump returns a human readable rendition of the call log.
func (d *Device) Dump() string {
	return spew.Sdump(d.Calls())
}

// Check fails the test if the device saw protocol violations or if buffers
// are still reserved, and dumps the call log when it does.
func Check(t testing.TB, d *Device) {
	t.Helper()
	failed := false
	for _, v := range d.Violations() {
		t.Errorf("protocol violation: %s", v)
		failed = true
	}
	if n := d.Outstanding(); n != 0 {
		t.Errorf("%d buffers still reserved on the device", n)
		failed = true
	}
	if failed {
		t.Log(d.Dump())
	}
}

var _ device.Device = (*Device)(nil)
