package wire

import (
	"encoding/binary"
	"fmt"
)

// Command is an ioctl request code understood by the device.
type Command uint32

// Linux generic _IOC encoding.
const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2

	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30

	ioctlMagic = 'C'
)

// Sizes of the ioctl arguments, as encoded in the request codes.
const (
	sizeofInt = 4

	// BufferIDSize is the size of the v2 {buffer_index, buffer_size}
	// argument.
	BufferIDSize = 8
	// InvokeDataSize is the size of the v2 {api_index, ctx_index,
	// mem_offset} argument.
	InvokeDataSize = 12
	// IoctlDataSize is the size of the packed v3 {api_index, ctx_index,
	// mem_offset, buffer_size} argument.
	IoctlDataSize = 16
)

func ioc(dir, nr, size uint32) Command {
	return Command(dir<<iocDirShift | size<<iocSizeShift | ioctlMagic<<iocTypeShift | nr<<iocNRShift)
}

// GetVersion has the same request code in every generation of the protocol
// so the version can be probed before the generation is known.
var GetVersion = ioc(iocRead, 1, sizeofInt)

// Request codes of the second generation of the protocol.
var (
	V2GetElement                = ioc(iocRead, 2, sizeofInt)
	V2GetContextIndex           = ioc(iocRead, 3, sizeofInt)
	V2GetElementData            = ioc(iocRead|iocWrite, 4, sizeofInt)
	V2PutDataIntoBuffer         = ioc(iocRead|iocWrite, 5, BufferIDSize)
	V2SecureBuffer              = ioc(iocRead|iocWrite, 6, BufferIDSize)
	V2TrySecureBuffer           = ioc(iocRead|iocWrite, 7, BufferIDSize)
	V2ReleaseBuffer             = ioc(iocWrite, 8, sizeofInt)
	V2InvokeAPIAndReleaseBuffer = ioc(iocWrite, 9, InvokeDataSize)
)

// Request codes of the third generation of the protocol. Every call except
// GetVersion carries the packed IoctlData argument.
var (
	V3GetElementsSize     = ioc(iocRead, 2, IoctlDataSize)
	V3GetElements         = ioc(iocRead, 3, IoctlDataSize)
	V3GetContextIndex     = ioc(iocRead, 4, IoctlDataSize)
	V3SecureBuffer        = ioc(iocRead|iocWrite, 5, IoctlDataSize)
	V3TrySecureBuffer     = ioc(iocRead|iocWrite, 6, IoctlDataSize)
	V3ReleaseBuffer       = ioc(iocWrite, 7, IoctlDataSize)
	V3InvokeAPIAndGetData = ioc(iocRead|iocWrite, 8, IoctlDataSize)
	V3GetProfileStatus    = ioc(iocRead, 9, IoctlDataSize)
)

type commandInfo struct {
	name    string
	version int
}

var commands = map[Command]commandInfo{
	GetVersion: {"GET_VERSION", 0},

	V2GetElement:                {"GET_ELEMENT", 2},
	V2GetContextIndex:           {"GET_CONTEXT_INDEX", 2},
	V2GetElementData:            {"GET_ELEMENT_DATA", 2},
	V2PutDataIntoBuffer:         {"PUT_DATA_INTO_BUFFER", 2},
	V2SecureBuffer:              {"SECURE_BUFFER", 2},
	V2TrySecureBuffer:           {"TRY_SECURE_BUFFER", 2},
	V2ReleaseBuffer:             {"RELEASE_BUFFER", 2},
	V2InvokeAPIAndReleaseBuffer: {"INVOKE_API_AND_RELEASE_BUFFER", 2},

	V3GetElementsSize:     {"GET_ELEMENTS_SIZE", 3},
	V3GetElements:         {"GET_ELEMENTS", 3},
	V3GetContextIndex:     {"GET_CONTEXT_INDEX", 3},
	V3SecureBuffer:        {"SECURE_BUFFER", 3},
	V3TrySecureBuffer:     {"TRY_SECURE_BUFFER", 3},
	V3ReleaseBuffer:       {"RELEASE_BUFFER", 3},
	V3InvokeAPIAndGetData: {"INVOKE_API_AND_GET_DATA", 3},
	V3GetProfileStatus:    {"GET_PROFILE_STATUS", 3},
}

func (c Command) String() string {
	if info, ok := commands[c]; ok {
		if info.version == 0 {
			return info.name
		}
		return fmt.Sprintf("v%d:%s", info.version, info.name)
	}
	return fmt.Sprintf("Command(%#x)", uint32(c))
}

// Version returns the generation of the protocol the command belongs to,
// zero for commands shared by all generations, and -1 for unknown commands.
func (c Command) Version() int {
	if info, ok := commands[c]; ok {
		return info.version
	}
	return -1
}

// Size returns the size of the command argument.
func (c Command) Size() int {
	return int(c>>iocSizeShift) & 0x3fff
}

// BufferID is the argument of the v2 buffer allocation calls: the caller
// fills the context index and requested size, the device answers with the
// memory offset in Size.
type BufferID struct {
	Index int32
	Size  int32
}

func (b *BufferID) Marshal(arg []byte) {
	binary.LittleEndian.PutUint32(arg[0:], uint32(b.Index))
	binary.LittleEndian.PutUint32(arg[4:], uint32(b.Size))
}

func (b *BufferID) Unmarshal(arg []byte) {
	b.Index = int32(binary.LittleEndian.Uint32(arg[0:]))
	b.Size = int32(binary.LittleEndian.Uint32(arg[4:]))
}

// InvokeData is the argument of the v2 invoke call.
type InvokeData struct {
	APIIndex  API
	CtxIndex  int32
	MemOffset int32
}

func (d *InvokeData) Marshal(arg []byte) {
	binary.LittleEndian.PutUint32(arg[0:], uint32(d.APIIndex))
	binary.LittleEndian.PutUint32(arg[4:], uint32(d.CtxIndex))
	binary.LittleEndian.PutUint32(arg[8:], uint32(d.MemOffset))
}

func (d *InvokeData) Unmarshal(arg []byte) {
	d.APIIndex = API(binary.LittleEndian.Uint32(arg[0:]))
	d.CtxIndex = int32(binary.LittleEndian.Uint32(arg[4:]))
	d.MemOffset = int32(binary.LittleEndian.Uint32(arg[8:]))
}

// IoctlData is the packed argument of every v3 call. BufferSize is an input
// size hint on some calls and carries the result (size, offset or status)
// on return.
type IoctlData struct {
	APIIndex   API
	CtxIndex   int32
	MemOffset  int32
	BufferSize int32
}

func (d *IoctlData) Marshal(arg []byte) {
	binary.LittleEndian.PutUint32(arg[0:], uint32(d.APIIndex))
	binary.LittleEndian.PutUint32(arg[4:], uint32(d.CtxIndex))
	binary.LittleEndian.PutUint32(arg[8:], uint32(d.MemOffset))
	binary.LittleEndian.PutUint32(arg[12:], uint32(d.BufferSize))
}

func (d *IoctlData) Unmarshal(arg []byte) {
	d.APIIndex = API(binary.LittleEndian.Uint32(arg[0:]))
	d.CtxIndex = int32(binary.LittleEndian.Uint32(arg[4:]))
	d.MemOffset = int32(binary.LittleEndian.Uint32(arg[8:]))
	d.BufferSize = int32(binary.LittleEndian.Uint32(arg[12:]))
}
