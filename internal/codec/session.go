// Package codec implements the client side of the codec device.
//
// A Session owns the device and the memory region shared with it. Codec
// contexts created from the session run their functions on the device by
// writing requests in the shared memory and reading the responses back:
//
//	s, err := codec.Open("/dev/brillcodec")
//	...
//	c, err := s.NewContext()
//	...
//	err = c.Init(element, codec.Params{Video: video})
//	...
//	res, picture, err := c.DecodeVideoPicture(0, 0, frame)
//
// All the calls are synchronous; a session serializes the exchanges of its
// contexts with the device.
package codec

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/stealthrocket/brillcodec/internal/arena"
	"github.com/stealthrocket/brillcodec/internal/buffer"
	"github.com/stealthrocket/brillcodec/internal/device"
	"github.com/stealthrocket/brillcodec/internal/wire"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger of the session. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithBufferPool sets the pool that pictures are copied to when they cannot
// be left in shared memory.
func WithBufferPool(pool *buffer.Pool) Option {
	return func(s *Session) { s.pool = pool }
}

// WithMemorySize overrides the size of the shared memory region. Zero keeps
// the default size of the protocol.
func WithMemorySize(size int) Option {
	return func(s *Session) { s.memorySize = size }
}

// WithNonBlocking makes the session reserve request buffers without waiting.
// When the device has no memory left, calls fail with ErrBufferUnavailable
// instead of blocking until other contexts release their buffers.
func WithNonBlocking(enable bool) Option {
	return func(s *Session) { s.nonBlocking = enable }
}

// Session is an open codec device.
type Session struct {
	id          uuid.UUID
	dev         device.Device
	version     int32
	protocol    Protocol
	memorySize  int
	nonBlocking bool
	pool        *buffer.Pool
	logger      *slog.Logger

	mutex    sync.Mutex
	endpoint endpoint
	contexts map[int32]*Context
	catalog  *Catalog
	closed   bool
}

// Open opens the device at path.
func Open(path string, opts ...Option) (*Session, error) {
	dev, err := device.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	return OpenDevice(dev, opts...)
}

// OpenDevice opens a session on dev. The session takes ownership of the
// device, which is closed if the session cannot be opened.
//
// The version of the device is checked before the shared memory is mapped,
// a device speaking an unsupported protocol is never mapped.
func OpenDevice(dev device.Device, opts ...Option) (*Session, error) {
	s := &Session{
		id:       uuid.New(),
		dev:      dev,
		contexts: make(map[int32]*Context),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pool == nil {
		s.pool = new(buffer.Pool)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if err := s.open(); err != nil {
		dev.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) open() error {
	var arg [4]byte
	if _, err := ioctl(s.dev, wire.GetVersion, noAPI, arg[:]); err != nil {
		return fmt.Errorf("%w: querying version: %w", ErrDeviceUnavailable, err)
	}
	s.version = int32(binary.LittleEndian.Uint32(arg[:]))

	protocol, err := ProtocolOf(s.version)
	if err != nil {
		return err
	}
	s.protocol = protocol

	size := s.memorySize
	if size <= 0 {
		size = protocol.MemorySize()
	}
	memory, err := s.dev.Mmap(size)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	s.memorySize = len(memory)

	iface := NewInterface(protocol, s.dev)
	s.endpoint = endpoint{
		iface:       iface,
		arena:       arena.New(iface, memory, wire.SmallBufferSize),
		nonBlocking: s.nonBlocking,
	}
	s.logger = s.logger.With(
		slog.String("session", s.id.String()),
		slog.String("protocol", protocol.String()),
	)
	s.logger.Debug("codec device opened",
		slog.Int("version", int(s.version)),
		slog.Int("memory", s.memorySize),
		slog.Bool("nonblocking", s.nonBlocking))
	return nil
}

// ID returns the unique identifier of the session.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Version returns the version reported by the device.
func (s *Session) Version() int32 {
	return s.version
}

// Protocol returns the generation of the protocol spoken with the device.
func (s *Session) Protocol() Protocol {
	return s.protocol
}

// MemorySize returns the size of the shared memory region.
func (s *Session) MemorySize() int {
	return s.memorySize
}

// ArenaStats returns the counters of the shared memory reservations.
func (s *Session) ArenaStats() arena.Stats {
	return s.endpoint.arena.Stats()
}

// Catalog returns the codecs advertised by the device. The catalog is read
// from the device on the first call only.
func (s *Session) Catalog() (*Catalog, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.catalog != nil {
		return s.catalog, nil
	}
	if s.closed {
		return nil, ErrSessionClosed
	}
	blob, err := s.endpoint.iface.Elements(s.endpoint.arena)
	if err != nil {
		return nil, fmt.Errorf("reading codec elements: %w", err)
	}
	elements, err := wire.ParseElements(blob)
	if err != nil {
		return nil, fmt.Errorf("parsing codec elements: %w", err)
	}
	s.catalog = NewCatalog(elements)
	s.logger.Debug("codec elements read", slog.Int("count", len(elements)))
	return s.catalog, nil
}

// Elements returns the list of codecs advertised by the device.
func (s *Session) Elements() ([]wire.CodecElement, error) {
	c, err := s.Catalog()
	if err != nil {
		return nil, err
	}
	return c.Elements(), nil
}

// ProfileStatus returns the profiling status of the device. Devices speaking
// the second generation of the protocol do not support it, the error then
// matches errors.ErrUnsupported.
func (s *Session) ProfileStatus() (int32, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return 0, ErrSessionClosed
	}
	return s.endpoint.iface.ProfileStatus()
}

// NewContext asks the device for a context index and returns the context,
// which must be initialized before running codec functions. The index is
// held on the device until Deinit is called, even if Init never succeeds.
func (s *Session) NewContext() (*Context, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	index, err := s.endpoint.iface.ContextIndex()
	if err != nil {
		s.logger.Warn("context allocation failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrContextAllocationFailed, err)
	}
	if _, inUse := s.contexts[index]; inUse {
		s.logger.Warn("device assigned a context index already in use", slog.Int("context", int(index)))
		return nil, fmt.Errorf("%w: index %d is already in use", ErrContextAllocationFailed, index)
	}
	c := &Context{
		session: s,
		index:   index,
		state:   StateInitializing,
		logger:  s.logger.With(slog.Int("context", int(index))),
	}
	s.contexts[index] = c
	c.logger.Debug("context allocated")
	return c, nil
}

// Contexts returns the number of contexts which were not deinitialized.
func (s *Session) Contexts() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.contexts)
}

// Close unmaps the shared memory and closes the device. It fails while
// contexts are open or pictures still reference the shared memory; closing
// a closed session is a no-op.
func (s *Session) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil
	}
	if n := len(s.contexts); n != 0 {
		return fmt.Errorf("closing codec session: %w: %d", ErrContextsOpen, n)
	}
	if n := s.endpoint.arena.Stats().Outstanding; n != 0 {
		return fmt.Errorf("closing codec session: %w: %d", ErrPicturesOutstanding, n)
	}
	s.closed = true
	s.logger.Debug("codec device closed")
	return s.dev.Close()
}
