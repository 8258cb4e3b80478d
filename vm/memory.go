package vm

import (
	"fmt"
)

// Memory is the single contiguous RAM arena OI addresses in [0, len(Data)).
// Unlike the ARM teacher's segmented Memory, OI has no permission regions:
// Memory is one flat byte array; address-space violations are a bug
// of the image, not a runtime-trapped condition.
type Memory struct {
	Data []byte

	AccessCount uint64
	ReadCount   uint64
	WriteCount  uint64
}

// NewMemory allocates an empty arena; call Resize before use.
func NewMemory() *Memory {
	return &Memory{}
}

// Resize (re)allocates the arena to the given size, zero-filled.
func (m *Memory) Resize(size uint64) {
	m.Data = make([]byte, size)
}

// Reset zero-fills the existing arena without reallocating, and clears
// access counters.
func (m *Memory) Reset() {
	for i := range m.Data {
		m.Data[i] = 0
	}
	m.AccessCount = 0
	m.ReadCount = 0
	m.WriteCount = 0
}

// Size returns the arena length in bytes.
func (m *Memory) Size() uint64 {
	return uint64(len(m.Data))
}

func (m *Memory) checkBounds(address uint64, size uint8) error {
	if address+uint64(size) > m.Size() {
		return fmt.Errorf("memory access out of range: address 0x%X size %d exceeds RAM size 0x%X", address, size, m.Size())
	}
	return nil
}

// ReadByte reads one byte.
func (m *Memory) ReadByte(address uint64) (byte, error) {
	if err := m.checkBounds(address, 1); err != nil {
		return 0, err
	}
	m.AccessCount++
	m.ReadCount++
	return m.Data[address], nil
}

// WriteByte writes one byte.
func (m *Memory) WriteByte(address uint64, v byte) error {
	if err := m.checkBounds(address, 1); err != nil {
		return err
	}
	m.AccessCount++
	m.WriteCount++
	m.Data[address] = v
	return nil
}

// ReadWidth reads a little-endian unsigned value of the given byte width
// (1, 2, 4, or 8) from address. This is the single width-typed accessor the
// dispatcher uses for every operand-width-sensitive opcode ("macros for
// width-specialized access" -> runtime dispatch, not build-time OI2/OI4/OI8
// specialization).
func (m *Memory) ReadWidth(address uint64, width uint8) (uint64, error) {
	if err := m.checkBounds(address, width); err != nil {
		return 0, err
	}
	var v uint64
	for i := uint8(0); i < width; i++ {
		v |= uint64(m.Data[address+uint64(i)]) << (8 * i)
	}
	m.AccessCount++
	m.ReadCount++
	return v, nil
}

// WriteWidth writes a little-endian unsigned value truncated to the given
// byte width at address.
func (m *Memory) WriteWidth(address uint64, v uint64, width uint8) error {
	if err := m.checkBounds(address, width); err != nil {
		return err
	}
	for i := uint8(0); i < width; i++ {
		m.Data[address+uint64(i)] = byte(v >> (8 * i))
	}
	m.AccessCount++
	m.WriteCount++
	return nil
}

// ReadSignedWidth reads a width-byte value and sign-extends it to a native
// int64.
func (m *Memory) ReadSignedWidth(address uint64, width uint8) (int64, error) {
	v, err := m.ReadWidth(address, width)
	if err != nil {
		return 0, err
	}
	return signExtend(v, width), nil
}

// ReadImageWord reads a value at image width (the width used for in-image
// pointers, code-embedded immediates and data ("image-width word").
func (m *Memory) ReadImageWord(address uint64, imageWidth uint8) (uint64, error) {
	return m.ReadWidth(address, imageWidth)
}

// WriteImageWord writes a value at image width.
func (m *Memory) WriteImageWord(address uint64, v uint64, imageWidth uint8) error {
	return m.WriteWidth(address, v, imageWidth)
}

// LoadBytes copies data into the arena starting at address, or returns an
// error if the data would run past the end of the arena (the arena is not
// grown). Used by the loader when staging code/initialized data.
func (m *Memory) LoadBytes(address uint64, data []byte) error {
	end := address + uint64(len(data))
	if end > m.Size() {
		return fmt.Errorf("program extends past RAM size: need 0x%X, have 0x%X", end, m.Size())
	}
	copy(m.Data[address:end], data)
	return nil
}

// signExtend interprets the low `width` bytes of v as a signed integer of
// that width and sign-extends it to int64.
func signExtend(v uint64, width uint8) int64 {
	if width >= 8 {
		return int64(v)
	}
	bits := uint(8 * width)
	shift := 64 - bits
	return int64(v<<shift) >> shift
}

// sizeofWidthField maps a 2-bit width field (0..3) to a byte count (1,2,4,8),
// width(B) = B & 3.
func sizeofWidthField(field uint8) uint8 {
	switch field & 0x3 {
	case 0:
		return 1
	case 1:
		return 2
	case 2:
		return 4
	default:
		return 8
	}
}
