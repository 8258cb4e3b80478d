// Package loader parses OneImage binary images and installs them into a
// vm.VM: header validation, RAM layout, and the image-width selection that
// drives every width-sensitive opcode.
package loader

import (
	"encoding/binary"
	"fmt"

	"github.com/lookbusy1344/arm-emulator/vm"
)

const headerSize = 40

// Header is the fixed 40-byte OneImage header, little-endian throughout.
type Header struct {
	Sig0    byte
	Sig1    byte
	Version byte
	Flags   byte

	CbCode            uint32
	CbInitializedData uint32
	CbZeroFilledData  uint32
	CbStack           uint32
	LoRamRequired     uint32
	HiRamRequired     uint32 // only meaningful when ImageWidth() == 8
	LoInitialPC       uint32
	HiInitialPC       uint32
}

// ImageWidth returns the address/operand width (2, 4, or 8 bytes) selected
// by the low two bits of Flags.
func (h *Header) ImageWidth() (uint8, error) {
	switch h.Flags & 0x3 {
	case 0:
		return vm.ImageWidth2, nil
	case 1:
		return vm.ImageWidth4, nil
	case 2:
		return vm.ImageWidth8, nil
	default:
		return 0, fmt.Errorf("unsupported image width flags: %#x", h.Flags&0x3)
	}
}

// RamRequired combines the lo/hi required-RAM fields. The hi half only
// applies to 64-bit images; for narrower images it must be zero.
func (h *Header) RamRequired() uint64 {
	return uint64(h.LoRamRequired) | uint64(h.HiRamRequired)<<32
}

// InitialPC combines the lo/hi initial-PC fields.
func (h *Header) InitialPC() uint64 {
	return uint64(h.LoInitialPC) | uint64(h.HiInitialPC)<<32
}

// ParseHeader reads and validates the 40-byte header from the front of an
// image. It never allocates RAM or touches a vm.VM — callers must check the
// returned error before doing anything else with the image.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("image too short: need %d header bytes, got %d", headerSize, len(data))
	}

	h := &Header{
		Sig0:    data[0],
		Sig1:    data[1],
		Version: data[2],
		Flags:   data[3],

		CbCode:            binary.LittleEndian.Uint32(data[8:12]),
		CbInitializedData: binary.LittleEndian.Uint32(data[12:16]),
		CbZeroFilledData:  binary.LittleEndian.Uint32(data[16:20]),
		CbStack:           binary.LittleEndian.Uint32(data[20:24]),
		LoRamRequired:     binary.LittleEndian.Uint32(data[24:28]),
		HiRamRequired:     binary.LittleEndian.Uint32(data[28:32]),
		LoInitialPC:       binary.LittleEndian.Uint32(data[32:36]),
		HiInitialPC:       binary.LittleEndian.Uint32(data[36:40]),
	}

	if h.Sig0 != 'O' || h.Sig1 != 'I' {
		return nil, fmt.Errorf("bad image signature: %q", []byte{h.Sig0, h.Sig1})
	}
	if h.Version != 1 {
		return nil, fmt.Errorf("unsupported image version: %d", h.Version)
	}
	if _, err := h.ImageWidth(); err != nil {
		return nil, err
	}

	return h, nil
}

// Layout records where each region of a loaded image landed in RAM, for
// hosts that want to report it (debugger symbol windows, RAM inspectors).
type Layout struct {
	ImageWidth uint8

	CodeStart uint64
	DataStart uint64
	ZeroStart uint64
	HeapStart uint64
	StackTop  uint64

	EntryPC uint64
}

// LoadImage parses an OI image, lays it out in RAM, and resets machine to
// start execution at the header's initial PC. A malformed header is
// rejected before any RAM is allocated or vm.VM state is touched, matching
// the host's "never enters execute on a bad image" contract.
func LoadImage(machine *vm.VM, data []byte) (*Layout, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	width, err := h.ImageWidth()
	if err != nil {
		return nil, err
	}

	codeStart := uint64(0)
	dataStart := codeStart + uint64(h.CbCode)
	zeroStart := dataStart + uint64(h.CbInitializedData)
	heapStart := zeroStart + uint64(h.CbZeroFilledData)
	stackBytes := uint64(h.CbStack)
	required := h.RamRequired()

	memSize := heapStart + stackBytes
	if required > memSize {
		memSize = required
	}
	if memSize == 0 {
		return nil, fmt.Errorf("image declares zero RAM requirement")
	}

	body := data[headerSize:]
	bodyLen := uint64(h.CbCode) + uint64(h.CbInitializedData)
	if uint64(len(body)) < bodyLen {
		return nil, fmt.Errorf("image body truncated: need %d bytes of code+data, got %d", bodyLen, len(body))
	}

	initialPC := h.InitialPC()
	initialSP := heapStart + stackBytes

	machine.Reset(memSize, initialPC, initialSP, width)

	if _, ok := machine.RamInformation(required, width); !ok {
		return nil, fmt.Errorf("RAM arena too small for image: need %d bytes", required)
	}

	if err := machine.Memory.LoadBytes(codeStart, body[:bodyLen]); err != nil {
		return nil, fmt.Errorf("failed to load code+data into RAM: %w", err)
	}

	machine.SetHeapBase(heapStart)

	return &Layout{
		ImageWidth: width,
		CodeStart:  codeStart,
		DataStart:  dataStart,
		ZeroStart:  zeroStart,
		HeapStart:  heapStart,
		StackTop:   initialSP,
		EntryPC:    initialPC,
	}, nil
}

// BuildImage assembles a 40-byte header plus code+initialized-data body into
// a single OI image byte slice, the inverse of ParseHeader/LoadImage. It is
// used by the reference assembler (encoder package) once it has produced
// code bytes and an initialized-data blob, and by tests that want to
// construct images without going through a source file.
func BuildImage(width uint8, code, initializedData []byte, cbZeroFilledData, cbStack, ramRequired uint32, initialPC uint64) ([]byte, error) {
	var flags byte
	switch width {
	case vm.ImageWidth2:
		flags = 0
	case vm.ImageWidth4:
		flags = 1
	case vm.ImageWidth8:
		flags = 2
	default:
		return nil, fmt.Errorf("unsupported image width: %d", width)
	}

	buf := make([]byte, headerSize+len(code)+len(initializedData))
	buf[0] = 'O'
	buf[1] = 'I'
	buf[2] = 1
	buf[3] = flags

	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(code)))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(initializedData)))
	binary.LittleEndian.PutUint32(buf[16:20], cbZeroFilledData)
	binary.LittleEndian.PutUint32(buf[20:24], cbStack)
	binary.LittleEndian.PutUint32(buf[24:28], ramRequired)
	binary.LittleEndian.PutUint32(buf[28:32], 0)
	binary.LittleEndian.PutUint32(buf[32:36], uint32(initialPC))
	binary.LittleEndian.PutUint32(buf[36:40], uint32(initialPC>>32))

	copy(buf[headerSize:], code)
	copy(buf[headerSize+len(code):], initializedData)

	return buf, nil
}
