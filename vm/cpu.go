package vm

// CPU represents the OneImage register file and the scalar width state that
// every width-sensitive opcode consults.
type CPU struct {
	// R holds the 8 machine-word registers. Index with RZERO..RTMP, never
	// with a raw offset the way the original C source indexes from the
	// struct base — reg(op) selects an array slot, nothing more.
	R [RegisterCount]uint64

	// ImageWidth is the byte width of addresses/operands in the loaded
	// image: 2, 4, or 8.
	ImageWidth uint8

	// ImageShift is log2(ImageWidth): 1, 2, or 3.
	ImageShift uint8

	// AddressMask wraps image-width-narrow addresses into
	// [0, 2^(8*ImageWidth)).
	AddressMask uint64

	// ThreeByteLen is 1+ImageWidth, the byte length of a class-2 instruction.
	ThreeByteLen uint8

	// Cycles counts retired instructions (condition-false skips included,
	// matching the teacher's IncrementCycles-per-Step convention).
	Cycles uint64
}

// NewCPU creates a CPU with all registers zeroed.
func NewCPU() *CPU {
	return &CPU{}
}

// Reset zeroes the register file and installs the given image width.
func (c *CPU) Reset(imageWidth uint8) {
	for i := range c.R {
		c.R[i] = 0
	}
	c.Cycles = 0
	c.SetImageWidth(imageWidth)
}

// SetImageWidth installs image_width, image_shift, address_mask and
// three_byte_len for the given width.
func (c *CPU) SetImageWidth(width uint8) {
	c.ImageWidth = width
	c.ImageShift = ImageShiftForWidth(width)
	c.ThreeByteLen = 1 + width
	if uint(width) >= 8 {
		c.AddressMask = ^uint64(0)
	} else {
		c.AddressMask = (uint64(1) << (8 * width)) - 1
	}
}

// GetRegister reads register index i. RZERO always reads as 0.
func (c *CPU) GetRegister(i int) uint64 {
	if i == RZERO {
		return 0
	}
	return c.R[i]
}

// SetRegister writes register index i. A write to RZERO is discarded.
func (c *CPU) SetRegister(i int, v uint64) {
	if i == RZERO {
		return
	}
	c.R[i] = v
}

// MaskAddress wraps an address into the image's address space.
func (c *CPU) MaskAddress(addr uint64) uint64 {
	return addr & c.AddressMask
}

// MaskImageWord truncates v to the current image width, leaving the high
// bytes zero. This is the width the image's own words are stored at; it is
// distinct from AddressMask only when a caller mixes pointer and data math.
func (c *CPU) MaskImageWord(v uint64) uint64 {
	return maskWidth(v, c.ImageWidth)
}

// maskWidth truncates v to the low `width` bytes.
func maskWidth(v uint64, width uint8) uint64 {
	if width >= 8 {
		return v
	}
	return v & ((uint64(1) << (8 * width)) - 1)
}

// IncrementCycles advances the retired-instruction counter.
func (c *CPU) IncrementCycles(n uint64) {
	c.Cycles += n
}
