package wire

import (
	"fmt"
	"math/big"

	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/ton"

	coreerrors "tonaffiliate/core/errors"
)

const (
	// AddressBits is the width of a serialized addr_std without anycast.
	AddressBits = 267
	// MaxCoinsBytes bounds the VarUInteger 16 length prefix.
	MaxCoinsBytes = 15
)

// Builder appends fields to a cell. The first failure sticks and is reported by
// Cell, so callers can chain writes without checking every step.
type Builder struct {
	cell *boc.Cell
	err  error
}

// NewBuilder returns a builder over an empty cell.
func NewBuilder() *Builder {
	return &Builder{cell: boc.NewCell()}
}

func (b *Builder) fail(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

// Uint writes v as an unsigned integer of the given width.
func (b *Builder) Uint(v uint64, bits int) *Builder {
	if b.err == nil {
		b.fail(b.cell.WriteUint(v, bits))
	}
	return b
}

// Int writes v as a two's complement integer of the given width.
func (b *Builder) Int(v int64, bits int) *Builder {
	if b.err == nil {
		b.fail(b.cell.WriteInt(v, bits))
	}
	return b
}

// Bool writes a single bit.
func (b *Builder) Bool(v bool) *Builder {
	if b.err == nil {
		b.fail(b.cell.WriteBit(v))
	}
	return b
}

// Bytes writes raw bytes.
func (b *Builder) Bytes(p []byte) *Builder {
	if b.err == nil && len(p) > 0 {
		b.fail(b.cell.WriteBytes(p))
	}
	return b
}

// BigUint writes a non-negative integer of arbitrary width, most significant
// bit first.
func (b *Builder) BigUint(v *big.Int, bits int) *Builder {
	if b.err != nil {
		return b
	}
	if v == nil {
		v = new(big.Int)
	}
	if v.Sign() < 0 || v.BitLen() > bits {
		b.fail(fmt.Errorf("wire: %s does not fit in %d unsigned bits", v, bits))
		return b
	}
	for i := bits - 1; i >= 0; i-- {
		if err := b.cell.WriteBit(v.Bit(i) == 1); err != nil {
			b.fail(err)
			return b
		}
	}
	return b
}

// Coins writes an amount as VarUInteger 16.
func (b *Builder) Coins(v *big.Int) *Builder {
	if b.err != nil {
		return b
	}
	if v == nil {
		v = new(big.Int)
	}
	if v.Sign() < 0 {
		b.fail(fmt.Errorf("wire: negative coins %s: %w", v, coreerrors.ErrInvalidAmount))
		return b
	}
	n := (v.BitLen() + 7) / 8
	if n > MaxCoinsBytes {
		b.fail(fmt.Errorf("wire: coins %s exceed 120 bits: %w", v, coreerrors.ErrInvalidAmount))
		return b
	}
	b.Uint(uint64(n), 4)
	return b.BigUint(v, n*8)
}

// Address writes an addr_std.
func (b *Builder) Address(a ton.AccountID) *Builder {
	b.Uint(0b10, 2).Bool(false).Int(int64(a.Workchain), 8)
	return b.Bytes(a.Address[:])
}

// MaybeAddress writes addr_none for nil and addr_std otherwise.
func (b *Builder) MaybeAddress(a *ton.AccountID) *Builder {
	if a == nil {
		return b.Uint(0, 2)
	}
	return b.Address(*a)
}

// Ref attaches a child cell.
func (b *Builder) Ref(c *boc.Cell) *Builder {
	if b.err != nil {
		return b
	}
	if c == nil {
		b.fail(fmt.Errorf("wire: nil reference"))
		return b
	}
	b.fail(b.cell.AddRef(c))
	return b
}

// MaybeRef writes a presence bit followed by the reference when c is set.
func (b *Builder) MaybeRef(c *boc.Cell) *Builder {
	if c == nil {
		return b.Bool(false)
	}
	return b.Bool(true).Ref(c)
}

// RefWith builds a child cell with fn and attaches it.
func (b *Builder) RefWith(fn func(*Builder)) *Builder {
	if b.err != nil {
		return b
	}
	child := NewBuilder()
	fn(child)
	c, err := child.Cell()
	if err != nil {
		b.fail(err)
		return b
	}
	return b.Ref(c)
}

// Cell returns the built cell or the first write error.
func (b *Builder) Cell() (*boc.Cell, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cell, nil
}

// Err reports the first write error.
func (b *Builder) Err() error { return b.err }

// Slice reads fields from a cell in the order a Builder wrote them. Like
// Builder, the first failure sticks.
type Slice struct {
	cell *boc.Cell
	err  error
}

// NewSlice rewinds c and returns a reader positioned at its first bit.
func NewSlice(c *boc.Cell) *Slice {
	if c == nil {
		return &Slice{err: fmt.Errorf("wire: nil cell: %w", coreerrors.ErrCellUnderflow)}
	}
	c.ResetCounters()
	return &Slice{cell: c}
}

func (s *Slice) underflow(err error) {
	if s.err == nil && err != nil {
		s.err = fmt.Errorf("%w: %v", coreerrors.ErrCellUnderflow, err)
	}
}

func (s *Slice) failWith(err error) {
	if s.err == nil && err != nil {
		s.err = err
	}
}

// Uint reads an unsigned integer of the given width.
func (s *Slice) Uint(bits int) uint64 {
	if s.err != nil {
		return 0
	}
	v, err := s.cell.ReadUint(bits)
	s.underflow(err)
	return v
}

// Int reads a signed integer of the given width.
func (s *Slice) Int(bits int) int64 {
	if s.err != nil {
		return 0
	}
	v, err := s.cell.ReadInt(bits)
	s.underflow(err)
	return v
}

// Bool reads a single bit.
func (s *Slice) Bool() bool {
	if s.err != nil {
		return false
	}
	v, err := s.cell.ReadBit()
	s.underflow(err)
	return v
}

// Bytes reads n raw bytes.
func (s *Slice) Bytes(n int) []byte {
	if s.err != nil || n == 0 {
		return nil
	}
	v, err := s.cell.ReadBytes(n)
	s.underflow(err)
	return v
}

// BigUint reads an unsigned integer of arbitrary width.
func (s *Slice) BigUint(bits int) *big.Int {
	out := new(big.Int)
	for i := 0; i < bits && s.err == nil; i++ {
		bit, err := s.cell.ReadBit()
		if err != nil {
			s.underflow(err)
			break
		}
		out.Lsh(out, 1)
		if bit {
			out.SetBit(out, 0, 1)
		}
	}
	if s.err != nil {
		return new(big.Int)
	}
	return out
}

// Coins reads a VarUInteger 16 amount.
func (s *Slice) Coins() *big.Int {
	n := s.Uint(4)
	return s.BigUint(int(n) * 8)
}

// Address reads an addr_std. addr_none and anycast addresses are rejected.
func (s *Slice) Address() ton.AccountID {
	a := s.MaybeAddress()
	if a == nil {
		s.failWith(fmt.Errorf("wire: expected address, got addr_none: %w", coreerrors.ErrInvalidAddress))
		return ton.AccountID{}
	}
	return *a
}

// MaybeAddress reads addr_none as nil and addr_std as a value.
func (s *Slice) MaybeAddress() *ton.AccountID {
	tag := s.Uint(2)
	if s.err != nil {
		return nil
	}
	switch tag {
	case 0b00:
		return nil
	case 0b10:
	default:
		s.failWith(fmt.Errorf("wire: unsupported address tag %02b: %w", tag, coreerrors.ErrInvalidAddress))
		return nil
	}
	if s.Bool() {
		s.failWith(fmt.Errorf("wire: anycast addresses unsupported: %w", coreerrors.ErrInvalidAddress))
		return nil
	}
	wc := s.Int(8)
	raw := s.Bytes(32)
	if s.err != nil {
		return nil
	}
	out := ton.AccountID{Workchain: int32(wc)}
	copy(out.Address[:], raw)
	return &out
}

// Ref returns the next child cell, rewound for reading.
func (s *Slice) Ref() *boc.Cell {
	if s.err != nil {
		return nil
	}
	ref, err := s.cell.NextRef()
	if err != nil {
		s.underflow(err)
		return nil
	}
	ref.ResetCounters()
	return ref
}

// MaybeRef reads a presence bit and, when set, the next child cell.
func (s *Slice) MaybeRef() *boc.Cell {
	if !s.Bool() {
		return nil
	}
	return s.Ref()
}

// RefWith reads the next child cell with fn.
func (s *Slice) RefWith(fn func(*Slice)) {
	ref := s.Ref()
	if s.err != nil {
		return
	}
	child := NewSlice(ref)
	fn(child)
	s.failWith(child.err)
}

// BitsLeft reports the unread bits of the current cell.
func (s *Slice) BitsLeft() int {
	if s.cell == nil {
		return 0
	}
	return s.cell.BitsAvailableForRead()
}

// RefsLeft reports the unread references of the current cell.
func (s *Slice) RefsLeft() int {
	if s.cell == nil {
		return 0
	}
	return s.cell.RefsAvailableForRead()
}

// Remainder copies the unread bits and references into a new cell.
func (s *Slice) Remainder() *boc.Cell {
	if s.err != nil {
		return nil
	}
	out := boc.NewCell()
	for s.cell.BitsAvailableForRead() > 0 {
		bit, err := s.cell.ReadBit()
		if err != nil {
			s.underflow(err)
			return nil
		}
		if err := out.WriteBit(bit); err != nil {
			s.failWith(err)
			return nil
		}
	}
	for s.cell.RefsAvailableForRead() > 0 {
		ref, err := s.cell.NextRef()
		if err != nil {
			s.underflow(err)
			return nil
		}
		if err := out.AddRef(ref); err != nil {
			s.failWith(err)
			return nil
		}
	}
	return out
}

// Err reports the first read error.
func (s *Slice) Err() error { return s.err }

// CopyInto appends every bit and reference of src to dst.
func CopyInto(dst, src *boc.Cell) error {
	s := NewSlice(src)
	rest := s.Remainder()
	if s.err != nil {
		return s.err
	}
	rs := NewSlice(rest)
	for rs.BitsLeft() > 0 {
		if err := dst.WriteBit(rs.Bool()); err != nil {
			return err
		}
	}
	for rs.RefsLeft() > 0 {
		if err := dst.AddRef(rs.Ref()); err != nil {
			return err
		}
	}
	return rs.err
}

// IsEmpty reports whether c carries no data at all, i.e. a plain value
// transfer without a body.
func IsEmpty(c *boc.Cell) bool {
	if c == nil {
		return true
	}
	c.ResetCounters()
	return c.BitsAvailableForRead() == 0 && c.RefsAvailableForRead() == 0
}

// Hash returns the representation hash of c.
func Hash(c *boc.Cell) ([32]byte, error) {
	var out [32]byte
	h, err := c.Hash()
	if err != nil {
		return out, err
	}
	copy(out[:], h)
	return out, nil
}

// ToBoc serializes c as a bag of cells.
func ToBoc(c *boc.Cell) ([]byte, error) {
	return c.ToBoc()
}

// FromBoc parses a single-root bag of cells.
func FromBoc(data []byte) (*boc.Cell, error) {
	cells, err := boc.DeserializeBoc(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrCellUnderflow, err)
	}
	if len(cells) != 1 {
		return nil, fmt.Errorf("wire: expected one root cell, got %d", len(cells))
	}
	return cells[0], nil
}

// Clone returns an independent copy of c so concurrent readers never share a
// read cursor.
func Clone(c *boc.Cell) (*boc.Cell, error) {
	if c == nil {
		return nil, nil
	}
	data, err := c.ToBoc()
	if err != nil {
		return nil, err
	}
	return FromBoc(data)
}
