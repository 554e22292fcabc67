package wire

import (
	"fmt"
	"unicode/utf8"

	"github.com/tonkeeper/tongo/boc"

	coreerrors "tonaffiliate/core/errors"
)

// Message is a body with a 32-bit discriminant followed by fixed-layout
// fields. Only types in this package implement it.
type Message interface {
	OpCode() uint32
	store(b *Builder)
	load(s *Slice)
}

var registry = map[uint32]func() Message{}

func register(ctor func() Message) {
	op := ctor().OpCode()
	if _, dup := registry[op]; dup {
		panic(fmt.Sprintf("wire: duplicate op code 0x%08x", op))
	}
	registry[op] = ctor
}

// Encode serializes m with its op code prefix.
func Encode(m Message) (*boc.Cell, error) {
	b := NewBuilder().Uint(uint64(m.OpCode()), 32)
	m.store(b)
	return b.Cell()
}

// MustEncode is Encode for messages whose layout cannot fail, such as test
// fixtures; it panics on error.
func MustEncode(m Message) *boc.Cell {
	c, err := Encode(m)
	if err != nil {
		panic(err)
	}
	return c
}

// Decode reads the op code and dispatches to the matching message type.
// Unknown op codes fail with ErrInvalidMessage.
func Decode(c *boc.Cell) (Message, error) {
	s := NewSlice(c)
	return decodeFrom(s)
}

func decodeFrom(s *Slice) (Message, error) {
	op := uint32(s.Uint(32))
	if s.err != nil {
		return nil, s.err
	}
	ctor, ok := registry[op]
	if !ok {
		return nil, fmt.Errorf("wire: op 0x%08x: %w", op, coreerrors.ErrInvalidMessage)
	}
	m := ctor()
	m.load(s)
	if s.err != nil {
		return nil, s.err
	}
	return m, nil
}

// DecodeInto decodes c into m and fails with ErrInvalidPrefix if the leading
// op code is not m's.
func DecodeInto(c *boc.Cell, m Message) error {
	s := NewSlice(c)
	op := uint32(s.Uint(32))
	if s.err != nil {
		return s.err
	}
	if op != m.OpCode() {
		return fmt.Errorf("wire: got op 0x%08x, want 0x%08x: %w", op, m.OpCode(), coreerrors.ErrInvalidPrefix)
	}
	m.load(s)
	return s.err
}

// PeekOp returns the leading op code without consuming c.
func PeekOp(c *boc.Cell) (uint32, bool) {
	if c == nil {
		return 0, false
	}
	c.ResetCounters()
	defer c.ResetCounters()
	if c.BitsAvailableForRead() < 32 {
		return 0, false
	}
	op, err := c.ReadUint(32)
	if err != nil {
		return 0, false
	}
	return uint32(op), true
}

// BounceBody builds the body returned to the sender of a failed bounceable
// message: 0xFFFFFFFF followed by the original body.
func BounceBody(original *boc.Cell) (*boc.Cell, error) {
	b := NewBuilder().Uint(uint64(OpBounced), 32)
	if b.err != nil {
		return nil, b.err
	}
	if original != nil {
		if err := CopyInto(b.cell, original); err != nil {
			return nil, err
		}
	}
	return b.Cell()
}

// DecodeBounced strips the bounce prefix and decodes the original message.
func DecodeBounced(c *boc.Cell) (Message, error) {
	s := NewSlice(c)
	prefix := uint32(s.Uint(32))
	if s.err != nil {
		return nil, s.err
	}
	if prefix != OpBounced {
		return nil, fmt.Errorf("wire: bounce prefix 0x%08x: %w", prefix, coreerrors.ErrInvalidPrefix)
	}
	return decodeFrom(s)
}

// MaxCommentBytes is the longest comment that fits in a single cell.
const MaxCommentBytes = 123

// TextComment is a plain text message (op 0). Admin Stop/Resume commands may
// arrive this way.
type TextComment struct {
	Text string
}

func (*TextComment) OpCode() uint32 { return OpTextComment }

func (m *TextComment) store(b *Builder) {
	if len(m.Text) > MaxCommentBytes {
		b.fail(fmt.Errorf("wire: comment longer than %d bytes", MaxCommentBytes))
		return
	}
	b.Bytes([]byte(m.Text))
}

func (m *TextComment) load(s *Slice) {
	n := s.BitsLeft() / 8
	raw := s.Bytes(n)
	if s.err != nil {
		return
	}
	if !utf8.Valid(raw) {
		s.failWith(fmt.Errorf("wire: comment is not utf-8: %w", coreerrors.ErrInvalidMessage))
		return
	}
	m.Text = string(raw)
}

func init() {
	register(func() Message { return &TextComment{} })
}
