package wire

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/tlb"

	coreerrors "tonaffiliate/core/errors"
)

// rawValue carries a pre-built dictionary leaf value. Encoding splices its
// bits and references into the leaf; decoding captures whatever follows the
// leaf label.
type rawValue struct {
	cell *boc.Cell
}

func (v rawValue) MarshalTLB(c *boc.Cell, _ *tlb.Encoder) error {
	if v.cell == nil {
		return nil
	}
	return CopyInto(c, v.cell)
}

func (v *rawValue) UnmarshalTLB(c *boc.Cell, _ *tlb.Decoder) error {
	s := &Slice{cell: c}
	v.cell = s.Remainder()
	return s.err
}

// StoreDict writes m as a HashmapE 32 keyed by the unsigned key. Keys are
// emitted in ascending order so equal maps always yield identical cells.
func StoreDict[V any](b *Builder, m map[uint32]V, store func(*Builder, V)) *Builder {
	if b.err != nil {
		return b
	}
	keys := make([]uint32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	tkeys := make([]tlb.Uint32, 0, len(keys))
	values := make([]rawValue, 0, len(keys))
	for _, k := range keys {
		vb := NewBuilder()
		store(vb, m[k])
		cell, err := vb.Cell()
		if err != nil {
			b.fail(fmt.Errorf("wire: dict key %d: %w", k, err))
			return b
		}
		tkeys = append(tkeys, tlb.Uint32(k))
		values = append(values, rawValue{cell: cell})
	}
	dict := tlb.NewHashmapE(tkeys, values)
	b.fail(tlb.Marshal(b.cell, &dict))
	return b
}

// LoadDict reads a HashmapE 32 written by StoreDict. The result is never nil.
func LoadDict[V any](s *Slice, load func(*Slice) V) map[uint32]V {
	out := make(map[uint32]V)
	if s.err != nil {
		return out
	}
	var dict tlb.HashmapE[tlb.Uint32, rawValue]
	if err := tlb.Unmarshal(s.cell, &dict); err != nil {
		s.failWith(fmt.Errorf("%w: dictionary: %v", coreerrors.ErrCellUnderflow, err))
		return out
	}
	keys := dict.Keys()
	values := dict.Values()
	for i, k := range keys {
		vs := NewSlice(values[i].cell)
		v := load(vs)
		if vs.err != nil {
			s.failWith(fmt.Errorf("wire: dict key %d: %w", uint32(k), vs.err))
			return out
		}
		out[uint32(k)] = v
	}
	return out
}

// CoinsDict writes a uint32 → coins dictionary.
func (b *Builder) CoinsDict(m map[uint32]*big.Int) *Builder {
	return StoreDict(b, m, func(vb *Builder, v *big.Int) { vb.Coins(v) })
}

// CoinsDict reads a uint32 → coins dictionary.
func (s *Slice) CoinsDict() map[uint32]*big.Int {
	return LoadDict(s, func(vs *Slice) *big.Int { return vs.Coins() })
}
