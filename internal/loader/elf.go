// Package loader implements parsing an ELF64 application image,
// copying its PT_LOAD segments into a single contiguous buffer, and
// applying R_X86_64_RELATIVE relocations against wherever that buffer
// ends up living. Applications are position-independent
// executables with no dynamic symbol imports — the only relocation
// class this loader needs to understand is the addend-only RELATIVE
// one glibc-free static-PIE binaries emit for their own internal
// pointers.
//
// It uses debug/elf plus encoding/binary for the pieces debug/elf
// doesn't expose (raw relocation entries), %w-wrapped errors, and a
// single explicit span computation over PT_LOAD segments rather than
// per-segment allocations.
package loader

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync/atomic"

	"fomos/internal/klog"
)

// relX8664Relative is R_X86_64_RELATIVE: the only relocation type a
// static-PIE application image may contain.
const relX8664Relative = 8

const relaEntrySize = 24 // le64 offset, le64 info, le64 addend

// Image is a fully loaded, relocated application: one contiguous,
// identity-addressable buffer plus the entry point's offset into it.
type Image struct {
	Bytes       []byte
	EntryOffset uint64
	PID         uint64
}

var nextPID atomic.Uint64

// Load parses the ELF64 image in r, copies every PT_LOAD segment into a
// single buffer sized to span the lowest to highest loaded virtual
// address, applies every R_X86_64_RELATIVE relocation in .rela.dyn
// against loadBase (the guest-physical address the caller intends to
// place Bytes at), and assigns the image the next monotonic process id.
func Load(r io.ReaderAt, loadBase uint64) (*Image, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("loader: open ELF: %w", err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 {
		return nil, errors.New("loader: not a 64-bit ELF")
	}
	if f.Machine != elf.EM_X86_64 {
		return nil, fmt.Errorf("loader: unsupported machine %v, want x86-64", f.Machine)
	}

	minVaddr, maxVaddr, ok := loadSpan(f)
	if !ok {
		return nil, errors.New("loader: no PT_LOAD segments")
	}
	span := maxVaddr - minVaddr
	if span > math.MaxInt {
		return nil, fmt.Errorf("loader: image span %#x exceeds host limits", span)
	}

	buf := make([]byte, span)
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Filesz == 0 {
			continue
		}
		off := prog.Vaddr - minVaddr
		if off+prog.Filesz > uint64(len(buf)) {
			return nil, fmt.Errorf("loader: segment at %#x overruns image buffer", prog.Vaddr)
		}
		if _, err := prog.ReadAt(buf[off:off+prog.Filesz], 0); err != nil {
			return nil, fmt.Errorf("loader: read segment @%#x: %w", prog.Vaddr, err)
		}
	}

	if err := applyRelocations(f, buf, minVaddr, loadBase); err != nil {
		return nil, err
	}

	if f.Entry < minVaddr || f.Entry >= maxVaddr {
		return nil, fmt.Errorf("loader: entry %#x outside loaded span [%#x, %#x)", f.Entry, minVaddr, maxVaddr)
	}

	return &Image{
		Bytes:       buf,
		EntryOffset: f.Entry - minVaddr,
		PID:         nextPID.Add(1),
	}, nil
}

// loadSpan returns the lowest vaddr and the highest vaddr+memsz across
// every PT_LOAD segment.
func loadSpan(f *elf.File) (minVaddr, maxVaddr uint64, ok bool) {
	first := true
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Memsz == 0 {
			continue
		}
		if first || prog.Vaddr < minVaddr {
			minVaddr = prog.Vaddr
		}
		if end := prog.Vaddr + prog.Memsz; first || end > maxVaddr {
			maxVaddr = end
		}
		first = false
	}
	return minVaddr, maxVaddr, !first
}

// applyRelocations decodes every entry of .rela.dyn and, for each
// R_X86_64_RELATIVE entry, writes loadBase+addend as a little-endian
// uint64 at the relocation's offset within buf. Any other relocation
// type is logged and skipped rather than rejected: it is a sign of a
// mis-built app, not a reason to abort an otherwise loadable image.
func applyRelocations(f *elf.File, buf []byte, minVaddr, loadBase uint64) error {
	sec := f.Section(".rela.dyn")
	if sec == nil {
		return nil // no dynamic relocations: a fully static, non-PIE image
	}
	data, err := sec.Data()
	if err != nil {
		return fmt.Errorf("loader: read .rela.dyn: %w", err)
	}
	if len(data)%relaEntrySize != 0 {
		return fmt.Errorf("loader: .rela.dyn size %d not a multiple of %d", len(data), relaEntrySize)
	}
	for i := 0; i < len(data); i += relaEntrySize {
		entry := data[i : i+relaEntrySize]
		offset := binary.LittleEndian.Uint64(entry[0:8])
		info := binary.LittleEndian.Uint64(entry[8:16])
		addend := int64(binary.LittleEndian.Uint64(entry[16:24]))

		relType := uint32(info)
		if relType != relX8664Relative {
			klog.Put("loader: skipping unsupported relocation type ")
			klog.PutUint32(relType)
			klog.Put(" at offset ")
			klog.PutHex64(offset)
			klog.Puts("")
			continue
		}
		off := offset - minVaddr
		if off+8 > uint64(len(buf)) {
			return fmt.Errorf("loader: relocation offset %#x outside image buffer", offset)
		}
		value := loadBase + uint64(addend)
		binary.LittleEndian.PutUint64(buf[off:off+8], value)
	}
	return nil
}
