// Package loader decodes a Wasm binary into reef's internal *wasm.Module,
// lowering control-flow instructions along the way (spec §4.1).
package loader

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/reefwasm/reef/internal/leb128"
	"github.com/reefwasm/reef/internal/validator"
	"github.com/reefwasm/reef/internal/wasm"
)

// ParseBytes decodes an entire in-memory Wasm binary into a *wasm.Module.
// The bytes are first handed to the validator driver (spec §4.2) for
// structural/type checking; only then does the loader build its own IR.
func ParseBytes(bin []byte) (*wasm.Module, error) {
	if err := validator.Validate(bin); err != nil {
		return nil, err
	}
	return decode(bin)
}

// ParseReader decodes a Wasm binary read from r. It reads the whole input
// into memory first and then hands it to ParseBytes, since validation
// requires the complete bytes.
func ParseReader(r io.Reader) (*wasm.Module, error) {
	bin, err := io.ReadAll(r)
	if err != nil {
		return nil, &wasm.ParseError{Reason: fmt.Sprintf("io: %v", err)}
	}
	return ParseBytes(bin)
}

func decode(bin []byte) (*wasm.Module, error) {
	if len(bin) < 8 {
		return nil, &wasm.ParseError{Reason: "binary too short for header"}
	}
	magic := binary.LittleEndian.Uint32(bin[0:4])
	version := binary.LittleEndian.Uint32(bin[4:8])
	if magic != wasmMagic {
		return nil, &wasm.ParseError{Reason: "bad magic number, not a Wasm binary"}
	}
	if version != wasmVersion {
		return nil, &wasm.UnsupportedFeatureError{Feature: "component model or unsupported binary version"}
	}

	m := &wasm.Module{}
	var funcTypeIdx []uint32
	seen := map[sectionID]bool{}
	br := bufio.NewReader(&sliceReader{bin[8:]})

	for {
		idByte, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &wasm.ParseError{Reason: fmt.Sprintf("io: %v", err)}
		}
		id := sectionID(idByte)
		size, _, err := leb128.DecodeUint32(br)
		if err != nil {
			return nil, &wasm.ParseError{Reason: fmt.Sprintf("section size: %v", err)}
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(br, payload); err != nil {
			return nil, &wasm.ParseError{Reason: fmt.Sprintf("section payload: %v", err)}
		}

		if !id.known() {
			return nil, &wasm.UnsupportedSectionError{ID: idByte}
		}
		if id == sectionCustom {
			// ignored entirely, including duplicates (spec §4.1).
			continue
		}
		if seen[id] {
			return nil, &wasm.DuplicateSectionError{Section: id.String()}
		}
		seen[id] = true

		c := newCursor(payload)
		switch id {
		case sectionType:
			m.Types, err = decodeTypeSection(c)
		case sectionImport:
			m.Imports, err = decodeImportSection(c, m.Types)
		case sectionFunction:
			funcTypeIdx, err = decodeFunctionSection(c)
		case sectionTable:
			m.Tables, err = decodeTableSection(c)
		case sectionMemory:
			m.Memories, err = decodeMemorySection(c)
		case sectionGlobal:
			m.Globals, err = decodeGlobalSection(c, m.Types)
		case sectionExport:
			m.Exports, err = decodeExportSection(c)
		case sectionStart:
			m.StartFuncIndex, err = decodeStartSection(c)
			m.HasStartFunc = err == nil
		case sectionElement:
			m.Elements, err = decodeElementSection(c, m.Types)
		case sectionDataCount:
			_, err = c.u32() // informational only; reef doesn't pre-size Data.
		case sectionCode:
			err = decodeCodeSection(c, m, funcTypeIdx)
		case sectionData:
			m.Data, err = decodeDataSection(c, m.Types)
		}
		if err != nil {
			return nil, err
		}
	}

	if len(funcTypeIdx) > 0 && m.Functions == nil {
		return nil, &wasm.ParseError{Reason: "function section present without a matching code section"}
	}
	m.FunctionTypeIndex = funcTypeIdx
	return m, nil
}

// decodeCodeSection decodes every function body and attaches each one's
// resolved *wasm.FunctionType from funcTypeIdx (populated by the function
// section, which always precedes code in a valid module).
func decodeCodeSection(c *cursor, m *wasm.Module, funcTypeIdx []uint32) error {
	count, err := c.u32()
	if err != nil {
		return err
	}
	if int(count) != len(funcTypeIdx) {
		return &wasm.ValidationError{Reason: "code section entry count does not match function section"}
	}
	m.Functions = make([]*wasm.FunctionBody, count)
	for i := uint32(0); i < count; i++ {
		bodySize, err := c.u32()
		if err != nil {
			return err
		}
		bodyBytes, err := c.bytes(int(bodySize))
		if err != nil {
			return err
		}
		if int(funcTypeIdx[i]) >= len(m.Types) {
			return &wasm.ValidationError{Reason: "function type index out of range"}
		}
		ft := m.Types[funcTypeIdx[i]]
		bc := newCursor(bodyBytes)
		body, err := decodeFunctionBody(bc, ft, m.Types, "")
		if err != nil {
			return err
		}
		if !bc.eof() {
			return &wasm.EndNotReachedError{}
		}
		m.Functions[i] = body
	}
	return nil
}

// sliceReader adapts a []byte to io.Reader without copying, used as the
// bufio.Reader's underlying source so section-size/id reads can use the
// io.ByteReader-based leb128 decoders uniformly for both ParseBytes and
// ParseReader.
type sliceReader struct{ b []byte }

func (s *sliceReader) Read(p []byte) (int, error) {
	if len(s.b) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.b)
	s.b = s.b[n:]
	return n, nil
}
