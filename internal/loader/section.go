package loader

// sectionID is the one-byte section discriminant defined by the Wasm binary
// format, declared in numeric ID order. The loader rejects a repeated
// non-Custom section but does not check the order in which sections appear.
type sectionID byte

const (
	sectionCustom sectionID = iota
	sectionType
	sectionImport
	sectionFunction
	sectionTable
	sectionMemory
	sectionGlobal
	sectionExport
	sectionStart
	sectionElement
	sectionCode
	sectionData
	sectionDataCount
)

func (id sectionID) known() bool {
	return id <= sectionDataCount
}

func (id sectionID) String() string {
	switch id {
	case sectionCustom:
		return "custom"
	case sectionType:
		return "type"
	case sectionImport:
		return "import"
	case sectionFunction:
		return "function"
	case sectionTable:
		return "table"
	case sectionMemory:
		return "memory"
	case sectionGlobal:
		return "global"
	case sectionExport:
		return "export"
	case sectionStart:
		return "start"
	case sectionElement:
		return "element"
	case sectionCode:
		return "code"
	case sectionData:
		return "data"
	case sectionDataCount:
		return "datacount"
	default:
		return "unknown"
	}
}

const (
	wasmMagic   = uint32(0x6d736100) // "\0asm" little-endian
	wasmVersion = uint32(1)
)
