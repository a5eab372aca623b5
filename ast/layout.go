package ast

// ---------------------------------------------------------------------------
// Block layouts
//
// Every node is a fixed-size header followed by its child regions. Fields are
// either a whole block or one half of a block split at bit 26:
//
//	 31      26 25                       0
//	+----------+--------------------------+
//	|  count   |         offset           |
//	+----------+--------------------------+
//
// Node         Blocks  Layout
// IdentOffset  1       [offset]
// Argument     2       [start] [end]
// Import       3       [module] [name] [alias]
// Code         1       [name]
// Method       1       [argc|name]                         + argc*Argument
// Template     3       [argc|name] [methods] [children]    + argc*Argument + Method* + Statement*
// Spawn        3       [name] [methods] [children]         + Method* + Statement*
// Statement    1       [kind]                              + Spawn | Template | Code
// Fn           2       [params|name] [body]                + params*IdentOffset + Statement
// ChirpFile    2       [imports] [root]                    + imports*Import + Fn* + Statement
//
// [methods], [children] and [body] are region lengths in blocks. [root] is
// the block index of the root statement relative to the file header.
// ---------------------------------------------------------------------------

// Block is the unit of storage of the AST buffer.
type Block = uint32

// Offset is a byte offset into the parsed input.
type Offset uint32

// Absent marks an optional offset that is not present.
const Absent Offset = ^Offset(0)

const (
	splitBits = 26
	lowerMask = 1<<splitBits - 1

	// MaxOffset is the largest byte offset a split block can hold.
	MaxOffset = lowerMask
	// MaxCount is the largest argument or parameter count of a single node.
	MaxCount = 1<<(32-splitBits) - 1
)

// Fixed node sizes in blocks.
const (
	IdentOffsetSize = 1
	ArgumentSize    = 2
	ImportSize      = 3
	CodeSize        = 1
	methodHeader    = 1
	templateHeader  = 3
	spawnHeader     = 3
	statementHeader = 1
	fnHeader        = 2
	fileHeader      = 2
)

func split(upper, lower uint32) Block {
	return upper<<splitBits | lower&lowerMask
}

func upper(b Block) uint32 { return b >> splitBits }
func lower(b Block) uint32 { return b & lowerMask }

// StatementKind discriminates the variants of a Statement.
type StatementKind uint32

const (
	KindSpawn StatementKind = iota
	KindTemplate
	KindCode
)

func (k StatementKind) String() string {
	switch k {
	case KindSpawn:
		return "spawn"
	case KindTemplate:
		return "template"
	case KindCode:
		return "code"
	}
	return "unknown"
}

func decodeKind(b Block) StatementKind {
	k := StatementKind(b)
	if k > KindCode {
		panic("ast: unknown statement discriminant")
	}
	return k
}

// ---------------------------------------------------------------------------
// Headers
// ---------------------------------------------------------------------------

// Header is the fixed-size prefix of a node.
type Header interface {
	// Blocks is the header size. It must not depend on the receiver's value.
	Blocks() int
	encode(dst []Block)
}

type IdentOffsetHeader struct {
	Offset Offset
}

func (IdentOffsetHeader) Blocks() int { return IdentOffsetSize }
func (h IdentOffsetHeader) encode(dst []Block) {
	dst[0] = Block(h.Offset)
}

type ArgumentHeader struct {
	Start, End Offset
}

func (ArgumentHeader) Blocks() int { return ArgumentSize }
func (h ArgumentHeader) encode(dst []Block) {
	dst[0] = Block(h.Start)
	dst[1] = Block(h.End)
}

type ImportHeader struct {
	Module Offset
	Name   Offset
	Alias  Offset // Absent when the item has no `as` clause
}

func (ImportHeader) Blocks() int { return ImportSize }
func (h ImportHeader) encode(dst []Block) {
	dst[0] = Block(h.Module)
	dst[1] = Block(h.Name)
	dst[2] = Block(h.Alias)
}

type CodeHeader struct {
	Name Offset
}

func (CodeHeader) Blocks() int { return CodeSize }
func (h CodeHeader) encode(dst []Block) {
	dst[0] = Block(h.Name)
}

type MethodHeader struct {
	Name     Offset
	ArgCount uint32
}

func (MethodHeader) Blocks() int { return methodHeader }
func (h MethodHeader) encode(dst []Block) {
	dst[0] = split(h.ArgCount, uint32(h.Name))
}

type TemplateHeader struct {
	Name        Offset
	ArgCount    uint32
	MethodsLen  uint32
	ChildrenLen uint32
}

func (TemplateHeader) Blocks() int { return templateHeader }
func (h TemplateHeader) encode(dst []Block) {
	dst[0] = split(h.ArgCount, uint32(h.Name))
	dst[1] = h.MethodsLen
	dst[2] = h.ChildrenLen
}

type SpawnHeader struct {
	Name        Offset // Absent for anonymous spawns
	MethodsLen  uint32
	ChildrenLen uint32
}

func (SpawnHeader) Blocks() int { return spawnHeader }
func (h SpawnHeader) encode(dst []Block) {
	dst[0] = Block(h.Name)
	dst[1] = h.MethodsLen
	dst[2] = h.ChildrenLen
}

type StatementHeader struct {
	Kind StatementKind
}

func (StatementHeader) Blocks() int { return statementHeader }
func (h StatementHeader) encode(dst []Block) {
	dst[0] = Block(h.Kind)
}

type FnHeader struct {
	Name       Offset
	ParamCount uint32
	BodyLen    uint32
}

func (FnHeader) Blocks() int { return fnHeader }
func (h FnHeader) encode(dst []Block) {
	dst[0] = split(h.ParamCount, uint32(h.Name))
	dst[1] = h.BodyLen
}

type FileHeader struct {
	ImportCount uint32
	RootOffset  uint32
}

func (FileHeader) Blocks() int { return fileHeader }
func (h FileHeader) encode(dst []Block) {
	dst[0] = h.ImportCount
	dst[1] = h.RootOffset
}
