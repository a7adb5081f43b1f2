package diag

import (
	"fmt"
)

type Code uint16

// Stage names the pipeline phase a code range belongs to.
type Stage string

const (
	StageUnknown Stage = "unknown"
	StageLoad    Stage = "load"
	StageLayout  Stage = "layout"
	StageUnify   Stage = "unify"
	StageMap     Stage = "map"
	StageEmit    Stage = "emit"
	StageVerify  Stage = "verify"
	StageDriver  Stage = "driver"
	StagePanic   Stage = "panic"
)

const (
	UnknownCode Code = 0

	// AST loading (LoadError): fatal for the run.
	LoadInfo              Code = 1000
	LoadMalformedDocument Code = 1001
	LoadMissingField      Code = 1002
	LoadUnknownKind       Code = 1003
	LoadInvalidType       Code = 1004
	LoadDuplicateDecl     Code = 1005
	LoadIO                Code = 1006
	LoadPlatformMismatch  Code = 1007
	LoadUnknownPlatform   Code = 1008
	LoadNoPlatforms       Code = 1009

	// Layout calculation (LayoutError): fatal for the node.
	LayoutInfo              Code = 2000
	LayoutMissingDependency Code = 2001
	LayoutRecursive         Code = 2002
	LayoutInvalidArray      Code = 2003
	LayoutProviderMismatch  Code = 2004
	LayoutUnrepresentable   Code = 2005
	LayoutInvariant         Code = 2006

	// Cross-platform unification.
	DivInfo             Code = 3000
	DivLayout           Code = 3001
	DivPartialPlatforms Code = 3002

	// Binding mapping (MappingError): fatal for the node.
	MapInfo                     Code = 4000
	MapUnknownCallingConvention Code = 4001
	MapUnrepresentableType      Code = 4002
	MapVariadicSkipped          Code = 4003
	MapAliasSkipped             Code = 4004
	MapNameCollision            Code = 4005
	MapNameRenamed              Code = 4006
	MapUnresolvedType           Code = 4007

	// Code generation (CodeGenerationError).
	GenInfo            Code = 5000
	GenInvalidMember   Code = 5001
	GenInvalidScaffold Code = 5002

	// Compiler verification findings.
	CmpInfo        Code = 6000
	CmpFinding     Code = 6001
	CmpUnavailable Code = 6002

	// Driver plumbing.
	DrvInfo       Code = 7000
	DrvCacheError Code = 7001

	// Internal faults.
	PanicInternal Code = 9001
)

var (
	codeDescription = map[Code]string{
		UnknownCode: "Unknown error",

		LoadInfo:              "AST load information",
		LoadMalformedDocument: "Malformed AST document",
		LoadMissingField:      "Missing required field in AST document",
		LoadUnknownKind:       "Unknown declaration or type kind",
		LoadInvalidType:       "Invalid type reference",
		LoadDuplicateDecl:     "Duplicate declaration",
		LoadIO:                "Failed to read AST document",
		LoadPlatformMismatch:  "AST platform does not match the requested platform",
		LoadUnknownPlatform:   "Unknown platform triple",
		LoadNoPlatforms:       "No platforms requested",

		LayoutInfo:              "Layout information",
		LayoutMissingDependency: "Referenced type has no calculated layout",
		LayoutRecursive:         "Recursive value type has infinite size",
		LayoutInvalidArray:      "Invalid array length",
		LayoutProviderMismatch:  "Computed layout disagrees with the C front end",
		LayoutUnrepresentable:   "Unrepresentable layout",
		LayoutInvariant:         "Layout invariant violated",

		DivInfo:             "Cross-platform information",
		DivLayout:           "Declaration differs across platforms",
		DivPartialPlatforms: "Declaration is missing on some platforms",

		MapInfo:                     "Mapping information",
		MapUnknownCallingConvention: "Unknown calling convention",
		MapUnrepresentableType:      "Type cannot be represented in C#",
		MapVariadicSkipped:          "Variadic function skipped",
		MapAliasSkipped:             "Type alias skipped",
		MapNameCollision:            "Name collision",
		MapNameRenamed:              "Identifier renamed",
		MapUnresolvedType:           "Unresolved type reference",

		GenInfo:            "Code generation information",
		GenInvalidMember:   "Generated member is not valid C#",
		GenInvalidScaffold: "Document template is not valid C#",

		CmpInfo:        "Compiler information",
		CmpFinding:     "C# compiler finding",
		CmpUnavailable: "C# compiler unavailable",

		DrvInfo:       "Driver information",
		DrvCacheError: "AST cache failure",

		PanicInternal: "Internal error",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LOAD%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("LAY%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("DIV%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("MAP%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("GEN%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("CMP%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("DRV%04d", ic)
	case ic >= 9000 && ic < 10000:
		return fmt.Sprintf("PNC%04d", ic)
	}
	return "E0000"
}

func (c Code) Stage() Stage {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return StageLoad
	case ic >= 2000 && ic < 3000:
		return StageLayout
	case ic >= 3000 && ic < 4000:
		return StageUnify
	case ic >= 4000 && ic < 5000:
		return StageMap
	case ic >= 5000 && ic < 6000:
		return StageEmit
	case ic >= 6000 && ic < 7000:
		return StageVerify
	case ic >= 7000 && ic < 8000:
		return StageDriver
	case ic >= 9000 && ic < 10000:
		return StagePanic
	}
	return StageUnknown
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
