package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// scanner
	LexInfo                     Code = 1000
	LexUnterminatedString       Code = 1001
	LexUnterminatedChar         Code = 1002
	LexUnterminatedBlockComment Code = 1003
	LexUnbalancedDelimiter      Code = 1004
	LexUnclosedDelimiter        Code = 1005
	LexEmptyExpression          Code = 1006

	// parser
	SynInfo                Code = 2000
	SynUnknownDirective    Code = 2001
	SynUnclosedBlock       Code = 2002
	SynExpectBrace         Code = 2003
	SynExpectString        Code = 2004
	SynExpectIdentifier    Code = 2005
	SynUnclosedComment     Code = 2006
	SynUnclosedRaw         Code = 2007
	SynUnclosedTag         Code = 2008
	SynMismatchedTag       Code = 2009
	SynBadAttribute        Code = 2010
	SynBadMatchArm         Code = 2011
	SynNestingTooDeep      Code = 2012
	SynStrayElse           Code = 2013
	SynBadDirectiveArgs    Code = 2014
	SynDirectivePosition   Code = 2015
	SynUnexpectedCloseTag  Code = 2016
	SynEmptyHead           Code = 2017

	// analysis
	SemaInfo                Code = 3000
	SemaMissingComponent    Code = 3001
	SemaMissingParam        Code = 3002
	SemaUnknownParam        Code = 3003
	SemaBodyUnused          Code = 3004
	SemaExpectedBody        Code = 3005
	SemaSectionUnused       Code = 3006
	SemaSectionUndefined    Code = 3007
	SemaUnusedImport        Code = 3008
	SemaDuplicateImport     Code = 3009
	SemaImplausibleExpr     Code = 3010
	SemaUnknownField        Code = 3011
	SemaLoopControlOutside  Code = 3012
	SemaDuplicateSection    Code = 3013
	SemaDuplicateParam      Code = 3014
	SemaBodyNotRendered     Code = 3015
	SemaChildrenInPage      Code = 3016
	SemaDuplicateAttribute  Code = 3017

	// resolution / IO
	ResInfo            Code = 4000
	ResFileNotFound    Code = 4001
	ResCycle           Code = 4002
	ResChainTooLong    Code = 4003
	ResLoadError       Code = 4004
	ResMultipleExtends Code = 4005

	// code generation
	GenInfo                Code = 5000
	GenUnresolvedComponent Code = 5001
	GenSpliceDepth         Code = 5002

	// observability
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode:                 "Unknown error",
	LexInfo:                     "Scanner information",
	LexUnterminatedString:       "Unterminated string literal",
	LexUnterminatedChar:         "Unterminated character literal",
	LexUnterminatedBlockComment: "Unterminated block comment",
	LexUnbalancedDelimiter:      "Unbalanced delimiter",
	LexUnclosedDelimiter:        "Unclosed delimiter",
	LexEmptyExpression:          "Empty expression",
	SynInfo:                     "Parser information",
	SynUnknownDirective:         "Unknown directive",
	SynUnclosedBlock:            "Block never closed",
	SynExpectBrace:              "Expected '{'",
	SynExpectString:             "Expected string literal",
	SynExpectIdentifier:         "Expected identifier",
	SynUnclosedComment:          "Unclosed template comment",
	SynUnclosedRaw:              "Missing @endraw",
	SynUnclosedTag:              "Unclosed component tag",
	SynMismatchedTag:            "Mismatched closing tag",
	SynBadAttribute:             "Malformed attribute",
	SynBadMatchArm:              "Malformed match arm",
	SynNestingTooDeep:           "Nesting too deep",
	SynStrayElse:                "'else' without 'if'",
	SynBadDirectiveArgs:         "Malformed directive arguments",
	SynDirectivePosition:        "Directive not allowed here",
	SynUnexpectedCloseTag:       "Closing tag without opening tag",
	SynEmptyHead:                "Empty control head",
	SemaInfo:                    "Analysis information",
	SemaMissingComponent:        "Missing component",
	SemaMissingParam:            "Missing component parameter",
	SemaUnknownParam:            "Unknown component parameter",
	SemaBodyUnused:              "Defined body unused",
	SemaExpectedBody:            "Expected body",
	SemaSectionUnused:           "Section never rendered",
	SemaSectionUndefined:        "Rendered section is not defined",
	SemaUnusedImport:            "Unused import",
	SemaDuplicateImport:         "Duplicate import alias",
	SemaImplausibleExpr:         "Implausible expression",
	SemaUnknownField:            "Unknown context field",
	SemaLoopControlOutside:      "Loop control outside loop",
	SemaDuplicateSection:        "Duplicate section",
	SemaDuplicateParam:          "Duplicate parameter declaration",
	SemaBodyNotRendered:         "Layout never renders body",
	SemaChildrenInPage:          "Child content outside component",
	SemaDuplicateAttribute:      "Duplicate attribute",
	ResInfo:                     "Resolution information",
	ResFileNotFound:             "Template file not found",
	ResCycle:                    "Circular dependency",
	ResChainTooLong:             "Dependency chain too long",
	ResLoadError:                "I/O load file error",
	ResMultipleExtends:          "Multiple extends directives",
	GenInfo:                     "Code generation information",
	GenUnresolvedComponent:      "Component not resolved at code generation",
	GenSpliceDepth:              "Layout splice nesting too deep",
	ObsInfo:                     "Observability information",
	ObsTimings:                  "Pipeline timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("RES%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("GEN%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
