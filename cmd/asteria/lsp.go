package main

import (
	"sort"
	"strings"
	"unicode"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/asteria-lang/asteria/asteria"
)

const lspName = "asteria-lsp"

var lspKeywords = []string{
	"and", "assert", "break", "case", "catch", "const", "continue", "default",
	"defer", "do", "each", "else", "false", "for", "func", "if", "infinity",
	"nan", "not", "null", "or", "return", "switch", "this", "throw", "true",
	"try", "unset", "var", "while",
}

var lspBuiltinModules = []string{"string", "json", "io", "fs", "chrono", "misc"}

type asteriaLSPServer struct {
	docs map[protocol.DocumentUri]string
}

func lspCommand(args []string) error {
	commonlog.Configure(1, nil)

	s := &asteriaLSPServer{docs: make(map[protocol.DocumentUri]string)}
	handler := protocol.Handler{
		Initialize:             s.initialize,
		TextDocumentDidOpen:    s.didOpen,
		TextDocumentDidChange:  s.didChange,
		TextDocumentHover:      s.hover,
		TextDocumentCompletion: s.completion,
	}
	srv := server.NewServer(&handler, lspName, false)
	return srv.RunStdio()
}

func (s *asteriaLSPServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities := protocol.ServerCapabilities{
		TextDocumentSync: syncKind,
		HoverProvider:    true,
		CompletionProvider: &protocol.CompletionOptions{
			ResolveProvider: boolPtr(false),
		},
	}
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name: lspName,
		},
	}, nil
}

func (s *asteriaLSPServer) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.docs[params.TextDocument.URI] = params.TextDocument.Text
	s.publishDiagnostics(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (s *asteriaLSPServer) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	// Full-sync mode always sends one change event carrying the whole text.
	last := params.ContentChanges[len(params.ContentChanges)-1]
	if change, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
		s.docs[params.TextDocument.URI] = change.Text
		s.publishDiagnostics(ctx, params.TextDocument.URI, change.Text)
	}
	return nil
}

// publishDiagnostics lexes and parses source, translating any resulting
// error into an LSP diagnostic anchored on the failing token's line
// (spec §6.1's structured ParseError carries exactly this information).
func (s *asteriaLSPServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, source string) {
	diagnostics := []protocol.Diagnostic{}
	toks, lexErr := asteria.Lex([]byte(source), string(uri), asteria.LexOptions{})
	if lexErr != nil {
		diagnostics = append(diagnostics, diagnosticFor(lexErr.Line, lexErr.Error()))
	} else if _, parseErr := asteria.Parse(toks, string(uri)); parseErr != nil {
		line := 0
		if syn, ok := parseErr.(*asteria.SyntaxError); ok {
			line = syn.Pos.Line
		}
		diagnostics = append(diagnostics, diagnosticFor(line, parseErr.Error()))
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func diagnosticFor(line int, message string) protocol.Diagnostic {
	lineIdx := uint32(0)
	if line > 0 {
		lineIdx = uint32(line - 1)
	}
	severity := protocol.DiagnosticSeverityError
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: lineIdx, Character: 0},
			End:   protocol.Position{Line: lineIdx, Character: 1},
		},
		Severity: &severity,
		Source:   strPtr(lspName),
		Message:  message,
	}
}

func (s *asteriaLSPServer) hover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	source := s.docs[params.TextDocument.URI]
	word := wordAtPosition(source, int(params.Position.Line), int(params.Position.Character))
	if word == "" {
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: "`" + word + "`\n\nAsteria " + classifyWord(word),
		},
	}, nil
}

func (s *asteriaLSPServer) completion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	labels := append(append([]string{}, lspKeywords...), lspBuiltinModules...)
	sort.Strings(labels)
	keywordSet := make(map[string]struct{}, len(lspKeywords))
	for _, kw := range lspKeywords {
		keywordSet[kw] = struct{}{}
	}

	items := make([]protocol.CompletionItem, 0, len(labels))
	for _, label := range labels {
		kind := protocol.CompletionItemKindModule
		detail := "stdlib module"
		if _, ok := keywordSet[label]; ok {
			kind = protocol.CompletionItemKindKeyword
			detail = "keyword"
		}
		items = append(items, protocol.CompletionItem{
			Label:  label,
			Kind:   &kind,
			Detail: strPtr(detail),
		})
	}
	return items, nil
}

func classifyWord(word string) string {
	for _, kw := range lspKeywords {
		if kw == word {
			return "keyword"
		}
	}
	for _, mod := range lspBuiltinModules {
		if mod == word {
			return "stdlib module"
		}
	}
	return "symbol"
}

func wordAtPosition(source string, line, character int) string {
	lines := strings.Split(source, "\n")
	if line < 0 || line >= len(lines) {
		return ""
	}
	runes := []rune(lines[line])
	if len(runes) == 0 {
		return ""
	}
	if character < 0 {
		character = 0
	}
	if character > len(runes) {
		character = len(runes)
	}
	cursor := character
	if cursor == len(runes) {
		cursor--
	}
	if cursor < 0 || !isWordRune(runes[cursor]) {
		if cursor > 0 && isWordRune(runes[cursor-1]) {
			cursor--
		} else {
			return ""
		}
	}
	start := cursor
	for start > 0 && isWordRune(runes[start-1]) {
		start--
	}
	end := cursor
	for end < len(runes) && isWordRune(runes[end]) {
		end++
	}
	return string(runes[start:end])
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func boolPtr(b bool) *bool { return &b }
func strPtr(s string) *string { return &s }
