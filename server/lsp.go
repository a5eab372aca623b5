package server

import (
	"fmt"
	"strings"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/chirp/ast"
	"github.com/chazu/chirp/diag"
	"github.com/chazu/chirp/lexer"
	"github.com/chazu/chirp/scene"
)

var log = commonlog.GetLogger("chirp.server")

const lspName = "chirp-lsp"

// LspServer bridges LSP editor features to a Workspace via Worker.
type LspServer struct {
	worker *Worker

	handler protocol.Handler
	server  *glspserver.Server
	name    string
	version string
}

// NewLSP creates a new LSP server analysing documents in ws. An empty name
// selects the default server name.
func NewLSP(ws *Workspace, name string) *LspServer {
	if name == "" {
		name = lspName
	}
	s := &LspServer{
		worker:  NewWorker(ws),
		name:    name,
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion:     s.textDocumentCompletion,
		TextDocumentHover:          s.textDocumentHover,
		TextDocumentDefinition:     s.textDocumentDefinition,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
	}

	s.server = glspserver.NewServer(&s.handler, name, false)
	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Infof("%s initializing", s.name)

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"!"},
	}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.DocumentSymbolProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    s.name,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) == 0 {
		return nil
	}
	last := params.ContentChanges[len(params.ContentChanges)-1]
	if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
		s.update(ctx, params.TextDocument.URI, whole.Text)
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.worker.Do(func(w *Workspace) any {
		w.Close(uri)
		return nil
	})

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) update(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	res, err := s.worker.Do(func(w *Workspace) any {
		return diagnostics(w.Update(uri, text))
	})
	if err != nil {
		log.Errorf("analysing %s: %s", uri, err)
		return
	}
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: res.([]protocol.Diagnostic),
	})
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	uri, pos := params.TextDocument.URI, params.Position
	result, err := s.worker.Do(func(w *Workspace) any {
		doc := w.Document(uri)
		if doc == nil {
			return []protocol.CompletionItem(nil)
		}
		prefix := prefixAt(doc.Text, offset(doc.Index, pos))
		return completionItems(w.Complete(doc, prefix))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri, pos := params.TextDocument.URI, params.Position
	result, err := s.worker.Do(func(w *Workspace) any {
		doc := w.Document(uri)
		if doc == nil {
			return nil
		}
		return hover(w, doc, offset(doc.Index, pos))
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result.(*protocol.Hover), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri, pos := params.TextDocument.URI, params.Position
	result, err := s.worker.Do(func(w *Workspace) any {
		doc := w.Document(uri)
		if doc == nil {
			return nil
		}
		def, ok := doc.TemplateAt(offset(doc.Index, pos))
		if !ok {
			return nil
		}
		return []protocol.Location{{URI: def.URI, Range: toRange(def.Index, def.Span)}}
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result, nil
}

func (s *LspServer) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	uri := params.TextDocument.URI
	result, err := s.worker.Do(func(w *Workspace) any {
		doc := w.Document(uri)
		if doc == nil || doc.Ast == nil {
			return []protocol.DocumentSymbol{}
		}
		return symbols(doc)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// --- Analysis results to protocol types ---

func diagnostics(doc *Document) []protocol.Diagnostic {
	source := lspName
	out := []protocol.Diagnostic{}
	if doc.Err != nil {
		r := diag.ParseError("", doc.Err)
		msg := r.Message
		if r.Help != "" {
			msg += "\nhelp: " + r.Help
		}
		sev := protocol.DiagnosticSeverityError
		out = append(out, protocol.Diagnostic{
			Range:    toRange(doc.Index, r.Span),
			Severity: &sev,
			Source:   &source,
			Message:  msg,
		})
		return out
	}
	for _, d := range doc.Diagnostics {
		sev := protocol.DiagnosticSeverityError
		if d.Severity == scene.SeverityWarning {
			sev = protocol.DiagnosticSeverityWarning
		}
		out = append(out, protocol.Diagnostic{
			Range:    toRange(doc.Index, d.Span),
			Severity: &sev,
			Source:   &source,
			Message:  d.Message,
		})
	}
	return out
}

func completionItems(cs []Candidate) []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, 0, len(cs))
	for _, c := range cs {
		var kind protocol.CompletionItemKind
		switch c.Kind {
		case "template":
			kind = protocol.CompletionItemKindFunction
		case "method":
			kind = protocol.CompletionItemKindMethod
		default:
			kind = protocol.CompletionItemKindKeyword
		}
		item := protocol.CompletionItem{
			Label:      c.Label,
			Kind:       &kind,
			InsertText: strPtr(c.Insert),
		}
		if c.Detail != "" {
			item.Detail = strPtr(c.Detail)
		}
		items = append(items, item)
	}
	return items
}

func hover(w *Workspace, doc *Document, off int) *protocol.Hover {
	var text string
	if def, ok := doc.TemplateAt(off); ok {
		text = fmt.Sprintf("```\n%s\n```", def.Signature())
		if def.Module != "" {
			text += fmt.Sprintf("\n\nimported from `%s`", def.Module)
		}
	} else {
		word := wordAt(doc.Text, off)
		if word == "" {
			return nil
		}
		for _, m := range w.registry.Methods() {
			if m == word {
				text = fmt.Sprintf("method `%s`", word)
				break
			}
		}
		if text == "" {
			return nil
		}
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: text,
		},
	}
}

// symbols outlines the declared templates and the root entity tree.
func symbols(doc *Document) []protocol.DocumentSymbol {
	file := doc.Ast.File()
	var out []protocol.DocumentSymbol
	for fn := range file.Fns().All() {
		name := fn.Name()
		sym := protocol.DocumentSymbol{
			Name:           name.String(),
			Detail:         strPtr(definitionOf(fn, doc.URI, doc.Index, "").Signature()),
			Kind:           protocol.SymbolKindFunction,
			Range:          toRange(doc.Index, name.Span),
			SelectionRange: toRange(doc.Index, name.Span),
		}
		if child, ok := statementSymbol(doc, fn.Body()); ok {
			sym.Children = []protocol.DocumentSymbol{child}
		}
		out = append(out, sym)
	}
	if root, ok := statementSymbol(doc, file.Root()); ok {
		out = append(out, root)
	}
	return out
}

func statementSymbol(doc *Document, st ast.Statement) (protocol.DocumentSymbol, bool) {
	var name ast.Name
	var kind protocol.SymbolKind
	var children ast.List[ast.Statement]
	switch st.Kind() {
	case ast.KindSpawn:
		sp, _ := st.Spawn()
		name, kind, children = sp.Name(), protocol.SymbolKindObject, sp.Children()
		if name.Absent() {
			// Anonymous spawns are anchored at their first method.
			for m := range sp.Methods().All() {
				name = m.Name()
				break
			}
		}
	case ast.KindTemplate:
		t, _ := st.Template()
		name, kind, children = t.Name(), protocol.SymbolKindFunction, t.Children()
	case ast.KindCode:
		c, _ := st.Code()
		name, kind = c.Name(), protocol.SymbolKindEvent
	}
	if name.Absent() {
		return protocol.DocumentSymbol{}, false
	}

	sym := protocol.DocumentSymbol{
		Name:           scene.Unquote(name.String()),
		Kind:           kind,
		Range:          toRange(doc.Index, name.Span),
		SelectionRange: toRange(doc.Index, name.Span),
	}
	if st.Kind() != ast.KindCode {
		for c := range children.All() {
			if child, ok := statementSymbol(doc, c); ok {
				sym.Children = append(sym.Children, child)
			}
		}
	}
	return sym, true
}

// --- Text helpers ---

func offset(x *diag.Index, pos protocol.Position) int {
	return x.OffsetUTF16(int(pos.Line), int(pos.Character))
}

func toRange(x *diag.Index, span ast.Span) protocol.Range {
	if x == nil {
		return protocol.Range{}
	}
	sl, sc := x.UTF16(span.Start)
	el, ec := x.UTF16(max(span.End, span.Start))
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(sl), Character: protocol.UInteger(sc)},
		End:   protocol.Position{Line: protocol.UInteger(el), Character: protocol.UInteger(ec)},
	}
}

// prefixAt returns the identifier characters immediately before off.
func prefixAt(text []byte, off int) string {
	off = min(max(off, 0), len(text))
	start := off
	for start > 0 && lexer.IsIdentByte(text[start-1]) {
		start--
	}
	return string(text[start:off])
}

// wordAt returns the identifier covering off, or the one ending at off.
func wordAt(text []byte, off int) string {
	off = min(max(off, 0), len(text))
	start, end := off, off
	for start > 0 && lexer.IsIdentByte(text[start-1]) {
		start--
	}
	for end < len(text) && lexer.IsIdentByte(text[end]) {
		end++
	}
	return strings.TrimSpace(string(text[start:end]))
}

func boolPtr(b bool) *bool {
	return &b
}

func strPtr(s string) *string {
	return &s
}
