package csyntax

// MemberKind is the declaration shape a generated member must have.
type MemberKind uint8

const (
	MemberInvalid MemberKind = iota
	MemberMethod
	MemberField
	MemberConst
	MemberStruct
	MemberEnum
	MemberClass
	MemberDelegate
	MemberProperty
	MemberConstructor
	MemberOperator
)

func (k MemberKind) String() string {
	switch k {
	case MemberMethod:
		return "method"
	case MemberField:
		return "field"
	case MemberConst:
		return "const"
	case MemberStruct:
		return "struct"
	case MemberEnum:
		return "enum"
	case MemberClass:
		return "class"
	case MemberDelegate:
		return "delegate"
	case MemberProperty:
		return "property"
	case MemberConstructor:
		return "constructor"
	case MemberOperator:
		return "operator"
	}
	return "invalid"
}

var modifiers = map[string]struct{}{
	"public": {}, "private": {}, "protected": {}, "internal": {}, "static": {},
	"unsafe": {}, "extern": {}, "partial": {}, "readonly": {}, "fixed": {},
	"new": {}, "sealed": {}, "abstract": {}, "virtual": {}, "override": {},
	"volatile": {},
}

type parser struct {
	toks []Token
	pos  int
}

func newParser(src string) (*parser, error) {
	all, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	toks := make([]Token, 0, len(all))
	for _, t := range all {
		if !t.Trivia() {
			toks = append(toks, t)
		}
	}
	return &parser{toks: toks}, nil
}

func (p *parser) peek() Token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) advance() Token {
	t := p.toks[p.pos]
	if t.Kind != EOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(text string) bool {
	if p.peek().Is(text) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(text string) error {
	if t := p.peek(); !t.Is(text) {
		return errorAt(t, "expected %q, found %s", text, t)
	}
	p.advance()
	return nil
}

func (p *parser) ident() error {
	t := p.peek()
	if t.Kind != Ident {
		return errorAt(t, "expected identifier, found %s", t)
	}
	p.advance()
	return nil
}

func (p *parser) expectEOF() error {
	if t := p.peek(); t.Kind != EOF {
		return errorAt(t, "unexpected %s after declaration", t)
	}
	return nil
}

// ParseMember checks that src is exactly one member declaration of the
// given kind, as it may appear in a class body.
func ParseMember(kind MemberKind, src string) error {
	p, err := newParser(src)
	if err != nil {
		return err
	}
	start := p.peek()
	got, err := p.member()
	if err != nil {
		return err
	}
	if got != kind {
		return errorAt(start, "expected a %s declaration, found a %s", kind, got)
	}
	return p.expectEOF()
}

// ParseDocument checks a compilation unit: using directives, an optional
// file-scoped or braced namespace, and type declarations.
func ParseDocument(src string) error {
	p, err := newParser(src)
	if err != nil {
		return err
	}
	if err := p.usings(); err != nil {
		return err
	}
	if p.accept("namespace") {
		if err := p.qualifiedName(); err != nil {
			return err
		}
		if p.accept(";") {
			if err := p.typeDecls(); err != nil {
				return err
			}
			return p.expectEOF()
		}
		if err := p.expect("{"); err != nil {
			return err
		}
		if err := p.usings(); err != nil {
			return err
		}
		if err := p.typeDecls(); err != nil {
			return err
		}
		if err := p.expect("}"); err != nil {
			return err
		}
		return p.expectEOF()
	}
	if err := p.typeDecls(); err != nil {
		return err
	}
	return p.expectEOF()
}

func (p *parser) usings() error {
	for {
		t := p.peek()
		if t.Is("global") && p.peekAt(1).Is("using") {
			p.advance()
			t = p.peek()
		}
		if !t.Is("using") {
			return nil
		}
		p.advance()
		p.accept("static")
		if p.peek().Kind == Ident && p.peekAt(1).Is("=") {
			p.advance()
			p.advance()
			if err := p.typ(); err != nil {
				return err
			}
		} else if err := p.qualifiedName(); err != nil {
			return err
		}
		if err := p.expect(";"); err != nil {
			return err
		}
	}
}

func (p *parser) typeDecls() error {
	for {
		t := p.peek()
		if t.Kind == EOF || t.Is("}") {
			return nil
		}
		kind, err := p.member()
		if err != nil {
			return err
		}
		switch kind {
		case MemberClass, MemberStruct, MemberEnum, MemberDelegate:
		default:
			return errorAt(t, "a %s cannot appear outside of a type", kind)
		}
	}
}

func (p *parser) qualifiedName() error {
	if err := p.ident(); err != nil {
		return err
	}
	for p.accept(".") || p.accept("::") {
		if err := p.ident(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) attributes() error {
	for p.peek().Is("[") {
		if _, err := p.balanced(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) modifiers() {
	for {
		t := p.peek()
		if _, ok := modifiers[t.Text]; !ok || (t.Kind != Keyword && t.Kind != Ident) {
			return
		}
		p.advance()
	}
}

// member parses one declaration and reports its kind.
func (p *parser) member() (MemberKind, error) {
	if err := p.attributes(); err != nil {
		return MemberInvalid, err
	}
	p.modifiers()

	t := p.peek()
	switch {
	case t.Is("struct"), t.Is("class"), t.Is("interface"):
		p.advance()
		return p.typeBody(t)
	case t.Is("enum"):
		p.advance()
		return MemberEnum, p.enumBody()
	case t.Is("delegate") && !p.peekAt(1).Is("*"):
		p.advance()
		if err := p.typ(); err != nil {
			return MemberInvalid, err
		}
		if err := p.ident(); err != nil {
			return MemberInvalid, err
		}
		if err := p.params(); err != nil {
			return MemberInvalid, err
		}
		return MemberDelegate, p.expect(";")
	case t.Is("const"):
		p.advance()
		if err := p.typ(); err != nil {
			return MemberInvalid, err
		}
		if err := p.declarators(true); err != nil {
			return MemberInvalid, err
		}
		return MemberConst, nil
	case t.Is("implicit"), t.Is("explicit"):
		p.advance()
		if err := p.expect("operator"); err != nil {
			return MemberInvalid, err
		}
		if err := p.typ(); err != nil {
			return MemberInvalid, err
		}
		if err := p.params(); err != nil {
			return MemberInvalid, err
		}
		return MemberOperator, p.body()
	case t.Kind == Ident && p.peekAt(1).Is("("):
		p.advance()
		if err := p.params(); err != nil {
			return MemberInvalid, err
		}
		return MemberConstructor, p.body()
	}

	if err := p.typ(); err != nil {
		return MemberInvalid, err
	}
	if p.accept("operator") {
		p.advance() // the operator token
		if err := p.params(); err != nil {
			return MemberInvalid, err
		}
		return MemberOperator, p.body()
	}
	if p.accept("this") {
		if _, err := p.balanced(); err != nil {
			return MemberInvalid, err
		}
		return MemberProperty, p.accessors()
	}
	if err := p.ident(); err != nil {
		return MemberInvalid, err
	}
	next := p.peek()
	switch {
	case next.Is("<"), next.Is("("):
		if next.Is("<") {
			if err := p.typeArgs(); err != nil {
				return MemberInvalid, err
			}
		}
		if err := p.params(); err != nil {
			return MemberInvalid, err
		}
		return MemberMethod, p.body()
	case next.Is("{"), next.Is("=>"):
		return MemberProperty, p.accessors()
	}
	p.pos-- // declarators start at the name
	return MemberField, p.declarators(false)
}

// declarators: name [= expr | [size]] {, ...} ;
func (p *parser) declarators(needValue bool) error {
	for {
		if err := p.ident(); err != nil {
			return err
		}
		switch {
		case p.peek().Is("["):
			if _, err := p.balanced(); err != nil {
				return err
			}
		case p.accept("="):
			if err := p.expr(";", ","); err != nil {
				return err
			}
		case needValue:
			return errorAt(p.peek(), "constant needs a value, found %s", p.peek())
		}
		if !p.accept(",") {
			return p.expect(";")
		}
	}
}

func (p *parser) typeBody(kw Token) (MemberKind, error) {
	if err := p.ident(); err != nil {
		return MemberInvalid, err
	}
	if p.peek().Is("<") {
		if err := p.typeArgs(); err != nil {
			return MemberInvalid, err
		}
	}
	if p.accept(":") {
		for {
			if err := p.typ(); err != nil {
				return MemberInvalid, err
			}
			if !p.accept(",") {
				break
			}
		}
	}
	if err := p.expect("{"); err != nil {
		return MemberInvalid, err
	}
	for !p.peek().Is("}") {
		if p.peek().Kind == EOF {
			return MemberInvalid, errorAt(p.peek(), "unterminated %s body", kw.Text)
		}
		if _, err := p.member(); err != nil {
			return MemberInvalid, err
		}
	}
	p.advance()
	p.accept(";")
	if kw.Is("struct") {
		return MemberStruct, nil
	}
	return MemberClass, nil
}

func (p *parser) enumBody() error {
	if err := p.ident(); err != nil {
		return err
	}
	if p.accept(":") {
		if err := p.typ(); err != nil {
			return err
		}
	}
	if err := p.expect("{"); err != nil {
		return err
	}
	for !p.accept("}") {
		if err := p.attributes(); err != nil {
			return err
		}
		if err := p.ident(); err != nil {
			return err
		}
		if p.accept("=") {
			if err := p.expr(",", "}"); err != nil {
				return err
			}
		}
		if !p.accept(",") {
			if err := p.expect("}"); err != nil {
				return err
			}
			break
		}
	}
	p.accept(";")
	return nil
}

// typ parses a type: a predefined or qualified name with optional type
// arguments, a function pointer type, then pointer, nullable and array
// suffixes.
func (p *parser) typ() error {
	t := p.peek()
	switch {
	case t.Is("delegate") && p.peekAt(1).Is("*"):
		p.advance()
		p.advance()
		if p.accept("unmanaged") || p.accept("managed") {
			if p.peek().Is("[") {
				if _, err := p.balanced(); err != nil {
					return err
				}
			}
		}
		if err := p.typeArgs(); err != nil {
			return err
		}
	case t.Kind == Keyword:
		if _, ok := builtinTypes[t.Text]; !ok {
			return errorAt(t, "expected type, found %s", t)
		}
		p.advance()
	case t.Kind == Ident:
		if err := p.qualifiedName(); err != nil {
			return err
		}
		if p.peek().Is("<") {
			if err := p.typeArgs(); err != nil {
				return err
			}
		}
	default:
		return errorAt(t, "expected type, found %s", t)
	}
	for {
		switch {
		case p.accept("*"), p.accept("?"):
		case p.peek().Is("[") && (p.peekAt(1).Is("]") || p.peekAt(1).Is(",")):
			if _, err := p.balanced(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (p *parser) typeArgs() error {
	if err := p.expect("<"); err != nil {
		return err
	}
	for {
		if err := p.typ(); err != nil {
			return err
		}
		if !p.accept(",") {
			return p.expect(">")
		}
	}
}

func (p *parser) params() error {
	if err := p.expect("("); err != nil {
		return err
	}
	if p.accept(")") {
		return nil
	}
	for {
		if err := p.attributes(); err != nil {
			return err
		}
		for t := p.peek(); t.Is("ref") || t.Is("out") || t.Is("in") || t.Is("this") || t.Is("params"); t = p.peek() {
			p.advance()
		}
		if err := p.typ(); err != nil {
			return err
		}
		if err := p.ident(); err != nil {
			return err
		}
		if p.accept("=") {
			if err := p.expr(",", ")"); err != nil {
				return err
			}
		}
		if !p.accept(",") {
			return p.expect(")")
		}
	}
}

// body: ';' | '=>' expr ';' | balanced block
func (p *parser) body() error {
	switch {
	case p.accept(";"):
		return nil
	case p.accept("=>"):
		if err := p.expr(";"); err != nil {
			return err
		}
		return p.expect(";")
	case p.peek().Is("{"):
		_, err := p.balanced()
		return err
	}
	return errorAt(p.peek(), "expected method body, found %s", p.peek())
}

func (p *parser) accessors() error {
	if p.accept("=>") {
		if err := p.expr(";"); err != nil {
			return err
		}
		return p.expect(";")
	}
	if !p.peek().Is("{") {
		return errorAt(p.peek(), "expected accessors, found %s", p.peek())
	}
	_, err := p.balanced()
	return err
}

// expr consumes tokens up to one of the terminators at nesting depth zero.
// The terminator is not consumed; an empty expression is an error.
func (p *parser) expr(terms ...string) error {
	start := p.pos
	for {
		t := p.peek()
		if t.Kind == EOF {
			return errorAt(t, "unterminated expression")
		}
		for _, term := range terms {
			if t.Is(term) {
				if p.pos == start {
					return errorAt(t, "expected expression, found %s", t)
				}
				return nil
			}
		}
		if t.Is("(") || t.Is("[") || t.Is("{") {
			if _, err := p.balanced(); err != nil {
				return err
			}
			continue
		}
		if t.Is(")") || t.Is("]") || t.Is("}") {
			return errorAt(t, "unbalanced %q", t.Text)
		}
		p.advance()
	}
}

var closer = map[string]string{"(": ")", "[": "]", "{": "}"}

// balanced consumes an opening delimiter through its matching closer and
// returns the tokens in between.
func (p *parser) balanced() ([]Token, error) {
	open := p.advance()
	start := p.pos
	stack := []string{closer[open.Text]}
	for len(stack) > 0 {
		t := p.advance()
		switch {
		case t.Kind == EOF:
			return nil, errorAt(open, "%q is never closed", open.Text)
		case t.Kind != Punct:
		case closer[t.Text] != "":
			stack = append(stack, closer[t.Text])
		case t.Text == ")" || t.Text == "]" || t.Text == "}":
			if want := stack[len(stack)-1]; t.Text != want {
				return nil, errorAt(t, "found %q, expected %q", t.Text, want)
			}
			stack = stack[:len(stack)-1]
		}
	}
	return p.toks[start : p.pos-1], nil
}
