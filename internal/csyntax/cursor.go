package csyntax

// Cursor: позиция в исходном тексте C#, с учётом строки и колонки.
type Cursor struct {
	src  string
	Off  int
	Line int // 1-based
	Col  int // 1-based
}

func newCursor(src string) Cursor {
	return Cursor{src: src, Line: 1, Col: 1}
}

// EOF проверяет, достигнут ли конец текста
func (c *Cursor) EOF() bool {
	return c.Off >= len(c.src)
}

// Peek читает текущий байт, если есть, иначе возвращает 0
func (c *Cursor) Peek() byte {
	if c.EOF() {
		return 0
	}
	return c.src[c.Off]
}

// Peek2 читает текущий и следующий байт
func (c *Cursor) Peek2() (b0, b1 byte, ok bool) {
	if c.Off+1 >= len(c.src) {
		return 0, 0, false
	}
	return c.src[c.Off], c.src[c.Off+1], true
}

// Bump перемещает курсор на один байт вперед и возвращает прочитанный байт
func (c *Cursor) Bump() byte {
	if c.EOF() {
		return 0
	}
	b := c.src[c.Off]
	c.Off++
	if b == '\n' {
		c.Line++
		c.Col = 1
	} else {
		c.Col++
	}
	return b
}

// Eat consumes the next byte if it matches.
func (c *Cursor) Eat(b byte) bool {
	if c.Peek() == b && !c.EOF() {
		c.Bump()
		return true
	}
	return false
}

// Mark это метка начала читаемого фрагмента
type Mark struct {
	Off, Line, Col int
}

func (c *Cursor) Mark() Mark {
	return Mark{Off: c.Off, Line: c.Line, Col: c.Col}
}

// TextFrom returns the text consumed since m.
func (c *Cursor) TextFrom(m Mark) string {
	return c.src[m.Off:c.Off]
}
