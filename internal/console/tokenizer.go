package console

// Tokenizer splits an input line into whitespace-delimited tokens.
//
// A Tokenizer works on its own copy of the line and only moves forward;
// there is no way to rewind it.
type Tokenizer struct {
	line string
	pos  int
}

// NewTokenizer creates a tokenizer over line.
func NewTokenizer(line string) *Tokenizer {
	return &Tokenizer{line: line}
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// Next returns the next token. ok is false once the line is exhausted.
func (t *Tokenizer) Next() (tok string, ok bool) {
	for t.pos < len(t.line) && isSpace(t.line[t.pos]) {
		t.pos++
	}
	if t.pos >= len(t.line) {
		return "", false
	}
	start := t.pos
	for t.pos < len(t.line) && !isSpace(t.line[t.pos]) {
		t.pos++
	}
	return t.line[start:t.pos], true
}

// Rest returns the unconsumed remainder of the line with surrounding
// whitespace removed, and exhausts the tokenizer.
func (t *Tokenizer) Rest() string {
	for t.pos < len(t.line) && isSpace(t.line[t.pos]) {
		t.pos++
	}
	end := len(t.line)
	for end > t.pos && isSpace(t.line[end-1]) {
		end--
	}
	rest := t.line[t.pos:end]
	t.pos = len(t.line)
	return rest
}

// Tokens returns every remaining token.
func (t *Tokenizer) Tokens() []string {
	var toks []string
	for {
		tok, ok := t.Next()
		if !ok {
			return toks
		}
		toks = append(toks, tok)
	}
}
