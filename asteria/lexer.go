package asteria

import (
	"bytes"
	"unicode/utf8"
)

// LexOptions enumerates the recognized lexer configuration flags (spec §4.1).
type LexOptions struct {
	KeywordAsIdentifier        bool
	IntegerAsReal              bool
	EscapableSingleQuoteString bool
}

type lexer struct {
	file    string
	opts    LexOptions
	tokens  []Token
	inBlock bool
	blockAt Position
}

// Lex scans the given source bytes under filename into a token stream, or
// returns a single structured parse error (spec §4.1, §6.1).
func Lex(data []byte, filename string, opts LexOptions) (*TokenStream, *ParseError) {
	l := &lexer{file: filename, opts: opts}

	lines := splitLines(data)
	for i, line := range lines {
		lineNo := i + 1
		if lineNo == 1 && bytes.HasPrefix(line, []byte("#!")) {
			continue
		}
		if err := l.scanLine(line, lineNo); err != nil {
			return newErrorTokenStream(err), err
		}
	}
	if l.inBlock {
		err := &ParseError{Line: l.blockAt.Line, Offset: l.blockAt.Offset, Length: l.blockAt.Length, Code: ErrBlockCommentUnclosed}
		return newErrorTokenStream(err), err
	}
	return newTokenStream(l.tokens), nil
}

// splitLines breaks the input on LF; a final line with no trailing LF is
// still returned as a line (spec §4.1).
func splitLines(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}
	var lines [][]byte
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			lines = append(lines, data[start:i])
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}

func (l *lexer) scanLine(line []byte, lineNo int) *ParseError {
	if off, ok := firstInvalidUTF8(line); ok {
		return &ParseError{Line: lineNo, Offset: off, Length: 1, Code: ErrUTF8SequenceInvalid}
	}
	if idx := bytes.IndexByte(line, 0); idx >= 0 {
		return &ParseError{Line: lineNo, Offset: idx, Length: 1, Code: ErrNullCharacterDisallowed}
	}

	pos := 0
	if l.inBlock {
		idx := bytes.Index(line, []byte("*/"))
		if idx < 0 {
			return nil // still open; whole line consumed by the comment
		}
		pos = idx + 2
		l.inBlock = false
	}

	for pos < len(line) {
		c := line[pos]
		switch c {
		case ' ', '\t', '\v', '\f', '\r':
			pos++
			continue
		}
		if pos+1 < len(line) && c == '/' && line[pos+1] == '/' {
			return nil
		}
		if pos+1 < len(line) && c == '/' && line[pos+1] == '*' {
			idx := bytes.Index(line[pos+2:], []byte("*/"))
			if idx < 0 {
				l.inBlock = true
				l.blockAt = Position{Line: lineNo, Offset: pos, Length: 2}
				return nil
			}
			pos = pos + 2 + idx + 2
			continue
		}

		consumed, perr := l.scanToken(line, pos, lineNo)
		if perr != nil {
			return perr
		}
		pos += consumed
	}
	return nil
}

// firstInvalidUTF8 reports the byte offset of the first ill-formed UTF-8
// sequence in b, if any.
func firstInvalidUTF8(b []byte) (int, bool) {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i, true
		}
		i += size
	}
	return 0, false
}

// scanToken dispatches a single token at line[pos:] in the order required by
// spec §4.1: punctuator, double-quoted string, single-quoted string,
// identifier-or-keyword, numeric literal.
func (l *lexer) scanToken(line []byte, pos int, lineNo int) (int, *ParseError) {
	c := line[pos]

	if p, n, ok := matchPunctuator(line[pos:]); ok {
		// '"' and '\'' are not punctuators, so this never shadows a string.
		l.emit(Token{File: l.file, Line: lineNo, Offset: pos, Length: n, Type: TokenPunctuator, Punctuator: p})
		return n, nil
	}

	switch {
	case c == '"':
		return l.scanStringToken('"', line, pos, lineNo, true)
	case c == '\'':
		return l.scanStringToken('\'', line, pos, lineNo, l.opts.EscapableSingleQuoteString)
	case isIdentStart(c):
		return l.scanIdentifier(line, pos, lineNo)
	case isDigit(c):
		return l.scanNumber(line, pos, lineNo)
	}

	return 0, &ParseError{Line: lineNo, Offset: pos, Length: 1, Code: ErrTokenCharacterUnrecognized}
}

func (l *lexer) scanIdentifier(line []byte, pos int, lineNo int) (int, *ParseError) {
	end := pos + 1
	for end < len(line) && isIdentCont(line[end]) {
		end++
	}
	name := string(line[pos:end])
	if kw, ok := lookupKeyword(name); ok && !l.opts.KeywordAsIdentifier {
		l.emit(Token{File: l.file, Line: lineNo, Offset: pos, Length: end - pos, Type: TokenKeyword, Keyword: kw})
	} else {
		l.emit(Token{File: l.file, Line: lineNo, Offset: pos, Length: end - pos, Type: TokenIdentifier, Identifier: name})
	}
	return end - pos, nil
}

func (l *lexer) emit(t Token) {
	l.tokens = append(l.tokens, t)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
