package asteria

import "unicode/utf8"

// scanStringToken scans a quoted string literal starting at line[pos] (the
// opening quote byte). escapable selects between the escape-decoding form
// used for `"..."` (always) and `'...'` (only when the
// escapable_single_quote_string option is set) and the raw form for
// `'...'` otherwise (spec §4.1, §9 "Open question": raw single-quoted
// strings copy bytes verbatim with no escape processing at all).
func (l *lexer) scanStringToken(quote byte, line []byte, pos int, lineNo int, escapable bool) (int, *ParseError) {
	if !escapable {
		return l.scanRawString(quote, line, pos, lineNo)
	}
	return l.scanEscapedString(quote, line, pos, lineNo)
}

func (l *lexer) scanRawString(quote byte, line []byte, pos int, lineNo int) (int, *ParseError) {
	for i := pos + 1; i < len(line); i++ {
		if line[i] == quote {
			l.emit(Token{
				File: l.file, Line: lineNo, Offset: pos, Length: i + 1 - pos,
				Type: TokenString, StringValue: string(line[pos+1 : i]),
			})
			return i + 1 - pos, nil
		}
	}
	return 0, &ParseError{Line: lineNo, Offset: pos, Length: len(line) - pos, Code: ErrStringLiteralUnclosed}
}

func (l *lexer) scanEscapedString(quote byte, line []byte, pos int, lineNo int) (int, *ParseError) {
	var buf []byte
	i := pos + 1
	for {
		if i >= len(line) {
			return 0, &ParseError{Line: lineNo, Offset: pos, Length: len(line) - pos, Code: ErrStringLiteralUnclosed}
		}
		c := line[i]
		if c == quote {
			i++
			l.emit(Token{
				File: l.file, Line: lineNo, Offset: pos, Length: i - pos,
				Type: TokenString, StringValue: string(buf),
			})
			return i - pos, nil
		}
		if c != '\\' {
			buf = append(buf, c)
			i++
			continue
		}

		// c == '\\': decode one escape sequence.
		if i+1 >= len(line) {
			return 0, &ParseError{Line: lineNo, Offset: i, Length: len(line) - i, Code: ErrEscapeSequenceIncomplete}
		}
		e := line[i+1]
		switch e {
		case '\'', '"', '\\', '?':
			buf = append(buf, e)
			i += 2
		case 'a':
			buf = append(buf, 0x07)
			i += 2
		case 'b':
			buf = append(buf, 0x08)
			i += 2
		case 'f':
			buf = append(buf, 0x0C)
			i += 2
		case 'n':
			buf = append(buf, '\n')
			i += 2
		case 'r':
			buf = append(buf, '\r')
			i += 2
		case 't':
			buf = append(buf, '\t')
			i += 2
		case 'v':
			buf = append(buf, 0x0B)
			i += 2
		case '0':
			buf = append(buf, 0x00)
			i += 2
		case 'Z':
			buf = append(buf, 0x1A)
			i += 2
		case 'e':
			buf = append(buf, 0x1B)
			i += 2
		case 'x':
			if i+4 > len(line) {
				return 0, &ParseError{Line: lineNo, Offset: i, Length: len(line) - i, Code: ErrEscapeSequenceIncomplete}
			}
			v, ok := parseHexDigits(line[i+2 : i+4])
			if !ok {
				return 0, &ParseError{Line: lineNo, Offset: i, Length: 4, Code: ErrEscapeSequenceInvalidHex}
			}
			buf = append(buf, byte(v))
			i += 4
		case 'u':
			if i+6 > len(line) {
				return 0, &ParseError{Line: lineNo, Offset: i, Length: len(line) - i, Code: ErrEscapeSequenceIncomplete}
			}
			v, ok := parseHexDigits(line[i+2 : i+6])
			if !ok {
				return 0, &ParseError{Line: lineNo, Offset: i, Length: 6, Code: ErrEscapeSequenceInvalidHex}
			}
			if !validCodePoint(v) {
				return 0, &ParseError{Line: lineNo, Offset: i, Length: 6, Code: ErrEscapeUTFCodePointInvalid}
			}
			buf = appendUTF8(buf, v)
			i += 6
		case 'U':
			if i+8 > len(line) {
				return 0, &ParseError{Line: lineNo, Offset: i, Length: len(line) - i, Code: ErrEscapeSequenceIncomplete}
			}
			v, ok := parseHexDigits(line[i+2 : i+8])
			if !ok {
				return 0, &ParseError{Line: lineNo, Offset: i, Length: 8, Code: ErrEscapeSequenceInvalidHex}
			}
			if !validCodePoint(v) {
				return 0, &ParseError{Line: lineNo, Offset: i, Length: 8, Code: ErrEscapeUTFCodePointInvalid}
			}
			buf = appendUTF8(buf, v)
			i += 8
		default:
			return 0, &ParseError{Line: lineNo, Offset: i, Length: 2, Code: ErrEscapeSequenceUnknown}
		}
	}
}

func parseHexDigits(b []byte) (uint32, bool) {
	var v uint32
	for _, c := range b {
		var d uint32
		switch {
		case c >= '0' && c <= '9':
			d = uint32(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint32(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint32(c-'A') + 10
		default:
			return 0, false
		}
		v = v<<4 | d
	}
	return v, true
}

func validCodePoint(v uint32) bool {
	if v > 0x10FFFF {
		return false
	}
	if v >= 0xD800 && v <= 0xDFFF {
		return false
	}
	return true
}

// appendUTF8 encodes a validated code point as UTF-8, appending it to buf.
func appendUTF8(buf []byte, v uint32) []byte {
	var tmp [utf8.UTFMax]byte
	n := utf8.EncodeRune(tmp[:], rune(v))
	return append(buf, tmp[:n]...)
}
