package asteria

import "math"

// scanNumber scans one numeric literal per the grammar in spec §4.1:
// an optional base prefix, an integral digit run, an optional fractional
// part, and an optional exponent, followed by sign merging with any
// immediately preceding eligible +/- token (spec §4.1 "Sign merging", §9).
func (l *lexer) scanNumber(line []byte, pos int, lineNo int) (int, *ParseError) {
	base := int64(10)
	i := pos
	if line[i] == '0' && i+1 < len(line) {
		switch line[i+1] {
		case 'b', 'B':
			base = 2
			i += 2
		case 'x', 'X':
			base = 16
			i += 2
		}
	}

	intDigits, next := scanDigitRun(line, i, base)
	if len(intDigits) == 0 {
		return 0, &ParseError{Line: lineNo, Offset: pos, Length: next - pos + 1, Code: ErrNumericLiteralIncomplete}
	}
	i = next

	hasFrac := false
	var fracDigits []int64
	if i < len(line) && line[i] == '.' && i+1 < len(line) {
		if _, ok := digitValue(line[i+1], base); ok {
			hasFrac = true
			i++
			fracDigits, i = scanDigitRun(line, i, base)
		}
	}

	hasExp, expIsBinary, expNegative, expValue, newPos, perr := l.scanExponent(line, i, pos, lineNo, base)
	if perr != nil {
		return 0, perr
	}
	i = newPos

	if i < len(line) && isIdentCont(line[i]) {
		end := i + 1
		for end < len(line) && isIdentCont(line[end]) {
			end++
		}
		return 0, &ParseError{Line: lineNo, Offset: pos, Length: end - pos, Code: ErrNumericLiteralSuffixDisallowed}
	}

	sign, merged, mergeOffset := l.trySignMerge()
	tokOffset, tokLength := pos, i-pos
	if merged {
		tokOffset, tokLength = mergeOffset, i-mergeOffset
	}

	isReal := hasFrac || l.opts.IntegerAsReal

	if isReal {
		acc := newRealAccumulator(base)
		for _, d := range intDigits {
			acc.AddDigit(d)
		}
		for _, d := range fracDigits {
			acc.AddFracDigit(d)
		}
		expBase := int64(10)
		if expIsBinary {
			expBase = 2
		}
		f, code, ok := acc.Finalize(expBase, expValue, expNegative)
		if !ok {
			return 0, &ParseError{Line: lineNo, Offset: pos, Length: i - pos, Code: code}
		}
		if sign < 0 {
			f = -f
		}
		l.emit(Token{File: l.file, Line: lineNo, Offset: tokOffset, Length: tokLength, Type: TokenReal, RealValue: f})
		return i - pos, nil
	}

	if hasExp && expNegative {
		return 0, &ParseError{Line: lineNo, Offset: pos, Length: i - pos, Code: ErrIntegerLiteralExponentNegative}
	}

	magnitude, overflow := digitsToUint64(intDigits, base)
	if overflow {
		return 0, &ParseError{Line: lineNo, Offset: pos, Length: i - pos, Code: ErrIntegerLiteralOverflow}
	}
	if hasExp {
		expBase := uint64(10)
		if expIsBinary {
			expBase = 2
		}
		for k := int64(0); k < expValue; k++ {
			nm, ok := checkedMulU64(magnitude, expBase)
			if !ok {
				return 0, &ParseError{Line: lineNo, Offset: pos, Length: i - pos, Code: ErrIntegerLiteralOverflow}
			}
			magnitude = nm
		}
	}

	var iv int64
	if sign < 0 {
		switch {
		case magnitude == 0x8000000000000000:
			iv = math.MinInt64
		case magnitude <= math.MaxInt64:
			iv = -int64(magnitude)
		default:
			return 0, &ParseError{Line: lineNo, Offset: pos, Length: i - pos, Code: ErrIntegerLiteralOverflow}
		}
	} else {
		if magnitude > math.MaxInt64 {
			return 0, &ParseError{Line: lineNo, Offset: pos, Length: i - pos, Code: ErrIntegerLiteralOverflow}
		}
		iv = int64(magnitude)
	}

	l.emit(Token{File: l.file, Line: lineNo, Offset: tokOffset, Length: tokLength, Type: TokenInteger, IntValue: iv})
	return i - pos, nil
}

// scanExponent scans an optional e/E (decimal) or p/P (binary) exponent
// marker. For base 16, 'e'/'E' are valid hex digits and are already
// consumed by the integral/fractional digit run, so only 'p'/'P' can start
// a hex-float exponent (spec §9, standard hex-float disambiguation).
func (l *lexer) scanExponent(line []byte, i, litStart, lineNo int, base int64) (has bool, isBinary bool, negative bool, value int64, newPos int, perr *ParseError) {
	if i >= len(line) {
		return false, false, false, 0, i, nil
	}
	c := line[i]
	marker := false
	switch {
	case base == 16 && (c == 'p' || c == 'P'):
		marker, isBinary = true, true
	case base != 16 && (c == 'e' || c == 'E'):
		marker, isBinary = true, false
	case base != 16 && (c == 'p' || c == 'P'):
		marker, isBinary = true, true
	}
	if !marker {
		return false, false, false, 0, i, nil
	}

	j := i + 1
	if j < len(line) && (line[j] == '+' || line[j] == '-') {
		negative = line[j] == '-'
		j++
	}
	digits, end := scanDigitRun(line, j, 10)
	if len(digits) == 0 {
		return false, false, false, 0, end, &ParseError{Line: lineNo, Offset: litStart, Length: end - litStart + 1, Code: ErrNumericLiteralIncomplete}
	}
	mag, overflow := digitsToUint64(digits, 10)
	if overflow || mag > (1<<32) {
		return false, false, false, 0, end, &ParseError{Line: lineNo, Offset: litStart, Length: end - litStart, Code: ErrNumericLiteralExponentOverflow}
	}
	return true, isBinary, negative, int64(mag), end, nil
}

// trySignMerge inspects the last emitted token; if it is a +/- punctuator
// eligible for absorption (spec §4.1 "Sign merging"), it is popped from the
// stream and the sign it carried is returned along with the offset the
// merged token should be reported to start at.
func (l *lexer) trySignMerge() (sign int, merged bool, mergeOffset int) {
	sign = 1
	n := len(l.tokens)
	if n == 0 {
		return sign, false, 0
	}
	last := l.tokens[n-1]
	if last.Type != TokenPunctuator || (last.Punctuator != PPlus && last.Punctuator != PMinus) {
		return sign, false, 0
	}
	var before *Token
	if n >= 2 {
		before = &l.tokens[n-2]
	}
	if !isEligiblePreceding(before) {
		return sign, false, 0
	}
	l.tokens = l.tokens[:n-1]
	if last.Punctuator == PMinus {
		sign = -1
	}
	return sign, true, last.Offset
}

// isEligiblePreceding decides whether the token preceding a +/- candidate
// for sign merging permits the merge (spec §4.1): absent, an
// infix-eligible operator, or a keyword that does not denote a value; not a
// closing bracket/paren/brace or post-increment/decrement.
func isEligiblePreceding(t *Token) bool {
	if t == nil {
		return true
	}
	switch t.Type {
	case TokenKeyword:
		return !keywordValueKeywords[t.Keyword]
	case TokenPunctuator:
		switch t.Punctuator {
		case PRParen, PRBracket, PRBrace, PPlusPlus, PMinusMinus:
			return false
		default:
			return true
		}
	default:
		// identifiers, strings, numbers: all denote a value already in hand.
		return false
	}
}

func digitValue(c byte, base int64) (int64, bool) {
	var d int64
	switch {
	case c >= '0' && c <= '9':
		d = int64(c - '0')
	case c >= 'a' && c <= 'z':
		d = int64(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		d = int64(c-'A') + 10
	default:
		return 0, false
	}
	if d >= base {
		return 0, false
	}
	return d, true
}

// scanDigitRun consumes a run of base-digits starting at line[start],
// treating '`' as an ignored visual separator when it falls strictly
// between two valid digits.
func scanDigitRun(line []byte, start int, base int64) (digits []int64, end int) {
	i := start
	for i < len(line) {
		c := line[i]
		if c == '`' {
			if i == start || i+1 >= len(line) {
				break
			}
			if _, ok := digitValue(line[i+1], base); !ok {
				break
			}
			i++
			continue
		}
		d, ok := digitValue(c, base)
		if !ok {
			break
		}
		digits = append(digits, d)
		i++
	}
	return digits, i
}

func digitsToUint64(digits []int64, base int64) (uint64, bool) {
	var v uint64
	b := uint64(base)
	for _, d := range digits {
		nv, ok := checkedMulU64(v, b)
		if !ok {
			return 0, true
		}
		nv2, ok := checkedAddU64(nv, uint64(d))
		if !ok {
			return 0, true
		}
		v = nv2
	}
	return v, false
}

func checkedMulU64(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/a != b {
		return 0, false
	}
	return p, true
}

func checkedAddU64(a, b uint64) (uint64, bool) {
	s := a + b
	if s < a {
		return 0, false
	}
	return s, true
}
