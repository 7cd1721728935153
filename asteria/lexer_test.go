package asteria

import "testing"

func TestLexKeywordsPunctuatorsIdentifiers(t *testing.T) {
	ts, err := Lex([]byte("var x = 1 + foo(2)"), "<test>", LexOptions{})
	if err != nil {
		t.Fatalf("lex failed: %v", err)
	}

	var got []TokenType
	for {
		tok, ok := ts.Pop()
		if !ok {
			break
		}
		got = append(got, tok.Type)
	}
	want := []TokenType{
		TokenKeyword, TokenIdentifier, TokenPunctuator, TokenInteger,
		TokenPunctuator, TokenIdentifier, TokenPunctuator, TokenInteger, TokenPunctuator,
	}
	if len(got) != len(want) {
		t.Fatalf("token count mismatch: got %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLexKeywordAsIdentifierOption(t *testing.T) {
	ts, err := Lex([]byte("var"), "<test>", LexOptions{KeywordAsIdentifier: true})
	if err != nil {
		t.Fatalf("lex failed: %v", err)
	}
	tok, ok := ts.Pop()
	if !ok || tok.Type != TokenIdentifier || tok.Identifier != "var" {
		t.Fatalf("expected 'var' as identifier, got %#v", tok)
	}
}

func TestLexRejectsNullByte(t *testing.T) {
	_, err := Lex([]byte("var x = 1\x00"), "<test>", LexOptions{})
	if err == nil {
		t.Fatalf("expected null-byte rejection")
	}
	if err.Code != ErrNullCharacterDisallowed {
		t.Fatalf("unexpected error code: %v", err.Code)
	}
}

func TestLexRejectsInvalidUTF8(t *testing.T) {
	_, err := Lex([]byte{'"', 0xff, '"'}, "<test>", LexOptions{})
	if err == nil {
		t.Fatalf("expected invalid UTF-8 rejection")
	}
	if err.Code != ErrUTF8SequenceInvalid {
		t.Fatalf("unexpected error code: %v", err.Code)
	}
}

func TestLexUnclosedBlockComment(t *testing.T) {
	_, err := Lex([]byte("/* never closes\nmore text"), "<test>", LexOptions{})
	if err == nil {
		t.Fatalf("expected unclosed block comment error")
	}
	if err.Code != ErrBlockCommentUnclosed {
		t.Fatalf("unexpected error code: %v", err.Code)
	}
}

func TestLexUnclosedStringLiteral(t *testing.T) {
	_, err := Lex([]byte(`"unterminated`), "<test>", LexOptions{})
	if err == nil {
		t.Fatalf("expected unclosed string literal error")
	}
	if err.Code != ErrStringLiteralUnclosed {
		t.Fatalf("unexpected error code: %v", err.Code)
	}
}

func TestLexUnrecognizedCharacter(t *testing.T) {
	_, err := Lex([]byte("var x = @"), "<test>", LexOptions{})
	if err == nil {
		t.Fatalf("expected unrecognized character error")
	}
	if err.Code != ErrTokenCharacterUnrecognized {
		t.Fatalf("unexpected error code: %v", err.Code)
	}
}

func TestLexLineAndOffsetTracking(t *testing.T) {
	ts, err := Lex([]byte("var x\nvar @"), "<test>", LexOptions{})
	if err == nil {
		t.Fatalf("expected error on second line")
	}
	if err.Line != 2 {
		t.Fatalf("expected error on line 2, got line %d", err.Line)
	}
	_ = ts
}

func TestLexShebangSkippedOnFirstLineOnly(t *testing.T) {
	_, err := Lex([]byte("#!/usr/bin/env asteria\nvar x = 1"), "<test>", LexOptions{})
	if err != nil {
		t.Fatalf("shebang line should be skipped: %v", err)
	}
}

func TestLexLineAndBlockComments(t *testing.T) {
	ts, err := Lex([]byte("var x = 1 // trailing comment\n/* block */ var y = 2"), "<test>", LexOptions{})
	if err != nil {
		t.Fatalf("lex failed: %v", err)
	}
	count := 0
	for {
		_, ok := ts.Pop()
		if !ok {
			break
		}
		count++
	}
	// var x = 1 / var y = 2 : 5 tokens each, comments contribute none.
	if count != 10 {
		t.Fatalf("expected 10 tokens ignoring comments, got %d", count)
	}
}

func TestTokenStreamEmptyStateAndErrorState(t *testing.T) {
	ts, err := Lex([]byte("1"), "<test>", LexOptions{})
	if err != nil {
		t.Fatalf("lex failed: %v", err)
	}
	if ts.Empty() {
		t.Fatalf("expected non-empty stream before popping")
	}
	if _, ok := ts.Pop(); !ok {
		t.Fatalf("expected to pop one token")
	}
	if !ts.Empty() {
		t.Fatalf("expected empty stream after popping the only token")
	}

	_, lexErr := Lex([]byte("@"), "<test>", LexOptions{})
	errTs := newErrorTokenStream(lexErr)
	if errTs.Empty() {
		t.Fatalf("a stream in the error state must never report empty")
	}
	if _, ok := errTs.Peek(); ok {
		t.Fatalf("peek on an error-state stream must fail")
	}
}
