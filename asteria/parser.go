package asteria

import "fmt"

// SyntaxError is a structured parser failure, the compile-time counterpart
// to the lexer's ParseError.
type SyntaxError struct {
	Pos     Position
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, offset %d: %s", e.Pos.Line, e.Pos.Offset, e.Message)
}

type parser struct {
	ts   *TokenStream
	file string
}

// Parse consumes a TokenStream produced by Lex into a Program, grounded on
// the teacher's Pratt-parser structure but recast onto the reversed
// peek/pop token stream contract of spec §6.1.
func Parse(ts *TokenStream, filename string) (*Program, error) {
	if err := ts.Err(); err != nil {
		return nil, err
	}
	p := &parser{ts: ts, file: filename}
	prog := &Program{}
	for !p.ts.Empty() {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog, nil
}

func (p *parser) peek() (Token, bool)  { return p.ts.Peek() }
func (p *parser) pop() (Token, bool)   { return p.ts.Pop() }

func (p *parser) errorf(pos Position, format string, args ...any) error {
	return &SyntaxError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expectPunct(pt Punctuator) (Token, error) {
	tok, ok := p.pop()
	if !ok || tok.Type != TokenPunctuator || tok.Punctuator != pt {
		return Token{}, p.unexpected(tok, ok, pt.String())
	}
	return tok, nil
}

func (p *parser) expectKeyword(kw Keyword) (Token, error) {
	tok, ok := p.pop()
	if !ok || tok.Type != TokenKeyword || tok.Keyword != kw {
		return Token{}, p.unexpected(tok, ok, kw.String())
	}
	return tok, nil
}

func (p *parser) expectIdent() (string, Position, error) {
	tok, ok := p.pop()
	if !ok || tok.Type != TokenIdentifier {
		return "", Position{}, p.unexpected(tok, ok, "identifier")
	}
	return tok.Identifier, tok.Position(), nil
}

func (p *parser) unexpected(tok Token, present bool, want string) error {
	if !present {
		return p.errorf(Position{}, "unexpected end of input, expected %s", want)
	}
	return p.errorf(tok.Position(), "unexpected token, expected %s", want)
}

func (p *parser) atPunct(pt Punctuator) bool {
	tok, ok := p.peek()
	return ok && tok.Type == TokenPunctuator && tok.Punctuator == pt
}

func (p *parser) atKeyword(kw Keyword) bool {
	tok, ok := p.peek()
	return ok && tok.Type == TokenKeyword && tok.Keyword == kw
}

func (p *parser) tryPunct(pt Punctuator) bool {
	if p.atPunct(pt) {
		p.pop()
		return true
	}
	return false
}

// ---- statements ----

func (p *parser) parseStatement() (Statement, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, p.errorf(Position{}, "unexpected end of input")
	}

	if tok.Type == TokenKeyword {
		switch tok.Keyword {
		case KwVar, KwConst:
			return p.parseVarStmt()
		case KwFunc:
			return p.parseFuncStmt()
		case KwIf:
			return p.parseIfStmt()
		case KwWhile:
			return p.parseWhileStmt()
		case KwDo:
			return p.parseDoWhileStmt()
		case KwFor:
			return p.parseForStmt()
		case KwBreak:
			p.pop()
			p.tryPunct(PSemi)
			return &BreakStmt{position: tok.Position()}, nil
		case KwContinue:
			p.pop()
			p.tryPunct(PSemi)
			return &ContinueStmt{position: tok.Position()}, nil
		case KwReturn:
			return p.parseReturnStmt()
		case KwThrow:
			return p.parseThrowStmt()
		case KwTry:
			return p.parseTryStmt()
		case KwDefer:
			return p.parseDeferStmt()
		case KwUnset:
			return p.parseUnsetStmt()
		case KwAssert:
			return p.parseAssertStmt()
		case KwSwitch:
			return p.parseSwitchStmt()
		case KwEach:
			return p.parseForEachShorthand()
		}
	}

	if tok.Type == TokenPunctuator && tok.Punctuator == PLBrace {
		return p.parseBlockStmt()
	}

	return p.parseExprStmt()
}

func (p *parser) parseBlockStmt() (*BlockStmt, error) {
	open, err := p.expectPunct(PLBrace)
	if err != nil {
		return nil, err
	}
	blk := &BlockStmt{position: open.Position()}
	for !p.atPunct(PRBrace) {
		if p.ts.Empty() {
			return nil, p.errorf(open.Position(), "unterminated block")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		blk.Body = append(blk.Body, stmt)
	}
	if _, err := p.expectPunct(PRBrace); err != nil {
		return nil, err
	}
	return blk, nil
}

func (p *parser) parseVarStmt() (Statement, error) {
	tok, _ := p.pop()
	isConst := tok.Keyword == KwConst
	stmt := &VarStmt{position: tok.Position()}
	for {
		name, _, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		stmt.Names = append(stmt.Names, name)
		stmt.Consts = append(stmt.Consts, isConst)
		if p.tryPunct(PAssign) {
			val, err := p.parseExpr(precAssign)
			if err != nil {
				return nil, err
			}
			stmt.Values = append(stmt.Values, val)
		} else {
			stmt.Values = append(stmt.Values, nil)
		}
		if !p.tryPunct(PComma) {
			break
		}
	}
	p.tryPunct(PSemi)
	return stmt, nil
}

func (p *parser) parseFuncStmt() (Statement, error) {
	tok, _ := p.pop()
	name, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	params, variadic, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlockStmt()
	if err != nil {
		return nil, err
	}
	return &FuncStmt{Name: name, Params: params, Variadic: variadic, Body: body, position: tok.Position()}, nil
}

func (p *parser) parseParamList() ([]string, bool, error) {
	if _, err := p.expectPunct(PLParen); err != nil {
		return nil, false, err
	}
	var params []string
	variadic := false
	for !p.atPunct(PRParen) {
		if p.tryPunct(PEllipsis) {
			variadic = true
			break
		}
		name, _, err := p.expectIdent()
		if err != nil {
			return nil, false, err
		}
		params = append(params, name)
		if !p.tryPunct(PComma) {
			break
		}
	}
	if _, err := p.expectPunct(PRParen); err != nil {
		return nil, false, err
	}
	return params, variadic, nil
}

func (p *parser) parseIfStmt() (Statement, error) {
	tok, _ := p.pop()
	if _, err := p.expectPunct(PLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(precAssign)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(PRParen); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt := &IfStmt{Cond: cond, Then: then, position: tok.Position()}
	if p.atKeyword(KwElse) {
		p.pop()
		els, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmt.Else = els
	}
	return stmt, nil
}

func (p *parser) parseWhileStmt() (Statement, error) {
	tok, _ := p.pop()
	if _, err := p.expectPunct(PLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(precAssign)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(PRParen); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Cond: cond, Body: body, position: tok.Position()}, nil
}

func (p *parser) parseDoWhileStmt() (Statement, error) {
	tok, _ := p.pop()
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword(KwWhile); err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(PLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(precAssign)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(PRParen); err != nil {
		return nil, err
	}
	p.tryPunct(PSemi)
	return &DoWhileStmt{Body: body, Cond: cond, position: tok.Position()}, nil
}

// parseForStmt disambiguates classic C-style `for(init; cond; post)` from
// `for each (v : range)` / `for each (k, v : range)` by looking for the
// `each` keyword immediately after `for`.
func (p *parser) parseForStmt() (Statement, error) {
	tok, _ := p.pop()
	if p.atKeyword(KwEach) {
		p.pop()
		return p.parseForEachRest(tok.Position())
	}
	if _, err := p.expectPunct(PLParen); err != nil {
		return nil, err
	}
	stmt := &ForStmt{position: tok.Position()}
	if !p.atPunct(PSemi) {
		if p.atKeyword(KwVar) || p.atKeyword(KwConst) {
			init, err := p.parseVarStmt()
			if err != nil {
				return nil, err
			}
			stmt.Init = init
		} else {
			e, err := p.parseExpr(precAssign)
			if err != nil {
				return nil, err
			}
			stmt.Init = &ExprStmt{Expr: e, position: e.Pos()}
			if _, err := p.expectPunct(PSemi); err != nil {
				return nil, err
			}
		}
	} else {
		p.pop()
	}
	if !p.atPunct(PSemi) {
		cond, err := p.parseExpr(precAssign)
		if err != nil {
			return nil, err
		}
		stmt.Cond = cond
	}
	if _, err := p.expectPunct(PSemi); err != nil {
		return nil, err
	}
	if !p.atPunct(PRParen) {
		post, err := p.parseExpr(precAssign)
		if err != nil {
			return nil, err
		}
		stmt.Post = post
	}
	if _, err := p.expectPunct(PRParen); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt.Body = body
	return stmt, nil
}

// parseForEachShorthand supports a bare `each (v : range) body` outside a
// leading `for`, matching how some Asteria snippets in the corpus write
// iteration; it delegates to the same rest-parser as `for each`.
func (p *parser) parseForEachShorthand() (Statement, error) {
	tok, _ := p.pop()
	return p.parseForEachRest(tok.Position())
}

func (p *parser) parseForEachRest(pos Position) (Statement, error) {
	if _, err := p.expectPunct(PLParen); err != nil {
		return nil, err
	}
	first, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	stmt := &ForEachStmt{position: pos}
	if p.tryPunct(PComma) {
		second, _, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		stmt.KeyName = first
		stmt.ValName = second
	} else {
		stmt.ValName = first
	}
	// The keyword table has no `in`; range iteration is introduced with
	// `:`, the same separator `switch`/`case` uses, to keep the grammar
	// within the closed keyword and punctuator sets of spec §6.2.
	if _, err := p.expectPunct(PColon); err != nil {
		return nil, err
	}
	rng, err := p.parseExpr(precAssign)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(PRParen); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt.Range = rng
	stmt.Body = body
	return stmt, nil
}

func (p *parser) parseReturnStmt() (Statement, error) {
	tok, _ := p.pop()
	stmt := &ReturnStmt{position: tok.Position()}
	if !p.atPunct(PSemi) {
		val, err := p.parseExpr(precAssign)
		if err != nil {
			return nil, err
		}
		stmt.Value = val
	}
	p.tryPunct(PSemi)
	return stmt, nil
}

func (p *parser) parseThrowStmt() (Statement, error) {
	tok, _ := p.pop()
	val, err := p.parseExpr(precAssign)
	if err != nil {
		return nil, err
	}
	p.tryPunct(PSemi)
	return &ThrowStmt{Value: val, position: tok.Position()}, nil
}

func (p *parser) parseTryStmt() (Statement, error) {
	tok, _ := p.pop()
	tryBody, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt := &TryStmt{Try: tryBody, position: tok.Position()}
	if _, err := p.expectKeyword(KwCatch); err != nil {
		return nil, err
	}
	if p.tryPunct(PLParen) {
		name, _, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		stmt.CatchVar = name
		if _, err := p.expectPunct(PRParen); err != nil {
			return nil, err
		}
	}
	catchBody, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt.Catch = catchBody
	return stmt, nil
}

func (p *parser) parseDeferStmt() (Statement, error) {
	tok, _ := p.pop()
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &DeferStmt{Body: body, position: tok.Position()}, nil
}

func (p *parser) parseUnsetStmt() (Statement, error) {
	tok, _ := p.pop()
	target, err := p.parseExpr(precUnary)
	if err != nil {
		return nil, err
	}
	p.tryPunct(PSemi)
	return &UnsetStmt{Target: target, position: tok.Position()}, nil
}

func (p *parser) parseAssertStmt() (Statement, error) {
	tok, _ := p.pop()
	cond, err := p.parseExpr(precAssign)
	if err != nil {
		return nil, err
	}
	stmt := &AssertStmt{Cond: cond, position: tok.Position()}
	if p.tryPunct(PColon) {
		msg, ok := p.pop()
		if !ok || msg.Type != TokenString {
			return nil, p.unexpected(msg, ok, "string literal")
		}
		stmt.Message = msg.StringValue
	}
	p.tryPunct(PSemi)
	return stmt, nil
}

func (p *parser) parseSwitchStmt() (Statement, error) {
	tok, _ := p.pop()
	if _, err := p.expectPunct(PLParen); err != nil {
		return nil, err
	}
	subj, err := p.parseExpr(precAssign)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(PRParen); err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(PLBrace); err != nil {
		return nil, err
	}
	stmt := &SwitchStmt{Subject: subj, position: tok.Position()}
	for !p.atPunct(PRBrace) {
		var clause CaseClause
		if p.atKeyword(KwCase) {
			p.pop()
			for {
				v, err := p.parseExpr(precAssign)
				if err != nil {
					return nil, err
				}
				clause.Values = append(clause.Values, v)
				if !p.tryPunct(PComma) {
					break
				}
			}
		} else if _, err := p.expectKeyword(KwDefault); err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(PColon); err != nil {
			return nil, err
		}
		for !p.atKeyword(KwCase) && !p.atKeyword(KwDefault) && !p.atPunct(PRBrace) {
			s, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			clause.Body = append(clause.Body, s)
		}
		stmt.Cases = append(stmt.Cases, clause)
	}
	if _, err := p.expectPunct(PRBrace); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *parser) parseExprStmt() (Statement, error) {
	e, err := p.parseExpr(precAssign)
	if err != nil {
		return nil, err
	}
	p.tryPunct(PSemi)
	return &ExprStmt{Expr: e, position: e.Pos()}, nil
}
