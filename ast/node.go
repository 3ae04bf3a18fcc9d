// Package ast defines the compiler's typed abstract syntax tree:
// declarations, statements, and expressions, each location-tagged and
// instantiable (spec.md §3/§4.2), grounded on original_source's
// ast/decl.h, ast/expr.h and ast/stmt.cpp.
package ast

import (
	"github.com/cxlang/cxc/token"
	"github.com/cxlang/cxc/types"
)

// AccessLevel is the declared visibility of a Decl.
type AccessLevel int

const (
	Private AccessLevel = iota
	Public
)

// Node is the shared header every Decl, Stmt, and Expr node embeds,
// carrying its source location (spec.md §3: "every declaration owns a
// source location").
type Node struct {
	Loc token.Position
}

func (n Node) Location() token.Position { return n.Loc }

// Movable tracks the move-tracking bit from spec.md §4.2: a variable or
// parameter binding may be marked moved once a non-copyable value is moved
// out of it.
type Movable struct {
	moved bool
}

func (m *Movable) IsMoved() bool     { return m.moved }
func (m *Movable) SetMoved(v bool)   { m.moved = v }

// Mangled name components used by lower.Mangle; kept on exported decls so
// that lowering does not need to recompute receiver/qualified names.
type QualifiedName struct {
	Module      string
	ReceiverTy  string // empty if not a method
	Name        string
	GenericArgs []types.Type
}
