// Package asteria implements the Asteria execution engine: a small,
// embeddable dynamically-typed scripting language with the following
// constructs:
//   - Function statements and closures via `func name(args...) { ... }` and
//     `func(args...) { ... }`, with trailing `...` for variadic parameters.
//   - Literals for null, bools, ints, reals, strings, arrays, and objects.
//   - Arithmetic, comparison, and bitwise expressions, short-circuiting
//     `and`/`or`, a `??` coalescing operator, and a ternary `cond ? a : b`.
//   - Control flow: `if`/`else`, `while`, `do...while`, C-style `for`, and
//     `each (k, v : range)` iteration over arrays and objects.
//   - `try`/`catch`, `throw`, `defer` (LIFO on scope exit), `unset`, and
//     `assert cond: "message"`.
//   - Indexing via `object[expr]` and member access via `object.attr`;
//     method-style calls bind an implicit `this` to the receiving object.
//   - A small standard library (string, json, io, fs, chrono, misc, array)
//     exposed to scripts as bound native-function objects.
//
// Comments are `//` line comments or `/* */` block comments; a leading
// `#!` shebang line is skipped. The interpreter enforces configurable
// step, memory, and recursion quotas, aborting scripts that exceed them.
package asteria
