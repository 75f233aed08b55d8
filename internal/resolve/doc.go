// Package resolve loads the dependency closure of a root template.
//
// Starting from the root, every @extends and @use directive is followed:
// the referenced path is canonicalised, loaded through a Loader, parsed
// once, and cached by canonical path. A path stack detects cycles. The
// result is a Graph: a table of resolved templates addressed by
// ast.TemplateRef, per-template alias scopes, one ComponentDef per file,
// and a callee-first unit order.
package resolve
