// Package codegen lowers a resolved and analyzed template graph into a
// render plan.
//
// Every template file becomes one plan.Unit. The root unit carries the
// composed stream: the outermost layout's instructions with each body
// slot replaced by the stream of the template that extends it, and the
// section definitions of the whole chain, inner definitions overriding
// outer ones.
package codegen
