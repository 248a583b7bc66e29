// Package luahost runs compiled programs inside an embedded Lua VM
// (github.com/yuin/gopher-lua) against a stand-in host library.
//
// The stand-in exposes one function per registered operation under the
// program's library table, plus the global vector constructor. Calls are
// checked against the operation signature and recorded in a Trace. Pure
// builtins such as add or split_vector compute real results; every other
// operation returns placeholder values of its declared output types, with
// fresh mesh handles for mesh outputs.
//
// This is a dry run for inspecting and testing programs. The real mesh
// library lives in the production runtime.
package luahost
