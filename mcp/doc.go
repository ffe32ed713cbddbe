// Package mcp implements a small Model Context Protocol server: JSON-RPC
// 2.0 wire types, registries for resources, tools and prompts, method
// dispatch, and a stdio transport.
package mcp
