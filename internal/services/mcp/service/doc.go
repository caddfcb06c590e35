// Package service exposes the rules engine as MCP tools.
//
// Tools read a world from a bundle file or a stored workspace, run one
// engine pass, and return the validation result or the selected unit's
// move set as structured content. Transport is stdio.
package service
