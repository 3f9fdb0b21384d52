// Package testutil provides shared test doubles for AgentBridge tests:
// an in-process fake of the tool registry's HTTP surface and a scripted
// tool manager for orchestrator tests that should not touch the network.
package testutil
