// Package orchestrator implements the core turn loop of AgentBridge.
//
// One Process call drives a single exchange through a small state machine:
// resolve the conversation and record the user turn (START), fetch relevant
// tool descriptors (LOOKUP), prompt the model (GENERATE), run any requested
// tools and feed the results back (EXECUTE, looping to GENERATE), then
// commit the whole exchange and return the reply (FINALIZE).
//
// # Guarantees
//   - Nothing is committed to the conversation store before FINALIZE; an
//     aborted or canceled call leaves the conversation unmodified.
//   - Tool calls and their results are recorded in the model's emission
//     order, even when execution is parallelized.
//   - The generate/execute loop terminates: an explicit round limiter caps
//     tool round trips and falls back to the last free text produced.
//   - Process calls on the same conversation are mutually exclusive;
//     different conversations proceed concurrently.
package orchestrator
