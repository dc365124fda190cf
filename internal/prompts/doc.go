// Package prompts contains the LLM prompt text used by the newswire agent.
//
// Prompt text is Go code rather than config files because it is program
// logic: it benefits from compile-time embedding and can be validated by
// tests. Convention: each prompt gets its own file with an exported
// function that returns the final string, even when no interpolation
// happens yet.
package prompts
