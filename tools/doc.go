// Package tools defines the capability table of tools exposed to the model:
// the function definition sent to the LLM, an optional argument injector
// that completes a call before it reaches the tool host, and an optional
// extractor of the dataset a tool result carries for the result cache.
package tools
