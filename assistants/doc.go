// Package assistants provides the chat assistant that answers a user message
// with an LLM, dispatching the tool calls the model requests to the MCP tool
// host and feeding the results back until the model returns a final answer.
package assistants
