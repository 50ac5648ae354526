// Package chatmodel provides the conversation context and the error kinds
// shared by the MCP client and the assistants.
package chatmodel
