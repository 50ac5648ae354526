// Package llms provides the provider-neutral model of a chat completion
// with tool calling: messages, tool definitions, call options and responses.
//
// The provider implementations live in subpackages, each with an internal
// client for the provider API.
package llms
