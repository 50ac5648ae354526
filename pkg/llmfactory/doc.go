// Package llmfactory provides configuration and a factory for chat models,
// supporting OpenAI and Azure OpenAI deployments and model selection by name.
package llmfactory
