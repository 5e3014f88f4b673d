// Package model defines the provider-agnostic completion contract used to
// generate answers, together with a MockModel for tests and dry runs.
//
// Providers (OpenAI, Anthropic) live in sub-packages and implement Model so
// the answering pipeline stays decoupled from vendor SDKs.
package model
