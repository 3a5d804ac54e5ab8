// Package llm is the provider-neutral chat completion client.
//
// An [Adapter] pairs the httpclient transport with a [Dialect] that maps
// [CompletionRequest] to one provider's wire format, similar to how
// database/sql pairs with drivers. Dialects register by name:
//
//	import _ "github.com/kbukum/livecue/llm/openai"
//
//	adapter, err := llm.New(llm.Config{
//	    Dialect: "openai",
//	    BaseURL: "https://api.openai.com/v1",
//	    Model:   "gpt-4o-mini",
//	    APIKey:  key,
//	})
//	chunks, err := adapter.Stream(ctx, llm.CompletionRequest{
//	    Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hello"}},
//	})
//
// Errors are classified *errors.AppError values so callers can decide what
// to retry without inspecting transport details.
package llm
