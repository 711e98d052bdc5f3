// Package openaicompat provides a langchaingo Model backed by any
// OpenAI-compatible chat completion API.
//
// It speaks the /chat/completions wire protocol through the go-openai
// client, so the same adapter serves api.openai.com as well as the many
// vendors and local servers that imitate it. Point it elsewhere with
// WithBaseURL or the OPENAI_BASE_URL environment variable.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/callbacks"
	"github.com/tmc/langchaingo/llms"
)

var (
	ErrAPIKeyRequired = errors.New("api key is required")
	ErrEmptyResponse  = errors.New("no response")
)

// LLM is a client for OpenAI-compatible chat completion APIs.
type LLM struct {
	client           *openai.Client
	model            string
	CallbacksHandler callbacks.Handler
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI-compatible LLM client.
//
// Authentication options:
// 1. WithAPIKey(apiKey) - pass API key directly
// 2. Set OPENAI_API_KEY environment variable
//
// Example:
//
//	llm, err := openaicompat.New(
//		openaicompat.WithAPIKey("your-api-key"),
//		openaicompat.WithModel("gpt-4o-mini"),
//	)
func New(opts ...Option) (*LLM, error) {
	options := &options{
		apiKey:  getEnvOrDefault(apiKeyEnvVarName, ""),
		model:   getEnvOrDefault(modelEnvVarName, DefaultModel),
		baseURL: getEnvOrDefault(baseURLEnvVarName, ""),
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.apiKey == "" {
		return nil, fmt.Errorf(`%w
You can pass auth info by using openaicompat.New(openaicompat.WithAPIKey("{API Key}"))
or
export OPENAI_API_KEY={API Key}`, ErrAPIKeyRequired)
	}

	config := openai.DefaultConfig(options.apiKey)
	if options.baseURL != "" {
		config.BaseURL = strings.TrimSuffix(options.baseURL, "/")
	}
	if options.httpClient != nil {
		config.HTTPClient = options.httpClient
	}

	return &LLM{
		client:           openai.NewClientWithConfig(config),
		model:            options.model,
		CallbacksHandler: options.callbacksHandler,
	}, nil
}

// Call generates a response from the LLM for the given prompt.
func (o *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, o, prompt, options...)
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if o.CallbacksHandler != nil {
		o.CallbacksHandler.HandleLLMGenerateContentStart(ctx, messages)
	}

	opts := &llms.CallOptions{}
	for _, opt := range options {
		opt(opts)
	}

	chatMessages, err := toChatMessages(messages)
	if err != nil {
		if o.CallbacksHandler != nil {
			o.CallbacksHandler.HandleLLMError(ctx, err)
		}
		return nil, err
	}

	req := openai.ChatCompletionRequest{
		Model:       o.getModelString(opts),
		Messages:    chatMessages,
		Temperature: float32(opts.Temperature),
		TopP:        float32(opts.TopP),
		MaxTokens:   opts.MaxTokens,
		Stop:        opts.StopWords,
	}

	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	for _, tool := range opts.Tools {
		t, err := toTool(tool)
		if err != nil {
			return nil, err
		}
		req.Tools = append(req.Tools, t)
	}

	switch tc := opts.ToolChoice.(type) {
	case string:
		req.ToolChoice = tc
	case llms.ToolChoice:
		choice := openai.ToolChoice{Type: openai.ToolType(tc.Type)}
		if tc.Function != nil {
			choice.Function = openai.ToolFunction{Name: tc.Function.Name}
		}
		req.ToolChoice = choice
	}

	var resp *llms.ContentResponse
	if opts.StreamingFunc != nil {
		resp, err = o.generateStream(ctx, req, opts.StreamingFunc)
	} else {
		resp, err = o.generate(ctx, req)
	}
	if err != nil {
		if o.CallbacksHandler != nil {
			o.CallbacksHandler.HandleLLMError(ctx, err)
		}
		return nil, err
	}

	if o.CallbacksHandler != nil {
		o.CallbacksHandler.HandleLLMGenerateContentEnd(ctx, resp)
	}

	return resp, nil
}

func (o *LLM) generate(ctx context.Context, req openai.ChatCompletionRequest) (*llms.ContentResponse, error) {
	result, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(result.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choices := make([]*llms.ContentChoice, 0, len(result.Choices))
	for _, c := range result.Choices {
		choice := &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: string(c.FinishReason),
			GenerationInfo: map[string]any{
				"prompt_tokens":     result.Usage.PromptTokens,
				"completion_tokens": result.Usage.CompletionTokens,
				"total_tokens":      result.Usage.TotalTokens,
			},
		}

		for _, tc := range c.Message.ToolCalls {
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   tc.ID,
				Type: string(tc.Type),
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}

		choices = append(choices, choice)
	}

	return &llms.ContentResponse{Choices: choices}, nil
}

// generateStream collects the full completion while forwarding each content
// delta to streamingFunc. Streamed responses carry no usage block.
func (o *LLM) generateStream(ctx context.Context, req openai.ChatCompletionRequest, streamingFunc func(ctx context.Context, chunk []byte) error) (*llms.ContentResponse, error) {
	stream, err := o.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var content strings.Builder
	var stopReason string

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta.Content
		if delta != "" {
			content.WriteString(delta)
			if err := streamingFunc(ctx, []byte(delta)); err != nil {
				return nil, err
			}
		}

		if chunk.Choices[0].FinishReason != "" {
			stopReason = string(chunk.Choices[0].FinishReason)
		}
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content:        content.String(),
				StopReason:     stopReason,
				GenerationInfo: make(map[string]any),
			},
		},
	}, nil
}

// toChatMessages converts langchaingo messages to the wire format. Text parts
// are concatenated; tool calls and tool responses keep their identifiers so
// multi-turn tool conversations round-trip.
func toChatMessages(messages []llms.MessageContent) ([]openai.ChatCompletionMessage, error) {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		cm := openai.ChatCompletionMessage{Role: toRole(msg.Role)}

		var content strings.Builder
		for _, part := range msg.Parts {
			switch p := part.(type) {
			case llms.TextContent:
				content.WriteString(p.Text)
			case llms.ToolCall:
				tc := openai.ToolCall{ID: p.ID, Type: openai.ToolTypeFunction}
				if p.FunctionCall != nil {
					tc.Function = openai.FunctionCall{
						Name:      p.FunctionCall.Name,
						Arguments: p.FunctionCall.Arguments,
					}
				}
				cm.ToolCalls = append(cm.ToolCalls, tc)
			case llms.ToolCallResponse:
				cm.Role = openai.ChatMessageRoleTool
				cm.ToolCallID = p.ToolCallID
				cm.Name = p.Name
				content.WriteString(p.Content)
			default:
				return nil, fmt.Errorf("unsupported content part type %T", part)
			}
		}
		cm.Content = content.String()

		chatMessages = append(chatMessages, cm)
	}
	return chatMessages, nil
}

func toRole(role llms.ChatMessageType) string {
	switch role {
	case llms.ChatMessageTypeSystem:
		return openai.ChatMessageRoleSystem
	case llms.ChatMessageTypeAI:
		return openai.ChatMessageRoleAssistant
	case llms.ChatMessageTypeTool:
		return openai.ChatMessageRoleTool
	default:
		// human, generic and anything unknown go out as user turns.
		return openai.ChatMessageRoleUser
	}
}

func toTool(tool llms.Tool) (openai.Tool, error) {
	if tool.Function == nil {
		return openai.Tool{}, fmt.Errorf("tool of type %q has no function definition", tool.Type)
	}
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			Parameters:  tool.Function.Parameters,
		},
	}, nil
}

func (o *LLM) getModelString(opts *llms.CallOptions) string {
	if opts.Model != "" {
		return opts.Model
	}
	return o.model
}
