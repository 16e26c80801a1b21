package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const defaultBedrockModel = "anthropic.claude-3-sonnet-20240229-v1:0"

// converseAPI is the subset of the Bedrock runtime client used here.
type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockAdapter implements the Adapter interface for AWS Bedrock through
// the Converse API.
type BedrockAdapter struct {
	client       converseAPI
	defaultModel string
	systemPrompt string
}

// BedrockConfig configures the Bedrock adapter. Empty credentials fall back
// to the default AWS credential chain.
type BedrockConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	DefaultModel    string
	SystemPrompt    string
}

// NewBedrockAdapter creates a Bedrock adapter from cfg.
func NewBedrockAdapter(ctx context.Context, cfg BedrockConfig) (*BedrockAdapter, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("bedrock region is required: %w", ErrInvalidRequest)
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return newBedrockAdapter(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

func newBedrockAdapter(client converseAPI, cfg BedrockConfig) *BedrockAdapter {
	a := &BedrockAdapter{
		client:       client,
		defaultModel: cfg.DefaultModel,
		systemPrompt: cfg.SystemPrompt,
	}
	if a.defaultModel == "" {
		a.defaultModel = defaultBedrockModel
	}
	if a.systemPrompt == "" {
		a.systemPrompt = DefaultSystemPrompt
	}
	return a
}

// Name returns the adapter identifier.
func (a *BedrockAdapter) Name() string {
	return "bedrock"
}

// Models returns the list of suggested Bedrock model IDs.
func (a *BedrockAdapter) Models() []string {
	return []string{
		defaultBedrockModel,
		"anthropic.claude-3-haiku-20240307-v1:0",
		"meta.llama3-8b-instruct-v1:0",
	}
}

// Generate sends a Converse request and normalizes the response.
func (a *BedrockAdapter) Generate(ctx context.Context, prompt string, opts Options) (*Response, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	model := opts.model(a.defaultModel)
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(model),
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prompt}},
		}},
		System: []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: a.systemPrompt}},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:     aws.Int32(int32(opts.maxTokens())),
			Temperature:   aws.Float32(float32(opts.temperature())),
			TopP:          aws.Float32(float32(opts.topP())),
			StopSequences: opts.Stop,
		},
	}

	additional := make(map[string]any, len(opts.Extra)+1)
	for key, value := range opts.Extra {
		additional[key] = value
	}
	if opts.TopK != nil {
		additional["top_k"] = *opts.TopK
	}
	if len(additional) > 0 {
		input.AdditionalModelRequestFields = document.NewLazyDocument(additional)
	}

	if len(opts.Tools) > 0 {
		tools := make([]types.Tool, 0, len(opts.Tools))
		for _, tool := range opts.Tools {
			spec := types.ToolSpecification{
				Name:        aws.String(tool.Name),
				InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(tool.Parameters)},
			}
			if tool.Description != "" {
				spec.Description = aws.String(tool.Description)
			}
			tools = append(tools, &types.ToolMemberToolSpec{Value: spec})
		}
		input.ToolConfig = &types.ToolConfiguration{Tools: tools}
	}

	out, err := a.client.Converse(ctx, input)
	if err != nil {
		return nil, wrapProviderError(a.Name(), err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, &AdapterError{Provider: a.Name(), Err: fmt.Errorf("bedrock returned no message: %w", ErrInvalidRequest)}
	}
	var content strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			content.WriteString(text.Value)
		}
	}

	raw := map[string]any{}
	if out.Usage != nil {
		if out.Usage.InputTokens != nil {
			raw["inputTokens"] = *out.Usage.InputTokens
		}
		if out.Usage.OutputTokens != nil {
			raw["outputTokens"] = *out.Usage.OutputTokens
		}
	}
	return &Response{
		Text:       content.String(),
		Usage:      NormalizeUsage(raw, a.Name()),
		StopReason: string(out.StopReason),
		Model:      model,
	}, nil
}
