package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrIncomplete = errors.New("stream ended without a completed response")

type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func tracedHTTPClient() option.RequestOption {
	return option.WithHTTPClient(&http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// NewOpenAI talks to the public OpenAI API or any compatible base URL.
func NewOpenAI(baseURL, apiKey, model string, extra ...option.RequestOption) *OpenAIProvider {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, tracedHTTPClient())
	opts = append(opts, extra...)
	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, model: model}
}

// NewAzure targets an Azure OpenAI deployment. The deployment name doubles as
// the model name. When apiKey is empty cred is used for Entra ID tokens.
func NewAzure(endpoint, apiVersion, deployment, apiKey string, cred azcore.TokenCredential) *OpenAIProvider {
	opts := []option.RequestOption{
		azure.WithEndpoint(endpoint, apiVersion),
		tracedHTTPClient(),
	}
	if apiKey != "" {
		opts = append(opts, azure.WithAPIKey(apiKey))
	} else if cred != nil {
		opts = append(opts, azure.WithTokenCredential(cred))
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, model: deployment}
}

func (o *OpenAIProvider) Model() string { return o.model }

func (o *OpenAIProvider) ChatStream(ctx context.Context, input []responses.ResponseInputItemUnionParam, tools []responses.ToolUnionParam, onToken func(string)) (*responses.Response, error) {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(o.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: input,
		},
		Tools: tools,
	}

	stream := o.client.Responses.NewStreaming(ctx, params)
	defer stream.Close()

	var completed *responses.Response

	for stream.Next() {
		event := stream.Current()

		switch event.Type {
		case "response.output_text.delta":
			if event.Delta != "" && onToken != nil {
				onToken(event.Delta)
			}
		case "response.completed":
			completed = &event.Response
		case "response.failed":
			return nil, fmt.Errorf("response failed: %s", event.Response.Error.Message)
		}
	}

	if err := stream.Err(); err != nil {
		return nil, err
	}
	if completed == nil {
		return nil, ErrIncomplete
	}

	return completed, nil
}
