package coach

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
)

// Azure calls an Azure OpenAI chat deployment. Web-search grounding is not
// available there, so Search requests return no sources.
type Azure struct {
	client       *azopenai.Client
	deploymentID string
}

var _ Model = (*Azure)(nil)

// NewAzure creates a client for the given deployment.
func NewAzure(endpoint, apiKey, deploymentID string) (*Azure, error) {
	keyCredential := azcore.NewKeyCredential(apiKey)
	client, err := azopenai.NewClientWithKeyCredential(endpoint, keyCredential, nil)
	if err != nil {
		return nil, fmt.Errorf("creating Azure OpenAI client: %w", err)
	}
	return &Azure{client: client, deploymentID: deploymentID}, nil
}

func (a *Azure) Generate(ctx context.Context, req Request) (*Response, error) {
	var messages []azopenai.ChatRequestMessageClassification

	system := req.System
	if req.Schema != nil {
		schema, err := json.Marshal(req.Schema)
		if err != nil {
			return nil, fmt.Errorf("azure: encode schema: %w", err)
		}
		system = strings.TrimSpace(system + "\nReply with JSON only, matching this schema: " + string(schema))
	}
	if system != "" {
		messages = append(messages, &azopenai.ChatRequestSystemMessage{
			Content: azopenai.NewChatRequestSystemMessageContent(system),
		})
	}

	if len(req.Image) > 0 {
		dataURL := "data:" + req.ImageMIME + ";base64," + base64.StdEncoding.EncodeToString(req.Image)
		parts := []azopenai.ChatCompletionRequestMessageContentPartClassification{
			&azopenai.ChatCompletionRequestMessageContentPartText{Text: to.Ptr(req.Prompt)},
			&azopenai.ChatCompletionRequestMessageContentPartImage{
				ImageURL: &azopenai.ChatCompletionRequestMessageContentPartImageURL{URL: to.Ptr(dataURL)},
			},
		}
		messages = append(messages, &azopenai.ChatRequestUserMessage{
			Content: azopenai.NewChatRequestUserMessageContent(parts),
		})
	} else {
		messages = append(messages, &azopenai.ChatRequestUserMessage{
			Content: azopenai.NewChatRequestUserMessageContent(req.Prompt),
		})
	}

	resp, err := a.client.GetChatCompletions(ctx, azopenai.ChatCompletionsOptions{
		DeploymentName: to.Ptr(a.deploymentID),
		Messages:       messages,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("azure: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == nil {
		return nil, ErrEmptyResponse
	}

	text := strings.TrimSpace(*resp.Choices[0].Message.Content)
	if req.Schema != nil {
		text = stripFences(text)
	}
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return &Response{Text: text}, nil
}
