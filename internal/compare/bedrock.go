package compare

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/khanhvu/outreach/internal/model"
)

const promptHeader = `You are a sourcing analyst. Compare the supplier bids below and
recommend which supplier(s) to shortlist. Consider price, minimum order
quantity, lead time, certifications, and material composition where the
sheets expose them. Present a ranked comparison table followed by a
short recommendation.`

// Comparer runs bid comparisons over the spreadsheets saved for a
// collection.
type Comparer struct {
	client         *bedrockruntime.Client
	modelID        string
	maxTokens      int
	maxPromptChars int
	baseDir        string
	logger         *zap.Logger
}

// NewComparer loads the default AWS configuration for the configured
// region and builds a Bedrock-backed Comparer reading spreadsheets
// under baseDir.
func NewComparer(ctx context.Context, cfg model.BedrockConfig, baseDir string, logger *zap.Logger) (*Comparer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS configuration: %w", err)
	}

	return &Comparer{
		client:         bedrockruntime.NewFromConfig(awsCfg),
		modelID:        cfg.ModelID,
		maxTokens:      cfg.MaxTokens,
		maxPromptChars: cfg.MaxPromptChars,
		baseDir:        baseDir,
		logger:         logger,
	}, nil
}

// Compare flattens the collection's spreadsheets into a prompt and asks
// the model for a comparison. It returns the model's text and the list
// of files that were compared.
func (c *Comparer) Compare(ctx context.Context, collectionID, extraInstructions string) (string, []string, error) {
	files, err := ExcelFiles(c.baseDir, collectionID)
	if err != nil {
		return "", nil, err
	}
	if len(files) == 0 {
		return "", nil, fmt.Errorf("no spreadsheets saved for collection %q", collectionID)
	}

	prompt := buildPrompt(files, extraInstructions, c.maxPromptChars)

	c.logger.Info("running bid comparison",
		zap.String("collection", collectionID),
		zap.Int("files", len(files)),
		zap.Int("prompt_chars", len(prompt)))

	body, err := json.Marshal(map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        c.maxTokens,
		"messages": []map[string]interface{}{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", nil, fmt.Errorf("marshaling request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        body,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", nil, fmt.Errorf("invoking Bedrock model: %w", err)
	}

	text, err := extractText(resp.Body)
	if err != nil {
		return "", nil, err
	}

	return text, files, nil
}

// buildPrompt assembles the comparison prompt, truncated to the
// configured character guard so oversized sheets cannot blow up the
// request.
func buildPrompt(files []string, extraInstructions string, maxChars int) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\n")

	if extraInstructions != "" {
		b.WriteString("Additional instructions: ")
		b.WriteString(extraInstructions)
		b.WriteString("\n\n")
	}

	for _, path := range files {
		b.WriteString(workbookToText(path))
		b.WriteByte('\n')
	}

	prompt := b.String()
	if maxChars > 0 && len(prompt) > maxChars {
		prompt = prompt[:maxChars]
	}
	return prompt
}

// extractText pulls the assistant text out of a Bedrock response,
// tolerating both the messages-API shape and plain completion fields.
func extractText(raw []byte) (string, error) {
	var msgResp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Completion string `json:"completion"`
	}
	if err := json.Unmarshal(raw, &msgResp); err != nil {
		return "", fmt.Errorf("unmarshaling model response: %w", err)
	}

	var parts []string
	for _, c := range msgResp.Content {
		if c.Type == "" || c.Type == "text" {
			parts = append(parts, c.Text)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n"), nil
	}
	if msgResp.Completion != "" {
		return msgResp.Completion, nil
	}

	return string(raw), nil
}
