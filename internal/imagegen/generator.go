package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/lox/sgweather/internal/forecast"
	"github.com/lox/sgweather/internal/metrics"
)

const bannerModel = "gpt-image-1"

var errNoImage = errors.New("response carried no image")

// Generator paints category banners with the OpenAI image API.
type Generator struct {
	client openai.Client
}

// NewGenerator needs an API key; extra options go to the OpenAI client.
func NewGenerator(apiKey string, opts ...option.RequestOption) (*Generator, error) {
	if apiKey == "" {
		return nil, errors.New("no OpenAI API key configured")
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Generator{client: openai.NewClient(opts...)}, nil
}

// bannerRequest asks for a wide, low-quality PNG: it only sits behind the
// page header, dimmed.
func bannerRequest(category forecast.Category) openai.ImageGenerateParams {
	return openai.ImageGenerateParams{
		Model:        bannerModel,
		Prompt:       forecast.BuildBannerPrompt(category),
		Size:         openai.ImageGenerateParamsSize1536x1024,
		Quality:      openai.ImageGenerateParamsQualityLow,
		OutputFormat: openai.ImageGenerateParamsOutputFormatPNG,
	}
}

// Generate returns the PNG banner for category.
func (g *Generator) Generate(ctx context.Context, category forecast.Category) ([]byte, error) {
	start := time.Now()
	data, err := g.paint(ctx, category)
	if err != nil {
		metrics.BannerGenerations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("paint %s banner: %w", category, err)
	}
	metrics.BannerGenerations.WithLabelValues("ok").Inc()
	log.Printf("imagegen: painted %s banner in %s (%d bytes)", category, time.Since(start).Round(time.Millisecond), len(data))
	return data, nil
}

func (g *Generator) paint(ctx context.Context, category forecast.Category) ([]byte, error) {
	resp, err := g.client.Images.Generate(ctx, bannerRequest(category))
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, errNoImage
	}
	return base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
}
