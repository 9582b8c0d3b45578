package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lunchbot/lib/telemetry"
)

const report_chain_fallthrough = "chain.fallthrough"

// Chain tries every generator in order and returns the first image.
type Chain []ImageGenerator

func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, g := range c {
		names[i] = g.Name()
	}
	return strings.Join(names, " -> ")
}

func (c Chain) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	if len(c) == 0 {
		return Image{}, errors.New("no image generators configured")
	}

	var errs []error
	for _, generator := range c {
		image, err := generator.GenerateImage(ctx, prompt)
		if err == nil {
			return image, nil
		}
		telemetry.ReportWarning(report_chain_fallthrough, "generator", generator.Name(), "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", generator.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return Image{}, errors.Join(errs...)
}
