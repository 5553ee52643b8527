package lessonplanner

import (
	"context"
	"fmt"
	"strings"
)

// ImageGenerator turns a scene description into a data URI, or reports absence
type ImageGenerator interface {
	GenerateImage(ctx context.Context, description string) (string, bool)
}

// ImageMaker generates classroom illustrations
type ImageMaker struct {
	backend ImageBackend
}

// NewImageMaker creates an image maker on top of the given backend
func NewImageMaker(backend ImageBackend) *ImageMaker {
	return &ImageMaker{backend: backend}
}

// GenerateImage returns the illustration as a data URI. Failures are logged and
// reported as absence because an illustration is optional.
func (im *ImageMaker) GenerateImage(ctx context.Context, description string) (string, bool) {
	const op = "GenerateImage"
	if blank(description) {
		return "", false
	}

	b64, mimeType, err := im.backend.GenerateImageData(ctx, buildImagePrompt(description))
	if err != nil {
		opLog(op).WithError(err).Warn("Image generation failed, continuing without image")
		return "", false
	}
	if b64 == "" {
		return "", false
	}
	return DataURI(mimeType, b64), true
}

func buildImagePrompt(description string) string {
	var sb strings.Builder
	sb.WriteString("A photorealistic, high-quality image of a Chinese language classroom setting.\n")
	sb.WriteString("Style: Realistic, warm lighting, educational context.\n")
	sb.WriteString(fmt.Sprintf("Scene description: %s\n", strings.TrimSpace(description)))
	return sb.String()
}
