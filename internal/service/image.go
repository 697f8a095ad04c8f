package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/foodgram-project/backend/config"
)

// maxImageBytes caps decoded recipe image uploads.
const maxImageBytes = 5 << 20

// ImageService decodes inline base64 image payloads from the recipe write
// path and stores them under recipes/, either on local disk or in S3 when
// a bucket is configured.
type ImageService struct {
	mediaDir string
	s3Config *config.S3Config
}

// NewImageService stores images below mediaDir. When s3Config is non-nil it
// is preferred over the local filesystem.
func NewImageService(mediaDir string, s3Config *config.S3Config) *ImageService {
	return &ImageService{mediaDir: mediaDir, s3Config: s3Config}
}

// Store decodes a "data:image/<ext>;base64,<payload>" URI and writes the
// bytes to a uuid-named object. It returns the stored reference, e.g.
// "recipes/8f14e45f-....png".
func (s *ImageService) Store(ctx context.Context, dataURI string) (string, error) {
	ext, data, err := decodeDataURI(dataURI)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("recipes/%s.%s", uuid.New().String(), ext)

	if s.s3Config != nil {
		contentType := "image/" + ext
		_, err := s.s3Config.Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.s3Config.BucketName),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return "", fmt.Errorf("failed to upload image to s3: %w", err)
		}
		return key, nil
	}

	path := filepath.Join(s.mediaDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return key, nil
}

func decodeDataURI(dataURI string) (ext string, data []byte, err error) {
	if !strings.HasPrefix(dataURI, "data:image/") {
		return "", nil, Validation("image must be a base64 data URI")
	}

	rest := strings.TrimPrefix(dataURI, "data:image/")
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return "", nil, Validation("image must be base64 encoded")
	}

	ext = rest[:sep]
	switch ext {
	case "png", "jpeg", "jpg", "gif", "webp":
	default:
		return "", nil, Validation("unsupported image format")
	}

	payload := rest[sep+len(";base64,"):]
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, Validation("image payload is not valid base64")
	}
	if len(data) == 0 {
		return "", nil, Validation("image payload is empty")
	}
	if len(data) > maxImageBytes {
		return "", nil, Validation("image payload is too large")
	}
	return ext, data, nil
}
