package upload

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/24vibes/vibes/core"
)

const (
	imagesDir       = "slack-images"
	successMessage  = "Image uploaded successfully"
	DefaultMaxBytes = 5 * 1024 * 1024
)

var (
	// errors
	ErrNotAnImage   = errors.New("invalid file type, only images are allowed")
	ErrInvalidImage = errors.New("invalid image data, expected base64")

	extPattern = regexp.MustCompile(`^[a-z0-9]{1,10}$`)
)

type (
	// ImageUpload is a base64 encoded image.
	ImageUpload struct {
		ImageData   string `json:"imageData" validate:"required"`
		FileName    string `json:"fileName" validate:"required"`
		ContentType string `json:"contentType" validate:"required"`
	}

	Result struct {
		Message  string `json:"message"`
		ImageURL string `json:"imageUrl"`
		FileName string `json:"fileName"`
	}

	Service struct {
		store    core.FileStorage
		maxBytes int64
		validate *validator.Validate
		now      func() time.Time
	}
)

func NewService(store core.FileStorage, maxBytes int64, validate *validator.Validate) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{
		store:    store,
		maxBytes: maxBytes,
		validate: validate,
		now:      time.Now,
	}
}

func (iu *ImageUpload) Validate(validate *validator.Validate) error {
	iu.FileName = core.CleanString(iu.FileName)
	iu.ContentType = core.CleanString(iu.ContentType, true /* lower */)
	// accept data URLs as well
	if i := strings.Index(iu.ImageData, ";base64,"); i >= 0 && strings.HasPrefix(iu.ImageData, "data:") {
		iu.ImageData = iu.ImageData[i+len(";base64,"):]
	}
	iu.ImageData = strings.TrimSpace(iu.ImageData)
	return validate.Struct(iu)
}

func (svc *Service) Upload(ctx context.Context, iu ImageUpload) (Result, error) {
	if err := iu.Validate(svc.validate); err != nil {
		return Result{}, err
	}
	if !strings.HasPrefix(iu.ContentType, "image/") {
		return Result{}, core.NewValidationError(ErrNotAnImage)
	}

	data, err := base64.StdEncoding.DecodeString(iu.ImageData)
	if err != nil {
		return Result{}, core.NewValidationError(ErrInvalidImage)
	}
	if int64(len(data)) > svc.maxBytes {
		return Result{}, core.NewValidationError(
			errors.Errorf("file size too large, maximum %dMB allowed", svc.maxBytes/(1024*1024)))
	}

	now := svc.now().UTC()
	name := uniqueName(fileExt(iu.FileName, iu.ContentType), now)
	url, err := svc.store.Put(ctx, imagesDir+"/"+name, data, iu.ContentType, map[string]string{
		"originalName": iu.FileName,
		"uploadedAt":   now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return Result{}, errors.Wrap(err, "storing image")
	}
	return Result{Message: successMessage, ImageURL: url, FileName: name}, nil
}

// fileExt keeps the extension of fileName when it is a plain one matching contentType,
// otherwise it is derived from contentType.
func fileExt(fileName, contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	if i := strings.LastIndex(fileName, "."); i >= 0 {
		ext := strings.ToLower(fileName[i+1:])
		if extPattern.MatchString(ext) {
			if t, _, err := mime.ParseMediaType(mime.TypeByExtension("." + ext)); err == nil && t == mediaType {
				return ext
			}
		}
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return "img"
}

// uniqueName builds `<unix-ms>-<random>.<ext>`.
func uniqueName(ext string, now time.Time) string {
	random := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	return fmt.Sprintf("%d-%s.%s", now.UnixNano()/int64(time.Millisecond), random, ext)
}
