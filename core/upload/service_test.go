package upload

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/testutil"
)

type stored struct {
	path, contentType string
	data              []byte
	metadata          map[string]string
}

type fakeStorage struct {
	files []stored
}

func (f *fakeStorage) Put(_ context.Context, path string, data []byte, contentType string, metadata map[string]string) (string, error) {
	f.files = append(f.files, stored{path: path, contentType: contentType, data: data, metadata: metadata})
	return "https://files.test/" + path, nil
}

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

func newTestService(maxBytes int64) (*Service, *fakeStorage) {
	store := new(fakeStorage)
	validate, _ := testutil.NewValidator()
	svc := NewService(store, maxBytes, validate)
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	return svc, store
}

func TestService_Upload(t *testing.T) {
	svc, store := newTestService(0)

	res, err := svc.Upload(context.Background(), ImageUpload{
		ImageData:   "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
		FileName:    "team photo.final.PNG",
		ContentType: "Image/PNG",
	})
	require.NoError(t, err)
	assert.Equal(t, "Image uploaded successfully", res.Message)
	assert.True(t, strings.HasPrefix(res.FileName, "1700000000000-"), res.FileName)
	assert.True(t, strings.HasSuffix(res.FileName, ".png"), res.FileName)
	assert.Len(t, res.FileName, len("1700000000000-")+12+len(".png"))
	assert.Equal(t, "https://files.test/slack-images/"+res.FileName, res.ImageURL)

	require.Len(t, store.files, 1)
	f := store.files[0]
	assert.Equal(t, "image/png", f.contentType)
	assert.Equal(t, pngBytes, f.data)
	assert.Equal(t, "team photo.final.PNG", f.metadata["originalName"])
	assert.Equal(t, "2023-11-14T22:13:20Z", f.metadata["uploadedAt"])
}

func TestService_UploadInvalid(t *testing.T) {
	svc, store := newTestService(4)
	valid := base64.StdEncoding.EncodeToString([]byte("tiny"))

	tests := []struct {
		name  string
		iu    ImageUpload
		cause error
		msg   string
	}{
		{name: "missing data", iu: ImageUpload{FileName: "a.png", ContentType: "image/png"}},
		{name: "missing name", iu: ImageUpload{ImageData: valid, ContentType: "image/png"}},
		{name: "not an image", iu: ImageUpload{ImageData: valid, FileName: "a.pdf", ContentType: "application/pdf"}, cause: ErrNotAnImage},
		{name: "not base64", iu: ImageUpload{ImageData: "%%%", FileName: "a.png", ContentType: "image/png"}, cause: ErrInvalidImage},
		{
			name: "too large",
			iu:   ImageUpload{ImageData: base64.StdEncoding.EncodeToString(pngBytes), FileName: "a.png", ContentType: "image/png"},
			msg:  "file size too large, maximum 0MB allowed",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), tc.iu)
			require.Error(t, err)
			var vErr *core.ValidationError
			if tc.cause != nil {
				require.True(t, errors.As(err, &vErr))
				assert.Equal(t, tc.cause, vErr.Err)
			}
			if tc.msg != "" {
				assert.Equal(t, tc.msg, err.Error())
			}
		})
	}
	assert.Empty(t, store.files)
}

func TestUniqueName(t *testing.T) {
	now := time.Unix(1, 0)
	assert.True(t, strings.HasSuffix(uniqueName("jpeg", now), ".jpeg"))
	assert.True(t, strings.HasPrefix(uniqueName("jpeg", now), "1000-"))
	assert.NotEqual(t, uniqueName("jpeg", now), uniqueName("jpeg", now))
}

func TestFileExt(t *testing.T) {
	tests := []struct {
		fileName, contentType, want string
	}{
		{"photo.PNG", "image/png", "png"},
		{"photo.gif", "image/gif", "gif"},
		{"no extension", "image/png", "png"},
		{"payload.html", "image/png", "png"},
		{"x./pwned", "image/png", "png"},
		{"x.png/../../etc", "image/png", "png"},
		{"photo.png", "image/png; charset=binary", "png"},
		{"photo.weird", "image/x-unheard-of", "img"},
	}
	for _, tc := range tests {
		t.Run(tc.fileName, func(t *testing.T) {
			assert.Equal(t, tc.want, fileExt(tc.fileName, tc.contentType))
		})
	}
}

func TestService_UploadUntrustedName(t *testing.T) {
	svc, store := newTestService(0)

	res, err := svc.Upload(context.Background(), ImageUpload{
		ImageData:   base64.StdEncoding.EncodeToString(pngBytes),
		FileName:    "x./../pwned.html",
		ContentType: "image/png",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.FileName, ".png"), res.FileName)
	assert.NotContains(t, res.FileName, "/")
	require.Len(t, store.files, 1)
	assert.Equal(t, "slack-images/"+res.FileName, store.files[0].path)
	assert.Equal(t, "x./../pwned.html", store.files[0].metadata["originalName"])
}
