package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent png
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

type memoryStorage struct {
	objects  map[string][]byte
	presigns int
}

func (m *memoryStorage) PutObject(ctx context.Context, key string, content []byte, contentType string) error {
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = content
	return nil
}

func (m *memoryStorage) PresignGet(ctx context.Context, key string) (string, error) {
	m.presigns++
	return "https://bucket.example.com/" + key + "?sig=abc", nil
}

func TestMirrorImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/out.png":
			w.Write(pngPixel)
		case "/page.html":
			w.Write([]byte("<html><body>not an image</body></html>"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()
	storage := &memoryStorage{}

	key, err := MirrorImage(context.Background(), storage, server.URL+"/out.png", "recommendations/7")
	require.NoError(t, err)
	assert.Equal(t, "recommendations/7.png", key)
	assert.Equal(t, pngPixel, storage.objects[key])

	_, err = MirrorImage(context.Background(), storage, server.URL+"/page.html", "recommendations/8")
	assert.ErrorContains(t, err, "unsupported image type")

	_, err = MirrorImage(context.Background(), storage, server.URL+"/gone.png", "recommendations/9")
	assert.ErrorContains(t, err, "404")
}

func TestURLCacheServiceReusesPresignedURL(t *testing.T) {
	storage := &memoryStorage{}
	urls, err := NewURLCacheService(storage)
	require.NoError(t, err)

	empty, err := urls.GetReadURL(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, empty)

	first, err := urls.GetReadURL(context.Background(), "recommendations/7.png")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.example.com/recommendations/7.png?sig=abc", first)
	assert.Equal(t, 1, storage.presigns)
}

func TestStrPointer(t *testing.T) {
	assert.Nil(t, StrPointer(""))
	assert.Equal(t, "x", *StrPointer("x"))
}
