package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{
		"timestamp": "1700000000",
		"public_id": "s1",
		"api_key":   "key",
		"file":      "ignored",
		"folder":    "",
	})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("public_id=s1&timestamp=1700000000secret")))
	assert.Equal(t, want, got)
}

func TestUploadSendsSignedForm(t *testing.T) {
	var form map[string][]string
	var file []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/image/upload", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		form = r.MultipartForm.Value
		f, _, err := r.FormFile("file")
		if assert.NoError(t, err) {
			file, _ = io.ReadAll(f)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"public_id":"hostel/s1","secure_url":"https://res.example/hostel/s1.jpg","width":10}`)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "hostel")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	res, err := c.Upload(context.Background(), "s1", "me.jpg", []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://res.example/hostel/s1.jpg", res.SecureURL)
	assert.Equal(t, 10, res.Width)

	assert.Equal(t, "jpeg-bytes", string(file))
	assert.Equal(t, []string{"s1"}, form["public_id"])
	assert.Equal(t, []string{"hostel"}, form["folder"])
	assert.Equal(t, []string{"key"}, form["api_key"])
	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=hostel&overwrite=true&public_id=s1&timestamp=1700000000secret")))
	assert.Equal(t, []string{want}, form["signature"])
}

func TestUploadReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "bad", "")
	c.BaseURL = srv.URL
	_, err := c.Upload(context.Background(), "s1", "a.png", []byte("png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Invalid Signature")
}
