package static

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	objects map[string][]byte
	lastKey string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastKey = *in.Key
	b, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func TestS3ReaderReadFile(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"assets/app.js": []byte("console.log(1)")}}
	r := NewS3Reader(fake, "bucket", "assets")

	b, err := r.ReadFile(context.Background(), "app.js")
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if string(b) != "console.log(1)" {
		t.Fatalf("ReadFile = %q", b)
	}
	if fake.lastKey != "assets/app.js" {
		t.Fatalf("key = %q, want prefix joined", fake.lastKey)
	}
}

func TestS3ReaderMissingKey(t *testing.T) {
	r := NewS3Reader(&fakeS3{objects: map[string][]byte{}}, "bucket", "")
	if _, err := r.ReadFile(context.Background(), "nope.css"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

type failingS3 struct{}

func (failingS3) GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return nil, errors.New("connection refused")
}

func TestS3ReaderTransportError(t *testing.T) {
	r := NewS3Reader(failingS3{}, "bucket", "")
	_, err := r.ReadFile(context.Background(), "app.js")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want a non-ErrNotFound failure", err)
	}
}
