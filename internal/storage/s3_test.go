package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pagedLister struct {
	pages    []*s3.ListObjectsV2Output
	prefixes []string
	calls    int
}

func (p *pagedLister) GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return nil, errors.New("not implemented")
}

func (p *pagedLister) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	p.prefixes = append(p.prefixes, aws.ToString(in.Prefix))
	page := p.pages[p.calls]
	p.calls++
	return page, nil
}

func TestS3Service_ListObjects_FollowsPages(t *testing.T) {
	modified := time.Date(2026, 4, 2, 15, 0, 0, 0, time.UTC)
	lister := &pagedLister{pages: []*s3.ListObjectsV2Output{
		{
			Contents: []types.Object{
				{Key: aws.String("chat-attachments/chat-3/a-notes.txt"), Size: aws.Int64(10), LastModified: &modified},
			},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("next"),
		},
		{
			Contents: []types.Object{
				{Key: aws.String("chat-attachments/chat-3/b-plan.pdf"), Size: aws.Int64(20)},
			},
			IsTruncated: aws.Bool(false),
		},
	}}
	svc := &S3Service{client: lister, bucket: "uploads", keyPrefix: "chat-attachments"}

	objects, err := svc.ListObjects(context.Background(), "chat-3/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "chat-3/a-notes.txt", objects[0].Key)
	assert.Equal(t, int64(10), objects[0].Size)
	assert.Equal(t, "chat-3/b-plan.pdf", objects[1].Key)
	assert.Equal(t, 2, lister.calls)
	assert.Equal(t, []string{"chat-attachments/chat-3/", "chat-attachments/chat-3/"}, lister.prefixes)
}

func TestS3Service_Keys(t *testing.T) {
	prefixed := &S3Service{keyPrefix: "chat-attachments"}
	assert.Equal(t, "chat-attachments/chat-1/x.txt", prefixed.fullKey("/chat-1/x.txt"))
	assert.Equal(t, "chat-attachments/", prefixed.fullKey(""))
	assert.Equal(t, "chat-1/x.txt", prefixed.relativeKey("chat-attachments/chat-1/x.txt"))

	bare := &S3Service{}
	assert.Equal(t, "chat-1/x.txt", bare.fullKey("chat-1/x.txt"))
	assert.Equal(t, "", bare.fullKey(""))
}

func TestNewS3Service_RequiresBucket(t *testing.T) {
	_, err := NewS3Service(s3.New(s3.Options{Region: "us-east-1"}), "", "")
	assert.Error(t, err)
}

type objectGetter struct {
	pagedLister
	objects map[string]string
	err     error
}

func (g *objectGetter) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if g.err != nil {
		return nil, g.err
	}
	body, ok := g.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("text/plain"),
	}, nil
}

func TestS3Service_Get(t *testing.T) {
	getter := &objectGetter{objects: map[string]string{
		"chat-attachments/chat-3/a-notes.txt": "plot 7",
	}}
	svc := &S3Service{client: getter, bucket: "uploads", keyPrefix: "chat-attachments"}
	ctx := context.Background()

	body, info, err := svc.Get(ctx, "chat-3/a-notes.txt")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "plot 7", string(data))
	assert.Equal(t, "chat-3/a-notes.txt", info.Key)
	assert.Equal(t, int64(6), info.Size)
	assert.Equal(t, "text/plain", info.ContentType)

	_, _, err = svc.Get(ctx, "chat-3/missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = svc.Get(ctx, "")
	assert.Error(t, err)

	getter.err = errors.New("throttled")
	_, _, err = svc.Get(ctx, "chat-3/a-notes.txt")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
