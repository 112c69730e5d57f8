package s3infra

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-shop-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type putMock struct{ mock.Mock }

func (m *putMock) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func TestOutbox_Send(t *testing.T) {
	api := new(putMock)
	var stored domain.Email
	api.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		b, _ := io.ReadAll(in.Body)
		_ = json.Unmarshal(b, &stored)
		return aws.ToString(in.Bucket) == "mail" &&
			strings.HasPrefix(aws.ToString(in.Key), "outbox/2024/03/09/") &&
			strings.HasSuffix(aws.ToString(in.Key), ".json")
	})).Return(&s3.PutObjectOutput{}, nil)

	o := NewOutbox(api, "mail")
	o.now = func() time.Time { return time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC) }

	e := domain.Email{To: "alice@example.com", Subject: "Hi", Text: "t", HTML: "<b>h</b>"}
	require.NoError(t, o.Send(context.Background(), e))
	assert.Equal(t, e, stored)
	api.AssertExpectations(t)
}

func TestOutbox_Send_Error(t *testing.T) {
	api := new(putMock)
	api.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))
	err := NewOutbox(api, "mail").Send(context.Background(), domain.Email{})
	assert.ErrorContains(t, err, "access denied")
}

func TestObjectKey(t *testing.T) {
	ts := time.Date(2025, 12, 1, 0, 0, 0, 0, time.FixedZone("x", -5*3600))
	assert.Equal(t, "outbox/2025/12/01/abc.json", objectKey(ts, "abc"))
}
