package s3

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

type fakeS3 struct {
	errs   []error
	calls  int
	bodies []string
	inputs []*s3.PutObjectInput
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.calls++
	b, _ := io.ReadAll(params.Body)
	f.bodies = append(f.bodies, string(b))
	f.inputs = append(f.inputs, params)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &s3.PutObjectOutput{VersionId: aws.String("v1")}, nil
}

func writeOptions(t *testing.T) string {
	p := filepath.Join(t.TempDir(), "otter.yaml")
	if err := os.WriteFile(p, []byte("model_name: otter\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestKey(t *testing.T) {
	tests := []struct {
		dir, model, fpath string
		want              string
	}{
		{"pgan", "otter", "options/otter.yaml", "pgan/otter/otter.yaml"},
		{"/pgan/runs/", "otter", "/tmp/options/otter.yaml", "pgan/runs/otter/otter.yaml"},
		{"", "otter", "otter.yaml", "otter/otter.yaml"},
	}
	for i, tv := range tests {
		if got := Key(tv.dir, tv.model, tv.fpath); got != tv.want {
			t.Fatalf("#%d: expected %q, got %q", i, tv.want, got)
		}
	}
}

func TestUpload(t *testing.T) {
	fpath := writeOptions(t)
	fake := &fakeS3{}
	if err := Upload(context.Background(), zap.NewNop(), fake, "bucket", "pgan/otter/otter.yaml", fpath); err != nil {
		t.Fatal(err)
	}
	if fake.calls != 1 {
		t.Fatalf("unexpected calls %d", fake.calls)
	}
	in := fake.inputs[0]
	if aws.ToString(in.Bucket) != "bucket" || aws.ToString(in.Key) != "pgan/otter/otter.yaml" {
		t.Fatalf("unexpected input %+v", in)
	}
	if in.Metadata["Kind"] != "pgan" {
		t.Fatalf("unexpected metadata %v", in.Metadata)
	}
	if fake.bodies[0] != "model_name: otter\n" {
		t.Fatalf("unexpected body %q", fake.bodies[0])
	}
}

func TestUploadRetry(t *testing.T) {
	old := retryInterval
	retryInterval = time.Millisecond
	defer func() { retryInterval = old }()

	fpath := writeOptions(t)
	throttled := &smithy.GenericAPIError{Code: "Throttling", Message: "slow down"}
	fake := &fakeS3{errs: []error{throttled, throttled}}
	if err := Upload(context.Background(), zap.NewNop(), fake, "bucket", "k", fpath); err != nil {
		t.Fatal(err)
	}
	if fake.calls != 3 {
		t.Fatalf("unexpected calls %d", fake.calls)
	}
	// body is rewound for every attempt
	if fake.bodies[2] != "model_name: otter\n" {
		t.Fatalf("unexpected body %q", fake.bodies[2])
	}
}

func TestUploadNoWaitAfterLastAttempt(t *testing.T) {
	oldInterval, oldRetries := retryInterval, uploadRetries
	retryInterval, uploadRetries = time.Hour, 1
	defer func() { retryInterval, uploadRetries = oldInterval, oldRetries }()

	fpath := writeOptions(t)
	throttled := &smithy.GenericAPIError{Code: "Throttling", Message: "slow down"}
	fake := &fakeS3{errs: []error{throttled}}

	errc := make(chan error, 1)
	go func() {
		errc <- Upload(context.Background(), zap.NewNop(), fake, "bucket", "k", fpath)
	}()
	select {
	case err := <-errc:
		if err == nil {
			t.Fatal("expected error")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("upload waited after the last attempt")
	}
	if fake.calls != 1 {
		t.Fatalf("unexpected calls %d", fake.calls)
	}
}

func TestUploadNoRetry(t *testing.T) {
	fpath := writeOptions(t)

	expired := &smithy.GenericAPIError{Code: "ExpiredToken", Message: "expired"}
	fake := &fakeS3{errs: []error{expired}}
	if err := Upload(context.Background(), zap.NewNop(), fake, "bucket", "k", fpath); err == nil {
		t.Fatal("expected error")
	}
	if fake.calls != 1 {
		t.Fatalf("unexpected calls %d", fake.calls)
	}

	fake = &fakeS3{errs: []error{errors.New("access denied")}}
	if err := Upload(context.Background(), zap.NewNop(), fake, "bucket", "k", fpath); err == nil {
		t.Fatal("expected error")
	}
	if fake.calls != 1 {
		t.Fatalf("unexpected calls %d", fake.calls)
	}
}

func TestUploadMissingFile(t *testing.T) {
	err := Upload(context.Background(), zap.NewNop(), &fakeS3{}, "bucket", "k", filepath.Join(t.TempDir(), "none.yaml"))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestThrottleClassification(t *testing.T) {
	err := &smithy.GenericAPIError{Code: "Throttling"}
	if retry.IsErrorThrottles(retry.DefaultThrottles).IsErrorThrottle(err) != aws.TrueTernary {
		t.Fatal("expected throttle")
	}
	if !isExpiredCreds(&smithy.GenericAPIError{Code: "ExpiredToken"}) {
		t.Fatal("expected expired creds")
	}
}
