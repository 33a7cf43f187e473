// Package s3 implements S3 utilities.
package s3

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/deepprivacy/pgan/pkg/fileutil"
	"github.com/deepprivacy/pgan/pkg/user"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	uploadRetries = 5
	retryInterval = 5 * time.Second

	retryables = retry.IsErrorRetryables(retry.DefaultRetryables)
	throttles  = retry.IsErrorThrottles(retry.DefaultThrottles)
)

// Key returns the object key for a file stored under the model's prefix.
// e.g. "<dir>/<model-name>/<file-name>"
func Key(dir, modelName, fpath string) string {
	return path.Join(strings.Trim(dir, "/"), modelName, filepath.Base(fpath))
}

// Upload uploads a file to S3 bucket.
func Upload(
	ctx context.Context,
	lg *zap.Logger,
	s3API PutObjectAPI,
	bucket string,
	s3Key string,
	fpath string) error {

	if !fileutil.Exist(fpath) {
		return fmt.Errorf("file %q does not exist; failed to upload to %s/%s", fpath, bucket, s3Key)
	}
	stat, err := os.Stat(fpath)
	if err != nil {
		return err
	}
	size := humanize.Bytes(uint64(stat.Size()))

	lg.Info("uploading",
		zap.String("s3-bucket", bucket),
		zap.String("remote-path", s3Key),
		zap.String("file-size", size),
	)

	rf, err := os.OpenFile(fpath, os.O_RDONLY, 0444)
	if err != nil {
		lg.Warn("failed to read a file", zap.String("file-path", fpath), zap.Error(err))
		return err
	}
	defer rf.Close()

	for i := 0; i < uploadRetries; i++ {
		if _, err = rf.Seek(0, 0); err != nil {
			return err
		}
		var out *s3.PutObjectOutput
		out, err = s3API.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(bucket),
			Key:           aws.String(s3Key),
			Body:          rf,
			ContentLength: aws.Int64(stat.Size()),
			ContentType:   aws.String("application/yaml"),

			// https://docs.aws.amazon.com/AmazonS3/latest/dev/acl-overview.html#canned-acl
			ACL: types.ObjectCannedACLPrivate,

			Metadata: user.Metadata("pgan"),
		})
		if err == nil {
			lg.Info("uploaded",
				zap.String("s3-bucket", bucket),
				zap.String("remote-path", s3Key),
				zap.String("file-size", size),
				zap.String("version-id", aws.ToString(out.VersionId)),
			)
			break
		}

		expired := isExpiredCreds(err)
		retriable := retryables.IsErrorRetryable(err) == aws.TrueTernary
		throttle := throttles.IsErrorThrottle(err) == aws.TrueTernary
		lg.Warn("failed to upload",
			zap.String("s3-bucket", bucket),
			zap.String("remote-path", s3Key),
			zap.String("file-size", size),
			zap.Error(err),
			zap.Bool("error-expired-creds", expired),
			zap.Bool("error-retriable", retriable),
			zap.Bool("error-throttle", throttle),
		)
		if expired || (!retriable && !throttle) || i == uploadRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval * time.Duration(i+1)):
		}
	}

	return err
}

func isExpiredCreds(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.ErrorCode() {
	case "ExpiredToken", "ExpiredTokenException", "RequestExpired":
		return true
	}
	return false
}
