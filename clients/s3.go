package clients

import (
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

type S3 interface {
	PresignS3(bucket, key string) (string, error)
	GetObject(bucket, key string) (*s3.GetObjectOutput, error)
	PutFile(bucket, key, path string) error
}

type S3Client struct {
	S3 *s3.S3
}

// NewS3Client builds a client against the given region, used to mirror a
// job's rendered outputs off the local disk.
func NewS3Client(region string) (*S3Client, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, err
	}
	return &S3Client{S3: s3.New(sess)}, nil
}

func (c *S3Client) PresignS3(bucket, key string) (string, error) {
	req, _ := c.S3.GetObjectRequest(&s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	return req.Presign(60 * time.Minute)
}

func (c *S3Client) GetObject(bucket, key string) (*s3.GetObjectOutput, error) {
	return c.S3.GetObject(&s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
}

// PutFile uploads a local file's contents to bucket/key, used to mirror a
// rendered clip or the job's metadata.json.
func (c *S3Client) PutFile(bucket, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = c.S3.PutObject(&s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   f,
	})
	return err
}
