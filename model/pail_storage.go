package model

import (
	"context"
	"os"

	"github.com/evergreen-ci/pail"
	"github.com/evergreen-ci/perffarm"
	"github.com/pkg/errors"
)

// PailType describes the name of the blob storage backing a pail Bucket
// implementation.
type PailType string

const (
	PailS3     PailType = "s3"
	PailGridFS PailType = "gridfs"
	PailLocal  PailType = "local"

	defaultS3Region = "us-east-1"
)

func (t PailType) Validate() error {
	switch t {
	case PailS3, PailGridFS, PailLocal:
		return nil
	default:
		return errors.Errorf("unsupported bucket type '%s'", t)
	}
}

// Create returns a pail Bucket backed by PailType.
func (t PailType) Create(ctx context.Context, env perffarm.Environment, bucket, prefix string) (pail.Bucket, error) {
	var b pail.Bucket
	var err error

	switch t {
	case PailS3:
		region := env.GetConf().Bucket.Region
		if region == "" {
			region = defaultS3Region
		}
		opts := pail.S3Options{
			Name:        bucket,
			Prefix:      prefix,
			Region:      region,
			Permissions: pail.S3PermissionsPrivate,
		}
		b, err = pail.NewS3Bucket(opts)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	case PailGridFS:
		opts := pail.GridFSOptions{
			Database: env.GetConf().DatabaseName,
			Name:     bucket,
			Prefix:   prefix,
		}
		b, err = pail.NewGridFSBucketWithClient(ctx, env.GetClient(), opts)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	case PailLocal:
		if err = os.MkdirAll(bucket, 0755); err != nil {
			return nil, errors.Wrapf(err, "problem creating local bucket directory '%s'", bucket)
		}
		opts := pail.LocalOptions{
			Path:   bucket,
			Prefix: prefix,
		}
		b, err = pail.NewLocalBucket(opts)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	default:
		return nil, errors.Errorf("bucket type '%s' is not implemented", t)
	}

	if err = b.Check(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return b, nil
}

// SnapshotBucket returns the configured bucket for exported snapshots.
func SnapshotBucket(ctx context.Context, env perffarm.Environment, prefix string) (pail.Bucket, error) {
	conf := env.GetConf().Bucket
	t := PailType(conf.Type)
	if err := t.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}

	if conf.Prefix != "" {
		if prefix == "" {
			prefix = conf.Prefix
		} else {
			prefix = conf.Prefix + "/" + prefix
		}
	}

	b, err := t.Create(ctx, env, conf.Name, prefix)
	return b, errors.Wrapf(err, "problem creating '%s' snapshot bucket", t)
}
