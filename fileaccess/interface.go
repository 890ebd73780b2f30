// Copyright 2018, RadiantBlue Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fileaccess reads and writes objects on the local file system or S3.
// For local access the bucket is a root directory.
package fileaccess

import (
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
)

// FileAccess is the object storage surface used for LUTs, spectral
// responses, scene inputs and correction outputs
type FileAccess interface {
	ListObjects(bucket string, prefix string) ([]string, error)

	ReadObject(bucket string, path string) ([]byte, error)
	WriteObject(bucket string, path string, data []byte) error

	ReadJSON(bucket string, path string, itemsPtr interface{}, emptyIfNotFound bool) error
	WriteJSON(bucket string, path string, itemsPtr interface{}) error

	IsNotFoundError(err error) bool
}

const s3Scheme = "s3://"

// Root is a storage location: either a local directory or an S3 bucket and prefix
type Root struct {
	Access FileAccess
	Bucket string
	Prefix string
}

// IsRemote reports whether the root is backed by S3
func (r Root) IsRemote() bool {
	_, ok := r.Access.(S3Access)
	return ok
}

// Path joins parts onto the root prefix
func (r Root) Path(parts ...string) string {
	return path.Join(append([]string{r.Prefix}, parts...)...)
}

// String renders the root as it would be configured
func (r Root) String() string {
	if r.IsRemote() {
		return s3Scheme + path.Join(r.Bucket, r.Prefix)
	}
	return path.Join(r.Bucket, r.Prefix)
}

// ReadObject reads an object relative to the root
func (r Root) ReadObject(parts ...string) ([]byte, error) {
	return r.Access.ReadObject(r.Bucket, r.Path(parts...))
}

// WriteObject writes an object relative to the root
func (r Root) WriteObject(data []byte, parts ...string) error {
	return r.Access.WriteObject(r.Bucket, r.Path(parts...), data)
}

// ReadJSON reads a JSON object relative to the root
func (r Root) ReadJSON(itemsPtr interface{}, parts ...string) error {
	return r.Access.ReadJSON(r.Bucket, r.Path(parts...), itemsPtr, false)
}

// WriteJSON writes a JSON object relative to the root
func (r Root) WriteJSON(itemsPtr interface{}, parts ...string) error {
	return r.Access.WriteJSON(r.Bucket, r.Path(parts...), itemsPtr)
}

// List lists the objects below a sub-path of the root, relative to the bucket
func (r Root) List(parts ...string) ([]string, error) {
	return r.Access.ListObjects(r.Bucket, r.Path(parts...))
}

// Sub returns a root nested below this one
func (r Root) Sub(parts ...string) Root {
	return Root{Access: r.Access, Bucket: r.Bucket, Prefix: r.Path(parts...)}
}

// ParseS3URI splits "s3://bucket/prefix" into bucket and prefix
func ParseS3URI(uri string) (string, string, error) {
	if !strings.HasPrefix(uri, s3Scheme) {
		return "", "", errors.Errorf("Not an S3 URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, s3Scheme), "/", 2)
	if parts[0] == "" {
		return "", "", errors.Errorf("S3 URI has no bucket: %s", uri)
	}
	prefix := ""
	if len(parts) == 2 {
		prefix = strings.Trim(parts[1], "/")
	}
	return parts[0], prefix, nil
}

var newS3Session = func(region string) (*session.Session, error) {
	return session.NewSession(&aws.Config{Region: aws.String(region)})
}

// OpenRoot resolves a configured location. "s3://bucket/prefix" locations
// open an S3 session in region; anything else is a local directory.
func OpenRoot(location string, region string) (Root, error) {
	if !strings.HasPrefix(location, s3Scheme) {
		return Root{Access: &FSAccess{}, Bucket: location}, nil
	}
	bucket, prefix, err := ParseS3URI(location)
	if err != nil {
		return Root{}, err
	}
	sess, err := newS3Session(region)
	if err != nil {
		return Root{}, errors.Wrapf(err, "Failed to create AWS session for %s", location)
	}
	return Root{Access: MakeS3Access(s3.New(sess)), Bucket: bucket, Prefix: prefix}, nil
}
