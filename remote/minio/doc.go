// Package minio implements remote.ObjectStore on MinIO and other
// S3-compatible servers using minio-go.
package minio
