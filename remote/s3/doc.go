// Package s3 implements remote.ObjectStore on Amazon S3 and S3-compatible
// endpoints using the AWS SDK for Go v2.
//
// Configuration follows the standard AWS environment: credentials from the
// default provider chain, region from AWS_REGION or AWS_DEFAULT_REGION
// (default us-east-1), and an optional custom endpoint from
// AWS_ENDPOINT_URL_S3 (MinIO, R2, Spaces, ...), which also switches to
// path-style addressing.
//
// Small uploads carry a CRC32C checksum; uploads at or above the multipart
// threshold go through the SDK upload manager.
package s3
