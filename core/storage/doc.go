// Package storage wraps the MinIO client used for bundle import and snapshot export.
//
// The Client interface abstracts the provider so handlers and commands can be
// tested with core/storage/mocks. It works against AWS S3 and self-hosted MinIO.
//
// # Helpers
//
//   - EnsureBucket: creates the bucket on first use.
//   - ReadObject / WriteObject: whole-object transfers for JSON documents.
//   - ListNames: object names under a prefix.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	data, err := storage.ReadObject(ctx, client, cfg.Storage.Bucket, "bundles/music.json")
package storage
