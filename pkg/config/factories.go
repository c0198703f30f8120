package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/pkoutsias/stashfs/internal/logger"
	"github.com/pkoutsias/stashfs/pkg/content"
	contentFs "github.com/pkoutsias/stashfs/pkg/content/fs"
	contentMem "github.com/pkoutsias/stashfs/pkg/content/memory"
	contentS3 "github.com/pkoutsias/stashfs/pkg/content/s3"
	"github.com/pkoutsias/stashfs/pkg/index"
	"github.com/pkoutsias/stashfs/pkg/metadata"
	"github.com/pkoutsias/stashfs/pkg/metadata/badger"
	"github.com/pkoutsias/stashfs/pkg/metadata/memory"
)

// CreateContentStore creates a content store based on configuration.
//
// This factory function uses the Type field to determine which store
// implementation to create, then decodes the type-specific configuration
// from the corresponding map and passes it to the store's constructor.
//
// Supported types:
//   - "filesystem": Uses pkg/content/fs (local filesystem storage)
//   - "memory": Uses pkg/content/memory (ephemeral, for tests and demos)
//   - "s3": Uses pkg/content/s3 (Amazon S3 or compatible storage)
func CreateContentStore(ctx context.Context, cfg *ContentConfig) (content.Store, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemContentStore(ctx, cfg.Filesystem)
	case "memory":
		return createMemoryContentStore(ctx, cfg.Memory)
	case "s3":
		return createS3ContentStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown content store type: %q", cfg.Type)
	}
}

// namerFromSeed builds the blob namer; seed 0 means a time-derived seed.
func namerFromSeed(seed int64) content.Namer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return content.NewRandomNamer(seed)
}

// createFilesystemContentStore creates a filesystem-based content store.
func createFilesystemContentStore(ctx context.Context, options map[string]any) (content.Store, error) {
	type FilesystemContentStoreConfig struct {
		Path      string `mapstructure:"path"`
		NamerSeed int64  `mapstructure:"namer_seed"`
	}

	var storeCfg FilesystemContentStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem content store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem content store: path is required")
	}

	store, err := contentFs.New(ctx, storeCfg.Path, namerFromSeed(storeCfg.NamerSeed))
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem content store: %w", err)
	}
	return store, nil
}

// createMemoryContentStore creates an in-memory content store.
func createMemoryContentStore(ctx context.Context, options map[string]any) (content.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type MemoryContentStoreConfig struct {
		NamerSeed int64 `mapstructure:"namer_seed"`
	}

	var storeCfg MemoryContentStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory content store config: %w", err)
	}

	return contentMem.New(namerFromSeed(storeCfg.NamerSeed)), nil
}

// createS3ContentStore creates an S3-based content store.
func createS3ContentStore(ctx context.Context, options map[string]any) (content.Store, error) {
	type S3ContentStoreConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
		NamerSeed       int64  `mapstructure:"namer_seed"`
	}

	var storeCfg S3ContentStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 content store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 content store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 content store: region is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Custom endpoint support for MinIO, Localstack, etc.
	if storeCfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               storeCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials if provided, otherwise the default credential chain.
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Retry harder than the AWS default of 3: blob writes sit on the user
	// upload path and transient 5xx responses are common enough.
	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// Path-style addressing for MinIO/Localstack compatibility.
		if storeCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	// ========================================================================
	// Step 3: Create S3 Content Store
	// ========================================================================

	store, err := contentS3.New(ctx, contentS3.Config{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
		Namer:     namerFromSeed(storeCfg.NamerSeed),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 content store: %w", err)
	}

	logger.Info("S3 content store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// CreateMetadataStore creates a metadata store based on configuration.
//
// Supported types:
//   - "memory": Uses pkg/metadata/memory (in-memory storage, ephemeral)
//   - "badger": Uses pkg/metadata/badger (BadgerDB storage, persistent)
func CreateMetadataStore(ctx context.Context, cfg *MetadataConfig) (metadata.Store, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryMetadataStore(ctx)
	case "badger":
		return createBadgerMetadataStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q (supported: memory, badger)", cfg.Type)
	}
}

// createMemoryMetadataStore creates an in-memory metadata store.
func createMemoryMetadataStore(ctx context.Context) (metadata.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return memory.New(), nil
}

// createBadgerMetadataStore creates a BadgerDB-based persistent metadata store.
func createBadgerMetadataStore(ctx context.Context, options map[string]any) (metadata.Store, error) {
	type BadgerMetadataStoreOptions struct {
		DBPath   string `mapstructure:"db_path"`
		InMemory bool   `mapstructure:"in_memory"`
	}

	var storeOpts BadgerMetadataStoreOptions
	if err := mapstructure.Decode(options, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode badger metadata store options: %w", err)
	}

	if storeOpts.DBPath == "" && !storeOpts.InMemory {
		return nil, fmt.Errorf("badger metadata store: db_path is required")
	}

	store, err := badger.New(ctx, badger.Config{
		DBPath:   storeOpts.DBPath,
		InMemory: storeOpts.InMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger metadata store: %w", err)
	}
	return store, nil
}

// CreateNotifier creates the index notifier: a logging notifier when index
// announcements are enabled, a no-op sink otherwise.
func CreateNotifier(cfg *IndexConfig) index.Notifier {
	if cfg.Enabled {
		return index.Logging{}
	}
	return index.Noop{}
}
