package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/pkg/fs"
	"github.com/driftfs/driftfs/pkg/fs/badgerfs"
	"github.com/driftfs/driftfs/pkg/fs/memoryfs"
	"github.com/driftfs/driftfs/pkg/fs/s3fs"
)

// CreateBackendFactory builds the registry factory for one configured
// backend.
//
// This factory function uses the Type field to determine which backend
// implementation to create, then decodes the type-specific options from the
// free-form Options map and closes over them so the registry can construct
// the backend lazily on first resolution.
//
// Supported types:
//   - "memory": Uses pkg/fs/memoryfs (in-memory tree, ephemeral)
//   - "badger": Uses pkg/fs/badgerfs (BadgerDB storage, persistent)
//   - "s3": Uses pkg/fs/s3fs (Amazon S3 or compatible object storage)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: One backend configuration entry
//
// Returns:
//   - fs.Factory: Factory bound to the backend's decoded options
//   - error: Configuration or initialization error
func CreateBackendFactory(ctx context.Context, cfg *BackendConfig) (fs.Factory, error) {
	switch cfg.Type {
	case "memory":
		return memoryfs.Factory, nil
	case "badger":
		return createBadgerFactory(cfg.Options)
	case "s3":
		return createS3Factory(ctx, cfg.Options)
	default:
		return nil, fmt.Errorf("unknown backend type: %q (supported: memory, badger, s3)", cfg.Type)
	}
}

// createBadgerFactory decodes BadgerDB options and binds them to a factory.
func createBadgerFactory(options map[string]any) (fs.Factory, error) {
	var storeCfg badgerfs.Config
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger backend options: %w", err)
	}

	if storeCfg.DBPath == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger backend: db_path is required")
	}

	return badgerfs.FactoryWithConfig(storeCfg), nil
}

// createS3Factory builds the AWS client from decoded options and binds it to
// a factory.
func createS3Factory(ctx context.Context, options map[string]any) (fs.Factory, error) {
	type S3BackendOptions struct {
		Region          string `mapstructure:"region"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg S3BackendOptions
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode s3 backend options: %w", err)
	}

	if storeCfg.Region == "" {
		return nil, fmt.Errorf("s3 backend: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Custom endpoint for MinIO, Localstack, etc.
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

	// Static credentials if provided, otherwise the default credential chain
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing for compatibility with MinIO/Localstack
		if storeCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	logger.Info("S3 backend initialized: region=%s, endpoint=%s", storeCfg.Region, storeCfg.Endpoint)

	return s3fs.FactoryWithClient(client), nil
}
