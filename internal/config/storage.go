package config

// StorageConfig configures the S3-compatible object store used for avatars.
// An empty Endpoint disables avatar uploads.
type StorageConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET, default=avatars"`
	UseSSL    bool   `env:"MINIO_USE_SSL, default=false"`
	PublicURL string `env:"MINIO_PUBLIC_URL"`
}

// Enabled reports whether an object store has been configured.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != ""
}
