package config

const (
	itemBucketVar   = "ITEM_BUCKET"
	s3EndpointVar   = "STORAGE_S3_ENDPOINT"
	s3RegionVar     = "STORAGE_S3_REGION"
	s3AccessKeyVar  = "STORAGE_S3_ACCESS_KEY_ID"
	s3SecretKeyVar  = "STORAGE_S3_SECRET_ACCESS_KEY"
	databaseURLVar  = "DATABASE_URL"
	defaultBucket   = "item-images"
	defaultS3Region = "us-east-1"
)

type StorageConfig interface {
	GetItemBucket() string
	GetS3Endpoint() string
	GetS3Region() string
	GetS3AccessKeyID() string
	GetS3SecretAccessKey() string
	UseS3Storage() bool
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetItemBucket() string {
	return GetEnv(itemBucketVar, defaultBucket)
}

// GetS3Endpoint returns the S3 compatible endpoint, e.g. "https://<project>.supabase.co/storage/v1/s3".
func (Storage) GetS3Endpoint() string {
	return GetEnv(s3EndpointVar, "")
}

func (Storage) GetS3Region() string {
	return GetEnv(s3RegionVar, defaultS3Region)
}

func (Storage) GetS3AccessKeyID() string {
	return GetEnv(s3AccessKeyVar, "")
}

func (Storage) GetS3SecretAccessKey() string {
	return GetEnv(s3SecretKeyVar, "")
}

// UseS3Storage reports whether uploads go through the S3 protocol instead of the Storage REST API.
func (s Storage) UseS3Storage() bool {
	return s.GetS3Endpoint() != "" && s.GetS3AccessKeyID() != "" && s.GetS3SecretAccessKey() != ""
}

type DatabaseConfig interface {
	GetDatabaseURL() string
}

type Database struct{}

var _ DatabaseConfig = Database{}

// GetDatabaseURL returns a direct Postgres DSN. When empty the catalog goes through PostgREST.
func (Database) GetDatabaseURL() string {
	return GetEnv(databaseURLVar, "")
}
