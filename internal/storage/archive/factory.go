package archive

import (
	"fmt"

	"github.com/newthinker/coinchart/internal/config"
	"github.com/newthinker/coinchart/internal/core"
)

// New builds the archive configured in cfg. An empty type disables
// archiving and returns a nil Storage.
func New(cfg config.ArchiveConfig) (Storage, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "localfs":
		fs, err := NewLocalFS(cfg.Path)
		if err != nil {
			return nil, core.WrapError(core.ErrArchiveFailed, err)
		}
		return fs, nil
	case "s3":
		s, err := NewS3(S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
		if err != nil {
			return nil, core.WrapError(core.ErrArchiveFailed, err)
		}
		return s, nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown archive type %q", cfg.Type))
	}
}
