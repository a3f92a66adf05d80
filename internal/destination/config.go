// Package destination implements the DestinationBackend capability
// contract against four concrete protocols: S3-family object storage,
// SMB, SFTP, and FTP. Each backend's connection parameters travel as
// the Destination's opaque ConfigBlob, plain JSON as stored in the
// catalog; nothing decrypts it on the way here.
package destination

import (
	"encoding/json"
	"fmt"

	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/errs"
	"github.com/photobackup/engine/internal/ports"
)

// Multipart carries the object-store backend's chunking parameters.
// Zero values fall back to the package defaults.
type Multipart struct {
	ThresholdBytes int64
	PartSizeBytes  int64
	MaxRetries     int
}

const (
	defaultThresholdBytes = 50 * 1024 * 1024
	defaultPartSizeBytes  = 10 * 1024 * 1024
	defaultMaxRetries     = 3
)

func (m Multipart) withDefaults() Multipart {
	if m.ThresholdBytes <= 0 {
		m.ThresholdBytes = defaultThresholdBytes
	}
	if m.PartSizeBytes <= 0 {
		m.PartSizeBytes = defaultPartSizeBytes
	}
	if m.MaxRetries <= 0 {
		m.MaxRetries = defaultMaxRetries
	}
	return m
}

// S3Config is the connection config for the object-store backend.
type S3Config struct {
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint,omitempty"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Prefix          string `json:"prefix,omitempty"`
	ForcePathStyle  bool   `json:"force_path_style,omitempty"`
}

// SMBConfig is the connection config for the SMB backend.
type SMBConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	Share    string `json:"share"`
	User     string `json:"user"`
	Password string `json:"password"`
	Domain   string `json:"domain,omitempty"`
}

// SFTPConfig is the connection config for the SFTP backend.
type SFTPConfig struct {
	Host       string `json:"host"`
	Port       int    `json:"port,omitempty"`
	User       string `json:"user"`
	Password   string `json:"password,omitempty"`
	PrivateKey string `json:"private_key,omitempty"`
	BasePath   string `json:"base_path,omitempty"`
}

// FTPConfig is the connection config for the FTP backend.
type FTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user"`
	Password string `json:"password"`
	TLS      bool   `json:"tls,omitempty"`
	BasePath string `json:"base_path,omitempty"`
}

func unmarshalConfig(blob []byte, into interface{}) error {
	if len(blob) == 0 {
		return fmt.Errorf("%w: empty configuration", errs.ErrInvalidConfig)
	}
	if err := json.Unmarshal(blob, into); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrInvalidConfig, err)
	}
	return nil
}

// New builds the DestinationBackend matching dest.Type. dest.ConfigBlob
// must already be decrypted. mp supplies the multipart parameters used
// by the S3-family backend; it is ignored by the other three.
func New(dest domain.Destination, mp Multipart) (ports.DestinationBackend, error) {
	switch dest.Type {
	case domain.DestinationTypeS3:
		var cfg S3Config
		if err := unmarshalConfig(dest.ConfigBlob, &cfg); err != nil {
			return nil, err
		}
		return newS3Backend(cfg, mp.withDefaults()), nil
	case domain.DestinationTypeSMB:
		var cfg SMBConfig
		if err := unmarshalConfig(dest.ConfigBlob, &cfg); err != nil {
			return nil, err
		}
		return newSMBBackend(cfg), nil
	case domain.DestinationTypeSFTP:
		var cfg SFTPConfig
		if err := unmarshalConfig(dest.ConfigBlob, &cfg); err != nil {
			return nil, err
		}
		return newSFTPBackend(cfg), nil
	case domain.DestinationTypeFTP:
		var cfg FTPConfig
		if err := unmarshalConfig(dest.ConfigBlob, &cfg); err != nil {
			return nil, err
		}
		return newFTPBackend(cfg), nil
	default:
		return nil, fmt.Errorf("%w: unsupported destination type %q", errs.ErrInvalidConfig, dest.Type)
	}
}
