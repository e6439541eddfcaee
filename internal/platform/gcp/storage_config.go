package gcp

import (
	"fmt"
	"net/url"
	"strings"
)

type StorageConfigErrorCode string

const (
	StorageConfigErrorInvalidEmulatorHost StorageConfigErrorCode = "invalid_emulator_host"
)

type StorageConfigError struct {
	Code         StorageConfigErrorCode
	EmulatorHost string
	Cause        error
}

func (e *StorageConfigError) Error() string {
	if e == nil {
		return "invalid storage config"
	}
	switch e.Code {
	case StorageConfigErrorInvalidEmulatorHost:
		return fmt.Sprintf("invalid GCS emulator host %q; expected absolute URL like http://fake-gcs:4443", e.EmulatorHost)
	default:
		return "invalid storage config"
	}
}

func (e *StorageConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (cfg StorageConfig) IsEmulatorMode() bool {
	return strings.TrimSpace(cfg.EmulatorHost) != ""
}

// Validate only checks the emulator host; real credentials are verified by the client.
func (cfg StorageConfig) Validate() error {
	if !cfg.IsEmulatorMode() {
		return nil
	}
	host := strings.TrimSpace(cfg.EmulatorHost)
	u, err := url.Parse(host)
	if err != nil || strings.TrimSpace(u.Scheme) == "" || strings.TrimSpace(u.Host) == "" {
		return &StorageConfigError{
			Code:         StorageConfigErrorInvalidEmulatorHost,
			EmulatorHost: host,
			Cause:        err,
		}
	}
	return nil
}
