package gcp

import (
	"context"
	"errors"
	"testing"
)

func TestStorageConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     StorageConfig
		wantErr bool
	}{
		{name: "adc", cfg: StorageConfig{}},
		{name: "credentials file", cfg: StorageConfig{Credentials: "/etc/gcp/sa.json"}},
		{name: "emulator", cfg: StorageConfig{EmulatorHost: "http://fake-gcs:4443"}},
		{name: "emulator without scheme", cfg: StorageConfig{EmulatorHost: "fake-gcs:4443"}, wantErr: true},
		{name: "emulator garbage", cfg: StorageConfig{EmulatorHost: "::"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr != (err != nil) {
				t.Fatalf("Validate()=%v wantErr=%v", err, tc.wantErr)
			}
			if err == nil {
				return
			}
			var cfgErr *StorageConfigError
			if !errors.As(err, &cfgErr) || cfgErr.Code != StorageConfigErrorInvalidEmulatorHost {
				t.Fatalf("error=%T %v", err, err)
			}
		})
	}
}

func TestNewStorageClientRejectsBadEmulatorHost(t *testing.T) {
	_, err := NewStorageClient(context.Background(), StorageConfig{EmulatorHost: "not a url"})
	var cfgErr *StorageConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected StorageConfigError, got %v", err)
	}
}

func TestClientOptions(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")
	if opts := ClientOptions(""); opts != nil {
		t.Fatalf("expected ADC, got %d options", len(opts))
	}
	if opts := ClientOptions(`{"type":"service_account"}`); len(opts) != 1 {
		t.Fatalf("json creds: %d options", len(opts))
	}
	if opts := ClientOptions("/etc/gcp/sa.json"); len(opts) != 1 {
		t.Fatalf("file creds: %d options", len(opts))
	}
}
