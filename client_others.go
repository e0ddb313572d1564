//go:build !linux

package wifiscan

func newClient(_ *Config) (*client, error) { return nil, errUnimplemented }
