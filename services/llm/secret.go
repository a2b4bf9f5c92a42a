// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/awnumar/memguard"
)

// KeySource yields the upstream bearer token. It is consulted on every
// call so a rotated or newly exported key takes effect without a restart.
// An empty key with a nil error means "not configured".
type KeySource interface {
	APIKey() (string, error)
}

// EnvKeySource reads the key from an environment variable, falling back to
// a mounted secret file (e.g. /run/secrets/deepseek_api_key).
type EnvKeySource struct {
	EnvVar     string
	SecretPath string
}

// APIKey implements KeySource. The returned string is ordinary GC-managed
// memory; only the bytes read from SecretPath are wiped.
func (s EnvKeySource) APIKey() (string, error) {
	if s.EnvVar != "" {
		if key := strings.TrimSpace(os.Getenv(s.EnvVar)); key != "" {
			return key, nil
		}
	}
	if s.SecretPath == "" {
		return "", nil
	}

	raw, err := os.ReadFile(s.SecretPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read api key secret: %w", err)
	}
	if len(raw) == 0 {
		return "", nil
	}

	return keyFromSecret(raw), nil
}

// keyFromSecret returns the trimmed key and zeroes raw.
func keyFromSecret(raw []byte) string {
	buf := memguard.NewBufferFromBytes(raw)
	defer buf.Destroy()
	return strings.TrimSpace(string(buf.Bytes()))
}

// StaticKeySource returns a fixed key. Used by tests and by the CLI when a
// key is passed explicitly.
type StaticKeySource string

// APIKey implements KeySource.
func (s StaticKeySource) APIKey() (string, error) {
	return string(s), nil
}
