// Package jsonstrict decodes the self-describing JSON blobs this repository
// persists for run_spec/job_spec_data/job_provisioning_data columns
// (spec.md §9), rejecting unknown fields on every read.
package jsonstrict

import (
	"bytes"
	"encoding/json"
)

// Unmarshal decodes raw into dst, rejecting unknown fields. A nil/empty raw
// is a no-op, matching the nullable columns these blobs are stored in.
func Unmarshal(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
