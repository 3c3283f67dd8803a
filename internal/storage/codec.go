// Package storage implements the file-backed record engine: one JSON
// document per collection, written wholesale under an advisory lease,
// snapshotted before every overwrite.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"modmap/internal/model"
	"modmap/internal/modmap"
)

// Codec serializes a collection to and from its on-disk JSON form and
// validates the top-level shape. Decode distinguishes malformed text
// (ErrParse) from well-formed JSON with the wrong structure
// (ErrValidation).
type Codec struct{}

// rawCollection defers the modules field so both historical layouts
// decode: an object keyed by id, or a plain array.
type rawCollection struct {
	Metadata *model.CollectionMetadata `json:"metadata"`
	Modules  json.RawMessage           `json:"modules"`
}

// Decode parses data into a Collection.
func (Codec) Decode(data []byte) (*model.Collection, error) {
	var raw rawCollection
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, modmap.WrapError(modmap.KindParse, err, "collection file is not valid JSON")
	}
	// A half-overwritten file can leave valid JSON followed by the tail
	// of the previous contents; only EOF after the document is sound.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, modmap.NewError(modmap.KindParse, "collection file has trailing data after the document")
	}
	if raw.Metadata == nil {
		return nil, modmap.NewError(modmap.KindValidation, "collection file has no metadata block")
	}

	col := &model.Collection{
		Metadata: *raw.Metadata,
		Modules:  make(map[string]*model.Module),
	}
	if len(raw.Modules) == 0 || bytes.Equal(bytes.TrimSpace(raw.Modules), []byte("null")) {
		return col, nil
	}

	switch firstByte(raw.Modules) {
	case '{':
		if err := json.Unmarshal(raw.Modules, &col.Modules); err != nil {
			return nil, modmap.WrapError(modmap.KindParse, err, "decoding modules map")
		}
	case '[':
		var list []*model.Module
		if err := json.Unmarshal(raw.Modules, &list); err != nil {
			return nil, modmap.WrapError(modmap.KindParse, err, "decoding modules array")
		}
		for _, m := range list {
			if m == nil || m.ID == "" {
				return nil, modmap.NewError(modmap.KindValidation, "modules array entry has no id")
			}
			col.Modules[m.ID] = m
		}
	default:
		return nil, modmap.NewError(modmap.KindValidation, "modules must be an object or an array")
	}
	return col, nil
}

// Encode renders a Collection as indented JSON.
func (Codec) Encode(col *model.Collection) ([]byte, error) {
	data, err := json.MarshalIndent(col, "", "  ")
	if err != nil {
		return nil, modmap.WrapError(modmap.KindWrite, err, "encoding collection")
	}
	return append(data, '\n'), nil
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
