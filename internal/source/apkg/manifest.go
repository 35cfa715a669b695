package apkg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/rsakamoto/mediaimport/internal/domain"
)

// Archive packaging versions. Version 1 stores the media manifest as a
// JSON object; version 2 stores it as a zstd-compressed protobuf message.
// Anything newer is rejected at root construction.
const (
	versionLegacyJSON = 1
	versionZstdProto  = 2
	maxVersion        = versionZstdProto
)

// zstdChunkSize bounds how much is decompressed per read, capping peak
// memory for hostile or huge manifests.
const zstdChunkSize = 16 * 1024

// parseMetaVersion extracts the package version from the meta entry, a
// protobuf message whose field 1 is the version number.
func parseMetaVersion(data []byte) (int, error) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return 0, fmt.Errorf("%w: invalid meta entry", domain.ErrIncompatibleFormat)
		}
		data = data[n:]

		if num == 1 && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return 0, fmt.Errorf("%w: invalid meta entry", domain.ErrIncompatibleFormat)
			}
			return int(v), nil
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return 0, fmt.Errorf("%w: invalid meta entry", domain.ErrIncompatibleFormat)
		}
		data = data[n:]
	}
	return 0, fmt.Errorf("%w: meta entry has no version", domain.ErrIncompatibleFormat)
}

// parseManifest decodes the media manifest into a mapping from internal
// storage name to original file name.
func parseManifest(data []byte, version int) (map[string]string, error) {
	if version >= versionZstdProto {
		return parseCompressedManifest(data)
	}
	// Legacy packages have no version marker; a package written by a
	// newer exporter without a meta entry would fail JSON decoding, so
	// fall through to the compressed format before giving up.
	if utf8.Valid(data) {
		var manifest map[string]string
		if err := json.Unmarshal(data, &manifest); err == nil {
			return manifest, nil
		}
	}
	return parseCompressedManifest(data)
}

// parseCompressedManifest decompresses the zstd stream in bounded chunks
// and decodes the entry list. Internal storage names are the entry
// indexes.
func parseCompressedManifest(data []byte) (map[string]string, error) {
	decoder, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIncompatibleFormat, err)
	}
	defer decoder.Close()

	var decompressed []byte
	chunk := make([]byte, zstdChunkSize)
	for {
		n, err := decoder.Read(chunk)
		if n > 0 {
			decompressed = append(decompressed, chunk[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrIncompatibleFormat, err)
		}
	}

	names, err := parseMediaEntries(decompressed)
	if err != nil {
		return nil, err
	}

	manifest := make(map[string]string, len(names))
	for i, name := range names {
		manifest[strconv.Itoa(i)] = name
	}
	return manifest, nil
}

// parseMediaEntries decodes the manifest protobuf: field 1 is a repeated
// entry message whose own field 1 is the original file name.
func parseMediaEntries(data []byte) ([]string, error) {
	var names []string
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: invalid manifest", domain.ErrIncompatibleFormat)
		}
		data = data[n:]

		if num == 1 && typ == protowire.BytesType {
			entry, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: invalid manifest", domain.ErrIncompatibleFormat)
			}
			data = data[n:]

			name, err := parseEntryName(entry)
			if err != nil {
				return nil, err
			}
			names = append(names, name)
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return nil, fmt.Errorf("%w: invalid manifest", domain.ErrIncompatibleFormat)
		}
		data = data[n:]
	}
	return names, nil
}

func parseEntryName(entry []byte) (string, error) {
	for len(entry) > 0 {
		num, typ, n := protowire.ConsumeTag(entry)
		if n < 0 {
			return "", fmt.Errorf("%w: invalid manifest entry", domain.ErrIncompatibleFormat)
		}
		entry = entry[n:]

		if num == 1 && typ == protowire.BytesType {
			name, n := protowire.ConsumeBytes(entry)
			if n < 0 {
				return "", fmt.Errorf("%w: invalid manifest entry", domain.ErrIncompatibleFormat)
			}
			return string(name), nil
		}

		n = protowire.ConsumeFieldValue(num, typ, entry)
		if n < 0 {
			return "", fmt.Errorf("%w: invalid manifest entry", domain.ErrIncompatibleFormat)
		}
		entry = entry[n:]
	}
	return "", fmt.Errorf("%w: manifest entry has no name", domain.ErrIncompatibleFormat)
}
