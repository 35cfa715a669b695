package mega

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/rsakamoto/mediaimport/internal/domain"
)

func TestParseFolderURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantID  string
		wantKey string
		wantErr bool
	}{
		{
			name:    "mega nz",
			url:     "https://mega.nz/folder/AbCd1234#K3yK3yK3yK3yK3yK3yK3yA",
			wantID:  "AbCd1234",
			wantKey: "K3yK3yK3yK3yK3yK3yK3yA",
		},
		{
			name:    "mega io",
			url:     "https://mega.io/folder/AbCd1234#K3yK3y",
			wantID:  "AbCd1234",
			wantKey: "K3yK3y",
		},
		{
			name:    "mega co nz http",
			url:     "http://mega.co.nz/folder/AbCd1234#K3yK3y",
			wantID:  "AbCd1234",
			wantKey: "K3yK3y",
		},
		{
			name:    "missing key fragment",
			url:     "https://mega.nz/folder/AbCd1234",
			wantErr: true,
		},
		{
			name:    "subfolder link",
			url:     "https://mega.nz/folder/AbCd1234#K3yK3y/folder/XyZ987",
			wantErr: true,
		},
		{
			name:    "file link",
			url:     "https://mega.nz/file/AbCd1234#K3yK3y",
			wantErr: true,
		},
		{
			name:    "not mega",
			url:     "https://example.com/folder/AbCd1234#K3yK3y",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, key, err := ParseFolderURL(tt.url)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrMalformedURL) {
					t.Errorf("ParseFolderURL(%q) error = %v, want ErrMalformedURL", tt.url, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFolderURL(%q) failed: %v", tt.url, err)
			}
			if id != tt.wantID || key != tt.wantKey {
				t.Errorf("ParseFolderURL(%q) = (%q, %q), want (%q, %q)", tt.url, id, key, tt.wantID, tt.wantKey)
			}
		})
	}
}

func TestA32Conversions(t *testing.T) {
	words := []uint32{0x01020304, 0xAABBCCDD, 0, 0xFFFFFFFF}

	b := a32ToBytes(words)
	if len(b) != 16 {
		t.Fatalf("Expected 16 bytes, got %d", len(b))
	}
	back := bytesToA32(b)
	for i := range words {
		if back[i] != words[i] {
			t.Fatalf("Round-trip mismatch at %d: %x != %x", i, back[i], words[i])
		}
	}
}

func TestBytesToA32_Padding(t *testing.T) {
	got := bytesToA32([]byte{0x01, 0x02, 0x03, 0x04, 0x05})
	if len(got) != 2 {
		t.Fatalf("Expected 2 words, got %d", len(got))
	}
	if got[0] != 0x01020304 || got[1] != 0x05000000 {
		t.Errorf("Unexpected words %x", got)
	}
}

func TestBase64ToA32(t *testing.T) {
	// 8 bytes, URL-safe alphabet, no padding in the wire form.
	raw := []byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x02}
	encoded := base64.RawURLEncoding.EncodeToString(raw)

	got, err := base64ToA32(encoded)
	if err != nil {
		t.Fatalf("base64ToA32 failed: %v", err)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Unexpected words %v", got)
	}
}

func TestXorHalves(t *testing.T) {
	key := []uint32{1, 2, 3, 4, 5, 6, 7, 8}
	got := xorHalves(key)
	want := []uint32{1 ^ 5, 2 ^ 6, 3 ^ 7, 4 ^ 8}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("xorHalves = %v, want %v", got, want)
		}
	}
}

func TestDecryptKey(t *testing.T) {
	folderKey := []uint32{0x11111111, 0x22222222, 0x33333333, 0x44444444}
	fileKey := []uint32{1, 2, 3, 4, 5, 6, 7, 8}

	// Encrypt the file key the way the server stores it.
	block, err := aes.NewCipher(a32ToBytes(folderKey))
	if err != nil {
		t.Fatalf("Failed to build cipher: %v", err)
	}
	plain := a32ToBytes(fileKey)
	encrypted := make([]byte, len(plain))
	for i := 0; i < len(plain); i += aes.BlockSize {
		block.Encrypt(encrypted[i:i+aes.BlockSize], plain[i:i+aes.BlockSize])
	}

	got, err := decryptKey(bytesToA32(encrypted), folderKey)
	if err != nil {
		t.Fatalf("decryptKey failed: %v", err)
	}
	for i := range fileKey {
		if got[i] != fileKey[i] {
			t.Fatalf("decryptKey = %v, want %v", got, fileKey)
		}
	}
}

func encryptAttrs(t *testing.T, payload []byte, key []uint32) []byte {
	t.Helper()

	plain := append([]byte("MEGA"), payload...)
	if rem := len(plain) % aes.BlockSize; rem != 0 {
		plain = append(plain, make([]byte, aes.BlockSize-rem)...)
	}
	block, err := aes.NewCipher(a32ToBytes(key))
	if err != nil {
		t.Fatalf("Failed to build cipher: %v", err)
	}
	out := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(out, plain)
	return out
}

func TestDecryptAttrs(t *testing.T) {
	key := []uint32{0xDEADBEEF, 0x01020304, 0x05060708, 0x090A0B0C}
	data := encryptAttrs(t, []byte(`{"n":"photo.jpg"}`), key)

	attrs, err := decryptAttrs(data, key)
	if err != nil {
		t.Fatalf("decryptAttrs failed: %v", err)
	}
	if attrs.Name != "photo.jpg" {
		t.Errorf("Expected photo.jpg, got %q", attrs.Name)
	}
}

func TestDecryptAttrs_WrongKey(t *testing.T) {
	key := []uint32{1, 2, 3, 4}
	wrong := []uint32{5, 6, 7, 8}
	data := encryptAttrs(t, []byte(`{"n":"photo.jpg"}`), key)

	if _, err := decryptAttrs(data, wrong); err == nil {
		t.Error("Expected decryption with wrong key to fail")
	}
}

func TestDecryptContent(t *testing.T) {
	fileKey := []uint32{1, 2, 3, 4, 5, 6, 7, 8}
	content := []byte("this is the decrypted media payload")

	// CTR is symmetric, so encrypting with the same derivation yields the
	// wire form decryptContent expects.
	encrypted, err := decryptContent(content, fileKey)
	if err != nil {
		t.Fatalf("Failed to encrypt fixture: %v", err)
	}
	if bytes.Equal(encrypted, content) {
		t.Fatal("Fixture was not encrypted")
	}

	got, err := decryptContent(encrypted, fileKey)
	if err != nil {
		t.Fatalf("decryptContent failed: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("Round-trip mismatch: %q", got)
	}
}

func TestDecodeResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{
			name:    "top-level rate limit",
			raw:     "-3",
			wantErr: domain.ErrRateLimited,
		},
		{
			name:    "element not found",
			raw:     "[-9]",
			wantErr: domain.ErrRootNotFound,
		},
		{
			name:    "element permission denied",
			raw:     "[-11]",
			wantErr: domain.ErrPermissionDenied,
		},
		{
			name:    "unknown code",
			raw:     "[-2]",
			wantErr: domain.ErrRequestFailed,
		},
		{
			name:    "empty array",
			raw:     "[]",
			wantErr: domain.ErrRequestFailed,
		},
		{
			name: "payload",
			raw:  `[{"g":"https://example.com/dl","s":42}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out downloadResponse
			err := decodeResponse([]byte(tt.raw), &out)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("decodeResponse(%q) error = %v, want %v", tt.raw, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeResponse(%q) failed: %v", tt.raw, err)
			}
			if out.URL != "https://example.com/dl" || out.Size != 42 {
				t.Errorf("Unexpected payload %+v", out)
			}
		})
	}
}
