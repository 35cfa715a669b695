package mega

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
)

// MEGA represents keys as arrays of big-endian 32-bit words. Folder keys
// are 4 words; per-file keys are 8 words, of which the usable AES key is
// the XOR of the two halves and words 4-5 seed the CTR IV.

func base64URLDecode(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	return base64.RawURLEncoding.DecodeString(s)
}

func a32ToBytes(a []uint32) []byte {
	out := make([]byte, 4*len(a))
	for i, v := range a {
		binary.BigEndian.PutUint32(out[i*4:], v)
	}
	return out
}

func bytesToA32(b []byte) []uint32 {
	if rem := len(b) % 4; rem != 0 {
		b = append(b, make([]byte, 4-rem)...)
	}
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.BigEndian.Uint32(b[i*4:])
	}
	return out
}

func base64ToA32(s string) ([]uint32, error) {
	b, err := base64URLDecode(s)
	if err != nil {
		return nil, err
	}
	return bytesToA32(b), nil
}

// decryptKey decrypts a node key with the shared folder key, 16 bytes at a
// time (AES-ECB as MEGA uses it).
func decryptKey(encrypted, folderKey []uint32) ([]uint32, error) {
	block, err := aes.NewCipher(a32ToBytes(folderKey))
	if err != nil {
		return nil, err
	}
	in := a32ToBytes(encrypted)
	if len(in)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("node key length %d not block-aligned", len(in))
	}
	out := make([]byte, len(in))
	for i := 0; i < len(in); i += aes.BlockSize {
		block.Decrypt(out[i:i+aes.BlockSize], in[i:i+aes.BlockSize])
	}
	return bytesToA32(out), nil
}

// xorHalves folds an 8-word file key into the 4-word AES key.
func xorHalves(key []uint32) []uint32 {
	return []uint32{key[0] ^ key[4], key[1] ^ key[5], key[2] ^ key[6], key[3] ^ key[7]}
}

// nodeAttrs is the decrypted per-node attribute dictionary.
type nodeAttrs struct {
	Name string `json:"n"`
}

// decryptAttrs decrypts a node's attribute blob: zero-IV AES-CBC, then a
// "MEGA"-prefixed JSON object padded with NUL bytes.
func decryptAttrs(data []byte, key []uint32) (nodeAttrs, error) {
	var attrs nodeAttrs

	block, err := aes.NewCipher(a32ToBytes(key))
	if err != nil {
		return attrs, err
	}
	if len(data)%aes.BlockSize != 0 {
		return attrs, fmt.Errorf("attribute length %d not block-aligned", len(data))
	}
	iv := make([]byte, aes.BlockSize)
	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, data)

	plain = bytes.TrimRight(plain, "\x00")
	if !bytes.HasPrefix(plain, []byte("MEGA")) {
		return attrs, fmt.Errorf("attribute decryption failed")
	}
	if err := json.Unmarshal(plain[4:], &attrs); err != nil {
		return attrs, fmt.Errorf("invalid attribute payload: %w", err)
	}
	return attrs, nil
}

// decryptContent decrypts downloaded file data in place using AES-CTR with
// the key derived from the full 8-word file key: AES key = XORed halves,
// IV = words 4-5 followed by two zero words.
func decryptContent(data []byte, fileKey []uint32) ([]byte, error) {
	block, err := aes.NewCipher(a32ToBytes(xorHalves(fileKey)))
	if err != nil {
		return nil, err
	}
	iv := a32ToBytes([]uint32{fileKey[4], fileKey[5], 0, 0})
	out := make([]byte, len(data))
	cipher.NewCTR(block, iv).XORKeyStream(out, data)
	return out, nil
}
