package gateway

import (
	"crypto/ed25519"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
)

// strkey version bytes: 'S' 开头为私钥种子，'G' 开头为账户地址。
const (
	versionSeed    byte = 18 << 3
	versionAccount byte = 6 << 3
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

var ErrBadSeed = errors.New("malformed signing seed")

// Signer 持有一个市场的签名密钥。每个市场一个账户，一个 Signer。
// 密钥在进程生命周期内只读，可被并发周期安全共享。
type Signer struct {
	key     ed25519.PrivateKey
	address string
}

// NewSignerFromSeed decodes an 'S...' seed and derives the signing keypair.
func NewSignerFromSeed(seed string) (*Signer, error) {
	raw, err := decodeStrkey(versionSeed, seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSeed, err)
	}
	if len(raw) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed payload must be %d bytes", ErrBadSeed, ed25519.SeedSize)
	}
	key := ed25519.NewKeyFromSeed(raw)
	pub := key.Public().(ed25519.PublicKey)
	return &Signer{
		key:     key,
		address: encodeStrkey(versionAccount, pub),
	}, nil
}

// Address 返回该密钥对应的账户地址（'G...'）。
func (s *Signer) Address() string {
	return s.address
}

// Sign signs the canonical batch payload and returns a base64 signature.
func (s *Signer) Sign(payload []byte) string {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(s.key, payload))
}

func encodeStrkey(version byte, payload []byte) string {
	data := append([]byte{version}, payload...)
	crc := crc16(data)
	data = append(data, byte(crc&0xff), byte(crc>>8))
	return b32.EncodeToString(data)
}

func decodeStrkey(version byte, in string) ([]byte, error) {
	data, err := b32.DecodeString(in)
	if err != nil {
		return nil, err
	}
	if len(data) < 3 {
		return nil, errors.New("too short")
	}
	if data[0] != version {
		return nil, errors.New("wrong version byte")
	}
	body, tail := data[:len(data)-2], data[len(data)-2:]
	want := uint16(tail[0]) | uint16(tail[1])<<8
	if crc16(body) != want {
		return nil, errors.New("checksum mismatch")
	}
	return body[1:], nil
}

// crc16 XModem，strkey 校验和使用的多项式 0x1021。
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
