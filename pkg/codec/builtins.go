/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package codec

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multibase"
	"golang.org/x/crypto/sha3"
)

// Built-in codec names.
const (
	UTF8ToBytes            = "utf8-bytes"
	BytesToUTF8            = "bytes-utf8"
	HexToBytes             = "hex-bytes"
	BytesToHex             = "bytes-hex"
	Base58ToBytes          = "base58-bytes"
	BytesToBase58          = "bytes-base58"
	MultibaseToBytes       = "multibase-bytes"
	BytesToBigInt          = "bytes-bigint"
	BigIntToBytes          = "bigint-bytes"
	DecimalToBigInt        = "decimal-bigint"
	BigIntToDecimal        = "bigint-decimal"
	NumberToBigInt         = "number-bigint"
	BooleanToBigInt        = "boolean-bigint"
	BigIntModBN254         = "bigint-mod-bn254"
	BigIntToField          = "bigint-bn254field"
	FieldToBigInt          = "bn254field-bigint"
	BytesToFields          = "bytes-bn254fields"
	Keccak256              = "keccak256"
	SHA256                 = "sha256"
	DateToTimestamp        = "date-timestamp"
	TimestampToDate        = "timestamp-date"
	EthereumAddressToBytes = "ethereum-address-bytes"
	Ed25519KeyToBytes      = "ed25519-base58-bytes"
	EdDSAPublicKeyToFields = "bn254-eddsa-publickey-fields"
	EdDSASignatureToFields = "bn254-eddsa-signature-fields"
)

const (
	ethereumAddressLen = 20
	// bytes packed per field element; 31 bytes always fit below the BN254 modulus.
	fieldChunk = 31
	dateLayout = "2006-01-02"
)

// RegisterBuiltins registers the built-in codecs into r.
func RegisterBuiltins(r *Registry) error {
	for _, n := range builtins() {
		if err := r.Register(n); err != nil {
			return err
		}
	}

	return nil
}

//nolint:funlen
func builtins() []*Node {
	return []*Node{
		{Name: UTF8ToBytes, Input: TypeText, Output: TypeBytes, Transform: func(in interface{}) (interface{}, error) {
			return []byte(in.(string)), nil
		}},
		{Name: BytesToUTF8, Input: TypeBytes, Output: TypeText, Transform: func(in interface{}) (interface{}, error) {
			return string(in.([]byte)), nil
		}},
		{Name: HexToBytes, Input: TypeText, Output: TypeBytes, Transform: func(in interface{}) (interface{}, error) {
			return decodeHex(in.(string))
		}},
		{Name: BytesToHex, Input: TypeBytes, Output: TypeText, Transform: func(in interface{}) (interface{}, error) {
			return hex.EncodeToString(in.([]byte)), nil
		}},
		{Name: Base58ToBytes, Input: TypeText, Output: TypeBytes, Transform: func(in interface{}) (interface{}, error) {
			return base58.Decode(in.(string))
		}},
		{Name: BytesToBase58, Input: TypeBytes, Output: TypeText, Transform: func(in interface{}) (interface{}, error) {
			return base58.Encode(in.([]byte)), nil
		}},
		{Name: MultibaseToBytes, Input: TypeText, Output: TypeBytes, Transform: func(in interface{}) (interface{}, error) {
			_, data, err := multibase.Decode(in.(string))
			if err != nil {
				return nil, fmt.Errorf("decode multibase: %w", err)
			}

			return data, nil
		}},
		{Name: BytesToBigInt, Input: TypeBytes, Output: TypeBigInt, Transform: func(in interface{}) (interface{}, error) {
			return new(big.Int).SetBytes(in.([]byte)), nil
		}},
		{Name: BigIntToBytes, Input: TypeBigInt, Output: TypeBytes, Transform: func(in interface{}) (interface{}, error) {
			n := in.(*big.Int)
			if n.Sign() < 0 {
				return nil, fmt.Errorf("negative integer %s has no byte form", n)
			}

			return n.Bytes(), nil
		}},
		{Name: DecimalToBigInt, Input: TypeText, Output: TypeBigInt, Transform: func(in interface{}) (interface{}, error) {
			n, ok := new(big.Int).SetString(in.(string), 10)
			if !ok {
				return nil, fmt.Errorf("%q is not a decimal integer", in)
			}

			return n, nil
		}},
		{Name: BigIntToDecimal, Input: TypeBigInt, Output: TypeText, Transform: func(in interface{}) (interface{}, error) {
			return in.(*big.Int).String(), nil
		}},
		{Name: NumberToBigInt, Input: TypeNumber, Output: TypeBigInt, Transform: numberToBigInt},
		{Name: BooleanToBigInt, Input: TypeBoolean, Output: TypeBigInt, Transform: func(in interface{}) (interface{}, error) {
			if in.(bool) {
				return big.NewInt(1), nil
			}

			return big.NewInt(0), nil
		}},
		{Name: BigIntModBN254, Input: TypeBigInt, Output: TypeBigInt, Transform: func(in interface{}) (interface{}, error) {
			return new(big.Int).Mod(in.(*big.Int), fr.Modulus()), nil
		}},
		{Name: BigIntToField, Input: TypeBigInt, Output: TypeField, Transform: bigIntToField},
		{Name: FieldToBigInt, Input: TypeField, Output: TypeBigInt, Transform: func(in interface{}) (interface{}, error) {
			e := in.(fr.Element)

			return e.BigInt(new(big.Int)), nil
		}},
		{Name: BytesToFields, Input: TypeBytes, Output: TypeField, Spread: true, Transform: bytesToFields},
		{Name: Keccak256, Input: TypeBytes, Output: TypeBytes, Transform: func(in interface{}) (interface{}, error) {
			h := sha3.NewLegacyKeccak256()
			h.Write(in.([]byte)) //nolint:errcheck

			return h.Sum(nil), nil
		}},
		{Name: SHA256, Input: TypeBytes, Output: TypeBytes, Transform: func(in interface{}) (interface{}, error) {
			sum := sha256.Sum256(in.([]byte))

			return sum[:], nil
		}},
		{Name: DateToTimestamp, Input: TypeText, Output: TypeBigInt, Transform: dateToTimestamp},
		{Name: TimestampToDate, Input: TypeBigInt, Output: TypeText, Transform: func(in interface{}) (interface{}, error) {
			n := in.(*big.Int)
			if !n.IsInt64() {
				return nil, fmt.Errorf("timestamp %s out of range", n)
			}

			return time.Unix(n.Int64(), 0).UTC().Format(time.RFC3339), nil
		}},
		{Name: EthereumAddressToBytes, Input: TypeText, Output: TypeBytes, Transform: func(in interface{}) (interface{}, error) {
			b, err := decodeHex(in.(string))
			if err != nil {
				return nil, err
			}

			if len(b) != ethereumAddressLen {
				return nil, fmt.Errorf("ethereum address must be %d bytes, got %d", ethereumAddressLen, len(b))
			}

			return b, nil
		}},
		{Name: Ed25519KeyToBytes, Input: TypeText, Output: TypeBytes, Transform: func(in interface{}) (interface{}, error) {
			b, err := base58.Decode(in.(string))
			if err != nil {
				return nil, fmt.Errorf("decode base58 key: %w", err)
			}

			if len(b) != ed25519.PublicKeySize {
				return nil, fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
			}

			return b, nil
		}},
		{Name: EdDSAPublicKeyToFields, Input: TypeBytes, Output: TypeField, Spread: true, Transform: publicKeyToFields},
		{Name: EdDSASignatureToFields, Input: TypeBytes, Output: TypeField, Spread: true, Transform: signatureToFields},
	}
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}

	return b, nil
}

func numberToBigInt(in interface{}) (interface{}, error) {
	switch v := in.(type) {
	case json.Number:
		if n, ok := new(big.Int).SetString(v.String(), 10); ok {
			return n, nil
		}

		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("parse number %s: %w", v, err)
		}

		return floatToBigInt(f)
	case float64:
		return floatToBigInt(v)
	case float32:
		return floatToBigInt(float64(v))
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported number %T", in)
	}
}

func floatToBigInt(f float64) (*big.Int, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return nil, fmt.Errorf("number %v is not an integer", f)
	}

	n, _ := big.NewFloat(f).Int(nil)

	return n, nil
}

func bigIntToField(in interface{}) (interface{}, error) {
	n := in.(*big.Int)

	if n.Sign() < 0 || n.Cmp(fr.Modulus()) >= 0 {
		return nil, fmt.Errorf("integer %s is outside the bn254 scalar field", n)
	}

	var e fr.Element

	e.SetBigInt(n)

	return e, nil
}

// bytesToFields encodes the length followed by 31-byte chunks so distinct inputs never collide.
func bytesToFields(in interface{}) (interface{}, error) {
	b := in.([]byte)

	var length fr.Element

	length.SetUint64(uint64(len(b)))

	out := []interface{}{length}

	for start := 0; start < len(b); start += fieldChunk {
		end := start + fieldChunk
		if end > len(b) {
			end = len(b)
		}

		var e fr.Element

		e.SetBytes(b[start:end])

		out = append(out, e)
	}

	return out, nil
}

func dateToTimestamp(in interface{}) (interface{}, error) {
	s := in.(string)

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("%q is neither an RFC3339 time nor a date", s)
		}
	}

	return big.NewInt(t.Unix()), nil
}

func publicKeyToFields(in interface{}) (interface{}, error) {
	var pub eddsa.PublicKey

	if _, err := pub.SetBytes(in.([]byte)); err != nil {
		return nil, fmt.Errorf("parse bn254 eddsa public key: %w", err)
	}

	return []interface{}{pub.A.X, pub.A.Y}, nil
}

func signatureToFields(in interface{}) (interface{}, error) {
	var sig eddsa.Signature

	if _, err := sig.SetBytes(in.([]byte)); err != nil {
		return nil, fmt.Errorf("parse bn254 eddsa signature: %w", err)
	}

	var s fr.Element

	s.SetBytes(sig.S[:])

	return []interface{}{sig.R.X, sig.R.Y, s}, nil
}
