/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package hexkey decodes the IPMI Serial-Over-LAN K_g BMC key (C9,
// spec.md §4.9) from its config-file hex representation, adapted from
// the teacher's encoding/hexa Coder (a thin encoding/hex wrapper)
// down to the two free functions this single concrete use needs.
package hexkey

import (
	"encoding/hex"
	"fmt"
)

// MaxLen is the longest K_g key the IPMI SOL handshake accepts (20 raw
// bytes, i.e. 40 hex characters), matching the BMC key length used by
// IPMI v2.0 RAKP.
const MaxLen = 20

// Decode parses a hex-encoded K_g string from the config file into its
// raw byte form. An empty string decodes to a nil key (no K_g set,
// i.e. the BMC uses its default/null key).
func Decode(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b := make([]byte, hex.DecodedLen(len(s)))
	n, err := hex.Decode(b, []byte(s))
	if err != nil {
		return nil, fmt.Errorf("hexkey: invalid K_g value: %w", err)
	}
	b = b[:n]
	if len(b) > MaxLen {
		return nil, fmt.Errorf("hexkey: K_g key too long: %d bytes (max %d)", len(b), MaxLen)
	}
	return b, nil
}

// Encode renders a raw key back to its hex config-file form.
func Encode(key []byte) string {
	return hex.EncodeToString(key)
}
