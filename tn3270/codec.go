package tn3270

import (
	"errors"
	"fmt"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// MaxPositions is the size of the 12-bit buffer address space
const MaxPositions = 4096

// addressCodes maps each 6-bit group of a buffer address to the byte that carries it on the
// wire. The same alphabet is used to send field attribute bytes.
var addressCodes = [64]byte{
	0x40, 0xC1, 0xC2, 0xC3, 0xC4, 0xC5, 0xC6, 0xC7,
	0xC8, 0xC9, 0x4A, 0x4B, 0x4C, 0x4D, 0x4E, 0x4F,
	0x50, 0xD1, 0xD2, 0xD3, 0xD4, 0xD5, 0xD6, 0xD7,
	0xD8, 0xD9, 0x5A, 0x5B, 0x5C, 0x5D, 0x5E, 0x5F,
	0x60, 0x61, 0xE2, 0xE3, 0xE4, 0xE5, 0xE6, 0xE7,
	0xE8, 0xE9, 0x6A, 0x6B, 0x6C, 0x6D, 0x6E, 0x6F,
	0xF0, 0xF1, 0xF2, 0xF3, 0xF4, 0xF5, 0xF6, 0xF7,
	0xF8, 0xF9, 0x7A, 0x7B, 0x7C, 0x7D, 0x7E, 0x7F,
}

// EncodeAddress splits a buffer position into two 6-bit groups, high group first
func EncodeAddress(position int) [2]byte {
	return [2]byte{
		addressCodes[(position>>6)&0x3F],
		addressCodes[position&0x3F],
	}
}

// DecodeAddress recombines the low 6 bits of each byte. Callers take the result modulo
// the screen size.
func DecodeAddress(b0, b1 byte) int {
	return (int(b0&0x3F) << 6) | int(b1&0x3F)
}

// DefaultCodepage is the IANA name of the EBCDIC code page used when none is configured
const DefaultCodepage = "IBM037"

const ebcdicSpace byte = 0x40

// Codepage translates between EBCDIC bytes and runes. Tables are built once and never
// modified, so a Codepage can be shared freely.
type Codepage struct {
	name   string
	decode [256]rune
	encode map[rune]byte
}

var codepageCache = struct {
	lock  sync.Mutex
	pages map[string]*Codepage
}{pages: make(map[string]*Codepage)}

// LoadCodepage returns the translation tables for an EBCDIC code page registered under
// an IANA name, such as IBM037 or IBM1047. Tables are cached for the life of the process.
func LoadCodepage(name string) (*Codepage, error) {
	if name == "" {
		name = DefaultCodepage
	}

	codepageCache.lock.Lock()
	defer codepageCache.lock.Unlock()

	page, ok := codepageCache.pages[name]
	if ok {
		return page, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("codepage %s: %w", name, err)
	}

	if enc == nil {
		return nil, fmt.Errorf("codepage %s: %w", name, errUnsupportedCodepage)
	}

	page, err = buildCodepage(name, enc)
	if err != nil {
		return nil, err
	}

	codepageCache.pages[name] = page
	return page, nil
}

var errUnsupportedCodepage = errors.New("no decoder is available")

func buildCodepage(name string, enc encoding.Encoding) (*Codepage, error) {
	page := &Codepage{
		name:   name,
		encode: make(map[rune]byte, 256),
	}

	decoder := enc.NewDecoder()
	for i := 0; i < 256; i++ {
		decoded, err := decoder.Bytes([]byte{byte(i)})
		if err != nil {
			return nil, fmt.Errorf("codepage %s: decoding %#02x: %w", name, i, err)
		}

		r, _ := utf8.DecodeRune(decoded)
		if r == utf8.RuneError || !unicode.IsPrint(r) {
			page.decode[i] = ' '
			continue
		}

		page.decode[i] = r
		if _, seen := page.encode[r]; !seen {
			page.encode[r] = byte(i)
		}
	}

	page.encode[' '] = ebcdicSpace
	return page, nil
}

// Name returns the IANA name the codepage was loaded with
func (c *Codepage) Name() string {
	return c.name
}

// Decode translates one EBCDIC byte. Control codes and unmapped bytes become a blank.
func (c *Codepage) Decode(b byte) rune {
	return c.decode[b]
}

// Encode translates one rune. Runes the code page cannot represent become an EBCDIC blank.
func (c *Codepage) Encode(r rune) byte {
	b, ok := c.encode[r]
	if !ok {
		return ebcdicSpace
	}

	return b
}

// EncodeString translates every rune of s
func (c *Codepage) EncodeString(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, c.Encode(r))
	}

	return out
}

// DecodeBytes translates every byte of b
func (c *Codepage) DecodeBytes(b []byte) string {
	runes := make([]rune, len(b))
	for i, code := range b {
		runes[i] = c.decode[code]
	}

	return string(runes)
}

func mustLoadCodepage(name string) *Codepage {
	page, err := LoadCodepage(name)
	if err != nil {
		panic(err)
	}

	return page
}
