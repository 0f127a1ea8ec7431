// Package contenthash computes the Dropbox content hash: the SHA-256 of the
// concatenated SHA-256 digests of each 4 MiB block of a file.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
)

const (
	// BlockSize is the size of the blocks hashed individually.
	BlockSize = 4 * 1024 * 1024
	// Size is the size of a content hash in bytes.
	Size = sha256.Size
)

type digest struct {
	blockSums []byte
	block     hash.Hash
	n         int // bytes written to the current block
}

// New returns a hash.Hash computing the Dropbox content hash.
func New() hash.Hash {
	d := &digest{block: sha256.New()}
	return d
}

func (d *digest) Write(p []byte) (int, error) {
	written := len(p)
	for len(p) > 0 {
		room := BlockSize - d.n
		chunk := p
		if len(chunk) > room {
			chunk = chunk[:room]
		}
		d.block.Write(chunk)
		d.n += len(chunk)
		p = p[len(chunk):]

		if d.n == BlockSize {
			d.blockSums = d.block.Sum(d.blockSums)
			d.block.Reset()
			d.n = 0
		}
	}
	return written, nil
}

// Sum appends the content hash of everything written so far to b. It does
// not change the state of the hash.
func (d *digest) Sum(b []byte) []byte {
	outer := sha256.New()
	outer.Write(d.blockSums)
	if d.n > 0 {
		outer.Write(d.block.Sum(nil))
	}
	return outer.Sum(b)
}

func (d *digest) Reset() {
	d.blockSums = d.blockSums[:0]
	d.block.Reset()
	d.n = 0
}

func (d *digest) Size() int { return Size }

func (d *digest) BlockSize() int { return sha256.BlockSize }

// Sum returns the content hash of data.
func Sum(data []byte) [Size]byte {
	var out [Size]byte
	d := New()
	_, _ = d.Write(data)
	copy(out[:], d.Sum(nil))
	return out
}

// Bytes returns the hex content hash of data, as the API reports it.
func Bytes(data []byte) string {
	sum := Sum(data)
	return hex.EncodeToString(sum[:])
}

// Reader returns the hex content hash of everything read from r.
func Reader(r io.Reader) (string, error) {
	d := New()
	if _, err := io.Copy(d, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(d.Sum(nil)), nil
}

// File returns the hex content hash of the file at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	return Reader(f)
}
