package contenthash_test

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdelicata/dbx/pkg/contenthash"
)

var vectors = []struct {
	n    int
	want string
}{
	{0, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
	{1, "1cd6ef71e6e0ff46ad2609d403dc3fee244417089aa4461245a4e4fe23a55e42"},
	{2, "01e0655fb754d10418a73760f57515f4903b298e6d67dda6bf0987fa79c22c88"},
	{4096, "8620913d33852befe09f16fff8fd75f77a83160d29f76f07e0276e9690903035"},
	{4194303, "647c8627d70f7a7d13ce96b1e7710a771a55d41a62c3da490d92e56044d311fa"},
	{4194304, "d4d63bac5b866c71620185392a8a6218ac1092454a2d16f820363b69852befa3"},
	{4194305, "8f553da8d00d0bf509d8470e242888be33019c20c0544811f5b2b89e98360b92"},
	{8388607, "83b30cf4fb5195b04a937727ae379cf3d06673bf8f77947f6a92858536e8369c"},
	{8388608, "e08b3ba1f538804075c5f939accdeaa9efc7b5c01865c94a41e78ca6550a88e7"},
	{8388609, "02c8a4aefc2bfc9036f89a7098001865885938ca580e5c9e5db672385edd303c"},
}

// testChunk writes n bytes of 'A' in writes of chunk bytes.
func testChunk(t *testing.T, chunk int) {
	t.Helper()

	data := bytes.Repeat([]byte{'A'}, chunk)
	for _, test := range vectors {
		d := contenthash.New()
		toWrite := test.n
		for ; toWrite >= chunk; toWrite -= chunk {
			n, err := d.Write(data)
			require.NoError(t, err)
			assert.Equal(t, chunk, n)
		}
		n, err := d.Write(data[:toWrite])
		require.NoError(t, err)
		assert.Equal(t, toWrite, n)

		assert.Equal(t, test.want, hex.EncodeToString(d.Sum(nil)), "length %d", test.n)
	}
}

func TestHashChunk8M(t *testing.T)   { testChunk(t, 8*1024*1024) }
func TestHashChunk4M(t *testing.T)   { testChunk(t, 4*1024*1024) }
func TestHashChunk1M(t *testing.T)   { testChunk(t, 1*1024*1024) }
func TestHashChunk64k(t *testing.T)  { testChunk(t, 64*1024) }
func TestHashChunk2047(t *testing.T) { testChunk(t, 2047) }

func TestSumDoesNotChangeState(t *testing.T) {
	t.Parallel()

	d := contenthash.New()
	_, _ = d.Write([]byte{'A'})
	first := d.Sum(nil)
	assert.Equal(t, first, d.Sum(nil))

	_, _ = d.Write([]byte{'A'})
	assert.Equal(t, "01e0655fb754d10418a73760f57515f4903b298e6d67dda6bf0987fa79c22c88", hex.EncodeToString(d.Sum(nil)))

	d.Reset()
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", hex.EncodeToString(d.Sum(nil)))
}

func TestSizes(t *testing.T) {
	t.Parallel()

	d := contenthash.New()
	assert.Equal(t, 32, d.Size())
	assert.Equal(t, 64, d.BlockSize())
}

func TestSum(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[contenthash.Size]byte{
			0x1c, 0xd6, 0xef, 0x71, 0xe6, 0xe0, 0xff, 0x46,
			0xad, 0x26, 0x09, 0xd4, 0x03, 0xdc, 0x3f, 0xee,
			0x24, 0x44, 0x17, 0x08, 0x9a, 0xa4, 0x46, 0x12,
			0x45, 0xa4, 0xe4, 0xfe, 0x23, 0xa5, 0x5e, 0x42,
		},
		contenthash.Sum([]byte{'A'}),
	)
}

func TestFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a.bin")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{'A'}, 4096), 0o644))

	got, err := contenthash.File(path)
	require.NoError(t, err)
	assert.Equal(t, "8620913d33852befe09f16fff8fd75f77a83160d29f76f07e0276e9690903035", got)
	assert.Equal(t, got, contenthash.Bytes(bytes.Repeat([]byte{'A'}, 4096)))

	_, err = contenthash.File(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
