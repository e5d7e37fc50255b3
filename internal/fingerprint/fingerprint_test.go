package fingerprint

import (
	"crypto/sha512"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFile creates a tracked file under dir and returns its full path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestFile(t *testing.T) {
	t.Parallel()

	t.Run("hashes file content", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := writeFile(t, dir, "a.txt", "hello")

		got, err := File(path)
		require.NoError(t, err)

		want := sha512.Sum512([]byte("hello"))
		assert.Equal(t, hex.EncodeToString(want[:]), got)
	})

	t.Run("missing file yields the sentinel digest", func(t *testing.T) {
		t.Parallel()
		got, err := File(filepath.Join(t.TempDir(), "does-not-exist"))
		require.NoError(t, err)
		assert.Equal(t, Sentinel(), got)
	})

	t.Run("unreadable file is an error, not the sentinel", func(t *testing.T) {
		t.Parallel()
		if os.Geteuid() == 0 {
			t.Skip("permission bits are not enforced for root")
		}
		dir := t.TempDir()
		path := writeFile(t, dir, "locked.txt", "secret")
		require.NoError(t, os.Chmod(path, 0000))

		_, err := File(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "open tracked file")
	})
}

func TestSentinel(t *testing.T) {
	t.Parallel()

	want := sha512.Sum512([]byte("file-not-found"))
	assert.Equal(t, hex.EncodeToString(want[:]), Sentinel())
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	t.Run("is deterministic", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		paths := []string{
			writeFile(t, dir, "A.txt", "hello"),
			writeFile(t, dir, "B.txt", "world"),
		}

		first, err := Aggregate(paths)
		require.NoError(t, err)
		second, err := Aggregate(paths)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("matches the concatenated-digest construction", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		a := writeFile(t, dir, "A.txt", "hello")
		b := writeFile(t, dir, "B.txt", "world")

		got, err := Aggregate([]string{a, b})
		require.NoError(t, err)

		da := sha512.Sum512([]byte("hello"))
		db := sha512.Sum512([]byte("world"))
		outer := sha512.Sum512([]byte(hex.EncodeToString(da[:]) + hex.EncodeToString(db[:])))
		assert.Equal(t, hex.EncodeToString(outer[:]), got)
	})

	t.Run("changes when any file's content changes", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		a := writeFile(t, dir, "A.txt", "hello")
		b := writeFile(t, dir, "B.txt", "world")

		before, err := Aggregate([]string{a, b})
		require.NoError(t, err)

		// One character changed.
		writeFile(t, dir, "A.txt", "hellp")
		after, err := Aggregate([]string{a, b})
		require.NoError(t, err)
		assert.NotEqual(t, before, after)
	})

	t.Run("changes when a file stops existing", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		a := writeFile(t, dir, "A.txt", "hello")
		b := writeFile(t, dir, "B.txt", "world")

		present, err := Aggregate([]string{a, b})
		require.NoError(t, err)

		require.NoError(t, os.Remove(b))
		absent, err := Aggregate([]string{a, b})
		require.NoError(t, err)
		assert.NotEqual(t, present, absent)

		// Absence is stable: the same missing file always contributes the
		// same sentinel digest.
		again, err := Aggregate([]string{a, b})
		require.NoError(t, err)
		assert.Equal(t, absent, again)
	})

	t.Run("is sensitive to list order", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		a := writeFile(t, dir, "A.txt", "hello")
		b := writeFile(t, dir, "B.txt", "world")

		forward, err := Aggregate([]string{a, b})
		require.NoError(t, err)
		reversed, err := Aggregate([]string{b, a})
		require.NoError(t, err)
		assert.NotEqual(t, forward, reversed)
	})

	t.Run("propagates read errors", func(t *testing.T) {
		t.Parallel()
		if os.Geteuid() == 0 {
			t.Skip("permission bits are not enforced for root")
		}
		dir := t.TempDir()
		a := writeFile(t, dir, "A.txt", "hello")
		locked := writeFile(t, dir, "locked.txt", "secret")
		require.NoError(t, os.Chmod(locked, 0000))

		_, err := Aggregate([]string{a, locked})
		require.Error(t, err)
	})

	t.Run("empty list hashes the empty string", func(t *testing.T) {
		t.Parallel()
		got, err := Aggregate(nil)
		require.NoError(t, err)

		want := sha512.Sum512(nil)
		assert.Equal(t, hex.EncodeToString(want[:]), got)
	})
}
