package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSandbox(t *testing.T) {
	tests := []struct {
		name      string
		dir       string
		wantError bool
	}{
		{name: "temp directory", dir: t.TempDir()},
		{name: "empty directory", dir: "", wantError: true},
		{name: "blank directory", dir: "   ", wantError: true},
		{name: "missing directory", dir: "/non/existent/briefings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sb, err := NewSandbox(tt.dir)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(sb.Root()))
		})
	}
}

func TestSandbox_Resolve(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "egll"), 0o755))
	outside := t.TempDir()

	sb, err := NewSandbox(root)
	require.NoError(t, err)

	realRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)

	tests := []struct {
		name      string
		path      string
		want      string
		wantError bool
	}{
		{name: "relative file", path: "pack.pdf", want: filepath.Join(root, "pack.pdf")},
		{name: "nested relative file", path: "egll/pack.pdf", want: filepath.Join(root, "egll", "pack.pdf")},
		{name: "absolute inside", path: filepath.Join(root, "pack.pdf"), want: filepath.Join(root, "pack.pdf")},
		{name: "root itself", path: root, want: root},
		{name: "parent traversal", path: "../escape.pdf", wantError: true},
		{name: "absolute outside", path: filepath.Join(outside, "pack.pdf"), wantError: true},
		{name: "empty", path: "", wantError: true},
		{name: "null bytes stripped", path: "pack\x00.pdf", want: filepath.Join(root, "pack.pdf")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sb.Resolve(tt.path)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if got != tt.want {
				// temp dirs may sit behind a symlink (macOS /var)
				rel, relErr := filepath.Rel(realRoot, got)
				require.NoError(t, relErr)
				assert.Equal(t, tt.want, filepath.Join(root, rel))
			}
		})
	}
}

func TestSandbox_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.pdf")
	require.NoError(t, os.WriteFile(secret, []byte("%PDF-1.4"), 0o644))

	link := filepath.Join(root, "link.pdf")
	if err := os.Symlink(secret, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	sb, err := NewSandbox(root)
	require.NoError(t, err)

	_, err = sb.Resolve("link.pdf")
	assert.Error(t, err)
}

func TestSandbox_MissingRootAcceptsAnything(t *testing.T) {
	sb, err := NewSandbox(filepath.Join(t.TempDir(), "not-yet"))
	require.NoError(t, err)

	ok, err := sb.Contains("/etc/hosts")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSandbox_OutputPath(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "egll"), 0o755))
	sb, err := NewSandbox(root)
	require.NoError(t, err)

	t.Run("prefixed next to input", func(t *testing.T) {
		got, err := sb.OutputPath("egll/pack.pdf", "Clean_", "")
		require.NoError(t, err)
		assert.Equal(t, "Clean_pack.pdf", filepath.Base(got))
		assert.Equal(t, "egll", filepath.Base(filepath.Dir(got)))
	})

	t.Run("explicit target", func(t *testing.T) {
		got, err := sb.OutputPath("egll/pack.pdf", "Clean_", "out.pdf")
		require.NoError(t, err)
		assert.Equal(t, "out.pdf", filepath.Base(got))
	})

	t.Run("target outside", func(t *testing.T) {
		_, err := sb.OutputPath("egll/pack.pdf", "Clean_", "../out.pdf")
		assert.Error(t, err)
	})

	t.Run("input outside", func(t *testing.T) {
		_, err := sb.OutputPath("../pack.pdf", "Clean_", "")
		assert.Error(t, err)
	})
}
