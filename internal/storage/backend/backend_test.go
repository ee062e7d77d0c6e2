package backend

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen_Memory(t *testing.T) {
	s, err := Open(Config{Kind: Memory})
	require.NoError(t, err)
	require.NotNil(t, s)
	require.NoError(t, s.Close())
}

func TestOpen_UnknownKind(t *testing.T) {
	_, err := Open(Config{Kind: "does-not-exist"})
	require.Error(t, err)
}
