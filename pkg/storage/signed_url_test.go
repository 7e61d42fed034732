package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("TXN1A2B3C4D", ReceiptPath("202610", "TXN1A2B3C4D"))
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	txID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "TXN1A2B3C4D", txID)
	require.Equal(t, "202610/TXN1A2B3C4D.pdf", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond*10)
	token, _, err := signer.Generate("TXN1", "202610/TXN1.pdf")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 1100)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	txID, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "TXN1", txID)
	require.Equal(t, "202610/TXN1.pdf", path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("TXN1", "202610/TXN1.pdf")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "TXN2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	require.Error(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, _, _, err = other.Parse(token, false)
	require.Error(t, err)

	_, _, err = signer.Generate("TXN.1", "x.pdf")
	require.Error(t, err)
}

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel := ReceiptPath("202610", "TXN1")
	_, err = store.Save(rel, []byte("%PDF-1.3"))
	require.NoError(t, err)
	require.True(t, store.Exists(rel))

	data, err := store.Read(rel)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.3", string(data))

	require.NoError(t, store.Delete(rel))
	require.False(t, store.Exists(rel))
	require.NoError(t, store.Delete(rel))
}

func TestLocalStorageRejectsEscape(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../outside.pdf", []byte("x"))
	require.Error(t, err)
	_, err = store.Read("/etc/passwd")
	require.Error(t, err)
}
