package store

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
)

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	s := &Store{}
	if err := WithLogger(zerolog.New(&buf))(s); err != nil {
		t.Fatal(err)
	}
	s.Log.Info().Msg("postgres not ready")
	if !bytes.Contains(buf.Bytes(), []byte("postgres not ready")) {
		t.Fatalf("store logger not set: %q", buf.String())
	}
}
