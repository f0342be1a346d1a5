package cloudinary

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)

	uploader, err := New(Config{CloudName: "demo", APIKey: "key", APISecret: "secret", Folder: "/forge/datasets/"}, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, "forge/datasets", uploader.folder)
}

func TestBuildPublicID(t *testing.T) {
	now := time.Unix(1700000000, 0)

	require.Equal(t, "coding-1234-train.jsonl", buildPublicID("coding-1234-train.jsonl", now))
	require.Equal(t, "my-dataset-v2.jsonl", buildPublicID("my dataset_v2.JSONL", now))
	require.Equal(t, "artifact-1700000000.jsonl", buildPublicID("__.jsonl", now))
}

func TestSniffPreservesContent(t *testing.T) {
	payload := `{"messages":[{"role":"system","content":"hi"}]}` + "\n"

	detected, body, err := sniff(strings.NewReader(payload))
	require.NoError(t, err)
	require.Contains(t, detected, "json")

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, payload, string(data))
}
