package engine

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		err      error
		category string
	}{
		{"ssl", "ssl.SSLCertVerificationError: certificate verify failed", errors.New("exit status 1"), CategorySSL},
		{"x509", "", errors.New("x509: certificate signed by unknown authority"), CategorySSL},
		{"missing binary", "", fmt.Errorf("start: %w", exec.ErrNotFound), CategoryMissingTool},
		{"network", "ERROR: unable to download webpage", errors.New("exit status 1"), CategoryNetwork},
		{"dns", "", errors.New("dial tcp: lookup api.openai.com: no such host"), CategoryNetwork},
		{"timeout", "", context.DeadlineExceeded, CategoryTimeout},
		{"invalid media", "input.mp4: Invalid data found when processing input", errors.New("exit status 1"), CategoryMedia},
		{"private video", "ERROR: Private video", errors.New("exit status 1"), CategoryMedia},
		{"unknown", "something odd", errors.New("exit status 2"), CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := classifyError("tool", tt.output, tt.err)
			assert.Equal(t, tt.category, e.Category)
			assert.NotEmpty(t, e.UserMessage)
			assert.Error(t, e.RawError)
		})
	}
}

func TestClassifyError_OpenAIStatus(t *testing.T) {
	tests := []struct {
		status   int
		category string
	}{
		{401, CategoryAPIKey},
		{429, CategoryNetwork},
		{503, CategoryNetwork},
		{400, CategoryMedia},
	}

	for _, tt := range tests {
		apiErr := &openai.APIError{HTTPStatusCode: tt.status, Message: "boom"}
		e := classifyError("gpt", "", apiErr)
		assert.Equal(t, tt.category, e.Category, "status %d", tt.status)
	}
}

func TestError_UnwrapAndTransient(t *testing.T) {
	e := classifyError("whisper", "", context.DeadlineExceeded)
	assert.True(t, errors.Is(e, context.DeadlineExceeded))
	assert.True(t, e.Transient())

	e = classifyError("whisper", "certificate verify failed", errors.New("exit status 1"))
	assert.False(t, e.Transient())
	assert.Contains(t, e.Error(), "SSL")
}
