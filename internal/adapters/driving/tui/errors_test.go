package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_AreDistinct(t *testing.T) {
	assert.NotEqual(t, ErrMissingRetriever.Error(), ErrInvalidPorts.Error())
}

func TestErrMissingRetriever_Message(t *testing.T) {
	assert.Contains(t, ErrMissingRetriever.Error(), "retriever")
}

func TestErrInvalidPorts_Message(t *testing.T) {
	assert.Contains(t, ErrInvalidPorts.Error(), "invalid ports")
}
