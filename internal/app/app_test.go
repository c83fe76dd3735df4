package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/parse/llamaparse"
)

func testConfig(provider string, fallback bool) *common.Config {
	return &common.Config{
		Parser:   common.ParserConfig{Provider: provider, Fallback: fallback, APIKey: "lp"},
		LLM:      common.LLMConfig{APIKey: "sk", Model: "gpt-test"},
		Database: common.DatabaseConfig{DSN: ":memory:"},
	}
}

func TestTextExtractor(t *testing.T) {
	assert.IsType(t, &extract.LocalExtractor{}, TextExtractor(testConfig(common.ParserLocal, true), nil))
	assert.IsType(t, &llamaparse.Client{}, TextExtractor(testConfig(common.ParserLlamaParse, false), nil))
	assert.IsType(t, &extract.Fallback{}, TextExtractor(testConfig(common.ParserLlamaParse, true), nil))
}

func TestBuild(t *testing.T) {
	a, err := Build(context.Background(), testConfig(common.ParserLocal, false), nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "gpt-test", a.Processor.ModelName)
	assert.NotNil(t, a.Jobs)
	assert.NoError(t, a.Ping(context.Background()))
}
