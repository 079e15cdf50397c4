package pyscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPositions(t *testing.T) {
	res := analyze(t, `
import mistralai

def go():
    mistralai.chat.complete()
`)
	require.Len(t, res.Sites, 1)
	s := res.Sites[0]
	assert.Equal(t, 5, s.Line)
	assert.Equal(t, 5, s.Col)
	assert.Equal(t, "mistralai.chat.complete", s.Call)
	assert.Equal(t, "mistral", s.Provider)
}

func TestDetectAllProviders(t *testing.T) {
	res := analyze(t, `
import openai
import anthropic
import cohere
import mistralai
import google.generativeai

openai.chat.completions.create()
anthropic.Anthropic()
cohere.Client()
mistralai.Mistral()
google.generativeai.GenerativeModel()
`)
	require.Len(t, res.Sites, 5)
	providers := make([]string, len(res.Sites))
	for i, s := range res.Sites {
		providers[i] = s.Provider
	}
	assert.Equal(t, []string{"openai", "anthropic", "cohere", "mistral", "google"}, providers)
}

func TestDetectDynamicTargetsSkipped(t *testing.T) {
	res := analyze(t, `
import openai

getattr(openai, "chat").completions.create()
handlers = {"ask": openai.chat.completions.create}
handlers["ask"]()
`)
	assert.Empty(t, res.Sites, "computed targets are an accepted false negative")
}

func TestDetectNestedCallInArguments(t *testing.T) {
	res := analyze(t, `
import openai

results = summarize(openai.embeddings.create(input="doc"))
`)
	require.Len(t, res.Sites, 1)
	assert.Equal(t, "openai.embeddings.create", res.Sites[0].Call)
}

func TestDetectChainedInstantiation(t *testing.T) {
	res := analyze(t, `
from openai import OpenAI

OpenAI().chat.completions.create(model="gpt-4")
`)
	// The constructor and the chained method call are distinct sites at
	// the same start position.
	require.Len(t, res.Sites, 2)
	assert.Equal(t, "OpenAI", res.Sites[0].Call)
	assert.Equal(t, "OpenAI().chat.completions.create", res.Sites[1].Call)
	assert.Equal(t, res.Sites[0].Line, res.Sites[1].Line)
}

func TestDetectAwaitedCall(t *testing.T) {
	res := analyze(t, `
from anthropic import AsyncAnthropic

client = AsyncAnthropic()

async def ask():
    return await client.messages.create(max_tokens=5)
`)
	require.Len(t, res.Sites, 2)
	assert.Equal(t, "client.messages.create", res.Sites[1].Call)
}

func TestDetectCallInsideFString(t *testing.T) {
	res := analyze(t, `
import cohere

label = f"reply: {cohere.Client().chat()}"
`)
	require.Len(t, res.Sites, 2)
	for _, s := range res.Sites {
		assert.Equal(t, "cohere", s.Provider)
	}
}

func TestDetectFrameworkImportsNoted(t *testing.T) {
	res := analyze(t, `
import langchain
from llama_index.core import VectorStoreIndex
import numpy

index = VectorStoreIndex([])
`)
	assert.Empty(t, res.Sites, "framework-mediated dispatch is not attributed to a provider")
	assert.Equal(t, []string{"langchain", "llama_index"}, res.Frameworks)
}

func TestDetectInstrumentationCallsNotSites(t *testing.T) {
	res := analyze(t, `
import assay

assay.record({"manual": True})

with assay.capture():
    pass
`)
	assert.Empty(t, res.Sites, "instrumentation library calls are not provider sites")
}

func TestDetectComprehensionAndConditional(t *testing.T) {
	res := analyze(t, `
import openai

replies = [openai.chat.completions.create(model=m) for m in models]
pick = openai.embeddings.create() if use_embeddings else None
`)
	require.Len(t, res.Sites, 2)
	assert.Equal(t, 4, res.Sites[0].Line)
	assert.Equal(t, 5, res.Sites[1].Line)
}

func TestDetectDecoratorArgumentCall(t *testing.T) {
	res := analyze(t, `
import openai

@app.route(openai.moderations.create())
def index():
    pass
`)
	require.Len(t, res.Sites, 1)
	assert.Equal(t, "openai.moderations.create", res.Sites[0].Call)
}
