package llm

type Backend string

const (
	BackendOpenAI    Backend = "openai"
	BackendAnthropic Backend = "anthropic"
)

const (
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-haiku-4-5"
)

// ContextRequirements describes how much room a request needs in the
// target model's context window.
type ContextRequirements struct {
	MaxTokens int64
	BatchSize int
}

// Requests above either threshold get routed to a larger-context
// variant on the non-native backend.
const (
	largeOutputTokens = 4096
	largeBatchSize    = 10
)

func (r ContextRequirements) large() bool {
	return r.MaxTokens > largeOutputTokens || r.BatchSize > largeBatchSize
}

type modelPair struct {
	standard string
	large    string
}

var anthropicByNominal = map[string]modelPair{
	"gpt-4o-mini":  {standard: "claude-haiku-4-5", large: "claude-sonnet-4-5"},
	"gpt-4o":       {standard: "claude-sonnet-4-5", large: "claude-sonnet-4-5"},
	"gpt-4.1-mini": {standard: "claude-haiku-4-5", large: "claude-sonnet-4-5"},
	"gpt-4.1-nano": {standard: "claude-haiku-4-5", large: "claude-haiku-4-5"},
	"gpt-4.1":      {standard: "claude-sonnet-4-5", large: "claude-opus-4-1"},
}

// ResolveModel maps a nominal OpenAI-style model name onto a concrete
// model for the given backend. The mapping is total: every input
// resolves to some valid model name, falling back to the backend
// default when the nominal name is unknown.
func ResolveModel(nominal string, backend Backend, req ContextRequirements) string {
	switch backend {
	case BackendAnthropic:
		pair, ok := anthropicByNominal[nominal]
		if !ok {
			pair = modelPair{standard: defaultAnthropicModel, large: "claude-sonnet-4-5"}
		}
		if req.large() {
			return pair.large
		}
		return pair.standard
	default:
		if nominal == "" {
			return defaultOpenAIModel
		}
		return nominal
	}
}
